// Prints the confidence calibration report from the signal ledger:
// per-band claimed vs delivered win rates and the adjustment factors the
// screener will apply.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"stock-signal-engine/config"
	"stock-signal-engine/internal/calibration"
	"stock-signal-engine/internal/ledger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if !cfg.DatabaseConfig.Enabled {
		fmt.Println("Calibration needs the ledger database, set DB_ENABLED=true")
		os.Exit(1)
	}

	ctx := context.Background()
	store, err := ledger.NewPostgresStore(ctx, ledger.PostgresConfig{
		Host:     cfg.DatabaseConfig.Host,
		Port:     cfg.DatabaseConfig.Port,
		User:     cfg.DatabaseConfig.User,
		Password: cfg.DatabaseConfig.Password,
		Database: cfg.DatabaseConfig.Database,
		SSLMode:  cfg.DatabaseConfig.SSLMode,
	})
	if err != nil {
		fmt.Printf("Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	report, err := calibration.NewCalibrator(store, zerolog.Nop()).Build(ctx)
	if err != nil {
		fmt.Printf("Failed to build calibration report: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("=== CONFIDENCE CALIBRATION REPORT ===")
	fmt.Printf("Resolved signals: %d\n", report.ResolvedCount)
	if !report.Ready {
		fmt.Printf("Not enough data yet (%d of %d resolved signals needed)\n",
			report.ResolvedCount, calibration.MinResolved)
		return
	}

	fmt.Printf("\n%-10s %-9s %-8s %-6s %-9s %-10s %-16s %s\n",
		"Band", "Predicted", "Actual", "N", "Wins", "Deviation", "Status", "Factor")
	for _, band := range report.Bands {
		fmt.Printf("%3.0f%%-%-3.0f%%  %8.1f%% %6.1f%% %6d %8d %+9.1f %-16s %.3f\n",
			band.Lower, band.Upper, band.Predicted, band.ActualRate,
			band.Total, band.Wins, band.Deviation, band.Status, band.Factor)
	}
}
