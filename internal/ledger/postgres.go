package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresConfig holds connection settings for the Postgres-backed ledger
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// PostgresStore implements Store over a pgx connection pool
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to Postgres and verifies connectivity
func NewPostgresStore(ctx context.Context, cfg PostgresConfig) (*PostgresStore, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to parse ledger database config: %w", err)
	}
	poolConfig.MaxConns = 10
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(pingCtx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create ledger connection pool: %w", err)
	}
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping ledger database: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// Close releases the connection pool
func (s *PostgresStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Migrate creates the signals table and its indexes
func (s *PostgresStore) Migrate(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS signals (
			symbol VARCHAR(20) NOT NULL,
			signal_date DATE NOT NULL,
			direction VARCHAR(4) NOT NULL,
			confidence DECIMAL(6, 2) NOT NULL,
			base_confidence DECIMAL(6, 2) NOT NULL,
			regime VARCHAR(20) NOT NULL,
			alignment_score DECIMAL(6, 2) NOT NULL,
			adx DECIMAL(6, 2) NOT NULL,
			volume_ratio DECIMAL(10, 4) NOT NULL,
			condition_hash VARCHAR(16) NOT NULL,
			alignment_bucket VARCHAR(8) NOT NULL,
			adx_bucket VARCHAR(8) NOT NULL,
			volume_bucket VARCHAR(8) NOT NULL,
			regime_bucket VARCHAR(8) NOT NULL,
			entry_price DECIMAL(20, 8) NOT NULL,
			target_price DECIMAL(20, 8) NOT NULL,
			stop_loss DECIMAL(20, 8) NOT NULL,
			status VARCHAR(12) NOT NULL DEFAULT 'PENDING',
			outcome_date DATE,
			outcome_price DECIMAL(20, 8),
			pnl_percent DECIMAL(10, 4),
			days_to_outcome INT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (symbol, signal_date)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_signals_status ON signals(status)`,
		`CREATE INDEX IF NOT EXISTS idx_signals_hash ON signals(condition_hash)`,
	}

	for _, migration := range migrations {
		if _, err := s.pool.Exec(ctx, migration); err != nil {
			return fmt.Errorf("ledger migration failed: %w", err)
		}
	}
	return nil
}

// Upsert inserts or updates the (symbol, signal_date) row
func (s *PostgresStore) Upsert(ctx context.Context, record *SignalRecord) error {
	query := `
		INSERT INTO signals (
			symbol, signal_date, direction, confidence, base_confidence,
			regime, alignment_score, adx, volume_ratio,
			condition_hash, alignment_bucket, adx_bucket, volume_bucket, regime_bucket,
			entry_price, target_price, stop_loss, status,
			outcome_date, outcome_price, pnl_percent, days_to_outcome
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
		ON CONFLICT (symbol, signal_date) DO UPDATE SET
			direction = EXCLUDED.direction,
			confidence = EXCLUDED.confidence,
			base_confidence = EXCLUDED.base_confidence,
			regime = EXCLUDED.regime,
			alignment_score = EXCLUDED.alignment_score,
			adx = EXCLUDED.adx,
			volume_ratio = EXCLUDED.volume_ratio,
			condition_hash = EXCLUDED.condition_hash,
			alignment_bucket = EXCLUDED.alignment_bucket,
			adx_bucket = EXCLUDED.adx_bucket,
			volume_bucket = EXCLUDED.volume_bucket,
			regime_bucket = EXCLUDED.regime_bucket,
			entry_price = EXCLUDED.entry_price,
			target_price = EXCLUDED.target_price,
			stop_loss = EXCLUDED.stop_loss,
			status = EXCLUDED.status,
			outcome_date = EXCLUDED.outcome_date,
			outcome_price = EXCLUDED.outcome_price,
			pnl_percent = EXCLUDED.pnl_percent,
			days_to_outcome = EXCLUDED.days_to_outcome,
			updated_at = CURRENT_TIMESTAMP
	`
	_, err := s.pool.Exec(ctx, query,
		record.Symbol, Day(record.Date), record.Direction, record.Confidence, record.BaseConfidence,
		record.Conditions.Regime, record.Conditions.AlignmentScore, record.Conditions.ADX, record.Conditions.VolumeRatio,
		record.Conditions.Hash, record.Conditions.AlignmentBucket, record.Conditions.ADXBucket,
		record.Conditions.VolumeBucket, record.Conditions.RegimeBucket,
		record.EntryPrice, record.TargetPrice, record.StopLoss, record.Status,
		record.OutcomeDate, record.OutcomePrice, record.PnLPercent, record.DaysToOutcome,
	)
	if err != nil {
		return fmt.Errorf("upsert signal %s/%s: %w", record.Symbol, Day(record.Date).Format("2006-01-02"), err)
	}
	return nil
}

// Find returns records matching the filter, oldest first
func (s *PostgresStore) Find(ctx context.Context, filter Filter) ([]SignalRecord, error) {
	query := `
		SELECT symbol, signal_date, direction, confidence, base_confidence,
		       regime, alignment_score, adx, volume_ratio,
		       condition_hash, alignment_bucket, adx_bucket, volume_bucket, regime_bucket,
		       entry_price, target_price, stop_loss, status,
		       outcome_date, outcome_price, pnl_percent, days_to_outcome
		FROM signals
	`
	var conditions []string
	var args []interface{}

	addArg := func(clause string, value interface{}) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(clause, len(args)))
	}

	if filter.Symbol != "" {
		addArg("symbol = $%d", filter.Symbol)
	}
	if filter.ConditionHash != "" {
		addArg("condition_hash = $%d", filter.ConditionHash)
	}
	if !filter.Since.IsZero() {
		addArg("signal_date >= $%d", Day(filter.Since))
	}
	if len(filter.Statuses) > 0 {
		addArg("status = ANY($%d)", filter.Statuses)
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY signal_date ASC, symbol ASC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find signals: %w", err)
	}
	defer rows.Close()

	var records []SignalRecord
	for rows.Next() {
		var rec SignalRecord
		err := rows.Scan(
			&rec.Symbol, &rec.Date, &rec.Direction, &rec.Confidence, &rec.BaseConfidence,
			&rec.Conditions.Regime, &rec.Conditions.AlignmentScore, &rec.Conditions.ADX, &rec.Conditions.VolumeRatio,
			&rec.Conditions.Hash, &rec.Conditions.AlignmentBucket, &rec.Conditions.ADXBucket,
			&rec.Conditions.VolumeBucket, &rec.Conditions.RegimeBucket,
			&rec.EntryPrice, &rec.TargetPrice, &rec.StopLoss, &rec.Status,
			&rec.OutcomeDate, &rec.OutcomePrice, &rec.PnLPercent, &rec.DaysToOutcome,
		)
		if err != nil {
			return nil, fmt.Errorf("scan signal row: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Aggregate groups matching rows in SQL and summarizes win counts and mean
// PnL per group
func (s *PostgresStore) Aggregate(ctx context.Context, query AggregateQuery) ([]AggregateRow, error) {
	groupColumn := "condition_hash"
	if query.GroupBy == "direction" {
		groupColumn = "direction"
	}

	sql := fmt.Sprintf(`
		SELECT %s,
		       COUNT(*) AS total,
		       SUM(CASE WHEN status = 'TARGET_HIT' THEN 1 ELSE 0 END) AS wins,
		       COALESCE(AVG(pnl_percent), 0) AS avg_pnl
		FROM signals
	`, groupColumn)

	var args []interface{}
	if len(query.Statuses) > 0 {
		args = append(args, query.Statuses)
		sql += " WHERE status = ANY($1)"
	}
	sql += fmt.Sprintf(" GROUP BY %s ORDER BY %s", groupColumn, groupColumn)

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("aggregate signals: %w", err)
	}
	defer rows.Close()

	var out []AggregateRow
	for rows.Next() {
		var row AggregateRow
		if err := rows.Scan(&row.Key, &row.Total, &row.Wins, &row.AvgPnL); err != nil {
			return nil, fmt.Errorf("scan aggregate row: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
