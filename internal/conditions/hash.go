// Package conditions buckets market state into a compact condition hash and
// looks up how signals emitted under the same conditions actually performed.
package conditions

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Market regimes as classified upstream
const (
	RegimeTrendingStrong = "TRENDING_STRONG"
	RegimeTrendingWeak   = "TRENDING_WEAK"
	RegimeRange          = "RANGE"
	RegimeVolatile       = "VOLATILE"
	RegimeEventDriven    = "EVENT_DRIVEN"
)

// Bucket tokens. Four dimensions of at most three values each keep the table
// dense: at most 81 distinct hashes.
const (
	BucketHigh     = "HIGH"
	BucketMid      = "MID"
	BucketLow      = "LOW"
	BucketStrong   = "STRONG"
	BucketModerate = "MODERATE"
	BucketWeak     = "WEAK"
	BucketNormal   = "NORMAL"
	BucketTrend    = "TREND"
	BucketRange    = "RANGE"
	BucketVolatile = "VOLATILE"
)

// hashLength is the truncated digest size. Collision-freedom inside the
// 81-combination space is guaranteed by construction, not digest strength.
const hashLength = 12

// ConditionHash is the bucketed market state and its stable digest
type ConditionHash struct {
	Hash            string
	AlignmentBucket string
	ADXBucket       string
	VolumeBucket    string
	RegimeBucket    string
}

// Compute buckets the four raw inputs and digests the joined tokens.
// Deterministic: identical inputs always produce the identical hash string.
func Compute(regime string, alignmentScore, adx, volumeRatio float64) ConditionHash {
	ch := ConditionHash{
		AlignmentBucket: bucketAlignment(alignmentScore),
		ADXBucket:       bucketADX(adx),
		VolumeBucket:    bucketVolume(volumeRatio),
		RegimeBucket:    CompressRegime(regime),
	}

	joined := strings.Join([]string{ch.RegimeBucket, ch.AlignmentBucket, ch.ADXBucket, ch.VolumeBucket}, "|")
	digest := sha256.Sum256([]byte(joined))
	ch.Hash = hex.EncodeToString(digest[:])[:hashLength]
	return ch
}

// CompressRegime folds the 5-way regime classification into 3 buckets
func CompressRegime(regime string) string {
	switch regime {
	case RegimeTrendingStrong, RegimeTrendingWeak:
		return BucketTrend
	case RegimeVolatile, RegimeEventDriven:
		return BucketVolatile
	}
	return BucketRange
}

func bucketAlignment(score float64) string {
	switch {
	case score >= 70:
		return BucketHigh
	case score >= 40:
		return BucketMid
	}
	return BucketLow
}

func bucketADX(adx float64) string {
	switch {
	case adx >= 25:
		return BucketStrong
	case adx >= 15:
		return BucketModerate
	}
	return BucketWeak
}

func bucketVolume(ratio float64) string {
	switch {
	case ratio >= 1.5:
		return BucketHigh
	case ratio >= 1.0:
		return BucketNormal
	}
	return BucketLow
}
