package risk

import (
	"math"
	"time"
)

// GasLevel is a qualitative sensor reading for a spoilage gas
type GasLevel string

const (
	GasLow    GasLevel = "low"
	GasNormal GasLevel = "normal"
	GasHigh   GasLevel = "high"
)

// Category is the freshness bucket derived from a risk score
type Category string

const (
	CategoryFresh    Category = "fresh"
	CategoryModerate Category = "moderate"
	CategoryHigh     Category = "high"
)

// Classification thresholds. A score of exactly FreshMax is still fresh,
// a score of exactly ModerateMax is still moderate.
const (
	FreshMax    = 30
	ModerateMax = 70
)

// Sub-factor weights, summing to 1.0
const (
	weightTemperature = 0.25
	weightHumidity    = 0.15
	weightShelfLife   = 0.35
	weightGas         = 0.15
	weightDuration    = 0.10
)

// Qualitative gas readings mapped onto the 0-100 sub-score scale
const (
	gasScoreLow     = 20.0
	gasScoreNormal  = 50.0
	gasScoreHigh    = 90.0
	gasScoreNeutral = 50.0 // substituted when a reading was not collected
)

// Factors are the raw inputs to the scoring model. Deviations are
// magnitudes: callers clamp negative deltas to zero before building Factors.
type Factors struct {
	TempDeviation       float64 // deg C away from the crop's target band
	HumidityDeviation   float64 // percentage points away from target
	ElapsedShelfLifePct float64
	Ethylene            GasLevel
	CO2                 GasLevel
	Ammonia             *GasLevel // nil when not collected for this batch
	StorageDays         int
}

// Score converts raw factors into a 0-100 spoilage risk score.
// Pure and deterministic: no clock, no randomness, no I/O. Out-of-range
// inputs are clamped rather than rejected.
func Score(f Factors) int {
	temp := math.Min(100, math.Max(0, f.TempDeviation)*10)
	humidity := math.Min(100, math.Max(0, f.HumidityDeviation)*10)
	shelfLife := clamp(f.ElapsedShelfLifePct, 0, 100)
	gas := gasSubScore(f.Ethylene, f.CO2, f.Ammonia)
	duration := math.Min(100, math.Max(0, float64(f.StorageDays))*2)

	weighted := temp*weightTemperature +
		humidity*weightHumidity +
		shelfLife*weightShelfLife +
		gas*weightGas +
		duration*weightDuration

	score := int(math.Round(weighted))
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// Classify maps a risk score to its freshness category. This is the single
// source of truth for bucketing: filtering, counting, and alerting all go
// through it.
func Classify(score int) Category {
	switch {
	case score <= FreshMax:
		return CategoryFresh
	case score <= ModerateMax:
		return CategoryModerate
	default:
		return CategoryHigh
	}
}

// DaysRemaining returns shelf life minus whole elapsed days. Negative means
// the batch is past its shelf life.
func DaysRemaining(entryDate time.Time, shelfLifeDays int, now time.Time) int {
	return shelfLifeDays - elapsedDays(entryDate, now)
}

// ElapsedShelfLifePercent returns how much of the batch's shelf life has
// passed, clamped to [0,100].
func ElapsedShelfLifePercent(entryDate time.Time, shelfLifeDays int, now time.Time) float64 {
	if shelfLifeDays <= 0 {
		return 100
	}
	pct := float64(elapsedDays(entryDate, now)) / float64(shelfLifeDays) * 100
	return clamp(pct, 0, 100)
}

func elapsedDays(entryDate, now time.Time) int {
	elapsed := now.Sub(entryDate)
	if elapsed < 0 {
		return 0
	}
	return int(elapsed.Hours() / 24)
}

func gasSubScore(ethylene, co2 GasLevel, ammonia *GasLevel) float64 {
	ammoniaScore := gasScoreNeutral
	if ammonia != nil {
		ammoniaScore = gasLevelScore(*ammonia)
	}
	return (gasLevelScore(ethylene) + gasLevelScore(co2) + ammoniaScore) / 3
}

func gasLevelScore(level GasLevel) float64 {
	switch level {
	case GasLow:
		return gasScoreLow
	case GasHigh:
		return gasScoreHigh
	default:
		// unrecognized readings count as normal
		return gasScoreNormal
	}
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Min(hi, math.Max(lo, v))
}

// ValidGasLevels returns list of valid gas level readings
func ValidGasLevels() []GasLevel {
	return []GasLevel{GasLow, GasNormal, GasHigh}
}

// IsValidGasLevel checks if a gas level reading is valid
func IsValidGasLevel(level GasLevel) bool {
	for _, l := range ValidGasLevels() {
		if l == level {
			return true
		}
	}
	return false
}
