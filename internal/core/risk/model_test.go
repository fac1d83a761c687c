package risk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func allNormalFactors() Factors {
	return Factors{
		TempDeviation:       0,
		HumidityDeviation:   0,
		ElapsedShelfLifePct: 0,
		Ethylene:            GasNormal,
		CO2:                 GasNormal,
		StorageDays:         0,
	}
}

func TestScore_RangeInvariant(t *testing.T) {
	high := GasHigh
	tests := []struct {
		name    string
		factors Factors
	}{
		{"all zero", Factors{}},
		{"all normal", allNormalFactors()},
		{"everything maxed", Factors{
			TempDeviation:       50,
			HumidityDeviation:   50,
			ElapsedShelfLifePct: 250,
			Ethylene:            GasHigh,
			CO2:                 GasHigh,
			Ammonia:             &high,
			StorageDays:         365,
		}},
		{"negative inputs clamped", Factors{
			TempDeviation:       -5,
			HumidityDeviation:   -10,
			ElapsedShelfLifePct: -20,
			StorageDays:         -3,
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score := Score(tt.factors)
			assert.GreaterOrEqual(t, score, 0)
			assert.LessOrEqual(t, score, 100)
		})
	}
}

func TestScore_Deterministic(t *testing.T) {
	ammonia := GasLow
	factors := Factors{
		TempDeviation:       3.2,
		HumidityDeviation:   7.5,
		ElapsedShelfLifePct: 42,
		Ethylene:            GasHigh,
		CO2:                 GasNormal,
		Ammonia:             &ammonia,
		StorageDays:         12,
	}

	first := Score(factors)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Score(factors))
	}
}

func TestScore_MonotonicInShelfLife(t *testing.T) {
	factors := allNormalFactors()
	prev := -1

	for pct := 0.0; pct <= 100; pct += 5 {
		factors.ElapsedShelfLifePct = pct
		score := Score(factors)
		assert.GreaterOrEqual(t, score, prev,
			"score must not decrease as shelf life elapses (pct=%v)", pct)
		prev = score
	}
}

func TestScore_FreshIntake(t *testing.T) {
	// Batch entered today: no deviations, all gases normal, zero storage.
	// Only the neutral gas term contributes: round(50 * 0.15) = 8.
	score := Score(allNormalFactors())
	assert.Equal(t, 8, score)
	assert.Equal(t, CategoryFresh, Classify(score))
}

func TestScore_NearExpiry(t *testing.T) {
	factors := allNormalFactors()
	factors.ElapsedShelfLifePct = 95

	// round(95*0.35 + 50*0.15) = round(40.75) = 41
	score := Score(factors)
	assert.Equal(t, 41, score)
	assert.Equal(t, CategoryModerate, Classify(score))
}

func TestScore_MissingAmmoniaIsNeutral(t *testing.T) {
	withNeutral := allNormalFactors()
	neutral := GasNormal
	withNeutral.Ammonia = &neutral

	withoutAmmonia := allNormalFactors()

	assert.Equal(t, Score(withNeutral), Score(withoutAmmonia),
		"missing ammonia reading must score like an explicit normal reading")
}

func TestScore_GasLevelsOrdered(t *testing.T) {
	low := allNormalFactors()
	low.Ethylene = GasLow
	normal := allNormalFactors()
	high := allNormalFactors()
	high.Ethylene = GasHigh

	assert.Less(t, Score(low), Score(normal))
	assert.Less(t, Score(normal), Score(high))
}

func TestClassify_Boundaries(t *testing.T) {
	tests := []struct {
		score    int
		expected Category
	}{
		{0, CategoryFresh},
		{30, CategoryFresh},
		{31, CategoryModerate},
		{70, CategoryModerate},
		{71, CategoryHigh},
		{100, CategoryHigh},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, Classify(tt.score), "score %d", tt.score)
	}
}

func TestDaysRemaining(t *testing.T) {
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name          string
		entry         time.Time
		shelfLifeDays int
		expected      int
	}{
		{"entered today", now, 7, 7},
		{"halfway", now.AddDate(0, 0, -3), 7, 4},
		{"expires today", now.AddDate(0, 0, -7), 7, 0},
		{"past expiry", now.AddDate(0, 0, -10), 7, -3},
		{"entry in the future counts as zero elapsed", now.AddDate(0, 0, 2), 7, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DaysRemaining(tt.entry, tt.shelfLifeDays, now))
		})
	}
}

func TestElapsedShelfLifePercent(t *testing.T) {
	now := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, 0.0, ElapsedShelfLifePercent(now, 10, now))
	assert.Equal(t, 50.0, ElapsedShelfLifePercent(now.AddDate(0, 0, -5), 10, now))
	assert.Equal(t, 100.0, ElapsedShelfLifePercent(now.AddDate(0, 0, -20), 10, now))
	assert.Equal(t, 100.0, ElapsedShelfLifePercent(now, 0, now), "zero shelf life is fully elapsed")
}

func TestIsValidGasLevel(t *testing.T) {
	tests := []struct {
		level GasLevel
		valid bool
	}{
		{GasLow, true},
		{GasNormal, true},
		{GasHigh, true},
		{"extreme", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.level), func(t *testing.T) {
			assert.Equal(t, tt.valid, IsValidGasLevel(tt.level))
		})
	}
}
