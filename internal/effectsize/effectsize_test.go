package effectsize

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBinarySingleArm(t *testing.T) {
	t.Parallel()

	// 12 events out of 409: te = ln(12/397), seTE = sqrt(1/12 + 1/397).
	got := BinarySingleArm(409, 12)
	require.NotNil(t, got)
	assert.InDelta(t, math.Log(12.0/397.0), got.TE, 1e-4)
	require.NotNil(t, got.SETE)
	assert.InDelta(t, math.Sqrt(1.0/12+1.0/397), *got.SETE, 1e-4)
	assert.False(t, got.Corrected)
	assert.Equal(t, "log-odds: log(event/(n-event))", got.Formula)
}

func TestBinarySingleArmRounding(t *testing.T) {
	t.Parallel()

	got := BinarySingleArm(409, 12)
	require.NotNil(t, got)
	assert.Equal(t, got.TE, math.Round(got.TE*10000)/10000)
	assert.Equal(t, *got.SETE, math.Round(*got.SETE*10000)/10000)
}

func TestBinarySingleArmContinuityCorrection(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		n     int
		event int
	}{
		{"zero events", 50, 0},
		{"all events", 50, 50},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := BinarySingleArm(tt.n, tt.event)
			require.NotNil(t, got)
			assert.True(t, got.Corrected)
			assert.Contains(t, got.Formula, "0.5 continuity correction")
			require.NotNil(t, got.SETE)
			assert.True(t, *got.SETE > 0)
			assert.False(t, math.IsInf(got.TE, 0))
		})
	}
}

func TestBinarySingleArmNoCorrectionInBetween(t *testing.T) {
	t.Parallel()

	for event := 1; event < 20; event++ {
		got := BinarySingleArm(20, event)
		require.NotNil(t, got)
		assert.False(t, got.Corrected, "event=%d", event)
		require.NotNil(t, got.SETE)
		assert.True(t, *got.SETE > 0)
	}
}

func TestBinarySingleArmInvalidInputs(t *testing.T) {
	t.Parallel()

	assert.Nil(t, BinarySingleArm(0, 0))
	assert.Nil(t, BinarySingleArm(-5, 0))
	assert.Nil(t, BinarySingleArm(10, -1))
	assert.Nil(t, BinarySingleArm(10, 11))
}

func TestBinaryComparative(t *testing.T) {
	t.Parallel()

	// 10/100 vs 20/100: logOR = ln((10/90)/(20/80)).
	got := BinaryComparative(100, 100, 10, 20)
	require.NotNil(t, got)
	assert.InDelta(t, math.Log((10.0/90.0)/(20.0/80.0)), got.TE, 1e-4)
	require.NotNil(t, got.SETE)
	assert.InDelta(t, math.Sqrt(1.0/10+1.0/90+1.0/20+1.0/80), *got.SETE, 1e-4)
	assert.False(t, got.Corrected)
}

func TestBinaryComparativeZeroCellCorrection(t *testing.T) {
	t.Parallel()

	got := BinaryComparative(100, 100, 0, 20)
	require.NotNil(t, got)
	assert.True(t, got.Corrected)
	assert.Contains(t, got.Formula, "0.5 continuity correction")
	assert.InDelta(t, math.Log((0.5/100.5)/(20.5/80.5)), got.TE, 1e-4)
	require.NotNil(t, got.SETE)
	assert.False(t, math.IsInf(*got.SETE, 0))
}

func TestBinaryComparativeInvalidInputs(t *testing.T) {
	t.Parallel()

	assert.Nil(t, BinaryComparative(0, 100, 0, 10))
	assert.Nil(t, BinaryComparative(100, 0, 10, 0))
	assert.Nil(t, BinaryComparative(100, 100, 101, 10))
	assert.Nil(t, BinaryComparative(100, 100, 10, -1))
}

func TestContinuousSingleArm(t *testing.T) {
	t.Parallel()

	sd := 95.2
	n := 409
	got := ContinuousSingleArm(-30.5, &sd, &n)
	require.NotNil(t, got)
	assert.InDelta(t, -30.5, got.TE, 1e-9)
	require.NotNil(t, got.SETE)
	assert.InDelta(t, 95.2/math.Sqrt(409), *got.SETE, 1e-4)
}

func TestContinuousSingleArmMissingVariance(t *testing.T) {
	t.Parallel()

	n := 409
	sd := 95.2
	negSD := -1.0
	zeroN := 0

	tests := []struct {
		name string
		sd   *float64
		n    *int
	}{
		{"no sd", nil, &n},
		{"no n", &sd, nil},
		{"negative sd", &negSD, &n},
		{"zero n", &sd, &zeroN},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := ContinuousSingleArm(-30.5, tt.sd, tt.n)
			require.NotNil(t, got)
			assert.InDelta(t, -30.5, got.TE, 1e-9)
			assert.Nil(t, got.SETE)
		})
	}
}

func TestEventFromPercentage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		percentage float64
		n          int
		want       int
		ok         bool
	}{
		{"simple", 50, 100, 50, true},
		{"rounds", 12.5, 409, 51, true},
		{"zero percent", 0, 100, 0, true},
		{"full percent", 100, 100, 100, true},
		{"negative", -1, 100, 0, false},
		{"over 100", 101, 100, 0, false},
		{"zero n", 50, 0, 0, false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := EventFromPercentage(tt.percentage, tt.n)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
