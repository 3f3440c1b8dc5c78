package notes

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFraction(t *testing.T) {
	t.Parallel()

	got := Parse("12/409 patients reported resolution")
	require.NotNil(t, got.Events)
	require.NotNil(t, got.N)
	assert.Equal(t, 12, *got.Events)
	assert.Equal(t, 409, *got.N)
}

func TestParseFractionOverridesEventsAndN(t *testing.T) {
	t.Parallel()

	// The fraction is more specific than a bare count or n=, so it wins.
	got := Parse("3 deaths, n=100, confirmed 5/200")
	require.NotNil(t, got.Events)
	require.NotNil(t, got.N)
	assert.Equal(t, 5, *got.Events)
	assert.Equal(t, 200, *got.N)
}

func TestParsePercentage(t *testing.T) {
	t.Parallel()

	got := Parse("61.5% of patients improved")
	require.NotNil(t, got.Percentage)
	assert.InDelta(t, 61.5, *got.Percentage, 1e-9)
}

func TestParseEventsAndN(t *testing.T) {
	t.Parallel()

	got := Parse("3 deaths observed, n=150")
	require.NotNil(t, got.Events)
	require.NotNil(t, got.N)
	assert.Equal(t, 3, *got.Events)
	assert.Equal(t, 150, *got.N)
}

func TestParseMeanWithSD(t *testing.T) {
	t.Parallel()

	got := Parse("change from baseline -30.5 ± 95.2")
	require.NotNil(t, got.Mean)
	require.NotNil(t, got.SD)
	assert.InDelta(t, -30.5, *got.Mean, 1e-9)
	assert.InDelta(t, 95.2, *got.SD, 1e-9)
}

func TestParseSDSuppressedNearCI(t *testing.T) {
	t.Parallel()

	// "0.69 ± 0.12" next to a CI mention is an interval bound, not an sd.
	got := Parse("estimate 0.69 ± 0.12 (95% CI)")
	assert.Nil(t, got.SD)
}

func TestParseRate(t *testing.T) {
	t.Parallel()

	got := Parse("observed 61% resolution at week 12")
	require.NotNil(t, got.Rate)
	assert.InDelta(t, 0.61, *got.Rate, 1e-9)
}

func TestParseRatioWithCI(t *testing.T) {
	t.Parallel()

	got := Parse("HR 0.69 (95% CI 0.49-0.98)")
	require.NotNil(t, got.TE)
	require.NotNil(t, got.SETE)
	assert.InDelta(t, math.Log(0.69), *got.TE, 1e-9)
	assert.InDelta(t, (math.Log(0.98)-math.Log(0.49))/3.92, *got.SETE, 1e-9)

	// Round-trip sanity against hand-computed values.
	assert.InDelta(t, -0.3711, *got.TE, 1e-3)
	assert.InDelta(t, 0.1769, *got.SETE, 1e-3)
}

func TestParseRatioVariants(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		notes string
	}{
		{"equals sign", "OR = 1.5 (95% CI 1.1-2.0)"},
		{"colon", "RR: 1.5 (1.1 to 2.0)"},
		{"no parens", "HR 1.5 95% CI 1.1-2.0"},
		{"en dash", "HR 1.5 (95% CI 1.1–2.0)"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Parse(tt.notes)
			require.NotNil(t, got.TE, "notes: %s", tt.notes)
			require.NotNil(t, got.SETE)
			assert.InDelta(t, math.Log(1.5), *got.TE, 1e-9)
		})
	}
}

func TestParseRatioRejectsDegenerateBounds(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		notes string
	}{
		{"upper below lower", "HR 0.69 (95% CI 0.98-0.49)"},
		{"zero lower bound", "HR 0.69 (95% CI 0-0.98)"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Parse(tt.notes)
			assert.Nil(t, got.TE)
			assert.Nil(t, got.SETE)
		})
	}
}

func TestParseFirstMatchOnly(t *testing.T) {
	t.Parallel()

	got := Parse("n=100 in part A; n=250 in part B")
	require.NotNil(t, got.N)
	assert.Equal(t, 100, *got.N)
}

func TestParseEmpty(t *testing.T) {
	t.Parallel()

	assert.True(t, Parse("").IsEmpty())
	assert.True(t, Parse("   ").IsEmpty())
	assert.True(t, Parse("no numbers of interest here").IsEmpty())
}

func TestParseMalformedNumbersIgnored(t *testing.T) {
	t.Parallel()

	// Fraction with zero denominator is dropped rather than adopted.
	got := Parse("reported 5/0 events")
	assert.Nil(t, got.N)
}
