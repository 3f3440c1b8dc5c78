package validate

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evidex/trialqa/internal/model"
)

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

// completeRow has every scored field populated and carries no issues.
func completeRow() model.SingleArmRecord {
	return model.SingleArmRecord{
		ID:          "row-1",
		Study:       "NCT01234567",
		Treatment:   "upadacitinib 15mg",
		MeasureName: "EASI-75",
		TimePoint:   "week 16",
		N:           intPtr(409),
		Event:       intPtr(290),
		TE:          floatPtr(0.8925),
		SETE:        floatPtr(0.1156),
		Page:        "14",
		Table:       "2",
	}
}

func TestRecordsCompleteRowPasses(t *testing.T) {
	t.Parallel()

	res := Records([]model.SingleArmRecord{completeRow()}, nil)
	assert.True(t, res.IsValid)
	assert.Empty(t, res.Errors)
	assert.Empty(t, res.Warnings)
	assert.Empty(t, res.Enhancements)
	assert.Equal(t, 100, res.CompletenessScore)
}

func TestRecordsRequiredFields(t *testing.T) {
	t.Parallel()

	res := Records([]model.SingleArmRecord{{}}, nil)
	assert.False(t, res.IsValid)

	fields := map[string]bool{}
	for _, e := range res.Errors {
		fields[e.Field] = true
	}
	assert.True(t, fields["study"])
	assert.True(t, fields["treatment"])
	assert.True(t, fields["measure_name"])
	assert.True(t, fields["n"])
}

func TestRecordsFillsFromNotes(t *testing.T) {
	t.Parallel()

	row := model.SingleArmRecord{
		Study:       "NCT01234567",
		Treatment:   "dupilumab",
		MeasureName: "IGA 0/1",
		Notes:       "12/409 patients achieved the endpoint",
	}
	res := Records([]model.SingleArmRecord{row}, nil)

	got := res.SingleArm[0]
	require.NotNil(t, got.N)
	require.NotNil(t, got.Event)
	assert.Equal(t, 409, *got.N)
	assert.Equal(t, 12, *got.Event)

	// Counts found in notes feed straight into derivation.
	require.NotNil(t, got.TE)
	assert.InDelta(t, math.Log(12.0/397.0), *got.TE, 1e-3)
	require.NotNil(t, got.SETE)

	// The missing n was filled from notes, so the required-field error is
	// still reported against the original input.
	assert.False(t, res.IsValid)
}

func TestRecordsPercentageToEvent(t *testing.T) {
	t.Parallel()

	row := model.SingleArmRecord{
		Study:       "NCT01234567",
		Treatment:   "placebo",
		MeasureName: "EASI-75",
		N:           intPtr(200),
		Notes:       "50% achieved response",
	}
	res := Records([]model.SingleArmRecord{row}, nil)

	got := res.SingleArm[0]
	require.NotNil(t, got.Event)
	assert.Equal(t, 100, *got.Event)
	assert.Contains(t, got.CalculationNotes, "event = round(")

	var enhanced bool
	for _, e := range res.Enhancements {
		if e.Field == "event" {
			enhanced = true
			assert.Equal(t, 100, e.NewValue)
		}
	}
	assert.True(t, enhanced)
}

func TestRecordsAdoptsRatioFromNotes(t *testing.T) {
	t.Parallel()

	row := model.SingleArmRecord{
		Study:       "NCT01234567",
		Treatment:   "abrocitinib",
		MeasureName: "pruritus NRS",
		N:           intPtr(100),
		Notes:       "HR 0.69 (95% CI 0.49-0.98)",
	}
	res := Records([]model.SingleArmRecord{row}, nil)

	got := res.SingleArm[0]
	require.NotNil(t, got.TE)
	require.NotNil(t, got.SETE)
	assert.InDelta(t, -0.3711, *got.TE, 1e-3)
	assert.InDelta(t, 0.1769, *got.SETE, 1e-3)
	assert.Contains(t, got.CalculationNotes, "ln(estimate)")
}

func TestRecordsContinuousDerivation(t *testing.T) {
	t.Parallel()

	row := model.SingleArmRecord{
		Study:       "NCT01234567",
		Treatment:   "dupilumab",
		MeasureName: "EASI change",
		N:           intPtr(409),
		Mean:        floatPtr(-30.5),
		SD:          floatPtr(95.2),
	}
	res := Records([]model.SingleArmRecord{row}, nil)

	got := res.SingleArm[0]
	require.NotNil(t, got.TE)
	assert.InDelta(t, -30.5, *got.TE, 1e-9)
	require.NotNil(t, got.SETE)
	assert.InDelta(t, 95.2/math.Sqrt(409), *got.SETE, 1e-3)
}

func TestRecordsNeverOverwrites(t *testing.T) {
	t.Parallel()

	// A reviewer-corrected te must survive re-validation even when the notes
	// still carry a derivable ratio.
	row := completeRow()
	row.Notes = "HR 0.50 (95% CI 0.30-0.80)"
	res := Records([]model.SingleArmRecord{row}, nil)

	got := res.SingleArm[0]
	assert.InDelta(t, 0.8925, *got.TE, 1e-9)
	assert.Empty(t, res.Enhancements)
}

func TestRecordsIdempotent(t *testing.T) {
	t.Parallel()

	row := model.SingleArmRecord{
		Study:       "NCT01234567",
		Treatment:   "dupilumab",
		MeasureName: "IGA 0/1",
		TimePoint:   "week 16",
		N:           intPtr(409),
		Event:       intPtr(12),
		Page:        "3",
		Table:       "1",
	}
	first := Records([]model.SingleArmRecord{row}, nil)
	require.NotEmpty(t, first.Enhancements)

	second := Records(first.SingleArm, nil)
	assert.Empty(t, second.Enhancements)
	assert.Equal(t, first.SingleArm, second.SingleArm)
	assert.Equal(t, first.CompletenessScore, second.CompletenessScore)
}

func TestRecordsDoesNotMutateInput(t *testing.T) {
	t.Parallel()

	rows := []model.SingleArmRecord{{
		Study:       "NCT01234567",
		Treatment:   "dupilumab",
		MeasureName: "IGA 0/1",
		N:           intPtr(409),
		Event:       intPtr(12),
	}}
	_ = Records(rows, nil)
	assert.Nil(t, rows[0].TE)
	assert.Nil(t, rows[0].SETE)
	assert.Empty(t, rows[0].CalculationNotes)
}

func TestRecordsConsistencyErrors(t *testing.T) {
	t.Parallel()

	row := completeRow()
	row.Event = intPtr(500) // exceeds n=409
	row.SD = floatPtr(-2)
	res := Records([]model.SingleArmRecord{row}, nil)
	assert.False(t, res.IsValid)

	fields := map[string]bool{}
	for _, e := range res.Errors {
		fields[e.Field] = true
	}
	assert.True(t, fields["event"])
	assert.True(t, fields["sd"])
}

func TestRecordsCompletenessWarnings(t *testing.T) {
	t.Parallel()

	row := model.SingleArmRecord{
		Study:       "NCT01234567",
		Treatment:   "dupilumab",
		MeasureName: "IGA 0/1",
		N:           intPtr(409),
	}
	res := Records([]model.SingleArmRecord{row}, nil)
	assert.True(t, res.IsValid)

	fields := map[string]bool{}
	for _, w := range res.Warnings {
		fields[w.Field] = true
	}
	assert.True(t, fields["page"])
	assert.True(t, fields["table"])
	assert.True(t, fields["time_point"])
	assert.True(t, fields["outcome"])
}

func TestRecordsPartialCompletenessScore(t *testing.T) {
	t.Parallel()

	// treatment + measure only: 2 of 7 points.
	row := model.SingleArmRecord{
		Study:       "NCT01234567",
		Treatment:   "dupilumab",
		MeasureName: "IGA 0/1",
	}
	res := Records([]model.SingleArmRecord{row}, nil)
	assert.Equal(t, int(math.Round(100.0*2/7)), res.CompletenessScore)
}

func TestRecordsEmptyBatch(t *testing.T) {
	t.Parallel()

	res := Records(nil, nil)
	assert.True(t, res.IsValid)
	assert.Equal(t, 0, res.CompletenessScore)
}

func TestComparatorCoverageWarning(t *testing.T) {
	t.Parallel()

	rows := []model.SingleArmRecord{
		{Study: "s", Treatment: "dupilumab", MeasureName: "EASI-75", TimePoint: "week 16", N: intPtr(100), Event: intPtr(50), Page: "1", Table: "1"},
		{Study: "s", Treatment: "dupilumab", MeasureName: "EASI-75", TimePoint: "week 16", N: intPtr(100), Event: intPtr(40), Page: "1", Table: "1"},
	}
	res := Records(rows, nil)

	var found *model.ValidationIssue
	for i := range res.Warnings {
		if res.Warnings[i].Field == "treatment" {
			found = &res.Warnings[i]
		}
	}
	require.NotNil(t, found)
	assert.Equal(t, -1, found.RowIndex)
	assert.Contains(t, found.Message, "single treatment arm")
}

func TestComparatorCoverageTwoArmsNoWarning(t *testing.T) {
	t.Parallel()

	rows := []model.SingleArmRecord{
		{Study: "s", Treatment: "dupilumab", MeasureName: "EASI-75", TimePoint: "week 16", N: intPtr(100), Event: intPtr(50), Page: "1", Table: "1"},
		{Study: "s", Treatment: "placebo", MeasureName: "EASI-75", TimePoint: "week 16", N: intPtr(100), Event: intPtr(10), Page: "1", Table: "1"},
	}
	res := Records(rows, nil)

	for _, w := range res.Warnings {
		assert.NotEqual(t, -1, w.RowIndex)
	}
}

func TestComparativeDerivation(t *testing.T) {
	t.Parallel()

	row := model.ComparativeRecord{
		Study:       "NCT01234567",
		Treatment1:  "dupilumab",
		Treatment2:  "placebo",
		MeasureName: "EASI-75",
		TimePoint:   "week 16",
		N1:          intPtr(100),
		N2:          intPtr(100),
		Event1:      intPtr(10),
		Event2:      intPtr(20),
		Page:        "5",
		Table:       "3",
	}
	res := Records(nil, []model.ComparativeRecord{row})
	assert.True(t, res.IsValid)

	got := res.Comparative[0]
	require.NotNil(t, got.TE)
	assert.InDelta(t, math.Log((10.0/90.0)/(20.0/80.0)), *got.TE, 1e-3)
	require.NotNil(t, got.SETE)
	assert.Equal(t, 100, res.CompletenessScore)
}

func TestComparativeMissingVarianceIsError(t *testing.T) {
	t.Parallel()

	row := model.ComparativeRecord{
		Study:       "NCT01234567",
		Treatment1:  "dupilumab",
		Treatment2:  "placebo",
		MeasureName: "EASI-75",
		N1:          intPtr(100),
		N2:          intPtr(100),
		TE:          floatPtr(0.5),
	}
	res := Records(nil, []model.ComparativeRecord{row})
	assert.False(t, res.IsValid)

	var found bool
	for _, e := range res.Errors {
		if e.Field == "se_te" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestComparativeNonPositiveVarianceIsError(t *testing.T) {
	t.Parallel()

	row := model.ComparativeRecord{
		Study:       "NCT01234567",
		Treatment1:  "dupilumab",
		Treatment2:  "placebo",
		MeasureName: "EASI-75",
		N1:          intPtr(100),
		N2:          intPtr(100),
		TE:          floatPtr(0.5),
		SETE:        floatPtr(0),
	}
	res := Records(nil, []model.ComparativeRecord{row})
	assert.False(t, res.IsValid)
}

func TestComparativeRatioFromNotes(t *testing.T) {
	t.Parallel()

	row := model.ComparativeRecord{
		Study:       "NCT01234567",
		Treatment1:  "dupilumab",
		Treatment2:  "placebo",
		MeasureName: "time to relapse",
		TimePoint:   "week 52",
		N1:          intPtr(200),
		N2:          intPtr(200),
		Notes:       "HR 0.69 (95% CI 0.49-0.98)",
		Page:        "8",
		Table:       "4",
	}
	res := Records(nil, []model.ComparativeRecord{row})
	assert.True(t, res.IsValid)

	got := res.Comparative[0]
	require.NotNil(t, got.TE)
	assert.InDelta(t, -0.3711, *got.TE, 1e-3)
	require.NotNil(t, got.SETE)
	assert.InDelta(t, 0.1769, *got.SETE, 1e-3)
}
