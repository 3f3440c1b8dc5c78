package model

import "time"

// SingleArmRecord holds one treatment arm's outcome at one timepoint, as
// produced by the upstream extraction collaborator. Optional numeric columns
// are pointers: nil means the extractor did not report a value, which is a
// different state from zero.
type SingleArmRecord struct {
	ID          string `json:"id,omitempty"`
	Study       string `json:"study"`
	Treatment   string `json:"treatment"`
	MeasureName string `json:"measure_name"`
	TimePoint   string `json:"time_point,omitempty"`

	N     *int     `json:"n,omitempty"`
	Event *int     `json:"event,omitempty"`
	Time  *float64 `json:"time,omitempty"`
	Mean  *float64 `json:"mean,omitempty"`
	SD    *float64 `json:"sd,omitempty"`
	TE    *float64 `json:"te,omitempty"`    // log-scale treatment effect
	SETE  *float64 `json:"se_te,omitempty"` // standard error of TE

	// Provenance back to the source document.
	Page  string `json:"page,omitempty"`
	Table string `json:"table,omitempty"`
	Ref   string `json:"ref,omitempty"`

	// PICOTS classification.
	Population   string `json:"population,omitempty"`
	Intervention string `json:"intervention,omitempty"`
	Comparator   string `json:"comparator,omitempty"`
	Outcome      string `json:"outcome,omitempty"`
	Timing       string `json:"timing,omitempty"`
	Setting      string `json:"setting,omitempty"`

	// Review flags.
	Sensitivity bool `json:"sensitivity,omitempty"`
	Exclude     bool `json:"exclude,omitempty"`
	Reviewed    bool `json:"reviewed,omitempty"`

	Notes            string `json:"notes,omitempty"`
	CalculationNotes string `json:"calculation_notes,omitempty"`
}

// ComparativeRecord holds a head-to-head contrast between two treatment arms.
// Unlike a single-arm record, a comparative record is not analyzable without
// a usable variance, so a present TE with SETE <= 0 is always an error.
type ComparativeRecord struct {
	ID          string `json:"id,omitempty"`
	Study       string `json:"study"`
	Treatment1  string `json:"treatment1"`
	Treatment2  string `json:"treatment2"`
	MeasureName string `json:"measure_name"`
	TimePoint   string `json:"time_point,omitempty"`

	N1     *int     `json:"n1,omitempty"`
	N2     *int     `json:"n2,omitempty"`
	Event1 *int     `json:"event1,omitempty"`
	Event2 *int     `json:"event2,omitempty"`
	Time   *float64 `json:"time,omitempty"`
	TE     *float64 `json:"te,omitempty"`
	SETE   *float64 `json:"se_te,omitempty"`

	Page  string `json:"page,omitempty"`
	Table string `json:"table,omitempty"`
	Ref   string `json:"ref,omitempty"`

	Population   string `json:"population,omitempty"`
	Intervention string `json:"intervention,omitempty"`
	Comparator   string `json:"comparator,omitempty"`
	Outcome      string `json:"outcome,omitempty"`
	Timing       string `json:"timing,omitempty"`
	Setting      string `json:"setting,omitempty"`

	Sensitivity bool `json:"sensitivity,omitempty"`
	Exclude     bool `json:"exclude,omitempty"`
	Reviewed    bool `json:"reviewed,omitempty"`

	Notes            string `json:"notes,omitempty"`
	CalculationNotes string `json:"calculation_notes,omitempty"`
}

// RecordBatch groups the records extracted from one source document.
type RecordBatch struct {
	ID          string              `json:"id"`
	Document    string              `json:"document"`
	SingleArm   []SingleArmRecord   `json:"single_arm"`
	Comparative []ComparativeRecord `json:"comparative"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

// Enhancement records one gap-filled field for the audit trail. OldValue is
// always nil today (derivation never overwrites a present value) but is kept
// in the shape so the UI can render before/after uniformly.
type Enhancement struct {
	RowIndex    int    `json:"row_index"`
	RowID       string `json:"row_id,omitempty"`
	Field       string `json:"field"`
	OldValue    any    `json:"old_value"`
	NewValue    any    `json:"new_value"`
	Calculation string `json:"calculation"`
}
