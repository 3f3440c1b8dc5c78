package model

// Severity classifies a validation issue. Errors block acceptance, warnings
// allow acceptance with a visible caveat, info entries are purely advisory.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// ValidationIssue is a single finding against one row. RowIndex -1 marks a
// group-level issue that is not tied to a single row.
type ValidationIssue struct {
	Severity Severity `json:"severity"`
	Field    string   `json:"field"`
	Message  string   `json:"message"`
	RowIndex int      `json:"row_index"`
	RowID    string   `json:"row_id,omitempty"`
}

// ValidationResult is what the validator hands back for one batch: the
// non-destructively enhanced records plus everything found along the way.
type ValidationResult struct {
	SingleArm         []SingleArmRecord   `json:"single_arm"`
	Comparative       []ComparativeRecord `json:"comparative"`
	Errors            []ValidationIssue   `json:"errors"`
	Warnings          []ValidationIssue   `json:"warnings"`
	Enhancements      []Enhancement       `json:"enhancements"`
	IsValid           bool                `json:"is_valid"`
	CompletenessScore int                 `json:"completeness_score"`
}

// QAReport aggregates issues by severity for display. It is recomputed on
// demand and never the record of truth; the caller decides whether to store it.
type QAReport struct {
	Passed            bool              `json:"passed"`
	Errors            []ValidationIssue `json:"errors"`
	Warnings          []ValidationIssue `json:"warnings"`
	Info              []ValidationIssue `json:"info"`
	CompletenessScore int               `json:"completeness_score"`
}

// IssueCount returns the total number of issues across all severities.
func (r *QAReport) IssueCount() int {
	return len(r.Errors) + len(r.Warnings) + len(r.Info)
}
