// Package qa rebuilds the quality report for a record set after human review.
// It reuses the validator's rules unchanged; since derivation only ever fills
// genuinely missing fields, a reviewer's edits are never overwritten. On top
// of the validator's errors and warnings it adds advisory info entries the
// review UI surfaces without blocking anything.
package qa

import (
	"fmt"

	"github.com/evidex/trialqa/internal/model"
	"github.com/evidex/trialqa/internal/validate"
)

// Build re-validates an already-edited record set and folds the outcome into
// a severity-tiered report. The returned ValidationResult carries the
// enhanced rows and audit entries for callers that persist them.
func Build(singleArm []model.SingleArmRecord, comparative []model.ComparativeRecord) (model.QAReport, model.ValidationResult) {
	res := validate.Records(singleArm, comparative)

	report := model.QAReport{
		Passed:            res.IsValid,
		Errors:            res.Errors,
		Warnings:          res.Warnings,
		Info:              infoNotices(res.SingleArm, res.Comparative),
		CompletenessScore: res.CompletenessScore,
	}
	return report, res
}

// infoNotices emits the purely advisory tier: reviewed-row flags and unset
// PICOTS classification.
func infoNotices(singleArm []model.SingleArmRecord, comparative []model.ComparativeRecord) []model.ValidationIssue {
	var info []model.ValidationIssue

	addInfo := func(idx int, id, field, msg string) {
		info = append(info, model.ValidationIssue{
			Severity: model.SeverityInfo,
			Field:    field,
			Message:  msg,
			RowIndex: idx,
			RowID:    id,
		})
	}

	for i := range singleArm {
		r := &singleArm[i]
		if r.Reviewed {
			addInfo(i, r.ID, "reviewed", "row was manually reviewed/edited")
		}
		if picotsUnset(r.Population, r.Intervention, r.Comparator, r.Outcome, r.Timing, r.Setting) {
			addInfo(i, r.ID, "picots", "PICOTS classification unspecified")
		}
		if r.Sensitivity {
			addInfo(i, r.ID, "sensitivity", "row is flagged for sensitivity analysis only")
		}
		if r.Exclude {
			addInfo(i, r.ID, "exclude", "row is marked excluded and will not enter analysis")
		}
	}
	for i := range comparative {
		r := &comparative[i]
		if r.Reviewed {
			addInfo(i, r.ID, "reviewed", "row was manually reviewed/edited")
		}
		if picotsUnset(r.Population, r.Intervention, r.Comparator, r.Outcome, r.Timing, r.Setting) {
			addInfo(i, r.ID, "picots", "PICOTS classification unspecified")
		}
		if r.Sensitivity {
			addInfo(i, r.ID, "sensitivity", "row is flagged for sensitivity analysis only")
		}
		if r.Exclude {
			addInfo(i, r.ID, "exclude", "row is marked excluded and will not enter analysis")
		}
	}
	return info
}

func picotsUnset(fields ...string) bool {
	for _, f := range fields {
		if f != "" {
			return false
		}
	}
	return true
}

// Summary renders a one-line report summary for logs and CLI output.
func Summary(r model.QAReport) string {
	status := "passed"
	if !r.Passed {
		status = "failed"
	}
	return fmt.Sprintf("%s: %d errors, %d warnings, %d info, completeness %d%%",
		status, len(r.Errors), len(r.Warnings), len(r.Info), r.CompletenessScore)
}
