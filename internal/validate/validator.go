// Package validate checks clinical-trial outcome records for completeness and
// internal consistency, filling numerically missing fields from free-text
// annotations and derived effect sizes along the way. Validation never fails:
// it always returns an enhanced copy of the input plus everything it found.
package validate

import (
	"fmt"
	"math"
	"strings"

	"github.com/evidex/trialqa/internal/effectsize"
	"github.com/evidex/trialqa/internal/model"
	"github.com/evidex/trialqa/internal/notes"
)

// rowPointsMax is the per-row denominator of the completeness score:
// treatment + measure + timepoint + sample size + outcome (2 for te, 1 for
// event/mean) + variance.
const rowPointsMax = 7

// Records validates one document's record batch. The returned result holds
// non-destructively enhanced copies of the input rows; the caller's slices
// are never mutated, so original raw values stay available for audit.
func Records(singleArm []model.SingleArmRecord, comparative []model.ComparativeRecord) model.ValidationResult {
	res := model.ValidationResult{
		SingleArm:   make([]model.SingleArmRecord, len(singleArm)),
		Comparative: make([]model.ComparativeRecord, len(comparative)),
	}
	copy(res.SingleArm, singleArm)
	copy(res.Comparative, comparative)

	c := &collector{}
	var points int

	for i := range res.SingleArm {
		points += validateSingleArm(i, &res.SingleArm[i], c)
	}
	checkComparatorCoverage(res.SingleArm, c)

	for i := range res.Comparative {
		points += validateComparative(i, &res.Comparative[i], c)
	}

	res.Errors = c.errors
	res.Warnings = c.warnings
	res.Enhancements = c.enhancements
	res.IsValid = len(c.errors) == 0
	res.CompletenessScore = completenessScore(points, len(res.SingleArm)+len(res.Comparative))
	return res
}

// collector accumulates issues and enhancement audit entries across rows.
type collector struct {
	errors       []model.ValidationIssue
	warnings     []model.ValidationIssue
	enhancements []model.Enhancement
}

func (c *collector) errorf(idx int, id, field, format string, args ...any) {
	c.errors = append(c.errors, model.ValidationIssue{
		Severity: model.SeverityError,
		Field:    field,
		Message:  fmt.Sprintf(format, args...),
		RowIndex: idx,
		RowID:    id,
	})
}

func (c *collector) warnf(idx int, id, field, format string, args ...any) {
	c.warnings = append(c.warnings, model.ValidationIssue{
		Severity: model.SeverityWarning,
		Field:    field,
		Message:  fmt.Sprintf(format, args...),
		RowIndex: idx,
		RowID:    id,
	})
}

func (c *collector) enhance(idx int, id, field string, newValue any, calculation string) {
	c.enhancements = append(c.enhancements, model.Enhancement{
		RowIndex:    idx,
		RowID:       id,
		Field:       field,
		OldValue:    nil,
		NewValue:    newValue,
		Calculation: calculation,
	})
}

// validateSingleArm runs the full per-row pipeline on one single-arm record
// and returns its completeness points.
func validateSingleArm(i int, r *model.SingleArmRecord, c *collector) int {
	// Required fields.
	if strings.TrimSpace(r.Study) == "" {
		c.errorf(i, r.ID, "study", "study identifier is required")
	}
	if strings.TrimSpace(r.Treatment) == "" {
		c.errorf(i, r.ID, "treatment", "treatment is required")
	}
	if strings.TrimSpace(r.MeasureName) == "" {
		c.errorf(i, r.ID, "measure_name", "measure name is required")
	}
	if r.N == nil {
		c.errorf(i, r.ID, "n", "sample size is required")
	}

	// Mine the free-text annotation for values the extractor left numeric
	// columns empty on. Derivation only ever fills gaps.
	parsed := notes.Parse(r.Notes)
	if r.N == nil && parsed.N != nil {
		r.N = parsed.N
		c.enhance(i, r.ID, "n", *parsed.N, `parsed sample size ("n=") from notes`)
	}
	if r.Event == nil && parsed.Events != nil {
		r.Event = parsed.Events
		c.enhance(i, r.ID, "event", *parsed.Events, "parsed event count from notes")
	}
	if r.Mean == nil && parsed.Mean != nil {
		r.Mean = parsed.Mean
		c.enhance(i, r.ID, "mean", *parsed.Mean, "parsed mean/change value from notes")
	}
	if r.SD == nil && parsed.SD != nil {
		r.SD = parsed.SD
		c.enhance(i, r.ID, "sd", *parsed.SD, "parsed standard deviation (mean ± sd) from notes")
	}

	// Reconstruct the event count from a reported percentage.
	if r.Event == nil && parsed.Percentage != nil && r.N != nil {
		if ev, ok := effectsize.EventFromPercentage(*parsed.Percentage, *r.N); ok {
			formula := effectsize.PercentageFormula(*parsed.Percentage, *r.N)
			r.Event = &ev
			r.CalculationNotes = appendNote(r.CalculationNotes, formula)
			c.enhance(i, r.ID, "event", ev, formula)
		}
	}

	// Adopt a ratio-with-CI parsed out of the notes before attempting any
	// derivation from counts.
	if r.TE == nil && parsed.TE != nil {
		const calc = "ratio with 95% CI from notes: te = ln(estimate), seTE = (ln(upper) - ln(lower))/3.92"
		te := effectsize.Round4(*parsed.TE)
		r.TE = &te
		c.enhance(i, r.ID, "te", te, calc)
		if r.SETE == nil && parsed.SETE != nil {
			sete := effectsize.Round4(*parsed.SETE)
			r.SETE = &sete
			c.enhance(i, r.ID, "se_te", sete, calc)
		}
		r.CalculationNotes = appendNote(r.CalculationNotes, calc)
	}

	// Derive the effect size from whatever outcome data the row has.
	if r.TE == nil {
		switch {
		case r.Event != nil && r.N != nil:
			if est := effectsize.BinarySingleArm(*r.N, *r.Event); est != nil {
				adoptEstimate(r, est)
				c.enhance(i, r.ID, "te", est.TE, est.Formula)
			}
		case r.Mean != nil:
			est := effectsize.ContinuousSingleArm(*r.Mean, r.SD, r.N)
			adoptEstimate(r, est)
			c.enhance(i, r.ID, "te", est.TE, est.Formula)
		}
	}

	// Consistency.
	if r.Event != nil && r.N != nil && *r.Event > *r.N {
		c.errorf(i, r.ID, "event", "event count %d exceeds sample size %d", *r.Event, *r.N)
	}
	if r.SD != nil && *r.SD < 0 {
		c.errorf(i, r.ID, "sd", "standard deviation is negative (%g)", *r.SD)
	}
	if r.SETE != nil && *r.SETE < 0 {
		c.errorf(i, r.ID, "se_te", "standard error is negative (%g)", *r.SETE)
	}

	// Completeness.
	if r.Page == "" {
		c.warnf(i, r.ID, "page", "missing page provenance; source tracking is lost")
	}
	if r.Table == "" {
		c.warnf(i, r.ID, "table", "missing table provenance; source tracking is lost")
	}
	if r.TimePoint == "" {
		c.warnf(i, r.ID, "time_point", "missing timepoint")
	}
	if r.Event == nil && r.Mean == nil && r.TE == nil {
		c.warnf(i, r.ID, "outcome", "row has no outcome data (event, mean, or te)")
	}
	if r.TE != nil && r.SETE == nil {
		c.warnf(i, r.ID, "se_te", "effect size present without a standard error")
	}

	return singleArmPoints(r)
}

// adoptEstimate fills te (and seTE if still missing) from a derived estimate
// and records the formula in the calculation notes.
func adoptEstimate(r *model.SingleArmRecord, est *effectsize.Estimate) {
	te := est.TE
	r.TE = &te
	if r.SETE == nil && est.SETE != nil {
		sete := *est.SETE
		r.SETE = &sete
	}
	r.CalculationNotes = appendNote(r.CalculationNotes, est.Formula)
}

// validateComparative runs the per-row pipeline on one comparative record.
// A comparative contrast without a usable variance cannot enter a network
// meta-analysis, so missing or non-positive seTE is an error, not a warning.
func validateComparative(i int, r *model.ComparativeRecord, c *collector) int {
	if strings.TrimSpace(r.Study) == "" {
		c.errorf(i, r.ID, "study", "study identifier is required")
	}
	if strings.TrimSpace(r.Treatment1) == "" {
		c.errorf(i, r.ID, "treatment1", "first treatment is required")
	}
	if strings.TrimSpace(r.Treatment2) == "" {
		c.errorf(i, r.ID, "treatment2", "second treatment is required")
	}
	if strings.TrimSpace(r.MeasureName) == "" {
		c.errorf(i, r.ID, "measure_name", "measure name is required")
	}
	if r.N1 == nil {
		c.errorf(i, r.ID, "n1", "sample size for arm 1 is required")
	}
	if r.N2 == nil {
		c.errorf(i, r.ID, "n2", "sample size for arm 2 is required")
	}

	// Arm attribution of a bare count in free text is ambiguous for a
	// two-arm contrast, so only the ratio-with-CI category is adopted here.
	parsed := notes.Parse(r.Notes)
	if r.TE == nil && parsed.TE != nil {
		const calc = "ratio with 95% CI from notes: te = ln(estimate), seTE = (ln(upper) - ln(lower))/3.92"
		te := effectsize.Round4(*parsed.TE)
		r.TE = &te
		c.enhance(i, r.ID, "te", te, calc)
		if r.SETE == nil && parsed.SETE != nil {
			sete := effectsize.Round4(*parsed.SETE)
			r.SETE = &sete
			c.enhance(i, r.ID, "se_te", sete, calc)
		}
		r.CalculationNotes = appendNote(r.CalculationNotes, calc)
	}

	if r.TE == nil && r.N1 != nil && r.N2 != nil && r.Event1 != nil && r.Event2 != nil {
		if est := effectsize.BinaryComparative(*r.N1, *r.N2, *r.Event1, *r.Event2); est != nil {
			te := est.TE
			r.TE = &te
			if r.SETE == nil && est.SETE != nil {
				sete := *est.SETE
				r.SETE = &sete
			}
			r.CalculationNotes = appendNote(r.CalculationNotes, est.Formula)
			c.enhance(i, r.ID, "te", est.TE, est.Formula)
		}
	}

	// Consistency.
	if r.Event1 != nil && r.N1 != nil && *r.Event1 > *r.N1 {
		c.errorf(i, r.ID, "event1", "event count %d exceeds sample size %d", *r.Event1, *r.N1)
	}
	if r.Event2 != nil && r.N2 != nil && *r.Event2 > *r.N2 {
		c.errorf(i, r.ID, "event2", "event count %d exceeds sample size %d", *r.Event2, *r.N2)
	}
	switch {
	case r.SETE == nil:
		c.errorf(i, r.ID, "se_te", "comparative record has no usable variance (seTE)")
	case *r.SETE <= 0:
		c.errorf(i, r.ID, "se_te", "comparative record has non-positive variance (seTE = %g)", *r.SETE)
	}
	if r.TE == nil {
		c.errorf(i, r.ID, "te", "comparative record has no treatment effect (te)")
	}

	// Completeness.
	if r.Page == "" {
		c.warnf(i, r.ID, "page", "missing page provenance; source tracking is lost")
	}
	if r.Table == "" {
		c.warnf(i, r.ID, "table", "missing table provenance; source tracking is lost")
	}
	if r.TimePoint == "" {
		c.warnf(i, r.ID, "time_point", "missing timepoint")
	}

	return comparativePoints(r)
}

// checkComparatorCoverage flags outcome/timepoint groups that contain only a
// single distinct treatment arm. This is a heuristic: genuinely single-arm
// outcomes exist, so the finding is a group-level warning (row index -1),
// never an error.
func checkComparatorCoverage(rows []model.SingleArmRecord, c *collector) {
	type group struct {
		treatments map[string]struct{}
	}
	groups := map[string]*group{}
	for i := range rows {
		r := &rows[i]
		if r.MeasureName == "" {
			continue
		}
		key := r.MeasureName + "|" + r.TimePoint
		g, ok := groups[key]
		if !ok {
			g = &group{treatments: map[string]struct{}{}}
			groups[key] = g
		}
		if t := strings.TrimSpace(r.Treatment); t != "" {
			g.treatments[t] = struct{}{}
		}
	}
	for key, g := range groups {
		if len(g.treatments) != 1 {
			continue
		}
		measure, timePoint, _ := strings.Cut(key, "|")
		var only string
		for t := range g.treatments {
			only = t
		}
		msg := fmt.Sprintf("outcome %q", measure)
		if timePoint != "" {
			msg += fmt.Sprintf(" at %q", timePoint)
		}
		c.warnf(-1, "", "treatment", "%s has a single treatment arm (%s); comparator arm may be missing", msg, only)
	}
}

func singleArmPoints(r *model.SingleArmRecord) int {
	pts := 0
	if strings.TrimSpace(r.Treatment) != "" {
		pts++
	}
	if strings.TrimSpace(r.MeasureName) != "" {
		pts++
	}
	if strings.TrimSpace(r.TimePoint) != "" {
		pts++
	}
	if r.N != nil {
		pts++
	}
	if r.TE != nil {
		pts += 2
	} else if r.Event != nil || r.Mean != nil {
		pts++
	}
	if r.SETE != nil || r.SD != nil {
		pts++
	}
	return pts
}

func comparativePoints(r *model.ComparativeRecord) int {
	pts := 0
	if strings.TrimSpace(r.Treatment1) != "" && strings.TrimSpace(r.Treatment2) != "" {
		pts++
	}
	if strings.TrimSpace(r.MeasureName) != "" {
		pts++
	}
	if strings.TrimSpace(r.TimePoint) != "" {
		pts++
	}
	if r.N1 != nil && r.N2 != nil {
		pts++
	}
	if r.TE != nil {
		pts += 2
	} else if r.Event1 != nil && r.Event2 != nil {
		pts++
	}
	if r.SETE != nil {
		pts++
	}
	return pts
}

// completenessScore averages per-row points over the batch and expresses the
// result on a 0-100 scale.
func completenessScore(points, rows int) int {
	if rows == 0 {
		return 0
	}
	return int(math.Round(100 * float64(points) / float64(rowPointsMax*rows)))
}

func appendNote(existing, note string) string {
	if existing == "" {
		return note
	}
	return existing + "; " + note
}
