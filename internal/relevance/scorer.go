// Package relevance scores how well a document matches a project's PICOTS
// inclusion criteria. Four independent component scores (condition,
// intervention, outcome, population) are individually capped by their weight
// and summed, so the total match score always lands in [0, 1]. A decision
// tree on the total drives graduated, explainable warnings for the review UI.
package relevance

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/evidex/trialqa/internal/config"
	"github.com/evidex/trialqa/internal/model"
)

// Scorer computes document relevance against one project's criteria. It is
// stateless apart from its configuration and safe for concurrent use.
type Scorer struct {
	cfg      config.RelevanceConfig
	criteria model.MatchCriteria
}

// NewScorer creates a Scorer for the given criteria.
func NewScorer(cfg config.RelevanceConfig, criteria model.MatchCriteria) *Scorer {
	return &Scorer{cfg: cfg, criteria: criteria}
}

// DefaultConfig returns the standard weights and thresholds. The four
// component weights sum to 1.0.
func DefaultConfig() config.RelevanceConfig {
	return config.RelevanceConfig{
		ConditionWeight:    0.4,
		InterventionWeight: 0.3,
		OutcomeWeight:      0.15,
		PopulationWeight:   0.15,

		FilenameScore: 0.4,
		AbstractScore: 0.3,
		BodyScore:     0.1,
		AbstractChars: 500,

		PerDrugScore:    0.15,
		PerOutcomeScore: 0.05,

		AgeContainedScore:     0.08,
		AgeOverlapScore:       0.04,
		SeverityExactScore:    0.07,
		SeverityAdjacentScore: 0.03,

		HighThreshold:     0.7,
		ModerateThreshold: 0.4,
		LowThreshold:      0.2,

		MinCondition:    0.2,
		MinIntervention: 0.15,
	}
}

// ageRange matches "<int>-<int>" spans like "aged 18-65" while skipping the
// decimal fragments that confidence intervals produce ("0.49-0.98").
var ageRange = regexp.MustCompile(`(?:^|[^\d.])(\d{1,3})\s*[-–]\s*(\d{1,3})(?:[^\d.]|$)`)

// severityRank orders severity levels so "adjacent" has a defined meaning.
var severityRank = map[string]int{
	"mild":     0,
	"moderate": 1,
	"severe":   2,
}

// Score computes the relevance of one document, identified by its filename
// and full extracted text. When no criteria are configured at all, every
// component is zero and no warnings are emitted: absence of criteria is not a
// mismatch, and what to do about it is the caller's policy.
func (s *Scorer) Score(filename, text string) model.RelevanceResult {
	if s.criteria.IsZero() {
		return model.RelevanceResult{Classification: model.RelevanceNone}
	}

	name := strings.ToLower(filename)
	body := strings.ToLower(text)
	abstract := body
	if s.cfg.AbstractChars > 0 && len(body) > s.cfg.AbstractChars {
		abstract = body[:s.cfg.AbstractChars]
	}

	var details []string
	components := model.ComponentScores{}
	components.Condition = s.scoreCondition(name, abstract, body, &details)
	components.Intervention = s.scoreIntervention(name, body, &details)
	components.Outcome = s.scoreOutcome(body, &details)
	components.Population = s.scorePopulation(body, &details)

	total := components.Condition + components.Intervention + components.Outcome + components.Population

	res := model.RelevanceResult{
		MatchScore:         total,
		CriteriaConfigured: true,
		Components:         components,
	}

	switch {
	case total >= s.cfg.HighThreshold:
		res.Classification = model.RelevanceHigh
		res.IsRelevant = true
		return res
	case total >= s.cfg.ModerateThreshold:
		res.Classification = model.RelevanceModerate
		res.IsRelevant = true
	case total >= s.cfg.LowThreshold:
		res.Classification = model.RelevanceLow
	default:
		res.Classification = model.RelevanceNone
	}

	res.Warnings = append(res.Warnings, fmt.Sprintf(
		"document is a %d%% match with the project criteria", roundPct(total)))

	if components.Condition < s.cfg.MinCondition {
		res.Mismatches = append(res.Mismatches, fmt.Sprintf(
			"condition %q was not found in the document", s.criteria.Condition))
		res.Suggestions = append(res.Suggestions,
			"verify the document studies the configured condition or add synonyms to the criteria")
	}
	if len(s.criteria.Drugs) > 0 && components.Intervention < s.cfg.MinIntervention {
		res.Mismatches = append(res.Mismatches,
			"none of the configured interventions are mentioned in the document")
		res.Suggestions = append(res.Suggestions,
			"check that the document covers the configured drugs (generic or brand names)")
	}
	if res.Classification == model.RelevanceNone {
		res.Suggestions = append(res.Suggestions,
			"consider selecting a different document for this project")
	}

	res.Warnings = append(res.Warnings, details...)
	return res
}

// scoreCondition credits each condition term once at the strongest tier it
// matches: filename, then title/abstract (the leading slice of text), then
// anywhere in the body. The sum is capped at the condition weight.
func (s *Scorer) scoreCondition(name, abstract, body string, details *[]string) float64 {
	terms := append([]string{s.criteria.Condition}, s.criteria.Synonyms...)
	var score float64
	for _, term := range terms {
		t := strings.ToLower(strings.TrimSpace(term))
		if t == "" {
			continue
		}
		switch {
		case strings.Contains(name, t):
			score += s.cfg.FilenameScore
			*details = append(*details, fmt.Sprintf("condition term %q matched the filename", term))
		case strings.Contains(abstract, t):
			score += s.cfg.AbstractScore
			*details = append(*details, fmt.Sprintf("condition term %q matched the title/abstract", term))
		case strings.Contains(body, t):
			score += s.cfg.BodyScore
			*details = append(*details, fmt.Sprintf("condition term %q matched the document body", term))
		}
	}
	return math.Min(score, s.cfg.ConditionWeight)
}

// scoreIntervention credits each configured drug whose generic or brand name
// appears anywhere in the filename or body, capped at the intervention weight.
func (s *Scorer) scoreIntervention(name, body string, details *[]string) float64 {
	combined := name + " " + body
	var score float64
	for _, drug := range s.criteria.Drugs {
		term := matchedDrugTerm(drug, combined)
		if term == "" {
			continue
		}
		score += s.cfg.PerDrugScore
		*details = append(*details, fmt.Sprintf("intervention %q is mentioned", term))
	}
	return math.Min(score, s.cfg.InterventionWeight)
}

func matchedDrugTerm(drug model.Drug, text string) string {
	if n := strings.ToLower(strings.TrimSpace(drug.Name)); n != "" && strings.Contains(text, n) {
		return drug.Name
	}
	if b := strings.ToLower(strings.TrimSpace(drug.Brand)); b != "" && strings.Contains(text, b) {
		return drug.Brand
	}
	return ""
}

// scoreOutcome counts configured outcome names appearing in the body.
func (s *Scorer) scoreOutcome(body string, details *[]string) float64 {
	var matches int
	for _, outcome := range s.criteria.Outcomes {
		o := strings.ToLower(strings.TrimSpace(outcome))
		if o == "" || !strings.Contains(body, o) {
			continue
		}
		matches++
		*details = append(*details, fmt.Sprintf("outcome %q is mentioned", outcome))
	}
	return math.Min(float64(matches)*s.cfg.PerOutcomeScore, s.cfg.OutcomeWeight)
}

// scorePopulation awards partial credit for age-range fit and severity fit.
// The first plausible "<int>-<int>" span in the body is read as the study's
// age range; full containment in the criteria range beats mere overlap.
func (s *Scorer) scorePopulation(body string, details *[]string) float64 {
	var score float64

	if s.criteria.AgeMax > 0 {
		if lo, hi, ok := extractAgeRange(body); ok {
			switch {
			case lo >= s.criteria.AgeMin && hi <= s.criteria.AgeMax:
				score += s.cfg.AgeContainedScore
				*details = append(*details, fmt.Sprintf(
					"study age range %d-%d is within the criteria range %d-%d",
					lo, hi, s.criteria.AgeMin, s.criteria.AgeMax))
			case lo <= s.criteria.AgeMax && hi >= s.criteria.AgeMin:
				score += s.cfg.AgeOverlapScore
				*details = append(*details, fmt.Sprintf(
					"study age range %d-%d only overlaps the criteria range %d-%d",
					lo, hi, s.criteria.AgeMin, s.criteria.AgeMax))
			}
		}
	}

	if want, ok := severityRank[strings.ToLower(s.criteria.Severity)]; ok {
		if got, level := detectSeverity(body, want); got >= 0 {
			switch got {
			case 0:
				score += s.cfg.SeverityExactScore
				*details = append(*details, fmt.Sprintf("severity %q matches the criteria", level))
			case 1:
				score += s.cfg.SeverityAdjacentScore
				*details = append(*details, fmt.Sprintf(
					"severity %q is adjacent to the criteria severity %q", level, s.criteria.Severity))
			}
		}
	}

	return math.Min(score, s.cfg.PopulationWeight)
}

// extractAgeRange returns the first "<int>-<int>" span with lo <= hi and a
// plausible upper bound for a human age.
func extractAgeRange(body string) (lo, hi int, ok bool) {
	for _, m := range ageRange.FindAllStringSubmatch(body, -1) {
		var l, h int
		if _, err := fmt.Sscanf(m[1], "%d", &l); err != nil {
			continue
		}
		if _, err := fmt.Sscanf(m[2], "%d", &h); err != nil {
			continue
		}
		if l <= h && h <= 120 {
			return l, h, true
		}
	}
	return 0, 0, false
}

// detectSeverity returns the smallest ordinal distance between the criteria
// severity and any severity level mentioned in the body, along with the level
// that achieved it. Returns -1 when no level is mentioned.
func detectSeverity(body string, want int) (distance int, level string) {
	best := -1
	for name, rank := range severityRank {
		if !strings.Contains(body, name) {
			continue
		}
		d := rank - want
		if d < 0 {
			d = -d
		}
		if best == -1 || d < best {
			best = d
			level = name
		}
	}
	return best, level
}

func roundPct(score float64) int {
	return int(math.Round(score * 100))
}
