package model

// Drug is one configured intervention, matched by generic or brand name.
type Drug struct {
	Name  string `json:"name" yaml:"name" mapstructure:"name"`
	Brand string `json:"brand,omitempty" yaml:"brand" mapstructure:"brand"`
}

// MatchCriteria is the project's PICOTS inclusion criteria used for
// document relevance scoring. A zero value means no criteria configured.
type MatchCriteria struct {
	Condition string   `json:"condition" yaml:"condition" mapstructure:"condition"`
	Synonyms  []string `json:"synonyms,omitempty" yaml:"synonyms" mapstructure:"synonyms"`
	Drugs     []Drug   `json:"drugs,omitempty" yaml:"drugs" mapstructure:"drugs"`
	Outcomes  []string `json:"outcomes,omitempty" yaml:"outcomes" mapstructure:"outcomes"`
	AgeMin    int      `json:"age_min,omitempty" yaml:"age_min" mapstructure:"age_min"`
	AgeMax    int      `json:"age_max,omitempty" yaml:"age_max" mapstructure:"age_max"`
	Severity  string   `json:"severity,omitempty" yaml:"severity" mapstructure:"severity"`
}

// IsZero reports whether no criteria are configured at all.
func (c MatchCriteria) IsZero() bool {
	return c.Condition == "" && len(c.Synonyms) == 0 && len(c.Drugs) == 0 &&
		len(c.Outcomes) == 0 && c.AgeMin == 0 && c.AgeMax == 0 && c.Severity == ""
}

// Relevance classifies a document's overall match against the criteria.
type Relevance string

const (
	RelevanceHigh     Relevance = "high"     // >= 0.7: proceed, no warnings
	RelevanceModerate Relevance = "moderate" // [0.4, 0.7): proceed with caveats
	RelevanceLow      Relevance = "low"      // [0.2, 0.4): require explicit confirmation
	RelevanceNone     Relevance = "none"     // < 0.2: block, suggest another document
)

// ComponentScores breaks the match score down per criteria dimension. Each
// component is capped by its weight so the sum stays in [0, 1].
type ComponentScores struct {
	Condition    float64 `json:"condition"`
	Intervention float64 `json:"intervention"`
	Outcome      float64 `json:"outcome"`
	Population   float64 `json:"population"`
}

// RelevanceResult is the scorer's verdict for one document.
// CriteriaConfigured distinguishes "document doesn't match" from "no criteria
// to match against"; gating policy on the latter belongs to the caller.
type RelevanceResult struct {
	IsRelevant         bool            `json:"is_relevant"`
	MatchScore         float64         `json:"match_score"`
	Classification     Relevance       `json:"classification"`
	CriteriaConfigured bool            `json:"criteria_configured"`
	Components         ComponentScores `json:"component_scores"`
	Warnings           []string        `json:"warnings,omitempty"`
	Suggestions        []string        `json:"suggestions,omitempty"`
	Mismatches         []string        `json:"mismatches,omitempty"`
}
