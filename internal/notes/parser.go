// Package notes mines numeric quantities out of free-text annotation strings
// left by the extraction collaborator ("12/409 patients", "HR 0.69 (95% CI
// 0.49-0.98)", "mean change: -30.5"). Parsing is best-effort: a pattern that
// does not match simply leaves its field unset.
package notes

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Extracted holds every quantity recognized in one annotation string. Only
// the first match per category is used; nil means the category was absent.
type Extracted struct {
	Percentage *float64 // "12.5%"
	Events     *int     // "12 events" / "3 deaths" / "7 cases"
	N          *int     // "n=409"
	Mean       *float64 // "mean: -30.5" / "change -2.1"
	SD         *float64 // "-30.5 ± 95.2" (suppressed when CI is mentioned)
	Rate       *float64 // "61% resolution" -> 0.61
	TE         *float64 // ln(estimate) from "HR 0.69 (95% CI 0.49-0.98)"
	SETE       *float64 // (ln(upper)-ln(lower))/3.92 from the same match
}

// IsEmpty reports whether nothing was recognized.
func (e Extracted) IsEmpty() bool {
	return e.Percentage == nil && e.Events == nil && e.N == nil &&
		e.Mean == nil && e.SD == nil && e.Rate == nil && e.TE == nil && e.SETE == nil
}

// extractor pairs one pattern category with the code that records its match.
// Adding a category is a table change, not a control-flow change.
type extractor struct {
	name  string
	re    *regexp.Regexp
	guard func(notes string) bool // optional; skip category when false
	apply func(m []string, out *Extracted)
}

// ciMention suppresses the mean±SD category: "0.69 ± 0.12" next to a CI
// mention is almost always an interval bound, not a standard deviation.
var ciMention = regexp.MustCompile(`(?i)\b(?:CI|confidence)\b`)

var extractors = []extractor{
	{
		name: "percentage",
		re:   regexp.MustCompile(`(-?\d+(?:\.\d+)?)\s*%`),
		apply: func(m []string, out *Extracted) {
			out.Percentage = parseFloat(m[1])
		},
	},
	{
		name: "events",
		re:   regexp.MustCompile(`(?i)\b(\d+)\s+(?:events?|deaths?|cases?)\b`),
		apply: func(m []string, out *Extracted) {
			out.Events = parseInt(m[1])
		},
	},
	{
		name: "n",
		re:   regexp.MustCompile(`(?i)\bn\s*[=:]\s*(\d+)`),
		apply: func(m []string, out *Extracted) {
			out.N = parseInt(m[1])
		},
	},
	{
		// Runs after the percentage and event-count categories so the more
		// specific fraction overrides both the numerator and denominator.
		name: "fraction",
		re:   regexp.MustCompile(`\b(\d+)\s*/\s*(\d+)\b`),
		apply: func(m []string, out *Extracted) {
			num, den := parseInt(m[1]), parseInt(m[2])
			if num == nil || den == nil || *den == 0 {
				return
			}
			out.Events = num
			out.N = den
		},
	},
	{
		name: "mean",
		re:   regexp.MustCompile(`(?i)\b(?:mean|change|difference)[:\s]*(-?\d+(?:\.\d+)?)`),
		apply: func(m []string, out *Extracted) {
			out.Mean = parseFloat(m[1])
		},
	},
	{
		name:  "mean_sd",
		re:    regexp.MustCompile(`(-?\d+(?:\.\d+)?)\s*±\s*(\d+(?:\.\d+)?)`),
		guard: func(notes string) bool { return !ciMention.MatchString(notes) },
		apply: func(m []string, out *Extracted) {
			mean, sd := parseFloat(m[1]), parseFloat(m[2])
			if mean == nil || sd == nil {
				return
			}
			out.Mean = mean
			out.SD = sd
		},
	},
	{
		name: "rate",
		re:   regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*%\s*(?:resolution|response|improvement)`),
		apply: func(m []string, out *Extracted) {
			if v := parseFloat(m[1]); v != nil {
				rate := *v / 100
				out.Rate = &rate
			}
		},
	},
	{
		name: "ratio_ci",
		re: regexp.MustCompile(
			`(?i)\b(?:HR|OR|RR)\s*[=:]?\s*(\d+(?:\.\d+)?)\s*\(?\s*(?:95\s*%?\s*CI)?[:\s,]*(\d+(?:\.\d+)?)\s*(?:[-–]|to)\s*(\d+(?:\.\d+)?)`),
		apply: func(m []string, out *Extracted) {
			est, lower, upper := parseFloat(m[1]), parseFloat(m[2]), parseFloat(m[3])
			if est == nil || lower == nil || upper == nil {
				return
			}
			// Log transforms require strictly positive bounds.
			if *est <= 0 || *lower <= 0 || *upper <= *lower {
				return
			}
			te := math.Log(*est)
			sete := (math.Log(*upper) - math.Log(*lower)) / 3.92
			out.TE = &te
			out.SETE = &sete
		},
	},
}

// Parse extracts recognized quantities from a free-text annotation. It never
// fails: malformed numbers are treated as absent and unmatched categories are
// simply omitted.
func Parse(annotation string) Extracted {
	var out Extracted
	if strings.TrimSpace(annotation) == "" {
		return out
	}
	for _, ex := range extractors {
		if ex.guard != nil && !ex.guard(annotation) {
			continue
		}
		m := ex.re.FindStringSubmatch(annotation)
		if m == nil {
			continue
		}
		ex.apply(m, &out)
	}
	return out
}

func parseInt(s string) *int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &v
}

func parseFloat(s string) *float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return nil
	}
	return &v
}
