// Package effectsize computes log-scale treatment effect estimates and their
// standard errors. Every function is pure and returns nil (or ok=false) when
// the inputs are outside its domain; nothing here ever panics or logs.
package effectsize

import (
	"fmt"
	"math"
)

// Estimate is a computed treatment effect on the log scale. SETE is nil when
// the variance could not be derived from the available inputs. Formula is a
// human-readable description used for the calculation audit trail.
type Estimate struct {
	TE        float64  `json:"te"`
	SETE      *float64 `json:"se_te,omitempty"`
	Corrected bool     `json:"corrected,omitempty"`
	Formula   string   `json:"formula"`
}

// BinarySingleArm computes log-odds and its standard error from a single
// arm's event count. When the proportion is exactly 0 or 1 the usual log-odds
// is undefined, so a 0.5 continuity correction is applied and flagged.
// Returns nil when event is negative or exceeds n.
func BinarySingleArm(n, event int) *Estimate {
	if n <= 0 || event < 0 || event > n {
		return nil
	}

	p := float64(event) / float64(n)
	if p == 0 || p == 1 {
		corrected := 0.5 / float64(n)
		if p == 1 {
			corrected = (float64(n) - 0.5) / float64(n)
		}
		odds := corrected / (1 - corrected)
		sete := round4(math.Sqrt(1/(float64(event)+0.5) + 1/(float64(n-event)+0.5)))
		return &Estimate{
			TE:        round4(math.Log(odds)),
			SETE:      &sete,
			Corrected: true,
			Formula:   "log-odds: log(event/(n-event)) with 0.5 continuity correction",
		}
	}

	odds := p / (1 - p)
	sete := round4(math.Sqrt(1/float64(event) + 1/float64(n-event)))
	return &Estimate{
		TE:      round4(math.Log(odds)),
		SETE:    &sete,
		Formula: "log-odds: log(event/(n-event))",
	}
}

// BinaryComparative computes the log odds ratio between two arms. A 0.5
// continuity correction is added to all four cells when any cell count is
// zero or equals its arm size. Returns nil when either event count is
// negative or exceeds its n.
func BinaryComparative(n1, n2, event1, event2 int) *Estimate {
	if n1 <= 0 || n2 <= 0 {
		return nil
	}
	if event1 < 0 || event1 > n1 || event2 < 0 || event2 > n2 {
		return nil
	}

	e1, ne1 := float64(event1), float64(n1-event1)
	e2, ne2 := float64(event2), float64(n2-event2)

	corrected := e1 == 0 || ne1 == 0 || e2 == 0 || ne2 == 0
	if corrected {
		e1, ne1, e2, ne2 = e1+0.5, ne1+0.5, e2+0.5, ne2+0.5
	}

	logOR := math.Log((e1 / ne1) / (e2 / ne2))
	sete := round4(math.Sqrt(1/e1 + 1/ne1 + 1/e2 + 1/ne2))

	formula := "log-OR: log((event1/nonevent1)/(event2/nonevent2))"
	if corrected {
		formula += " with 0.5 continuity correction"
	}
	return &Estimate{
		TE:        round4(logOR),
		SETE:      &sete,
		Corrected: corrected,
		Formula:   formula,
	}
}

// ContinuousSingleArm treats a reported change from baseline as the effect
// itself. The standard error needs both sd and n; when either is missing the
// estimate carries a nil SETE rather than failing.
func ContinuousSingleArm(mean float64, sd *float64, n *int) *Estimate {
	est := &Estimate{
		TE:      round4(mean),
		Formula: "mean change from baseline",
	}
	if sd != nil && *sd >= 0 && n != nil && *n > 0 {
		sete := round4(*sd / math.Sqrt(float64(*n)))
		est.SETE = &sete
		est.Formula = "mean change from baseline, se = sd/sqrt(n)"
	}
	return est
}

// EventFromPercentage converts a reported percentage back into an event
// count. The second return is false when n is not positive or the percentage
// is outside [0, 100].
func EventFromPercentage(percentage float64, n int) (int, bool) {
	if n <= 0 || percentage < 0 || percentage > 100 {
		return 0, false
	}
	return int(math.Round(percentage / 100 * float64(n))), true
}

// PercentageFormula renders the derivation text recorded in the calculation
// notes when an event count is reconstructed from a percentage.
func PercentageFormula(percentage float64, n int) string {
	return fmt.Sprintf("event = round(%.4g%% × %d)", percentage, n)
}

// round4 rounds to 4 decimal places, the reporting convention for effect
// sizes throughout the pipeline.
func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

// Round4 exposes the reporting convention for values adopted from sources
// other than these calculators (e.g. a ratio parsed out of free text).
func Round4(v float64) float64 {
	return round4(v)
}
