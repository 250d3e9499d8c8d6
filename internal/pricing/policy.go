package pricing

import (
	"errors"
	"fmt"
)

// MarginBand holds per-category margin targets in percent of cost.
type MarginBand struct {
	Min     float64 `json:"min"`
	Optimal float64 `json:"optimal"`
	Max     float64 `json:"max"`
}

// Policy configures how recommended sale prices are derived.
// It is supplied by configuration, never persisted per product.
type Policy struct {
	// ProfitMarginPercent is the global optimal margin, percent of cost.
	ProfitMarginPercent float64 `json:"profit_margin_percent"`
	// MinAbsoluteProfit is the floor enforced on top of the margin price.
	MinAbsoluteProfit float64 `json:"min_absolute_profit"`
	// RoundingIncrement, when positive, makes prices end in that fraction
	// (0.99 produces charm prices).
	RoundingIncrement float64 `json:"rounding_increment"`
	// CategoryOverrides replaces the global margin for specific categories.
	CategoryOverrides map[string]MarginBand `json:"category_overrides,omitempty"`
}

// ErrInvalidPolicy indicates a malformed pricing policy.
var ErrInvalidPolicy = errors.New("pricing: invalid policy")

// maxMarginFraction caps the optimal margin so the margin-price division
// never approaches a zero denominator.
const maxMarginFraction = 0.95

// Validate rejects policies that cannot produce a meaningful price.
func (p Policy) Validate() error {
	if p.ProfitMarginPercent < 0 || p.ProfitMarginPercent >= 100 {
		return fmt.Errorf("%w: profit margin percent %.2f outside [0,100)", ErrInvalidPolicy, p.ProfitMarginPercent)
	}
	if p.MinAbsoluteProfit < 0 {
		return fmt.Errorf("%w: min absolute profit must be >= 0", ErrInvalidPolicy)
	}
	if p.RoundingIncrement < 0 || p.RoundingIncrement >= 1 {
		return fmt.Errorf("%w: rounding increment %.2f outside [0,1)", ErrInvalidPolicy, p.RoundingIncrement)
	}
	for category, band := range p.CategoryOverrides {
		if band.Optimal < 0 || band.Optimal >= 100 {
			return fmt.Errorf("%w: override for %q has optimal margin %.2f outside [0,100)", ErrInvalidPolicy, category, band.Optimal)
		}
		if band.Min > band.Optimal || band.Optimal > band.Max {
			return fmt.Errorf("%w: override for %q must satisfy min <= optimal <= max", ErrInvalidPolicy, category)
		}
	}
	return nil
}

// optimalFraction resolves the optimal margin for a category as a fraction,
// clamped so 1-fraction stays strictly positive.
func (p Policy) optimalFraction(category string) float64 {
	percent := p.ProfitMarginPercent
	if band, ok := p.CategoryOverrides[category]; ok && category != "" {
		percent = band.Optimal
	}
	fraction := percent / 100
	if fraction < 0 {
		return 0
	}
	if fraction > maxMarginFraction {
		return maxMarginFraction
	}
	return fraction
}

// DefaultPolicy returns the policy used when configuration supplies none.
func DefaultPolicy() Policy {
	return Policy{
		ProfitMarginPercent: 30,
		MinAbsoluteProfit:   5,
		RoundingIncrement:   0.99,
	}
}
