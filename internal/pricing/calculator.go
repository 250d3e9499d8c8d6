// Package pricing derives recommended sale prices from cost and market data
// under a configurable margin policy.
package pricing

import "math"

// Reason values attached to a Quote explaining how the price was chosen.
const (
	ReasonBalanced   = "balanced price"
	ReasonClampDown  = "adjusted down to stay competitive"
	ReasonRaiseRoom  = "room to raise price"
	ReasonMarginOnly = "margin-based price, no market data"
)

// Market reconciliation thresholds relative to the known market price.
const (
	marketCeiling = 1.10
	marketClampTo = 1.05
	marketFloor   = 0.80
	marketRaiseTo = 0.90
)

// Quote is the result of a price calculation. Margin is expressed against
// cost, matching the margin definition used on product records.
type Quote struct {
	RecommendedPrice float64 `json:"recommended_price"`
	Profit           float64 `json:"profit"`
	ProfitMargin     float64 `json:"profit_margin"`
	Confidence       float64 `json:"confidence"`
	Reason           string  `json:"reason"`
}

// Calculator computes price quotes under a fixed policy. It holds no other
// state; Calculate is a pure function of its inputs.
type Calculator struct {
	policy Policy
}

// NewCalculator builds a Calculator for the given policy.
func NewCalculator(policy Policy) *Calculator {
	return &Calculator{policy: policy}
}

// Policy returns the policy the calculator was built with.
func (c *Calculator) Policy() Policy {
	return c.policy
}

// Calculate produces a recommended sale price for a product with the given
// purchase cost and observed market price. A zero or negative market price
// means the market is unknown and only the margin rule applies. Negative
// inputs are clamped to zero rather than rejected.
func (c *Calculator) Calculate(purchasePrice, marketPrice float64, category string) Quote {
	purchasePrice = math.Max(0, purchasePrice)
	marketPrice = math.Max(0, marketPrice)

	fraction := c.policy.optimalFraction(category)
	price := purchasePrice / (1 - fraction)
	if price-purchasePrice < c.policy.MinAbsoluteProfit {
		price = purchasePrice + c.policy.MinAbsoluteProfit
	}

	confidence := 0.7
	reason := ReasonMarginOnly
	if marketPrice > 0 {
		switch {
		case price > marketPrice*marketCeiling:
			price = marketPrice * marketClampTo
			confidence = 0.6
			reason = ReasonClampDown
		case price < marketPrice*marketFloor:
			price = marketPrice * marketRaiseTo
			confidence = 0.9
			reason = ReasonRaiseRoom
		default:
			confidence = 0.85
			reason = ReasonBalanced
		}
		// Market reconciliation must not undercut the profit floor.
		if price-purchasePrice < c.policy.MinAbsoluteProfit {
			price = purchasePrice + c.policy.MinAbsoluteProfit
		}
	}

	if c.policy.RoundingIncrement > 0 {
		price = math.Floor(price) + c.policy.RoundingIncrement
	}

	profit := price - purchasePrice
	return Quote{
		RecommendedPrice: price,
		Profit:           profit,
		ProfitMargin:     CostMargin(profit, purchasePrice),
		Confidence:       confidence,
		Reason:           reason,
	}
}

// CostMargin expresses profit as a percentage of purchase cost. Products
// without a positive cost have no meaningful margin and report zero.
func CostMargin(profit, purchasePrice float64) float64 {
	if purchasePrice <= 0 {
		return 0
	}
	return profit / purchasePrice * 100
}
