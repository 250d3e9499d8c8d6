// Package analytics reduces product collections into reporting summaries.
// The reducers are pure: no I/O, empty input yields zeroed results.
package analytics

import (
	"sort"

	"github.com/sellerdesk/sellerdesk/internal/catalog"
	"github.com/sellerdesk/sellerdesk/internal/pricing"
)

// Summary holds collection-wide totals.
type Summary struct {
	TotalProducts int     `json:"total_products"`
	TotalStock    int     `json:"total_stock"`
	TotalCost     float64 `json:"total_cost"`
	TotalRevenue  float64 `json:"total_revenue"`
	TotalProfit   float64 `json:"total_profit"`
	// AverageMargin covers only products with a positive purchase price.
	AverageMargin float64 `json:"average_margin"`
}

// CategoryStat aggregates one category.
type CategoryStat struct {
	Category    string  `json:"category"`
	Count       int     `json:"count"`
	Stock       int     `json:"stock"`
	TotalProfit float64 `json:"total_profit"`
}

// MarginBucket counts products whose cost-based margin falls in [Low, High).
// The last bucket is open-ended.
type MarginBucket struct {
	Label string  `json:"label"`
	Low   float64 `json:"low"`
	High  float64 `json:"high"`
	Count int     `json:"count"`
}

// Summarize computes collection totals. Missing numeric fields read as zero.
func Summarize(products []catalog.Product) Summary {
	s := Summary{TotalProducts: len(products)}
	marginSum := 0.0
	marginCount := 0
	for _, p := range products {
		s.TotalStock += p.Stock
		s.TotalCost += p.PurchasePrice
		s.TotalRevenue += p.SalePrice
		profit := p.SalePrice - p.PurchasePrice
		s.TotalProfit += profit
		if p.PurchasePrice > 0 {
			marginSum += pricing.CostMargin(profit, p.PurchasePrice)
			marginCount++
		}
	}
	if marginCount > 0 {
		s.AverageMargin = marginSum / float64(marginCount)
	}
	return s
}

// ByCategory groups products per category, descending by count. Products
// without a category fall under "uncategorized".
func ByCategory(products []catalog.Product) []CategoryStat {
	byName := make(map[string]*CategoryStat)
	for _, p := range products {
		category := p.Category
		if category == "" {
			category = "uncategorized"
		}
		stat, ok := byName[category]
		if !ok {
			stat = &CategoryStat{Category: category}
			byName[category] = stat
		}
		stat.Count++
		stat.Stock += p.Stock
		stat.TotalProfit += p.SalePrice - p.PurchasePrice
	}

	stats := make([]CategoryStat, 0, len(byName))
	for _, stat := range byName {
		stats = append(stats, *stat)
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Count != stats[j].Count {
			return stats[i].Count > stats[j].Count
		}
		return stats[i].Category < stats[j].Category
	})
	return stats
}

// marginBounds are the fixed histogram edges, percent of cost.
var marginBounds = []struct {
	label string
	low   float64
	high  float64
}{
	{"0-10%", 0, 10},
	{"10-20%", 10, 20},
	{"20-30%", 20, 30},
	{"30-50%", 30, 50},
	{"50%+", 50, -1},
}

// MarginDistribution buckets products by cost-based margin. Products without
// a positive purchase price have no margin and are excluded here, though
// they still count in Summarize totals. Negative margins land in the first
// bucket so every included product falls in exactly one.
func MarginDistribution(products []catalog.Product) []MarginBucket {
	buckets := make([]MarginBucket, len(marginBounds))
	for i, b := range marginBounds {
		buckets[i] = MarginBucket{Label: b.label, Low: b.low, High: b.high}
	}
	for _, p := range products {
		if p.PurchasePrice <= 0 {
			continue
		}
		margin := pricing.CostMargin(p.SalePrice-p.PurchasePrice, p.PurchasePrice)
		for i := range buckets {
			if margin < buckets[i].High || i == len(buckets)-1 {
				buckets[i].Count++
				break
			}
		}
	}
	return buckets
}

// TopProfit returns the n most profitable products, best first.
func TopProfit(products []catalog.Product, n int) []catalog.Product {
	return rankByProfit(products, n, true)
}

// BottomProfit returns the n least profitable products, worst first.
func BottomProfit(products []catalog.Product, n int) []catalog.Product {
	return rankByProfit(products, n, false)
}

func rankByProfit(products []catalog.Product, n int, descending bool) []catalog.Product {
	ranked := make([]catalog.Product, len(products))
	copy(ranked, products)
	sort.SliceStable(ranked, func(i, j int) bool {
		pi := ranked[i].SalePrice - ranked[i].PurchasePrice
		pj := ranked[j].SalePrice - ranked[j].PurchasePrice
		if descending {
			return pi > pj
		}
		return pi < pj
	})
	if n > 0 && n < len(ranked) {
		ranked = ranked[:n]
	}
	return ranked
}

// LowStock lists products at or below the threshold, emptiest first.
func LowStock(products []catalog.Product, threshold int) []catalog.Product {
	var low []catalog.Product
	for _, p := range products {
		if p.Stock <= threshold {
			low = append(low, p)
		}
	}
	sort.SliceStable(low, func(i, j int) bool { return low[i].Stock < low[j].Stock })
	return low
}
