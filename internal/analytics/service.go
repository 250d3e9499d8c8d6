package analytics

import (
	"context"
	"strconv"

	"golang.org/x/sync/singleflight"

	"github.com/sellerdesk/sellerdesk/internal/catalog"
)

// Lister is the slice of the product store analytics needs: a read-only
// snapshot of the collection.
type Lister interface {
	List(ctx context.Context, filter catalog.ListFilter) ([]catalog.Product, error)
}

// Service serves cached reporting views over the product collection. Builds
// for the same key are collapsed through singleflight so a cold cache does
// not stampede the store.
type Service struct {
	store Lister
	cache *Cache
	group singleflight.Group
}

// NewService wires the store snapshot source with the cache helper.
func NewService(store Lister, cache *Cache) *Service {
	return &Service{store: store, cache: cache}
}

// GetSummary returns collection-wide totals.
func (s *Service) GetSummary(ctx context.Context) (Summary, error) {
	var summary Summary
	err := s.fetch(ctx, "summary", &summary, func(products []catalog.Product) interface{} {
		return Summarize(products)
	})
	return summary, err
}

// GetCategoryBreakdown returns per-category stats.
func (s *Service) GetCategoryBreakdown(ctx context.Context) ([]CategoryStat, error) {
	var stats []CategoryStat
	err := s.fetch(ctx, "categories", &stats, func(products []catalog.Product) interface{} {
		return ByCategory(products)
	})
	return stats, err
}

// GetMarginDistribution returns the fixed-bucket margin histogram.
func (s *Service) GetMarginDistribution(ctx context.Context) ([]MarginBucket, error) {
	var buckets []MarginBucket
	err := s.fetch(ctx, "margins", &buckets, func(products []catalog.Product) interface{} {
		return MarginDistribution(products)
	})
	return buckets, err
}

// GetTopProfit returns the n most profitable products.
func (s *Service) GetTopProfit(ctx context.Context, n int) ([]catalog.Product, error) {
	var top []catalog.Product
	err := s.fetch(ctx, "top:"+strconv.Itoa(n), &top, func(products []catalog.Product) interface{} {
		return TopProfit(products, n)
	})
	return top, err
}

// GetLowStock returns products at or below the stock threshold.
func (s *Service) GetLowStock(ctx context.Context, threshold int) ([]catalog.Product, error) {
	var low []catalog.Product
	err := s.fetch(ctx, "lowstock:"+strconv.Itoa(threshold), &low, func(products []catalog.Product) interface{} {
		return LowStock(products, threshold)
	})
	return low, err
}

// Invalidate bumps the cache version after catalog mutations.
func (s *Service) Invalidate(ctx context.Context) error {
	return s.cache.Bump(ctx)
}

func (s *Service) fetch(ctx context.Context, view string, dest interface{}, reduce func([]catalog.Product) interface{}) error {
	key, err := s.cache.BuildKey(ctx, "catalog:analytics", view)
	if err != nil {
		return err
	}
	loader := func(ctx context.Context) (interface{}, error) {
		value, err, _ := s.group.Do(key, func() (interface{}, error) {
			products, err := s.store.List(ctx, catalog.ListFilter{})
			if err != nil {
				return nil, err
			}
			return reduce(products), nil
		})
		return value, err
	}
	return s.cache.FetchJSON(ctx, key, dest, loader)
}
