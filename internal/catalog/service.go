package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sellerdesk/sellerdesk/internal/classify"
	"github.com/sellerdesk/sellerdesk/internal/dedup"
	"github.com/sellerdesk/sellerdesk/internal/pricing"
)

// Service runs the catalog pipeline: classify when the category is absent,
// check for duplicates against the store snapshot, derive pricing, persist.
type Service struct {
	logger     *slog.Logger
	store      Store
	calc       *pricing.Calculator
	classifier *classify.Classifier
	now        func() time.Time
}

// NewService wires the pipeline dependencies.
func NewService(logger *slog.Logger, store Store, calc *pricing.Calculator, classifier *classify.Classifier) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		logger:     logger,
		store:      store,
		calc:       calc,
		classifier: classifier,
		now:        time.Now,
	}
}

// Get fetches one product.
func (s *Service) Get(ctx context.Context, id string) (Product, error) {
	return s.store.Get(ctx, id)
}

// List returns products matching the filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Product, error) {
	return s.store.List(ctx, filter)
}

// Delete removes a product from the store.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.store.Delete(ctx, id)
}

// Create validates and persists a new product. A fingerprint collision does
// not reject the write: the record is stored with status pending and a
// back-reference to the original, overriding any caller-supplied status.
func (s *Service) Create(ctx context.Context, input CreateInput) (Product, error) {
	if err := validateCreate(input); err != nil {
		return Product{}, err
	}

	p := Product{
		Name:          input.Name,
		Description:   input.Description,
		Category:      input.Category,
		PurchasePrice: input.PurchasePrice,
		MarketPrice:   input.MarketPrice,
		SKU:           input.SKU,
		SourceID:      input.SourceID,
		Barcode:       input.Barcode,
		Stock:         input.Stock,
		Tags:          input.Tags,
		Status:        input.Status,
	}
	normalize(&p)

	// A category set by a human is never overwritten.
	if p.Category == "" && s.classifier != nil {
		result := s.classifier.ClassifyFields(p.Name, p.Description, p.Tags)
		p.Category = result.Category
	}

	existing, err := s.store.List(ctx, ListFilter{})
	if err != nil {
		return Product{}, fmt.Errorf("catalog: dedup snapshot: %w", err)
	}
	match := dedup.Check(dedupRecord(p), dedupRecords(existing))
	if match.IsDuplicate {
		p.Status = StatusPending
		p.DuplicateOf = match.MatchID
		s.logger.Info("duplicate detected at creation",
			slog.String("name", p.Name),
			slog.String("match_id", match.MatchID),
			slog.Float64("similarity", match.Similarity))
	}

	s.applyPricing(&p, input.SalePrice)

	now := s.now()
	p.CreatedAt = now
	p.UpdatedAt = now

	return s.store.Create(ctx, p)
}

// Update applies a partial mutation. When the purchase or market price
// changes the derived pricing fields are recomputed together; an explicit
// sale price in the same input wins over the calculator.
func (s *Service) Update(ctx context.Context, id string, input UpdateInput) (Product, error) {
	if input.IsEmpty() {
		return Product{}, ErrEmptyUpdate
	}
	if err := validateUpdate(input); err != nil {
		return Product{}, err
	}

	current, err := s.store.Get(ctx, id)
	if err != nil {
		return Product{}, err
	}

	next := current
	applyUpdate(&next, input)
	normalize(&next)

	priceChanged := next.PurchasePrice != current.PurchasePrice || next.MarketPrice != current.MarketPrice
	if input.SalePrice != nil {
		next.SalePrice = *input.SalePrice
	} else if priceChanged {
		quote := s.calc.Calculate(next.PurchasePrice, next.MarketPrice, next.Category)
		next.SalePrice = quote.RecommendedPrice
	}
	deriveProfit(&next)

	return s.persistFull(ctx, id, next)
}

// Reprice recomputes the derived pricing fields from the current policy.
func (s *Service) Reprice(ctx context.Context, id string) (Product, error) {
	current, err := s.store.Get(ctx, id)
	if err != nil {
		return Product{}, err
	}
	quote := s.calc.Calculate(current.PurchasePrice, current.MarketPrice, current.Category)

	next := current
	next.SalePrice = quote.RecommendedPrice
	deriveProfit(&next)
	return s.persistFull(ctx, id, next)
}

// SetStatus transitions a product to the given status.
func (s *Service) SetStatus(ctx context.Context, id string, status Status) (Product, error) {
	if !status.Valid() {
		return Product{}, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	now := s.now()
	return s.store.Update(ctx, id, UpdateInput{Status: &status, UpdatedAt: &now})
}

// AddTags merges tags into a product's tag set.
func (s *Service) AddTags(ctx context.Context, id string, tags []string) (Product, error) {
	current, err := s.store.Get(ctx, id)
	if err != nil {
		return Product{}, err
	}
	merged := normalizeTags(append(append([]string{}, current.Tags...), tags...))
	now := s.now()
	return s.store.Update(ctx, id, UpdateInput{Tags: merged, UpdatedAt: &now})
}

// ScanDuplicates walks the whole collection once and reports fingerprint
// collisions without mutating anything.
func (s *Service) ScanDuplicates(ctx context.Context) ([]dedup.Collision, error) {
	products, err := s.store.List(ctx, ListFilter{})
	if err != nil {
		return nil, err
	}
	return dedup.Scan(dedupRecords(products)), nil
}

// FlagDuplicates scans the collection and moves every later colliding record
// to pending with a back-reference to its original. Returns the collisions
// that were flagged.
func (s *Service) FlagDuplicates(ctx context.Context) ([]dedup.Collision, error) {
	collisions, err := s.ScanDuplicates(ctx)
	if err != nil {
		return nil, err
	}
	for _, c := range collisions {
		status := StatusPending
		now := s.now()
		input := UpdateInput{Status: &status, DuplicateOf: &c.OriginalID, UpdatedAt: &now}
		if _, err := s.store.Update(ctx, c.DuplicateID, input); err != nil {
			return collisions, fmt.Errorf("catalog: flag duplicate %s: %w", c.DuplicateID, err)
		}
	}
	return collisions, nil
}

// persistFull writes every mutable field of next, refreshing UpdatedAt.
func (s *Service) persistFull(ctx context.Context, id string, next Product) (Product, error) {
	now := s.now()
	input := UpdateInput{
		Name:          &next.Name,
		Description:   &next.Description,
		Category:      &next.Category,
		PurchasePrice: &next.PurchasePrice,
		MarketPrice:   &next.MarketPrice,
		SalePrice:     &next.SalePrice,
		Profit:        &next.Profit,
		ProfitMargin:  &next.ProfitMargin,
		SKU:           &next.SKU,
		SourceID:      &next.SourceID,
		Barcode:       &next.Barcode,
		Stock:         &next.Stock,
		Tags:          next.Tags,
		Status:        &next.Status,
		DuplicateOf:   &next.DuplicateOf,
		UpdatedAt:     &now,
	}
	return s.store.Update(ctx, id, input)
}

// applyPricing fills SalePrice/Profit/ProfitMargin on a new product. A
// positive override skips the calculator entirely.
func (s *Service) applyPricing(p *Product, overrideSalePrice float64) {
	if overrideSalePrice > 0 {
		p.SalePrice = overrideSalePrice
	} else if s.calc != nil {
		quote := s.calc.Calculate(p.PurchasePrice, p.MarketPrice, p.Category)
		p.SalePrice = quote.RecommendedPrice
	}
	deriveProfit(p)
}

// deriveProfit recomputes the two derived fields from SalePrice; they are
// never updated independently.
func deriveProfit(p *Product) {
	p.Profit = p.SalePrice - p.PurchasePrice
	p.ProfitMargin = pricing.CostMargin(p.Profit, p.PurchasePrice)
}

func applyUpdate(p *Product, in UpdateInput) {
	if in.Name != nil {
		p.Name = *in.Name
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
	if in.Category != nil {
		p.Category = *in.Category
	}
	if in.PurchasePrice != nil {
		p.PurchasePrice = *in.PurchasePrice
	}
	if in.MarketPrice != nil {
		p.MarketPrice = *in.MarketPrice
	}
	if in.SKU != nil {
		p.SKU = *in.SKU
	}
	if in.SourceID != nil {
		p.SourceID = *in.SourceID
	}
	if in.Barcode != nil {
		p.Barcode = *in.Barcode
	}
	if in.Stock != nil {
		p.Stock = *in.Stock
	}
	if in.Tags != nil {
		p.Tags = in.Tags
	}
	if in.Status != nil {
		p.Status = *in.Status
	}
	if in.DuplicateOf != nil {
		p.DuplicateOf = *in.DuplicateOf
	}
}

func validateCreate(input CreateInput) error {
	if strings.TrimSpace(input.Name) == "" {
		return ErrNameRequired
	}
	if input.PurchasePrice < 0 || input.MarketPrice < 0 || input.SalePrice < 0 {
		return ErrNegativePrice
	}
	if input.Stock < 0 {
		return ErrNegativeStock
	}
	if input.Status != "" && !input.Status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, input.Status)
	}
	return nil
}

func validateUpdate(input UpdateInput) error {
	if input.Name != nil && strings.TrimSpace(*input.Name) == "" {
		return ErrNameRequired
	}
	for _, price := range []*float64{input.PurchasePrice, input.MarketPrice, input.SalePrice} {
		if price != nil && *price < 0 {
			return ErrNegativePrice
		}
	}
	if input.Stock != nil && *input.Stock < 0 {
		return ErrNegativeStock
	}
	if input.Status != nil && !input.Status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, *input.Status)
	}
	return nil
}

func dedupRecord(p Product) dedup.Record {
	return dedup.Record{ID: p.ID, SKU: p.SKU, SourceID: p.SourceID, Name: p.Name}
}

func dedupRecords(products []Product) []dedup.Record {
	records := make([]dedup.Record, len(products))
	for i, p := range products {
		records[i] = dedupRecord(p)
	}
	return records
}
