package catalog

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sellerdesk/sellerdesk/internal/classify"
	"github.com/sellerdesk/sellerdesk/internal/pricing"
	_ "github.com/sellerdesk/sellerdesk/testing"
)

type memoryStore struct {
	products map[string]Product
	order    []string
	nextID   int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{products: make(map[string]Product)}
}

func (m *memoryStore) Get(ctx context.Context, id string) (Product, error) {
	p, ok := m.products[id]
	if !ok {
		return Product{}, ErrNotFound
	}
	return p, nil
}

func (m *memoryStore) List(ctx context.Context, filter ListFilter) ([]Product, error) {
	var out []Product
	for _, id := range m.order {
		p := m.products[id]
		if filter.Category != "" && p.Category != filter.Category {
			continue
		}
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (m *memoryStore) Create(ctx context.Context, p Product) (Product, error) {
	m.nextID++
	p.ID = fmt.Sprintf("p%d", m.nextID)
	m.products[p.ID] = p
	m.order = append(m.order, p.ID)
	return p, nil
}

func (m *memoryStore) Update(ctx context.Context, id string, input UpdateInput) (Product, error) {
	p, ok := m.products[id]
	if !ok {
		return Product{}, ErrNotFound
	}
	applyUpdate(&p, input)
	if input.Profit != nil {
		p.Profit = *input.Profit
	}
	if input.ProfitMargin != nil {
		p.ProfitMargin = *input.ProfitMargin
	}
	if input.SalePrice != nil {
		p.SalePrice = *input.SalePrice
	}
	if input.UpdatedAt != nil {
		p.UpdatedAt = *input.UpdatedAt
	}
	m.products[id] = p
	return p, nil
}

func (m *memoryStore) Delete(ctx context.Context, id string) error {
	if _, ok := m.products[id]; !ok {
		return ErrNotFound
	}
	delete(m.products, id)
	for i, other := range m.order {
		if other == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

func newTestService(store Store) *Service {
	calc := pricing.NewCalculator(pricing.Policy{ProfitMarginPercent: 30, MinAbsoluteProfit: 5})
	return NewService(nil, store, calc, classify.New(classify.DefaultTable()))
}

func TestCreateDerivesPricing(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store)

	p, err := svc.Create(context.Background(), CreateInput{
		Name:          "Wireless Mouse",
		Category:      "electronics",
		PurchasePrice: 100,
		MarketPrice:   150,
	})
	require.NoError(t, err)
	require.InDelta(t, 142.857, p.SalePrice, 0.01)
	require.InDelta(t, 42.857, p.Profit, 0.01)
	require.InDelta(t, 42.857, p.ProfitMargin, 0.01)
	require.Equal(t, StatusDraft, p.Status)
	require.False(t, p.CreatedAt.IsZero())
	require.Equal(t, p.CreatedAt, p.UpdatedAt)
}

func TestCreateClassifiesWhenCategoryAbsent(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store)

	p, err := svc.Create(context.Background(), CreateInput{
		Name:        "Moisturizing face cream",
		Description: "with vitamin C serum",
	})
	require.NoError(t, err)
	require.Equal(t, "skincare", p.Category)
}

func TestCreateKeepsHumanCategory(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store)

	p, err := svc.Create(context.Background(), CreateInput{
		Name:     "Moisturizing face cream",
		Category: "gifts",
	})
	require.NoError(t, err)
	require.Equal(t, "gifts", p.Category)
}

func TestCreateFlagsDuplicateAsPending(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store)
	ctx := context.Background()

	first, err := svc.Create(ctx, CreateInput{Name: "Widget", SKU: "A1"})
	require.NoError(t, err)
	require.Equal(t, StatusDraft, first.Status)

	second, err := svc.Create(ctx, CreateInput{Name: "Widget Pro", SKU: "A1", Status: StatusApproved})
	require.NoError(t, err)
	require.Equal(t, StatusPending, second.Status)
	require.Equal(t, first.ID, second.DuplicateOf)
}

func TestCreateValidation(t *testing.T) {
	svc := newTestService(newMemoryStore())
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{Name: "   "})
	require.ErrorIs(t, err, ErrNameRequired)

	_, err = svc.Create(ctx, CreateInput{Name: "x", PurchasePrice: -1})
	require.ErrorIs(t, err, ErrNegativePrice)

	_, err = svc.Create(ctx, CreateInput{Name: "x", Stock: -2})
	require.ErrorIs(t, err, ErrNegativeStock)

	_, err = svc.Create(ctx, CreateInput{Name: "x", Status: "shipped"})
	require.ErrorIs(t, err, ErrInvalidStatus)
}

func TestCreateSalePriceOverride(t *testing.T) {
	svc := newTestService(newMemoryStore())

	p, err := svc.Create(context.Background(), CreateInput{
		Name:          "Widget",
		PurchasePrice: 50,
		SalePrice:     99,
	})
	require.NoError(t, err)
	require.Equal(t, float64(99), p.SalePrice)
	require.Equal(t, float64(49), p.Profit)
	require.InDelta(t, 98, p.ProfitMargin, 0.0001)
}

func TestUpdateRecomputesPricingOnCostChange(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store)
	ctx := context.Background()

	p, err := svc.Create(ctx, CreateInput{Name: "Widget", PurchasePrice: 100, MarketPrice: 150})
	require.NoError(t, err)

	newCost := 120.0
	updated, err := svc.Update(ctx, p.ID, UpdateInput{PurchasePrice: &newCost})
	require.NoError(t, err)
	// 120/(1-0.30)=171.43 exceeds 110% of the 150 market, so it clamps to 105%.
	require.InDelta(t, 157.5, updated.SalePrice, 0.01)
	require.InDelta(t, updated.SalePrice-120, updated.Profit, 0.0001)
	require.True(t, updated.UpdatedAt.After(p.UpdatedAt) || updated.UpdatedAt.Equal(p.UpdatedAt))
}

func TestUpdateWithoutPriceChangeKeepsSalePrice(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store)
	ctx := context.Background()

	p, err := svc.Create(ctx, CreateInput{Name: "Widget", PurchasePrice: 100})
	require.NoError(t, err)

	name := "Widget Deluxe"
	updated, err := svc.Update(ctx, p.ID, UpdateInput{Name: &name})
	require.NoError(t, err)
	require.Equal(t, p.SalePrice, updated.SalePrice)
	require.Equal(t, "Widget Deluxe", updated.Name)
}

func TestUpdateEmptyInput(t *testing.T) {
	svc := newTestService(newMemoryStore())
	_, err := svc.Update(context.Background(), "p1", UpdateInput{})
	require.ErrorIs(t, err, ErrEmptyUpdate)
}

func TestRepriceUsesCurrentPolicy(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store)
	ctx := context.Background()

	p, err := svc.Create(ctx, CreateInput{Name: "Widget", PurchasePrice: 70, SalePrice: 80})
	require.NoError(t, err)
	require.Equal(t, float64(80), p.SalePrice)

	repriced, err := svc.Reprice(ctx, p.ID)
	require.NoError(t, err)
	require.InDelta(t, 100, repriced.SalePrice, 0.01)
	require.InDelta(t, 30, repriced.Profit, 0.01)
}

func TestSetStatus(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store)
	ctx := context.Background()

	p, err := svc.Create(ctx, CreateInput{Name: "Widget"})
	require.NoError(t, err)

	updated, err := svc.SetStatus(ctx, p.ID, StatusPublished)
	require.NoError(t, err)
	require.Equal(t, StatusPublished, updated.Status)

	_, err = svc.SetStatus(ctx, p.ID, "bogus")
	require.ErrorIs(t, err, ErrInvalidStatus)
}

func TestAddTagsMergesSet(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store)
	ctx := context.Background()

	p, err := svc.Create(ctx, CreateInput{Name: "Widget", Tags: []string{"Sale", "new"}})
	require.NoError(t, err)
	require.Equal(t, []string{"new", "sale"}, p.Tags)

	updated, err := svc.AddTags(ctx, p.ID, []string{"SALE", "featured"})
	require.NoError(t, err)
	require.Equal(t, []string{"featured", "new", "sale"}, updated.Tags)
}

func TestFlagDuplicates(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store)
	ctx := context.Background()

	// Seed records directly so the creation-time check does not interfere.
	now := time.Now()
	for _, p := range []Product{
		{Name: "Widget", SKU: "A1", Status: StatusDraft, CreatedAt: now, UpdatedAt: now},
		{Name: "Widget Pro", SKU: "A1", Status: StatusDraft, CreatedAt: now, UpdatedAt: now},
		{Name: "Lamp", Status: StatusDraft, CreatedAt: now, UpdatedAt: now},
	} {
		_, err := store.Create(ctx, p)
		require.NoError(t, err)
	}

	collisions, err := svc.FlagDuplicates(ctx)
	require.NoError(t, err)
	require.Len(t, collisions, 1)

	flagged, err := store.Get(ctx, collisions[0].DuplicateID)
	require.NoError(t, err)
	require.Equal(t, StatusPending, flagged.Status)
	require.Equal(t, collisions[0].OriginalID, flagged.DuplicateOf)
}
