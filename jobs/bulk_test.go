package jobs

import (
	"context"
	"fmt"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"github.com/sellerdesk/sellerdesk/internal/catalog"
	"github.com/sellerdesk/sellerdesk/internal/classify"
	"github.com/sellerdesk/sellerdesk/internal/pricing"
)

type fakeStore struct {
	products map[string]catalog.Product
	order    []string
	nextID   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{products: make(map[string]catalog.Product)}
}

func (f *fakeStore) Get(ctx context.Context, id string) (catalog.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return catalog.Product{}, catalog.ErrNotFound
	}
	return p, nil
}

func (f *fakeStore) List(ctx context.Context, filter catalog.ListFilter) ([]catalog.Product, error) {
	out := make([]catalog.Product, 0, len(f.order))
	for _, id := range f.order {
		out = append(out, f.products[id])
	}
	return out, nil
}

func (f *fakeStore) Create(ctx context.Context, p catalog.Product) (catalog.Product, error) {
	f.nextID++
	p.ID = fmt.Sprintf("p%d", f.nextID)
	f.products[p.ID] = p
	f.order = append(f.order, p.ID)
	return p, nil
}

func (f *fakeStore) Update(ctx context.Context, id string, input catalog.UpdateInput) (catalog.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return catalog.Product{}, catalog.ErrNotFound
	}
	if input.Status != nil {
		p.Status = *input.Status
	}
	if input.SalePrice != nil {
		p.SalePrice = *input.SalePrice
	}
	if input.Profit != nil {
		p.Profit = *input.Profit
	}
	if input.ProfitMargin != nil {
		p.ProfitMargin = *input.ProfitMargin
	}
	if input.Tags != nil {
		p.Tags = input.Tags
	}
	f.products[id] = p
	return p, nil
}

func (f *fakeStore) Delete(ctx context.Context, id string) error {
	delete(f.products, id)
	return nil
}

func newTestBulkJob(t *testing.T, store catalog.Store) *BulkJob {
	t.Helper()
	calc := pricing.NewCalculator(pricing.Policy{ProfitMarginPercent: 30})
	svc := catalog.NewService(nil, store, calc, classify.New(classify.DefaultTable()))
	return NewBulkJob(svc, nil, nil, nil)
}

func TestHandleRepriceProcessesWholeCatalogOnEmptyIDs(t *testing.T) {
	store := newFakeStore()
	svc := catalog.NewService(nil, store, pricing.NewCalculator(pricing.Policy{ProfitMarginPercent: 30}), classify.New(classify.DefaultTable()))

	for i := 0; i < 3; i++ {
		_, err := svc.Create(context.Background(), catalog.CreateInput{
			Name:          fmt.Sprintf("Item %d", i),
			PurchasePrice: 70,
		})
		require.NoError(t, err)
	}

	job := NewBulkJob(svc, nil, nil, nil)
	task, err := NewBulkRepriceTask(BulkRepricePayload{})
	require.NoError(t, err)
	require.NoError(t, job.HandleReprice(context.Background(), task))

	products, err := store.List(context.Background(), catalog.ListFilter{})
	require.NoError(t, err)
	for _, p := range products {
		require.InDelta(t, 100, p.SalePrice, 0.01)
	}
}

func TestHandleStatusRejectsUnknownStatusWithoutRetry(t *testing.T) {
	job := newTestBulkJob(t, newFakeStore())

	task := asynq.NewTask(TaskBulkStatus, []byte(`{"ids":["p1"],"status":"shipped"}`))
	err := job.HandleStatus(context.Background(), task)
	require.ErrorIs(t, err, asynq.SkipRetry)
}

func TestHandleTagRejectsMalformedPayloadWithoutRetry(t *testing.T) {
	job := newTestBulkJob(t, newFakeStore())

	task := asynq.NewTask(TaskBulkTag, []byte(`{"ids":`))
	err := job.HandleTag(context.Background(), task)
	require.ErrorIs(t, err, asynq.SkipRetry)
}
