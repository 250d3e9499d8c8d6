// Package catalog owns the product record model and the creation/mutation
// pipeline that ties classification, duplicate detection and pricing
// together in front of the product store.
package catalog

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"
)

// Status is the review lifecycle of a product record.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusPublished Status = "published"
	StatusArchived  Status = "archived"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusPending, StatusApproved, StatusPublished, StatusArchived:
		return true
	}
	return false
}

// Product is a catalog record. SalePrice, Profit and ProfitMargin are
// derived and always recomputed together; margin is expressed against cost.
type Product struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	Category      string    `json:"category"`
	PurchasePrice float64   `json:"purchase_price"`
	MarketPrice   float64   `json:"market_price"`
	SalePrice     float64   `json:"sale_price"`
	Profit        float64   `json:"profit"`
	ProfitMargin  float64   `json:"profit_margin"`
	SKU           string    `json:"sku,omitempty"`
	SourceID      string    `json:"source_id,omitempty"`
	Barcode       string    `json:"barcode,omitempty"`
	Stock         int       `json:"stock"`
	Tags          []string  `json:"tags,omitempty"`
	Status        Status    `json:"status"`
	DuplicateOf   string    `json:"duplicate_of,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ListFilter narrows List results. Zero values mean "no constraint".
type ListFilter struct {
	Category string
	Status   Status
	Search   string
	Limit    int
	Offset   int
}

// CreateInput is the caller-supplied portion of a new product.
type CreateInput struct {
	Name          string
	Description   string
	Category      string
	PurchasePrice float64
	MarketPrice   float64
	// SalePrice, when positive, is an explicit operator override; the
	// calculator is skipped and only the derived fields are filled in.
	SalePrice float64
	SKU       string
	SourceID  string
	Barcode   string
	Stock     int
	Tags      []string
	Status    Status
}

// UpdateInput is a partial update; nil fields stay untouched.
type UpdateInput struct {
	Name          *string
	Description   *string
	Category      *string
	PurchasePrice *float64
	MarketPrice   *float64
	SalePrice     *float64
	Profit        *float64
	ProfitMargin  *float64
	SKU           *string
	SourceID      *string
	Barcode       *string
	Stock         *int
	Tags          []string
	Status        *Status
	DuplicateOf   *string
	UpdatedAt     *time.Time
}

// IsEmpty reports whether the input changes nothing.
func (in UpdateInput) IsEmpty() bool {
	return in.Name == nil && in.Description == nil && in.Category == nil &&
		in.PurchasePrice == nil && in.MarketPrice == nil && in.SalePrice == nil &&
		in.Profit == nil && in.ProfitMargin == nil && in.SKU == nil &&
		in.SourceID == nil && in.Barcode == nil && in.Stock == nil &&
		in.Tags == nil && in.Status == nil && in.DuplicateOf == nil &&
		in.UpdatedAt == nil
}

// Store is the persistence port. Update applies only the non-nil fields of
// the input, never clobbering the rest of the record.
type Store interface {
	Get(ctx context.Context, id string) (Product, error)
	List(ctx context.Context, filter ListFilter) ([]Product, error)
	Create(ctx context.Context, p Product) (Product, error)
	Update(ctx context.Context, id string, input UpdateInput) (Product, error)
	Delete(ctx context.Context, id string) error
}

var (
	// ErrNotFound indicates the product does not exist in the store.
	ErrNotFound = errors.New("catalog: product not found")
	// ErrNameRequired indicates a create without a product name.
	ErrNameRequired = errors.New("catalog: product name is required")
	// ErrNegativePrice indicates a negative price on a write path.
	ErrNegativePrice = errors.New("catalog: price must be >= 0")
	// ErrNegativeStock indicates a negative stock quantity.
	ErrNegativeStock = errors.New("catalog: stock must be >= 0")
	// ErrInvalidStatus indicates an unknown status value.
	ErrInvalidStatus = errors.New("catalog: invalid status")
	// ErrEmptyUpdate indicates a partial update that changes nothing.
	ErrEmptyUpdate = errors.New("catalog: update carries no fields")
)

// normalize trims free text and canonicalizes the tag set. It fills the
// default status but never touches derived pricing fields; those belong to
// the service pipeline.
func normalize(p *Product) {
	p.Name = strings.TrimSpace(p.Name)
	p.Description = strings.TrimSpace(p.Description)
	p.Category = strings.TrimSpace(p.Category)
	p.SKU = strings.TrimSpace(p.SKU)
	p.SourceID = strings.TrimSpace(p.SourceID)
	p.Barcode = strings.TrimSpace(p.Barcode)
	p.Tags = normalizeTags(p.Tags)
	if p.Status == "" {
		p.Status = StatusDraft
	}
}

// normalizeTags lowercases, deduplicates and sorts tags; insertion order is
// irrelevant for a tag set.
func normalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag != "" {
			set[tag] = struct{}{}
		}
	}
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for tag := range set {
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}
