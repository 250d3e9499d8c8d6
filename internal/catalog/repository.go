package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sellerdesk/sellerdesk/internal/dedup"
)

// Repository persists products in PostgreSQL. The fingerprint column is kept
// in sync with the identifying fields so background scans can group without
// recomputing in SQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository over a pgx pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ErrConflict indicates a key collision on insert.
var ErrConflict = errors.New("catalog: conflicting record")

const productColumns = `id, name, description, category,
	purchase_price, market_price, sale_price, profit, profit_margin,
	sku, source_id, barcode, stock, tags, status, duplicate_of,
	created_at, updated_at`

// Get fetches one product by id.
func (r *Repository) Get(ctx context.Context, id string) (Product, error) {
	if r == nil || r.pool == nil {
		return Product{}, fmt.Errorf("catalog repo not initialised")
	}
	query := fmt.Sprintf(`SELECT %s FROM products WHERE id = $1`, productColumns)
	row := r.pool.QueryRow(ctx, query, id)
	return scanProduct(row)
}

// List returns products matching the filter, newest first.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Product, error) {
	if r == nil || r.pool == nil {
		return nil, fmt.Errorf("catalog repo not initialised")
	}

	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filter.Category != "" {
		where = append(where, "category = "+arg(filter.Category))
	}
	if filter.Status != "" {
		where = append(where, "status = "+arg(string(filter.Status)))
	}
	if filter.Search != "" {
		placeholder := arg("%" + filter.Search + "%")
		where = append(where, fmt.Sprintf("(name ILIKE %s OR description ILIKE %s)", placeholder, placeholder))
	}

	query := fmt.Sprintf(`SELECT %s FROM products`, productColumns)
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id"
	if filter.Limit > 0 {
		query += " LIMIT " + arg(filter.Limit)
	}
	if filter.Offset > 0 {
		query += " OFFSET " + arg(filter.Offset)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// Create inserts a product, assigning its id.
func (r *Repository) Create(ctx context.Context, p Product) (Product, error) {
	if r == nil || r.pool == nil {
		return Product{}, fmt.Errorf("catalog repo not initialised")
	}
	p.ID = uuid.NewString()

	const query = `INSERT INTO products (
		id, name, description, category,
		purchase_price, market_price, sale_price, profit, profit_margin,
		sku, source_id, barcode, stock, tags, status, duplicate_of,
		fingerprint, created_at, updated_at
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)`

	fingerprint := dedup.Fingerprint(dedup.Record{SKU: p.SKU, SourceID: p.SourceID, Name: p.Name})
	_, err := r.pool.Exec(ctx, query,
		p.ID, p.Name, p.Description, p.Category,
		p.PurchasePrice, p.MarketPrice, p.SalePrice, p.Profit, p.ProfitMargin,
		p.SKU, p.SourceID, p.Barcode, p.Stock, p.Tags, string(p.Status), nullable(p.DuplicateOf),
		fingerprint, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Product{}, fmt.Errorf("%w: %s", ErrConflict, pgErr.ConstraintName)
		}
		return Product{}, err
	}
	return p, nil
}

// Update applies the non-nil fields of input and returns the stored record.
// The fingerprint column is refreshed whenever an identifying field moves.
func (r *Repository) Update(ctx context.Context, id string, input UpdateInput) (Product, error) {
	if r == nil || r.pool == nil {
		return Product{}, fmt.Errorf("catalog repo not initialised")
	}
	if input.IsEmpty() {
		return r.Get(ctx, id)
	}

	var (
		sets []string
		args []any
	)
	set := func(column string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if input.Name != nil {
		set("name", *input.Name)
	}
	if input.Description != nil {
		set("description", *input.Description)
	}
	if input.Category != nil {
		set("category", *input.Category)
	}
	if input.PurchasePrice != nil {
		set("purchase_price", *input.PurchasePrice)
	}
	if input.MarketPrice != nil {
		set("market_price", *input.MarketPrice)
	}
	if input.SalePrice != nil {
		set("sale_price", *input.SalePrice)
	}
	if input.Profit != nil {
		set("profit", *input.Profit)
	}
	if input.ProfitMargin != nil {
		set("profit_margin", *input.ProfitMargin)
	}
	if input.SKU != nil {
		set("sku", *input.SKU)
	}
	if input.SourceID != nil {
		set("source_id", *input.SourceID)
	}
	if input.Barcode != nil {
		set("barcode", *input.Barcode)
	}
	if input.Stock != nil {
		set("stock", *input.Stock)
	}
	if input.Tags != nil {
		set("tags", input.Tags)
	}
	if input.Status != nil {
		set("status", string(*input.Status))
	}
	if input.DuplicateOf != nil {
		set("duplicate_of", nullable(*input.DuplicateOf))
	}
	if input.UpdatedAt != nil {
		set("updated_at", *input.UpdatedAt)
	}

	args = append(args, id)
	query := fmt.Sprintf(`UPDATE products SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(sets, ", "), len(args), productColumns)

	updated, err := scanProduct(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		return Product{}, err
	}

	if input.SKU != nil || input.SourceID != nil || input.Name != nil {
		fingerprint := dedup.Fingerprint(dedup.Record{SKU: updated.SKU, SourceID: updated.SourceID, Name: updated.Name})
		if _, err := r.pool.Exec(ctx, `UPDATE products SET fingerprint = $1 WHERE id = $2`, fingerprint, id); err != nil {
			return Product{}, err
		}
	}
	return updated, nil
}

// Delete removes the product.
func (r *Repository) Delete(ctx context.Context, id string) error {
	if r == nil || r.pool == nil {
		return fmt.Errorf("catalog repo not initialised")
	}
	tag, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (Product, error) {
	var (
		p           Product
		status      string
		duplicateOf *string
	)
	err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.Category,
		&p.PurchasePrice, &p.MarketPrice, &p.SalePrice, &p.Profit, &p.ProfitMargin,
		&p.SKU, &p.SourceID, &p.Barcode, &p.Stock, &p.Tags, &status, &duplicateOf,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, ErrNotFound
		}
		return Product{}, err
	}
	p.Status = Status(status)
	if duplicateOf != nil {
		p.DuplicateOf = *duplicateOf
	}
	return p, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
