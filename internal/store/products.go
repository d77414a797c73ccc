package store

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

// CreateProductParams captures the fields required to insert a product.
type CreateProductParams struct {
	Title       string
	Description string
	PriceCents  int64
	ImageURL    pgtype.Text
}

const createProduct = `
INSERT INTO products (title, description, price_cents, image_url)
VALUES ($1, $2, $3, $4)
RETURNING id, title, description, price_cents, image_url, created_at, updated_at
`

// CreateProduct inserts a new product row.
func (q *Queries) CreateProduct(ctx context.Context, arg CreateProductParams) (Product, error) {
	row := q.db.QueryRow(ctx, createProduct, arg.Title, arg.Description, arg.PriceCents, arg.ImageURL)
	var p Product
	err := row.Scan(&p.ID, &p.Title, &p.Description, &p.PriceCents, &p.ImageURL, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// UpdateProductParams captures the fields of a product update.
type UpdateProductParams struct {
	ID          pgtype.UUID
	Title       string
	Description string
	PriceCents  int64
	ImageURL    pgtype.Text
}

const updateProduct = `
UPDATE products
SET title = $2, description = $3, price_cents = $4, image_url = $5, updated_at = now()
WHERE id = $1
RETURNING id, title, description, price_cents, image_url, created_at, updated_at
`

// UpdateProduct overwrites the mutable fields of a product.
func (q *Queries) UpdateProduct(ctx context.Context, arg UpdateProductParams) (Product, error) {
	row := q.db.QueryRow(ctx, updateProduct, arg.ID, arg.Title, arg.Description, arg.PriceCents, arg.ImageURL)
	var p Product
	err := row.Scan(&p.ID, &p.Title, &p.Description, &p.PriceCents, &p.ImageURL, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

const deleteProduct = `DELETE FROM products WHERE id = $1`

// DeleteProduct removes a product. Existing order snapshots are unaffected.
func (q *Queries) DeleteProduct(ctx context.Context, id pgtype.UUID) error {
	_, err := q.db.Exec(ctx, deleteProduct, id)
	return err
}

const getProductByID = `
SELECT id, title, description, price_cents, image_url, created_at, updated_at
FROM products WHERE id = $1
`

// GetProductByID loads a product by primary key.
func (q *Queries) GetProductByID(ctx context.Context, id pgtype.UUID) (Product, error) {
	row := q.db.QueryRow(ctx, getProductByID, id)
	var p Product
	err := row.Scan(&p.ID, &p.Title, &p.Description, &p.PriceCents, &p.ImageURL, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// ListProductsParams bounds a paginated product listing.
type ListProductsParams struct {
	Limit  int32
	Offset int32
}

const listProducts = `
SELECT id, title, description, price_cents, image_url, created_at, updated_at
FROM products ORDER BY created_at DESC LIMIT $1 OFFSET $2
`

// ListProducts returns a page of products, newest first.
func (q *Queries) ListProducts(ctx context.Context, arg ListProductsParams) ([]Product, error) {
	rows, err := q.db.Query(ctx, listProducts, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Title, &p.Description, &p.PriceCents, &p.ImageURL, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

const countProducts = `SELECT count(*) FROM products`

// CountProducts returns the total number of products.
func (q *Queries) CountProducts(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, countProducts).Scan(&n)
	return n, err
}
