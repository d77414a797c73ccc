package store

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const getCartByUser = `
SELECT id, user_id, created_at, updated_at FROM carts WHERE user_id = $1
`

// GetCartByUser loads the cart owned by the given user.
func (q *Queries) GetCartByUser(ctx context.Context, userID pgtype.UUID) (Cart, error) {
	row := q.db.QueryRow(ctx, getCartByUser, userID)
	var c Cart
	err := row.Scan(&c.ID, &c.UserID, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

const createCart = `
INSERT INTO carts (user_id) VALUES ($1)
RETURNING id, user_id, created_at, updated_at
`

// CreateCart creates the cart for a user. Each user owns at most one cart.
func (q *Queries) CreateCart(ctx context.Context, userID pgtype.UUID) (Cart, error) {
	row := q.db.QueryRow(ctx, createCart, userID)
	var c Cart
	err := row.Scan(&c.ID, &c.UserID, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

const touchCart = `UPDATE carts SET updated_at = now() WHERE id = $1`

// TouchCart bumps the cart's updated_at timestamp.
func (q *Queries) TouchCart(ctx context.Context, id pgtype.UUID) error {
	_, err := q.db.Exec(ctx, touchCart, id)
	return err
}

const listCartItems = `
SELECT id, cart_id, product_id, qty, position
FROM cart_items WHERE cart_id = $1 ORDER BY position ASC
`

// ListCartItems returns cart lines in insertion order.
func (q *Queries) ListCartItems(ctx context.Context, cartID pgtype.UUID) ([]CartItem, error) {
	rows, err := q.db.Query(ctx, listCartItems, cartID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []CartItem
	for rows.Next() {
		var it CartItem
		if err := rows.Scan(&it.ID, &it.CartID, &it.ProductID, &it.Qty, &it.Position); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// FindCartItemParams identifies a single cart line.
type FindCartItemParams struct {
	CartID    pgtype.UUID
	ProductID pgtype.UUID
}

const findCartItem = `
SELECT id, cart_id, product_id, qty, position
FROM cart_items WHERE cart_id = $1 AND product_id = $2
`

// FindCartItem loads the line for a product within a cart, if present.
func (q *Queries) FindCartItem(ctx context.Context, arg FindCartItemParams) (CartItem, error) {
	row := q.db.QueryRow(ctx, findCartItem, arg.CartID, arg.ProductID)
	var it CartItem
	err := row.Scan(&it.ID, &it.CartID, &it.ProductID, &it.Qty, &it.Position)
	return it, err
}

// CreateCartItemParams captures a new cart line.
type CreateCartItemParams struct {
	CartID    pgtype.UUID
	ProductID pgtype.UUID
	Qty       int32
}

const createCartItem = `
INSERT INTO cart_items (cart_id, product_id, qty, position)
VALUES ($1, $2, $3, (SELECT COALESCE(MAX(position), 0) + 1 FROM cart_items WHERE cart_id = $1))
RETURNING id, cart_id, product_id, qty, position
`

// CreateCartItem appends a line to the cart, preserving insertion order.
func (q *Queries) CreateCartItem(ctx context.Context, arg CreateCartItemParams) (CartItem, error) {
	row := q.db.QueryRow(ctx, createCartItem, arg.CartID, arg.ProductID, arg.Qty)
	var it CartItem
	err := row.Scan(&it.ID, &it.CartID, &it.ProductID, &it.Qty, &it.Position)
	return it, err
}

// UpdateCartItemQtyParams sets the quantity of an existing line.
type UpdateCartItemQtyParams struct {
	ID  pgtype.UUID
	Qty int32
}

const updateCartItemQty = `UPDATE cart_items SET qty = $2 WHERE id = $1`

// UpdateCartItemQty overwrites the quantity of a cart line.
func (q *Queries) UpdateCartItemQty(ctx context.Context, arg UpdateCartItemQtyParams) error {
	_, err := q.db.Exec(ctx, updateCartItemQty, arg.ID, arg.Qty)
	return err
}

// DeleteCartItemParams identifies the line to delete.
type DeleteCartItemParams struct {
	CartID    pgtype.UUID
	ProductID pgtype.UUID
}

const deleteCartItem = `DELETE FROM cart_items WHERE cart_id = $1 AND product_id = $2`

// DeleteCartItem removes the line for a product. Deleting an absent line is a no-op.
func (q *Queries) DeleteCartItem(ctx context.Context, arg DeleteCartItemParams) error {
	_, err := q.db.Exec(ctx, deleteCartItem, arg.CartID, arg.ProductID)
	return err
}

const clearCartItems = `DELETE FROM cart_items WHERE cart_id = $1`

// ClearCartItems empties the cart.
func (q *Queries) ClearCartItems(ctx context.Context, cartID pgtype.UUID) error {
	_, err := q.db.Exec(ctx, clearCartItems, cartID)
	return err
}
