package store

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

// CreateOrderParams captures a new order row. CheckoutSessionID carries a
// unique constraint so a retried payment callback cannot materialize twice.
type CreateOrderParams struct {
	UserID            pgtype.UUID
	UserEmail         string
	CheckoutSessionID string
	Currency          string
	TotalCents        int64
	Status            string
}

const createOrder = `
INSERT INTO orders (user_id, user_email, checkout_session_id, currency, total_cents, status)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, user_id, user_email, checkout_session_id, currency, total_cents, status, created_at
`

// CreateOrder inserts a new order row.
func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, createOrder,
		arg.UserID, arg.UserEmail, arg.CheckoutSessionID, arg.Currency, arg.TotalCents, arg.Status)
	var o Order
	err := row.Scan(&o.ID, &o.UserID, &o.UserEmail, &o.CheckoutSessionID, &o.Currency, &o.TotalCents, &o.Status, &o.CreatedAt)
	return o, err
}

const getOrderBySession = `
SELECT id, user_id, user_email, checkout_session_id, currency, total_cents, status, created_at
FROM orders WHERE checkout_session_id = $1
`

// GetOrderBySession loads the order materialized from a checkout session.
func (q *Queries) GetOrderBySession(ctx context.Context, sessionID string) (Order, error) {
	row := q.db.QueryRow(ctx, getOrderBySession, sessionID)
	var o Order
	err := row.Scan(&o.ID, &o.UserID, &o.UserEmail, &o.CheckoutSessionID, &o.Currency, &o.TotalCents, &o.Status, &o.CreatedAt)
	return o, err
}

// GetOrderByIDForUserParams scopes an order lookup to its owner.
type GetOrderByIDForUserParams struct {
	ID     pgtype.UUID
	UserID pgtype.UUID
}

const getOrderByIDForUser = `
SELECT id, user_id, user_email, checkout_session_id, currency, total_cents, status, created_at
FROM orders WHERE id = $1 AND user_id = $2
`

// GetOrderByIDForUser loads an order only when owned by the given user.
func (q *Queries) GetOrderByIDForUser(ctx context.Context, arg GetOrderByIDForUserParams) (Order, error) {
	row := q.db.QueryRow(ctx, getOrderByIDForUser, arg.ID, arg.UserID)
	var o Order
	err := row.Scan(&o.ID, &o.UserID, &o.UserEmail, &o.CheckoutSessionID, &o.Currency, &o.TotalCents, &o.Status, &o.CreatedAt)
	return o, err
}

// ListOrdersForUserParams bounds a paginated order listing.
type ListOrdersForUserParams struct {
	UserID pgtype.UUID
	Limit  int32
	Offset int32
}

const listOrdersForUser = `
SELECT id, user_id, user_email, checkout_session_id, currency, total_cents, status, created_at
FROM orders WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3
`

// ListOrdersForUser returns a page of the user's orders, newest first.
func (q *Queries) ListOrdersForUser(ctx context.Context, arg ListOrdersForUserParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrdersForUser, arg.UserID, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.UserID, &o.UserEmail, &o.CheckoutSessionID, &o.Currency, &o.TotalCents, &o.Status, &o.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, o)
	}
	return items, rows.Err()
}

const countOrdersForUser = `SELECT count(*) FROM orders WHERE user_id = $1`

// CountOrdersForUser returns the total number of orders owned by a user.
func (q *Queries) CountOrdersForUser(ctx context.Context, userID pgtype.UUID) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, countOrdersForUser, userID).Scan(&n)
	return n, err
}

// CreateOrderItemParams captures one frozen order line.
type CreateOrderItemParams struct {
	OrderID        pgtype.UUID
	ProductID      pgtype.UUID
	Title          string
	Description    string
	UnitPriceCents int64
	Qty            int32
	Position       int32
}

const createOrderItem = `
INSERT INTO order_items (order_id, product_id, title, description, unit_price_cents, qty, position)
VALUES ($1, $2, $3, $4, $5, $6, $7)
`

// CreateOrderItem inserts one order line with its product snapshot.
func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) error {
	_, err := q.db.Exec(ctx, createOrderItem,
		arg.OrderID, arg.ProductID, arg.Title, arg.Description, arg.UnitPriceCents, arg.Qty, arg.Position)
	return err
}

const listOrderItems = `
SELECT id, order_id, product_id, title, description, unit_price_cents, qty, position
FROM order_items WHERE order_id = $1 ORDER BY position ASC
`

// ListOrderItems returns order lines in their original cart order.
func (q *Queries) ListOrderItems(ctx context.Context, orderID pgtype.UUID) ([]OrderItem, error) {
	rows, err := q.db.Query(ctx, listOrderItems, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []OrderItem
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Title, &it.Description, &it.UnitPriceCents, &it.Qty, &it.Position); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}
