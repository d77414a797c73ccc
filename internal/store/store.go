// Package store provides the hand-written pgx query layer shared by the
// domain services. Method signatures follow the params/row convention so
// services can depend on narrow Querier interfaces and tests can stub them.
package store

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// DBTX abstracts a pgx pool, connection, or transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Queries exposes all database operations.
type Queries struct {
	db DBTX
}

// New constructs Queries on top of the provided pool or connection.
func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// WithTx returns Queries bound to the provided transaction.
func (q *Queries) WithTx(tx pgx.Tx) *Queries {
	return &Queries{db: tx}
}

// User mirrors a row in the users table.
type User struct {
	ID           pgtype.UUID
	Name         string
	Email        string
	PasswordHash string
	Roles        []string
	CreatedAt    pgtype.Timestamptz
	UpdatedAt    pgtype.Timestamptz
}

// Product mirrors a row in the products table.
type Product struct {
	ID          pgtype.UUID
	Title       string
	Description string
	PriceCents  int64
	ImageURL    pgtype.Text
	CreatedAt   pgtype.Timestamptz
	UpdatedAt   pgtype.Timestamptz
}

// Cart mirrors a row in the carts table. One active cart per user.
type Cart struct {
	ID        pgtype.UUID
	UserID    pgtype.UUID
	CreatedAt pgtype.Timestamptz
	UpdatedAt pgtype.Timestamptz
}

// CartItem mirrors a row in the cart_items table.
type CartItem struct {
	ID        pgtype.UUID
	CartID    pgtype.UUID
	ProductID pgtype.UUID
	Qty       int32
	Position  int32
}

// Order mirrors a row in the orders table. Immutable after creation.
type Order struct {
	ID                pgtype.UUID
	UserID            pgtype.UUID
	UserEmail         string
	CheckoutSessionID string
	Currency          string
	TotalCents        int64
	Status            string
	CreatedAt         pgtype.Timestamptz
}

// OrderItem mirrors a row in the order_items table; product fields are a
// frozen snapshot taken at materialization time.
type OrderItem struct {
	ID             pgtype.UUID
	OrderID        pgtype.UUID
	ProductID      pgtype.UUID
	Title          string
	Description    string
	UnitPriceCents int64
	Qty            int32
	Position       int32
}

// DomainEvent mirrors a row in the domain_events table.
type DomainEvent struct {
	ID          pgtype.UUID
	Topic       string
	AggregateID pgtype.UUID
	Payload     []byte
	OccurredAt  pgtype.Timestamptz
}
