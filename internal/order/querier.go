package order

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/noah-isme/backend-storefront/internal/store"
)

// Querier is the slice of the store used by the order service. WithTx binds
// the same query set to a transaction so materialization is atomic.
type Querier interface {
	GetCartByUser(ctx context.Context, userID pgtype.UUID) (store.Cart, error)
	ListCartItems(ctx context.Context, cartID pgtype.UUID) ([]store.CartItem, error)
	ClearCartItems(ctx context.Context, cartID pgtype.UUID) error
	GetProductByID(ctx context.Context, id pgtype.UUID) (store.Product, error)
	GetUserByID(ctx context.Context, id pgtype.UUID) (store.User, error)
	CreateOrder(ctx context.Context, arg store.CreateOrderParams) (store.Order, error)
	CreateOrderItem(ctx context.Context, arg store.CreateOrderItemParams) error
	GetOrderBySession(ctx context.Context, sessionID string) (store.Order, error)
	GetOrderByIDForUser(ctx context.Context, arg store.GetOrderByIDForUserParams) (store.Order, error)
	ListOrdersForUser(ctx context.Context, arg store.ListOrdersForUserParams) ([]store.Order, error)
	CountOrdersForUser(ctx context.Context, userID pgtype.UUID) (int64, error)
	ListOrderItems(ctx context.Context, orderID pgtype.UUID) ([]store.OrderItem, error)
	InsertDomainEvent(ctx context.Context, arg store.InsertDomainEventParams) (store.DomainEvent, error)
	WithTx(tx pgx.Tx) Querier
}

// storeQuerier adapts *store.Queries to the Querier interface.
type storeQuerier struct {
	*store.Queries
}

// NewQuerier wraps the store query set for use by the order service.
func NewQuerier(q *store.Queries) Querier {
	return storeQuerier{Queries: q}
}

func (s storeQuerier) WithTx(tx pgx.Tx) Querier {
	return storeQuerier{Queries: s.Queries.WithTx(tx)}
}
