// Package order materializes paid checkout sessions into durable orders and
// serves order history. An order freezes the cart's product data at purchase
// time so later catalog edits never rewrite it.
package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-storefront/internal/cart"
	"github.com/noah-isme/backend-storefront/internal/common"
	"github.com/noah-isme/backend-storefront/internal/events"
	"github.com/noah-isme/backend-storefront/internal/payment"
	"github.com/noah-isme/backend-storefront/internal/pricing"
	"github.com/noah-isme/backend-storefront/internal/store"
)

// StatusPaid is the status assigned to orders settled by a confirmed payment.
const StatusPaid = "paid"

// ErrNotFound indicates the requested order could not be located.
var ErrNotFound = errors.New("order not found")

const uniqueViolation = "23505"

// Service settles completed payment sessions and serves order reads.
type Service struct {
	Q    Querier
	Pool *pgxpool.Pool
	Bus  *events.Bus
	Log  zerolog.Logger
}

// Item is one frozen order line.
type Item struct {
	ProductID      string `json:"productId"`
	Title          string `json:"title"`
	Description    string `json:"description"`
	UnitPriceCents int64  `json:"unitPriceCents"`
	Qty            int32  `json:"qty"`
	LineTotalCents int64  `json:"lineTotalCents"`
}

// Order is the public order payload.
type Order struct {
	ID         string    `json:"id"`
	Status     string    `json:"status"`
	Currency   string    `json:"currency"`
	TotalCents int64     `json:"totalCents"`
	CreatedAt  time.Time `json:"createdAt"`
	Items      []Item    `json:"items,omitempty"`
}

// Settle materializes an order from a completed checkout session. Order row,
// order items, and cart clearing commit in one transaction. A session that
// was already settled returns without error: the unique session constraint
// makes retried webhooks converge on the single existing order.
func (s *Service) Settle(ctx context.Context, session payment.CompletedSession) error {
	uid, err := cart.ToUUID(session.UserID)
	if err != nil {
		return fmt.Errorf("parse user id: %w", err)
	}

	q := s.Q
	var tx pgx.Tx
	if s.Pool != nil {
		tx, err = s.Pool.BeginTx(ctx, pgx.TxOptions{})
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer func() { _ = tx.Rollback(ctx) }()
		q = s.Q.WithTx(tx)
	}

	ord, err := s.materialize(ctx, q, uid, session)
	if err != nil {
		if isUniqueViolation(err) {
			// Look up outside the aborted transaction.
			evt := s.Log.Info().Str("session_id", session.SessionID)
			if existing, lookupErr := s.Q.GetOrderBySession(ctx, session.SessionID); lookupErr == nil {
				evt = evt.Str("order_id", cart.UUIDString(existing.ID))
			}
			evt.Msg("session already settled")
			return nil
		}
		return err
	}

	if tx != nil {
		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}
	}

	if s.Bus != nil {
		payload, _ := json.Marshal(map[string]any{
			"orderId":    cart.UUIDString(ord.ID),
			"userId":     session.UserID,
			"sessionId":  session.SessionID,
			"totalCents": ord.TotalCents,
		})
		s.Bus.Notify(ctx, events.Event{Topic: events.TopicOrderCreated, AggregateID: ord.ID, Payload: payload})
	}
	s.Log.Info().
		Str("order_id", cart.UUIDString(ord.ID)).
		Str("session_id", session.SessionID).
		Int64("total_cents", ord.TotalCents).
		Msg("order materialized")
	return nil
}

func (s *Service) materialize(ctx context.Context, q Querier, uid pgtype.UUID, session payment.CompletedSession) (store.Order, error) {
	userCart, err := q.GetCartByUser(ctx, uid)
	if err != nil {
		return store.Order{}, fmt.Errorf("load cart: %w", err)
	}
	items, err := q.ListCartItems(ctx, userCart.ID)
	if err != nil {
		return store.Order{}, fmt.Errorf("list cart items: %w", err)
	}

	email := session.Email
	if email == "" {
		if user, err := q.GetUserByID(ctx, uid); err == nil {
			email = user.Email
		}
	}

	type snapshot struct {
		product store.Product
		qty     int32
	}
	snapshots := make([]snapshot, 0, len(items))
	priceItems := make([]pricing.Item, 0, len(items))
	for _, it := range items {
		product, err := q.GetProductByID(ctx, it.ProductID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				continue
			}
			return store.Order{}, fmt.Errorf("load product: %w", err)
		}
		snapshots = append(snapshots, snapshot{product: product, qty: it.Qty})
		priceItems = append(priceItems, pricing.Item{UnitPrice: product.PriceCents, Qty: it.Qty})
	}
	sum := pricing.Compute(priceItems)

	ord, err := q.CreateOrder(ctx, store.CreateOrderParams{
		UserID:            uid,
		UserEmail:         email,
		CheckoutSessionID: session.SessionID,
		Currency:          session.Currency,
		TotalCents:        sum.Total,
		Status:            StatusPaid,
	})
	if err != nil {
		return store.Order{}, err
	}
	for i, sn := range snapshots {
		if err := q.CreateOrderItem(ctx, store.CreateOrderItemParams{
			OrderID:        ord.ID,
			ProductID:      sn.product.ID,
			Title:          sn.product.Title,
			Description:    sn.product.Description,
			UnitPriceCents: sn.product.PriceCents,
			Qty:            sn.qty,
			Position:       int32(i + 1),
		}); err != nil {
			return store.Order{}, fmt.Errorf("create order item: %w", err)
		}
	}
	if err := q.ClearCartItems(ctx, userCart.ID); err != nil {
		return store.Order{}, fmt.Errorf("clear cart: %w", err)
	}

	payload, _ := json.Marshal(map[string]any{
		"orderId":    cart.UUIDString(ord.ID),
		"userId":     cart.UUIDString(uid),
		"sessionId":  session.SessionID,
		"totalCents": ord.TotalCents,
	})
	if s.Bus != nil {
		if err := s.Bus.Record(ctx, q, events.Event{
			Topic:       events.TopicOrderCreated,
			AggregateID: ord.ID,
			Payload:     payload,
		}); err != nil {
			return store.Order{}, fmt.Errorf("record event: %w", err)
		}
	}
	return ord, nil
}

// List returns a page of the user's orders, newest first, without items.
func (s *Service) List(ctx context.Context, userID string, p common.Pagination) ([]Order, int64, error) {
	uid, err := cart.ToUUID(userID)
	if err != nil {
		return nil, 0, fmt.Errorf("parse user id: %w", err)
	}
	total, err := s.Q.CountOrdersForUser(ctx, uid)
	if err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}
	rows, err := s.Q.ListOrdersForUser(ctx, store.ListOrdersForUserParams{
		UserID: uid,
		Limit:  int32(p.PerPage),
		Offset: int32((p.Page - 1) * p.PerPage),
	})
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	result := make([]Order, 0, len(rows))
	for _, row := range rows {
		result = append(result, toOrder(row, nil))
	}
	return result, total, nil
}

// Get returns one of the user's orders with its frozen items.
func (s *Service) Get(ctx context.Context, userID, orderID string) (Order, error) {
	uid, err := cart.ToUUID(userID)
	if err != nil {
		return Order{}, fmt.Errorf("parse user id: %w", err)
	}
	oid, err := cart.ToUUID(orderID)
	if err != nil {
		return Order{}, ErrNotFound
	}
	row, err := s.Q.GetOrderByIDForUser(ctx, store.GetOrderByIDForUserParams{ID: oid, UserID: uid})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, ErrNotFound
		}
		return Order{}, fmt.Errorf("get order: %w", err)
	}
	items, err := s.Q.ListOrderItems(ctx, row.ID)
	if err != nil {
		return Order{}, fmt.Errorf("list order items: %w", err)
	}
	return toOrder(row, items), nil
}

func toOrder(row store.Order, items []store.OrderItem) Order {
	o := Order{
		ID:         cart.UUIDString(row.ID),
		Status:     row.Status,
		Currency:   row.Currency,
		TotalCents: row.TotalCents,
		CreatedAt:  row.CreatedAt.Time,
	}
	for _, it := range items {
		o.Items = append(o.Items, Item{
			ProductID:      cart.UUIDString(it.ProductID),
			Title:          it.Title,
			Description:    it.Description,
			UnitPriceCents: it.UnitPriceCents,
			Qty:            it.Qty,
			LineTotalCents: it.UnitPriceCents * int64(it.Qty),
		})
	}
	return o
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
