// Package checkout opens gateway payment sessions from the resolved cart.
// The cart is read, never mutated: it only empties once payment is confirmed
// and the order is materialized.
package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/noah-isme/backend-storefront/internal/cart"
	"github.com/noah-isme/backend-storefront/internal/payment"
	"github.com/noah-isme/backend-storefront/internal/store"
)

// ErrEmptyCart is returned when checkout is attempted with no cart lines.
var ErrEmptyCart = errors.New("checkout: cart is empty")

// ErrInvalidLine is returned when a resolved line cannot be charged.
var ErrInvalidLine = errors.New("checkout: line not chargeable")

type userProvider interface {
	GetUserByID(ctx context.Context, id pgtype.UUID) (store.User, error)
}

type cartResolver interface {
	Resolve(ctx context.Context, userID string) (cart.View, error)
}

// Service orchestrates session creation against the payment gateway.
type Service struct {
	Carts      cartResolver
	Users      userProvider
	Provider   payment.Provider
	Currency   string
	SuccessURL string
	CancelURL  string
}

// Result is returned to the client to continue payment on the hosted page.
type Result struct {
	SessionID  string `json:"sessionId"`
	URL        string `json:"url"`
	TotalCents int64  `json:"totalCents"`
}

// CreateSession resolves the cart, prices it, and opens a gateway session.
func (s *Service) CreateSession(ctx context.Context, userID string) (Result, error) {
	view, err := s.Carts.Resolve(ctx, userID)
	if err != nil {
		return Result{}, fmt.Errorf("resolve cart: %w", err)
	}
	if len(view.Lines) == 0 {
		return Result{}, ErrEmptyCart
	}
	uid, err := cart.ToUUID(userID)
	if err != nil {
		return Result{}, fmt.Errorf("parse user id: %w", err)
	}
	user, err := s.Users.GetUserByID(ctx, uid)
	if err != nil {
		return Result{}, fmt.Errorf("load user: %w", err)
	}

	lines := make([]payment.SessionLine, 0, len(view.Lines))
	for _, ln := range view.Lines {
		if ln.UnitPriceCents <= 0 || ln.Qty <= 0 {
			return Result{}, fmt.Errorf("%w: product %s", ErrInvalidLine, ln.ProductID)
		}
		lines = append(lines, payment.SessionLine{
			Title:       ln.Title,
			Description: ln.Description,
			UnitAmount:  ln.UnitPriceCents,
			Qty:         ln.Qty,
		})
	}
	session, err := s.Provider.CreateSession(ctx, payment.SessionRequest{
		UserID:     userID,
		Email:      user.Email,
		Currency:   s.Currency,
		SuccessURL: s.SuccessURL,
		CancelURL:  s.CancelURL,
		Lines:      lines,
	})
	if err != nil {
		return Result{}, err
	}
	return Result{SessionID: session.ID, URL: session.URL, TotalCents: view.TotalCents}, nil
}
