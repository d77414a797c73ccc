package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/noah-isme/backend-storefront/internal/pricing"
	"github.com/noah-isme/backend-storefront/internal/store"
)

// ErrNotFound indicates the requested product could not be located.
var ErrNotFound = errors.New("product not found")

// ErrInvalidInput is returned when the provided payload is invalid.
var ErrInvalidInput = errors.New("invalid input")

type queryProvider interface {
	GetCartByUser(ctx context.Context, userID pgtype.UUID) (store.Cart, error)
	CreateCart(ctx context.Context, userID pgtype.UUID) (store.Cart, error)
	TouchCart(ctx context.Context, id pgtype.UUID) error
	ListCartItems(ctx context.Context, cartID pgtype.UUID) ([]store.CartItem, error)
	FindCartItem(ctx context.Context, arg store.FindCartItemParams) (store.CartItem, error)
	CreateCartItem(ctx context.Context, arg store.CreateCartItemParams) (store.CartItem, error)
	UpdateCartItemQty(ctx context.Context, arg store.UpdateCartItemQtyParams) error
	DeleteCartItem(ctx context.Context, arg store.DeleteCartItemParams) error
	ClearCartItems(ctx context.Context, cartID pgtype.UUID) error
	GetProductByID(ctx context.Context, id pgtype.UUID) (store.Product, error)
}

// Service encapsulates cart domain operations. Each user owns exactly one
// cart, created lazily on first use.
type Service struct {
	Q queryProvider
}

// Line is one resolved cart line priced against the live catalog.
type Line struct {
	ProductID      string `json:"productId"`
	Title          string `json:"title"`
	Description    string `json:"description"`
	UnitPriceCents int64  `json:"unitPriceCents"`
	Qty            int32  `json:"qty"`
	LineTotalCents int64  `json:"lineTotalCents"`
}

// View is the resolved cart: lines in insertion order plus the current total.
// Lines whose product no longer exists are dropped.
type View struct {
	CartID     string `json:"cartId"`
	Lines      []Line `json:"lines"`
	TotalCents int64  `json:"totalCents"`
}

// EnsureCart loads or creates the cart for the given user.
func (s *Service) EnsureCart(ctx context.Context, userID string) (store.Cart, error) {
	uid, err := toUUID(userID)
	if err != nil {
		return store.Cart{}, fmt.Errorf("parse user id: %w", err)
	}
	cart, err := s.Q.GetCartByUser(ctx, uid)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return s.Q.CreateCart(ctx, uid)
		}
		return store.Cart{}, err
	}
	return cart, nil
}

// AddLine inserts or increments the line for a product. Adding a product
// that does not exist in the catalog is rejected with ErrNotFound.
func (s *Service) AddLine(ctx context.Context, userID, productID string, qty int32) error {
	if qty <= 0 {
		return fmt.Errorf("qty must be positive: %w", ErrInvalidInput)
	}
	pID, err := toUUID(productID)
	if err != nil {
		return fmt.Errorf("parse product id: %w", ErrInvalidInput)
	}
	if _, err := s.Q.GetProductByID(ctx, pID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	cart, err := s.EnsureCart(ctx, userID)
	if err != nil {
		return err
	}

	item, err := s.Q.FindCartItem(ctx, store.FindCartItemParams{CartID: cart.ID, ProductID: pID})
	if err == nil {
		if err := s.Q.UpdateCartItemQty(ctx, store.UpdateCartItemQtyParams{ID: item.ID, Qty: item.Qty + qty}); err != nil {
			return err
		}
		_ = s.Q.TouchCart(ctx, cart.ID)
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return err
	}
	if _, err := s.Q.CreateCartItem(ctx, store.CreateCartItemParams{CartID: cart.ID, ProductID: pID, Qty: qty}); err != nil {
		return err
	}
	_ = s.Q.TouchCart(ctx, cart.ID)
	return nil
}

// RemoveLine deletes the line for a product. Removing an absent line is a
// no-op so the call is safe to retry.
func (s *Service) RemoveLine(ctx context.Context, userID, productID string) error {
	pID, err := toUUID(productID)
	if err != nil {
		return fmt.Errorf("parse product id: %w", ErrInvalidInput)
	}
	cart, err := s.EnsureCart(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.Q.DeleteCartItem(ctx, store.DeleteCartItemParams{CartID: cart.ID, ProductID: pID}); err != nil {
		return err
	}
	_ = s.Q.TouchCart(ctx, cart.ID)
	return nil
}

// Clear empties the user's cart.
func (s *Service) Clear(ctx context.Context, userID string) error {
	cart, err := s.EnsureCart(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.Q.ClearCartItems(ctx, cart.ID); err != nil {
		return err
	}
	_ = s.Q.TouchCart(ctx, cart.ID)
	return nil
}

// Resolve joins cart lines against the live catalog and prices them. Lines
// whose product was deleted since they were added are silently dropped.
func (s *Service) Resolve(ctx context.Context, userID string) (View, error) {
	cart, err := s.EnsureCart(ctx, userID)
	if err != nil {
		return View{}, err
	}
	items, err := s.Q.ListCartItems(ctx, cart.ID)
	if err != nil {
		return View{}, err
	}
	view := View{CartID: uuidString(cart.ID), Lines: []Line{}}
	priceItems := make([]pricing.Item, 0, len(items))
	products := make([]store.Product, 0, len(items))
	for _, it := range items {
		product, err := s.Q.GetProductByID(ctx, it.ProductID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				continue
			}
			return View{}, err
		}
		priceItems = append(priceItems, pricing.Item{
			ProductID: uuidString(product.ID),
			Title:     product.Title,
			UnitPrice: product.PriceCents,
			Qty:       it.Qty,
		})
		products = append(products, product)
	}
	sum := pricing.Compute(priceItems)
	for i, ln := range sum.Lines {
		view.Lines = append(view.Lines, Line{
			ProductID:      ln.ProductID,
			Title:          ln.Title,
			Description:    products[i].Description,
			UnitPriceCents: ln.UnitPrice,
			Qty:            ln.Qty,
			LineTotalCents: ln.LineTotal,
		})
	}
	view.TotalCents = sum.Total
	return view, nil
}

// ToUUID converts a string representation of a UUID into pgtype.UUID.
func ToUUID(value string) (pgtype.UUID, error) {
	return toUUID(value)
}

// UUIDString converts a pgtype.UUID into a canonical string.
func UUIDString(id pgtype.UUID) string {
	return uuidString(id)
}

func toUUID(value string) (pgtype.UUID, error) {
	parsed, err := uuid.Parse(value)
	if err != nil {
		return pgtype.UUID{}, err
	}
	return pgtype.UUID{Bytes: parsed, Valid: true}, nil
}

func uuidString(id pgtype.UUID) string {
	if !id.Valid {
		return ""
	}
	return uuid.UUID(id.Bytes).String()
}
