package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/noah-isme/backend-storefront/internal/common"
	"github.com/noah-isme/backend-storefront/internal/store"
)

type queryProvider interface {
	ListProducts(ctx context.Context, arg store.ListProductsParams) ([]store.Product, error)
	CountProducts(ctx context.Context) (int64, error)
	GetProductByID(ctx context.Context, id pgtype.UUID) (store.Product, error)
	CreateProduct(ctx context.Context, arg store.CreateProductParams) (store.Product, error)
	UpdateProduct(ctx context.Context, arg store.UpdateProductParams) (store.Product, error)
	DeleteProduct(ctx context.Context, id pgtype.UUID) error
}

// Service orchestrates product queries, DTO assembly, and caching.
type Service struct {
	queries queryProvider
	cache   *Cache
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Queries queryProvider
	Cache   *Cache
}

// Product is the public product payload.
type Product struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	PriceCents  int64     `json:"priceCents"`
	ImageURL    *string   `json:"imageUrl,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ListResult contains list data and pagination metadata.
type ListResult struct {
	Items []Product
	Total int64
	Page  int
	Limit int
}

// ProductInput captures a create or update request body.
type ProductInput struct {
	Title       string  `json:"title" validate:"required,min=1,max=200"`
	Description string  `json:"description" validate:"max=5000"`
	PriceCents  int64   `json:"priceCents" validate:"gte=0"`
	ImageURL    *string `json:"imageUrl" validate:"omitempty,url"`
}

// NewService constructs a Service instance.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Queries == nil {
		return nil, errors.New("catalog: queries provider is required")
	}
	return &Service{queries: cfg.Queries, cache: cfg.Cache}, nil
}

// List returns a page of products, newest first. The first default page is
// served from cache when available.
func (s *Service) List(ctx context.Context, p common.Pagination) (ListResult, error) {
	key, cacheable := listCacheKey(p)
	if cacheable {
		var cached cachedList
		ok, err := s.cache.GetJSON(ctx, key, &cached)
		if err == nil && ok {
			return ListResult{Items: cached.Items, Total: cached.Total, Page: p.Page, Limit: p.PerPage}, nil
		}
	}

	total, err := s.queries.CountProducts(ctx)
	if err != nil {
		return ListResult{}, fmt.Errorf("count products: %w", err)
	}
	rows, err := s.queries.ListProducts(ctx, store.ListProductsParams{
		Limit:  int32(p.PerPage),
		Offset: int32((p.Page - 1) * p.PerPage),
	})
	if err != nil {
		return ListResult{}, fmt.Errorf("list products: %w", err)
	}
	items := make([]Product, 0, len(rows))
	for _, row := range rows {
		items = append(items, toProduct(row))
	}
	if cacheable {
		_ = s.cache.SetJSON(ctx, key, cachedList{Items: items, Total: total})
	}
	return ListResult{Items: items, Total: total, Page: p.Page, Limit: p.PerPage}, nil
}

// Get returns one product by id.
func (s *Service) Get(ctx context.Context, id string) (Product, error) {
	pid, err := parseUUID(id)
	if err != nil {
		return Product{}, badRequest("id", "id must be a valid UUID", err)
	}
	cacheKey := detailCacheKey(id)
	var cached Product
	if ok, err := s.cache.GetJSON(ctx, cacheKey, &cached); err == nil && ok {
		return cached, nil
	}
	row, err := s.queries.GetProductByID(ctx, pid)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, notFound(err)
		}
		return Product{}, fmt.Errorf("get product: %w", err)
	}
	item := toProduct(row)
	_ = s.cache.SetJSON(ctx, cacheKey, item)
	return item, nil
}

// Create inserts a new product and invalidates the list cache.
func (s *Service) Create(ctx context.Context, in ProductInput) (Product, error) {
	row, err := s.queries.CreateProduct(ctx, store.CreateProductParams{
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		PriceCents:  in.PriceCents,
		ImageURL:    optionalText(in.ImageURL),
	})
	if err != nil {
		return Product{}, fmt.Errorf("create product: %w", err)
	}
	_ = s.cache.Delete(ctx, listCacheKeyFirst)
	return toProduct(row), nil
}

// Update overwrites a product and invalidates its cache entries.
func (s *Service) Update(ctx context.Context, id string, in ProductInput) (Product, error) {
	pid, err := parseUUID(id)
	if err != nil {
		return Product{}, badRequest("id", "id must be a valid UUID", err)
	}
	row, err := s.queries.UpdateProduct(ctx, store.UpdateProductParams{
		ID:          pid,
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		PriceCents:  in.PriceCents,
		ImageURL:    optionalText(in.ImageURL),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, notFound(err)
		}
		return Product{}, fmt.Errorf("update product: %w", err)
	}
	_ = s.cache.Delete(ctx, listCacheKeyFirst, detailCacheKey(id))
	return toProduct(row), nil
}

// Delete removes a product and invalidates its cache entries. Orders keep
// their frozen snapshots of the product.
func (s *Service) Delete(ctx context.Context, id string) error {
	pid, err := parseUUID(id)
	if err != nil {
		return badRequest("id", "id must be a valid UUID", err)
	}
	if err := s.queries.DeleteProduct(ctx, pid); err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	_ = s.cache.Delete(ctx, listCacheKeyFirst, detailCacheKey(id))
	return nil
}

type cachedList struct {
	Items []Product `json:"items"`
	Total int64     `json:"total"`
}

const listCacheKeyFirst = "catalog:products:list:first"

func listCacheKey(p common.Pagination) (string, bool) {
	if p.Page != 1 || p.PerPage != common.DefaultPerPage {
		return "", false
	}
	return listCacheKeyFirst, true
}

func detailCacheKey(id string) string {
	return "catalog:products:detail:" + id
}

func toProduct(row store.Product) Product {
	p := Product{
		ID:          uuidString(row.ID),
		Title:       row.Title,
		Description: row.Description,
		PriceCents:  row.PriceCents,
		CreatedAt:   row.CreatedAt.Time,
	}
	if row.ImageURL.Valid {
		u := row.ImageURL.String
		p.ImageURL = &u
	}
	return p
}

func optionalText(s *string) pgtype.Text {
	if s == nil || strings.TrimSpace(*s) == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: *s, Valid: true}
}

func uuidString(id pgtype.UUID) string {
	if !id.Valid {
		return ""
	}
	u, err := uuid.FromBytes(id.Bytes[:])
	if err != nil {
		return ""
	}
	return u.String()
}

func parseUUID(s string) (pgtype.UUID, error) {
	u, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		return pgtype.UUID{}, err
	}
	return pgtype.UUID{Bytes: u, Valid: true}, nil
}

func notFound(err error) *common.AppError {
	return &common.AppError{Code: "NOT_FOUND", Message: "product not found", HTTPStatus: http.StatusNotFound, Err: err}
}

func badRequest(field, message string, err error) *common.AppError {
	return &common.AppError{
		Code:       "BAD_REQUEST",
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
		Err:        err,
		Details: map[string]any{
			"field": field,
		},
	}
}
