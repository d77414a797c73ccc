package catalog_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-storefront/internal/catalog"
	"github.com/noah-isme/backend-storefront/internal/common"
	"github.com/noah-isme/backend-storefront/internal/store"
)

type productStoreStub struct {
	products  []store.Product
	listCalls int
}

func (s *productStoreStub) ListProducts(_ context.Context, arg store.ListProductsParams) ([]store.Product, error) {
	s.listCalls++
	end := int(arg.Offset) + int(arg.Limit)
	if end > len(s.products) {
		end = len(s.products)
	}
	if int(arg.Offset) >= len(s.products) {
		return nil, nil
	}
	return s.products[arg.Offset:end], nil
}

func (s *productStoreStub) CountProducts(context.Context) (int64, error) {
	return int64(len(s.products)), nil
}

func (s *productStoreStub) GetProductByID(_ context.Context, id pgtype.UUID) (store.Product, error) {
	for _, p := range s.products {
		if p.ID == id {
			return p, nil
		}
	}
	return store.Product{}, pgx.ErrNoRows
}

func (s *productStoreStub) CreateProduct(_ context.Context, arg store.CreateProductParams) (store.Product, error) {
	p := store.Product{
		ID:          pgtype.UUID{Bytes: uuid.New(), Valid: true},
		Title:       arg.Title,
		Description: arg.Description,
		PriceCents:  arg.PriceCents,
		ImageURL:    arg.ImageURL,
	}
	s.products = append(s.products, p)
	return p, nil
}

func (s *productStoreStub) UpdateProduct(_ context.Context, arg store.UpdateProductParams) (store.Product, error) {
	for i, p := range s.products {
		if p.ID == arg.ID {
			s.products[i].Title = arg.Title
			s.products[i].PriceCents = arg.PriceCents
			return s.products[i], nil
		}
	}
	return store.Product{}, pgx.ErrNoRows
}

func (s *productStoreStub) DeleteProduct(_ context.Context, id pgtype.UUID) error {
	for i, p := range s.products {
		if p.ID == id {
			s.products = append(s.products[:i], s.products[i+1:]...)
			return nil
		}
	}
	return nil
}

func newCatalogService(t *testing.T, stub *productStoreStub, cache *catalog.Cache) *catalog.Service {
	t.Helper()
	svc, err := catalog.NewService(catalog.ServiceConfig{Queries: stub, Cache: cache})
	require.NoError(t, err)
	return svc
}

func seedProducts(n int) []store.Product {
	out := make([]store.Product, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, store.Product{
			ID:         pgtype.UUID{Bytes: uuid.New(), Valid: true},
			Title:      "Product",
			PriceCents: int64(1000 + i),
		})
	}
	return out
}

func TestListUsesCacheOnDefaultPage(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()

	stub := &productStoreStub{products: seedProducts(3)}
	svc := newCatalogService(t, stub, catalog.NewCache(client, time.Minute))

	p := common.Pagination{Page: 1, PerPage: common.DefaultPerPage}
	first, err := svc.List(context.Background(), p)
	require.NoError(t, err)
	require.Len(t, first.Items, 3)

	second, err := svc.List(context.Background(), p)
	require.NoError(t, err)
	require.Len(t, second.Items, 3)
	require.Equal(t, 1, stub.listCalls, "second default-page list should hit the cache")
}

func TestGetNotFound(t *testing.T) {
	svc := newCatalogService(t, &productStoreStub{}, nil)
	_, err := svc.Get(context.Background(), uuid.NewString())
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "NOT_FOUND", appErr.Code)
}

func TestGetInvalidID(t *testing.T) {
	svc := newCatalogService(t, &productStoreStub{}, nil)
	_, err := svc.Get(context.Background(), "not-a-uuid")
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "BAD_REQUEST", appErr.Code)
}

func TestCreateProductValidation(t *testing.T) {
	svc := newCatalogService(t, &productStoreStub{}, nil)
	h := catalog.NewHandler(catalog.HandlerConfig{Service: svc})

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/products",
		strings.NewReader(`{"title":"","priceCents":-5}`))
	h.CreateProduct(rr, req)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Contains(t, rr.Body.String(), "VALIDATION_FAILED")
}

func TestProductDetailRoute(t *testing.T) {
	stub := &productStoreStub{products: seedProducts(1)}
	svc := newCatalogService(t, stub, nil)
	h := catalog.NewHandler(catalog.HandlerConfig{Service: svc})

	r := chi.NewRouter()
	r.Get("/api/v1/products/{id}", h.ProductDetail)

	id := uuid.UUID(stub.products[0].ID.Bytes).String()
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/products/"+id, nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), id)
}
