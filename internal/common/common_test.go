package common_test

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-storefront/internal/common"
)

func TestIdempotencyMiddlewareBlocksDuplicateKey(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()

	var hits int
	wrapped := common.Idem{R: client, TTL: time.Minute}.Middleware(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits++
			w.WriteHeader(http.StatusCreated)
		}))

	mkReq := func() *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/session", nil)
		req.Header.Set("Idempotency-Key", "abc-123")
		return req
	}

	first := httptest.NewRecorder()
	wrapped.ServeHTTP(first, mkReq())
	require.Equal(t, http.StatusCreated, first.Code)

	second := httptest.NewRecorder()
	wrapped.ServeHTTP(second, mkReq())
	require.Equal(t, http.StatusConflict, second.Code)
	require.Equal(t, 1, hits)
}

func TestIdempotencyMiddlewarePassesWithoutKey(t *testing.T) {
	var hits int
	wrapped := common.Idem{}.Middleware(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits++
			w.WriteHeader(http.StatusOK)
		}))

	for i := 0; i < 2; i++ {
		rr := httptest.NewRecorder()
		wrapped.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/x", nil))
		require.Equal(t, http.StatusOK, rr.Code)
	}
	require.Equal(t, 2, hits)
}

func TestAppErrorUnwrap(t *testing.T) {
	base := errors.New("boom")
	appErr := common.NewAppError("INTERNAL", "something failed", http.StatusInternalServerError, fmt.Errorf("wrap: %w", base))
	require.ErrorIs(t, appErr, base)
	require.True(t, common.IsAppError(appErr))
	require.False(t, common.IsAppError(base))
}

func TestParsePaginationClampsPerPage(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/products?page=3&limit=500", nil)
	page, perPage := common.ParsePagination(req, common.DefaultPerPage)
	require.Equal(t, 3, page)
	require.Equal(t, common.MaxPerPage, perPage)

	req = httptest.NewRequest(http.MethodGet, "/products", nil)
	page, perPage = common.ParsePagination(req, common.DefaultPerPage)
	require.Equal(t, 1, page)
	require.Equal(t, common.DefaultPerPage, perPage)
}
