package invoice

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-storefront/internal/common"
	"github.com/noah-isme/backend-storefront/internal/order"
)

// Handler streams invoice PDFs for the authenticated order owner.
type Handler struct {
	Orders    *order.Service
	Generator Generator
	Dir       string
	Log       zerolog.Logger
}

// Download handles GET /api/v1/orders/{id}/invoice.
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.UserID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	orderID := chi.URLParam(r, "id")
	ord, err := h.Orders.Get(r.Context(), userID, orderID)
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "order not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to load order", nil)
		return
	}
	data, err := h.Generator.Render(ord)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INVOICE_RENDER_FAILED", "unable to render invoice", nil)
		return
	}
	h.persist(ord.ID, data)

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `inline; filename="`+Filename(ord.ID)+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// persist writes a copy to the archive directory. Failures are logged but
// never block the download.
func (h *Handler) persist(orderID string, data []byte) {
	if h.Dir == "" {
		return
	}
	if err := os.MkdirAll(h.Dir, 0o755); err != nil {
		h.Log.Warn().Err(err).Msg("invoice archive dir unavailable")
		return
	}
	path := filepath.Join(h.Dir, Filename(orderID))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		h.Log.Warn().Err(err).Str("path", path).Msg("invoice archive write failed")
	}
}
