package checkout

import (
	"errors"
	"net/http"

	"github.com/noah-isme/backend-storefront/internal/common"
	"github.com/noah-isme/backend-storefront/internal/payment"
)

// Handler wires the checkout service to HTTP.
type Handler struct {
	Svc *Service
}

// Create handles POST /api/v1/checkout/session.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.UserID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	result, err := h.Svc.CreateSession(r.Context(), userID)
	if err != nil {
		switch {
		case errors.Is(err, ErrEmptyCart):
			common.JSONError(w, http.StatusUnprocessableEntity, "EMPTY_CART", "cart has no items", nil)
		case errors.Is(err, ErrInvalidLine):
			common.JSONError(w, http.StatusUnprocessableEntity, "INVALID_LINE", "cart contains a line that cannot be charged", nil)
		case errors.Is(err, payment.ErrSessionFailed):
			common.JSONError(w, http.StatusBadGateway, "PAYMENT_INITIATION_FAILED", "unable to start payment", nil)
		default:
			common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
		}
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": result})
}
