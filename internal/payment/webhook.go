package payment

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-storefront/internal/common"
)

// Settler turns a completed checkout session into a durable order.
type Settler interface {
	Settle(ctx context.Context, session CompletedSession) error
}

// Webhook handles gateway callbacks: signature verification, replay
// protection, and order settlement.
type Webhook struct {
	Provider  Provider
	Orders    Settler
	Replay    *redis.Client
	ReplayTTL time.Duration
	Log       zerolog.Logger
}

const completedEvent = "checkout.session.completed"

// Handle processes POST /api/v1/webhooks/payment/{provider}.
func (h Webhook) Handle(w http.ResponseWriter, r *http.Request) {
	if h.Provider == nil || h.Orders == nil {
		common.JSONError(w, http.StatusInternalServerError, "PAYMENT_NOT_CONFIGURED", "webhook unavailable", nil)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_BODY", "unable to read payload", nil)
		return
	}
	result, err := h.Provider.VerifyWebhook(r, body)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "WEBHOOK_INVALID", err.Error(), nil)
		return
	}
	if !result.Valid {
		common.JSONError(w, http.StatusUnauthorized, "INVALID_SIGNATURE", "signature verification failed", nil)
		return
	}
	if result.EventType != completedEvent {
		// Acknowledge and ignore events we do not settle on.
		w.WriteHeader(http.StatusNoContent)
		return
	}
	var replayKey string
	if h.Replay != nil && h.ReplayTTL > 0 {
		replayKey = fmt.Sprintf("wh:stripe:%s", common.Sha256Hex(string(body)))
		ok, err := h.Replay.SetNX(r.Context(), replayKey, "1", h.ReplayTTL).Result()
		if err != nil {
			common.JSONError(w, http.StatusInternalServerError, "REPLAY_STORE_ERROR", err.Error(), nil)
			return
		}
		if !ok {
			common.JSONError(w, http.StatusConflict, "REPLAY", "duplicate webhook", nil)
			return
		}
	}
	if err := h.Orders.Settle(r.Context(), result.Session); err != nil {
		// Release the fence so the gateway's retry of this delivery can
		// settle; the unique session constraint still prevents duplicates.
		if replayKey != "" {
			_ = h.Replay.Del(r.Context(), replayKey).Err()
		}
		h.Log.Error().Err(err).
			Str("session_id", result.Session.SessionID).
			Msg("order settlement failed")
		common.JSONError(w, http.StatusInternalServerError, "SETTLEMENT_FAILED", "unable to settle order", nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
