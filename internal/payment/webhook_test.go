package payment_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-storefront/internal/payment"
)

type settlerStub struct {
	settled []payment.CompletedSession
	err     error
}

func (s *settlerStub) Settle(_ context.Context, session payment.CompletedSession) error {
	if s.err != nil {
		return s.err
	}
	s.settled = append(s.settled, session)
	return nil
}

func newWebhook(t *testing.T, settler *settlerStub) (payment.Webhook, func() time.Time) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	now := time.Now()
	clock := func() time.Time { return now }
	return payment.Webhook{
		Provider:  payment.Stripe{WebhookSecret: webhookSecret, Now: clock},
		Orders:    settler,
		Replay:    client,
		ReplayTTL: time.Minute,
		Log:       zerolog.Nop(),
	}, clock
}

func TestWebhookSettlesCompletedSession(t *testing.T) {
	settler := &settlerStub{}
	wh, clock := newWebhook(t, settler)

	rr := httptest.NewRecorder()
	wh.Handle(rr, signedRequest(t, completedBody, clock()))

	require.Equal(t, http.StatusNoContent, rr.Code)
	require.Len(t, settler.settled, 1)
	require.Equal(t, "cs_test_123", settler.settled[0].SessionID)
}

func TestWebhookRejectsReplay(t *testing.T) {
	settler := &settlerStub{}
	wh, clock := newWebhook(t, settler)

	first := httptest.NewRecorder()
	wh.Handle(first, signedRequest(t, completedBody, clock()))
	require.Equal(t, http.StatusNoContent, first.Code)

	second := httptest.NewRecorder()
	wh.Handle(second, signedRequest(t, completedBody, clock()))
	require.Equal(t, http.StatusConflict, second.Code)

	require.Len(t, settler.settled, 1, "duplicate delivery must not settle twice")
}

func TestWebhookRetriesAfterSettlementFailure(t *testing.T) {
	settler := &settlerStub{err: errors.New("db unavailable")}
	wh, clock := newWebhook(t, settler)

	first := httptest.NewRecorder()
	wh.Handle(first, signedRequest(t, completedBody, clock()))
	require.Equal(t, http.StatusInternalServerError, first.Code)
	require.Empty(t, settler.settled)

	settler.err = nil
	second := httptest.NewRecorder()
	wh.Handle(second, signedRequest(t, completedBody, clock()))
	require.Equal(t, http.StatusNoContent, second.Code, "retry after a failed settlement must not be fenced out")
	require.Len(t, settler.settled, 1)
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	settler := &settlerStub{}
	wh, _ := newWebhook(t, settler)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/webhook", strings.NewReader(completedBody))
	req.Header.Set("Stripe-Signature", "t=1,v1=deadbeef")

	rr := httptest.NewRecorder()
	wh.Handle(rr, req)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Empty(t, settler.settled)
}

func TestWebhookIgnoresOtherEvents(t *testing.T) {
	settler := &settlerStub{}
	wh, clock := newWebhook(t, settler)

	body := strings.Replace(completedBody, "checkout.session.completed", "payment_intent.created", 1)
	rr := httptest.NewRecorder()
	wh.Handle(rr, signedRequest(t, body, clock()))

	require.Equal(t, http.StatusNoContent, rr.Code)
	require.Empty(t, settler.settled)
}
