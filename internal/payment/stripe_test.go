package payment_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-storefront/internal/payment"
	"github.com/noah-isme/backend-storefront/internal/resilience"
)

const webhookSecret = "whsec_test"

func signedRequest(t *testing.T, body string, at time.Time) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/webhook", strings.NewReader(body))
	req.Header.Set("Stripe-Signature", payment.SignPayload(webhookSecret, at, []byte(body)))
	return req
}

const completedBody = `{
	"type": "checkout.session.completed",
	"data": {"object": {
		"id": "cs_test_123",
		"customer_email": "buyer@example.com",
		"amount_total": 4499,
		"currency": "usd",
		"metadata": {"userId": "5cf0a7a2-93b2-4e2b-8f65-7a3f86a90a01"}
	}}
}`

func TestVerifyWebhookValidSignature(t *testing.T) {
	now := time.Now()
	provider := payment.Stripe{WebhookSecret: webhookSecret, Now: func() time.Time { return now }}

	result, err := provider.VerifyWebhook(signedRequest(t, completedBody, now), []byte(completedBody))
	require.NoError(t, err)
	require.True(t, result.Valid)
	require.Equal(t, "checkout.session.completed", result.EventType)
	require.Equal(t, "cs_test_123", result.Session.SessionID)
	require.Equal(t, "5cf0a7a2-93b2-4e2b-8f65-7a3f86a90a01", result.Session.UserID)
	require.Equal(t, "buyer@example.com", result.Session.Email)
	require.Equal(t, int64(4499), result.Session.AmountTotal)
}

func TestVerifyWebhookBadSignature(t *testing.T) {
	now := time.Now()
	provider := payment.Stripe{WebhookSecret: webhookSecret, Now: func() time.Time { return now }}

	req := signedRequest(t, completedBody, now)
	tampered := strings.Replace(completedBody, "4499", "1", 1)
	result, err := provider.VerifyWebhook(req, []byte(tampered))
	require.NoError(t, err)
	require.False(t, result.Valid)
}

func TestVerifyWebhookStaleTimestamp(t *testing.T) {
	now := time.Now()
	provider := payment.Stripe{WebhookSecret: webhookSecret, Now: func() time.Time { return now }}

	result, err := provider.VerifyWebhook(signedRequest(t, completedBody, now.Add(-time.Hour)), []byte(completedBody))
	require.NoError(t, err)
	require.False(t, result.Valid)
}

func TestVerifyWebhookMissingHeader(t *testing.T) {
	provider := payment.Stripe{WebhookSecret: webhookSecret}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/webhook", strings.NewReader(completedBody))
	result, err := provider.VerifyWebhook(req, []byte(completedBody))
	require.NoError(t, err)
	require.False(t, result.Valid)
}

func TestCreateSessionPostsFormAndParsesResponse(t *testing.T) {
	var gotForm map[string][]string
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotForm = r.PostForm
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"cs_test_42","url":"https://checkout.stripe.test/pay/cs_test_42"}`))
	}))
	defer srv.Close()

	provider := payment.Stripe{
		SecretKey: "sk_test_abc",
		BaseURL:   srv.URL,
		HTTP:      resilience.HTTPClient{Client: srv.Client(), MaxAttempts: 1},
	}
	session, err := provider.CreateSession(context.Background(), payment.SessionRequest{
		UserID:     "user-1",
		Email:      "buyer@example.com",
		Currency:   "usd",
		SuccessURL: "https://shop.test/success",
		CancelURL:  "https://shop.test/cancel",
		Lines: []payment.SessionLine{
			{Title: "Mug", UnitAmount: 1250, Qty: 2},
		},
	})
	require.NoError(t, err)
	require.Equal(t, "cs_test_42", session.ID)
	require.Equal(t, "https://checkout.stripe.test/pay/cs_test_42", session.URL)

	require.Equal(t, "Bearer sk_test_abc", gotAuth)
	require.Equal(t, []string{"payment"}, gotForm["mode"])
	require.Equal(t, []string{"1250"}, gotForm["line_items[0][price_data][unit_amount]"])
	require.Equal(t, []string{"2"}, gotForm["line_items[0][quantity]"])
	require.Equal(t, []string{"user-1"}, gotForm["metadata[userId]"])
}

func TestCreateSessionGatewayFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
	}))
	defer srv.Close()

	provider := payment.Stripe{
		SecretKey: "sk_test_abc",
		BaseURL:   srv.URL,
		HTTP:      resilience.HTTPClient{Client: srv.Client(), MaxAttempts: 1},
	}
	_, err := provider.CreateSession(context.Background(), payment.SessionRequest{
		Currency: "usd",
		Lines:    []payment.SessionLine{{Title: "Mug", UnitAmount: 1250, Qty: 1}},
	})
	require.ErrorIs(t, err, payment.ErrSessionFailed)
}

func TestCreateSessionEmptyLines(t *testing.T) {
	provider := payment.Stripe{}
	_, err := provider.CreateSession(context.Background(), payment.SessionRequest{Currency: "usd"})
	require.ErrorIs(t, err, payment.ErrSessionFailed)
}
