package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/noah-isme/backend-storefront/internal/resilience"
)

// Stripe implements Provider against the Stripe Checkout Sessions API.
type Stripe struct {
	SecretKey     string
	WebhookSecret string
	BaseURL       string
	HTTP          resilience.HTTPClient
	Now           func() time.Time
	Tolerance     time.Duration
}

const stripeAPIHost = "https://api.stripe.com"

func (s Stripe) apiHost() string {
	host := strings.TrimSpace(s.BaseURL)
	if host == "" {
		return stripeAPIHost
	}
	return strings.TrimRight(host, "/")
}

func (s Stripe) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s Stripe) tolerance() time.Duration {
	if s.Tolerance > 0 {
		return s.Tolerance
	}
	return 5 * time.Minute
}

// CreateSession opens a hosted checkout session. Amounts are already in minor
// units and forwarded to the gateway untouched.
func (s Stripe) CreateSession(ctx context.Context, req SessionRequest) (Session, error) {
	if len(req.Lines) == 0 {
		return Session{}, fmt.Errorf("no line items: %w", ErrSessionFailed)
	}
	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("success_url", req.SuccessURL)
	form.Set("cancel_url", req.CancelURL)
	if req.Email != "" {
		form.Set("customer_email", req.Email)
	}
	form.Set("metadata[userId]", req.UserID)
	for i, ln := range req.Lines {
		prefix := fmt.Sprintf("line_items[%d]", i)
		form.Set(prefix+"[quantity]", strconv.FormatInt(int64(ln.Qty), 10))
		form.Set(prefix+"[price_data][currency]", req.Currency)
		form.Set(prefix+"[price_data][unit_amount]", strconv.FormatInt(ln.UnitAmount, 10))
		form.Set(prefix+"[price_data][product_data][name]", ln.Title)
		if ln.Description != "" {
			form.Set(prefix+"[price_data][product_data][description]", ln.Description)
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.apiHost()+"/v1/checkout/sessions", strings.NewReader(form.Encode()))
	if err != nil {
		return Session{}, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+s.SecretKey)
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.HTTP.Do(ctx, httpReq)
	if err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrSessionFailed, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrSessionFailed, err)
	}
	if resp.StatusCode != http.StatusOK {
		return Session{}, fmt.Errorf("%w: gateway returned %s", ErrSessionFailed, resp.Status)
	}
	var parsed struct {
		ID  string `json:"id"`
		URL string `json:"url"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrSessionFailed, err)
	}
	if parsed.ID == "" || parsed.URL == "" {
		return Session{}, fmt.Errorf("%w: incomplete session response", ErrSessionFailed)
	}
	return Session{ID: parsed.ID, URL: parsed.URL}, nil
}

// VerifyWebhook validates the Stripe-Signature header and normalises the
// event payload. The signed content is "<timestamp>.<body>" under HMAC-SHA256.
func (s Stripe) VerifyWebhook(r *http.Request, body []byte) (WebhookVerifyResult, error) {
	header := r.Header.Get("Stripe-Signature")
	ts, sigs, err := parseSignatureHeader(header)
	if err != nil {
		return WebhookVerifyResult{Valid: false, Err: err}, nil
	}
	if d := s.now().Sub(time.Unix(ts, 0)); d > s.tolerance() || d < -s.tolerance() {
		return WebhookVerifyResult{Valid: false, Err: errors.New("timestamp outside tolerance")}, nil
	}
	expected := computeSignature(s.WebhookSecret, ts, body)
	matched := false
	for _, sig := range sigs {
		if hmac.Equal([]byte(expected), []byte(sig)) {
			matched = true
			break
		}
	}
	if !matched {
		return WebhookVerifyResult{Valid: false, Err: errors.New("signature mismatch")}, nil
	}

	var event struct {
		Type string `json:"type"`
		Data struct {
			Object struct {
				ID            string `json:"id"`
				CustomerEmail string `json:"customer_email"`
				AmountTotal   int64  `json:"amount_total"`
				Currency      string `json:"currency"`
				Metadata      struct {
					UserID string `json:"userId"`
				} `json:"metadata"`
			} `json:"object"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &event); err != nil {
		return WebhookVerifyResult{Valid: false, Err: err}, nil
	}
	if event.Data.Object.ID == "" {
		return WebhookVerifyResult{Valid: false, Err: errors.New("missing session id")}, nil
	}
	return WebhookVerifyResult{
		Valid:     true,
		EventType: event.Type,
		Session: CompletedSession{
			SessionID:   event.Data.Object.ID,
			UserID:      event.Data.Object.Metadata.UserID,
			Email:       event.Data.Object.CustomerEmail,
			AmountTotal: event.Data.Object.AmountTotal,
			Currency:    event.Data.Object.Currency,
			Payload:     body,
		},
	}, nil
}

func parseSignatureHeader(header string) (ts int64, sigs []string, err error) {
	if strings.TrimSpace(header) == "" {
		return 0, nil, errors.New("missing signature header")
	}
	for _, part := range strings.Split(header, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch k {
		case "t":
			ts, err = strconv.ParseInt(v, 10, 64)
			if err != nil {
				return 0, nil, fmt.Errorf("invalid timestamp: %w", err)
			}
		case "v1":
			sigs = append(sigs, v)
		}
	}
	if ts == 0 || len(sigs) == 0 {
		return 0, nil, errors.New("malformed signature header")
	}
	return ts, sigs, nil
}

func computeSignature(secret string, ts int64, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", ts)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// SignPayload builds a valid Stripe-Signature header value for the given
// payload. Used by tests and local tooling.
func SignPayload(secret string, ts time.Time, body []byte) string {
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), computeSignature(secret, ts.Unix(), body))
}
