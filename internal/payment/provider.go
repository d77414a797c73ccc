package payment

import (
	"context"
	"errors"
	"net/http"
)

// ErrSessionFailed indicates the upstream gateway refused or failed to open
// a checkout session.
var ErrSessionFailed = errors.New("payment: session creation failed")

// SessionLine is one display line forwarded to the gateway-hosted page.
type SessionLine struct {
	Title       string
	Description string
	UnitAmount  int64
	Qty         int32
}

// SessionRequest captures everything needed to open a hosted checkout session.
type SessionRequest struct {
	UserID     string
	Email      string
	Currency   string
	SuccessURL string
	CancelURL  string
	Lines      []SessionLine
}

// Session is the minimal gateway response: an identifier to correlate the
// eventual webhook, and the URL the customer is redirected to.
type Session struct {
	ID  string
	URL string
}

// CompletedSession is the normalised payload of a successful checkout
// callback after signature verification.
type CompletedSession struct {
	SessionID   string
	UserID      string
	Email       string
	AmountTotal int64
	Currency    string
	Payload     []byte
}

// WebhookVerifyResult contains the data extracted from a webhook
// notification after signature verification.
type WebhookVerifyResult struct {
	Valid     bool
	EventType string
	Session   CompletedSession
	Err       error
}

// Provider abstracts the operations required from an upstream payment gateway.
type Provider interface {
	CreateSession(ctx context.Context, req SessionRequest) (Session, error)
	VerifyWebhook(r *http.Request, body []byte) (WebhookVerifyResult, error)
}
