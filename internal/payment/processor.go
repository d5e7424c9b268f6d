// Package payment integrates the merchant of record. Only two surfaces are
// consumed: transaction creation for checkout, and signed webhook
// notifications reporting payment outcomes.
package payment

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrSignatureInvalid means the webhook could not be authenticated.
	ErrSignatureInvalid = errors.New("webhook signature verification failed")
	// ErrMalformedEvent means the webhook was authentic but could not be parsed.
	ErrMalformedEvent = errors.New("malformed webhook event")
	// ErrUpstream wraps any failure talking to the processor API.
	ErrUpstream = errors.New("payment processor request failed")
)

// Metadata keys embedded in the transaction and echoed back in webhooks.
const (
	MetadataUserID = "user_id"
	MetadataPlanID = "plan_id"
)

// CheckoutRequest describes a one-off purchase of a plan.
type CheckoutRequest struct {
	PriceID string // processor catalog price
	UserID  string
	PlanID  string
}

// Checkout is a pending transaction held by the processor.
type Checkout struct {
	TransactionID string
	URL           string
}

// Processor is the external payment processor.
type Processor interface {
	CreateCheckout(ctx context.Context, req CheckoutRequest) (*Checkout, error)
	// ParseWebhook authenticates payload against signature before anything
	// else, then parses it into an Event.
	ParseWebhook(ctx context.Context, payload []byte, signature string) (Event, error)
}

// Event is a verified webhook notification. The set of implementations is
// closed: TransactionPaid, or Unhandled for everything else.
type Event interface {
	EventID() string
	isEvent()
}

// TransactionPaid reports a successful one-off payment.
type TransactionPaid struct {
	ID            string
	OccurredAt    time.Time
	TransactionID string
	UserID        string
	PlanID        string
	Amount        decimal.Decimal
	Currency      string
}

func (e TransactionPaid) EventID() string { return e.ID }
func (TransactionPaid) isEvent()          {}

// Unhandled is any event this service does not act on. It is acknowledged.
type Unhandled struct {
	ID   string
	Type string
}

func (e Unhandled) EventID() string { return e.ID }
func (Unhandled) isEvent()          {}
