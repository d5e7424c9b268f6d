package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	paddle "github.com/PaddleHQ/paddle-go-sdk/v3"
	"github.com/shopspring/decimal"
)

// SignatureHeader carries the webhook signature.
const SignatureHeader = "Paddle-Signature"

// PaddleConfig holds configuration for the Paddle processor.
type PaddleConfig struct {
	APIKey        string
	WebhookSecret string
	Environment   string
	// CheckoutTimeout bounds the transaction-creation call.
	CheckoutTimeout time.Duration
}

// PaddleProcessor implements Processor on top of the Paddle Billing API.
type PaddleProcessor struct {
	client   *paddle.SDK
	verifier *paddle.WebhookVerifier
	timeout  time.Duration
}

// NewPaddleProcessor creates a new Paddle processor.
func NewPaddleProcessor(cfg PaddleConfig) (*PaddleProcessor, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("paddle API key is required")
	}
	if cfg.WebhookSecret == "" {
		return nil, errors.New("paddle webhook secret is required")
	}

	var client *paddle.SDK
	var err error
	switch strings.ToLower(cfg.Environment) {
	case "sandbox":
		client, err = paddle.NewSandbox(cfg.APIKey)
	case "production", "":
		client, err = paddle.New(cfg.APIKey)
	default:
		return nil, fmt.Errorf("invalid paddle environment: %s", cfg.Environment)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create paddle client: %w", err)
	}

	return &PaddleProcessor{
		client:   client,
		verifier: paddle.NewWebhookVerifier(cfg.WebhookSecret),
		timeout:  cfg.CheckoutTimeout,
	}, nil
}

// CreateCheckout creates a ready transaction for the plan's catalog price
// with (user_id, plan_id) as custom data. Nothing is persisted locally.
func (p *PaddleProcessor) CreateCheckout(ctx context.Context, req CheckoutRequest) (*Checkout, error) {
	if req.PriceID == "" {
		return nil, fmt.Errorf("%w: plan has no processor price", ErrUpstream)
	}
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	item := paddle.NewCreateTransactionItemsTransactionItemFromCatalog(&paddle.TransactionItemFromCatalog{
		PriceID:  req.PriceID,
		Quantity: 1,
	})
	transaction, err := p.client.TransactionsClient.CreateTransaction(ctx, &paddle.CreateTransactionRequest{
		Items: []paddle.CreateTransactionItems{*item},
		CustomData: paddle.CustomData{
			MetadataUserID: req.UserID,
			MetadataPlanID: req.PlanID,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create transaction: %v", ErrUpstream, err)
	}
	if transaction == nil || transaction.ID == "" {
		return nil, fmt.Errorf("%w: empty transaction returned", ErrUpstream)
	}

	checkout := &Checkout{TransactionID: transaction.ID}
	if transaction.Checkout != nil && transaction.Checkout.URL != nil {
		checkout.URL = *transaction.Checkout.URL
	}
	return checkout, nil
}

// ParseWebhook verifies the signature and only then decodes the payload.
func (p *PaddleProcessor) ParseWebhook(ctx context.Context, payload []byte, signature string) (Event, error) {
	if signature == "" {
		return nil, ErrSignatureInvalid
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "/webhook", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build verification request: %w", err)
	}
	req.Header.Set(SignatureHeader, signature)

	valid, err := p.verifier.Verify(req)
	if err != nil || !valid {
		return nil, ErrSignatureInvalid
	}
	return parseEvent(payload)
}

type paddleEnvelope struct {
	EventID    string          `json:"event_id"`
	EventType  string          `json:"event_type"`
	OccurredAt string          `json:"occurred_at"`
	Data       json.RawMessage `json:"data"`
}

type paddleTransaction struct {
	ID           string            `json:"id"`
	Status       string            `json:"status"`
	CurrencyCode string            `json:"currency_code"`
	CustomData   map[string]any    `json:"custom_data"`
	Details      *paddleTxnDetails `json:"details"`
}

type paddleTxnDetails struct {
	Totals struct {
		Total      string `json:"total"`
		GrandTotal string `json:"grand_total"`
	} `json:"totals"`
}

// Paddle sends transaction.paid when payment is captured and
// transaction.completed once processing finishes. Either one grants.
var grantingEvents = map[string]bool{
	"transaction.paid":      true,
	"transaction.completed": true,
}

func parseEvent(payload []byte) (Event, error) {
	var env paddleEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if env.EventType == "" {
		return nil, fmt.Errorf("%w: missing event_type", ErrMalformedEvent)
	}
	if !grantingEvents[env.EventType] {
		return Unhandled{ID: env.EventID, Type: env.EventType}, nil
	}

	var txn paddleTransaction
	if err := json.Unmarshal(env.Data, &txn); err != nil {
		return nil, fmt.Errorf("%w: transaction data: %v", ErrMalformedEvent, err)
	}
	if txn.ID == "" {
		return nil, fmt.Errorf("%w: missing transaction id", ErrMalformedEvent)
	}
	userID, _ := txn.CustomData[MetadataUserID].(string)
	planID, _ := txn.CustomData[MetadataPlanID].(string)
	if userID == "" || planID == "" {
		return nil, fmt.Errorf("%w: custom_data must carry %s and %s", ErrMalformedEvent, MetadataUserID, MetadataPlanID)
	}
	if txn.Details == nil {
		return nil, fmt.Errorf("%w: missing totals", ErrMalformedEvent)
	}
	minor := txn.Details.Totals.GrandTotal
	if minor == "" {
		minor = txn.Details.Totals.Total
	}
	amount, err := fromMinorUnits(minor, txn.CurrencyCode)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	paid := TransactionPaid{
		ID:            env.EventID,
		TransactionID: txn.ID,
		UserID:        userID,
		PlanID:        planID,
		Amount:        amount,
		Currency:      strings.ToUpper(txn.CurrencyCode),
	}
	if env.OccurredAt != "" {
		if ts, err := time.Parse(time.RFC3339Nano, env.OccurredAt); err == nil {
			paid.OccurredAt = ts.UTC()
		}
	}
	return paid, nil
}

// Currencies Paddle bills without a minor unit.
var zeroDecimalCurrencies = map[string]bool{
	"JPY": true,
	"KRW": true,
}

// fromMinorUnits converts Paddle's integer-string amounts ("2000" = 20.00 USD).
func fromMinorUnits(minor, currency string) (decimal.Decimal, error) {
	if minor == "" {
		return decimal.Zero, errors.New("missing amount")
	}
	v, err := decimal.NewFromString(minor)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q", minor)
	}
	if !v.IsInteger() || v.IsNegative() {
		return decimal.Zero, fmt.Errorf("invalid amount %q", minor)
	}
	if zeroDecimalCurrencies[strings.ToUpper(currency)] {
		return v, nil
	}
	return v.Shift(-2), nil
}
