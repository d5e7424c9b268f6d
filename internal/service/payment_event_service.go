package service

import (
	"context"
	"errors"

	"github.com/alcyxob/planmarket/internal/logger"
	"github.com/alcyxob/planmarket/internal/payment"
	"github.com/alcyxob/planmarket/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// EventGuard remembers webhook event IDs that were already handled. It is an
// optimization in front of the purchase unique index, never a replacement.
// An event is marked only after its grant is durable.
type EventGuard interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	Mark(ctx context.Context, eventID string) error
}

type PaymentEventService interface {
	// HandlePaymentEvent returns nil once the event is durably handled,
	// ignored, or recognized as a replay.
	HandlePaymentEvent(ctx context.Context, body []byte, signature string) error
}

type paymentEventService struct {
	processor    payment.Processor
	planRepo     repository.PlanRepository
	entitlements EntitlementService
	guard        EventGuard // optional
	log          *logger.Logger
}

// NewPaymentEventService creates the webhook ingestor. guard may be nil.
func NewPaymentEventService(
	processor payment.Processor,
	planRepo repository.PlanRepository,
	entitlements EntitlementService,
	guard EventGuard,
	log *logger.Logger,
) PaymentEventService {
	return &paymentEventService{
		processor:    processor,
		planRepo:     planRepo,
		entitlements: entitlements,
		guard:        guard,
		log:          log,
	}
}

func (s *paymentEventService) HandlePaymentEvent(ctx context.Context, body []byte, signature string) error {
	// Verification happens inside ParseWebhook before any decoding.
	event, err := s.processor.ParseWebhook(ctx, body, signature)
	if err != nil {
		switch {
		case errors.Is(err, payment.ErrSignatureInvalid):
			s.log.Warn("rejected webhook with invalid signature", "bytes", len(body))
			return ErrSignatureInvalid
		case errors.Is(err, payment.ErrMalformedEvent):
			s.log.Warn("rejected malformed webhook", "error", err)
			return malformedEvent("malformed payment event", err)
		default:
			return err
		}
	}

	switch ev := event.(type) {
	case payment.TransactionPaid:
		return s.handlePaid(ctx, ev)
	case payment.Unhandled:
		s.log.Debug("ignoring webhook event", "eventId", ev.ID, "type", ev.Type)
		return nil
	default:
		s.log.Debug("ignoring webhook event", "eventId", event.EventID())
		return nil
	}
}

func (s *paymentEventService) handlePaid(ctx context.Context, ev payment.TransactionPaid) error {
	log := s.log.With("eventId", ev.ID, "transactionId", ev.TransactionID)

	userID, uerr := primitive.ObjectIDFromHex(ev.UserID)
	planID, perr := primitive.ObjectIDFromHex(ev.PlanID)
	if uerr != nil || perr != nil {
		log.Warn("paid event with unusable metadata", "userId", ev.UserID, "planId", ev.PlanID)
		return malformedEvent("invalid user_id or plan_id in custom data", errors.Join(uerr, perr))
	}

	if s.guard != nil && ev.ID != "" {
		seen, gerr := s.guard.Seen(ctx, ev.ID)
		switch {
		case gerr != nil:
			// Fall through to the store; its unique index still holds.
			log.Warn("event guard unavailable", "error", gerr)
		case seen:
			log.Info("duplicate webhook delivery skipped")
			return nil
		}
	}

	if _, err := s.planRepo.GetByID(ctx, planID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			log.Error("paid event for unknown plan", "planId", ev.PlanID)
			return malformedEvent("plan in custom data does not exist", err)
		}
		return storeUnavailable(err)
	}

	purchase, result, err := s.entitlements.Grant(ctx, GrantRequest{
		UserID:       userID,
		PlanID:       planID,
		Amount:       ev.Amount,
		Currency:     ev.Currency,
		ExternalTxID: ev.TransactionID,
		EventID:      ev.ID,
	})
	if err != nil {
		var se *Error
		if errors.As(err, &se) {
			return malformedEvent(se.Message, se)
		}
		log.Error("failed to grant entitlement", "error", err)
		return storeUnavailable(err)
	}

	if result == repository.AlreadyExists {
		log.Info("idempotent replay of paid event", "purchaseId", purchase.ID.Hex())
	}
	if s.guard != nil && ev.ID != "" {
		if err := s.guard.Mark(ctx, ev.ID); err != nil {
			log.Warn("failed to mark event as handled", "error", err)
		}
	}
	return nil
}
