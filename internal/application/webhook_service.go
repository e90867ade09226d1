package application

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/stayhub/service-rental/internal/adapter"
	"github.com/stayhub/service-rental/internal/common/domain"
	"github.com/stayhub/service-rental/internal/domain/booking"
	"github.com/stayhub/service-rental/internal/events"
)

// WebhookService reconciles bookings with asynchronous payment provider events.
type WebhookService struct {
	repo      booking.Repository
	gateway   adapter.PaymentGateway
	publisher events.Publisher
	logger    *zap.Logger
}

// NewWebhookService creates a new WebhookService.
func NewWebhookService(repo booking.Repository, gateway adapter.PaymentGateway, publisher events.Publisher, logger *zap.Logger) *WebhookService {
	return &WebhookService{
		repo:      repo,
		gateway:   gateway,
		publisher: publisher,
		logger:    logger,
	}
}

// HandleWebhook verifies a raw delivery and applies its transition to the matching booking.
// Redelivering the same event leaves the booking in the same state. Events for unknown
// intents and for cancelled or completed bookings are acknowledged without a change.
func (s *WebhookService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	ev, err := s.gateway.VerifyWebhook(payload, signature)
	if err != nil {
		s.logger.Warn("rejected webhook delivery", zap.Error(err))
		return err
	}

	kind := booking.PaymentEventKind(ev.Kind)
	transition, ok := booking.TransitionFor(kind)
	if !ok {
		s.logger.Debug("ignoring webhook event", zap.String("type", ev.Kind), zap.String("event_id", ev.ID))
		return nil
	}
	if ev.IntentID == "" {
		s.logger.Warn("payment event without intent id, acknowledging",
			zap.String("type", ev.Kind),
			zap.String("event_id", ev.ID),
		)
		return nil
	}

	changed, err := s.repo.ApplyPaymentTransition(ctx, ev.IntentID, transition)
	if err != nil {
		return fmt.Errorf("failed to apply %s to %s: %w", ev.Kind, ev.IntentID, err)
	}

	b, err := s.repo.FindByPaymentIntentID(ctx, ev.IntentID)
	if err != nil {
		if domain.IsNotFound(err) {
			s.logger.Warn("no booking for payment intent, acknowledging",
				zap.String("payment_intent_id", ev.IntentID),
				zap.String("type", ev.Kind),
			)
			return nil
		}
		return err
	}

	if !changed {
		s.logger.Info("booking is final, webhook transition skipped",
			zap.String("booking_id", b.ID().String()),
			zap.String("status", string(b.Status())),
			zap.String("type", ev.Kind),
		)
		return nil
	}

	s.logger.Info("payment event applied",
		zap.String("booking_id", b.ID().String()),
		zap.String("payment_intent_id", ev.IntentID),
		zap.String("type", ev.Kind),
		zap.String("status", string(b.Status())),
	)
	if eventType, ok := events.TypeForPaymentEvent(kind); ok {
		if err := s.publisher.Publish(ctx, eventType, events.NewBookingEvent(b)); err != nil {
			s.logger.Error("failed to publish booking event", zap.String("type", eventType), zap.Error(err))
		}
	}
	return nil
}
