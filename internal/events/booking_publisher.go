package events

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/stayhub/service-rental/internal/common/kafka"
	"github.com/stayhub/service-rental/internal/domain/booking"
)

// Event source and types published on the booking topic.
const (
	Source = "service-rental"

	BookingCreated          = "booking.created"
	BookingUpdated          = "booking.updated"
	BookingCancelled        = "booking.cancelled"
	BookingPaymentSucceeded = "booking.payment_succeeded"
	BookingPaymentFailed    = "booking.payment_failed"
	BookingRequiresAction   = "booking.requires_action"
	BookingPaymentCancelled = "booking.payment_cancelled"
)

// TypeForPaymentEvent maps a provider payment event to the booking event announcing it.
func TypeForPaymentEvent(kind booking.PaymentEventKind) (string, bool) {
	switch kind {
	case booking.EventPaymentSucceeded:
		return BookingPaymentSucceeded, true
	case booking.EventPaymentFailed:
		return BookingPaymentFailed, true
	case booking.EventPaymentRequiresAction:
		return BookingRequiresAction, true
	case booking.EventPaymentCanceled:
		return BookingPaymentCancelled, true
	default:
		return "", false
	}
}

// BookingEvent is the data payload of every booking CloudEvent.
type BookingEvent struct {
	BookingID       string    `json:"booking_id"`
	PropertyID      string    `json:"property_id,omitempty"`
	UserID          string    `json:"user_id,omitempty"`
	CheckIn         string    `json:"check_in,omitempty"`
	CheckOut        string    `json:"check_out,omitempty"`
	TotalPrice      float64   `json:"total_price,omitempty"`
	Status          string    `json:"status,omitempty"`
	PaymentStatus   string    `json:"payment_status,omitempty"`
	PaymentIntentID string    `json:"payment_intent_id"`
	OccurredAt      time.Time `json:"occurred_at"`
}

// NewBookingEvent snapshots a booking into an event payload.
func NewBookingEvent(b *booking.Booking) BookingEvent {
	return BookingEvent{
		BookingID:       b.ID().String(),
		PropertyID:      b.PropertyID().String(),
		UserID:          b.UserID().String(),
		CheckIn:         b.CheckIn().Format(time.DateOnly),
		CheckOut:        b.CheckOut().Format(time.DateOnly),
		TotalPrice:      b.TotalPrice(),
		Status:          string(b.Status()),
		PaymentStatus:   string(b.PaymentStatus()),
		PaymentIntentID: b.PaymentIntentID(),
		OccurredAt:      time.Now().UTC(),
	}
}

// Publisher delivers booking events. Failures are reported, never retried here.
type Publisher interface {
	Publish(ctx context.Context, eventType string, event BookingEvent) error
}

type eventWriter interface {
	PublishEvent(ctx context.Context, topic string, event kafka.CloudEvent) error
}

// KafkaPublisher publishes booking events as CloudEvents keyed by booking id.
type KafkaPublisher struct {
	writer eventWriter
	topic  string
	logger *zap.Logger
}

// NewKafkaPublisher creates a publisher writing to topic.
func NewKafkaPublisher(writer eventWriter, topic string, logger *zap.Logger) *KafkaPublisher {
	return &KafkaPublisher{writer: writer, topic: topic, logger: logger}
}

// Publish wraps event in a CloudEvent and writes it.
func (p *KafkaPublisher) Publish(ctx context.Context, eventType string, event BookingEvent) error {
	ce, err := kafka.NewCloudEvent(Source, eventType, event)
	if err != nil {
		return err
	}
	ce.Subject = event.BookingID
	return p.writer.PublishEvent(ctx, p.topic, ce)
}

// NopPublisher drops every event. Used when no brokers are configured.
type NopPublisher struct {
	logger *zap.Logger
}

// NewNopPublisher creates a publisher that only logs at debug level.
func NewNopPublisher(logger *zap.Logger) *NopPublisher {
	return &NopPublisher{logger: logger}
}

func (p *NopPublisher) Publish(ctx context.Context, eventType string, event BookingEvent) error {
	p.logger.Debug("event publishing disabled, dropping event",
		zap.String("type", eventType),
		zap.String("booking_id", event.BookingID),
	)
	return nil
}
