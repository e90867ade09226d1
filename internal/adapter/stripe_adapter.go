package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
	"go.uber.org/zap"

	"github.com/stayhub/service-rental/internal/common/domain"
)

// StripeAPIVersion pins the API version used for ephemeral keys handed to mobile clients.
const StripeAPIVersion = "2024-11-20.acacia"

// Customer identifies the payer a checkout is created for.
type Customer struct {
	Name  string
	Email string
}

// Intent is the client-facing part of a newly created payment intent.
type Intent struct {
	ID           string
	ClientSecret string
	EphemeralKey string
	CustomerID   string
}

// PaymentEvent is a verified asynchronous notification about a payment intent.
type PaymentEvent struct {
	ID       string
	Kind     string
	IntentID string
}

// PaymentGateway defines the Anti-Corruption Layer interface for the payment provider.
// Amounts are always in minor currency units.
type PaymentGateway interface {
	// CreateIntent creates a customer, an ephemeral key and a card payment intent.
	CreateIntent(ctx context.Context, amountMinor int64, currency string, customer Customer, metadata map[string]string) (*Intent, error)

	// UpdateIntentAmount changes the amount of an unconfirmed payment intent.
	UpdateIntentAmount(ctx context.Context, intentID string, amountMinor int64) error

	// CancelIntent cancels a payment intent.
	CancelIntent(ctx context.Context, intentID string) error

	// VerifyWebhook authenticates a raw webhook payload against its signature header.
	VerifyWebhook(payload []byte, signature string) (PaymentEvent, error)
}

// parseWebhook verifies the Stripe-Signature header over the raw payload and
// extracts the payment intent the event refers to.
func parseWebhook(payload []byte, signature, secret string) (PaymentEvent, error) {
	if secret == "" || signature == "" {
		return PaymentEvent{}, domain.NewSignatureInvalidError()
	}
	event, err := webhook.ConstructEventWithOptions(payload, signature, secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return PaymentEvent{}, domain.NewSignatureInvalidError()
	}

	out := PaymentEvent{ID: event.ID, Kind: string(event.Type)}
	if !strings.HasPrefix(out.Kind, "payment_intent.") || event.Data == nil {
		return out, nil
	}
	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return PaymentEvent{}, domain.NewValidationError("malformed payment intent payload")
	}
	out.IntentID = intent.ID
	return out, nil
}

// MockStripeAdapter is a development/testing implementation of PaymentGateway.
// It simulates Stripe behavior without requiring a real Stripe account but
// still verifies webhook signatures with the configured secret.
type MockStripeAdapter struct {
	webhookSecret string
	logger        *zap.Logger

	mu      sync.Mutex
	amounts map[string]int64
}

// NewMockStripeAdapter creates a new mock Stripe adapter for development.
func NewMockStripeAdapter(webhookSecret string, logger *zap.Logger) *MockStripeAdapter {
	return &MockStripeAdapter{
		webhookSecret: webhookSecret,
		logger:        logger,
		amounts:       make(map[string]int64),
	}
}

// CreateIntent simulates creating a customer and PaymentIntent and returns mock IDs.
func (m *MockStripeAdapter) CreateIntent(ctx context.Context, amountMinor int64, currency string, customer Customer, metadata map[string]string) (*Intent, error) {
	suffix := uuid.New().String()[:8]
	intent := &Intent{
		ID:           fmt.Sprintf("pi_mock_%s", suffix),
		CustomerID:   fmt.Sprintf("cus_mock_%s", suffix),
		EphemeralKey: fmt.Sprintf("ek_mock_%s", suffix),
	}
	intent.ClientSecret = fmt.Sprintf("%s_secret_mock", intent.ID)

	m.mu.Lock()
	m.amounts[intent.ID] = amountMinor
	m.mu.Unlock()

	m.logger.Info("[MOCK STRIPE] PaymentIntent created",
		zap.String("payment_intent_id", intent.ID),
		zap.Int64("amount_minor", amountMinor),
		zap.String("currency", currency),
		zap.String("customer_email", customer.Email),
		zap.Any("metadata", metadata),
	)
	return intent, nil
}

// UpdateIntentAmount simulates changing a PaymentIntent amount.
func (m *MockStripeAdapter) UpdateIntentAmount(ctx context.Context, intentID string, amountMinor int64) error {
	m.mu.Lock()
	m.amounts[intentID] = amountMinor
	m.mu.Unlock()

	m.logger.Info("[MOCK STRIPE] PaymentIntent amount updated",
		zap.String("payment_intent_id", intentID),
		zap.Int64("amount_minor", amountMinor),
	)
	return nil
}

// CancelIntent simulates cancelling a PaymentIntent.
func (m *MockStripeAdapter) CancelIntent(ctx context.Context, intentID string) error {
	m.mu.Lock()
	delete(m.amounts, intentID)
	m.mu.Unlock()

	m.logger.Info("[MOCK STRIPE] PaymentIntent cancelled",
		zap.String("payment_intent_id", intentID),
	)
	return nil
}

// Amount returns the last amount recorded for an intent.
func (m *MockStripeAdapter) Amount(intentID string) (int64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	amount, ok := m.amounts[intentID]
	return amount, ok
}

// VerifyWebhook checks the signature exactly like the live adapter.
func (m *MockStripeAdapter) VerifyWebhook(payload []byte, signature string) (PaymentEvent, error) {
	return parseWebhook(payload, signature, m.webhookSecret)
}
