package adapter

import (
	"context"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"go.uber.org/zap"

	"github.com/stayhub/service-rental/internal/common/domain"
)

// StripeGateway implements PaymentGateway against the live Stripe API.
type StripeGateway struct {
	api           *client.API
	webhookSecret string
	logger        *zap.Logger
}

// NewStripeGateway creates a Stripe client bound to secretKey.
func NewStripeGateway(secretKey, webhookSecret string, logger *zap.Logger) *StripeGateway {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &StripeGateway{api: api, webhookSecret: webhookSecret, logger: logger}
}

// CreateIntent creates the customer, an ephemeral key scoped to it and a card PaymentIntent.
func (g *StripeGateway) CreateIntent(ctx context.Context, amountMinor int64, currency string, customer Customer, metadata map[string]string) (*Intent, error) {
	customerParams := &stripe.CustomerParams{
		Name:  stripe.String(customer.Name),
		Email: stripe.String(customer.Email),
	}
	customerParams.Context = ctx
	cus, err := g.api.Customers.New(customerParams)
	if err != nil {
		return nil, domain.NewGatewayError("failed to create customer", err)
	}

	keyParams := &stripe.EphemeralKeyParams{
		Customer:      stripe.String(cus.ID),
		StripeVersion: stripe.String(StripeAPIVersion),
	}
	keyParams.Context = ctx
	key, err := g.api.EphemeralKeys.New(keyParams)
	if err != nil {
		return nil, domain.NewGatewayError("failed to create ephemeral key", err)
	}

	intentParams := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(amountMinor),
		Currency:           stripe.String(currency),
		Customer:           stripe.String(cus.ID),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
	}
	intentParams.Context = ctx
	for k, v := range metadata {
		intentParams.AddMetadata(k, v)
	}
	pi, err := g.api.PaymentIntents.New(intentParams)
	if err != nil {
		return nil, domain.NewGatewayError("failed to create payment intent", err)
	}

	g.logger.Info("payment intent created",
		zap.String("payment_intent_id", pi.ID),
		zap.String("customer_id", cus.ID),
		zap.Int64("amount_minor", amountMinor),
	)
	return &Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		EphemeralKey: key.Secret,
		CustomerID:   cus.ID,
	}, nil
}

// UpdateIntentAmount changes the amount of an existing PaymentIntent.
func (g *StripeGateway) UpdateIntentAmount(ctx context.Context, intentID string, amountMinor int64) error {
	params := &stripe.PaymentIntentParams{Amount: stripe.Int64(amountMinor)}
	params.Context = ctx
	if _, err := g.api.PaymentIntents.Update(intentID, params); err != nil {
		return domain.NewGatewayError("failed to update payment intent", err)
	}
	g.logger.Info("payment intent amount updated",
		zap.String("payment_intent_id", intentID),
		zap.Int64("amount_minor", amountMinor),
	)
	return nil
}

// CancelIntent cancels an existing PaymentIntent.
func (g *StripeGateway) CancelIntent(ctx context.Context, intentID string) error {
	params := &stripe.PaymentIntentCancelParams{}
	params.Context = ctx
	if _, err := g.api.PaymentIntents.Cancel(intentID, params); err != nil {
		return domain.NewGatewayError("failed to cancel payment intent", err)
	}
	g.logger.Info("payment intent cancelled", zap.String("payment_intent_id", intentID))
	return nil
}

// VerifyWebhook authenticates a Stripe webhook delivery.
func (g *StripeGateway) VerifyWebhook(payload []byte, signature string) (PaymentEvent, error) {
	return parseWebhook(payload, signature, g.webhookSecret)
}
