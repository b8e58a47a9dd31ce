package gateways

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"registration-service/models"

	"github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/client"
	"go.uber.org/zap"
)

// StripeGateway implements Gateway with manually confirmed PaymentIntents.
type StripeGateway struct {
	sc *client.API
}

// NewStripeGateway builds a dedicated Stripe client. Global stripe.Key is
// never touched. A non-empty apiURL overrides the Stripe API host.
func NewStripeGateway(secretKey, apiURL string, timeout time.Duration, logger *zap.Logger) *StripeGateway {
	cfg := &stripe.BackendConfig{
		HTTPClient:        &http.Client{Timeout: timeout},
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     logger.Sugar(),
	}
	if apiURL != "" {
		cfg.URL = stripe.String(apiURL)
	}

	return &StripeGateway{
		sc: client.New(secretKey, &stripe.Backends{
			API: stripe.GetBackendWithConfig(stripe.APIBackend, cfg),
		}),
	}
}

func (s *StripeGateway) Name() models.Gateway { return models.GatewayStripe }

func (s *StripeGateway) Currency() string { return "USD" }

// OpenOrder creates and confirms a PaymentIntent in one call. The idempotency
// key ties retries of the same submission and payment method to one intent.
func (s *StripeGateway) OpenOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	if req.PaymentMethodID == "" {
		return nil, fmt.Errorf("stripe create intent: payment method is required")
	}

	params := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(req.Amount),
		Currency:           stripe.String(string(stripe.CurrencyUSD)),
		PaymentMethod:      stripe.String(req.PaymentMethodID),
		ConfirmationMethod: stripe.String(string(stripe.PaymentIntentConfirmationMethodManual)),
		Confirm:            stripe.Bool(true),
	}
	params.Context = ctx
	params.AddMetadata("submission_id", req.SubmissionID.String())
	params.AddMetadata("user_id", req.UserID.String())
	params.AddMetadata("receipt_number", req.Receipt)
	params.SetIdempotencyKey(req.SubmissionID.String() + ":" + req.PaymentMethodID)

	pi, err := s.sc.PaymentIntents.New(params)
	if err != nil {
		return nil, classifyStripeError("stripe create intent", err)
	}

	raw, err := rawIntent(pi)
	if err != nil {
		return nil, err
	}

	order := &Order{
		OrderID: pi.ID,
		Status:  intentStatus(pi.Status),
		Raw:     raw,
		ClientData: map[string]interface{}{
			"payment_intent_id": pi.ID,
			"status":            string(pi.Status),
		},
	}
	if order.Status == models.PaymentStatusSuccess {
		order.ProviderPaymentID = providerPaymentID(pi)
	}
	if pi.Status == stripe.PaymentIntentStatusRequiresAction {
		order.ClientData["client_secret"] = pi.ClientSecret
	}
	return order, nil
}

// Verify fetches the intent and accepts it only once Stripe reports it as
// succeeded.
func (s *StripeGateway) Verify(ctx context.Context, proof Proof) (*VerifiedPayment, error) {
	if proof.OrderID == "" {
		return nil, ErrNotSucceeded
	}

	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := s.sc.PaymentIntents.Get(proof.OrderID, params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.HTTPStatusCode == http.StatusNotFound {
			return nil, ErrNotSucceeded
		}
		return nil, classifyStripeError("stripe retrieve intent", err)
	}
	if pi.Status != stripe.PaymentIntentStatusSucceeded {
		return nil, ErrNotSucceeded
	}

	raw, err := rawIntent(pi)
	if err != nil {
		return nil, err
	}
	return &VerifiedPayment{OrderID: pi.ID, ProviderPaymentID: providerPaymentID(pi), Raw: raw, Captured: true}, nil
}

func intentStatus(status stripe.PaymentIntentStatus) models.PaymentStatus {
	switch status {
	case stripe.PaymentIntentStatusSucceeded:
		return models.PaymentStatusSuccess
	case stripe.PaymentIntentStatusCanceled:
		return models.PaymentStatusFailed
	default:
		return models.PaymentStatusPending
	}
}

// providerPaymentID prefers the captured charge and falls back to the intent.
func providerPaymentID(pi *stripe.PaymentIntent) string {
	if pi.LatestCharge != nil && pi.LatestCharge.ID != "" {
		return pi.LatestCharge.ID
	}
	return pi.ID
}

func rawIntent(pi *stripe.PaymentIntent) ([]byte, error) {
	if pi.LastResponse != nil && len(pi.LastResponse.RawJSON) > 0 {
		return pi.LastResponse.RawJSON, nil
	}
	raw, err := json.Marshal(pi)
	if err != nil {
		return nil, fmt.Errorf("encode payment intent: %w", err)
	}
	return raw, nil
}

func classifyStripeError(op string, err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) && stripeErr.Type == stripe.ErrorTypeCard {
		return fmt.Errorf("%s: %w: %s", op, ErrDeclined, stripeErr.Msg)
	}
	return fmt.Errorf("%s: %w", op, err)
}
