package gateways

import (
	"context"
	"errors"
	"net"

	"registration-service/models"

	"github.com/google/uuid"
)

var (
	// ErrSignatureMismatch means the payment proof was not produced by the
	// provider for this order.
	ErrSignatureMismatch = errors.New("payment signature mismatch")
	// ErrNotSucceeded means the provider does not (yet) report the payment as
	// captured.
	ErrNotSucceeded = errors.New("payment has not succeeded")
	// ErrDeclined means the provider refused the payment method.
	ErrDeclined = errors.New("payment declined")
)

// OrderRequest carries what a provider needs to open a payable order.
type OrderRequest struct {
	SubmissionID    uuid.UUID
	UserID          uuid.UUID
	Amount          int64 // minor units
	Receipt         string
	PaymentMethodID string // Stripe only
}

// Order is the provider's answer to OrderRequest.
type Order struct {
	OrderID           string
	ProviderPaymentID string // set when the provider captured immediately
	Status            models.PaymentStatus
	Raw               []byte
	// ClientData is handed back to the browser to continue checkout.
	ClientData map[string]interface{}
}

// Proof is the client-supplied evidence that an order was paid.
type Proof struct {
	OrderID   string
	PaymentID string
	Signature string
}

// VerifiedPayment is a proof the provider has vouched for.
type VerifiedPayment struct {
	OrderID           string
	ProviderPaymentID string
	Raw               []byte
	// Captured is set when the provider reports the funds as already taken,
	// not merely authorized.
	Captured bool
}

// Gateway is a payment provider integration.
type Gateway interface {
	Name() models.Gateway
	Currency() string
	OpenOrder(ctx context.Context, req OrderRequest) (*Order, error)
	Verify(ctx context.Context, proof Proof) (*VerifiedPayment, error)
}

// IsTimeout reports whether err came from a deadline or a network timeout.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
