package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Gateway names a payment provider integration.
type Gateway string

const (
	GatewayRazorpay Gateway = "razorpay"
	GatewayStripe   Gateway = "stripe"
)

// PaymentStatus is the lifecycle state of a payment attempt.
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusSuccess  PaymentStatus = "success"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// PaymentStatusDuplicate marks money the provider captured for a submission
// that another payment had already settled. It needs a refund.
const PaymentStatusDuplicate PaymentStatus = "duplicate"

// Payment is one attempt to pay for a submission through a gateway.
// OrderID holds the provider order (Razorpay) or payment intent (Stripe) id.
type Payment struct {
	ID                uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	SubmissionID      uuid.UUID      `gorm:"type:uuid;index;not null" json:"submission_id"`
	UserID            uuid.UUID      `gorm:"type:uuid;index;not null" json:"user_id"`
	Gateway           Gateway        `gorm:"type:varchar(20);not null;uniqueIndex:idx_payment_gateway_order" json:"gateway"`
	OrderID           string         `gorm:"type:varchar(255);not null;uniqueIndex:idx_payment_gateway_order" json:"order_id"`
	ProviderPaymentID *string        `gorm:"type:varchar(255);uniqueIndex" json:"payment_id,omitempty"`
	Amount            int64          `gorm:"not null" json:"amount"` // minor units, equals the form amount at creation
	Currency          string         `gorm:"type:varchar(3);not null" json:"currency"`
	Status            PaymentStatus  `gorm:"type:varchar(20);not null;index" json:"status"`
	GatewayResponse   datatypes.JSON `gorm:"type:jsonb" json:"gateway_response,omitempty"`
	PaidAt            *time.Time     `json:"paid_at,omitempty"`
	ReceiptNumber     string         `gorm:"type:varchar(32);uniqueIndex;not null" json:"receipt_number"`
	ReceiptKey        *string        `gorm:"type:varchar(1024)" json:"-"`    // storage key of the issued receipt
	ReceiptURL        *string        `gorm:"-" json:"receipt_url,omitempty"` // short-lived link resolved on read
	CreatedAt         time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsSuccessful reports whether the payment has been verified.
func (p *Payment) IsSuccessful() bool {
	return p.Status == PaymentStatusSuccess
}
