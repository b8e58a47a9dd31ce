package models

import "time"

// PaymentEvent is published to SNS when a payment reaches a terminal state.
type PaymentEvent struct {
	Type          string    `json:"type"` // e.g. "payment_succeeded"
	PaymentID     string    `json:"payment_id"`
	SubmissionID  string    `json:"submission_id"`
	UserID        string    `json:"user_id"`
	Gateway       string    `json:"gateway"`
	Amount        int64     `json:"amount"`   // smallest currency unit
	Currency      string    `json:"currency"` // "INR", "USD"
	ReceiptNumber string    `json:"receipt_number"`
	Timestamp     time.Time `json:"timestamp"` // UTC event time
}

// ReceiptJob is the queue message asking for a receipt to be generated.
type ReceiptJob struct {
	PaymentID string `json:"payment_id"`
}
