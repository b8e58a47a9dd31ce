package models

// SubmitFormRequest is the payload for submitting a form.
type SubmitFormRequest struct {
	Data map[string]interface{} `json:"data" binding:"required"`
}

// VerifyRazorpayRequest carries the proof returned by Razorpay checkout.
type VerifyRazorpayRequest struct {
	OrderID   string `json:"razorpay_order_id" binding:"required"`
	PaymentID string `json:"razorpay_payment_id" binding:"required"`
	Signature string `json:"razorpay_signature" binding:"required"`
}

// ProcessStripeRequest carries the client-side payment method token.
type ProcessStripeRequest struct {
	PaymentMethodID string `json:"payment_method_id" binding:"required"`
}

// ConfirmStripeRequest identifies a payment intent the client finished
// handling (for example after 3-D Secure).
type ConfirmStripeRequest struct {
	PaymentIntentID string `json:"payment_intent_id" binding:"required"`
}

// PaymentResult is a payment together with the provider data the browser
// needs to continue checkout, if any.
type PaymentResult struct {
	Payment  *Payment               `json:"payment"`
	Checkout map[string]interface{} `json:"checkout,omitempty"`
}

// FormSummary is a form as listed to registrants.
type FormSummary struct {
	Form
	SubmissionCount int64  `json:"submission_count"`
	RemainingSlots  *int64 `json:"remaining_slots"` // nil = unlimited
}

// DashboardStats summarises registrations for administrators.
type DashboardStats struct {
	TotalForms        int64            `json:"total_forms"`
	TotalSubmissions  int64            `json:"total_submissions"`
	RevenueByCurrency map[string]int64 `json:"revenue_by_currency"`
	RecentPayments    []Payment        `json:"recent_payments"`
}
