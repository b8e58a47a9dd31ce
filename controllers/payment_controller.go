package controllers

import (
	"net/http"

	"registration-service/gateways"
	"registration-service/middleware"
	"registration-service/models"
	"registration-service/services"

	"github.com/gin-gonic/gin"
)

// PaymentController exposes both gateway flows.
type PaymentController struct {
	payments services.PaymentService
}

func NewPaymentController(svc services.PaymentService) *PaymentController {
	return &PaymentController{payments: svc}
}

// CreateRazorpayOrder handles POST /submissions/:id/payment/razorpay/create
func (pc *PaymentController) CreateRazorpayOrder(ctx *gin.Context) {
	submissionID, ok := parseIDParam(ctx, "id", "Submission")
	if !ok {
		return
	}
	result, svcErr := pc.payments.CreateRazorpayOrder(ctx.Request.Context(), middleware.GetCaller(ctx), submissionID)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"payment": result.Payment, "checkout": result.Checkout})
}

// VerifyRazorpay handles POST /payments/razorpay/verify
func (pc *PaymentController) VerifyRazorpay(ctx *gin.Context) {
	var req models.VerifyRazorpayRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}

	payment, svcErr := pc.payments.VerifyRazorpayPayment(ctx.Request.Context(), middleware.GetCaller(ctx), gateways.Proof{
		OrderID:   req.OrderID,
		PaymentID: req.PaymentID,
		Signature: req.Signature,
	})
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "Payment verified successfully", "payment": payment})
}

// ProcessStripe handles POST /submissions/:id/payment/stripe/process
func (pc *PaymentController) ProcessStripe(ctx *gin.Context) {
	submissionID, ok := parseIDParam(ctx, "id", "Submission")
	if !ok {
		return
	}
	var req models.ProcessStripeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}

	result, svcErr := pc.payments.ProcessStripePayment(ctx.Request.Context(), middleware.GetCaller(ctx), submissionID, req.PaymentMethodID)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	if !result.Payment.IsSuccessful() {
		ctx.JSON(http.StatusAccepted, gin.H{
			"message":         "Payment requires additional action",
			"requires_action": true,
			"payment":         result.Payment,
			"checkout":        result.Checkout,
		})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "Payment processed successfully", "payment": result.Payment})
}

// ConfirmStripe handles POST /payments/stripe/confirm
func (pc *PaymentController) ConfirmStripe(ctx *gin.Context) {
	var req models.ConfirmStripeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}

	payment, svcErr := pc.payments.ConfirmStripePayment(ctx.Request.Context(), middleware.GetCaller(ctx), req.PaymentIntentID)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "Payment processed successfully", "payment": payment})
}

// GetPayment handles GET /payments/:id
func (pc *PaymentController) GetPayment(ctx *gin.Context) {
	paymentID, ok := parseIDParam(ctx, "id", "Payment")
	if !ok {
		return
	}
	payment, svcErr := pc.payments.GetPayment(ctx.Request.Context(), middleware.GetCaller(ctx), paymentID)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"payment": payment})
}
