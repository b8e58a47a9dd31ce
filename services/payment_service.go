package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"registration-service/gateways"
	"registration-service/models"
	"registration-service/repository"

	awspkg "registration-service/pkg/aws"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	RoleAdmin = "admin"

	EventPaymentSucceeded = "payment_succeeded"
)

// Caller is the authenticated identity behind a request.
type Caller struct {
	UserID uuid.UUID
	Role   string
}

func (c Caller) IsAdmin() bool { return c.Role == RoleAdmin }

// ReceiptQueue accepts successful payments for asynchronous receipt
// generation.
type ReceiptQueue interface {
	Enqueue(ctx context.Context, paymentID uuid.UUID) error
}

// ReceiptLinker resolves a stored receipt key to a link the payer can open.
type ReceiptLinker interface {
	Link(ctx context.Context, key string) (string, error)
}

// PaymentService defines the interface for payment orchestration.
type PaymentService interface {
	CreateRazorpayOrder(ctx context.Context, caller Caller, submissionID uuid.UUID) (*models.PaymentResult, *ServiceError)
	VerifyRazorpayPayment(ctx context.Context, caller Caller, proof gateways.Proof) (*models.Payment, *ServiceError)
	ProcessStripePayment(ctx context.Context, caller Caller, submissionID uuid.UUID, paymentMethodID string) (*models.PaymentResult, *ServiceError)
	ConfirmStripePayment(ctx context.Context, caller Caller, paymentIntentID string) (*models.Payment, *ServiceError)
	GetPayment(ctx context.Context, caller Caller, paymentID uuid.UUID) (*models.Payment, *ServiceError)
}

type paymentServiceImpl struct {
	store          repository.Store
	gateways       map[models.Gateway]gateways.Gateway
	receipts       ReceiptQueue
	receiptLinks   ReceiptLinker
	snsClient      awspkg.SNSPublisher
	snsTopicArn    string
	metrics        awspkg.MetricsRecorder
	gatewayTimeout time.Duration
	now            Clock
	logger         *zap.Logger
}

// NewPaymentService creates a new PaymentService. receipts, receiptLinks,
// snsClient and metrics may be nil.
func NewPaymentService(
	store repository.Store,
	gws []gateways.Gateway,
	receipts ReceiptQueue,
	receiptLinks ReceiptLinker,
	snsClient awspkg.SNSPublisher,
	snsTopicArn string,
	metrics awspkg.MetricsRecorder,
	gatewayTimeout time.Duration,
	now Clock,
	logger *zap.Logger,
) PaymentService {
	byName := make(map[models.Gateway]gateways.Gateway, len(gws))
	for _, gw := range gws {
		byName[gw.Name()] = gw
	}
	if now == nil {
		now = time.Now
	}
	if gatewayTimeout <= 0 {
		gatewayTimeout = 15 * time.Second
	}
	return &paymentServiceImpl{
		store:          store,
		gateways:       byName,
		receipts:       receipts,
		receiptLinks:   receiptLinks,
		snsClient:      snsClient,
		snsTopicArn:    snsTopicArn,
		metrics:        metrics,
		gatewayTimeout: gatewayTimeout,
		now:            now,
		logger:         logger,
	}
}

func (s *paymentServiceImpl) CreateRazorpayOrder(ctx context.Context, caller Caller, submissionID uuid.UUID) (*models.PaymentResult, *ServiceError) {
	return s.initiate(ctx, caller, submissionID, models.GatewayRazorpay, "")
}

func (s *paymentServiceImpl) ProcessStripePayment(ctx context.Context, caller Caller, submissionID uuid.UUID, paymentMethodID string) (*models.PaymentResult, *ServiceError) {
	if strings.TrimSpace(paymentMethodID) == "" {
		return nil, fieldError("payment_method_id", "The payment method id field is required.")
	}
	return s.initiate(ctx, caller, submissionID, models.GatewayStripe, paymentMethodID)
}

func (s *paymentServiceImpl) VerifyRazorpayPayment(ctx context.Context, caller Caller, proof gateways.Proof) (*models.Payment, *ServiceError) {
	return s.confirm(ctx, caller, models.GatewayRazorpay, proof)
}

func (s *paymentServiceImpl) ConfirmStripePayment(ctx context.Context, caller Caller, paymentIntentID string) (*models.Payment, *ServiceError) {
	return s.confirm(ctx, caller, models.GatewayStripe, gateways.Proof{OrderID: paymentIntentID})
}

func (s *paymentServiceImpl) GetPayment(ctx context.Context, caller Caller, paymentID uuid.UUID) (*models.Payment, *ServiceError) {
	payment, err := s.store.Repos().Payments.FindByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, newError(KindNotFound, "Payment not found")
		}
		s.logger.Error("Failed to load payment", zap.String("payment_id", paymentID.String()), zap.Error(err))
		return nil, internalError()
	}
	if payment.UserID != caller.UserID && !caller.IsAdmin() {
		return nil, newError(KindUnauthorized, "Unauthorized")
	}
	if payment.ReceiptKey != nil && s.receiptLinks != nil {
		link, err := s.receiptLinks.Link(ctx, *payment.ReceiptKey)
		if err != nil {
			s.logger.Warn("Failed to link receipt", zap.String("payment_id", paymentID.String()), zap.Error(err))
		} else {
			payment.ReceiptURL = &link
		}
	}
	return payment, nil
}

// initiate opens a provider order for a submission and records it. Nothing is
// written when the provider call fails.
func (s *paymentServiceImpl) initiate(ctx context.Context, caller Caller, submissionID uuid.UUID, name models.Gateway, paymentMethodID string) (*models.PaymentResult, *ServiceError) {
	gw, ok := s.gateways[name]
	if !ok {
		return nil, newError(KindGatewayUnavailable, "Payment gateway is not configured")
	}

	repos := s.store.Repos()
	submission, err := repos.Submissions.FindByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, newError(KindNotFound, "Submission not found")
		}
		s.logger.Error("Failed to load submission", zap.String("submission_id", submissionID.String()), zap.Error(err))
		return nil, internalError()
	}
	if submission.UserID != caller.UserID {
		return nil, newError(KindUnauthorized, "Unauthorized")
	}

	paid, err := repos.Payments.HasSuccessful(ctx, submissionID)
	if err != nil {
		s.logger.Error("Failed to check payments", zap.String("submission_id", submissionID.String()), zap.Error(err))
		return nil, internalError()
	}
	if paid || submission.IsCompleted() {
		return nil, alreadyPaid()
	}

	form, err := repos.Forms.FindByID(ctx, submission.FormID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		s.logger.Error("Failed to load form", zap.String("form_id", submission.FormID.String()), zap.Error(err))
		return nil, internalError()
	}
	if err != nil || !acceptsPayment(form, s.now()) {
		return nil, newError(KindFormUnavailable, "Form is no longer accepting payments")
	}

	receiptNumber := newReceiptNumber()
	gctx, cancel := context.WithTimeout(ctx, s.gatewayTimeout)
	started := time.Now()
	order, err := gw.OpenOrder(gctx, gateways.OrderRequest{
		SubmissionID:    submission.ID,
		UserID:          submission.UserID,
		Amount:          form.Amount,
		Receipt:         receiptNumber,
		PaymentMethodID: paymentMethodID,
	})
	cancel()
	s.recordLatency(name, time.Since(started))
	if err != nil {
		return nil, s.gatewayFailure(name, "open order", err)
	}

	payment := &models.Payment{
		ID:              uuid.New(),
		SubmissionID:    submission.ID,
		UserID:          submission.UserID,
		Gateway:         name,
		OrderID:         order.OrderID,
		Amount:          form.Amount,
		Currency:        gw.Currency(),
		Status:          models.PaymentStatusPending,
		GatewayResponse: order.Raw,
		ReceiptNumber:   receiptNumber,
	}
	if order.Status == models.PaymentStatusFailed {
		payment.Status = models.PaymentStatusFailed
	}
	captured := order.Status == models.PaymentStatusSuccess
	duplicate := false

	err = s.store.Transaction(ctx, func(repos repository.Repositories) error {
		paid, err := s.lockPaid(ctx, repos, submission.ID)
		if err != nil {
			return err
		}
		if paid {
			if !captured {
				return alreadyPaid()
			}
			payment.Status = models.PaymentStatusDuplicate
			payment.ProviderPaymentID = &order.ProviderPaymentID
			duplicate = true
			return repos.Payments.Create(ctx, payment)
		}
		if err := repos.Payments.Create(ctx, payment); err != nil {
			return err
		}
		if captured {
			return s.settle(ctx, repos, payment, order.ProviderPaymentID, order.Raw)
		}
		return nil
	})

	var serr *ServiceError
	if errors.As(err, &serr) {
		return nil, serr
	}
	if errors.Is(err, repository.ErrDuplicate) {
		// The provider handed back an order we already recorded (an
		// idempotent Stripe retry). Continue from the stored payment.
		return s.resume(ctx, name, order)
	}
	if err != nil {
		s.logger.Error("Failed to record payment",
			zap.String("gateway", string(name)),
			zap.String("order_id", order.OrderID),
			zap.Error(err),
		)
		return nil, internalError()
	}
	if duplicate {
		s.reportDuplicate(payment)
		return nil, alreadyPaid()
	}

	s.recordCount(awspkg.MetricPaymentsInitiated, name)
	s.logger.Info("Payment initiated",
		zap.String("payment_id", payment.ID.String()),
		zap.String("gateway", string(name)),
		zap.String("order_id", payment.OrderID),
		zap.String("status", string(payment.Status)),
	)
	if captured {
		s.afterSettle(ctx, payment)
	}
	return &models.PaymentResult{Payment: payment, Checkout: order.ClientData}, nil
}

// resume continues from a payment that already exists for the order.
func (s *paymentServiceImpl) resume(ctx context.Context, name models.Gateway, order *gateways.Order) (*models.PaymentResult, *ServiceError) {
	if order.Status != models.PaymentStatusSuccess {
		existing, err := s.store.Repos().Payments.FindByOrder(ctx, name, order.OrderID)
		if err != nil {
			s.logger.Error("Failed to load existing payment", zap.String("order_id", order.OrderID), zap.Error(err))
			return nil, internalError()
		}
		return &models.PaymentResult{Payment: existing, Checkout: order.ClientData}, nil
	}

	payment, serr := s.applyVerified(ctx, name, &gateways.VerifiedPayment{
		OrderID:           order.OrderID,
		ProviderPaymentID: order.ProviderPaymentID,
		Raw:               order.Raw,
		Captured:          true,
	}, nil)
	if serr != nil {
		return nil, serr
	}
	return &models.PaymentResult{Payment: payment, Checkout: order.ClientData}, nil
}

// confirm verifies a proof with the provider before touching the database,
// then applies it under the payment row lock.
func (s *paymentServiceImpl) confirm(ctx context.Context, caller Caller, name models.Gateway, proof gateways.Proof) (*models.Payment, *ServiceError) {
	gw, ok := s.gateways[name]
	if !ok {
		return nil, newError(KindGatewayUnavailable, "Payment gateway is not configured")
	}

	gctx, cancel := context.WithTimeout(ctx, s.gatewayTimeout)
	started := time.Now()
	verified, err := gw.Verify(gctx, proof)
	cancel()
	s.recordLatency(name, time.Since(started))
	if err != nil {
		switch {
		case errors.Is(err, gateways.ErrSignatureMismatch):
			s.recordFailure(name)
			s.logger.Warn("Payment signature mismatch",
				zap.String("gateway", string(name)),
				zap.String("order_id", proof.OrderID),
			)
			return nil, newError(KindVerificationFailed, "Payment verification failed")
		case errors.Is(err, gateways.ErrNotSucceeded):
			return nil, newError(KindVerificationFailed, "Payment has not been completed")
		default:
			return nil, s.gatewayFailure(name, "verify payment", err)
		}
	}

	return s.applyVerified(ctx, name, verified, &caller)
}

// applyVerified settles the payment for a verified proof. Re-delivery of the
// same proof returns the stored payment unchanged. A nil caller skips the
// ownership check.
func (s *paymentServiceImpl) applyVerified(ctx context.Context, name models.Gateway, verified *gateways.VerifiedPayment, caller *Caller) (*models.Payment, *ServiceError) {
	var result *models.Payment
	var duplicate *models.Payment
	transitioned := false

	err := s.store.Transaction(ctx, func(repos repository.Repositories) error {
		found, err := repos.Payments.FindByOrder(ctx, name, verified.OrderID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return newError(KindNotFound, "Payment not found")
			}
			return err
		}
		if caller != nil && found.UserID != caller.UserID && !caller.IsAdmin() {
			return newError(KindUnauthorized, "Unauthorized")
		}

		// Submission first, then payment: the same order initiate uses.
		paid, err := s.lockPaid(ctx, repos, found.SubmissionID)
		if err != nil {
			return err
		}
		payment, err := repos.Payments.LockByOrder(ctx, name, verified.OrderID)
		if err != nil {
			return err
		}

		switch payment.Status {
		case models.PaymentStatusSuccess:
			if payment.ProviderPaymentID != nil && *payment.ProviderPaymentID == verified.ProviderPaymentID {
				result = payment
				return nil
			}
			return newError(KindVerificationFailed, "Payment was already settled by a different transaction")
		case models.PaymentStatusDuplicate:
			if payment.ProviderPaymentID != nil && *payment.ProviderPaymentID == verified.ProviderPaymentID {
				return alreadyPaid()
			}
			return newError(KindVerificationFailed, "Payment can no longer be completed")
		case models.PaymentStatusFailed, models.PaymentStatusRefunded:
			return newError(KindVerificationFailed, "Payment can no longer be completed")
		}

		if paid {
			if !verified.Captured {
				return alreadyPaid()
			}
			updated, err := repos.Payments.MarkDuplicate(ctx, payment.ID, verified.ProviderPaymentID, verified.Raw)
			if err != nil {
				return err
			}
			if !updated {
				return errLostTransition
			}
			payment.Status = models.PaymentStatusDuplicate
			payment.ProviderPaymentID = &verified.ProviderPaymentID
			duplicate = payment
			return nil
		}

		if err := s.settle(ctx, repos, payment, verified.ProviderPaymentID, verified.Raw); err != nil {
			return err
		}
		result = payment
		transitioned = true
		return nil
	})
	if err != nil {
		var serr *ServiceError
		if errors.As(err, &serr) {
			return nil, serr
		}
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, newError(KindVerificationFailed, "Provider payment is already recorded for another payment")
		}
		s.logger.Error("Failed to settle payment",
			zap.String("gateway", string(name)),
			zap.String("order_id", verified.OrderID),
			zap.Error(err),
		)
		return nil, internalError()
	}

	if duplicate != nil {
		s.reportDuplicate(duplicate)
		return nil, alreadyPaid()
	}
	if transitioned {
		s.afterSettle(ctx, result)
	}
	return result, nil
}

var (
	errLostTransition  = errors.New("payment left pending state while locked")
	errAlreadyComplete = errors.New("submission already completed")
)

// lockPaid takes the submission row lock and reports whether the submission
// is already paid for. Every write that can settle a payment holds this lock.
func (s *paymentServiceImpl) lockPaid(ctx context.Context, repos repository.Repositories, submissionID uuid.UUID) (bool, error) {
	submission, err := repos.Submissions.LockByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, newError(KindNotFound, "Submission not found")
		}
		return false, err
	}
	if submission.IsCompleted() {
		return true, nil
	}
	return repos.Payments.HasSuccessful(ctx, submissionID)
}

// settle is the only place a payment becomes successful and a submission
// completed. Both writes share the caller's transaction.
func (s *paymentServiceImpl) settle(ctx context.Context, repos repository.Repositories, payment *models.Payment, providerPaymentID string, raw []byte) error {
	paidAt := s.now().UTC()

	updated, err := repos.Payments.MarkSucceeded(ctx, payment.ID, providerPaymentID, raw, paidAt)
	if err != nil {
		return err
	}
	if !updated {
		return errLostTransition
	}

	completed, err := repos.Submissions.MarkCompleted(ctx, payment.SubmissionID)
	if err != nil {
		return err
	}
	if !completed {
		return errAlreadyComplete
	}

	payment.Status = models.PaymentStatusSuccess
	payment.ProviderPaymentID = &providerPaymentID
	payment.GatewayResponse = raw
	payment.PaidAt = &paidAt
	return nil
}

// afterSettle runs once per successful transition, after commit. Failures are
// logged and never affect payment state.
func (s *paymentServiceImpl) afterSettle(ctx context.Context, payment *models.Payment) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	s.logger.Info("Payment succeeded",
		zap.String("payment_id", payment.ID.String()),
		zap.String("submission_id", payment.SubmissionID.String()),
		zap.String("gateway", string(payment.Gateway)),
		zap.Int64("amount", payment.Amount),
		zap.String("currency", payment.Currency),
	)

	if s.receipts != nil {
		if err := s.receipts.Enqueue(ctx, payment.ID); err != nil {
			s.logger.Error("Failed to enqueue receipt", zap.String("payment_id", payment.ID.String()), zap.Error(err))
		}
	}

	s.recordCount(awspkg.MetricPaymentSucceeded, payment.Gateway)

	if s.snsClient == nil || s.snsTopicArn == "" {
		s.logger.Warn("SNS not configured, skipping payment event", zap.String("payment_id", payment.ID.String()))
		return
	}
	event := models.PaymentEvent{
		Type:          EventPaymentSucceeded,
		PaymentID:     payment.ID.String(),
		SubmissionID:  payment.SubmissionID.String(),
		UserID:        payment.UserID.String(),
		Gateway:       string(payment.Gateway),
		Amount:        payment.Amount,
		Currency:      payment.Currency,
		ReceiptNumber: payment.ReceiptNumber,
		Timestamp:     s.now().UTC(),
	}
	body, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("Failed to marshal payment event", zap.Error(err))
		return
	}
	if err := s.snsClient.Publish(ctx, s.snsTopicArn, EventPaymentSucceeded, body); err != nil {
		s.logger.Error("Failed to publish payment event", zap.String("payment_id", payment.ID.String()), zap.Error(err))
	}
}

// reportDuplicate flags a capture that arrived after the submission was
// settled. The money must be returned through the provider dashboard.
func (s *paymentServiceImpl) reportDuplicate(payment *models.Payment) {
	providerID := ""
	if payment.ProviderPaymentID != nil {
		providerID = *payment.ProviderPaymentID
	}
	s.logger.Error("Duplicate capture for an already paid submission, refund required",
		zap.String("payment_id", payment.ID.String()),
		zap.String("submission_id", payment.SubmissionID.String()),
		zap.String("gateway", string(payment.Gateway)),
		zap.String("provider_payment_id", providerID),
		zap.Int64("amount", payment.Amount),
		zap.String("currency", payment.Currency),
	)
	s.recordCount(awspkg.MetricPaymentDuplicate, payment.Gateway)
}

func (s *paymentServiceImpl) gatewayFailure(name models.Gateway, op string, err error) *ServiceError {
	fields := []zap.Field{zap.String("gateway", string(name)), zap.String("op", op), zap.Error(err)}
	switch {
	case gateways.IsTimeout(err):
		s.logger.Warn("Payment gateway timed out", fields...)
		return newError(KindGatewayUnavailable, "Payment gateway did not respond, please retry")
	case errors.Is(err, gateways.ErrDeclined):
		s.logger.Info("Payment declined", fields...)
		s.recordFailure(name)
		return newError(KindVerificationFailed, "Payment was declined")
	default:
		s.logger.Error("Payment gateway error", fields...)
		return newError(KindGatewayError, "Payment gateway error, please retry")
	}
}

func (s *paymentServiceImpl) recordLatency(name models.Gateway, d time.Duration) {
	awspkg.RecordLatencyAsync(s.metrics, awspkg.MetricGatewayLatency, d, map[string]string{"Gateway": string(name)})
}

func (s *paymentServiceImpl) recordCount(metric string, name models.Gateway) {
	awspkg.RecordCountAsync(s.metrics, metric, map[string]string{"Gateway": string(name)})
}

func (s *paymentServiceImpl) recordFailure(name models.Gateway) {
	s.recordCount(awspkg.MetricPaymentFailed, name)
}

func alreadyPaid() *ServiceError {
	return newError(KindAlreadyPaid, "Submission is already paid")
}

// newReceiptNumber returns RCP- followed by 16 upper-case hex characters.
func newReceiptNumber() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "RCP-" + strings.ToUpper(id[:16])
}
