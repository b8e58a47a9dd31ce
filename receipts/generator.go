package receipts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"registration-service/repository"

	awspkg "registration-service/pkg/aws"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Generator turns a successful payment into a stored receipt and records its
// storage key on the payment.
type Generator struct {
	repos   repository.Repositories
	emitter Emitter
	metrics awspkg.MetricsRecorder
	logger  *zap.Logger
}

func NewGenerator(repos repository.Repositories, emitter Emitter, metrics awspkg.MetricsRecorder, logger *zap.Logger) *Generator {
	return &Generator{repos: repos, emitter: emitter, metrics: metrics, logger: logger}
}

// Generate is idempotent: payments that already carry a receipt are skipped,
// as are payments that have not succeeded.
func (g *Generator) Generate(ctx context.Context, paymentID uuid.UUID) error {
	payment, err := g.repos.Payments.FindByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			g.logger.Warn("Receipt requested for unknown payment", zap.String("payment_id", paymentID.String()))
			return nil
		}
		return fmt.Errorf("load payment: %w", err)
	}
	if !payment.IsSuccessful() || payment.ReceiptKey != nil {
		return nil
	}

	receipt := &Receipt{Payment: *payment, IssuedAt: time.Now().UTC()}
	if submission, err := g.repos.Submissions.FindByID(ctx, payment.SubmissionID); err == nil {
		if form, err := g.repos.Forms.FindByID(ctx, submission.FormID); err == nil {
			receipt.FormTitle = form.Title
		}
	}

	key, err := g.emitter.Emit(ctx, receipt)
	if err != nil {
		return fmt.Errorf("emit receipt %s: %w", payment.ReceiptNumber, err)
	}
	if err := g.repos.Payments.SetReceiptKey(ctx, payment.ID, key); err != nil {
		return fmt.Errorf("store receipt key: %w", err)
	}

	if g.metrics != nil {
		_ = g.metrics.RecordCount(ctx, awspkg.MetricReceiptsIssued, map[string]string{"Gateway": string(payment.Gateway)})
	}
	g.logger.Info("Receipt issued",
		zap.String("payment_id", payment.ID.String()),
		zap.String("receipt_number", payment.ReceiptNumber),
	)
	return nil
}

// HandleMessage decodes a queued ReceiptJob and generates its receipt.
func (g *Generator) HandleMessage(ctx context.Context, body string) error {
	job, err := decodeJob(body)
	if err != nil {
		g.logger.Error("Dropping malformed receipt job", zap.String("body", body), zap.Error(err))
		return nil
	}
	return g.Generate(ctx, job)
}
