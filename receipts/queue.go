package receipts

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"registration-service/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Queue hands receipt generation off the request path.
type Queue interface {
	Enqueue(ctx context.Context, paymentID uuid.UUID) error
}

// MessageSender is satisfied by pkg/aws.SQSQueue.
type MessageSender interface {
	SendMessage(ctx context.Context, body string) error
}

// SQSQueue enqueues receipt jobs onto an SQS queue drained by Worker.
type SQSQueue struct {
	sender MessageSender
}

func NewSQSQueue(sender MessageSender) *SQSQueue {
	return &SQSQueue{sender: sender}
}

func (q *SQSQueue) Enqueue(ctx context.Context, paymentID uuid.UUID) error {
	body, err := json.Marshal(models.ReceiptJob{PaymentID: paymentID.String()})
	if err != nil {
		return err
	}
	if err := q.sender.SendMessage(ctx, string(body)); err != nil {
		return fmt.Errorf("enqueue receipt job: %w", err)
	}
	return nil
}

func decodeJob(body string) (uuid.UUID, error) {
	var job models.ReceiptJob
	if err := json.Unmarshal([]byte(body), &job); err != nil {
		return uuid.Nil, err
	}
	return uuid.Parse(job.PaymentID)
}

// InlineQueue generates receipts on background goroutines in this process.
type InlineQueue struct {
	generator *Generator
	timeout   time.Duration
	logger    *zap.Logger
	wg        sync.WaitGroup
}

func NewInlineQueue(generator *Generator, timeout time.Duration, logger *zap.Logger) *InlineQueue {
	return &InlineQueue{generator: generator, timeout: timeout, logger: logger}
}

// Enqueue never fails. The job outlives the request context.
func (q *InlineQueue) Enqueue(_ context.Context, paymentID uuid.UUID) error {
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
		defer cancel()

		if err := q.generator.Generate(ctx, paymentID); err != nil {
			q.logger.Error("Receipt generation failed", zap.String("payment_id", paymentID.String()), zap.Error(err))
		}
	}()
	return nil
}

// Wait blocks until every enqueued job has finished.
func (q *InlineQueue) Wait() {
	q.wg.Wait()
}
