package receipts

import (
	"context"
	"errors"

	awspkg "registration-service/pkg/aws"

	"go.uber.org/zap"
)

// Poller is satisfied by pkg/aws.SQSQueue.
type Poller interface {
	StartPolling(ctx context.Context, handler awspkg.MessageHandler) error
}

// Worker drains the receipt queue until its context is cancelled.
type Worker struct {
	poller    Poller
	generator *Generator
	logger    *zap.Logger
}

func NewWorker(poller Poller, generator *Generator, logger *zap.Logger) *Worker {
	return &Worker{poller: poller, generator: generator, logger: logger}
}

func (w *Worker) Run(ctx context.Context) {
	err := w.poller.StartPolling(ctx, w.generator.HandleMessage)
	if err != nil && !errors.Is(err, context.Canceled) {
		w.logger.Error("Receipt worker stopped", zap.Error(err))
	}
}
