package services

import (
	"context"
	"testing"
	"time"

	"registration-service/gateways"
	"registration-service/models"
	"registration-service/repository/memory"

	awspkg "registration-service/pkg/aws"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

// stalledMetrics blocks every call until release is closed, like a
// CloudWatch endpoint that does not answer.
type stalledMetrics struct {
	release chan struct{}
	names   chan string
}

func newStalledMetrics() *stalledMetrics {
	return &stalledMetrics{release: make(chan struct{}), names: make(chan string, 16)}
}

func (m *stalledMetrics) RecordCount(_ context.Context, name string, _ map[string]string) error {
	<-m.release
	m.names <- name
	return nil
}

func (m *stalledMetrics) RecordLatency(_ context.Context, name string, _ time.Duration, _ map[string]string) error {
	<-m.release
	m.names <- name
	return nil
}

func (m *stalledMetrics) IsEnabled() bool { return true }

func (m *stalledMetrics) waitFor(t *testing.T, name string) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case got := <-m.names:
			if got == name {
				return
			}
		case <-deadline:
			t.Fatalf("metric %s was never sent", name)
		}
	}
}

func returnsPromptly(t *testing.T, fn func()) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		defer close(done)
		fn()
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("call blocked on metrics")
	}
}

func TestSubmit_MetricsOffRequestPath(t *testing.T) {
	metrics := newStalledMetrics()
	store := memory.NewStore()
	form := newTestForm(nil)
	store.SeedForm(form)
	svc := NewSubmissionService(store, nil, metrics, nil, zap.NewNop())

	returnsPromptly(t, func() {
		_, serr := svc.Submit(context.Background(), form.ID, uuid.New(), validData())
		assert.Nil(t, serr)
	})

	close(metrics.release)
	metrics.waitFor(t, awspkg.MetricSubmissionsCreated)
}

func TestStripePayment_MetricsOffRequestPath(t *testing.T) {
	metrics := newStalledMetrics()
	store := memory.NewStore()
	form := newTestForm(nil)
	store.SeedForm(form)
	stripe := &fakeGateway{name: models.GatewayStripe, order: &gateways.Order{
		OrderID: "pi_m", ProviderPaymentID: "ch_m", Status: models.PaymentStatusSuccess,
	}}
	submissions := NewSubmissionService(store, nil, nil, nil, zap.NewNop())
	payments := NewPaymentService(store, []gateways.Gateway{stripe}, nil, nil, nil, "", metrics, time.Second, nil, zap.NewNop())

	user := uuid.New()
	sub, serr := submissions.Submit(context.Background(), form.ID, user, validData())
	assert.Nil(t, serr)

	returnsPromptly(t, func() {
		_, serr := payments.ProcessStripePayment(context.Background(), Caller{UserID: user}, sub.ID, "pm_card_visa")
		assert.Nil(t, serr)
	})

	close(metrics.release)
	metrics.waitFor(t, awspkg.MetricPaymentSucceeded)
}
