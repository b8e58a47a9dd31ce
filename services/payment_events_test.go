package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"registration-service/gateways"
	"registration-service/models"
	"registration-service/repository/memory"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

type MockSNSPublisher struct{ mock.Mock }

func (m *MockSNSPublisher) Publish(ctx context.Context, topicArn, eventType string, message []byte) error {
	args := m.Called(ctx, topicArn, eventType, message)
	return args.Error(0)
}

type MockReceiptQueue struct{ mock.Mock }

func (m *MockReceiptQueue) Enqueue(ctx context.Context, paymentID uuid.UUID) error {
	args := m.Called(ctx, paymentID)
	return args.Error(0)
}

func TestAfterSettle_SideEffectFailuresKeepPayment(t *testing.T) {
	store := memory.NewStore()
	form := newTestForm(nil)
	store.SeedForm(form)
	user := uuid.New()
	sub, serr := NewSubmissionService(store, nil, nil, nil, zap.NewNop()).Submit(context.Background(), form.ID, user, validData())
	assert.Nil(t, serr)

	stripe := &fakeGateway{name: models.GatewayStripe, order: &gateways.Order{
		OrderID: "pi_evt", ProviderPaymentID: "ch_evt", Status: models.PaymentStatusSuccess,
	}}
	topic := "arn:aws:sns:us-east-1:000000000000:payment-events"

	queue := new(MockReceiptQueue)
	queue.On("Enqueue", mock.Anything, mock.AnythingOfType("uuid.UUID")).Return(errors.New("queue unavailable")).Once()

	publisher := new(MockSNSPublisher)
	publisher.On("Publish", mock.Anything, topic, EventPaymentSucceeded, mock.MatchedBy(func(body []byte) bool {
		var event models.PaymentEvent
		if err := json.Unmarshal(body, &event); err != nil {
			return false
		}
		return event.SubmissionID == sub.ID.String() && event.Currency == "USD" && event.Amount == form.Amount
	})).Return(errors.New("throttled")).Once()

	svc := NewPaymentService(store, []gateways.Gateway{stripe}, queue, nil, publisher, topic, nil, 0, nil, zap.NewNop())
	result, serr := svc.ProcessStripePayment(context.Background(), Caller{UserID: user}, sub.ID, "pm_card_visa")

	assert.Nil(t, serr)
	assert.Equal(t, models.PaymentStatusSuccess, result.Payment.Status)
	assert.Equal(t, models.PaymentStatusSuccess, store.Payments()[0].Status)
	queue.AssertExpectations(t)
	publisher.AssertExpectations(t)
}

func TestAfterSettle_NoTopicSkipsPublish(t *testing.T) {
	store := memory.NewStore()
	form := newTestForm(nil)
	store.SeedForm(form)
	user := uuid.New()
	sub, _ := NewSubmissionService(store, nil, nil, nil, zap.NewNop()).Submit(context.Background(), form.ID, user, validData())

	stripe := &fakeGateway{name: models.GatewayStripe, order: &gateways.Order{
		OrderID: "pi_quiet", ProviderPaymentID: "ch_quiet", Status: models.PaymentStatusSuccess,
	}}
	publisher := new(MockSNSPublisher)

	svc := NewPaymentService(store, []gateways.Gateway{stripe}, nil, nil, publisher, "", nil, 0, nil, zap.NewNop())
	_, serr := svc.ProcessStripePayment(context.Background(), Caller{UserID: user}, sub.ID, "pm_card_visa")

	assert.Nil(t, serr)
	publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
