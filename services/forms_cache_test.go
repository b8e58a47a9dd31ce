package services

import (
	"context"
	"errors"
	"net"
	"testing"

	"registration-service/repository/memory"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func newTestRedisClient() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:       "localhost:0",
		MaxRetries: -1,
		Dialer: func(ctx context.Context, network, addr string) (net.Conn, error) {
			return nil, errors.New("redis disabled in tests")
		},
	})
}

func TestRedisFormsCache_FailsOpen(t *testing.T) {
	cache := NewRedisFormsCache(newTestRedisClient(), 0, zap.NewNop())

	forms, ok := cache.GetOpenForms(context.Background())
	assert.False(t, ok)
	assert.Nil(t, forms)

	cache.SetOpenForms(context.Background(), nil)
	cache.Invalidate(context.Background())
}

func TestSubmissionService_WorksWithoutRedis(t *testing.T) {
	store := memory.NewStore()
	form := newTestForm(nil)
	store.SeedForm(form)
	svc := NewSubmissionService(store, NewRedisFormsCache(newTestRedisClient(), 0, zap.NewNop()), nil, nil, zap.NewNop())

	forms, serr := svc.ListAvailableForms(context.Background())
	assert.Nil(t, serr)
	assert.Len(t, forms, 1)

	_, serr = svc.Submit(context.Background(), form.ID, uuid.New(), validData())
	assert.Nil(t, serr)
}
