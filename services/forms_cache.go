package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"registration-service/models"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	openFormsCachePrefix = "forms:open:v:"
	formsCacheVersionKey = "forms:version"
)

// FormsCache caches the public list of open forms.
type FormsCache interface {
	GetOpenForms(ctx context.Context) ([]models.FormSummary, bool)
	SetOpenForms(ctx context.Context, forms []models.FormSummary)
	Invalidate(ctx context.Context)
}

// RedisFormsCache stores the open-forms list under a versioned key. Bumping
// the version invalidates every cached copy at once.
type RedisFormsCache struct {
	redis  *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewRedisFormsCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisFormsCache {
	return &RedisFormsCache{redis: client, ttl: ttl, logger: logger}
}

func (c *RedisFormsCache) GetOpenForms(ctx context.Context) ([]models.FormSummary, bool) {
	key, err := c.key(ctx)
	if err != nil {
		return nil, false
	}

	cached, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("Forms cache read failed", zap.Error(err))
		}
		return nil, false
	}

	var forms []models.FormSummary
	if err := json.Unmarshal(cached, &forms); err != nil {
		c.logger.Warn("Failed to unmarshal cached forms", zap.Error(err))
		return nil, false
	}
	return forms, true
}

func (c *RedisFormsCache) SetOpenForms(ctx context.Context, forms []models.FormSummary) {
	key, err := c.key(ctx)
	if err != nil {
		return
	}
	payload, err := json.Marshal(forms)
	if err != nil {
		c.logger.Warn("Failed to marshal forms for cache", zap.Error(err))
		return
	}
	if err := c.redis.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		c.logger.Warn("Failed to cache forms", zap.Error(err))
	}
}

// Invalidate is called after every accepted submission since remaining
// capacity changes.
func (c *RedisFormsCache) Invalidate(ctx context.Context) {
	if err := c.redis.Incr(ctx, formsCacheVersionKey).Err(); err != nil {
		c.logger.Warn("Failed to invalidate forms cache", zap.Error(err))
	}
}

func (c *RedisFormsCache) key(ctx context.Context) (string, error) {
	version, err := c.redis.Get(ctx, formsCacheVersionKey).Int64()
	if err == redis.Nil {
		version, err = 0, nil
	}
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%d", openFormsCachePrefix, version), nil
}

type noopFormsCache struct{}

func (noopFormsCache) GetOpenForms(context.Context) ([]models.FormSummary, bool) { return nil, false }
func (noopFormsCache) SetOpenForms(context.Context, []models.FormSummary) {}
func (noopFormsCache) Invalidate(context.Context) {}
