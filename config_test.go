package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func setBaseEnv(t *testing.T) {
	t.Setenv("POSTGRES_USER", "app")
	t.Setenv("POSTGRES_PASSWORD", "secret")
	t.Setenv("POSTGRES_DB", "registrations")
	t.Setenv("RAZORPAY_KEY_ID", "rzp_test")
	t.Setenv("RAZORPAY_KEY_SECRET", "rzp_secret")
	t.Setenv("AWS_USE_SECRETS", "")
}

func TestLoadConfig_Defaults(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("GATEWAY_TIMEOUT", "")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com,")
	t.Setenv("TRUST_GATEWAY_HEADERS", "")

	cfg, err := LoadConfig(context.Background())
	assert.NoError(t, err)
	assert.False(t, cfg.TrustHeaders)
	assert.Equal(t, "localhost", cfg.DB.Host)
	assert.Equal(t, 15*time.Second, cfg.GatewayTimeout)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.AllowedOrigins)
	assert.Equal(t, 100, cfg.RateLimitPerMinute)
}

func TestLoadConfig_Overrides(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("GATEWAY_TIMEOUT", "3s")
	t.Setenv("RATE_LIMIT_BURST", "7")
	t.Setenv("METRICS_ENABLED", "true")
	t.Setenv("TRUST_GATEWAY_HEADERS", "true")

	cfg, err := LoadConfig(context.Background())
	assert.NoError(t, err)
	assert.True(t, cfg.TrustHeaders)
	assert.Equal(t, 3*time.Second, cfg.GatewayTimeout)
	assert.Equal(t, 7, cfg.RateLimitBurst)
	assert.True(t, cfg.MetricsEnabled)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		unset string
		want  string
	}{
		{"no db user", "POSTGRES_USER", "database config incomplete"},
		{"no razorpay secret", "RAZORPAY_KEY_SECRET", "RAZORPAY_KEY_SECRET not set"},
		{"no gateway", "RAZORPAY_KEY_ID", "no payment gateway configured"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setBaseEnv(t)
			t.Setenv("STRIPE_SECRET_KEY", "")
			t.Setenv(tt.unset, "")
			_, err := LoadConfig(context.Background())
			assert.EqualError(t, err, tt.want)
		})
	}
}

type fakeSecrets map[string]map[string]string

func (f fakeSecrets) GetSecretMap(_ context.Context, name string) (map[string]string, error) {
	if m, ok := f[name]; ok {
		return m, nil
	}
	return nil, errors.New("ResourceNotFoundException")
}

func TestApplySecrets(t *testing.T) {
	cfg := &Config{RazorpayKeyID: "env_key", StripeSecretKey: "sk_env"}
	cfg.DB.User = "env_user"

	cfg.applySecrets(context.Background(), fakeSecrets{
		dbSecretName:      {"POSTGRES_USER": "sm_user", "POSTGRES_PASSWORD": "sm_pass"},
		gatewaySecretName: {"RAZORPAY_KEY_SECRET": "sm_rzp", "STRIPE_SECRET_KEY": ""},
	})

	assert.Equal(t, "sm_user", cfg.DB.User)
	assert.Equal(t, "sm_pass", cfg.DB.Password)
	assert.Equal(t, "env_key", cfg.RazorpayKeyID)
	assert.Equal(t, "sm_rzp", cfg.RazorpayKeySecret)
	assert.Equal(t, "sk_env", cfg.StripeSecretKey)

	untouched := &Config{JWTSecret: "env"}
	untouched.applySecrets(context.Background(), fakeSecrets{})
	assert.Equal(t, "env", untouched.JWTSecret)
}
