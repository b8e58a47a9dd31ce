package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"registration-service/database"

	awspkg "registration-service/pkg/aws"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the registration service.
type Config struct {
	Port string
	Env  string

	DB database.Config

	RazorpayKeyID     string
	RazorpayKeySecret string
	RazorpayBaseURL   string
	StripeSecretKey   string
	StripeAPIURL      string
	GatewayTimeout    time.Duration

	RedisURL      string
	FormsCacheTTL time.Duration

	AWSRegion          string
	AWSEndpoint        string
	SNSTopicARN        string
	ReceiptQueueURL    string
	ReceiptBucket      string
	ReceiptPrefix      string
	ReceiptLinkTTL     time.Duration
	ReceiptDir         string
	ReceiptBaseURL     string
	MetricsEnabled     bool
	MetricsNamespace   string
	CloudWatchLogGroup string
	UseSecrets         bool

	JWTSecret          string
	TrustHeaders       bool // accept X-User-ID/X-User-Role from an API gateway
	AllowedOrigins     []string
	RateLimitPerMinute int
	RateLimitBurst     int
}

// SecretSource is satisfied by pkg/aws.SecretsClient.
type SecretSource interface {
	GetSecretMap(ctx context.Context, name string) (map[string]string, error)
}

const (
	dbSecretName      = "registration/DB_CREDENTIALS"
	gatewaySecretName = "registration/GATEWAY_CREDENTIALS"
)

// LoadConfig reads configuration from the environment (and an optional .env
// file), with an AWS Secrets Manager override when AWS_USE_SECRETS=true.
func LoadConfig(ctx context.Context) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port: getEnv("PORT", "8095"),
		Env:  getEnv("ENV", "development"),
		DB: database.Config{
			Host:     getEnv("POSTGRES_HOST", "localhost"),
			Port:     getEnv("POSTGRES_PORT", "5432"),
			User:     os.Getenv("POSTGRES_USER"),
			Password: os.Getenv("POSTGRES_PASSWORD"),
			Name:     os.Getenv("POSTGRES_DB"),
			SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
			TimeZone: getEnv("POSTGRES_TIMEZONE", "Asia/Kolkata"),
		},
		RazorpayKeyID:      os.Getenv("RAZORPAY_KEY_ID"),
		RazorpayKeySecret:  os.Getenv("RAZORPAY_KEY_SECRET"),
		RazorpayBaseURL:    os.Getenv("RAZORPAY_BASE_URL"),
		StripeSecretKey:    os.Getenv("STRIPE_SECRET_KEY"),
		StripeAPIURL:       os.Getenv("STRIPE_API_URL"),
		GatewayTimeout:     getDuration("GATEWAY_TIMEOUT", 15*time.Second),
		RedisURL:           os.Getenv("REDIS_URL"),
		FormsCacheTTL:      getDuration("FORMS_CACHE_TTL", time.Minute),
		AWSRegion:          getEnv("AWS_REGION", "us-east-1"),
		AWSEndpoint:        os.Getenv("AWS_ENDPOINT"),
		SNSTopicARN:        os.Getenv("PAYMENT_SNS_TOPIC_ARN"),
		ReceiptQueueURL:    os.Getenv("RECEIPT_QUEUE_URL"),
		ReceiptBucket:      os.Getenv("RECEIPT_BUCKET"),
		ReceiptPrefix:      getEnv("RECEIPT_PREFIX", "receipts"),
		ReceiptLinkTTL:     getDuration("RECEIPT_LINK_TTL", 7*24*time.Hour),
		ReceiptDir:         getEnv("RECEIPT_DIR", "./receipts-out"),
		ReceiptBaseURL:     getEnv("RECEIPT_BASE_URL", "http://localhost:8095/receipts"),
		MetricsEnabled:     os.Getenv("METRICS_ENABLED") == "true",
		MetricsNamespace:   getEnv("METRICS_NAMESPACE", "Registration"),
		CloudWatchLogGroup: os.Getenv("CLOUDWATCH_LOG_GROUP"),
		UseSecrets:         os.Getenv("AWS_USE_SECRETS") == "true",
		JWTSecret:          strings.TrimSpace(os.Getenv("JWT_SECRET")),
		TrustHeaders:       os.Getenv("TRUST_GATEWAY_HEADERS") == "true",
		AllowedOrigins:     splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		RateLimitPerMinute: getInt("RATE_LIMIT_PER_MINUTE", 100),
		RateLimitBurst:     getInt("RATE_LIMIT_BURST", 50),
	}

	if cfg.UseSecrets {
		awsCfg, err := awspkg.LoadAWSConfig(ctx, cfg.AWSRegion, cfg.AWSEndpoint)
		if err != nil {
			return nil, fmt.Errorf("load AWS config for secrets: %w", err)
		}
		cfg.applySecrets(ctx, awspkg.NewSecretsClient(awsCfg))
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applySecrets overrides credentials with values found in Secrets Manager.
// Missing secrets or keys leave the environment values in place.
func (c *Config) applySecrets(ctx context.Context, src SecretSource) {
	if m, err := src.GetSecretMap(ctx, dbSecretName); err == nil {
		override(&c.DB.User, m, "POSTGRES_USER")
		override(&c.DB.Password, m, "POSTGRES_PASSWORD")
		override(&c.DB.Name, m, "POSTGRES_DB")
		override(&c.DB.Host, m, "POSTGRES_HOST")
		override(&c.DB.Port, m, "POSTGRES_PORT")
	}
	if m, err := src.GetSecretMap(ctx, gatewaySecretName); err == nil {
		override(&c.RazorpayKeyID, m, "RAZORPAY_KEY_ID")
		override(&c.RazorpayKeySecret, m, "RAZORPAY_KEY_SECRET")
		override(&c.StripeSecretKey, m, "STRIPE_SECRET_KEY")
		override(&c.JWTSecret, m, "JWT_SECRET")
	}
}

func (c *Config) validate() error {
	if c.DB.User == "" || c.DB.Password == "" || c.DB.Name == "" || c.DB.Host == "" {
		return fmt.Errorf("database config incomplete")
	}
	if c.RazorpayKeyID == "" && c.StripeSecretKey == "" {
		return fmt.Errorf("no payment gateway configured")
	}
	if c.RazorpayKeyID != "" && c.RazorpayKeySecret == "" {
		return fmt.Errorf("RAZORPAY_KEY_SECRET not set")
	}
	if c.RateLimitPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive")
	}
	return nil
}

func override(dst *string, m map[string]string, key string) {
	if v, ok := m[key]; ok && v != "" {
		*dst = v
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil && d > 0 {
		return d
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
