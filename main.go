package main

import (
	"context"
	"io"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"registration-service/controllers"
	"registration-service/database"
	"registration-service/gateways"
	"registration-service/middleware"
	"registration-service/receipts"
	"registration-service/repository"
	"registration-service/routes"
	"registration-service/services"

	awspkg "registration-service/pkg/aws"
	applog "registration-service/pkg/logger"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const serviceName = "registration-service"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := LoadConfig(ctx)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	awsCfg, awsErr := awspkg.LoadAWSConfig(ctx, cfg.AWSRegion, cfg.AWSEndpoint)
	awsOK := awsErr == nil

	var sink io.Writer
	if awsOK && cfg.CloudWatchLogGroup != "" {
		if w, err := awspkg.NewCloudWatchLogsWriter(ctx, awsCfg, cfg.CloudWatchLogGroup, serviceName); err == nil {
			sink = w
		} else {
			log.Printf("CloudWatch Logs unavailable: %v", err)
		}
	}
	logger, err := applog.New(cfg.Env, sink)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	if !awsOK {
		logger.Warn("AWS config unavailable, SNS, SQS, S3 and metrics disabled", zap.Error(awsErr))
	}

	db, err := database.Connect(cfg.DB, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close(db) //nolint:errcheck
	store := repository.NewGormStore(db)

	var formsCache services.FormsCache
	if cfg.RedisURL != "" {
		client, err := database.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			logger.Warn("Redis unavailable, forms cache disabled", zap.Error(err))
		} else {
			defer client.Close() //nolint:errcheck
			formsCache = services.NewRedisFormsCache(client, cfg.FormsCacheTTL, logger)
		}
	}

	var metrics awspkg.MetricsRecorder
	if awsOK {
		metrics = awspkg.NewMetricsClient(awsCfg, cfg.MetricsNamespace, cfg.MetricsEnabled)
	}
	var snsClient awspkg.SNSPublisher
	if awsOK {
		snsClient = awspkg.NewSNSClient(awsCfg)
	}

	var gws []gateways.Gateway
	if cfg.RazorpayKeyID != "" {
		gws = append(gws, gateways.NewRazorpayGateway(cfg.RazorpayKeyID, cfg.RazorpayKeySecret, cfg.RazorpayBaseURL, cfg.GatewayTimeout))
	}
	if cfg.StripeSecretKey != "" {
		gws = append(gws, gateways.NewStripeGateway(cfg.StripeSecretKey, cfg.StripeAPIURL, cfg.GatewayTimeout, logger))
	}

	receiptQueue, receiptStore, waitReceipts := buildReceipts(ctx, cfg, awsCfg, awsOK, store, metrics, logger)

	submissionService := services.NewSubmissionService(store, formsCache, metrics, time.Now, logger)
	paymentService := services.NewPaymentService(
		store,
		gws,
		receiptQueue,
		receiptStore,
		snsClient,
		cfg.SNSTopicARN,
		metrics,
		cfg.GatewayTimeout,
		time.Now,
		logger,
	)
	adminService := services.NewAdminService(store, logger)

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.MetricsMiddleware(metrics, serviceName))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))
	r.Use(middleware.RateLimitMiddleware(cfg.RateLimitPerMinute, cfg.RateLimitBurst))
	r.Use(func(c *gin.Context) {
		reqCtx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
		defer cancel()
		c.Request = c.Request.WithContext(reqCtx)
		c.Next()
	})
	if cfg.ReceiptBucket == "" || !awsOK {
		r.Static("/receipts", cfg.ReceiptDir)
	}

	if cfg.JWTSecret == "" && !cfg.TrustHeaders {
		logger.Warn("Neither JWT_SECRET nor TRUST_GATEWAY_HEADERS is set, every authenticated route will return 401")
	}
	routes.RegisterRoutes(r, routes.Controllers{
		Forms:    controllers.NewFormController(submissionService),
		Payments: controllers.NewPaymentController(paymentService),
		Admin:    controllers.NewAdminController(adminService, submissionService),
	}, middleware.AuthConfig{
		JWTSecret:           []byte(cfg.JWTSecret),
		TrustGatewayHeaders: cfg.TrustHeaders,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	logger.Info("Registration service started",
		zap.String("port", cfg.Port),
		zap.Int("gateways", len(gws)),
	)
	<-ctx.Done()
	logger.Info("Shutting down registration service...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}
	waitReceipts()
	logger.Info("Server exited cleanly")
}

// buildReceipts wires receipt storage and dispatch. With a queue URL, jobs go
// through SQS and a worker in this process drains them; otherwise they run on
// background goroutines. The returned func blocks until in-flight work ends.
func buildReceipts(
	ctx context.Context,
	cfg *Config,
	awsCfg sdkaws.Config,
	awsOK bool,
	store repository.Store,
	metrics awspkg.MetricsRecorder,
	logger *zap.Logger,
) (services.ReceiptQueue, receipts.Store, func()) {
	var emitter receipts.Store
	if awsOK && cfg.ReceiptBucket != "" {
		emitter = receipts.NewS3Emitter(awspkg.NewObjectStore(awsCfg, cfg.ReceiptBucket, cfg.ReceiptLinkTTL), cfg.ReceiptPrefix)
	} else {
		logger.Warn("Receipt bucket not configured, writing receipts to disk", zap.String("dir", cfg.ReceiptDir))
		emitter = receipts.NewDiskEmitter(cfg.ReceiptDir, cfg.ReceiptBaseURL)
	}
	generator := receipts.NewGenerator(store.Repos(), emitter, metrics, logger)

	if awsOK && cfg.ReceiptQueueURL != "" {
		sqsQueue := awspkg.NewSQSQueue(awsCfg, cfg.ReceiptQueueURL, logger)
		worker := receipts.NewWorker(sqsQueue, generator, logger)
		done := make(chan struct{})
		go func() {
			defer close(done)
			worker.Run(ctx)
		}()
		return receipts.NewSQSQueue(sqsQueue), emitter, func() { <-done }
	}

	inline := receipts.NewInlineQueue(generator, 30*time.Second, logger)
	return inline, emitter, inline.Wait
}
