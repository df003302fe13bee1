package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	apperrors "github.com/yashrajoria/fulfillment-service/common/errors"
	"github.com/yashrajoria/fulfillment-service/common/logger"
	commonmw "github.com/yashrajoria/fulfillment-service/common/middleware"
	"github.com/yashrajoria/fulfillment-service/controllers"
	"github.com/yashrajoria/fulfillment-service/database"
	"github.com/yashrajoria/fulfillment-service/events"
	"github.com/yashrajoria/fulfillment-service/kafka"
	awspkg "github.com/yashrajoria/fulfillment-service/pkg/aws"
	"github.com/yashrajoria/fulfillment-service/repository"
	"github.com/yashrajoria/fulfillment-service/routes"
	"github.com/yashrajoria/fulfillment-service/sender"
	"github.com/yashrajoria/fulfillment-service/services"
	"github.com/yashrajoria/fulfillment-service/worker"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := LoadConfig()
	if err != nil {
		panic("config load failed: " + err.Error())
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// AWS is optional locally; every AWS-backed feature is skipped without it
	awsCfg, awsErr := awspkg.LoadAWSConfig(ctx)

	var sink io.Writer
	if cfg.LogGroup != "" && awsErr == nil {
		if cwLogs, err := awspkg.NewCloudWatchLogsClient(ctx, awsCfg, cfg.LogGroup, cfg.ServiceName); err == nil {
			sink = cwLogs
		}
	}
	log, err := logger.New(cfg.Env, sink)
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer log.Sync()
	if awsErr != nil {
		log.Warn("AWS config unavailable, SNS/SQS/CloudWatch disabled", zap.Error(awsErr))
	}

	db, err := database.ConnectPostgres(cfg.DB, cfg.AutoMigrate, log)
	if err != nil {
		log.Fatal("Database connection failed", zap.Error(err))
	}
	defer database.Close(db)

	// --- Repositories ---
	tx := repository.NewGormTransactor(db)
	inventoryRepo := repository.NewGormInventoryRepository(db)
	catalogRepo := repository.NewGormCatalogRepository(db)
	cartRepo := repository.NewGormCartRepository(db)
	orderRepo := repository.NewGormOrderRepository(db)
	paymentRepo := repository.NewGormPaymentRepository(db)
	shippingRepo := repository.NewGormShippingRepository(db)
	addressRepo := repository.NewGormAddressRepository(db)
	userRepo := repository.NewGormUserRepository(db)
	notificationRepo := repository.NewGormNotificationRepository(db)
	voucherRepo := repository.NewGormVoucherRepository(db)

	// --- Task queue ---
	var queue worker.Queue
	if cfg.RedisURL != "" {
		rdb, err := worker.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatal("Redis connection failed", zap.Error(err))
		}
		defer rdb.Close()
		queue = worker.NewRedisQueue(rdb, cfg.QueueKey)
	} else {
		log.Warn("REDIS_URL not set, using in-memory task queue")
		queue = worker.NewMemoryQueue(cfg.QueueSize)
	}

	// --- Services ---
	bus := events.NewBus(log)

	stockService := services.NewStockAllocator(tx, inventoryRepo, bus, log)
	voucherService := services.NewVoucherService(voucherRepo, log)
	cartService := services.NewCartPricingEngine(cartRepo, catalogRepo, stockService, voucherService, log)
	orderService := services.NewOrderSaga(services.OrderDeps{
		Tx:        tx,
		Orders:    orderRepo,
		Payments:  paymentRepo,
		Addresses: addressRepo,
		Carts:     cartRepo,
		Catalog:   catalogRepo,
		Stock:     stockService,
		Vouchers:  voucherService,
		Publisher: bus,
	}, log)
	reviewService := services.NewReviewService(tx, catalogRepo, bus, log)
	paymentConsumer := services.NewPaymentEventConsumer(bus, log)

	services.NewStatusCoordinator(tx, orderRepo, paymentRepo, shippingRepo, stockService, log).Register(bus)

	var email sender.EmailSender = sender.NewLogSender(log)
	if cfg.SMTP.Host != "" {
		smtpSender, err := sender.NewSMTPSender(cfg.SMTP)
		if err != nil {
			log.Warn("SMTP sender init failed, emails will be logged only", zap.Error(err))
		} else {
			email = smtpSender
		}
	}
	notifier := services.NewNotificationService(notificationRepo, userRepo, email, log)
	currency := services.NewCurrencyFormatter(cfg.Currency, cfg.CurrencyExponent)
	services.NewNotificationFanout(queue, userRepo, orderRepo, currency, log).Register(bus)

	var kafkaSink services.KeyedPublisher
	if len(cfg.KafkaBrokers) > 0 {
		producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic, log)
		defer producer.Close()
		kafkaSink = producer
	}
	var topic awspkg.SNSPublisher
	if cfg.SNSTopicARN != "" && awsErr == nil {
		topic = awspkg.NewSNSClient(awsCfg)
	}
	relay := services.NewEventRelay(queue, kafkaSink, topic, cfg.SNSTopicARN, log)
	if relay.Enabled() {
		relay.Register(bus)
	}

	var httpMetrics commonmw.HTTPMetrics
	if awsErr == nil {
		metricsClient := awspkg.NewMetricsClient(awsCfg, cfg.MetricsNamespace, cfg.MetricsEnabled)
		if metricsClient.IsEnabled() {
			services.NewMetricsRecorder(metricsClient, log).Register(bus)
		}
		httpMetrics = metricsClient
	}

	pool := worker.NewPool(queue, worker.PoolConfig{
		Workers:     cfg.Workers,
		MaxAttempts: cfg.MaxAttempts,
		Backoff:     2 * time.Second,
	}, log)
	pool.Register(services.TaskSendNotification, notifier.HandleTask)
	pool.Register(services.TaskRelayEvent, relay.HandleTask)

	// --- HTTP router ---
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.RequestID())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID", "X-User-ID", "X-User-Role"},
		ExposeHeaders:    []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(commonmw.Metrics(httpMetrics, cfg.ServiceName))
	r.Use(commonmw.RequestLogger(log))
	r.Use(commonmw.Timeout(cfg.RequestTimeout))
	r.Use(apperrors.ErrorMiddleware())

	routes.RegisterRoutes(r, routes.Controllers{
		Cart:          controllers.NewCartController(cartService),
		Orders:        controllers.NewOrderController(orderService),
		Inventory:     controllers.NewInventoryController(stockService),
		Notifications: controllers.NewNotificationController(notifier),
		Reviews:       controllers.NewReviewController(reviewService),
		Payments:      controllers.NewPaymentController(paymentConsumer),
	}, cfg.WebhookSecret)

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return pool.Run(gctx)
	})
	if cfg.PaymentQueueURL != "" && awsErr == nil {
		g.Go(func() error {
			return paymentConsumer.Run(gctx, awspkg.NewSQSConsumer(awsCfg, cfg.PaymentQueueURL, log))
		})
	}
	g.Go(func() error {
		log.Info("Fulfillment Service starting", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down Fulfillment Service...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("Fulfillment Service stopped with error", zap.Error(err))
		return
	}
	log.Info("Fulfillment Service stopped gracefully")
}
