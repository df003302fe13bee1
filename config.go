package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/yashrajoria/fulfillment-service/database"
	awspkg "github.com/yashrajoria/fulfillment-service/pkg/aws"
	"github.com/yashrajoria/fulfillment-service/sender"
)

const dbSecretName = "fulfillment/DB_CREDENTIALS"

// Config holds all configuration for the fulfillment service.
type Config struct {
	Env         string
	Port        string
	ServiceName string
	DB          database.Config
	AutoMigrate bool

	// Background work
	RedisURL    string
	QueueKey    string
	QueueSize   int
	Workers     int
	MaxAttempts int

	// Outbound events
	KafkaBrokers []string
	KafkaTopic   string
	SNSTopicARN  string

	// Payment provider
	PaymentQueueURL string
	WebhookSecret   string

	SMTP sender.SMTPConfig

	MetricsNamespace string
	MetricsEnabled   bool
	LogGroup         string

	Currency         string
	CurrencyExponent int

	CORSOrigins    []string
	RequestTimeout time.Duration
}

func LoadConfig() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg := &Config{
		Env:         getEnv("APP_ENV", "development"),
		Port:        getEnv("PORT", "8095"),
		ServiceName: getEnv("SERVICE_NAME", "fulfillment-service"),
		DB: database.Config{
			User:     os.Getenv("POSTGRES_USER"),
			Password: os.Getenv("POSTGRES_PASSWORD"),
			Name:     os.Getenv("POSTGRES_DB"),
			Host:     os.Getenv("POSTGRES_HOST"),
			Port:     getEnv("POSTGRES_PORT", "5432"),
			SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
			TimeZone: getEnv("POSTGRES_TIMEZONE", "Asia/Kolkata"),
		},
		AutoMigrate: getBool("DB_AUTO_MIGRATE", true),

		RedisURL:    os.Getenv("REDIS_URL"),
		QueueKey:    getEnv("TASK_QUEUE_KEY", "fulfillment:tasks"),
		QueueSize:   getInt("TASK_QUEUE_SIZE", 1024),
		Workers:     getInt("WORKER_COUNT", 4),
		MaxAttempts: getInt("TASK_MAX_ATTEMPTS", 3),

		KafkaBrokers: splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:   getEnv("FULFILLMENT_KAFKA_TOPIC", "fulfillment.events"),
		SNSTopicARN:  os.Getenv("FULFILLMENT_SNS_TOPIC_ARN"),

		PaymentQueueURL: os.Getenv("PAYMENT_EVENTS_QUEUE_URL"),
		WebhookSecret:   os.Getenv("PAYMENT_WEBHOOK_SECRET"),

		SMTP: sender.SMTPConfig{
			Host:     os.Getenv("SMTP_HOST"),
			Port:     getEnv("SMTP_PORT", "587"),
			Username: os.Getenv("SMTP_USER"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     os.Getenv("SMTP_FROM"),
		},

		MetricsNamespace: getEnv("METRICS_NAMESPACE", "ECommerce/Fulfillment"),
		MetricsEnabled:   getBool("METRICS_ENABLED", false),
		LogGroup:         os.Getenv("CLOUDWATCH_LOG_GROUP"),

		Currency:         strings.ToUpper(getEnv("CURRENCY", "INR")),
		CurrencyExponent: getInt("CURRENCY_EXPONENT", 2),

		CORSOrigins:    splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),
		RequestTimeout: time.Duration(getInt("REQUEST_TIMEOUT_SECONDS", 30)) * time.Second,
	}

	// Override DB credentials from Secrets Manager when running on AWS
	if os.Getenv("AWS_USE_SECRETS") == "true" {
		if awsCfg, err := awspkg.LoadAWSConfig(context.Background()); err == nil {
			applyDBSecret(context.Background(), awspkg.NewSecretsClient(awsCfg), &cfg.DB)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

type secretReader interface {
	GetJSON(ctx context.Context, name string) (map[string]string, error)
}

// applyDBSecret overwrites the DB settings present in the secret. A missing
// or unreadable secret leaves the environment values in place.
func applyDBSecret(ctx context.Context, secrets secretReader, db *database.Config) {
	m, err := secrets.GetJSON(ctx, dbSecretName)
	if err != nil {
		return
	}
	for key, dst := range map[string]*string{
		"POSTGRES_USER":     &db.User,
		"POSTGRES_PASSWORD": &db.Password,
		"POSTGRES_DB":       &db.Name,
		"POSTGRES_HOST":     &db.Host,
		"POSTGRES_PORT":     &db.Port,
	} {
		if v, ok := m[key]; ok && v != "" {
			*dst = v
		}
	}
}

func (c *Config) validate() error {
	if c.DB.User == "" || c.DB.Password == "" || c.DB.Name == "" || c.DB.Host == "" {
		return fmt.Errorf("database config incomplete")
	}
	if c.CurrencyExponent < 0 || c.CurrencyExponent > 4 {
		return fmt.Errorf("CURRENCY_EXPONENT must be between 0 and 4, got %d", c.CurrencyExponent)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("WORKER_COUNT must be positive")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
