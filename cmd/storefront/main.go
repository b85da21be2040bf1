package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/app"
)

// setupLogger настраивает формат и уровень логирования для сервиса.
func setupLogger() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(log.InfoLevel)
	if level, err := log.ParseLevel(os.Getenv("STOREFRONT_LOG_LEVEL")); err == nil {
		log.SetLevel(level)
	}
}

// readConfig формирует конфигурацию приложения, позволяя переопределить
// значения через переменные окружения.
func readConfig() app.Config {
	cfg := app.DefaultConfig()

	cfg.APIAddr = envStr("STOREFRONT_API_ADDR", cfg.APIAddr)
	cfg.MetricsAddr = envStr("STOREFRONT_METRICS_ADDR", cfg.MetricsAddr)

	cfg.StorageDriver = app.StorageDriver(envStr("STOREFRONT_STORAGE_DRIVER", string(cfg.StorageDriver)))
	cfg.PostgresDSN = envStr("STOREFRONT_POSTGRES_DSN", cfg.PostgresDSN)
	cfg.PostgresAutoMigrate = envBool("STOREFRONT_POSTGRES_AUTO_MIGRATE", cfg.PostgresAutoMigrate)

	cfg.KafkaBrokers = envStr("KAFKA_BROKERS", cfg.KafkaBrokers)
	cfg.KafkaConsumerGroup = envStr("STOREFRONT_KAFKA_GROUP", cfg.KafkaConsumerGroup)

	cfg.GatewayBaseURL = envStr("STOREFRONT_GATEWAY_BASE_URL", cfg.GatewayBaseURL)
	cfg.GatewayKeyID = envStr("STOREFRONT_GATEWAY_KEY_ID", cfg.GatewayKeyID)
	cfg.GatewayKeySecret = envStr("STOREFRONT_GATEWAY_KEY_SECRET", cfg.GatewayKeySecret)
	cfg.GatewayTimeout = envDuration("STOREFRONT_GATEWAY_TIMEOUT", cfg.GatewayTimeout)
	cfg.WebhookSecret = envStr("STOREFRONT_WEBHOOK_SECRET", cfg.WebhookSecret)

	cfg.SMTPHost = envStr("STOREFRONT_SMTP_HOST", cfg.SMTPHost)
	cfg.SMTPPort = envInt("STOREFRONT_SMTP_PORT", cfg.SMTPPort)
	cfg.SMTPUser = envStr("STOREFRONT_SMTP_USER", cfg.SMTPUser)
	cfg.SMTPPassword = envStr("STOREFRONT_SMTP_PASSWORD", cfg.SMTPPassword)
	cfg.MailFrom = envStr("STOREFRONT_MAIL_FROM", cfg.MailFrom)

	cfg.OutboxPollInterval = envDuration("STOREFRONT_OUTBOX_POLL_INTERVAL", cfg.OutboxPollInterval)
	cfg.OutboxBatchSize = envInt("STOREFRONT_OUTBOX_BATCH_SIZE", cfg.OutboxBatchSize)
	cfg.OutboxMaxAttempts = envInt("STOREFRONT_OUTBOX_MAX_ATTEMPTS", cfg.OutboxMaxAttempts)
	cfg.OutboxRetryDelay = envDuration("STOREFRONT_OUTBOX_RETRY_DELAY", cfg.OutboxRetryDelay)

	return cfg
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			return parsed
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			return parsed
		}
	}
	return fallback
}

func main() {
	// .env удобен в разработке; в проде переменные приходят из окружения.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("failed to load .env file")
	}

	setupLogger()
	cfg := readConfig()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithFields(log.Fields{
		"api_addr":     cfg.APIAddr,
		"metrics_addr": cfg.MetricsAddr,
		"storage":      cfg.StorageDriver,
	}).Info("запускаем storefront")

	if err := app.Run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Fatal("приложение завершилось с ошибкой")
	}

	log.Info("storefront остановлен")
}
