package app

import "time"

// StorageDriver выбирает реализацию хранилища.
type StorageDriver string

const (
	// StorageDriverMemory — in-memory репозитории, для разработки и тестов.
	StorageDriverMemory StorageDriver = "memory"
	// StorageDriverPostgres — Postgres через pgx stdlib-драйвер.
	StorageDriverPostgres StorageDriver = "postgres"
)

// Config описывает настройки запуска приложения.
type Config struct {
	APIAddr     string
	MetricsAddr string

	StorageDriver       StorageDriver
	PostgresDSN         string
	PostgresAutoMigrate bool

	// KafkaBrokers — список брокеров через запятую. Пустой — режим без Kafka:
	// подтверждённые заказы нотифицируются напрямую через мейлер.
	KafkaBrokers       string
	KafkaConsumerGroup string

	GatewayBaseURL   string
	GatewayKeyID     string
	GatewayKeySecret string
	GatewayTimeout   time.Duration

	WebhookSecret string

	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	MailFrom     string

	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxMaxAttempts  int
	OutboxRetryDelay   time.Duration
}

// DefaultConfig возвращает базовые настройки: HTTP API на :8080, метрики на
// :9090, in-memory хранилище, мок платёжного шлюза.
func DefaultConfig() Config {
	return Config{
		APIAddr:             ":8080",
		MetricsAddr:         ":9090",
		StorageDriver:       StorageDriverMemory,
		PostgresAutoMigrate: true,
		KafkaConsumerGroup:  "storefront-notify",
		GatewayTimeout:      10 * time.Second,
		OutboxPollInterval:  time.Second,
		OutboxBatchSize:     20,
		OutboxMaxAttempts:   5,
		OutboxRetryDelay:    200 * time.Millisecond,
	}
}
