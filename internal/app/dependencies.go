package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/storefront/internal/health"
	"github.com/vladislavdragonenkov/storefront/internal/service/notify"
	"github.com/vladislavdragonenkov/storefront/internal/service/payment"
	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
	"github.com/vladislavdragonenkov/storefront/internal/storage/postgres"
)

var errPostgresDSNRequired = errors.New("postgres dsn is required for postgres storage driver")

// runtimeDependencies — хранилище и внешние порты, собранные по конфигу.
type runtimeDependencies struct {
	orders    domain.OrderRepository
	products  domain.ProductRepository
	discounts domain.DiscountRuleRepository
	outbox    domain.OutboxRepository
	timeline  domain.TimelineRepository

	gateway domain.PaymentGateway
	mailer  domain.Mailer

	storageChecker healthcheck.Checker
	closeFn        func() error
}

// initRuntimeDependencies собирает репозитории по выбранному драйверу и
// внешние адаптеры (платёжный шлюз, мейлер) по наличию их настроек.
func initRuntimeDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*runtimeDependencies, error) {
	deps := &runtimeDependencies{
		gateway: initGateway(cfg, logger),
		mailer:  initMailer(cfg, logger),
	}

	switch cfg.StorageDriver {
	case StorageDriverMemory:
		products := memory.NewProductRepository()
		seedDemoCatalog(products, logger)
		deps.products = products
		deps.orders = memory.NewOrderRepository(products)
		deps.discounts = memory.NewDiscountRuleRepository()
		deps.outbox = memory.NewOutboxRepository()
		deps.timeline = memory.NewTimelineRepository()
		return deps, nil

	case StorageDriverPostgres:
		if cfg.PostgresDSN == "" {
			return nil, errPostgresDSNRequired
		}
		store, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		if cfg.PostgresAutoMigrate {
			if err := store.EnsureSchema(ctx); err != nil {
				_ = store.Close()
				return nil, fmt.Errorf("ensure schema: %w", err)
			}
		}
		deps.orders = postgres.NewOrderRepository(store)
		deps.products = postgres.NewProductRepository(store)
		deps.discounts = postgres.NewDiscountRuleRepository(store)
		deps.outbox = postgres.NewOutboxRepository(store)
		deps.timeline = postgres.NewTimelineRepository(store)
		deps.storageChecker = healthcheck.NewSimpleChecker("storage", func() error {
			pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return store.Ping(pingCtx)
		})
		deps.closeFn = store.Close
		return deps, nil

	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}
}

func (d *runtimeDependencies) close() error {
	if d.closeFn == nil {
		return nil
	}
	return d.closeFn()
}

// initGateway выбирает платёжный адаптер: реальный HTTP-клиент при полном
// наборе ключей, иначе мок с предупреждением в логе.
func initGateway(cfg Config, logger *log.Entry) domain.PaymentGateway {
	if cfg.GatewayBaseURL != "" && cfg.GatewayKeyID != "" && cfg.GatewayKeySecret != "" {
		return payment.NewGatewayClient(cfg.GatewayBaseURL, cfg.GatewayKeyID, cfg.GatewayKeySecret, cfg.GatewayTimeout)
	}
	logger.Warn("payment gateway credentials are not configured, using mock gateway")
	return payment.NewMockGateway()
}

// initMailer выбирает мейлер: SMTP при заданном хосте, иначе лог-заглушка.
func initMailer(cfg Config, logger *log.Entry) domain.Mailer {
	if cfg.SMTPHost != "" {
		return notify.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.MailFrom)
	}
	logger.Warn("smtp is not configured, confirmation mails will be logged only")
	return notify.NewLogMailer()
}

// seedDemoCatalog наполняет in-memory каталог демо-товарами, чтобы checkout
// работал из коробки в режиме разработки.
func seedDemoCatalog(products *memory.ProductRepository, logger *log.Entry) {
	demo := []domain.Product{
		{
			ID: "prod-linen-shirt", Name: "Linen Shirt", Category: "Shirts",
			Price: 500, WeightGrams: 300, Stock: 25,
			Variants: []domain.ProductVariant{{Size: "M", Stock: 10}, {Size: "L", Stock: 10}, {Size: "XL", Stock: 5}},
		},
		{
			ID: "prod-cotton-saree", Name: "Cotton Saree", Category: "Sarees",
			Price: 1200, WeightGrams: 600, Stock: 12,
		},
		{
			ID: "prod-jute-bag", Name: "Jute Tote Bag", Category: "Accessories",
			Price: 250, WeightGrams: 150, Stock: 40,
		},
	}
	for _, p := range demo {
		products.Put(p)
	}
	logger.WithField("products", len(demo)).Info("demo catalog seeded into memory storage")
}
