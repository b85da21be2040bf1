package app

import (
	"github.com/vladislavdragonenkov/storefront/internal/httpapi"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
	"github.com/vladislavdragonenkov/storefront/internal/service/checkout"
	"github.com/vladislavdragonenkov/storefront/internal/service/webhook"
)

// buildHandler собирает сервисный слой поверх зависимостей: оркестратор
// checkout, обработчик вебхуков и HTTP handler.
//
// useOutbox управляет маршрутом нотификаций: при работающем Kafka producer
// подтверждение заказа идёт через outbox и воркер, иначе обработчик вебхуков
// шлёт письмо напрямую.
func buildHandler(cfg Config, deps *runtimeDependencies, m *metrics.CheckoutMetrics, useOutbox bool) *httpapi.Handler {
	guard := checkout.NewGuard(deps.orders, deps.products)
	orchestrator := checkout.NewOrchestrator(
		deps.orders,
		deps.products,
		deps.discounts,
		deps.timeline,
		deps.gateway,
		guard,
		m,
		cfg.GatewayKeyID,
	)

	var outboxRepo = deps.outbox
	if !useOutbox {
		outboxRepo = nil
	}
	processor := webhook.NewProcessor(
		deps.orders,
		outboxRepo,
		deps.timeline,
		deps.mailer,
		cfg.WebhookSecret,
		m,
	)

	return httpapi.NewHandler(orchestrator, processor, deps.orders, deps.timeline)
}
