package domain

import "time"

// PaymentGateway описывает взаимодействие с внешним платёжным шлюзом.
type PaymentGateway interface {
	// CreateOrder создаёт платёжный intent на сумму amount (в рупиях).
	// receipt — внутренний идентификатор заказа, notes — метаданные корреляции.
	// Конвертация в минимальные единицы (пайсы) выполняется на границе адаптера.
	CreateOrder(amount float64, currency, receipt string, notes map[string]string) (gatewayOrderID string, err error)
}

// Mailer отправляет письма покупателю. Вызовы best-effort: ошибка логируется,
// но никогда не валит вызывающую транзакцию.
type Mailer interface {
	SendMail(to, subject, htmlBody string) error
}

// OutboxPublisher публикует события из transactional outbox.
type OutboxPublisher interface {
	// Publish передаёт событие наружу; должен быть идемпотентным.
	Publish(event OutboxMessage) error
}

// OutboxRepository позволяет сохранять события для последующей публикации.
type OutboxRepository interface {
	Enqueue(msg OutboxMessage) (OutboxMessage, error)
	PullPending(limit int) ([]OutboxMessage, error)
	Stats() (OutboxStats, error)
	MarkSent(id string) error
	MarkFailed(id string) error
}

// TimelineRepository хранит события жизненного цикла заказа.
type TimelineRepository interface {
	Append(event TimelineEvent) error
	List(orderID string) ([]TimelineEvent, error)
}

// OutboxMessage хранит данные для публикуемого события.
type OutboxMessage struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// OutboxStats описывает текущее состояние backlog transactional outbox.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}
