package notify

import (
	"context"
	"fmt"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/messaging/kafka"
)

// Service обрабатывает события заказов из Kafka и рассылает письма покупателям.
type Service struct {
	orders domain.OrderRepository
	mailer domain.Mailer
	logger *log.Entry
}

// NewService создаёт сервис уведомлений.
func NewService(orders domain.OrderRepository, mailer domain.Mailer) *Service {
	return &Service{
		orders: orders,
		mailer: mailer,
		logger: log.WithField("component", "notify-service"),
	}
}

// HandleMessage — kafka.MessageHandler для топика событий заказов.
// Сообщения приходят в формате outbox-конверта; интересует только
// подтверждение оплаты, остальные события пропускаются.
func (s *Service) HandleMessage(_ context.Context, message *sarama.ConsumerMessage) error {
	envelope, err := kafka.ParseOutboxEnvelope(message)
	if err != nil {
		// Нечитаемое сообщение бессмысленно ретраить, уйдёт в DLQ.
		return fmt.Errorf("failed to parse outbox envelope: %w", err)
	}

	if envelope.EventType != string(kafka.EventTypeOrderConfirmed) {
		s.logger.WithFields(log.Fields{
			"event_type": envelope.EventType,
			"order_id":   envelope.AggregateID,
		}).Debug("event type ignored")
		return nil
	}

	orderID := envelope.AggregateID
	order, err := s.orders.Get(orderID)
	if err != nil {
		return fmt.Errorf("failed to load order %s: %w", orderID, err)
	}

	if err := SendConfirmation(s.mailer, order); err != nil {
		return fmt.Errorf("failed to send confirmation for order %s: %w", orderID, err)
	}

	s.logger.WithFields(log.Fields{
		"order_id": orderID,
		"to":       order.CustomerEmail,
	}).Info("order confirmation mail sent")
	return nil
}
