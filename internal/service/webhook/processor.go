package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
	"github.com/vladislavdragonenkov/storefront/internal/service/checkout"
	"github.com/vladislavdragonenkov/storefront/internal/service/notify"
)

// EventPaymentCaptured — единственный тип события, который промоутит заказ.
const EventPaymentCaptured = "payment.captured"

// Outcome — результат обработки вебхука.
type Outcome string

const (
	// OutcomePromoted — заказ переведён в Payment Confirmed, сток списан.
	OutcomePromoted Outcome = "promoted"
	// OutcomeReplayed — повторная доставка; заказ уже подтверждён, состояние не менялось.
	OutcomeReplayed Outcome = "replayed"
	// OutcomeIgnored — тип события не интересен, принято без действий.
	OutcomeIgnored Outcome = "ignored"
)

// event — форма payload вебхука платёжного шлюза.
type event struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID      string            `json:"id"`
				OrderID string            `json:"order_id"`
				Email   string            `json:"email"`
				Contact string            `json:"contact"`
				Notes   map[string]string `json:"notes"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

// Processor верифицирует вебхуки шлюза и идемпотентно промоутит заказы.
type Processor struct {
	orders   domain.OrderRepository
	outbox   domain.OutboxRepository
	timeline domain.TimelineRepository
	mailer   domain.Mailer
	secret   []byte
	metrics  *metrics.CheckoutMetrics
	logger   *log.Entry
}

// NewProcessor создаёт обработчик вебхуков. outbox, timeline и mailer
// опциональны (nil): уведомление уходит через outbox при его наличии,
// иначе письмом напрямую.
func NewProcessor(
	orders domain.OrderRepository,
	outbox domain.OutboxRepository,
	timeline domain.TimelineRepository,
	mailer domain.Mailer,
	secret string,
	m *metrics.CheckoutMetrics,
) *Processor {
	return &Processor{
		orders:   orders,
		outbox:   outbox,
		timeline: timeline,
		mailer:   mailer,
		secret:   []byte(secret),
		metrics:  m,
		logger:   log.WithField("component", "webhook-processor"),
	}
}

// Handle обрабатывает один вебхук: подпись → парсинг → корреляция →
// идемпотентная промоция. Подпись считается по точным сырым байтам тела.
func (p *Processor) Handle(rawBody []byte, signature string) (Outcome, error) {
	started := time.Now()
	defer func() {
		p.metrics.RecordWebhookDuration(time.Since(started))
	}()

	if !p.VerifySignature(rawBody, signature) {
		p.metrics.RecordWebhookRejected()
		p.logger.Warn("webhook signature mismatch, possible forgery")
		return "", domain.ErrSignatureMismatch
	}

	var evt event
	if err := json.Unmarshal(rawBody, &evt); err != nil {
		p.metrics.RecordWebhookRejected()
		return "", fmt.Errorf("failed to parse webhook payload: %w", err)
	}

	if evt.Event != EventPaymentCaptured {
		p.metrics.RecordWebhookIgnored()
		p.logger.WithField("event", evt.Event).Debug("webhook event ignored")
		return OutcomeIgnored, nil
	}

	entity := evt.Payload.Payment.Entity
	orderID := entity.Notes[checkout.CorrelationNoteKey]
	if orderID == "" {
		p.metrics.RecordWebhookRejected()
		return "", domain.ErrCorrelationMissing
	}

	promoted, err := p.orders.ConfirmPayment(domain.PaymentConfirmation{
		OrderID:          orderID,
		GatewayOrderID:   entity.OrderID,
		GatewayPaymentID: entity.ID,
		CustomerMobile:   entity.Contact,
	})
	if err != nil {
		return "", fmt.Errorf("failed to confirm payment for order %s: %w", orderID, err)
	}

	if !promoted {
		p.metrics.RecordWebhookReplayed()
		p.logger.WithField("order_id", orderID).Info("webhook replay resolved as no-op")
		return OutcomeReplayed, nil
	}

	p.metrics.RecordWebhookAccepted()
	p.appendTimeline(orderID)
	p.notifyConfirmed(orderID)

	p.logger.WithFields(log.Fields{
		"order_id":           orderID,
		"gateway_payment_id": entity.ID,
	}).Info("order promoted to Payment Confirmed")
	return OutcomePromoted, nil
}

// VerifySignature сравнивает hex(HMAC-SHA256(secret, body)) с подписью
// за константное время.
func (p *Processor) VerifySignature(rawBody []byte, signature string) bool {
	mac := hmac.New(sha256.New, p.secret)
	mac.Write(rawBody)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

func (p *Processor) appendTimeline(orderID string) {
	if p.timeline == nil {
		return
	}
	err := p.timeline.Append(domain.TimelineEvent{
		OrderID:  orderID,
		Type:     "payment.confirmed",
		Occurred: time.Now(),
	})
	if err != nil {
		p.logger.WithError(err).WithField("order_id", orderID).Warn("failed to append timeline event")
		return
	}
	p.metrics.RecordTimelineEvent()
}

// notifyConfirmed ставит уведомление в outbox либо шлёт письмо напрямую.
// Оба пути best-effort: сбой логируется и не валит вебхук.
func (p *Processor) notifyConfirmed(orderID string) {
	order, err := p.orders.Get(orderID)
	if err != nil {
		p.logger.WithError(err).WithField("order_id", orderID).Warn("failed to load order for notification")
		return
	}

	if p.outbox != nil {
		payload, err := json.Marshal(kafka.NewOrderEvent(
			kafka.EventTypeOrderConfirmed,
			order.ID,
			order.CustomerName,
			order.CustomerEmail,
			string(order.Status),
			order.TotalAmount,
			nil,
		))
		if err != nil {
			p.logger.WithError(err).WithField("order_id", orderID).Warn("failed to marshal order event")
			return
		}
		_, err = p.outbox.Enqueue(domain.OutboxMessage{
			ID:            uuid.NewString(),
			AggregateType: "order",
			AggregateID:   order.ID,
			EventType:     string(kafka.EventTypeOrderConfirmed),
			Payload:       payload,
		})
		if err != nil {
			p.logger.WithError(err).WithField("order_id", orderID).Warn("failed to enqueue confirmation event")
			return
		}
		p.metrics.RecordOutboxEvent()
		return
	}

	if p.mailer == nil {
		return
	}
	if err := notify.SendConfirmation(p.mailer, order); err != nil {
		p.logger.WithError(err).WithField("order_id", orderID).Warn("failed to send confirmation mail")
	}
}
