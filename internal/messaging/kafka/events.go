package kafka

import "time"

// EventType определяет тип события
type EventType string

const (
	// Order события
	EventTypeOrderCreated       EventType = "order.created"
	EventTypeOrderConfirmed     EventType = "order.confirmed"
	EventTypeOrderCancelled     EventType = "order.cancelled"
	EventTypeOrderStatusChanged EventType = "order.status_changed"

	// Notification события (письма покупателю)
	EventTypeNotificationOrderConfirmed EventType = "notification.order_confirmed"
)

// Topics для Kafka
const (
	TopicOrderEvents     = "storefront.order.events"
	TopicNotifications   = "storefront.notifications"
	TopicDeadLetterQueue = "storefront.dlq" // Dead Letter Queue для failed messages
)

// Kafka headers для retry логики
const (
	HeaderRetryCount    = "x-retry-count"
	HeaderOriginalTopic = "x-original-topic"
	HeaderErrorMessage  = "x-error-message"
	HeaderFailedAt      = "x-failed-at"
)

// OrderEvent представляет событие жизненного цикла заказа
type OrderEvent struct {
	EventType     EventType              `json:"event_type"`
	OrderID       string                 `json:"order_id"`
	CustomerName  string                 `json:"customer_name"`
	CustomerEmail string                 `json:"customer_email"`
	Status        string                 `json:"status"`
	TotalAmount   float64                `json:"total_amount"`
	Timestamp     time.Time              `json:"timestamp"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
}

// NewOrderEvent создает новое событие заказа
func NewOrderEvent(eventType EventType, orderID, customerName, customerEmail, status string, totalAmount float64, metadata map[string]interface{}) *OrderEvent {
	return &OrderEvent{
		EventType:     eventType,
		OrderID:       orderID,
		CustomerName:  customerName,
		CustomerEmail: customerEmail,
		Status:        status,
		TotalAmount:   totalAmount,
		Timestamp:     time.Now(),
		Metadata:      metadata,
	}
}
