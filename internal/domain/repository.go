package domain

import "time"

// OrderRepository описывает требования к хранилищу заказов.
type OrderRepository interface {
	// Create сохраняет заказ вместе с позициями в одной транзакции.
	// Возвращает ErrOrderAlreadyExists, если запись с таким ID уже существует.
	Create(order Order) error
	// Get возвращает заказ по идентификатору или ErrOrderNotFound, если его нет.
	Get(id string) (Order, error)
	// ListByEmail возвращает заказы покупателя с опциональным ограничением на количество.
	ListByEmail(email string, limit int) ([]Order, error)
	// SetGatewayOrder записывает идентификатор заказа на стороне шлюза.
	SetGatewayOrder(orderID, gatewayOrderID string) error
	// ReservedQty суммирует количество товара в позициях заказов со статусом
	// Pending Payment, созданных после since. Пустой size с любой стороны
	// сравнения трактуется как wildcard.
	ReservedQty(productID, size string, since time.Time) (int, error)
	// ConfirmPayment атомарно переводит заказ Pending Payment → Payment Confirmed
	// и списывает сток по всем позициям (сначала вариант, затем агрегат, с полом в ноль)
	// в одной транзакции. Возвращает false без ошибки, если заказ уже был
	// подтверждён — так повторная доставка вебхука остаётся безопасной.
	ConfirmPayment(conf PaymentConfirmation) (bool, error)
	// UpdateStatus выполняет fulfillment-переход по графу статусов; для Couried
	// одновременно фиксирует логистические поля. Недопустимый переход —
	// ErrStatusTransitionInvalid.
	UpdateStatus(orderID string, next OrderStatus, logisticsID, courierName string) error
}

// ProductRepository — read-only доступ ядра checkout к каталогу.
// Мутации стока выполняются только внутри ConfirmPayment.
type ProductRepository interface {
	// Get возвращает товар с вариантами или ErrProductNotFound.
	Get(id string) (Product, error)
}

// DiscountRuleRepository отдаёт активные правила скидок для движка.
type DiscountRuleRepository interface {
	ListActive() ([]DiscountRule, error)
}
