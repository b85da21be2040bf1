package domain

import "time"

// OrderStatus описывает жизненный цикл заказа в магазине.
type OrderStatus string

const (
	// OrderStatusPendingPayment — теневой заказ создан, ждём подтверждения оплаты от шлюза.
	OrderStatusPendingPayment OrderStatus = "Pending Payment"
	// OrderStatusPaymentConfirmed — шлюз подтвердил списание, сток списан.
	OrderStatusPaymentConfirmed OrderStatus = "Payment Confirmed"
	// OrderStatusParcelPrepared — заказ собран и упакован.
	OrderStatusParcelPrepared OrderStatus = "Parcel Prepared"
	// OrderStatusCouried — заказ передан курьерской службе.
	OrderStatusCouried OrderStatus = "Couried"
	// OrderStatusDelivered — покупатель получил заказ.
	OrderStatusDelivered OrderStatus = "Delivered"
	// OrderStatusCancelled — заказ отменён администратором до доставки.
	OrderStatusCancelled OrderStatus = "Cancelled"
)

// Valid проверяет, что статус относится к поддерживаемым значениям.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPendingPayment, OrderStatusPaymentConfirmed, OrderStatusParcelPrepared,
		OrderStatusCouried, OrderStatusDelivered, OrderStatusCancelled:
		return true
	default:
		return false
	}
}

// CanTransitionTo проверяет допустимость перехода по графу статусов.
// Cancelled достижим из любого статуса до Delivered.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if next == OrderStatusCancelled {
		return s != OrderStatusDelivered && s != OrderStatusCancelled
	}
	switch s {
	case OrderStatusPendingPayment:
		return next == OrderStatusPaymentConfirmed
	case OrderStatusPaymentConfirmed:
		return next == OrderStatusParcelPrepared
	case OrderStatusParcelPrepared:
		return next == OrderStatusCouried
	case OrderStatusCouried:
		return next == OrderStatusDelivered
	default:
		return false
	}
}

// Address — адрес доставки заказа.
type Address struct {
	Street     string
	City       string
	State      string
	Country    string
	PostalCode string
}

// Validate проверяет обязательные поля адреса.
func (a Address) Validate() []error {
	var errs []error

	if a.Street == "" {
		errs = append(errs, ErrAddressStreetRequired)
	}
	if a.City == "" {
		errs = append(errs, ErrAddressCityRequired)
	}
	if a.Country == "" {
		errs = append(errs, ErrAddressCountryRequired)
	}

	return errs
}

// OrderItem представляет одну позицию заказа, зафиксированную в момент checkout.
// Name и ImageURL денормализованы, чтобы позиция пережила последующие правки товара.
type OrderItem struct {
	ID        string
	ProductID string
	Name      string
	// Size — метка варианта товара; пустая строка означает товар без вариантов.
	Size string
	Qty  int
	// Price — цена за единицу на момент checkout, в рупиях.
	Price     float64
	ImageURL  string
	CreatedAt time.Time
}

// Order агрегирует состояние покупки: клиент, адрес, суммы, статус и позиции.
type Order struct {
	ID             string
	CustomerName   string
	CustomerEmail  string
	CustomerMobile string

	ShippingAddress Address

	// Суммы считаются только на сервере; клиентские значения не авторитетны.
	Subtotal     float64
	ShippingCost float64
	TotalAmount  float64

	Status OrderStatus

	// Корреляция с платёжным шлюзом.
	GatewayOrderID   string
	GatewayPaymentID string

	// Логистика заполняется только после подтверждения оплаты.
	LogisticsID string
	CourierName string

	Items []OrderItem

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ValidateInvariants проверяет базовые инварианты заказа и возвращает список замечаний.
func (o *Order) ValidateInvariants() []error {
	var errs []error

	if o.CustomerName == "" {
		errs = append(errs, ErrCustomerNameRequired)
	}
	if o.CustomerEmail == "" {
		errs = append(errs, ErrCustomerEmailRequired)
	}
	if len(o.Items) == 0 {
		errs = append(errs, ErrCartEmpty)
	}
	if o.TotalAmount < 0 {
		errs = append(errs, ErrAmountNegative)
	}
	if !o.Status.Valid() {
		errs = append(errs, ErrStatusInvalid)
	}

	errs = append(errs, o.ShippingAddress.Validate()...)

	for _, item := range o.Items {
		if item.Qty <= 0 {
			errs = append(errs, ErrItemQtyInvalid)
		}
		if item.Price < 0 {
			errs = append(errs, ErrItemPriceInvalid)
		}
		if item.ProductID == "" {
			errs = append(errs, ErrItemProductRequired)
		}
	}

	return errs
}

// PaymentConfirmation содержит данные вебхука, применяемые при промоции заказа.
type PaymentConfirmation struct {
	OrderID          string
	GatewayOrderID   string
	GatewayPaymentID string
	// CustomerMobile заполняется из вебхука, только если заказ был создан без телефона.
	CustomerMobile string
}
