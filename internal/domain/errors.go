package domain

import "errors"

var (
	// Ошибка пустой корзины на входе checkout.
	ErrCartEmpty = errors.New("cart must contain at least one item")
	// Ошибка отсутствующего имени покупателя.
	ErrCustomerNameRequired = errors.New("customer name is required")
	// Ошибка отсутствующего email покупателя.
	ErrCustomerEmailRequired = errors.New("customer email is required")
	// Ошибки обязательных полей адреса доставки.
	ErrAddressStreetRequired  = errors.New("shipping address street is required")
	ErrAddressCityRequired    = errors.New("shipping address city is required")
	ErrAddressCountryRequired = errors.New("shipping address country is required")
	// Ошибка отрицательной итоговой суммы заказа.
	ErrAmountNegative = errors.New("total amount must be non-negative")
	// Ошибка неподдерживаемого статуса заказа.
	ErrStatusInvalid = errors.New("order status is not supported")
	// Ошибка при некорректном количестве товара в позиции (<= 0).
	ErrItemQtyInvalid = errors.New("item qty must be greater than zero")
	// Ошибка, если цена позиции отрицательная.
	ErrItemPriceInvalid = errors.New("item price must be non-negative")
	// Ошибка отсутствующего идентификатора товара в позиции.
	ErrItemProductRequired = errors.New("item product_id is required")

	// Ошибки правил скидок.
	ErrBundleQtyInvalid       = errors.New("bundle qty must be greater than zero")
	ErrBundlePriceInvalid     = errors.New("bundle price must be non-negative")
	ErrPercentageInvalid      = errors.New("percentage must be between 0 and 100")
	ErrDiscountTypeInvalid    = errors.New("discount type is not supported")
	ErrTargetTypeInvalid      = errors.New("target type is not supported")
	ErrDiscountTargetRequired = errors.New("discount target is required")

	// ErrOrderNotFound возвращается, если заказ не найден в репозитории.
	ErrOrderNotFound = errors.New("order not found")
	// ErrProductNotFound возвращается, если товар отсутствует в каталоге.
	ErrProductNotFound = errors.New("product not found")
	// ErrVariantNotFound возвращается, если у товара нет запрошенного варианта.
	ErrVariantNotFound = errors.New("product variant not found")
	// ErrOrderAlreadyExists сигнализирует о конфликте идентификаторов при создании.
	ErrOrderAlreadyExists = errors.New("order already exists")
	// ErrStatusTransitionInvalid — запрошенный переход не входит в граф статусов.
	ErrStatusTransitionInvalid = errors.New("order status transition is not allowed")

	// ErrStockConflict — бизнес-ошибка резервирования: запрошенное количество
	// превышает доступный (физический минус зарезервированный) сток.
	ErrStockConflict = errors.New("requested qty exceeds unreserved stock")

	// ErrGatewayCreateFailed — не удалось создать платёжный intent у шлюза.
	ErrGatewayCreateFailed = errors.New("payment gateway order creation failed")
	// ErrGatewayTemporary — временная ошибка шлюза, имеет смысл повторить попытку.
	ErrGatewayTemporary = errors.New("payment gateway temporary error")

	// ErrSignatureMismatch — подпись вебхука не совпала с пересчитанной; возможная подделка.
	ErrSignatureMismatch = errors.New("webhook signature mismatch")
	// ErrCorrelationMissing — в payload вебхука нет внутреннего идентификатора заказа.
	ErrCorrelationMissing = errors.New("webhook payload missing internal order id")

	// ErrOutboxPublish — ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")
)

// IsStockConflict проверяет, является ли ошибка конфликтом резервирования стока.
func IsStockConflict(err error) bool {
	return errors.Is(err, ErrStockConflict)
}

// IsGatewayTemporary проверяет, можно ли повторить обращение к шлюзу.
func IsGatewayTemporary(err error) bool {
	return errors.Is(err, ErrGatewayTemporary)
}
