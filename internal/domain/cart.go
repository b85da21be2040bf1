package domain

// CartLine — одна позиция корзины на входе checkout.
// Клиент передаёт только идентификаторы и количество; цены и веса
// берутся из каталога на сервере.
type CartLine struct {
	ProductID string
	// Size — запрошенный вариант; пустая строка для товара без вариантов.
	Size string
	Qty  int
}

// Customer — контактные данные покупателя из формы checkout.
type Customer struct {
	Name   string
	Email  string
	Mobile string
}

// Validate проверяет позиции корзины перед началом checkout.
func ValidateCart(lines []CartLine) []error {
	var errs []error

	if len(lines) == 0 {
		errs = append(errs, ErrCartEmpty)
		return errs
	}
	for _, line := range lines {
		if line.ProductID == "" {
			errs = append(errs, ErrItemProductRequired)
		}
		if line.Qty <= 0 {
			errs = append(errs, ErrItemQtyInvalid)
		}
	}

	return errs
}
