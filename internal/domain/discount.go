package domain

import "time"

// DiscountType определяет механику скидки.
type DiscountType string

const (
	// DiscountTypeBundle — "N штук за фиксированную цену".
	DiscountTypeBundle DiscountType = "bundle"
	// DiscountTypePercentage — процент от суммы.
	DiscountTypePercentage DiscountType = "percentage"
)

// TargetType определяет область действия скидки.
type TargetType string

const (
	// TargetTypeCategory — скидка действует на категорию товаров.
	TargetTypeCategory TargetType = "category"
	// TargetTypeProduct — скидка действует на конкретный товар.
	TargetTypeProduct TargetType = "product"
)

// DiscountRule — правило скидки из админки. Для движка скидок это read-only вход.
type DiscountRule struct {
	ID           string
	DiscountType DiscountType
	TargetType   TargetType

	// Category заполнена для TargetTypeCategory, ProductID — для TargetTypeProduct.
	Category  string
	ProductID string

	// Параметры bundle-правила.
	BundleQty   int
	BundlePrice float64

	// Параметр percentage-правила, в процентах (0..100).
	Percentage float64

	Active    bool
	CreatedAt time.Time
}

// Validate проверяет согласованность типа правила и его параметров.
func (r *DiscountRule) Validate() []error {
	var errs []error

	switch r.DiscountType {
	case DiscountTypeBundle:
		if r.BundleQty <= 0 {
			errs = append(errs, ErrBundleQtyInvalid)
		}
		if r.BundlePrice < 0 {
			errs = append(errs, ErrBundlePriceInvalid)
		}
	case DiscountTypePercentage:
		if r.Percentage < 0 || r.Percentage > 100 {
			errs = append(errs, ErrPercentageInvalid)
		}
	default:
		errs = append(errs, ErrDiscountTypeInvalid)
	}

	switch r.TargetType {
	case TargetTypeCategory:
		if r.Category == "" {
			errs = append(errs, ErrDiscountTargetRequired)
		}
	case TargetTypeProduct:
		if r.ProductID == "" {
			errs = append(errs, ErrDiscountTargetRequired)
		}
	default:
		errs = append(errs, ErrTargetTypeInvalid)
	}

	return errs
}
