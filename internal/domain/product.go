package domain

import "time"

// ProductVariant — вариант товара (размер) со своим счётчиком стока.
type ProductVariant struct {
	Size  string
	Stock int
}

// Product описывает товар каталога в объёме, нужном ядру checkout.
// CRUD каталога живёт в админке и в этот модуль не входит.
type Product struct {
	ID       string
	Name     string
	Category string
	// Price — серверная цена за единицу в рупиях; именно она идёт в счёт.
	Price float64
	// WeightGrams — вес единицы в граммах; 0 означает "не указан".
	WeightGrams int
	// Stock — агрегатный сток; при наличии вариантов логически равен сумме их стоков.
	Stock    int
	ImageURL string
	Variants []ProductVariant

	CreatedAt time.Time
	UpdatedAt time.Time
}

// VariantStock возвращает сток варианта и признак его существования.
func (p *Product) VariantStock(size string) (int, bool) {
	for _, v := range p.Variants {
		if v.Size == size {
			return v.Stock, true
		}
	}
	return 0, false
}

// HasVariants сообщает, разбит ли товар на размерные варианты.
func (p *Product) HasVariants() bool {
	return len(p.Variants) > 0
}
