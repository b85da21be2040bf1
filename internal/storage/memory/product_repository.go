package memory

import (
	"sync"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// ProductRepository — in-memory каталог для локальной разработки и тестов.
// В отличие от доменного порта, умеет сидировать товары через Put.
type ProductRepository struct {
	mu    sync.RWMutex
	items map[string]domain.Product
}

// NewProductRepository возвращает пустой in-memory каталог.
func NewProductRepository() *ProductRepository {
	return &ProductRepository{items: make(map[string]domain.Product)}
}

// Put кладёт товар в каталог, перезаписывая существующий.
func (r *ProductRepository) Put(product domain.Product) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[product.ID] = product
}

// Get возвращает копию товара или ErrProductNotFound.
func (r *ProductRepository) Get(id string) (domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	product, ok := r.items[id]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	// Копируем варианты, чтобы избежать непредсказуемых мутаций извне.
	variants := make([]domain.ProductVariant, len(product.Variants))
	copy(variants, product.Variants)
	product.Variants = variants
	return product, nil
}

// decrement списывает сток с полом в ноль: сначала вариант (если указан), затем агрегат.
// Вызывается только из ConfirmPayment репозитория заказов.
func (r *ProductRepository) decrement(productID, size string, qty int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	product, ok := r.items[productID]
	if !ok {
		return
	}

	if size != "" {
		for i := range product.Variants {
			if product.Variants[i].Size == size {
				product.Variants[i].Stock -= qty
				if product.Variants[i].Stock < 0 {
					product.Variants[i].Stock = 0
				}
				break
			}
		}
	}

	product.Stock -= qty
	if product.Stock < 0 {
		product.Stock = 0
	}

	r.items[productID] = product
}

var _ domain.ProductRepository = (*ProductRepository)(nil)
