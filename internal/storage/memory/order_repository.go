package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// orderRepositoryInMemory — in-memory реализация OrderRepository с той же
// семантикой, что у PostgreSQL-версии: условная промоция, окно резервирования,
// wildcard-сравнение вариантов.
type orderRepositoryInMemory struct {
	mu       sync.RWMutex
	items    map[string]domain.Order
	products *ProductRepository
}

// NewOrderRepository возвращает in-memory репозиторий для локальной разработки
// и тестов. products нужен для списания стока при подтверждении оплаты.
func NewOrderRepository(products *ProductRepository) domain.OrderRepository {
	return &orderRepositoryInMemory{
		items:    make(map[string]domain.Order),
		products: products,
	}
}

// Create сохраняет новый заказ, если ID ещё не занят.
func (r *orderRepositoryInMemory) Create(order domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[order.ID]; exists {
		return domain.ErrOrderAlreadyExists
	}
	// Сохраняем копию позиций, чтобы избежать непредсказуемых мутаций извне.
	items := make([]domain.OrderItem, len(order.Items))
	copy(items, order.Items)
	order.Items = items
	r.items[order.ID] = order
	return nil
}

// Get возвращает заказ или ErrOrderNotFound, если его нет.
func (r *orderRepositoryInMemory) Get(id string) (domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.items[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return order, nil
}

// ListByEmail возвращает заказы покупателя, ограничивая выборку limit (если >0).
func (r *orderRepositoryInMemory) ListByEmail(email string, limit int) ([]domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Order, 0, len(r.items))
	for _, order := range r.items {
		if order.CustomerEmail != email {
			continue
		}
		result = append(result, order)
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}

	return result, nil
}

// SetGatewayOrder записывает идентификатор заказа на стороне шлюза.
func (r *orderRepositoryInMemory) SetGatewayOrder(orderID, gatewayOrderID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.items[orderID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	order.GatewayOrderID = gatewayOrderID
	order.UpdatedAt = time.Now().UTC()
	r.items[orderID] = order
	return nil
}

// ReservedQty суммирует позиции Pending Payment заказов, созданных после since.
// Пустой size с любой стороны сравнения — wildcard.
func (r *orderRepositoryInMemory) ReservedQty(productID, size string, since time.Time) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	reserved := 0
	for _, order := range r.items {
		if order.Status != domain.OrderStatusPendingPayment {
			continue
		}
		if order.CreatedAt.Before(since) {
			continue
		}
		for _, item := range order.Items {
			if item.ProductID != productID {
				continue
			}
			if size != "" && item.Size != "" && item.Size != size {
				continue
			}
			reserved += item.Qty
		}
	}

	return reserved, nil
}

// ConfirmPayment выполняет условную промоцию и списание стока. Повторный вызов
// для уже подтверждённого заказа возвращает false без побочных эффектов.
func (r *orderRepositoryInMemory) ConfirmPayment(conf domain.PaymentConfirmation) (bool, error) {
	r.mu.Lock()

	order, ok := r.items[conf.OrderID]
	if !ok || order.Status != domain.OrderStatusPendingPayment {
		r.mu.Unlock()
		return false, nil
	}

	order.Status = domain.OrderStatusPaymentConfirmed
	order.GatewayPaymentID = conf.GatewayPaymentID
	if order.GatewayOrderID == "" {
		order.GatewayOrderID = conf.GatewayOrderID
	}
	if order.CustomerMobile == "" {
		order.CustomerMobile = conf.CustomerMobile
	}
	order.UpdatedAt = time.Now().UTC()
	r.items[conf.OrderID] = order
	items := order.Items
	r.mu.Unlock()

	// Списание вне собственного мьютекса: products защищён своим.
	if r.products != nil {
		for _, item := range items {
			r.products.decrement(item.ProductID, item.Size, item.Qty)
		}
	}

	return true, nil
}

// UpdateStatus выполняет fulfillment-переход по графу статусов.
func (r *orderRepositoryInMemory) UpdateStatus(orderID string, next domain.OrderStatus, logisticsID, courierName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.items[orderID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	if !order.Status.CanTransitionTo(next) {
		return domain.ErrStatusTransitionInvalid
	}

	order.Status = next
	if logisticsID != "" {
		order.LogisticsID = logisticsID
	}
	if courierName != "" {
		order.CourierName = courierName
	}
	order.UpdatedAt = time.Now().UTC()
	r.items[orderID] = order
	return nil
}

var _ domain.OrderRepository = (*orderRepositoryInMemory)(nil)
