package checkout

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// ReservationWindow — срок, в течение которого заказ Pending Payment удерживает
// сток. Более старый pending-заказ считается брошенным (окно оплаты закрыто)
// и инвентарь не резервирует.
const ReservationWindow = 2 * time.Minute

// Guard проверяет доступность товара с учётом мягких резервов.
// Резерв мягкий: между проверкой и вставкой теневого заказа нет общей
// транзакции, окно гонки закрывается только clamp-списанием на вебхуке.
type Guard struct {
	orders   domain.OrderRepository
	products domain.ProductRepository
	window   time.Duration
	logger   *log.Entry
}

// NewGuard создаёт guard с окном резервирования по умолчанию.
func NewGuard(orders domain.OrderRepository, products domain.ProductRepository) *Guard {
	return &Guard{
		orders:   orders,
		products: products,
		window:   ReservationWindow,
		logger:   log.WithField("component", "reservation-guard"),
	}
}

// CheckAvailability проверяет, что запрошенное количество не превышает
// физический сток минус активные резервы. Физический сток берётся с варианта,
// если размер запрошен, иначе с агрегата товара.
func (g *Guard) CheckAvailability(productID, size string, qty int) error {
	product, err := g.products.Get(productID)
	if err != nil {
		return err
	}

	physical := product.Stock
	if size != "" {
		variantStock, ok := product.VariantStock(size)
		if !ok {
			return fmt.Errorf("%w: product %s size %s", domain.ErrVariantNotFound, productID, size)
		}
		physical = variantStock
	}

	reserved, err := g.orders.ReservedQty(productID, size, time.Now().Add(-g.window))
	if err != nil {
		return fmt.Errorf("failed to sum reserved stock for product %s: %w", productID, err)
	}

	available := physical - reserved
	if qty > available {
		g.logger.WithFields(log.Fields{
			"product_id": productID,
			"size":       size,
			"requested":  qty,
			"physical":   physical,
			"reserved":   reserved,
		}).Warn("reservation check failed")
		return fmt.Errorf("%w: product %s requested %d available %d", domain.ErrStockConflict, productID, qty, available)
	}

	return nil
}
