package checkout

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
	"github.com/vladislavdragonenkov/storefront/internal/pricing"
)

const (
	// GatewayFeePercent — комиссия шлюза, перекладываемая на покупателя.
	GatewayFeePercent = 2.0
	// Currency — валюта всех заказов магазина.
	Currency = "INR"
	// CorrelationNoteKey — ключ notes, под которым шлюз хранит внутренний
	// идентификатор заказа; по нему вебхук находит заказ.
	CorrelationNoteKey = "internal_order_id"
)

// StartResult — параметры для клиентского платёжного виджета плюс
// внутренний идентификатор заказа.
type StartResult struct {
	InternalOrderID string
	GatewayOrderID  string
	Amount          float64
	Currency        string
	GatewayKeyID    string
	Breakdown       []pricing.BreakdownEntry
	Subtotal        float64
	Discount        float64
	ShippingCost    float64
	GatewayFee      float64
}

// Orchestrator собирает checkout из прайсинга, guard-а, хранилища и шлюза.
type Orchestrator struct {
	orders    domain.OrderRepository
	products  domain.ProductRepository
	discounts domain.DiscountRuleRepository
	timeline  domain.TimelineRepository
	gateway   domain.PaymentGateway
	guard     *Guard
	metrics   *metrics.CheckoutMetrics

	gatewayKeyID string
	logger       *log.Entry
}

// NewOrchestrator создаёт оркестратор checkout. timeline может быть nil —
// тогда аудит событий не ведётся.
func NewOrchestrator(
	orders domain.OrderRepository,
	products domain.ProductRepository,
	discounts domain.DiscountRuleRepository,
	timeline domain.TimelineRepository,
	gateway domain.PaymentGateway,
	guard *Guard,
	m *metrics.CheckoutMetrics,
	gatewayKeyID string,
) *Orchestrator {
	return &Orchestrator{
		orders:       orders,
		products:     products,
		discounts:    discounts,
		timeline:     timeline,
		gateway:      gateway,
		guard:        guard,
		metrics:      m,
		gatewayKeyID: gatewayKeyID,
		logger:       log.WithField("component", "checkout-orchestrator"),
	}
}

// StartCheckout проводит полный цикл: валидация → серверный пересчёт сумм →
// резервирование → теневой заказ → платёжный intent у шлюза.
// Сбой до записи заказа не оставляет следов; сбой на шаге шлюза оставляет
// теневой Pending Payment заказ, который сам выпадает из окна резервирования.
func (o *Orchestrator) StartCheckout(lines []domain.CartLine, address domain.Address, customer domain.Customer) (StartResult, error) {
	started := time.Now()
	o.metrics.RecordCheckoutStarted()
	defer func() {
		o.metrics.RecordCheckoutFinished()
		o.metrics.RecordCheckoutDuration(time.Since(started))
	}()

	if errs := domain.ValidateCart(lines); len(errs) > 0 {
		o.metrics.RecordCheckoutAborted("validation")
		return StartResult{}, errs[0]
	}
	if customer.Name == "" {
		o.metrics.RecordCheckoutAborted("validation")
		return StartResult{}, domain.ErrCustomerNameRequired
	}
	if customer.Email == "" {
		o.metrics.RecordCheckoutAborted("validation")
		return StartResult{}, domain.ErrCustomerEmailRequired
	}
	if errs := address.Validate(); len(errs) > 0 {
		o.metrics.RecordCheckoutAborted("validation")
		return StartResult{}, errs[0]
	}

	// Цены, веса и категории только из каталога; клиентские значения не билятся.
	priced := make([]pricing.LineItem, 0, len(lines))
	shippingLines := make([]pricing.ShippingLine, 0, len(lines))
	orderItems := make([]domain.OrderItem, 0, len(lines))
	now := time.Now()

	for _, line := range lines {
		product, err := o.products.Get(line.ProductID)
		if err != nil {
			o.metrics.RecordCheckoutAborted("validation")
			return StartResult{}, err
		}

		priced = append(priced, pricing.LineItem{
			ProductID: product.ID,
			Name:      product.Name,
			Category:  product.Category,
			Qty:       line.Qty,
			Price:     product.Price,
		})
		shippingLines = append(shippingLines, pricing.ShippingLine{
			WeightGrams: product.WeightGrams,
			Qty:         line.Qty,
		})
		orderItems = append(orderItems, domain.OrderItem{
			ID:        uuid.NewString(),
			ProductID: product.ID,
			Name:      product.Name,
			Size:      line.Size,
			Qty:       line.Qty,
			Price:     product.Price,
			ImageURL:  product.ImageURL,
			CreatedAt: now,
		})
	}

	rules, err := o.discounts.ListActive()
	if err != nil {
		o.metrics.RecordCheckoutAborted("storage")
		return StartResult{}, fmt.Errorf("failed to load discount rules: %w", err)
	}
	discount := pricing.ApplyDiscounts(priced, rules)

	shipping := pricing.ComputeShipping(shippingLines, pricing.Destination{
		Country:    address.Country,
		PostalCode: address.PostalCode,
	})

	for _, line := range lines {
		if err := o.guard.CheckAvailability(line.ProductID, line.Size, line.Qty); err != nil {
			if domain.IsStockConflict(err) {
				o.metrics.RecordCheckoutAborted("stock_conflict")
			} else {
				o.metrics.RecordCheckoutAborted("validation")
			}
			return StartResult{}, err
		}
	}

	subtotal := discount.DiscountedTotal
	gatewayFee := round2((subtotal + shipping) * GatewayFeePercent / 100)
	total := round2(subtotal + shipping + gatewayFee)

	order := domain.Order{
		ID:              uuid.NewString(),
		CustomerName:    customer.Name,
		CustomerEmail:   customer.Email,
		CustomerMobile:  customer.Mobile,
		ShippingAddress: address,
		Subtotal:        round2(subtotal),
		ShippingCost:    shipping,
		TotalAmount:     total,
		Status:          domain.OrderStatusPendingPayment,
		Items:           orderItems,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := o.orders.Create(order); err != nil {
		o.metrics.RecordCheckoutAborted("storage")
		return StartResult{}, fmt.Errorf("failed to persist order: %w", err)
	}

	o.appendTimeline(order.ID, "order.created", "")

	gatewayOrderID, err := o.gateway.CreateOrder(total, Currency, order.ID, map[string]string{
		CorrelationNoteKey: order.ID,
	})
	if err != nil {
		// Теневой заказ уже записан; он выпадет из окна резервирования сам.
		o.metrics.RecordCheckoutAborted("gateway")
		o.logger.WithError(err).WithField("order_id", order.ID).Error("gateway order creation failed, shadow order left pending")
		return StartResult{}, err
	}

	if err := o.orders.SetGatewayOrder(order.ID, gatewayOrderID); err != nil {
		o.metrics.RecordCheckoutAborted("storage")
		return StartResult{}, fmt.Errorf("failed to persist gateway order id: %w", err)
	}

	o.metrics.RecordCheckoutCompleted()
	o.logger.WithFields(log.Fields{
		"order_id":         order.ID,
		"gateway_order_id": gatewayOrderID,
		"total":            total,
	}).Info("checkout completed, awaiting payment")

	return StartResult{
		InternalOrderID: order.ID,
		GatewayOrderID:  gatewayOrderID,
		Amount:          total,
		Currency:        Currency,
		GatewayKeyID:    o.gatewayKeyID,
		Breakdown:       discount.Breakdown,
		Subtotal:        round2(subtotal),
		Discount:        round2(discount.TotalDiscount),
		ShippingCost:    shipping,
		GatewayFee:      gatewayFee,
	}, nil
}

func (o *Orchestrator) appendTimeline(orderID, eventType, reason string) {
	if o.timeline == nil {
		return
	}
	event := domain.TimelineEvent{
		OrderID:  orderID,
		Type:     eventType,
		Reason:   reason,
		Occurred: time.Now(),
	}
	if err := o.timeline.Append(event); err != nil {
		o.logger.WithError(err).WithField("order_id", orderID).Warn("failed to append timeline event")
		return
	}
	o.metrics.RecordTimelineEvent()
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
