package memory

import (
	"testing"
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

func seedProduct(products *ProductRepository) {
	products.Put(domain.Product{
		ID:       "prod-1",
		Name:     "Linen Shirt",
		Category: "Shirts",
		Price:    500,
		Stock:    10,
		Variants: []domain.ProductVariant{{Size: "M", Stock: 6}, {Size: "L", Stock: 4}},
	})
}

func pendingOrder(id string, createdAt time.Time) domain.Order {
	return domain.Order{
		ID:            id,
		CustomerName:  "Anand Kumar",
		CustomerEmail: "anand@example.com",
		ShippingAddress: domain.Address{
			Street: "12 MG Road", City: "Kochi", Country: "IN", PostalCode: "682001",
		},
		Status: domain.OrderStatusPendingPayment,
		Items: []domain.OrderItem{
			{ID: id + "-item", ProductID: "prod-1", Name: "Linen Shirt", Size: "M", Qty: 2, Price: 500, CreatedAt: createdAt},
		},
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

func TestConfirmPayment_Idempotent(t *testing.T) {
	products := NewProductRepository()
	seedProduct(products)
	repo := NewOrderRepository(products)

	now := time.Now().UTC()
	if err := repo.Create(pendingOrder("order-1", now)); err != nil {
		t.Fatalf("create order: %v", err)
	}

	conf := domain.PaymentConfirmation{
		OrderID:          "order-1",
		GatewayOrderID:   "gw-1",
		GatewayPaymentID: "pay-1",
		CustomerMobile:   "+911234567890",
	}

	promoted, err := repo.ConfirmPayment(conf)
	if err != nil {
		t.Fatalf("confirm payment: %v", err)
	}
	if !promoted {
		t.Fatal("first delivery must promote the order")
	}

	// Повторная доставка того же вебхука: промоции нет, сток не трогается.
	promoted, err = repo.ConfirmPayment(conf)
	if err != nil {
		t.Fatalf("confirm payment replay: %v", err)
	}
	if promoted {
		t.Fatal("replay must not promote twice")
	}

	product, err := products.Get("prod-1")
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if product.Stock != 8 {
		t.Fatalf("expected aggregate stock 8 after single decrement, got %d", product.Stock)
	}
	if stock, _ := product.VariantStock("M"); stock != 4 {
		t.Fatalf("expected variant stock 4 after single decrement, got %d", stock)
	}

	order, err := repo.Get("order-1")
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if order.Status != domain.OrderStatusPaymentConfirmed {
		t.Fatalf("expected confirmed status, got %s", order.Status)
	}
	if order.GatewayPaymentID != "pay-1" {
		t.Fatalf("expected gateway payment id, got %q", order.GatewayPaymentID)
	}
}

func TestConfirmPayment_BackfillsGatewayOrderID(t *testing.T) {
	products := NewProductRepository()
	seedProduct(products)
	repo := NewOrderRepository(products)

	now := time.Now().UTC()

	// Заказ без gateway_order_id (SetGatewayOrder не успел): вебхук дозаполняет.
	if err := repo.Create(pendingOrder("order-1", now)); err != nil {
		t.Fatalf("create order: %v", err)
	}
	if _, err := repo.ConfirmPayment(domain.PaymentConfirmation{
		OrderID: "order-1", GatewayOrderID: "gw-hook", GatewayPaymentID: "pay-1",
	}); err != nil {
		t.Fatalf("confirm payment: %v", err)
	}
	order, err := repo.Get("order-1")
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if order.GatewayOrderID != "gw-hook" {
		t.Fatalf("expected gateway order id backfilled from webhook, got %q", order.GatewayOrderID)
	}

	// Заказ с уже записанным gateway_order_id: вебхук его не перетирает.
	if err := repo.Create(pendingOrder("order-2", now)); err != nil {
		t.Fatalf("create order: %v", err)
	}
	if err := repo.SetGatewayOrder("order-2", "gw-create"); err != nil {
		t.Fatalf("set gateway order: %v", err)
	}
	if _, err := repo.ConfirmPayment(domain.PaymentConfirmation{
		OrderID: "order-2", GatewayOrderID: "gw-other", GatewayPaymentID: "pay-2",
	}); err != nil {
		t.Fatalf("confirm payment: %v", err)
	}
	order, err = repo.Get("order-2")
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if order.GatewayOrderID != "gw-create" {
		t.Fatalf("expected gateway order id from create to survive webhook, got %q", order.GatewayOrderID)
	}
}

func TestConfirmPayment_ClampsStockAtZero(t *testing.T) {
	products := NewProductRepository()
	products.Put(domain.Product{ID: "prod-1", Name: "Linen Shirt", Stock: 1})
	repo := NewOrderRepository(products)

	now := time.Now().UTC()
	order := pendingOrder("order-1", now)
	order.Items[0].Size = ""
	order.Items[0].Qty = 5
	if err := repo.Create(order); err != nil {
		t.Fatalf("create order: %v", err)
	}

	if _, err := repo.ConfirmPayment(domain.PaymentConfirmation{OrderID: "order-1"}); err != nil {
		t.Fatalf("confirm payment: %v", err)
	}

	product, _ := products.Get("prod-1")
	if product.Stock != 0 {
		t.Fatalf("stock must clamp at zero, got %d", product.Stock)
	}
}

func TestReservedQty_Window(t *testing.T) {
	products := NewProductRepository()
	seedProduct(products)
	repo := NewOrderRepository(products)

	now := time.Now().UTC()
	// Свежий pending-заказ внутри окна.
	if err := repo.Create(pendingOrder("order-fresh", now)); err != nil {
		t.Fatalf("create fresh order: %v", err)
	}
	// Просроченный pending-заказ: старше окна, резерв не держит.
	if err := repo.Create(pendingOrder("order-stale", now.Add(-10*time.Minute))); err != nil {
		t.Fatalf("create stale order: %v", err)
	}

	since := now.Add(-2 * time.Minute)
	reserved, err := repo.ReservedQty("prod-1", "M", since)
	if err != nil {
		t.Fatalf("reserved qty: %v", err)
	}
	if reserved != 2 {
		t.Fatalf("expected 2 reserved within window, got %d", reserved)
	}
}

func TestReservedQty_SizeWildcard(t *testing.T) {
	products := NewProductRepository()
	seedProduct(products)
	repo := NewOrderRepository(products)

	now := time.Now().UTC()
	noSize := pendingOrder("order-nosize", now)
	noSize.Items[0].Size = ""
	if err := repo.Create(noSize); err != nil {
		t.Fatalf("create order: %v", err)
	}

	since := now.Add(-2 * time.Minute)

	// Позиция без варианта учитывается и при запросе конкретного размера.
	reserved, err := repo.ReservedQty("prod-1", "M", since)
	if err != nil {
		t.Fatalf("reserved qty: %v", err)
	}
	if reserved != 2 {
		t.Fatalf("expected wildcard match to count, got %d", reserved)
	}

	// Запрос без варианта считает все позиции товара.
	reserved, err = repo.ReservedQty("prod-1", "", since)
	if err != nil {
		t.Fatalf("reserved qty: %v", err)
	}
	if reserved != 2 {
		t.Fatalf("expected 2, got %d", reserved)
	}
}

func TestUpdateStatus_TransitionGraph(t *testing.T) {
	products := NewProductRepository()
	seedProduct(products)
	repo := NewOrderRepository(products)

	now := time.Now().UTC()
	if err := repo.Create(pendingOrder("order-1", now)); err != nil {
		t.Fatalf("create order: %v", err)
	}

	// Пропуск статуса запрещён.
	if err := repo.UpdateStatus("order-1", domain.OrderStatusParcelPrepared, "", ""); err != domain.ErrStatusTransitionInvalid {
		t.Fatalf("expected ErrStatusTransitionInvalid, got %v", err)
	}

	if _, err := repo.ConfirmPayment(domain.PaymentConfirmation{OrderID: "order-1"}); err != nil {
		t.Fatalf("confirm payment: %v", err)
	}
	if err := repo.UpdateStatus("order-1", domain.OrderStatusParcelPrepared, "", ""); err != nil {
		t.Fatalf("parcel prepared: %v", err)
	}
	if err := repo.UpdateStatus("order-1", domain.OrderStatusCouried, "LOG-77", "BlueDart"); err != nil {
		t.Fatalf("couried: %v", err)
	}

	order, _ := repo.Get("order-1")
	if order.LogisticsID != "LOG-77" || order.CourierName != "BlueDart" {
		t.Fatalf("logistics fields not set: %+v", order)
	}
}
