package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
	"github.com/vladislavdragonenkov/storefront/internal/service/notify"
	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
)

const testSecret = "whsec_test_secret"

func sign(t *testing.T, secret string, body []byte) string {
	t.Helper()
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func capturedBody(orderID string) []byte {
	return []byte(fmt.Sprintf(`{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_001","order_id":"order_gw_42","email":"anita@example.com","contact":"+919800000001","notes":{"internal_order_id":"%s"}}}}}`, orderID))
}

type webhookFixture struct {
	orders   domain.OrderRepository
	products *memory.ProductRepository
	timeline domain.TimelineRepository
	mailer   *notify.MockMailer
	subject  *Processor
}

func newFixture(t *testing.T) *webhookFixture {
	t.Helper()

	products := memory.NewProductRepository()
	products.Put(domain.Product{
		ID:       "prod-shirt",
		Name:     "Linen Shirt",
		Category: "Shirts",
		Price:    500,
		Stock:    10,
		Variants: []domain.ProductVariant{{Size: "M", Stock: 6}},
	})

	orders := memory.NewOrderRepository(products)
	timeline := memory.NewTimelineRepository()
	mailer := &notify.MockMailer{}

	subject := NewProcessor(orders, nil, timeline, mailer, testSecret, metrics.NewCheckoutMetrics())

	return &webhookFixture{
		orders:   orders,
		products: products,
		timeline: timeline,
		mailer:   mailer,
		subject:  subject,
	}
}

func (f *webhookFixture) seedPendingOrder(t *testing.T, id string, qty int) {
	t.Helper()
	err := f.orders.Create(domain.Order{
		ID:            id,
		CustomerName:  "Anita Kurup",
		CustomerEmail: "anita@example.com",
		ShippingAddress: domain.Address{
			Street: "12 Beach Rd", City: "Kochi", State: "Kerala", Country: "IN", PostalCode: "682001",
		},
		Subtotal:     500 * float64(qty),
		ShippingCost: 50,
		TotalAmount:  500*float64(qty) + 50,
		Status:       domain.OrderStatusPendingPayment,
		Items: []domain.OrderItem{
			{ID: id + "-item", ProductID: "prod-shirt", Name: "Linen Shirt", Size: "M", Qty: qty, Price: 500},
		},
		CreatedAt: time.Now(),
	})
	require.NoError(t, err)
}

func TestHandlePromotesOrder(t *testing.T) {
	f := newFixture(t)
	f.seedPendingOrder(t, "ord-1", 2)

	body := capturedBody("ord-1")
	outcome, err := f.subject.Handle(body, sign(t, testSecret, body))
	require.NoError(t, err)
	assert.Equal(t, OutcomePromoted, outcome)

	order, err := f.orders.Get("ord-1")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPaymentConfirmed, order.Status)
	assert.Equal(t, "pay_001", order.GatewayPaymentID)

	// Сток списан: вариант и агрегат.
	product, err := f.products.Get("prod-shirt")
	require.NoError(t, err)
	assert.Equal(t, 8, product.Stock)
	variantStock, ok := product.VariantStock("M")
	require.True(t, ok)
	assert.Equal(t, 4, variantStock)

	// Письмо ушло (outbox не сконфигурирован, прямой путь).
	require.Len(t, f.mailer.Sent, 1)
	assert.Equal(t, "anita@example.com", f.mailer.Sent[0].To)

	events, err := f.timeline.List("ord-1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "payment.confirmed", events[0].Type)
}

func TestHandleReplayIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.seedPendingOrder(t, "ord-1", 2)

	body := capturedBody("ord-1")
	signature := sign(t, testSecret, body)

	outcome, err := f.subject.Handle(body, signature)
	require.NoError(t, err)
	assert.Equal(t, OutcomePromoted, outcome)

	outcome, err = f.subject.Handle(body, signature)
	require.NoError(t, err)
	assert.Equal(t, OutcomeReplayed, outcome)

	// Ровно одно списание при любом числе доставок.
	product, err := f.products.Get("prod-shirt")
	require.NoError(t, err)
	assert.Equal(t, 8, product.Stock)
	assert.Len(t, f.mailer.Sent, 1)
}

func TestHandleRejectsBadSignature(t *testing.T) {
	f := newFixture(t)
	f.seedPendingOrder(t, "ord-1", 2)

	body := capturedBody("ord-1")
	signature := sign(t, testSecret, body)

	// Один изменённый байт тела инвалидирует подпись.
	tampered := make([]byte, len(body))
	copy(tampered, body)
	tampered[len(tampered)-10] ^= 0x01

	_, err := f.subject.Handle(tampered, signature)
	assert.ErrorIs(t, err, domain.ErrSignatureMismatch)

	// Подпись чужим секретом тоже отклоняется.
	_, err = f.subject.Handle(body, sign(t, "whsec_wrong", body))
	assert.ErrorIs(t, err, domain.ErrSignatureMismatch)

	// Ни одного изменения состояния.
	order, getErr := f.orders.Get("ord-1")
	require.NoError(t, getErr)
	assert.Equal(t, domain.OrderStatusPendingPayment, order.Status)
	product, getErr := f.products.Get("prod-shirt")
	require.NoError(t, getErr)
	assert.Equal(t, 10, product.Stock)
	assert.Empty(t, f.mailer.Sent)
}

func TestHandleIgnoresOtherEvents(t *testing.T) {
	f := newFixture(t)
	f.seedPendingOrder(t, "ord-1", 2)

	body := []byte(`{"event":"payment.failed","payload":{"payment":{"entity":{"notes":{"internal_order_id":"ord-1"}}}}}`)
	outcome, err := f.subject.Handle(body, sign(t, testSecret, body))
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, outcome)

	order, err := f.orders.Get("ord-1")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPendingPayment, order.Status)
}

func TestHandleMissingCorrelation(t *testing.T) {
	f := newFixture(t)

	body := []byte(`{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_001","notes":{}}}}}`)
	_, err := f.subject.Handle(body, sign(t, testSecret, body))
	assert.ErrorIs(t, err, domain.ErrCorrelationMissing)
}

func TestHandleMalformedPayload(t *testing.T) {
	f := newFixture(t)

	body := []byte(`{"event":`)
	_, err := f.subject.Handle(body, sign(t, testSecret, body))
	require.Error(t, err)
}

func TestHandleEnqueuesOutboxWhenConfigured(t *testing.T) {
	f := newFixture(t)
	outbox := memory.NewOutboxRepository()
	f.subject = NewProcessor(f.orders, outbox, f.timeline, f.mailer, testSecret, metrics.NewCheckoutMetrics())
	f.seedPendingOrder(t, "ord-1", 1)

	body := capturedBody("ord-1")
	outcome, err := f.subject.Handle(body, sign(t, testSecret, body))
	require.NoError(t, err)
	assert.Equal(t, OutcomePromoted, outcome)

	pending := outbox.AllPending()
	require.Len(t, pending, 1)
	assert.Equal(t, "ord-1", pending[0].AggregateID)
	assert.Equal(t, "order.confirmed", pending[0].EventType)

	// При наличии outbox прямое письмо не отправляется.
	assert.Empty(t, f.mailer.Sent)
}

// Два конкурентных checkout могут оба пройти guard на последнюю единицу:
// проверка резерва и вставка теневого заказа не атомарны. Такой oversell
// ловится только clamp-списанием на вебхуке; тест фиксирует этот компромисс.
func TestOversellClampedAtWebhook(t *testing.T) {
	f := newFixture(t)
	f.products.Put(domain.Product{
		ID:       "prod-last",
		Name:     "Last Unit",
		Category: "Shirts",
		Price:    500,
		Stock:    1,
	})

	for _, id := range []string{"ord-a", "ord-b"} {
		err := f.orders.Create(domain.Order{
			ID:            id,
			CustomerName:  "Anita Kurup",
			CustomerEmail: "anita@example.com",
			ShippingAddress: domain.Address{
				Street: "12 Beach Rd", City: "Kochi", Country: "IN", PostalCode: "682001",
			},
			TotalAmount: 550,
			Status:      domain.OrderStatusPendingPayment,
			Items: []domain.OrderItem{
				{ID: id + "-item", ProductID: "prod-last", Name: "Last Unit", Qty: 1, Price: 500},
			},
			CreatedAt: time.Now(),
		})
		require.NoError(t, err)
	}

	for _, id := range []string{"ord-a", "ord-b"} {
		body := capturedBody(id)
		outcome, err := f.subject.Handle(body, sign(t, testSecret, body))
		require.NoError(t, err)
		assert.Equal(t, OutcomePromoted, outcome)
	}

	// Оба заказа подтверждены, но сток не ушёл в минус.
	product, err := f.products.Get("prod-last")
	require.NoError(t, err)
	assert.Equal(t, 0, product.Stock)
}
