package payment

import "github.com/vladislavdragonenkov/storefront/internal/domain"

// MockGateway — конфигурируемая заглушка PaymentGateway для тестов.
type MockGateway struct {
	OrderID string
	Err     error

	CreateCalls  int
	LastAmount   float64
	LastCurrency string
	LastReceipt  string
	LastNotes    map[string]string
}

// NewMockGateway возвращает mock с успешным сценарием по умолчанию.
func NewMockGateway() *MockGateway {
	return &MockGateway{OrderID: "order_mock_001"}
}

// CreateOrder возвращает заранее настроенный результат и запоминает аргументы.
func (m *MockGateway) CreateOrder(amount float64, currency, receipt string, notes map[string]string) (string, error) {
	m.CreateCalls++
	m.LastAmount = amount
	m.LastCurrency = currency
	m.LastReceipt = receipt
	m.LastNotes = notes
	return m.OrderID, m.Err
}

var _ domain.PaymentGateway = (*MockGateway)(nil)
