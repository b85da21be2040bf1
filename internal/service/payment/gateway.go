package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// RetryConfig конфигурация для retry логики обращений к шлюзу.
type RetryConfig struct {
	MaxAttempts   int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// DefaultRetryConfig возвращает конфигурацию по умолчанию.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:   3,
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      2 * time.Second,
		BackoffFactor: 2.0,
	}
}

// GatewayClient — HTTP-клиент платёжного шлюза. Создаёт платёжный intent
// (заказ на стороне шлюза) перед тем, как покупатель вводит данные карты.
// Шлюз принимает суммы в минорных единицах (пайсы для INR).
type GatewayClient struct {
	baseURL    string
	keyID      string
	keySecret  string
	httpClient *http.Client
	retry      RetryConfig
	logger     *log.Entry
}

// NewGatewayClient создаёт клиент платёжного шлюза.
func NewGatewayClient(baseURL, keyID, keySecret string, timeout time.Duration) *GatewayClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &GatewayClient{
		baseURL:    baseURL,
		keyID:      keyID,
		keySecret:  keySecret,
		httpClient: &http.Client{Timeout: timeout},
		retry:      DefaultRetryConfig(),
		logger:     log.WithField("component", "payment-gateway"),
	}
}

type createOrderRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

type createOrderResponse struct {
	ID string `json:"id"`
}

// CreateOrder создаёт заказ на стороне шлюза и возвращает его идентификатор.
// Сумма принимается в рупиях и конвертируется в пайсы на границе со шлюзом.
// Временные ошибки (5xx, сеть) повторяются с экспоненциальной задержкой.
func (c *GatewayClient) CreateOrder(amount float64, currency, receipt string, notes map[string]string) (string, error) {
	body, err := json.Marshal(createOrderRequest{
		Amount:   int64(math.Round(amount * 100)),
		Currency: currency,
		Receipt:  receipt,
		Notes:    notes,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal gateway order request: %w", err)
	}

	var lastErr error
	delay := c.retry.InitialDelay

	for attempt := 1; attempt <= c.retry.MaxAttempts; attempt++ {
		gatewayOrderID, err := c.createOrderOnce(body)
		if err == nil {
			if attempt > 1 {
				c.logger.WithFields(log.Fields{
					"receipt": receipt,
					"attempt": attempt,
				}).Info("gateway order created after retry")
			}
			return gatewayOrderID, nil
		}

		lastErr = err

		if !domain.IsGatewayTemporary(err) {
			return "", err
		}

		if attempt < c.retry.MaxAttempts {
			c.logger.WithFields(log.Fields{
				"receipt": receipt,
				"attempt": attempt,
				"delay":   delay,
				"error":   err,
			}).Warn("gateway order creation failed, retrying")

			time.Sleep(delay)

			delay = time.Duration(float64(delay) * c.retry.BackoffFactor)
			if delay > c.retry.MaxDelay {
				delay = c.retry.MaxDelay
			}
		}
	}

	c.logger.WithFields(log.Fields{
		"receipt":      receipt,
		"max_attempts": c.retry.MaxAttempts,
		"error":        lastErr,
	}).Error("gateway order creation failed after all retry attempts")

	return "", lastErr
}

func (c *GatewayClient) createOrderOnce(body []byte) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), c.httpClient.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/orders", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build gateway request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.keyID, c.keySecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrGatewayTemporary, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("%w: read response: %v", domain.ErrGatewayTemporary, err)
	}

	switch {
	case resp.StatusCode >= 500:
		return "", fmt.Errorf("%w: gateway returned %d", domain.ErrGatewayTemporary, resp.StatusCode)
	case resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated:
		return "", fmt.Errorf("%w: gateway returned %d: %s", domain.ErrGatewayCreateFailed, resp.StatusCode, respBody)
	}

	var parsed createOrderResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("%w: unmarshal response: %v", domain.ErrGatewayCreateFailed, err)
	}
	if parsed.ID == "" {
		return "", fmt.Errorf("%w: gateway response has empty order id", domain.ErrGatewayCreateFailed)
	}

	return parsed.ID, nil
}

var _ domain.PaymentGateway = (*GatewayClient)(nil)
