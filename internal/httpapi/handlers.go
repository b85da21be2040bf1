package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/service/checkout"
	"github.com/vladislavdragonenkov/storefront/internal/service/webhook"
)

// SignatureHeader — заголовок с HMAC-подписью вебхука шлюза.
const SignatureHeader = "X-Gateway-Signature"

// maxWebhookBody ограждает от злоупотребления размером тела.
const maxWebhookBody = 1 << 20

// Handler связывает HTTP-слой с сервисами магазина.
type Handler struct {
	checkout *checkout.Orchestrator
	webhook  *webhook.Processor
	orders   domain.OrderRepository
	timeline domain.TimelineRepository
	logger   *log.Entry
}

// NewHandler создаёт HTTP handler. timeline может быть nil.
func NewHandler(
	orchestrator *checkout.Orchestrator,
	processor *webhook.Processor,
	orders domain.OrderRepository,
	timeline domain.TimelineRepository,
) *Handler {
	return &Handler{
		checkout: orchestrator,
		webhook:  processor,
		orders:   orders,
		timeline: timeline,
		logger:   log.WithField("component", "httpapi"),
	}
}

// Register монтирует маршруты магазина на роутер.
func (h *Handler) Register(r chi.Router) {
	r.Post("/checkout", h.startCheckout)
	r.Post("/webhooks/payment", h.paymentWebhook)
	r.Get("/orders", h.listOrders)
	r.Get("/orders/{id}", h.getOrder)
	r.Post("/orders/{id}/status", h.updateStatus)
}

type customerPayload struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	Mobile string `json:"mobile"`
}

type addressPayload struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state"`
	Country    string `json:"country"`
	PostalCode string `json:"postal_code"`
}

type cartLinePayload struct {
	ProductID string `json:"product_id"`
	Size      string `json:"size"`
	Qty       int    `json:"qty"`
}

type checkoutRequest struct {
	Customer customerPayload   `json:"customer"`
	Address  addressPayload    `json:"address"`
	Items    []cartLinePayload `json:"items"`
}

type breakdownPayload struct {
	Description string  `json:"description"`
	Saving      float64 `json:"saving"`
}

type checkoutResponse struct {
	InternalOrderID string             `json:"internal_order_id"`
	GatewayOrderID  string             `json:"gateway_order_id"`
	Amount          float64            `json:"amount"`
	Currency        string             `json:"currency"`
	GatewayKeyID    string             `json:"gateway_key_id"`
	Subtotal        float64            `json:"subtotal"`
	Discount        float64            `json:"discount"`
	ShippingCost    float64            `json:"shipping_cost"`
	GatewayFee      float64            `json:"gateway_fee"`
	Breakdown       []breakdownPayload `json:"breakdown,omitempty"`
}

func (h *Handler) startCheckout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	lines := make([]domain.CartLine, 0, len(req.Items))
	for _, item := range req.Items {
		lines = append(lines, domain.CartLine{ProductID: item.ProductID, Size: item.Size, Qty: item.Qty})
	}

	result, err := h.checkout.StartCheckout(
		lines,
		domain.Address{
			Street:     req.Address.Street,
			City:       req.Address.City,
			State:      req.Address.State,
			Country:    req.Address.Country,
			PostalCode: req.Address.PostalCode,
		},
		domain.Customer{Name: req.Customer.Name, Email: req.Customer.Email, Mobile: req.Customer.Mobile},
	)
	if err != nil {
		switch {
		case domain.IsStockConflict(err):
			writeError(w, http.StatusConflict, "items reserved by other shoppers, retry shortly")
		case errors.Is(err, domain.ErrGatewayCreateFailed) || domain.IsGatewayTemporary(err):
			writeError(w, http.StatusBadGateway, "payment initiation failed, try again")
		case errors.Is(err, domain.ErrProductNotFound) || errors.Is(err, domain.ErrVariantNotFound):
			writeError(w, http.StatusBadRequest, err.Error())
		case isValidationError(err):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			h.logger.WithError(err).Error("checkout failed")
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	writeJSON(w, http.StatusOK, toCheckoutResponse(result))
}

func toCheckoutResponse(result checkout.StartResult) checkoutResponse {
	resp := checkoutResponse{
		InternalOrderID: result.InternalOrderID,
		GatewayOrderID:  result.GatewayOrderID,
		Amount:          result.Amount,
		Currency:        result.Currency,
		GatewayKeyID:    result.GatewayKeyID,
		Subtotal:        result.Subtotal,
		Discount:        result.Discount,
		ShippingCost:    result.ShippingCost,
		GatewayFee:      result.GatewayFee,
	}
	for _, entry := range result.Breakdown {
		resp.Breakdown = append(resp.Breakdown, breakdownPayload{
			Description: entry.Description,
			Saving:      entry.Saving,
		})
	}
	return resp
}

func (h *Handler) paymentWebhook(w http.ResponseWriter, r *http.Request) {
	// Подпись считается по точным сырым байтам, поэтому тело не декодируется
	// до верификации.
	rawBody, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}

	outcome, err := h.webhook.Handle(rawBody, r.Header.Get(SignatureHeader))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrSignatureMismatch), errors.Is(err, domain.ErrCorrelationMissing):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			// Шлюз повторит доставку на не-2xx; условная промоция делает повтор безопасным.
			h.logger.WithError(err).Error("webhook processing failed")
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": string(outcome)})
}

type orderItemPayload struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Size      string  `json:"size,omitempty"`
	Qty       int     `json:"qty"`
	Price     float64 `json:"price"`
	ImageURL  string  `json:"image_url,omitempty"`
}

type timelinePayload struct {
	Type     string    `json:"type"`
	Reason   string    `json:"reason,omitempty"`
	Occurred time.Time `json:"occurred"`
}

type orderResponse struct {
	ID               string             `json:"id"`
	CustomerName     string             `json:"customer_name"`
	CustomerEmail    string             `json:"customer_email"`
	CustomerMobile   string             `json:"customer_mobile,omitempty"`
	Address          addressPayload     `json:"address"`
	Subtotal         float64            `json:"subtotal"`
	ShippingCost     float64            `json:"shipping_cost"`
	TotalAmount      float64            `json:"total_amount"`
	Status           string             `json:"status"`
	GatewayOrderID   string             `json:"gateway_order_id,omitempty"`
	GatewayPaymentID string             `json:"gateway_payment_id,omitempty"`
	LogisticsID      string             `json:"logistics_id,omitempty"`
	CourierName      string             `json:"courier_name,omitempty"`
	Items            []orderItemPayload `json:"items"`
	Timeline         []timelinePayload  `json:"timeline,omitempty"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	if orderID == "" {
		writeError(w, http.StatusBadRequest, "missing order id")
		return
	}

	order, err := h.orders.Get(orderID)
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		h.logger.WithError(err).WithField("order_id", orderID).Error("failed to load order")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	resp := orderResponse{
		ID:               order.ID,
		CustomerName:     order.CustomerName,
		CustomerEmail:    order.CustomerEmail,
		CustomerMobile:   order.CustomerMobile,
		Address:          addressPayload(order.ShippingAddress),
		Subtotal:         order.Subtotal,
		ShippingCost:     order.ShippingCost,
		TotalAmount:      order.TotalAmount,
		Status:           string(order.Status),
		GatewayOrderID:   order.GatewayOrderID,
		GatewayPaymentID: order.GatewayPaymentID,
		LogisticsID:      order.LogisticsID,
		CourierName:      order.CourierName,
		CreatedAt:        order.CreatedAt,
		UpdatedAt:        order.UpdatedAt,
	}
	for _, item := range order.Items {
		resp.Items = append(resp.Items, orderItemPayload{
			ProductID: item.ProductID,
			Name:      item.Name,
			Size:      item.Size,
			Qty:       item.Qty,
			Price:     item.Price,
			ImageURL:  item.ImageURL,
		})
	}

	if h.timeline != nil {
		events, err := h.timeline.List(orderID)
		if err != nil {
			h.logger.WithError(err).WithField("order_id", orderID).Warn("failed to load order timeline")
		}
		for _, event := range events {
			resp.Timeline = append(resp.Timeline, timelinePayload{
				Type:     event.Type,
				Reason:   event.Reason,
				Occurred: event.Occurred,
			})
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

type orderSummaryPayload struct {
	ID          string    `json:"id"`
	Status      string    `json:"status"`
	TotalAmount float64   `json:"total_amount"`
	Items       int       `json:"items"`
	CreatedAt   time.Time `json:"created_at"`
}

const defaultOrderListLimit = 20

// listOrders отдаёт историю заказов покупателя по email, свежие первыми.
func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if email == "" {
		writeError(w, http.StatusBadRequest, "missing email query parameter")
		return
	}

	limit := defaultOrderListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	orders, err := h.orders.ListByEmail(email, limit)
	if err != nil {
		h.logger.WithError(err).WithField("email", email).Error("failed to list orders")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	summaries := make([]orderSummaryPayload, 0, len(orders))
	for _, order := range orders {
		summaries = append(summaries, orderSummaryPayload{
			ID:          order.ID,
			Status:      string(order.Status),
			TotalAmount: order.TotalAmount,
			Items:       len(order.Items),
			CreatedAt:   order.CreatedAt,
		})
	}

	writeJSON(w, http.StatusOK, summaries)
}

type updateStatusRequest struct {
	Status      string `json:"status"`
	LogisticsID string `json:"logistics_id"`
	CourierName string `json:"courier_name"`
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	next := domain.OrderStatus(req.Status)
	if !next.Valid() {
		writeError(w, http.StatusBadRequest, "unsupported status")
		return
	}

	if err := h.orders.UpdateStatus(orderID, next, req.LogisticsID, req.CourierName); err != nil {
		switch {
		case errors.Is(err, domain.ErrOrderNotFound):
			writeError(w, http.StatusNotFound, "order not found")
		case errors.Is(err, domain.ErrStatusTransitionInvalid):
			writeError(w, http.StatusConflict, err.Error())
		default:
			h.logger.WithError(err).WithField("order_id", orderID).Error("failed to update order status")
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	if h.timeline != nil {
		err := h.timeline.Append(domain.TimelineEvent{
			OrderID:  orderID,
			Type:     "status." + string(next),
			Occurred: time.Now(),
		})
		if err != nil {
			h.logger.WithError(err).WithField("order_id", orderID).Warn("failed to append timeline event")
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": string(next)})
}

func isValidationError(err error) bool {
	for _, candidate := range []error{
		domain.ErrCartEmpty,
		domain.ErrCustomerNameRequired,
		domain.ErrCustomerEmailRequired,
		domain.ErrAddressStreetRequired,
		domain.ErrAddressCityRequired,
		domain.ErrAddressCountryRequired,
		domain.ErrItemQtyInvalid,
		domain.ErrItemProductRequired,
	} {
		if errors.Is(err, candidate) {
			return true
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, map[string]string{"error": message})
}
