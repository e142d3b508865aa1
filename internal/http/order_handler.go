package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/storefront/internal/domain"
)

type OrderService interface {
	PlaceOrder(ctx context.Context, cartID, callerUserID string) (*domain.Order, error)
	GetOrder(ctx context.Context, orderID int64, callerUserID string, staff bool) (*domain.Order, error)
	ListOrders(ctx context.Context, callerUserID string) ([]*domain.Order, error)
	UpdatePaymentStatus(ctx context.Context, orderID int64, status domain.PaymentStatus, staff bool) (*domain.Order, error)
	GetCustomer(ctx context.Context, callerUserID string) (*domain.Customer, error)
}

type OrderHandler struct {
	orders  OrderService
	timeout time.Duration
}

func NewOrderHandler(orders OrderService, timeout time.Duration) *OrderHandler {
	return &OrderHandler{
		orders:  orders,
		timeout: timeout,
	}
}

func (h *OrderHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID, _, ok := caller(w, r)
	if !ok {
		return
	}

	var req PlaceOrderRequestDTO
	if msg, ok := decodeAndValidate(w, r, &req); !ok {
		respondError(w, http.StatusBadRequest, "invalid_request", msg)
		return
	}

	order, err := h.orders.PlaceOrder(ctx, req.CartID, userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, toOrderDTO(order))
}

func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID, _, ok := caller(w, r)
	if !ok {
		return
	}

	orders, err := h.orders.ListOrders(ctx, userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	resp := make([]OrderDTO, 0, len(orders))
	for _, order := range orders {
		resp = append(resp, toOrderDTO(order))
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID, staff, ok := caller(w, r)
	if !ok {
		return
	}
	orderID, ok := parseID(w, r, "order_id")
	if !ok {
		return
	}

	order, err := h.orders.GetOrder(ctx, orderID, userID, staff)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, toOrderDTO(order))
}

func (h *OrderHandler) UpdatePaymentStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	_, staff, ok := caller(w, r)
	if !ok {
		return
	}
	orderID, ok := parseID(w, r, "order_id")
	if !ok {
		return
	}

	var req UpdatePaymentStatusRequestDTO
	if msg, ok := decodeAndValidate(w, r, &req); !ok {
		respondError(w, http.StatusBadRequest, "invalid_request", msg)
		return
	}

	order, err := h.orders.UpdatePaymentStatus(ctx, orderID, domain.PaymentStatus(req.PaymentStatus), staff)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, toOrderDTO(order))
}

func (h *OrderHandler) GetCustomer(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID, _, ok := caller(w, r)
	if !ok {
		return
	}

	customer, err := h.orders.GetCustomer(ctx, userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, toCustomerDTO(customer))
}
