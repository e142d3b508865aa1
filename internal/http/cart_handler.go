package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/fjod/storefront/internal/domain"
	"github.com/go-chi/chi/v5"
)

type CartService interface {
	CreateCart(ctx context.Context) (*domain.Cart, error)
	GetCart(ctx context.Context, cartID string) (*domain.Cart, error)
	DeleteCart(ctx context.Context, cartID string) error
	AddItem(ctx context.Context, cartID string, productID int64, quantity int) (*domain.CartItem, error)
	UpdateItemQuantity(ctx context.Context, cartID string, itemID int64, quantity int) (*domain.CartItem, error)
	RemoveItem(ctx context.Context, cartID string, itemID int64) error
}

type CartHandler struct {
	carts   CartService
	timeout time.Duration
}

func NewCartHandler(carts CartService, timeout time.Duration) *CartHandler {
	return &CartHandler{
		carts:   carts,
		timeout: timeout,
	}
}

func (h *CartHandler) CreateCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	cart, err := h.carts.CreateCart(ctx)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, toCartDTO(cart))
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	cart, err := h.carts.GetCart(ctx, chi.URLParam(r, "cart_id"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, toCartDTO(cart))
}

func (h *CartHandler) DeleteCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.carts.DeleteCart(ctx, chi.URLParam(r, "cart_id")); err != nil {
		handleServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req AddItemRequestDTO
	if msg, ok := decodeAndValidate(w, r, &req); !ok {
		respondError(w, http.StatusBadRequest, "invalid_request", msg)
		return
	}

	item, err := h.carts.AddItem(ctx, chi.URLParam(r, "cart_id"), req.ProductID, req.Quantity)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, toCartItemDTO(*item))
}

func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	itemID, ok := parseID(w, r, "item_id")
	if !ok {
		return
	}

	var req UpdateQuantityRequestDTO
	if msg, ok := decodeAndValidate(w, r, &req); !ok {
		respondError(w, http.StatusBadRequest, "invalid_request", msg)
		return
	}

	item, err := h.carts.UpdateItemQuantity(ctx, chi.URLParam(r, "cart_id"), itemID, req.Quantity)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, toCartItemDTO(*item))
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	itemID, ok := parseID(w, r, "item_id")
	if !ok {
		return
	}

	if err := h.carts.RemoveItem(ctx, chi.URLParam(r, "cart_id"), itemID); err != nil {
		handleServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// parseID reads a positive integer path parameter. A malformed id cannot name a resource.
func parseID(w http.ResponseWriter, r *http.Request, param string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	if err != nil || id <= 0 {
		respondError(w, http.StatusNotFound, "not_found", param+" must be a positive integer")
		return 0, false
	}
	return id, true
}
