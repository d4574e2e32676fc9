package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/mmeshcher/inventory-system/internal/middleware"
	"github.com/mmeshcher/inventory-system/internal/model"
)

type createOrderRequest struct {
	CustomerName string  `json:"customer_name"`
	ProductID    int64   `json:"product_id"`
	Quantity     int64   `json:"quantity"`
	TotalAmount  float64 `json:"total_amount"`
}

type orderResponse struct {
	ID            int64   `json:"id"`
	ProductID     int64   `json:"product_id"`
	Quantity      int64   `json:"quantity"`
	TotalAmount   float64 `json:"total_amount"`
	Status        string  `json:"status"`
	PaymentMethod string  `json:"payment_method"`
	CustomerName  string  `json:"customer_name"`
	CreatedAt     string  `json:"created_at"`
}

func toOrderResponse(o model.Order) orderResponse {
	return orderResponse{
		ID:            o.ID,
		ProductID:     o.ProductID,
		Quantity:      o.Quantity,
		TotalAmount:   float64(o.AmountCents) / 100,
		Status:        string(o.Status),
		PaymentMethod: o.PaymentMethod,
		CustomerName:  o.CustomerName,
		CreatedAt:     o.CreatedAt.Format(time.RFC3339),
	}
}

// CreateOrder принимает новый заказ: резерв товара и строка заказа создаются
// как одна логическая единица.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActorFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	order, err := h.service.CreateOrder(r.Context(), actor, req.CustomerName, req.ProductID, req.Quantity, req.TotalAmount)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toOrderResponse(*order))
}

// ListOrders возвращает заказы: сначала Pending, внутри статуса — новые первыми.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.ListOrders(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}

	if len(orders) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	resp := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		resp = append(resp, toOrderResponse(o))
	}

	writeJSON(w, http.StatusOK, resp)
}

// CancelOrder отменяет заказ и возвращает товар на склад.
func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActorFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	orderID, err := idParam(r, "id")
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := h.service.CancelOrder(r.Context(), actor, orderID); err != nil {
		h.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// CompleteOrder завершает заказ.
func (h *Handler) CompleteOrder(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActorFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	orderID, err := idParam(r, "id")
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := h.service.CompleteOrder(r.Context(), actor, orderID); err != nil {
		h.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}
