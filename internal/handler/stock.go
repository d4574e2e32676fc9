package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/mmeshcher/inventory-system/internal/middleware"
	"github.com/mmeshcher/inventory-system/internal/model"
	"github.com/mmeshcher/inventory-system/internal/repository"
)

type stockItemResponse struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Quantity      int64  `json:"quantity"`
	InboundQty    int64  `json:"inbound_qty"`
	OutboundQty   int64  `json:"outbound_qty"`
	Supplier      string `json:"supplier"`
	LastRestocked string `json:"last_restocked,omitempty"`
}

func toStockItemResponse(item model.StockItem) stockItemResponse {
	resp := stockItemResponse{
		ID:          item.ID,
		Name:        item.Name,
		Quantity:    item.Quantity,
		InboundQty:  item.InboundQty,
		OutboundQty: item.OutboundQty,
		Supplier:    item.Supplier,
	}
	if item.LastRestocked != nil {
		resp.LastRestocked = item.LastRestocked.Format(time.RFC3339)
	}
	return resp
}

type createStockItemRequest struct {
	Name     string `json:"name"`
	Quantity int64  `json:"quantity"`
	Supplier string `json:"supplier"`
}

// createStockItem обслуживает добавление позиции в указанную складскую таблицу.
func (h *Handler) createStockItem(table repository.StockTable) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := middleware.GetActorFromContext(r.Context())
		if !ok {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		var req createStockItemRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}

		id, err := h.service.CreateStockItem(r.Context(), actor, table, req.Name, req.Quantity, req.Supplier)
		if err != nil {
			h.writeError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
	}
}

// listStockItems обслуживает чтение указанной складской таблицы.
func (h *Handler) listStockItems(table repository.StockTable) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := h.service.ListStockItems(r.Context(), table)
		if err != nil {
			h.writeError(w, err)
			return
		}

		if len(items) == 0 {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		resp := make([]stockItemResponse, 0, len(items))
		for _, item := range items {
			resp = append(resp, toStockItemResponse(item))
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

type updateStockItemRequest struct {
	Name     string `json:"name"`
	Supplier string `json:"supplier"`
}

// updateStockItem обслуживает изменение названия и поставщика позиции.
func (h *Handler) updateStockItem(table repository.StockTable) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := middleware.GetActorFromContext(r.Context())
		if !ok {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		itemID, err := idParam(r, "id")
		if err != nil {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}

		var req updateStockItemRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}

		item, err := h.service.UpdateStockItemInfo(r.Context(), actor, table, itemID, req.Name, req.Supplier)
		if err != nil {
			h.writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toStockItemResponse(*item))
	}
}

// deleteStockItem обслуживает удаление позиции.
func (h *Handler) deleteStockItem(table repository.StockTable) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := middleware.GetActorFromContext(r.Context())
		if !ok {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		itemID, err := idParam(r, "id")
		if err != nil {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}

		if err := h.service.DeleteStockItem(r.Context(), actor, table, itemID); err != nil {
			h.writeError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

type adjustStockRequest struct {
	Delta int64 `json:"delta"`
}

// adjustStock обслуживает ручную корректировку остатка позиции.
func (h *Handler) adjustStock(table repository.StockTable) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := middleware.GetActorFromContext(r.Context())
		if !ok {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		itemID, err := idParam(r, "id")
		if err != nil {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}

		var req adjustStockRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}

		item, err := h.service.AdjustStock(r.Context(), actor, table, itemID, req.Delta)
		if err != nil {
			h.writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toStockItemResponse(*item))
	}
}
