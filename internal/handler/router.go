package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	custommiddleware "github.com/mmeshcher/inventory-system/internal/middleware"
	"github.com/mmeshcher/inventory-system/internal/repository"
)

// urlParam выделен для читаемости обработчиков: chi хранит параметры в контексте.
func urlParam(r *http.Request, name string) string {
	return chi.URLParam(r, name)
}

// SetupRouter настраивает HTTP-маршруты и middleware сервиса.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", h.Register)
		r.Post("/auth/login", h.Login)

		r.Group(func(r chi.Router) {
			r.Use(h.authMiddleware.Middleware)

			r.Get("/user/dashboard", h.Dashboard)

			r.Post("/orders", h.CreateOrder)
			r.Get("/orders", h.ListOrders)
			r.Post("/orders/{id}/cancel", h.CancelOrder)
			r.Post("/orders/{id}/complete", h.CompleteOrder)

			r.Group(func(r chi.Router) {
				r.Use(custommiddleware.RequireStockManager)

				r.Post("/products", h.createStockItem(repository.StockProducts))
				r.Get("/products", h.listStockItems(repository.StockProducts))
				r.Put("/products/{id}", h.updateStockItem(repository.StockProducts))
				r.Delete("/products/{id}", h.deleteStockItem(repository.StockProducts))
				r.Post("/products/{id}/adjust", h.adjustStock(repository.StockProducts))

				r.Post("/inventory", h.createStockItem(repository.StockInventory))
				r.Get("/inventory", h.listStockItems(repository.StockInventory))
				r.Put("/inventory/{id}", h.updateStockItem(repository.StockInventory))
				r.Delete("/inventory/{id}", h.deleteStockItem(repository.StockInventory))
				r.Post("/inventory/{id}/adjust", h.adjustStock(repository.StockInventory))
			})

			r.Group(func(r chi.Router) {
				r.Use(custommiddleware.RequireOwner)

				r.Delete("/accounts/{id}", h.DeleteAccount)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}
