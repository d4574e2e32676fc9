// Package handler содержит HTTP-обработчики API сервиса.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/inventory-system/internal/middleware"
	"github.com/mmeshcher/inventory-system/internal/model"
	"github.com/mmeshcher/inventory-system/internal/repository"
	"github.com/mmeshcher/inventory-system/internal/service"
	"github.com/mmeshcher/inventory-system/internal/validation"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	RegisterAccount(ctx context.Context, username, email, password string) (int64, error)
	Authenticate(ctx context.Context, email, password string) (*model.Account, error)
	ConsumeFailedLoginNotice(ctx context.Context, actor model.Actor) (*time.Time, error)
	DeleteAccount(ctx context.Context, actor model.Actor, accountID int64) error

	CreateStockItem(ctx context.Context, actor model.Actor, table repository.StockTable, name string, quantity int64, supplier string) (int64, error)
	ListStockItems(ctx context.Context, table repository.StockTable) ([]model.StockItem, error)
	AdjustStock(ctx context.Context, actor model.Actor, table repository.StockTable, itemID, delta int64) (*model.StockItem, error)
	UpdateStockItemInfo(ctx context.Context, actor model.Actor, table repository.StockTable, itemID int64, name, supplier string) (*model.StockItem, error)
	DeleteStockItem(ctx context.Context, actor model.Actor, table repository.StockTable, itemID int64) error

	CreateOrder(ctx context.Context, actor model.Actor, customerName string, productID, quantity int64, amount float64) (*model.Order, error)
	CancelOrder(ctx context.Context, actor model.Actor, orderID int64) error
	CompleteOrder(ctx context.Context, actor model.Actor, orderID int64) error
	ListOrders(ctx context.Context) ([]model.Order, error)
}

// Handler реализует HTTP-обработчики API сервиса.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
	}
}

// writeError переводит типизированные ошибки ядра в HTTP-статусы.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var vErr *validation.Error
	if errors.As(err, &vErr) {
		http.Error(w, vErr.Error(), http.StatusBadRequest)
		return
	}

	var cErr *service.CompensationError
	if errors.As(err, &cErr) {
		h.logger.Error("compensation failure, manual reconciliation required", zap.Error(cErr))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	switch {
	case errors.Is(err, service.ErrForbidden):
		http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
	case errors.Is(err, repository.ErrAccountExists):
		http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
	case errors.Is(err, repository.ErrAccountNotFound),
		errors.Is(err, repository.ErrItemNotFound),
		errors.Is(err, repository.ErrOrderNotFound):
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	case errors.Is(err, repository.ErrInsufficientStock),
		errors.Is(err, repository.ErrInvalidTransition),
		errors.Is(err, repository.ErrItemInUse):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, repository.ErrInvalidAdjustment):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		h.logger.Error("internal error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func idParam(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(urlParam(r, name), 10, 64)
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register обрабатывает регистрацию новой учётной записи.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.Username == "" || req.Email == "" || req.Password == "" {
		http.Error(w, "all fields are required", http.StatusBadRequest)
		return
	}

	accountID, err := h.service.RegisterAccount(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.authMiddleware.SetAuthCookie(w, model.Actor{ID: accountID, Label: req.Username, Role: model.RoleCustomer})
	w.WriteHeader(http.StatusOK)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login выполняет аутентификацию и устанавливает cookie.
// Заблокированная учётная запись получает 423 и остаток блокировки в Retry-After.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.Email == "" || req.Password == "" {
		http.Error(w, "all fields are required", http.StatusBadRequest)
		return
	}

	account, err := h.service.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		var lockErr *service.AccountLockedError
		if errors.As(err, &lockErr) {
			seconds := int(lockErr.Remaining.Seconds() + 0.5)
			if seconds < 1 {
				seconds = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(seconds))
			http.Error(w, lockErr.Error(), http.StatusLocked)
			return
		}
		if errors.Is(err, service.ErrInvalidCredentials) {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		h.logger.Error("login error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.authMiddleware.SetAuthCookie(w, model.Actor{ID: account.ID, Label: account.Username, Role: account.Role})
	w.WriteHeader(http.StatusOK)
}

type dashboardResponse struct {
	Username        string `json:"username"`
	Role            string `json:"role"`
	LastFailedLogin string `json:"last_failed_login,omitempty"`
}

// Dashboard возвращает данные текущего пользователя и одноразовое уведомление
// о последнем неудачном входе. Уведомление после выдачи очищается.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActorFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	notice, err := h.service.ConsumeFailedLoginNotice(r.Context(), actor)
	if err != nil {
		h.logger.Error("dashboard error", zap.Error(err), zap.Int64("accountID", actor.ID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	resp := dashboardResponse{
		Username: actor.Label,
		Role:     string(actor.Role),
	}
	if notice != nil {
		resp.LastFailedLogin = notice.Format(time.RFC3339)
	}

	writeJSON(w, http.StatusOK, resp)
}

// DeleteAccount удаляет учётную запись. Доступно только владельцу.
func (h *Handler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActorFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	accountID, err := idParam(r, "id")
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := h.service.DeleteAccount(r.Context(), actor, accountID); err != nil {
		h.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
