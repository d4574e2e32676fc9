// Package service реализует бизнес-логику системы управления складом и заказами:
// складскую книгу, жизненный цикл заказов и ограничение попыток входа.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mmeshcher/inventory-system/internal/audit"
	"github.com/mmeshcher/inventory-system/internal/model"
	"github.com/mmeshcher/inventory-system/internal/repository"
)

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error

	CreateAccount(ctx context.Context, username, email string, passwordHash []byte, role model.Role) (int64, error)
	GetAccountByEmail(ctx context.Context, email string) (*model.Account, error)
	DeleteAccount(ctx context.Context, id int64) error
	ResetLoginFailures(ctx context.Context, accountID int64) error
	RecordLoginFailure(ctx context.Context, accountID int64, threshold int, lockFor time.Duration) (int, *time.Time, error)
	ConsumeFailedLoginNotice(ctx context.Context, accountID int64) (*time.Time, error)

	CreateStockItem(ctx context.Context, table repository.StockTable, name string, quantity int64, supplier string) (int64, error)
	GetStockItem(ctx context.Context, table repository.StockTable, id int64) (*model.StockItem, error)
	ListStockItems(ctx context.Context, table repository.StockTable) ([]model.StockItem, error)
	UpdateStockItemInfo(ctx context.Context, table repository.StockTable, id int64, name, supplier string) error
	DeleteStockItem(ctx context.Context, table repository.StockTable, id int64) error
	ReserveStock(ctx context.Context, table repository.StockTable, id, quantity int64) error
	ReleaseStock(ctx context.Context, table repository.StockTable, id, quantity int64) error
	AdjustStock(ctx context.Context, table repository.StockTable, id, delta int64, restockedAt time.Time) error

	CreateOrder(ctx context.Context, o *model.Order) (int64, error)
	GetOrderByID(ctx context.Context, id int64) (*model.Order, error)
	ListOrders(ctx context.Context) ([]model.Order, error)
	UpdateOrderStatus(ctx context.Context, id int64, from, to model.OrderStatus) error
}

// ErrInvalidCredentials возвращается при неверной паре email/пароль.
// Причина (неизвестный email или неверный пароль) намеренно не раскрывается.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrForbidden возвращается, когда роли инициатора недостаточно для операции.
	ErrForbidden = errors.New("operation not permitted for role")
)

// AccountLockedError возвращается при попытке входа в заблокированную учётную
// запись и несёт оставшееся время блокировки.
type AccountLockedError struct {
	Remaining time.Duration
}

func (e *AccountLockedError) Error() string {
	return fmt.Sprintf("account locked, try again in %s", e.Remaining.Round(time.Second))
}

// CompensationError сообщает, что компенсирующее действие не выполнилось после
// успешного основного шага. Состояние рассогласовано известным образом и
// требует ручной сверки, поэтому ошибка отличима от обычной ошибки хранилища.
type CompensationError struct {
	Op  string
	Err error
}

func (e *CompensationError) Error() string {
	return fmt.Sprintf("compensation failed (%s): %v", e.Op, e.Err)
}

func (e *CompensationError) Unwrap() error {
	return e.Err
}

// Service содержит бизнес-логику системы.
type Service struct {
	repo    Repository
	auditor audit.Recorder
}

// NewService создаёт новый сервис с указанным репозиторием и журналом событий.
func NewService(repo Repository, auditor audit.Recorder) *Service {
	return &Service{
		repo:    repo,
		auditor: auditor,
	}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

func (s *Service) record(ctx context.Context, t audit.EventType, actor model.Actor, details string, success bool) {
	var actorID *int64
	label := actor.Label
	if actor.ID != 0 {
		id := actor.ID
		actorID = &id
	}
	if label == "" {
		label = "Unknown"
	}
	s.auditor.Record(ctx, audit.NewEvent(t, actorID, label, details, success))
}
