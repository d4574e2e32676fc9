package service

import (
	"context"
	"time"

	"github.com/mmeshcher/inventory-system/internal/audit"
	"github.com/mmeshcher/inventory-system/internal/model"
	"github.com/mmeshcher/inventory-system/internal/repository"
)

type stubRepo struct {
	createAccountID  int64
	createAccountErr error

	getAccount    *model.Account
	getAccountErr error

	deleteAccountErr error

	resetCalls int
	resetErr   error

	failureAttempts int
	failureLocked   *time.Time
	failureErr      error
	failureCalls    int

	noticeTime *time.Time
	noticeErr  error

	createItemID  int64
	createItemErr error

	getItem    *model.StockItem
	getItemErr error

	listItems    []model.StockItem
	listItemsErr error

	updateItemErr   error
	updateItemCalls int

	deleteItemErr   error
	deleteItemCalls int

	reserveCalls int
	reserveErr   error

	releaseCalls int
	releaseErr   error

	adjustErr error

	createOrderID    int64
	createOrderErr   error
	createOrderCalls int

	getOrder    *model.Order
	getOrderErr error

	listOrders    []model.Order
	listOrdersErr error

	updateStatusErr   error
	updateStatusCalls int
	updateStatusFrom  model.OrderStatus
	updateStatusTo    model.OrderStatus
}

func (s *stubRepo) Close() error { return nil }

func (s *stubRepo) CreateAccount(ctx context.Context, username, email string, passwordHash []byte, role model.Role) (int64, error) {
	return s.createAccountID, s.createAccountErr
}

func (s *stubRepo) GetAccountByEmail(ctx context.Context, email string) (*model.Account, error) {
	return s.getAccount, s.getAccountErr
}

func (s *stubRepo) DeleteAccount(ctx context.Context, id int64) error {
	return s.deleteAccountErr
}

func (s *stubRepo) ResetLoginFailures(ctx context.Context, accountID int64) error {
	s.resetCalls++
	return s.resetErr
}

func (s *stubRepo) RecordLoginFailure(ctx context.Context, accountID int64, threshold int, lockFor time.Duration) (int, *time.Time, error) {
	s.failureCalls++
	return s.failureAttempts, s.failureLocked, s.failureErr
}

func (s *stubRepo) ConsumeFailedLoginNotice(ctx context.Context, accountID int64) (*time.Time, error) {
	return s.noticeTime, s.noticeErr
}

func (s *stubRepo) CreateStockItem(ctx context.Context, table repository.StockTable, name string, quantity int64, supplier string) (int64, error) {
	return s.createItemID, s.createItemErr
}

func (s *stubRepo) GetStockItem(ctx context.Context, table repository.StockTable, id int64) (*model.StockItem, error) {
	return s.getItem, s.getItemErr
}

func (s *stubRepo) ListStockItems(ctx context.Context, table repository.StockTable) ([]model.StockItem, error) {
	return s.listItems, s.listItemsErr
}

func (s *stubRepo) UpdateStockItemInfo(ctx context.Context, table repository.StockTable, id int64, name, supplier string) error {
	s.updateItemCalls++
	return s.updateItemErr
}

func (s *stubRepo) DeleteStockItem(ctx context.Context, table repository.StockTable, id int64) error {
	s.deleteItemCalls++
	return s.deleteItemErr
}

func (s *stubRepo) ReserveStock(ctx context.Context, table repository.StockTable, id, quantity int64) error {
	s.reserveCalls++
	return s.reserveErr
}

func (s *stubRepo) ReleaseStock(ctx context.Context, table repository.StockTable, id, quantity int64) error {
	s.releaseCalls++
	return s.releaseErr
}

func (s *stubRepo) AdjustStock(ctx context.Context, table repository.StockTable, id, delta int64, restockedAt time.Time) error {
	return s.adjustErr
}

func (s *stubRepo) CreateOrder(ctx context.Context, o *model.Order) (int64, error) {
	s.createOrderCalls++
	return s.createOrderID, s.createOrderErr
}

func (s *stubRepo) GetOrderByID(ctx context.Context, id int64) (*model.Order, error) {
	return s.getOrder, s.getOrderErr
}

func (s *stubRepo) ListOrders(ctx context.Context) ([]model.Order, error) {
	return s.listOrders, s.listOrdersErr
}

func (s *stubRepo) UpdateOrderStatus(ctx context.Context, id int64, from, to model.OrderStatus) error {
	s.updateStatusCalls++
	s.updateStatusFrom = from
	s.updateStatusTo = to
	return s.updateStatusErr
}

type recorderSpy struct {
	events []audit.Event
}

func (r *recorderSpy) Record(_ context.Context, e audit.Event) {
	r.events = append(r.events, e)
}

func (r *recorderSpy) last() (audit.Event, bool) {
	if len(r.events) == 0 {
		return audit.Event{}, false
	}
	return r.events[len(r.events)-1], true
}

func newTestService(repo *stubRepo) (*Service, *recorderSpy) {
	spy := &recorderSpy{}
	return NewService(repo, spy), spy
}
