package service

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/mmeshcher/inventory-system/internal/audit"
	"github.com/mmeshcher/inventory-system/internal/model"
	"github.com/mmeshcher/inventory-system/internal/repository"
	"github.com/mmeshcher/inventory-system/internal/validation"
)

// defaultPaymentMethod используется, если способ оплаты не указан.
const defaultPaymentMethod = "Cash"

// maxOrderAmount ограничивает сумму заказа в рублях: преобразование в копейки
// допустимо только для float64 в этом диапазоне.
const maxOrderAmount = 1e12

// CreateOrder резервирует товар и создаёт заказ в статусе Pending.
// Резерв и вставка строки заказа — одна логическая единица: если вставка не
// удалась после успешного резерва, резерв откатывается компенсирующим
// возвратом, чтобы остаток не терялся на несуществующий заказ.
func (s *Service) CreateOrder(ctx context.Context, actor model.Actor, customerName string, productID, quantity int64, amount float64) (*model.Order, error) {
	if math.IsNaN(amount) || amount < 0 || amount > maxOrderAmount {
		vErr := &validation.Error{Field: "total_amount", Rule: fmt.Sprintf("must be between 0 and %d", int64(maxOrderAmount))}
		s.record(ctx, audit.EventValidationFailure, actor, fmt.Sprintf("order rejected: %v", vErr), false)
		return nil, vErr
	}
	amountCents := int64(math.Round(amount * 100))

	for _, err := range []error{
		validation.CustomerName(customerName),
		validation.Quantity(quantity),
		validation.Amount(amountCents),
	} {
		if err != nil {
			s.record(ctx, audit.EventValidationFailure, actor, fmt.Sprintf("order rejected: %v", err), false)
			return nil, err
		}
	}

	if err := s.repo.ReserveStock(ctx, repository.StockProducts, productID, quantity); err != nil {
		switch {
		case errors.Is(err, repository.ErrItemNotFound):
			vErr := &validation.Error{Field: "product_id", Rule: "unknown product"}
			s.record(ctx, audit.EventValidationFailure, actor,
				fmt.Sprintf("order rejected: product %d not found", productID), false)
			return nil, vErr
		case errors.Is(err, repository.ErrInsufficientStock):
			s.record(ctx, audit.EventInsufficientStock, actor,
				fmt.Sprintf("order rejected: product %d, %v", productID, err), false)
			return nil, err
		default:
			s.record(ctx, audit.EventStorageError, actor,
				fmt.Sprintf("reserve product %d x%d: %v", productID, quantity, err), false)
			return nil, err
		}
	}

	order := &model.Order{
		ProductID:     productID,
		Quantity:      quantity,
		AmountCents:   amountCents,
		Status:        model.OrderStatusPending,
		PaymentMethod: defaultPaymentMethod,
		CustomerName:  customerName,
	}

	id, err := s.repo.CreateOrder(ctx, order)
	if err != nil {
		if relErr := s.repo.ReleaseStock(ctx, repository.StockProducts, productID, quantity); relErr != nil {
			cErr := &CompensationError{Op: fmt.Sprintf("rollback reservation of product %d x%d", productID, quantity), Err: relErr}
			s.record(ctx, audit.EventCompensationFailure, actor, cErr.Error(), false)
			return nil, cErr
		}
		s.record(ctx, audit.EventStorageError, actor, fmt.Sprintf("insert order: %v", err), false)
		return nil, err
	}
	order.ID = id

	s.record(ctx, audit.EventOrderCreated, actor,
		fmt.Sprintf("order %d created: customer %s, product %d, quantity %d, amount %d", id, customerName, productID, quantity, amountCents), true)

	return order, nil
}

// CancelOrder отменяет заказ и возвращает зарезервированный товар на склад.
// Переход статуса условный: отмена проходит ровно один раз, поэтому возврат
// остатка не задублируется.
func (s *Service) CancelOrder(ctx context.Context, actor model.Actor, orderID int64) error {
	order, err := s.repo.GetOrderByID(ctx, orderID)
	if err != nil {
		return err
	}

	if err := s.repo.UpdateOrderStatus(ctx, orderID, model.OrderStatusPending, model.OrderStatusCancelled); err != nil {
		if errors.Is(err, repository.ErrInvalidTransition) {
			s.record(ctx, audit.EventOrderCancelled, actor,
				fmt.Sprintf("cancel order %d rejected: %v", orderID, err), false)
			return err
		}
		s.record(ctx, audit.EventStorageError, actor, fmt.Sprintf("cancel order %d: %v", orderID, err), false)
		return err
	}

	if err := s.repo.ReleaseStock(ctx, repository.StockProducts, order.ProductID, order.Quantity); err != nil {
		// Заказ уже отменён, но остаток не восстановлен: известное рассогласование.
		cErr := &CompensationError{Op: fmt.Sprintf("restock product %d x%d after cancelling order %d", order.ProductID, order.Quantity, orderID), Err: err}
		s.record(ctx, audit.EventCompensationFailure, actor, cErr.Error(), false)
		return cErr
	}

	s.record(ctx, audit.EventOrderCancelled, actor,
		fmt.Sprintf("order %d cancelled, product %d restocked by %d", orderID, order.ProductID, order.Quantity), true)

	return nil
}

// CompleteOrder завершает заказ. Остаток не меняется: списание произошло при создании.
func (s *Service) CompleteOrder(ctx context.Context, actor model.Actor, orderID int64) error {
	if err := s.repo.UpdateOrderStatus(ctx, orderID, model.OrderStatusPending, model.OrderStatusComplete); err != nil {
		if errors.Is(err, repository.ErrInvalidTransition) {
			s.record(ctx, audit.EventOrderCompleted, actor,
				fmt.Sprintf("complete order %d rejected: %v", orderID, err), false)
			return err
		}
		if errors.Is(err, repository.ErrOrderNotFound) {
			return err
		}
		s.record(ctx, audit.EventStorageError, actor, fmt.Sprintf("complete order %d: %v", orderID, err), false)
		return err
	}

	s.record(ctx, audit.EventOrderCompleted, actor, fmt.Sprintf("order %d completed", orderID), true)

	return nil
}

// ListOrders возвращает заказы: сначала Pending, внутри статуса — новые первыми.
func (s *Service) ListOrders(ctx context.Context) ([]model.Order, error) {
	return s.repo.ListOrders(ctx)
}
