package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mmeshcher/inventory-system/internal/audit"
	"github.com/mmeshcher/inventory-system/internal/model"
	"github.com/mmeshcher/inventory-system/internal/repository"
	"github.com/mmeshcher/inventory-system/internal/validation"
)

func stockTableName(table repository.StockTable) string {
	if table == repository.StockInventory {
		return "inventory"
	}
	return "products"
}

// CreateStockItem добавляет позицию в складскую таблицу.
func (s *Service) CreateStockItem(ctx context.Context, actor model.Actor, table repository.StockTable, name string, quantity int64, supplier string) (int64, error) {
	if !actor.Role.CanManageStock() {
		return 0, ErrForbidden
	}

	for _, err := range []error{
		validation.ProductName(name),
		validation.StockLevel(quantity),
		validation.Supplier(supplier),
	} {
		if err != nil {
			s.record(ctx, audit.EventValidationFailure, actor, fmt.Sprintf("create %s item rejected: %v", stockTableName(table), err), false)
			return 0, err
		}
	}

	id, err := s.repo.CreateStockItem(ctx, table, name, quantity, supplier)
	if err != nil {
		s.record(ctx, audit.EventStorageError, actor, fmt.Sprintf("create %s item: %v", stockTableName(table), err), false)
		return 0, err
	}

	s.record(ctx, audit.EventStockItemCreated, actor,
		fmt.Sprintf("%s item created: %s, quantity %d, supplier %s", stockTableName(table), name, quantity, supplier), true)

	return id, nil
}

// ListStockItems возвращает все позиции складской таблицы.
func (s *Service) ListStockItems(ctx context.Context, table repository.StockTable) ([]model.StockItem, error) {
	return s.repo.ListStockItems(ctx, table)
}

// AdjustStock выполняет ручную корректировку остатка. Корректировка,
// уводящая остаток в минус, отклоняется без изменения состояния.
func (s *Service) AdjustStock(ctx context.Context, actor model.Actor, table repository.StockTable, itemID, delta int64) (*model.StockItem, error) {
	if !actor.Role.CanManageStock() {
		return nil, ErrForbidden
	}

	if delta == 0 || delta > validation.MaxQuantity || delta < -validation.MaxQuantity {
		err := &validation.Error{Field: "delta", Rule: fmt.Sprintf("must be a non-zero value between %d and %d", -validation.MaxQuantity, validation.MaxQuantity)}
		s.record(ctx, audit.EventValidationFailure, actor, fmt.Sprintf("adjust %s item %d rejected: %v", stockTableName(table), itemID, err), false)
		return nil, err
	}

	if err := s.repo.AdjustStock(ctx, table, itemID, delta, time.Now()); err != nil {
		if errors.Is(err, repository.ErrInvalidAdjustment) {
			s.record(ctx, audit.EventStockAdjusted, actor,
				fmt.Sprintf("%s item %d adjustment rejected: %v", stockTableName(table), itemID, err), false)
			return nil, err
		}
		if errors.Is(err, repository.ErrItemNotFound) {
			return nil, err
		}
		s.record(ctx, audit.EventStorageError, actor, fmt.Sprintf("adjust %s item %d: %v", stockTableName(table), itemID, err), false)
		return nil, err
	}

	item, err := s.repo.GetStockItem(ctx, table, itemID)
	if err != nil {
		// Корректировка уже применена: событие фиксируется по известной дельте.
		s.record(ctx, audit.EventStockAdjusted, actor,
			fmt.Sprintf("%s item %d adjusted by %+d", stockTableName(table), itemID, delta), true)
		return nil, err
	}

	s.record(ctx, audit.EventStockAdjusted, actor,
		fmt.Sprintf("%s item %d (%s): stock %d -> %d", stockTableName(table), itemID, item.Name, item.Quantity-delta, item.Quantity), true)

	return item, nil
}

// UpdateStockItemInfo изменяет название и поставщика позиции.
func (s *Service) UpdateStockItemInfo(ctx context.Context, actor model.Actor, table repository.StockTable, itemID int64, name, supplier string) (*model.StockItem, error) {
	if !actor.Role.CanManageStock() {
		return nil, ErrForbidden
	}

	for _, err := range []error{
		validation.ProductName(name),
		validation.Supplier(supplier),
	} {
		if err != nil {
			s.record(ctx, audit.EventValidationFailure, actor, fmt.Sprintf("update %s item %d rejected: %v", stockTableName(table), itemID, err), false)
			return nil, err
		}
	}

	if err := s.repo.UpdateStockItemInfo(ctx, table, itemID, name, supplier); err != nil {
		if errors.Is(err, repository.ErrItemNotFound) {
			return nil, err
		}
		s.record(ctx, audit.EventStorageError, actor, fmt.Sprintf("update %s item %d: %v", stockTableName(table), itemID, err), false)
		return nil, err
	}

	s.record(ctx, audit.EventStockItemUpdated, actor,
		fmt.Sprintf("%s item %d updated: name %s, supplier %s", stockTableName(table), itemID, name, supplier), true)

	item, err := s.repo.GetStockItem(ctx, table, itemID)
	if err != nil {
		return nil, err
	}

	return item, nil
}

// DeleteStockItem удаляет складскую позицию. Товар с заказами защищён от
// удаления внешним ключом и возвращает отказ без изменения состояния.
func (s *Service) DeleteStockItem(ctx context.Context, actor model.Actor, table repository.StockTable, itemID int64) error {
	if !actor.Role.CanManageStock() {
		return ErrForbidden
	}

	if err := s.repo.DeleteStockItem(ctx, table, itemID); err != nil {
		switch {
		case errors.Is(err, repository.ErrItemNotFound):
			return err
		case errors.Is(err, repository.ErrItemInUse):
			s.record(ctx, audit.EventStockItemDeleted, actor,
				fmt.Sprintf("delete %s item %d rejected: %v", stockTableName(table), itemID, err), false)
			return err
		default:
			s.record(ctx, audit.EventStorageError, actor, fmt.Sprintf("delete %s item %d: %v", stockTableName(table), itemID, err), false)
			return err
		}
	}

	s.record(ctx, audit.EventStockItemDeleted, actor,
		fmt.Sprintf("%s item %d deleted", stockTableName(table), itemID), true)

	return nil
}
