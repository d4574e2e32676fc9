package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/mmeshcher/inventory-system/internal/audit"
	"github.com/mmeshcher/inventory-system/internal/model"
	"github.com/mmeshcher/inventory-system/internal/repository"
	"github.com/mmeshcher/inventory-system/internal/validation"
)

func TestCreateStockItem_RequiresManagerRole(t *testing.T) {
	svc, _ := newTestService(&stubRepo{})

	customer := model.Actor{ID: 2, Label: "customer1", Role: model.RoleCustomer}
	_, err := svc.CreateStockItem(context.Background(), customer, repository.StockProducts, "Battery", 10, "Acme")
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("error = %v, want ErrForbidden", err)
	}
}

func TestCreateStockItem_Validation(t *testing.T) {
	tests := []struct {
		name     string
		itemName string
		quantity int64
		supplier string
	}{
		{name: "empty name", itemName: "", quantity: 1, supplier: "Acme"},
		{name: "negative quantity", itemName: "Battery", quantity: -1, supplier: "Acme"},
		{name: "empty supplier", itemName: "Battery", quantity: 1, supplier: ""},
		{name: "quotes in name", itemName: `Bat"tery`, quantity: 1, supplier: "Acme"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService(&stubRepo{})

			_, err := svc.CreateStockItem(context.Background(), testActor, repository.StockProducts, tt.itemName, tt.quantity, tt.supplier)

			var vErr *validation.Error
			if !errors.As(err, &vErr) {
				t.Fatalf("error = %v, want validation.Error", err)
			}
		})
	}
}

func TestCreateStockItem_Success(t *testing.T) {
	repo := &stubRepo{createItemID: 5}
	svc, spy := newTestService(repo)

	id, err := svc.CreateStockItem(context.Background(), testActor, repository.StockInventory, "Flour", 100, "Mill Co")
	if err != nil {
		t.Fatalf("CreateStockItem error: %v", err)
	}
	if id != 5 {
		t.Fatalf("id = %d, want 5", id)
	}

	e, ok := spy.last()
	if !ok || e.Type != audit.EventStockItemCreated {
		t.Fatalf("last audit event = %+v, want STOCK_ITEM_CREATED", e)
	}
	if !strings.Contains(e.Details, "inventory") {
		t.Fatalf("details %q must name the inventory table", e.Details)
	}
}

func TestAdjustStock_Success_RecordsBeforeAfter(t *testing.T) {
	repo := &stubRepo{
		getItem: &model.StockItem{ID: 5, Name: "Battery", Quantity: 7},
	}
	svc, spy := newTestService(repo)

	item, err := svc.AdjustStock(context.Background(), testActor, repository.StockProducts, 5, 3)
	if err != nil {
		t.Fatalf("AdjustStock error: %v", err)
	}
	if item.Quantity != 7 {
		t.Fatalf("quantity = %d, want 7", item.Quantity)
	}

	e, ok := spy.last()
	if !ok || e.Type != audit.EventStockAdjusted || !e.Success {
		t.Fatalf("last audit event = %+v, want successful STOCK_ADJUSTED", e)
	}
	if !strings.Contains(e.Details, "4 -> 7") {
		t.Fatalf("details %q must contain before/after stock", e.Details)
	}
}

func TestAdjustStock_ReadBackFailure_StillAudited(t *testing.T) {
	repo := &stubRepo{
		getItemErr: errors.New("connection refused"),
	}
	svc, spy := newTestService(repo)

	_, err := svc.AdjustStock(context.Background(), testActor, repository.StockProducts, 5, 3)
	if err == nil {
		t.Fatalf("read-back failure must surface as an error")
	}

	// Корректировка применилась, поэтому событие обязано быть записано.
	e, ok := spy.last()
	if !ok || e.Type != audit.EventStockAdjusted || !e.Success {
		t.Fatalf("last audit event = %+v, want successful STOCK_ADJUSTED", e)
	}
	if !strings.Contains(e.Details, "+3") {
		t.Fatalf("details %q must carry the applied delta", e.Details)
	}
}

func TestAdjustStock_NegativeResult_Rejected(t *testing.T) {
	repo := &stubRepo{
		adjustErr: repository.ErrInvalidAdjustment,
	}
	svc, spy := newTestService(repo)

	_, err := svc.AdjustStock(context.Background(), testActor, repository.StockProducts, 5, -100)
	if !errors.Is(err, repository.ErrInvalidAdjustment) {
		t.Fatalf("error = %v, want ErrInvalidAdjustment", err)
	}

	e, ok := spy.last()
	if !ok || e.Type != audit.EventStockAdjusted || e.Success {
		t.Fatalf("last audit event = %+v, want failed STOCK_ADJUSTED", e)
	}
}

func TestAdjustStock_ZeroDelta_Rejected(t *testing.T) {
	repo := &stubRepo{}
	svc, _ := newTestService(repo)

	_, err := svc.AdjustStock(context.Background(), testActor, repository.StockProducts, 5, 0)

	var vErr *validation.Error
	if !errors.As(err, &vErr) {
		t.Fatalf("error = %v, want validation.Error", err)
	}
}

func TestAdjustStock_RequiresManagerRole(t *testing.T) {
	svc, _ := newTestService(&stubRepo{})

	customer := model.Actor{ID: 2, Label: "customer1", Role: model.RoleCustomer}
	_, err := svc.AdjustStock(context.Background(), customer, repository.StockInventory, 5, 1)
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("error = %v, want ErrForbidden", err)
	}
}

func TestUpdateStockItemInfo_Success(t *testing.T) {
	repo := &stubRepo{
		getItem: &model.StockItem{ID: 5, Name: "Battery AAA", Supplier: "Acme", Quantity: 7},
	}
	svc, spy := newTestService(repo)

	item, err := svc.UpdateStockItemInfo(context.Background(), testActor, repository.StockProducts, 5, "Battery AAA", "Acme")
	if err != nil {
		t.Fatalf("UpdateStockItemInfo error: %v", err)
	}
	if item.Name != "Battery AAA" {
		t.Fatalf("name = %q, want Battery AAA", item.Name)
	}
	if repo.updateItemCalls != 1 {
		t.Fatalf("UpdateStockItemInfo calls = %d, want 1", repo.updateItemCalls)
	}

	e, ok := spy.last()
	if !ok || e.Type != audit.EventStockItemUpdated || !e.Success {
		t.Fatalf("last audit event = %+v, want successful STOCK_ITEM_UPDATED", e)
	}
}

func TestUpdateStockItemInfo_Validation(t *testing.T) {
	tests := []struct {
		name     string
		itemName string
		supplier string
	}{
		{name: "empty name", itemName: "", supplier: "Acme"},
		{name: "empty supplier", itemName: "Battery", supplier: ""},
		{name: "quotes in supplier", itemName: "Battery", supplier: `Ac"me`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &stubRepo{}
			svc, _ := newTestService(repo)

			_, err := svc.UpdateStockItemInfo(context.Background(), testActor, repository.StockProducts, 5, tt.itemName, tt.supplier)

			var vErr *validation.Error
			if !errors.As(err, &vErr) {
				t.Fatalf("error = %v, want validation.Error", err)
			}
			if repo.updateItemCalls != 0 {
				t.Fatalf("rejected update must not touch the repository")
			}
		})
	}
}

func TestUpdateStockItemInfo_RequiresManagerRole(t *testing.T) {
	svc, _ := newTestService(&stubRepo{})

	customer := model.Actor{ID: 2, Label: "customer1", Role: model.RoleCustomer}
	_, err := svc.UpdateStockItemInfo(context.Background(), customer, repository.StockProducts, 5, "Battery", "Acme")
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("error = %v, want ErrForbidden", err)
	}
}

func TestDeleteStockItem_Success(t *testing.T) {
	repo := &stubRepo{}
	svc, spy := newTestService(repo)

	if err := svc.DeleteStockItem(context.Background(), testActor, repository.StockInventory, 5); err != nil {
		t.Fatalf("DeleteStockItem error: %v", err)
	}
	if repo.deleteItemCalls != 1 {
		t.Fatalf("DeleteStockItem calls = %d, want 1", repo.deleteItemCalls)
	}

	e, ok := spy.last()
	if !ok || e.Type != audit.EventStockItemDeleted || !e.Success {
		t.Fatalf("last audit event = %+v, want successful STOCK_ITEM_DELETED", e)
	}
	if !strings.Contains(e.Details, "inventory") {
		t.Fatalf("details %q must name the inventory table", e.Details)
	}
}

func TestDeleteStockItem_ReferencedByOrders(t *testing.T) {
	repo := &stubRepo{
		deleteItemErr: repository.ErrItemInUse,
	}
	svc, spy := newTestService(repo)

	err := svc.DeleteStockItem(context.Background(), testActor, repository.StockProducts, 5)
	if !errors.Is(err, repository.ErrItemInUse) {
		t.Fatalf("error = %v, want ErrItemInUse", err)
	}

	e, ok := spy.last()
	if !ok || e.Type != audit.EventStockItemDeleted || e.Success {
		t.Fatalf("last audit event = %+v, want failed STOCK_ITEM_DELETED", e)
	}
}

func TestDeleteStockItem_RequiresManagerRole(t *testing.T) {
	svc, _ := newTestService(&stubRepo{})

	customer := model.Actor{ID: 2, Label: "customer1", Role: model.RoleCustomer}
	err := svc.DeleteStockItem(context.Background(), customer, repository.StockProducts, 5)
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("error = %v, want ErrForbidden", err)
	}
}
