// Package model содержит доменные сущности системы управления складом и заказами.
package model

import "time"

// Role описывает роль учётной записи в системе.
type Role string

const (
	RoleOwner    Role = "owner"
	RoleAdmin    Role = "admin"
	RoleManager  Role = "manager"
	RoleCustomer Role = "customer"
)

// IsValid сообщает, является ли роль одной из известных.
func (r Role) IsValid() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleManager, RoleCustomer:
		return true
	}
	return false
}

// CanManageStock сообщает, разрешено ли роли изменять товары и складские остатки.
func (r Role) CanManageStock() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleManager:
		return true
	}
	return false
}

// Account представляет учётную запись пользователя системы.
type Account struct {
	ID                  int64
	Username            string
	Email               string
	PasswordHash        []byte
	Role                Role
	FailedLoginAttempts int
	LockedUntil         *time.Time
	LastFailedLogin     *time.Time
	CreatedAt           time.Time
}

// Actor описывает аутентифицированного инициатора операции.
// Передаётся явно в каждый вызов бизнес-логики вместо неявного состояния сессии.
type Actor struct {
	ID    int64
	Label string
	Role  Role
}

// OrderStatus описывает статус заказа.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "Pending"
	OrderStatusComplete  OrderStatus = "Complete"
	OrderStatusCancelled OrderStatus = "Cancelled"
)

// IsTerminal сообщает, является ли статус конечным: из него переходов нет.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusComplete || s == OrderStatusCancelled
}

// Order описывает заказ покупателя на один товар.
type Order struct {
	ID            int64
	ProductID     int64
	Quantity      int64
	AmountCents   int64
	Status        OrderStatus
	PaymentMethod string
	CustomerName  string
	CreatedAt     time.Time
}

// StockItem описывает позицию в одной из двух складских таблиц:
// products (готовая продукция) и inventory (сырьё). Обе подчиняются
// одному контракту остатков: количество не опускается ниже нуля.
type StockItem struct {
	ID            int64
	Name          string
	Quantity      int64
	InboundQty    int64
	OutboundQty   int64
	Supplier      string
	LastRestocked *time.Time
	CreatedAt     time.Time
}
