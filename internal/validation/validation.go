// Package validation содержит функции валидации входных данных.
package validation

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode"
)

// MaxQuantity ограничивает количество в заказах и складских корректировках.
const MaxQuantity = 999999

// Error описывает нарушение конкретного правила валидации.
// Поле и правило возвращаются вызывающей стороне дословно.
type Error struct {
	Field string
	Rule  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Rule)
}

func newError(field, rule string) *Error {
	return &Error{Field: field, Rule: rule}
}

// Email проверяет формат и длину адреса электронной почты.
func Email(email string) error {
	if email == "" {
		return newError("email", "must not be empty")
	}
	if len(email) > 255 {
		return newError("email", "must be at most 255 characters")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return newError("email", "must be a valid email address")
	}
	return nil
}

// Username проверяет длину и состав имени пользователя.
func Username(username string) error {
	if len(username) < 3 || len(username) > 50 {
		return newError("username", "must be between 3 and 50 characters")
	}
	for _, ch := range username {
		if !unicode.IsLetter(ch) && !unicode.IsDigit(ch) && ch != '_' {
			return newError("username", "must contain only letters, digits and underscores")
		}
	}
	return nil
}

// Password проверяет длину и сложность пароля: минимум 8 символов,
// строчная и заглавная буквы, цифра и специальный символ.
func Password(password string) error {
	if len(password) < 8 {
		return newError("password", "must be at least 8 characters")
	}
	if len(password) > 128 {
		return newError("password", "must be at most 128 characters")
	}

	var hasLower, hasUpper, hasDigit, hasSpecial bool
	for _, ch := range password {
		switch {
		case unicode.IsLower(ch):
			hasLower = true
		case unicode.IsUpper(ch):
			hasUpper = true
		case unicode.IsDigit(ch):
			hasDigit = true
		case unicode.IsPunct(ch) || unicode.IsSymbol(ch):
			hasSpecial = true
		}
	}
	if !hasLower || !hasUpper || !hasDigit || !hasSpecial {
		return newError("password", "must contain an uppercase letter, a lowercase letter, a digit and a special character")
	}
	return nil
}

// ProductName проверяет название товара.
func ProductName(name string) error {
	if name == "" || len(name) > 100 {
		return newError("product_name", "must be between 1 and 100 characters")
	}
	if strings.ContainsAny(name, `<>"'`) {
		return newError("product_name", "must not contain quotes or angle brackets")
	}
	return nil
}

// CustomerName проверяет имя покупателя в заказе.
func CustomerName(name string) error {
	if name == "" || len(name) > 100 {
		return newError("customer_name", "must be between 1 and 100 characters")
	}
	if strings.ContainsAny(name, `<>"'`) {
		return newError("customer_name", "must not contain quotes or angle brackets")
	}
	return nil
}

// Supplier проверяет название поставщика.
func Supplier(supplier string) error {
	if supplier == "" || len(supplier) > 100 {
		return newError("supplier", "must be between 1 and 100 characters")
	}
	if strings.ContainsAny(supplier, `<>"'`) {
		return newError("supplier", "must not contain quotes or angle brackets")
	}
	return nil
}

// Quantity проверяет количество единиц товара в заказе.
func Quantity(quantity int64) error {
	if quantity <= 0 {
		return newError("quantity", "must be a positive whole number")
	}
	if quantity > MaxQuantity {
		return newError("quantity", fmt.Sprintf("must be at most %d", MaxQuantity))
	}
	return nil
}

// StockLevel проверяет неотрицательное количество на складе.
func StockLevel(quantity int64) error {
	if quantity < 0 {
		return newError("quantity", "must not be negative")
	}
	if quantity > MaxQuantity {
		return newError("quantity", fmt.Sprintf("must be at most %d", MaxQuantity))
	}
	return nil
}

// Amount проверяет сумму заказа в копейках.
func Amount(cents int64) error {
	if cents < 0 {
		return newError("total_amount", "must not be negative")
	}
	return nil
}
