package validation

import (
	"errors"
	"strings"
	"testing"
)

func TestEmail(t *testing.T) {
	tests := []struct {
		name  string
		email string
		valid bool
	}{
		{name: "valid", email: "user@example.com", valid: true},
		{name: "empty", email: "", valid: false},
		{name: "no at sign", email: "user.example.com", valid: false},
		{name: "too long", email: strings.Repeat("a", 250) + "@example.com", valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Email(tt.email)
			if (err == nil) != tt.valid {
				t.Fatalf("Email(%q) = %v, want valid=%v", tt.email, err, tt.valid)
			}
		})
	}
}

func TestUsername(t *testing.T) {
	tests := []struct {
		name     string
		username string
		valid    bool
	}{
		{name: "valid", username: "user_1", valid: true},
		{name: "too short", username: "ab", valid: false},
		{name: "too long", username: strings.Repeat("a", 51), valid: false},
		{name: "spaces", username: "user name", valid: false},
		{name: "dash", username: "user-name", valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Username(tt.username)
			if (err == nil) != tt.valid {
				t.Fatalf("Username(%q) = %v, want valid=%v", tt.username, err, tt.valid)
			}
		})
	}
}

func TestPassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		valid    bool
	}{
		{name: "valid", password: "Secret#123", valid: true},
		{name: "too short", password: "S#1a", valid: false},
		{name: "no uppercase", password: "secret#123", valid: false},
		{name: "no digit", password: "Secret#abc", valid: false},
		{name: "no special", password: "Secret1234", valid: false},
		{name: "too long", password: "A#1" + strings.Repeat("a", 130), valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Password(tt.password)
			if (err == nil) != tt.valid {
				t.Fatalf("Password(...) = %v, want valid=%v", err, tt.valid)
			}
		})
	}
}

func TestQuantity(t *testing.T) {
	tests := []struct {
		name     string
		quantity int64
		valid    bool
	}{
		{name: "valid", quantity: 3, valid: true},
		{name: "zero", quantity: 0, valid: false},
		{name: "negative", quantity: -1, valid: false},
		{name: "max", quantity: MaxQuantity, valid: true},
		{name: "over max", quantity: MaxQuantity + 1, valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Quantity(tt.quantity)
			if (err == nil) != tt.valid {
				t.Fatalf("Quantity(%d) = %v, want valid=%v", tt.quantity, err, tt.valid)
			}
		})
	}
}

func TestStockLevel_AllowsZero(t *testing.T) {
	if err := StockLevel(0); err != nil {
		t.Fatalf("StockLevel(0) = %v, want nil", err)
	}
	if err := StockLevel(-1); err == nil {
		t.Fatalf("StockLevel(-1) must be rejected")
	}
}

func TestProductName(t *testing.T) {
	if err := ProductName("Battery AA"); err != nil {
		t.Fatalf("ProductName = %v, want nil", err)
	}
	if err := ProductName(`<script>`); err == nil {
		t.Fatalf("angle brackets must be rejected")
	}
	if err := ProductName(""); err == nil {
		t.Fatalf("empty name must be rejected")
	}
}

func TestError_ReportsFieldAndRule(t *testing.T) {
	err := Quantity(-5)

	var vErr *Error
	if !errors.As(err, &vErr) {
		t.Fatalf("error = %v, want *Error", err)
	}
	if vErr.Field != "quantity" {
		t.Fatalf("field = %q, want quantity", vErr.Field)
	}
	if !strings.Contains(err.Error(), "positive") {
		t.Fatalf("message %q must name the violated rule", err.Error())
	}
}
