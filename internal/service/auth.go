package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/mmeshcher/inventory-system/internal/audit"
	"github.com/mmeshcher/inventory-system/internal/model"
	"github.com/mmeshcher/inventory-system/internal/repository"
	"github.com/mmeshcher/inventory-system/internal/validation"
)

const (
	// lockThreshold — число неудачных входов подряд, после которого учётная запись блокируется.
	lockThreshold = 5
	// lockDuration — длительность блокировки.
	lockDuration = 15 * time.Minute
)

// RegisterAccount регистрирует новую учётную запись с ролью покупателя.
func (s *Service) RegisterAccount(ctx context.Context, username, email, password string) (int64, error) {
	actor := model.Actor{Label: username}

	for _, err := range []error{
		validation.Username(username),
		validation.Email(email),
		validation.Password(password),
	} {
		if err != nil {
			s.record(ctx, audit.EventValidationFailure, actor, fmt.Sprintf("signup rejected: %v", err), false)
			return 0, err
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return 0, fmt.Errorf("hash password: %w", err)
	}

	id, err := s.repo.CreateAccount(ctx, username, email, hash, model.RoleCustomer)
	if err != nil {
		if errors.Is(err, repository.ErrAccountExists) {
			s.record(ctx, audit.EventValidationFailure, actor, fmt.Sprintf("signup rejected: email %s already registered", email), false)
			return 0, err
		}
		s.record(ctx, audit.EventStorageError, actor, fmt.Sprintf("signup failed: %v", err), false)
		return 0, err
	}

	s.record(ctx, audit.EventAccountCreated, model.Actor{ID: id, Label: username}, fmt.Sprintf("account created: %s (%s)", username, email), true)

	return id, nil
}

// Authenticate проверяет учётные данные с учётом блокировки после серии
// неудачных попыток. Для заблокированной записи пароль не проверяется вовсе:
// отказ возвращается сразу по фиксированному пути.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*model.Account, error) {
	actor := model.Actor{Label: email}

	account, err := s.repo.GetAccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			s.record(ctx, audit.EventLoginFailure, actor, "account not found", false)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("load account: %w", err)
	}
	actor.ID = account.ID
	actor.Label = account.Username

	// Блокировка проверяется лениво по сохранённому сроку: фоновый процесс её не снимает.
	if remaining := lockRemaining(account, time.Now()); remaining > 0 {
		s.record(ctx, audit.EventLoginFailure, actor,
			fmt.Sprintf("rejected: account locked for another %s", remaining.Round(time.Second)), false)
		return nil, &AccountLockedError{Remaining: remaining}
	}

	if err := bcrypt.CompareHashAndPassword(account.PasswordHash, []byte(password)); err != nil {
		return nil, s.recordFailure(ctx, actor)
	}

	s.recordSuccess(ctx, account, actor)

	return account, nil
}

// lockRemaining возвращает остаток блокировки или 0, если записи разрешён вход.
func lockRemaining(a *model.Account, now time.Time) time.Duration {
	if a.LockedUntil == nil || !a.LockedUntil.After(now) {
		return 0
	}
	return a.LockedUntil.Sub(now)
}

// recordFailure фиксирует неудачную попытку входа. Инкремент счётчика и
// сравнение с порогом выполняются в хранилище одним шагом. Отказ хранилища
// не дарит неограниченные попытки: наружу уходит тот же отказ в аутентификации.
func (s *Service) recordFailure(ctx context.Context, actor model.Actor) error {
	attempts, lockedUntil, err := s.repo.RecordLoginFailure(ctx, actor.ID, lockThreshold, lockDuration)
	if err != nil {
		s.record(ctx, audit.EventStorageError, actor, fmt.Sprintf("record login failure: %v", err), false)
		return ErrInvalidCredentials
	}

	if attempts >= lockThreshold && lockedUntil != nil {
		remaining := time.Until(*lockedUntil)
		s.record(ctx, audit.EventAccountLocked, actor,
			fmt.Sprintf("account locked after %d failed attempts until %s", attempts, lockedUntil.Format(time.RFC3339)), false)
		return &AccountLockedError{Remaining: remaining}
	}

	s.record(ctx, audit.EventLoginFailure, actor,
		fmt.Sprintf("failed attempt %d of %d", attempts, lockThreshold), false)

	return ErrInvalidCredentials
}

// recordSuccess сбрасывает счётчик неудачных входов и снимает блокировку.
// Сброс best effort: его отказ не мешает легитимному входу.
func (s *Service) recordSuccess(ctx context.Context, account *model.Account, actor model.Actor) {
	if err := s.repo.ResetLoginFailures(ctx, account.ID); err != nil {
		s.record(ctx, audit.EventStorageError, actor, fmt.Sprintf("reset login failures: %v", err), false)
	}

	s.record(ctx, audit.EventLoginSuccess, actor, "login successful", true)
}

// ConsumeFailedLoginNotice возвращает время последнего неудачного входа для
// одноразового уведомления на дашборде и очищает его.
func (s *Service) ConsumeFailedLoginNotice(ctx context.Context, actor model.Actor) (*time.Time, error) {
	ts, err := s.repo.ConsumeFailedLoginNotice(ctx, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("consume failed login notice: %w", err)
	}
	return ts, nil
}

// DeleteAccount удаляет учётную запись. Доступно только владельцу;
// удалить собственную запись нельзя.
func (s *Service) DeleteAccount(ctx context.Context, actor model.Actor, accountID int64) error {
	if actor.Role != model.RoleOwner {
		s.record(ctx, audit.EventAccountDeleted, actor,
			fmt.Sprintf("delete account %d rejected: role %s", accountID, actor.Role), false)
		return ErrForbidden
	}
	if actor.ID == accountID {
		return &validation.Error{Field: "account_id", Rule: "cannot delete own account"}
	}

	if err := s.repo.DeleteAccount(ctx, accountID); err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return err
		}
		s.record(ctx, audit.EventStorageError, actor, fmt.Sprintf("delete account %d: %v", accountID, err), false)
		return err
	}

	s.record(ctx, audit.EventAccountDeleted, actor, fmt.Sprintf("account %d deleted", accountID), true)

	return nil
}
