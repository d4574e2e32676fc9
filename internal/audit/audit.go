// Package audit содержит журнал событий безопасности и бизнес-операций.
// Ядро записывает ровно одно событие на каждое значимое изменение состояния,
// включая отказы; приёмники журнала работают по принципу best effort и
// никогда не приводят к отказу самой операции.
package audit

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// EventType описывает тип события журнала. Набор закрыт.
type EventType string

const (
	EventLoginSuccess        EventType = "LOGIN_SUCCESS"
	EventLoginFailure        EventType = "LOGIN_FAILURE"
	EventAccountLocked       EventType = "ACCOUNT_LOCKED"
	EventAccountCreated      EventType = "ACCOUNT_CREATED"
	EventAccountDeleted      EventType = "ACCOUNT_DELETED"
	EventValidationFailure   EventType = "VALIDATION_FAILURE"
	EventInsufficientStock   EventType = "INSUFFICIENT_STOCK"
	EventStockItemCreated    EventType = "STOCK_ITEM_CREATED"
	EventStockItemUpdated    EventType = "STOCK_ITEM_UPDATED"
	EventStockItemDeleted    EventType = "STOCK_ITEM_DELETED"
	EventStockAdjusted       EventType = "STOCK_ADJUSTED"
	EventOrderCreated        EventType = "ORDER_CREATED"
	EventOrderCancelled      EventType = "ORDER_CANCELLED"
	EventOrderCompleted      EventType = "ORDER_COMPLETED"
	EventCompensationFailure EventType = "COMPENSATION_FAILURE"
	EventStorageError        EventType = "STORAGE_ERROR"
)

// Event описывает одно событие журнала.
type Event struct {
	Type       EventType `json:"event_type"`
	ActorID    *int64    `json:"actor_id,omitempty"`
	ActorLabel string    `json:"actor"`
	Details    string    `json:"details"`
	Success    bool      `json:"success"`
	CreatedAt  time.Time `json:"created_at"`
}

// Recorder принимает события журнала.
type Recorder interface {
	Record(ctx context.Context, e Event)
}

// Store описывает долговременное хранилище событий.
type Store interface {
	SaveAuditEvent(ctx context.Context, e Event) error
}

// StoreRecorder записывает события в долговременное хранилище.
// Ошибка записи логируется, но не возвращается: отказ журнала
// не должен ронять породившую событие операцию.
type StoreRecorder struct {
	store  Store
	logger *zap.Logger
}

// NewStoreRecorder создаёт Recorder поверх хранилища событий.
func NewStoreRecorder(store Store, logger *zap.Logger) *StoreRecorder {
	return &StoreRecorder{store: store, logger: logger}
}

// Record сохраняет событие в хранилище.
func (r *StoreRecorder) Record(ctx context.Context, e Event) {
	if err := r.store.SaveAuditEvent(ctx, e); err != nil {
		r.logger.Error("save audit event",
			zap.Error(err),
			zap.String("eventType", string(e.Type)),
			zap.String("actor", e.ActorLabel),
		)
	}
}

// ZapRecorder дублирует события в структурированный лог приложения.
type ZapRecorder struct {
	logger *zap.Logger
}

// NewZapRecorder создаёт Recorder, пишущий события в zap.
func NewZapRecorder(logger *zap.Logger) *ZapRecorder {
	return &ZapRecorder{logger: logger}
}

// Record пишет событие в лог.
func (r *ZapRecorder) Record(_ context.Context, e Event) {
	fields := []zap.Field{
		zap.String("eventType", string(e.Type)),
		zap.String("actor", e.ActorLabel),
		zap.Bool("success", e.Success),
		zap.String("details", e.Details),
	}
	if e.ActorID != nil {
		fields = append(fields, zap.Int64("actorID", *e.ActorID))
	}
	r.logger.Info("audit event", fields...)
}

// MultiRecorder раздаёт событие нескольким приёмникам.
type MultiRecorder []Recorder

// Record передаёт событие каждому приёмнику по очереди.
func (m MultiRecorder) Record(ctx context.Context, e Event) {
	for _, r := range m {
		r.Record(ctx, e)
	}
}

// NewEvent создаёт событие с текущим временем от имени указанного инициатора.
func NewEvent(t EventType, actorID *int64, actorLabel, details string, success bool) Event {
	return Event{
		Type:       t,
		ActorID:    actorID,
		ActorLabel: actorLabel,
		Details:    details,
		Success:    success,
		CreatedAt:  time.Now(),
	}
}
