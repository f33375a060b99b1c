package domain

import (
	"context"
	"time"
)

// DomainEvent описывает событие ядра для аудита.
type DomainEvent struct {
	Event      string
	UserID     *int64
	DebateID   *int64
	Metadata   map[string]any
	OccurredAt time.Time
}

// EventRepo сохраняет события аудита.
type EventRepo interface {
	RecordEvent(ctx context.Context, event DomainEvent) error
}
