package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	InsertAttempt(ctx context.Context, db *gorm.DB, payment *Payment) error
	UpdateAttempt(ctx context.Context, db *gorm.DB, payment *Payment) error
	ListAttempts(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID) ([]Payment, error)

	// InsertEvent reports false when the provider event was already stored.
	InsertEvent(ctx context.Context, db *gorm.DB, event *EventRecord) (bool, error)
	// FindEvent returns nil when the provider event is unknown.
	FindEvent(ctx context.Context, db *gorm.DB, provider, providerEventID string) (*EventRecord, error)
	MarkEventProcessed(ctx context.Context, db *gorm.DB, id snowflake.ID, processedAt time.Time) error
}
