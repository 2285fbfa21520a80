package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	invoicedomain "github.com/smallbiznis/invoicer/internal/invoice/domain"
	"gorm.io/datatypes"
)

type AttemptStatus string

const (
	AttemptPending   AttemptStatus = "pending"
	AttemptCompleted AttemptStatus = "completed"
	AttemptFailed    AttemptStatus = "failed"
	// AttemptDuplicate marks a successful charge that lost the race to a
	// concurrent submission.
	AttemptDuplicate AttemptStatus = "duplicate"
	// AttemptError marks an attempt the gateway never decided.
	AttemptError AttemptStatus = "error"
)

// Payment is one payment attempt against an invoice.
type Payment struct {
	ID                snowflake.ID                `gorm:"primaryKey" json:"id"`
	Reference         string                      `gorm:"type:text;not null;uniqueIndex" json:"reference"`
	InvoiceID         snowflake.ID                `gorm:"not null;index" json:"invoice_id"`
	Gateway           string                      `gorm:"type:text;not null" json:"gateway"`
	Method            invoicedomain.PaymentMethod `gorm:"type:text;not null" json:"method"`
	Amount            decimal.Decimal             `gorm:"type:numeric;not null" json:"amount"`
	Currency          string                      `gorm:"type:text;not null" json:"currency"`
	Status            AttemptStatus               `gorm:"type:text;not null" json:"status"`
	Details           datatypes.JSONMap           `gorm:"type:jsonb" json:"details,omitempty"`
	ProviderReference string                      `gorm:"type:text" json:"provider_reference,omitempty"`
	Message           string                      `gorm:"type:text" json:"message,omitempty"`
	CreatedAt         time.Time                   `gorm:"not null" json:"created_at"`
	UpdatedAt         time.Time                   `gorm:"not null" json:"updated_at"`
}

func (Payment) TableName() string { return "payments" }

type EventRecord struct {
	ID              snowflake.ID   `json:"id" gorm:"primaryKey"`
	Provider        string         `json:"provider" gorm:"type:text;not null;uniqueIndex:ux_payment_events_provider_event"`
	ProviderEventID string         `json:"provider_event_id" gorm:"type:text;not null;uniqueIndex:ux_payment_events_provider_event"`
	EventType       string         `json:"event_type" gorm:"type:text;not null"`
	InvoiceID       *snowflake.ID  `json:"invoice_id,omitempty" gorm:"index"`
	Payload         datatypes.JSON `json:"payload" gorm:"type:jsonb;not null"`
	ReceivedAt      time.Time      `json:"received_at" gorm:"not null"`
	ProcessedAt     *time.Time     `json:"processed_at"`
}

func (EventRecord) TableName() string { return "payment_events" }
