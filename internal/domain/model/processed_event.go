package model

import (
	"database/sql/driver"
	"time"
)

// ProcessingStatus tracks how far a ledger entry has progressed.
type ProcessingStatus string

const (
	ProcessingStatusPending   ProcessingStatus = "pending"
	ProcessingStatusCompleted ProcessingStatus = "completed"
	ProcessingStatusFailed    ProcessingStatus = "failed"
)

// Scan implements sql.Scanner.
func (s *ProcessingStatus) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		*s = ProcessingStatus(v)
	case []byte:
		*s = ProcessingStatus(v)
	default:
		*s = ProcessingStatusPending
	}
	return nil
}

// Value implements driver.Valuer.
func (s ProcessingStatus) Value() (driver.Value, error) {
	return string(s), nil
}

// ProcessedEvent is the durable ledger entry for one provider event.
// The composite unique index on (provider, provider_event_id) is the
// idempotency gate: the atomic insert against it decides whether a
// delivery is new, independent of request interleaving.
//
// A row is claimed in status pending before the state machine runs and
// finalized afterwards; only completed rows short-circuit redeliveries,
// so a crash between claim and apply stays re-processable.
type ProcessedEvent struct {
	ID               int64            `gorm:"primaryKey;autoIncrement" json:"id"`
	Provider         string           `gorm:"size:50;not null;uniqueIndex:idx_processed_events_provider_event" json:"provider"`
	ProviderEventID  string           `gorm:"column:provider_event_id;size:255;not null;uniqueIndex:idx_processed_events_provider_event" json:"provider_event_id"`
	EventType        string           `gorm:"size:100;not null" json:"event_type"`
	ProcessingStatus ProcessingStatus `gorm:"size:20;not null;default:'pending';index" json:"processing_status"`
	ResultStatus     *string          `gorm:"size:50" json:"result_status,omitempty"`
	TransactionRef   *string          `gorm:"size:200;index" json:"transaction_ref,omitempty"`
	PayloadHash      string           `gorm:"size:64;not null" json:"payload_hash"`
	EventData        JSONB            `gorm:"type:jsonb" json:"event_data,omitempty"`
	Attempts         int              `gorm:"default:0" json:"attempts"`
	LastError        *string          `json:"last_error,omitempty"`
	NextRetryAt      *time.Time       `json:"next_retry_at,omitempty"`
	ProcessedAt      *time.Time       `json:"processed_at,omitempty"`
	ProviderSentAt   *time.Time       `json:"provider_sent_at,omitempty"`
	CreatedAt        time.Time        `gorm:"default:now()" json:"created_at"`
	UpdatedAt        time.Time        `gorm:"default:now()" json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (ProcessedEvent) TableName() string {
	return "processed_events"
}
