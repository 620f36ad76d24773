package model

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionStatus represents the reconciled state of a payment.
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusSucceeded TransactionStatus = "succeeded"
	TransactionStatusFailed    TransactionStatus = "failed"
	TransactionStatusRefunded  TransactionStatus = "refunded"
	TransactionStatusExpired   TransactionStatus = "expired"
)

// Scan implements sql.Scanner.
func (s *TransactionStatus) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		*s = TransactionStatus(v)
	case []byte:
		*s = TransactionStatus(v)
	default:
		*s = TransactionStatusPending
	}
	return nil
}

// Value implements driver.Valuer.
func (s TransactionStatus) Value() (driver.Value, error) {
	return string(s), nil
}

// IsTerminal reports whether no further transitions are legal out of s,
// except the single succeeded-to-refunded edge.
func (s TransactionStatus) IsTerminal() bool {
	switch s {
	case TransactionStatusSucceeded, TransactionStatusFailed,
		TransactionStatusRefunded, TransactionStatusExpired:
		return true
	}
	return false
}

// CanTransitionTo reports whether the transition s -> target is legal.
func (s TransactionStatus) CanTransitionTo(target TransactionStatus) bool {
	switch s {
	case TransactionStatusPending:
		return target == TransactionStatusSucceeded ||
			target == TransactionStatusFailed ||
			target == TransactionStatusExpired
	case TransactionStatusSucceeded:
		return target == TransactionStatusRefunded
	default:
		return false
	}
}

// Transaction is the reconciled payment record. It is created by the
// upstream payment-creation flow in status pending and mutated only by
// version-conditioned updates; rows are never deleted.
type Transaction struct {
	ID             int64             `gorm:"primaryKey;autoIncrement" json:"id"`
	TransactionRef string            `gorm:"column:transaction_ref;unique;size:200;not null" json:"transaction_ref"`
	Provider       string            `gorm:"size:50;not null;index" json:"provider"`
	Status         TransactionStatus `gorm:"size:50;not null;default:'pending'" json:"status"`
	Amount         decimal.Decimal   `gorm:"type:decimal(15,2);not null" json:"amount"`
	Currency       string            `gorm:"size:3;not null" json:"currency"`
	Version        int64             `gorm:"not null;default:0" json:"version"`
	LastEventAt    *time.Time        `json:"last_event_at,omitempty"`
	ProviderData   JSONB             `gorm:"column:provider_data;type:jsonb" json:"provider_data,omitempty"`
	CreatedAt      time.Time         `gorm:"default:now()" json:"created_at"`
	UpdatedAt      time.Time         `gorm:"default:now()" json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (Transaction) TableName() string {
	return "transactions"
}

// JSONB represents a JSONB database type.
type JSONB map[string]interface{}

// Value implements driver.Valuer.
func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan implements sql.Scanner.
func (j *JSONB) Scan(src interface{}) error {
	if src == nil {
		*j = nil
		return nil
	}

	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return nil
	}

	return json.Unmarshal(data, j)
}
