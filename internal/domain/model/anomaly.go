package model

import (
	"time"

	"github.com/google/uuid"
)

// Anomaly is an operator-visible record of a delivery that was understood
// but rejected by the state machine. The delivery itself is acknowledged
// with success so the provider stops retrying; the anomaly row is what
// keeps the rejection from being silently dropped.
type Anomaly struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Provider        string    `gorm:"size:50;not null;index" json:"provider"`
	ProviderEventID string    `gorm:"column:provider_event_id;size:255;not null" json:"provider_event_id"`
	TransactionRef  string    `gorm:"size:200;index" json:"transaction_ref"`
	Reason          string    `gorm:"size:100;not null;index" json:"reason"`
	Detail          string    `json:"detail"`
	EventData       JSONB     `gorm:"type:jsonb" json:"event_data,omitempty"`
	CreatedAt       time.Time `gorm:"default:now();index" json:"created_at"`
}

// TableName specifies the table name for GORM.
func (Anomaly) TableName() string {
	return "payment_anomalies"
}
