package event

import (
	"time"

	"github.com/shopspring/decimal"
)

// Provider identifies the payment provider an event originated from.
// The ledger key is (provider, provider event id): event ids are only
// unique within a single provider's namespace.
type Provider string

const (
	ProviderStripe Provider = "stripe"
	ProviderToss   Provider = "toss"
)

// Valid reports whether p is a known provider.
func (p Provider) Valid() bool {
	return p == ProviderStripe || p == ProviderToss
}

// Kind is the normalized event classification shared by all providers.
type Kind string

const (
	KindSucceeded Kind = "succeeded"
	KindFailed    Kind = "failed"
	KindRefunded  Kind = "refunded"
	KindPending   Kind = "pending"
	KindExpired   Kind = "expired"
	// KindUnhandled covers event types the service intentionally ignores.
	// Such events are acknowledged so providers stop redelivering them,
	// but they never reach the state machine.
	KindUnhandled Kind = "unhandled"
)

// PaymentEvent is a provider-agnostic webhook event, produced by an
// adapter only after signature verification succeeded.
type PaymentEvent struct {
	Provider        Provider `json:"provider"`
	ProviderEventID string   `json:"provider_event_id"`
	// ProviderEventType is the provider-native type string, kept for the
	// ledger and for operator review of unhandled types.
	ProviderEventType string          `json:"provider_event_type"`
	Kind              Kind            `json:"kind"`
	TransactionRef    string          `json:"transaction_ref"`
	Amount            decimal.Decimal `json:"amount"`
	Currency          string          `json:"currency"`
	OccurredAt        time.Time       `json:"occurred_at"`
	RawPayloadHash    string          `json:"raw_payload_hash"`
	// Data keeps the provider payload for audit and anomaly review.
	Data map[string]interface{} `json:"data,omitempty"`
}
