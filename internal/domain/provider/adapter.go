package provider

import (
	"context"

	"github.com/meshpay/payment-service/internal/domain/event"
	"github.com/meshpay/payment-service/internal/domain/model"
)

// Adapter composes signature verification and payload parsing for one
// payment provider. Adapters are selected by inbound route, never by
// payload inspection, so a forged payload cannot pick its own rules.
type Adapter interface {
	// Provider returns the provider this adapter serves.
	Provider() event.Provider

	// SignatureHeader returns the name of the request header carrying the
	// provider's signature.
	SignatureHeader() string

	// VerifyAndParse verifies rawBody against the signature header value
	// and decodes it into a normalized event. rawBody must be the exact
	// bytes received on the wire; verification over re-serialized JSON is
	// a correctness bug. Failures are reported as *VerificationError or
	// *ParseError, never as a panic, regardless of input.
	VerifyAndParse(ctx context.Context, rawBody []byte, signature string) (*event.PaymentEvent, error)
}

// RefundClient calls the provider's refund/cancel API for a transaction.
// It never mutates local state: the resulting status change arrives
// through the provider's own webhook and is reconciled like any other
// event.
type RefundClient interface {
	Refund(ctx context.Context, tx *model.Transaction, reason string) error
}

// VerificationError reports a delivery whose signature did not verify.
type VerificationError struct {
	Provider event.Provider
	Reason   string
}

func (e *VerificationError) Error() string {
	return "webhook signature verification failed: " + e.Reason
}

// ParseError reports an authentically signed but undecodable payload.
type ParseError struct {
	Provider event.Provider
	Reason   string
	Err      error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return "webhook payload parse failed: " + e.Reason + ": " + e.Err.Error()
	}
	return "webhook payload parse failed: " + e.Reason
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
