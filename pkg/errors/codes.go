package errors

// Common error codes.
const (
	ErrInternal        = "INTERNAL"
	ErrNotFound        = "NOT_FOUND"
	ErrInvalidArgument = "INVALID_ARGUMENT"
	ErrUnauthenticated = "UNAUTHENTICATED"
	ErrUnauthorized    = "UNAUTHORIZED"
	ErrConflict        = "CONFLICT"
	ErrTimeout         = "TIMEOUT"
	ErrNotImplemented  = "NOT_IMPLEMENTED"
)

// Webhook processing error codes.
const (
	// ErrVerificationFailed marks a delivery whose signature did not check
	// out. Treated as a potential forgery, never retried by us.
	ErrVerificationFailed = "VERIFICATION_FAILED"
	// ErrParseFailed marks an authentically signed but malformed payload.
	ErrParseFailed = "PARSE_FAILED"
	// ErrDuplicateEvent marks a redelivery of an already processed event.
	ErrDuplicateEvent = "DUPLICATE_EVENT"
	// ErrIllegalTransition marks an event whose target status is not
	// reachable from the stored status.
	ErrIllegalTransition = "ILLEGAL_TRANSITION"
	// ErrTerminalConflict marks an event contradicting a terminal status.
	ErrTerminalConflict = "TERMINAL_CONFLICT"
	// ErrAmountMismatch marks an event whose amount or currency disagrees
	// with the stored transaction.
	ErrAmountMismatch = "AMOUNT_MISMATCH"
	// ErrStoreUnavailable marks a durable-store failure; the provider is
	// asked to retry the delivery later.
	ErrStoreUnavailable = "STORE_UNAVAILABLE"
)
