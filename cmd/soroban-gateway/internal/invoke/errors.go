package invoke

import (
	"errors"
	"fmt"
)

// ErrorKind classifies an invocation failure so callers can react
// programmatically instead of string-matching messages.
type ErrorKind int

const (
	// ErrorKindValidation indicates bad caller input, detected before any
	// network access.
	ErrorKindValidation ErrorKind = iota + 1
	// ErrorKindAccountLookup indicates the source account could not be
	// resolved, either because it does not exist or because the node was
	// unreachable.
	ErrorKindAccountLookup
	// ErrorKindEncoding indicates a parameter could not be converted to its
	// ledger value representation.
	ErrorKindEncoding
	// ErrorKindInfrastructure indicates a transport-level problem talking to
	// the node (connectivity, health check, malformed response). The
	// transaction was not durably submitted.
	ErrorKindInfrastructure
	// ErrorKindSubmissionRejected indicates the node rejected the transaction
	// synchronously at submission time. Deterministic; the transaction will
	// never land.
	ErrorKindSubmissionRejected
	// ErrorKindConfirmedFailure indicates the transaction was included in a
	// ledger and failed there. Deterministic; resubmitting the same envelope
	// cannot succeed.
	ErrorKindConfirmedFailure
	// ErrorKindConfirmationTimeout indicates the client gave up polling before
	// observing a terminal status. The transaction may still land; callers can
	// re-query by hash.
	ErrorKindConfirmationTimeout
	// ErrorKindProtocol indicates the node returned a status this client does
	// not understand. Polling stops immediately rather than looping on an
	// unknown state.
	ErrorKindProtocol
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorKindValidation:
		return "validation"
	case ErrorKindAccountLookup:
		return "account_lookup"
	case ErrorKindEncoding:
		return "encoding"
	case ErrorKindInfrastructure:
		return "infrastructure"
	case ErrorKindSubmissionRejected:
		return "submission_rejected"
	case ErrorKindConfirmedFailure:
		return "confirmed_failure"
	case ErrorKindConfirmationTimeout:
		return "confirmation_timeout"
	case ErrorKindProtocol:
		return "protocol"
	default:
		return "unknown"
	}
}

// Error is the classified error type returned by the builder, the engine and
// the invoker facade.
type Error struct {
	Kind    ErrorKind
	Message string
	// Hash is set when the transaction was durably submitted before the
	// failure was observed.
	Hash string
	// Diagnostic carries the node's raw rejection payload (base64 XDR)
	// verbatim. It is never parsed or reinterpreted here.
	Diagnostic string

	cause error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Is makes errors.Is match any *Error with the same kind, so callers can
// classify with a sentinel like errors.Is(err, &Error{Kind: ErrorKindValidation}).
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	return ok && other.Kind == e.Kind
}

func errorf(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func wrapError(kind ErrorKind, cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), cause: cause}
}

// KindOf extracts the classification from err, or zero if err is not an
// *Error produced by this package.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
