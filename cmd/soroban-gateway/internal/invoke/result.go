package invoke

import (
	"github.com/stellar/go/xdr"
)

// ConfirmationStatus is the terminal outcome of a submit-and-confirm cycle.
type ConfirmationStatus int

const (
	// StatusSucceeded means the transaction landed in a ledger and executed
	// without error. This is the only outcome that carries a return value.
	StatusSucceeded ConfirmationStatus = iota + 1
	// StatusRejected means the node refused the transaction synchronously at
	// submission time. Zero polls were performed.
	StatusRejected
	// StatusFailed means the transaction landed in a ledger and failed there.
	StatusFailed
	// StatusTimedOut means the poll budget was exhausted (or the caller
	// cancelled) while the transaction was still not found. Indeterminate:
	// the transaction may yet land, so this is deliberately not a failure.
	StatusTimedOut
)

func (s ConfirmationStatus) String() string {
	switch s {
	case StatusSucceeded:
		return "SUCCEEDED"
	case StatusRejected:
		return "REJECTED"
	case StatusFailed:
		return "FAILED"
	case StatusTimedOut:
		return "TIMED_OUT"
	default:
		return "UNKNOWN"
	}
}

// Terminal reports whether the status is deterministic. TimedOut is not:
// re-querying the hash later may still observe success or failure.
func (s ConfirmationStatus) Terminal() bool {
	return s == StatusSucceeded || s == StatusRejected || s == StatusFailed
}

// ConfirmationResult is the final outcome of one transaction submission.
type ConfirmationResult struct {
	Status ConfirmationStatus
	// Hash correlates this result with the submitted transaction. Always set,
	// so callers holding a TimedOut result can keep querying on their own.
	Hash string
	// ReturnValue is the contract invocation's decoded return value. Only
	// meaningful when Status is StatusSucceeded.
	ReturnValue xdr.ScVal
	// Diagnostic is the node's raw result payload (base64 TransactionResult
	// XDR), preserved verbatim for Rejected and Failed outcomes.
	Diagnostic string
	// Ledger is the sequence of the ledger that included the transaction,
	// when known.
	Ledger uint32
	// Attempts is the number of status polls performed. Zero for outcomes
	// decided at submission time.
	Attempts int
}
