// Package invoke builds, signs, submits and confirms Soroban contract
// invocation transactions against a Soroban RPC node.
package invoke

import (
	"context"
	"fmt"

	supportlog "github.com/stellar/go/support/log"
	"github.com/stellar/go/txnbuild"
	"github.com/stellar/go/xdr"
)

// Recorder persists transaction outcomes for later lookup. Implemented by the
// journal store; optional.
type Recorder interface {
	RecordOutcome(ctx context.Context, signed *SignedTransaction, result *ConfirmationResult) error
}

// InvokerConfig wires an Invoker.
type InvokerConfig struct {
	Builder *Builder
	Engine  *Engine
	// Journal, when set, records every determined outcome. Journal failures
	// are logged but never fail the invocation.
	Journal Recorder
	Logger  *supportlog.Entry
}

// Invoker is the facade over the builder and the engine: one call takes a
// contract invocation from intent to classified outcome.
type Invoker struct {
	builder *Builder
	engine  *Engine
	journal Recorder
	logger  *supportlog.Entry
}

func NewInvoker(cfg InvokerConfig) *Invoker {
	logger := cfg.Logger
	if logger == nil {
		logger = supportlog.DefaultLogger
	}
	return &Invoker{
		builder: cfg.Builder,
		engine:  cfg.Engine,
		journal: cfg.Journal,
		logger:  logger,
	}
}

// Invoke builds, signs, submits and confirms one contract invocation. All
// four terminal outcomes come back as a ConfirmationResult; errors are
// reserved for requests that never reached a determinable outcome.
func (inv *Invoker) Invoke(ctx context.Context, request InvocationRequest) (*ConfirmationResult, error) {
	signed, err := inv.builder.Build(ctx, request)
	if err != nil {
		return nil, err
	}
	return inv.submit(ctx, signed)
}

// SubmitOperation runs a prepared classic operation (payment, trustline
// change, ...) through the same sign/submit/confirm pipeline.
func (inv *Invoker) SubmitOperation(ctx context.Context, sourceSecret string, op txnbuild.Operation) (*ConfirmationResult, error) {
	signed, err := inv.builder.BuildOperation(ctx, sourceSecret, op)
	if err != nil {
		return nil, err
	}
	return inv.submit(ctx, signed)
}

func (inv *Invoker) submit(ctx context.Context, signed *SignedTransaction) (*ConfirmationResult, error) {
	result, err := inv.engine.SubmitAndConfirm(ctx, signed)
	if err != nil {
		return nil, err
	}
	if inv.journal != nil {
		if jerr := inv.journal.RecordOutcome(ctx, signed, result); jerr != nil {
			inv.logger.WithError(jerr).WithField("tx", result.Hash).
				Warn("could not journal transaction outcome")
		}
	}
	return result, nil
}

// InvokeValue is the value-or-error form of Invoke: any outcome other than
// success is surfaced as a classified error. The timeout kind is
// distinguishable from true failure, since the transaction may still land.
func (inv *Invoker) InvokeValue(ctx context.Context, contractID, method, sourceSecret string, params ...interface{}) (xdr.ScVal, error) {
	result, err := inv.Invoke(ctx, InvocationRequest{
		ContractID:   contractID,
		Method:       method,
		SourceSecret: sourceSecret,
		Params:       params,
	})
	if err != nil {
		return xdr.ScVal{}, err
	}
	switch result.Status {
	case StatusSucceeded:
		return result.ReturnValue, nil
	case StatusRejected:
		return xdr.ScVal{}, &Error{
			Kind:       ErrorKindSubmissionRejected,
			Message:    "transaction rejected at submission",
			Hash:       result.Hash,
			Diagnostic: result.Diagnostic,
		}
	case StatusFailed:
		return xdr.ScVal{}, &Error{
			Kind:       ErrorKindConfirmedFailure,
			Message:    fmt.Sprintf("transaction failed in ledger %d", result.Ledger),
			Hash:       result.Hash,
			Diagnostic: result.Diagnostic,
		}
	case StatusTimedOut:
		return xdr.ScVal{}, &Error{
			Kind:    ErrorKindConfirmationTimeout,
			Message: fmt.Sprintf("no terminal status after %d attempts", result.Attempts),
			Hash:    result.Hash,
		}
	default:
		return xdr.ScVal{}, &Error{
			Kind:    ErrorKindProtocol,
			Message: fmt.Sprintf("unexpected confirmation status %v", result.Status),
			Hash:    result.Hash,
		}
	}
}
