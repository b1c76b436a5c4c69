package invoke

import (
	"context"
	"time"

	proto "github.com/stellar/go/protocols/stellarcore"
	supportlog "github.com/stellar/go/support/log"
	"github.com/stellar/go/xdr"

	"github.com/stellar/soroban-gateway/cmd/soroban-gateway/internal/client"
)

// Defaults for the confirmation policy and the transaction validity window.
const (
	DefaultMaxAttempts  = 5
	DefaultPollInterval = 2 * time.Second
	DefaultTxTimeout    = 180 * time.Second
)

// Submitter sends a signed envelope to the node's submission endpoint.
type Submitter interface {
	SendTransaction(ctx context.Context, envelopeBase64 string) (client.SendTransactionResponse, error)
}

// TransactionGetter looks up the status of a submitted transaction by hash.
type TransactionGetter interface {
	GetTransaction(ctx context.Context, hash string) (client.GetTransactionResponse, error)
}

// HealthChecker verifies the node is reachable and healthy.
type HealthChecker interface {
	GetHealth(ctx context.Context) error
}

// ConfirmPolicy bounds the engine's polling loop. A transaction hash is
// polled at most MaxAttempts times, with PollInterval between attempts.
type ConfirmPolicy struct {
	PollInterval time.Duration
	MaxAttempts  int
}

func (p ConfirmPolicy) withDefaults() ConfirmPolicy {
	if p.PollInterval <= 0 {
		p.PollInterval = DefaultPollInterval
	}
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	return p
}

type engineState int

const (
	stateSubmitting engineState = iota
	stateAwaitingConfirmation
	statePolling
)

func (s engineState) String() string {
	switch s {
	case stateSubmitting:
		return "submitting"
	case stateAwaitingConfirmation:
		return "awaiting_confirmation"
	case statePolling:
		return "polling"
	default:
		return "unknown"
	}
}

// EngineConfig wires an Engine.
type EngineConfig struct {
	Submitter    Submitter
	Transactions TransactionGetter
	// Health, when set, is consulted as a pre-submission guard. A failing
	// check aborts the call before anything is sent.
	Health HealthChecker
	// Sleeper defaults to a real timer when nil.
	Sleeper Sleeper
	Policy  ConfirmPolicy
	Logger  *supportlog.Entry
}

// Engine submits a signed transaction exactly once and drives the
// confirmation state machine to one of four terminal outcomes. Each call is
// self-contained; one Engine can serve concurrent calls for distinct
// transactions.
type Engine struct {
	submitter    Submitter
	transactions TransactionGetter
	health       HealthChecker
	sleeper      Sleeper
	policy       ConfirmPolicy
	logger       *supportlog.Entry
}

func NewEngine(cfg EngineConfig) *Engine {
	sleeper := cfg.Sleeper
	if sleeper == nil {
		sleeper = NewTimerSleeper()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = supportlog.DefaultLogger
	}
	return &Engine{
		submitter:    cfg.Submitter,
		transactions: cfg.Transactions,
		health:       cfg.Health,
		sleeper:      sleeper,
		policy:       cfg.Policy.withDefaults(),
		logger:       logger,
	}
}

// SubmitAndConfirm sends signed to the node and classifies the final outcome.
// The submission itself happens at most once: there is no re-signing and no
// sequence re-fetch, and once accepted it cannot be cancelled. Deterministic
// outcomes are returned as results; an error means the outcome could not be
// determined because of an infrastructure or protocol problem.
func (e *Engine) SubmitAndConfirm(ctx context.Context, signed *SignedTransaction) (*ConfirmationResult, error) {
	if signed == nil || signed.EnvelopeBase64 == "" {
		return nil, errorf(ErrorKindValidation, "nothing to submit")
	}

	if e.health != nil {
		if err := e.health.GetHealth(ctx); err != nil {
			return nil, wrapError(ErrorKindInfrastructure, err, "node failed pre-submission health check")
		}
	}

	e.logger.WithFields(supportlog.F{"tx": signed.Hash, "state": stateSubmitting}).
		Debug("submitting transaction")
	response, err := e.submitter.SendTransaction(ctx, signed.EnvelopeBase64)
	if err != nil {
		return nil, wrapError(ErrorKindInfrastructure, err, "could not submit transaction")
	}
	hash := response.Hash
	if hash == "" {
		hash = signed.Hash
	}

	switch response.Status {
	case proto.TXStatusError:
		// The node validated and rejected synchronously. Terminal, zero polls.
		return &ConfirmationResult{
			Status:     StatusRejected,
			Hash:       hash,
			Diagnostic: response.ErrorResultXDR,
		}, nil
	case proto.TXStatusPending, proto.TXStatusDuplicate:
		// DUPLICATE means this envelope is already in flight, so its fate is
		// determined the same way as a fresh PENDING submission.
		e.logger.WithFields(supportlog.F{"tx": hash, "state": stateAwaitingConfirmation, "status": response.Status}).
			Debug("transaction accepted by the node")
		return e.poll(ctx, hash)
	case proto.TXStatusTryAgainLater:
		return nil, &Error{
			Kind:    ErrorKindInfrastructure,
			Message: "node is not accepting transactions right now, try again later",
			Hash:    hash,
		}
	default:
		return nil, &Error{
			Kind:    ErrorKindProtocol,
			Message: "unrecognized submission status " + response.Status,
			Hash:    hash,
		}
	}
}

func (e *Engine) poll(ctx context.Context, hash string) (*ConfirmationResult, error) {
	logger := e.logger.WithFields(supportlog.F{"tx": hash, "state": statePolling})
	for attempt := 1; attempt <= e.policy.MaxAttempts; attempt++ {
		response, err := e.transactions.GetTransaction(ctx, hash)
		if err != nil {
			return nil, &Error{
				Kind:    ErrorKindInfrastructure,
				Message: "could not poll transaction status",
				Hash:    hash,
				cause:   err,
			}
		}

		result, err := classifyPollResponse(hash, attempt, response)
		if err != nil {
			return nil, err
		}
		if result != nil {
			logger.WithFields(supportlog.F{"attempt": attempt, "outcome": result.Status}).
				Debug("transaction reached a terminal status")
			return result, nil
		}

		// NOT_FOUND: the transaction has not landed yet. No sleep after the
		// final attempt.
		if attempt < e.policy.MaxAttempts {
			if err := e.sleeper.Sleep(ctx, e.policy.PollInterval); err != nil {
				logger.WithError(err).Debug("confirmation cancelled while waiting")
				return &ConfirmationResult{Status: StatusTimedOut, Hash: hash, Attempts: attempt}, nil
			}
		}
	}
	logger.WithField("attempts", e.policy.MaxAttempts).Debug("poll budget exhausted")
	return &ConfirmationResult{Status: StatusTimedOut, Hash: hash, Attempts: e.policy.MaxAttempts}, nil
}

// classifyPollResponse maps one getTransaction response onto a terminal
// result. It returns (nil, nil) when polling should continue, and is a pure
// function of its inputs: classifying the same response twice yields the same
// outcome.
func classifyPollResponse(hash string, attempt int, response client.GetTransactionResponse) (*ConfirmationResult, error) {
	switch response.Status {
	case client.TransactionStatusSuccess:
		value, err := decodeReturnValue(response.ResultMetaXDR)
		if err != nil {
			return nil, &Error{
				Kind:    ErrorKindProtocol,
				Message: "could not decode transaction result meta",
				Hash:    hash,
				cause:   err,
			}
		}
		return &ConfirmationResult{
			Status:      StatusSucceeded,
			Hash:        hash,
			ReturnValue: value,
			Ledger:      response.Ledger,
			Attempts:    attempt,
		}, nil
	case client.TransactionStatusFailed:
		// The raw result XDR is passed through untouched for caller-side
		// diagnosis.
		return &ConfirmationResult{
			Status:     StatusFailed,
			Hash:       hash,
			Diagnostic: response.ResultXDR,
			Ledger:     response.Ledger,
			Attempts:   attempt,
		}, nil
	case client.TransactionStatusNotFound:
		return nil, nil
	default:
		return nil, &Error{
			Kind:    ErrorKindProtocol,
			Message: "unrecognized transaction status " + response.Status,
			Hash:    hash,
		}
	}
}

// decodeReturnValue extracts the invocation's return value from the
// transaction meta. Transactions without Soroban meta (classic operations)
// yield void.
func decodeReturnValue(resultMetaB64 string) (xdr.ScVal, error) {
	void := xdr.ScVal{Type: xdr.ScValTypeScvVoid}
	if resultMetaB64 == "" {
		return void, nil
	}
	var meta xdr.TransactionMeta
	if err := xdr.SafeUnmarshalBase64(resultMetaB64, &meta); err != nil {
		return void, err
	}
	if meta.V == 3 && meta.V3.SorobanMeta != nil {
		return meta.V3.SorobanMeta.ReturnValue, nil
	}
	return void, nil
}
