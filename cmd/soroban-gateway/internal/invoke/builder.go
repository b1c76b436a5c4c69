package invoke

import (
	"context"
	"encoding/hex"
	"errors"
	"time"

	"github.com/stellar/go/keypair"
	"github.com/stellar/go/strkey"
	"github.com/stellar/go/txnbuild"
	"github.com/stellar/go/xdr"

	"github.com/stellar/soroban-gateway/cmd/soroban-gateway/internal/client"
)

// AccountGetter resolves an account's current sequence number. Implemented by
// client.Client against a live node and by fakes in tests.
type AccountGetter interface {
	GetAccount(ctx context.Context, publicKey string) (*txnbuild.SimpleAccount, error)
}

// InvocationRequest is the intent to invoke one contract method. A request is
// consumed by a single Build call: the sequence number captured during
// building makes the resulting transaction single-use.
type InvocationRequest struct {
	ContractID   string
	Method       string
	SourceSecret string
	Params       []interface{}
}

// SignedTransaction is a sequence-bound, signed envelope ready for
// submission. It is handed to the engine exactly once.
type SignedTransaction struct {
	// EnvelopeBase64 is the signed TransactionEnvelope XDR.
	EnvelopeBase64 string
	// Hash is the hex-encoded transaction hash under the target network,
	// the correlation key for status lookups.
	Hash string
	// ContractID and Method identify the originating request. Empty for
	// classic (non-contract) operations built through BuildOperation.
	ContractID string
	Method     string
}

// Builder assembles and signs transactions from an account's live sequence
// state. Signing is local; the only side effect of a build is one account
// read.
type Builder struct {
	accounts          AccountGetter
	networkPassphrase string
	baseFee           int64
	txTimeout         time.Duration
}

// NewBuilder returns a Builder submitting with the given base fee and
// transaction validity window. txTimeout is enforced by the node: past it the
// transaction is rejected as expired regardless of client-side polling.
func NewBuilder(accounts AccountGetter, networkPassphrase string, baseFee int64, txTimeout time.Duration) *Builder {
	return &Builder{
		accounts:          accounts,
		networkPassphrase: networkPassphrase,
		baseFee:           baseFee,
		txTimeout:         txTimeout,
	}
}

// Build validates the request, fetches the source account's sequence number,
// encodes the parameters and returns a signed invocation envelope.
func (b *Builder) Build(ctx context.Context, request InvocationRequest) (*SignedTransaction, error) {
	switch {
	case request.ContractID == "":
		return nil, errorf(ErrorKindValidation, "missing required parameter: contract id")
	case request.Method == "":
		return nil, errorf(ErrorKindValidation, "missing required parameter: method")
	case request.SourceSecret == "":
		return nil, errorf(ErrorKindValidation, "missing required parameter: source secret key")
	}

	kp, err := keypair.ParseFull(request.SourceSecret)
	if err != nil {
		return nil, errorf(ErrorKindValidation, "invalid source secret key")
	}
	contractID, err := parseContractID(request.ContractID)
	if err != nil {
		return nil, wrapError(ErrorKindValidation, err, "invalid contract id %q", request.ContractID)
	}

	args := make([]xdr.ScVal, len(request.Params))
	for i, param := range request.Params {
		if args[i], err = EncodeParameter(param); err != nil {
			return nil, wrapError(ErrorKindEncoding, err, "could not encode parameter %d", i)
		}
	}

	op := invokeHostOperation(kp.Address(), contractID, request.Method, args)
	signed, err := b.buildAndSign(ctx, kp, op)
	if err != nil {
		return nil, err
	}
	signed.ContractID = request.ContractID
	signed.Method = request.Method
	return signed, nil
}

// BuildOperation wraps a single prepared operation (payment, trustline
// change, ...) in a signed envelope, using the same sequence fetch and
// signing path as contract invocations.
func (b *Builder) BuildOperation(ctx context.Context, sourceSecret string, op txnbuild.Operation) (*SignedTransaction, error) {
	if sourceSecret == "" {
		return nil, errorf(ErrorKindValidation, "missing required parameter: source secret key")
	}
	kp, err := keypair.ParseFull(sourceSecret)
	if err != nil {
		return nil, errorf(ErrorKindValidation, "invalid source secret key")
	}
	return b.buildAndSign(ctx, kp, op)
}

func (b *Builder) buildAndSign(ctx context.Context, kp *keypair.Full, op txnbuild.Operation) (*SignedTransaction, error) {
	account, err := b.accounts.GetAccount(ctx, kp.Address())
	if err != nil {
		if errors.Is(err, client.ErrAccountNotFound) {
			return nil, wrapError(ErrorKindAccountLookup, err, "account %s does not exist", kp.Address())
		}
		return nil, wrapError(ErrorKindAccountLookup, err, "could not look up account %s", kp.Address())
	}

	tx, err := txnbuild.NewTransaction(txnbuild.TransactionParams{
		SourceAccount:        account,
		IncrementSequenceNum: true,
		Operations:           []txnbuild.Operation{op},
		BaseFee:              b.baseFee,
		Preconditions: txnbuild.Preconditions{
			TimeBounds: txnbuild.NewTimeout(int64(b.txTimeout.Seconds())),
		},
	})
	if err != nil {
		return nil, wrapError(ErrorKindValidation, err, "could not assemble transaction")
	}
	tx, err = tx.Sign(b.networkPassphrase, kp)
	if err != nil {
		return nil, wrapError(ErrorKindValidation, err, "could not sign transaction")
	}

	envelope, err := tx.Base64()
	if err != nil {
		return nil, wrapError(ErrorKindEncoding, err, "could not encode transaction envelope")
	}
	hash, err := tx.HashHex(b.networkPassphrase)
	if err != nil {
		return nil, wrapError(ErrorKindEncoding, err, "could not hash transaction")
	}
	return &SignedTransaction{EnvelopeBase64: envelope, Hash: hash}, nil
}

func invokeHostOperation(sourceAccount string, contractID xdr.Hash, method string, args []xdr.ScVal) *txnbuild.InvokeHostFunction {
	return &txnbuild.InvokeHostFunction{
		HostFunction: xdr.HostFunction{
			Type: xdr.HostFunctionTypeHostFunctionTypeInvokeContract,
			InvokeContract: &xdr.InvokeContractArgs{
				ContractAddress: xdr.ScAddress{
					Type:       xdr.ScAddressTypeScAddressTypeContract,
					ContractId: &contractID,
				},
				FunctionName: xdr.ScSymbol(method),
				Args:         args,
			},
		},
		SourceAccount: sourceAccount,
	}
}

// parseContractID accepts a contract address in C... strkey form or as a raw
// 32-byte hex hash.
func parseContractID(contractID string) (xdr.Hash, error) {
	var hash xdr.Hash
	if raw, err := strkey.Decode(strkey.VersionByteContract, contractID); err == nil {
		copy(hash[:], raw)
		return hash, nil
	}
	raw, err := hex.DecodeString(contractID)
	if err != nil || len(raw) != len(hash) {
		return hash, errors.New("expected a C... strkey or a 32-byte hex hash")
	}
	copy(hash[:], raw)
	return hash, nil
}
