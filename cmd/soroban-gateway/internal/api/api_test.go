package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stellar/go/keypair"
	supportlog "github.com/stellar/go/support/log"
	"github.com/stellar/go/txnbuild"
	"github.com/stellar/go/xdr"

	"github.com/stellar/soroban-gateway/cmd/soroban-gateway/internal/invoke"
	"github.com/stellar/soroban-gateway/cmd/soroban-gateway/internal/journal"
)

const testHash = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"

type fakeInvoker struct {
	result      *invoke.ConfirmationResult
	err         error
	lastRequest invoke.InvocationRequest
	lastOp      txnbuild.Operation
}

func (f *fakeInvoker) Invoke(_ context.Context, request invoke.InvocationRequest) (*invoke.ConfirmationResult, error) {
	f.lastRequest = request
	return f.result, f.err
}

func (f *fakeInvoker) SubmitOperation(_ context.Context, _ string, op txnbuild.Operation) (*invoke.ConfirmationResult, error) {
	f.lastOp = op
	return f.result, f.err
}

type fakeJournal struct {
	entries map[string]journal.Entry
}

func (f *fakeJournal) Get(_ context.Context, hash string) (journal.Entry, error) {
	entry, ok := f.entries[hash]
	if !ok {
		return journal.Entry{}, journal.ErrNotFound
	}
	return entry, nil
}

func (f *fakeJournal) Recent(_ context.Context, limit uint64) ([]journal.Entry, error) {
	var entries []journal.Entry
	for _, entry := range f.entries {
		entries = append(entries, entry)
	}
	if uint64(len(entries)) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

type fakeAccounts struct {
	kp  *keypair.Full
	err error
}

func (f *fakeAccounts) CreateAccount(context.Context) (*keypair.Full, error) {
	return f.kp, f.err
}

type fakeHealth struct {
	err error
}

func (f *fakeHealth) GetHealth(context.Context) error {
	return f.err
}

func u32(v uint32) xdr.ScVal {
	u := xdr.Uint32(v)
	return xdr.ScVal{Type: xdr.ScValTypeScvU32, U32: &u}
}

func newTestHandler(t *testing.T, cfg Config) http.Handler {
	t.Helper()
	if cfg.Logger == nil {
		cfg.Logger = supportlog.New()
	}
	if cfg.Journal == nil {
		cfg.Journal = &fakeJournal{}
	}
	if cfg.Invoker == nil {
		cfg.Invoker = &fakeInvoker{}
	}
	if cfg.Accounts == nil {
		cfg.Accounts = &fakeAccounts{kp: keypair.MustRandom()}
	}
	if cfg.Health == nil {
		cfg.Health = &fakeHealth{}
	}
	return NewHandler(cfg)
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	request := httptest.NewRequest(method, path, reader)
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	return recorder
}

func TestInvokeSucceeded(t *testing.T) {
	invoker := &fakeInvoker{result: &invoke.ConfirmationResult{
		Status:      invoke.StatusSucceeded,
		Hash:        testHash,
		ReturnValue: u32(42),
		Ledger:      1234,
		Attempts:    2,
	}}
	handler := newTestHandler(t, Config{Invoker: invoker, Registry: prometheus.NewRegistry()})

	recorder := doJSON(t, handler, http.MethodPost, "/invoke", invokeRequest{
		ContractID:   "df06d62447fd25da07c0135eed7557e5a5497ee7d15b7fe468c9e5c7de733d30",
		Method:       "increment",
		SourceSecret: keypair.MustRandom().Seed(),
		Params:       []paramSpec{{Type: "u32", Value: json.RawMessage(`1`)}},
	})
	require.Equal(t, http.StatusOK, recorder.Code)

	var response resultResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	assert.Equal(t, "SUCCEEDED", response.Status)
	assert.Equal(t, testHash, response.Hash)
	assert.Equal(t, uint32(1234), response.Ledger)
	assert.Equal(t, 2, response.Attempts)

	var returned xdr.ScVal
	require.NoError(t, xdr.SafeUnmarshalBase64(response.ReturnValue, &returned))
	assert.Equal(t, u32(42), returned)

	assert.Equal(t, "increment", invoker.lastRequest.Method)
	require.Len(t, invoker.lastRequest.Params, 1)
	assert.Equal(t, uint32(1), invoker.lastRequest.Params[0])
}

func TestInvokeConfirmedFailure(t *testing.T) {
	invoker := &fakeInvoker{result: &invoke.ConfirmationResult{
		Status:     invoke.StatusFailed,
		Hash:       testHash,
		Diagnostic: "AAAA",
		Attempts:   1,
	}}
	handler := newTestHandler(t, Config{Invoker: invoker})

	recorder := doJSON(t, handler, http.MethodPost, "/invoke", invokeRequest{
		ContractID: "df06d62447fd25da07c0135eed7557e5a5497ee7d15b7fe468c9e5c7de733d30",
		Method:     "increment",
	})
	require.Equal(t, http.StatusUnprocessableEntity, recorder.Code)

	var response resultResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	assert.Equal(t, "FAILED", response.Status)
	assert.Equal(t, "AAAA", response.Diagnostic)
	assert.Empty(t, response.ReturnValue)
}

func TestInvokeTimeoutIsAccepted(t *testing.T) {
	invoker := &fakeInvoker{result: &invoke.ConfirmationResult{
		Status:   invoke.StatusTimedOut,
		Hash:     testHash,
		Attempts: 5,
	}}
	handler := newTestHandler(t, Config{Invoker: invoker})

	recorder := doJSON(t, handler, http.MethodPost, "/invoke", invokeRequest{
		ContractID: "df06d62447fd25da07c0135eed7557e5a5497ee7d15b7fe468c9e5c7de733d30",
		Method:     "increment",
	})
	require.Equal(t, http.StatusAccepted, recorder.Code)

	var response resultResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	assert.Equal(t, "TIMED_OUT", response.Status)
	assert.Equal(t, testHash, response.Hash)
}

func TestInvokeErrorKindMapping(t *testing.T) {
	for _, tc := range []struct {
		kind       invoke.ErrorKind
		wantStatus int
	}{
		{invoke.ErrorKindValidation, http.StatusBadRequest},
		{invoke.ErrorKindEncoding, http.StatusBadRequest},
		{invoke.ErrorKindAccountLookup, http.StatusNotFound},
		{invoke.ErrorKindInfrastructure, http.StatusBadGateway},
		{invoke.ErrorKindProtocol, http.StatusBadGateway},
	} {
		t.Run(tc.kind.String(), func(t *testing.T) {
			invoker := &fakeInvoker{err: &invoke.Error{Kind: tc.kind, Message: "boom"}}
			handler := newTestHandler(t, Config{Invoker: invoker})

			recorder := doJSON(t, handler, http.MethodPost, "/invoke", invokeRequest{Method: "increment"})
			require.Equal(t, tc.wantStatus, recorder.Code)

			var response errorResponse
			require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
			assert.Equal(t, tc.kind.String(), response.Kind)
			assert.Equal(t, "boom", response.Error)
		})
	}
}

func TestInvokeUnclassifiedErrorIsInternal(t *testing.T) {
	invoker := &fakeInvoker{err: errors.New("surprise")}
	handler := newTestHandler(t, Config{Invoker: invoker})

	recorder := doJSON(t, handler, http.MethodPost, "/invoke", invokeRequest{Method: "increment"})
	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
}

func TestInvokeBadParamIsRejectedBeforeInvoking(t *testing.T) {
	invoker := &fakeInvoker{}
	handler := newTestHandler(t, Config{Invoker: invoker})

	recorder := doJSON(t, handler, http.MethodPost, "/invoke", invokeRequest{
		Method: "increment",
		Params: []paramSpec{{Type: "u32", Value: json.RawMessage(`"not a number"`)}},
	})
	require.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Empty(t, invoker.lastRequest.Method)
}

func TestAPIKeyRequired(t *testing.T) {
	handler := newTestHandler(t, Config{APIKey: "sekrit"})

	recorder := doJSON(t, handler, http.MethodPost, "/invoke", invokeRequest{Method: "increment"})
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)

	request := httptest.NewRequest(http.MethodPost, "/invoke", bytes.NewReader([]byte(`{"method":"m"}`)))
	request.Header.Set("X-Api-Key", "sekrit")
	recorder = httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	assert.NotEqual(t, http.StatusUnauthorized, recorder.Code)

	// health stays open so probes work without credentials
	recorder = doJSON(t, handler, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, recorder.Code)
}

func TestGetTransaction(t *testing.T) {
	entries := &fakeJournal{entries: map[string]journal.Entry{
		testHash: {
			Hash:      testHash,
			Method:    "increment",
			Outcome:   "SUCCEEDED",
			Ledger:    7,
			Attempts:  3,
			CreatedAt: time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
		},
	}}
	handler := newTestHandler(t, Config{Journal: entries})

	recorder := doJSON(t, handler, http.MethodGet, "/transactions/"+testHash, nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	var response transactionResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	assert.Equal(t, "SUCCEEDED", response.Status)
	assert.Equal(t, "2026-08-30T12:00:00Z", response.CreatedAt)

	recorder = doJSON(t, handler, http.MethodGet, "/transactions/"+"ff"+testHash[2:], nil)
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestListTransactionsRejectsBadLimit(t *testing.T) {
	handler := newTestHandler(t, Config{})
	recorder := doJSON(t, handler, http.MethodGet, "/transactions?limit=nope", nil)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestCreateAccount(t *testing.T) {
	kp := keypair.MustRandom()
	handler := newTestHandler(t, Config{Accounts: &fakeAccounts{kp: kp}})

	recorder := doJSON(t, handler, http.MethodPost, "/accounts", nil)
	require.Equal(t, http.StatusCreated, recorder.Code)

	var response map[string]string
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	assert.Equal(t, kp.Address(), response["publicKey"])
	assert.Equal(t, kp.Seed(), response["secret"])
}

func TestTrustlineValidation(t *testing.T) {
	invoker := &fakeInvoker{}
	handler := newTestHandler(t, Config{Invoker: invoker})

	recorder := doJSON(t, handler, http.MethodPost, "/trustlines", trustlineRequest{
		SourceSecret: keypair.MustRandom().Seed(),
		Asset:        assetSpec{Code: "", Issuer: ""},
	})
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Nil(t, invoker.lastOp)
}

func TestPaymentSubmitsOperation(t *testing.T) {
	issuer := keypair.MustRandom().Address()
	destination := keypair.MustRandom().Address()
	invoker := &fakeInvoker{result: &invoke.ConfirmationResult{
		Status:   invoke.StatusSucceeded,
		Hash:     testHash,
		Attempts: 1,
	}}
	handler := newTestHandler(t, Config{Invoker: invoker})

	recorder := doJSON(t, handler, http.MethodPost, "/payments", paymentRequest{
		SourceSecret: keypair.MustRandom().Seed(),
		Destination:  destination,
		Asset:        assetSpec{Code: "USDC", Issuer: issuer},
		Amount:       "12.5",
	})
	require.Equal(t, http.StatusOK, recorder.Code)

	payment, ok := invoker.lastOp.(*txnbuild.Payment)
	require.True(t, ok)
	assert.Equal(t, destination, payment.Destination)
	assert.Equal(t, "12.5", payment.Amount)
}

func TestHealthReflectsNode(t *testing.T) {
	handler := newTestHandler(t, Config{Health: &fakeHealth{err: errors.New("node down")}})
	recorder := doJSON(t, handler, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, recorder.Code)

	handler = newTestHandler(t, Config{})
	recorder = doJSON(t, handler, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, recorder.Code)
}
