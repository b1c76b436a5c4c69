package client

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/handler"
	"github.com/creachadair/jrpc2/jhttp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stellar/go/keypair"
	supportlog "github.com/stellar/go/support/log"
	"github.com/stellar/go/xdr"
)

func newTestClient(t *testing.T, methods handler.Map) *Client {
	t.Helper()
	bridge := jhttp.NewBridge(methods, nil)
	server := httptest.NewServer(bridge)
	t.Cleanup(server.Close)
	t.Cleanup(func() { _ = bridge.Close() })

	client := NewClient(server.URL, supportlog.New(), nil)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestGetHealth(t *testing.T) {
	client := newTestClient(t, handler.Map{
		"getHealth": handler.New(func(context.Context) (HealthResult, error) {
			return HealthResult{Status: "healthy"}, nil
		}),
	})
	require.NoError(t, client.GetHealth(context.Background()))
}

func TestGetHealthUnhealthyStatus(t *testing.T) {
	client := newTestClient(t, handler.Map{
		"getHealth": handler.New(func(context.Context) (HealthResult, error) {
			return HealthResult{Status: "catching up"}, nil
		}),
	})
	err := client.GetHealth(context.Background())
	require.ErrorContains(t, err, "not healthy")
}

func TestSendTransaction(t *testing.T) {
	var gotEnvelope string
	client := newTestClient(t, handler.Map{
		"sendTransaction": handler.New(func(_ context.Context, request SendTransactionRequest) (SendTransactionResponse, error) {
			gotEnvelope = request.Transaction
			return SendTransactionResponse{Status: "PENDING", Hash: "cafe", LatestLedger: 12}, nil
		}),
	})

	response, err := client.SendTransaction(context.Background(), "AAAA...")
	require.NoError(t, err)
	assert.Equal(t, "AAAA...", gotEnvelope)
	assert.Equal(t, "PENDING", response.Status)
	assert.Equal(t, "cafe", response.Hash)
	assert.Equal(t, uint32(12), response.LatestLedger)
}

func TestGetTransaction(t *testing.T) {
	var gotHash string
	client := newTestClient(t, handler.Map{
		"getTransaction": handler.New(func(_ context.Context, request GetTransactionRequest) (GetTransactionResponse, error) {
			gotHash = request.Hash
			return GetTransactionResponse{Status: TransactionStatusSuccess, Ledger: 101, ResultMetaXDR: "AAAA"}, nil
		}),
	})

	response, err := client.GetTransaction(context.Background(), "cafe")
	require.NoError(t, err)
	assert.Equal(t, "cafe", gotHash)
	assert.Equal(t, TransactionStatusSuccess, response.Status)
	assert.Equal(t, uint32(101), response.Ledger)
	assert.Equal(t, "AAAA", response.ResultMetaXDR)
}

func TestGetAccount(t *testing.T) {
	kp := keypair.MustRandom()
	accountID := xdr.MustAddress(kp.Address())
	entry := xdr.LedgerEntryData{
		Type: xdr.LedgerEntryTypeAccount,
		Account: &xdr.AccountEntry{
			AccountId: accountID,
			SeqNum:    xdr.SequenceNumber(12345),
		},
	}
	entryB64, err := xdr.MarshalBase64(entry)
	require.NoError(t, err)

	var gotKeys []string
	client := newTestClient(t, handler.Map{
		"getLedgerEntries": handler.New(func(_ context.Context, request GetLedgerEntriesRequest) (GetLedgerEntriesResponse, error) {
			gotKeys = request.Keys
			return GetLedgerEntriesResponse{
				Entries:      []LedgerEntryResult{{KeyXDR: request.Keys[0], DataXDR: entryB64}},
				LatestLedger: 7,
			}, nil
		}),
	})

	account, err := client.GetAccount(context.Background(), kp.Address())
	require.NoError(t, err)
	assert.Equal(t, kp.Address(), account.AccountID)
	assert.Equal(t, int64(12345), account.Sequence)

	// the lookup key is the account's ledger key
	require.Len(t, gotKeys, 1)
	var key xdr.LedgerKey
	require.NoError(t, xdr.SafeUnmarshalBase64(gotKeys[0], &key))
	require.Equal(t, xdr.LedgerEntryTypeAccount, key.Type)
	assert.Equal(t, kp.Address(), key.Account.AccountId.Address())
}

func TestGetAccountNotFound(t *testing.T) {
	client := newTestClient(t, handler.Map{
		"getLedgerEntries": handler.New(func(context.Context, GetLedgerEntriesRequest) (GetLedgerEntriesResponse, error) {
			return GetLedgerEntriesResponse{LatestLedger: 7}, nil
		}),
	})

	_, err := client.GetAccount(context.Background(), keypair.MustRandom().Address())
	require.ErrorIs(t, err, ErrAccountNotFound)
}

func TestGetAccountInvalidAddress(t *testing.T) {
	client := newTestClient(t, handler.Map{})
	_, err := client.GetAccount(context.Background(), "not-an-address")
	require.ErrorContains(t, err, "invalid account address")
}

func TestGetNetwork(t *testing.T) {
	client := newTestClient(t, handler.Map{
		"getNetwork": handler.New(func(context.Context) (GetNetworkResponse, error) {
			return GetNetworkResponse{
				Passphrase:      "Test SDF Network ; September 2015",
				FriendbotURL:    "https://friendbot.example.org",
				ProtocolVersion: 21,
			}, nil
		}),
	})

	response, err := client.GetNetwork(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Test SDF Network ; September 2015", response.Passphrase)
	assert.Equal(t, "https://friendbot.example.org", response.FriendbotURL)
	assert.Equal(t, 21, response.ProtocolVersion)
}

func TestClientRecoversAfterError(t *testing.T) {
	failNext := true
	client := newTestClient(t, handler.Map{
		"getHealth": handler.New(func(context.Context) (HealthResult, error) {
			if failNext {
				failNext = false
				return HealthResult{}, &jrpc2.Error{Code: jrpc2.InternalError, Message: "transient"}
			}
			return HealthResult{Status: "healthy"}, nil
		}),
	})

	require.Error(t, client.GetHealth(context.Background()))
	// the channel is replaced after a failed call, so the client keeps working
	require.NoError(t, client.GetHealth(context.Background()))
}

func TestMetricsObserveCalls(t *testing.T) {
	registry := prometheus.NewRegistry()
	bridge := jhttp.NewBridge(handler.Map{
		"getHealth": handler.New(func(context.Context) (HealthResult, error) {
			return HealthResult{Status: "healthy"}, nil
		}),
	}, nil)
	server := httptest.NewServer(bridge)
	t.Cleanup(server.Close)
	t.Cleanup(func() { _ = bridge.Close() })

	client := NewClient(server.URL, supportlog.New(), registry)
	t.Cleanup(func() { _ = client.Close() })

	require.NoError(t, client.GetHealth(context.Background()))

	metrics, err := registry.Gather()
	require.NoError(t, err)
	require.Len(t, metrics, 1)
	assert.Equal(t, "soroban_gateway_rpc_request_duration_seconds", metrics[0].GetName())
}
