package account

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	supportlog "github.com/stellar/go/support/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFunder(url string) *Funder {
	funder := NewFunder(url, supportlog.DefaultLogger)
	funder.retryInterval = time.Millisecond
	return funder
}

func TestFundRetriesTransientFailures(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.URL.Query().Get("addr"))
		if requests.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	err := newTestFunder(server.URL).Fund(context.Background(), "GDOES-NOT-MATTER")
	require.NoError(t, err)
	assert.Equal(t, int32(2), requests.Load())
}

func TestFundStopsOnClientRejection(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("op_already_exists"))
	}))
	defer server.Close()

	err := newTestFunder(server.URL).Fund(context.Background(), "GDOES-NOT-MATTER")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "op_already_exists")
	assert.Equal(t, int32(1), requests.Load())
}

func TestFundGivesUpAfterMaxRetries(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	funder := newTestFunder(server.URL)
	funder.maxRetries = 2
	err := funder.Fund(context.Background(), "GDOES-NOT-MATTER")
	require.Error(t, err)
	// initial attempt plus two retries
	assert.Equal(t, int32(3), requests.Load())
}

func TestCreateAccountReturnsFundedKeypair(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	kp, err := newTestFunder(server.URL).CreateAccount(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, kp.Address())
	assert.NotEmpty(t, kp.Seed())
}
