package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/jhttp"
	"github.com/prometheus/client_golang/prometheus"

	supportlog "github.com/stellar/go/support/log"
)

const healthyStatus = "healthy"

// Client is a JSON-RPC client for a Soroban RPC node. It is safe for
// concurrent use.
type Client struct {
	url  string
	opts *jrpc2.ClientOptions

	mu  sync.Mutex
	cli *jrpc2.Client

	logger         *supportlog.Entry
	durationMetric *prometheus.SummaryVec
}

// NewClient returns a client for the node at url. registry may be nil, in
// which case no metrics are recorded.
func NewClient(url string, logger *supportlog.Entry, registry *prometheus.Registry) *Client {
	c := &Client{url: url, logger: logger}
	if registry != nil {
		c.durationMetric = prometheus.NewSummaryVec(prometheus.SummaryOpts{
			Namespace: "soroban_gateway", Subsystem: "rpc", Name: "request_duration_seconds",
			Help:       "durations of JSON-RPC requests to the Soroban RPC node, sliding window = 10m",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		}, []string{"method", "status"})
		registry.MustRegister(c.durationMetric)
	}
	c.refreshClient()
	return c
}

func (c *Client) refreshClient() {
	if c.cli != nil {
		c.cli.Close()
	}
	ch := jhttp.NewChannel(c.url, nil)
	c.cli = jrpc2.NewClient(ch, c.opts)
}

// CallResult invokes a JSON-RPC method and decodes the response into result.
func (c *Client) CallResult(ctx context.Context, method string, params, result any) error {
	c.mu.Lock()
	cli := c.cli
	c.mu.Unlock()

	start := time.Now()
	err := cli.CallResult(ctx, method, params, result)
	c.observe(method, err, time.Since(start))
	if err != nil {
		// The channel cannot be reused after a failed call, see
		// https://github.com/creachadair/jrpc2/issues/118
		c.mu.Lock()
		if c.cli == cli {
			c.refreshClient()
		}
		c.mu.Unlock()
	}
	return err
}

func (c *Client) observe(method string, err error, duration time.Duration) {
	if c.durationMetric == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	c.durationMetric.With(prometheus.Labels{"method": method, "status": status}).
		Observe(duration.Seconds())
}

// Close tears down the underlying channel.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cli.Close()
}

// URL returns the node endpoint this client talks to.
func (c *Client) URL() string {
	return c.url
}

// GetHealth checks the node self-reports as healthy. Any transport error or
// non-healthy status is returned as an error.
func (c *Client) GetHealth(ctx context.Context) error {
	var result HealthResult
	if err := c.CallResult(ctx, "getHealth", nil, &result); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	if result.Status != healthyStatus {
		return fmt.Errorf("node is not healthy: %q", result.Status)
	}
	return nil
}

// GetNetwork fetches network metadata (passphrase, friendbot URL) from the
// node.
func (c *Client) GetNetwork(ctx context.Context) (GetNetworkResponse, error) {
	var result GetNetworkResponse
	err := c.CallResult(ctx, "getNetwork", nil, &result)
	return result, err
}

// SendTransaction submits a base64 encoded transaction envelope and returns
// the node's immediate acknowledgment.
func (c *Client) SendTransaction(ctx context.Context, envelopeBase64 string) (SendTransactionResponse, error) {
	var result SendTransactionResponse
	err := c.CallResult(ctx, "sendTransaction", SendTransactionRequest{Transaction: envelopeBase64}, &result)
	return result, err
}

// GetTransaction looks up a previously submitted transaction by its hex hash.
func (c *Client) GetTransaction(ctx context.Context, hash string) (GetTransactionResponse, error) {
	var result GetTransactionResponse
	err := c.CallResult(ctx, "getTransaction", GetTransactionRequest{Hash: hash}, &result)
	return result, err
}
