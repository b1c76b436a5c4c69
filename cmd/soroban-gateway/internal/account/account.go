// Package account creates and funds test accounts through a friendbot
// service.
package account

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/stellar/go/keypair"
	supportlog "github.com/stellar/go/support/log"
)

const (
	defaultRetryInterval = time.Second
	defaultMaxRetries    = 5
	maxErrorBodyLen      = 1024
)

// Funder requests lumens for an account from a friendbot endpoint. Transient
// friendbot failures are retried on a constant interval.
type Funder struct {
	friendbotURL  string
	httpClient    *http.Client
	retryInterval time.Duration
	maxRetries    uint64
	logger        *supportlog.Entry
}

func NewFunder(friendbotURL string, logger *supportlog.Entry) *Funder {
	return &Funder{
		friendbotURL:  friendbotURL,
		httpClient:    http.DefaultClient,
		retryInterval: defaultRetryInterval,
		maxRetries:    defaultMaxRetries,
		logger:        logger,
	}
}

// CreateAccount generates a fresh keypair and funds it. The returned keypair
// holds the only copy of the secret seed.
func (f *Funder) CreateAccount(ctx context.Context) (*keypair.Full, error) {
	kp, err := keypair.Random()
	if err != nil {
		return nil, fmt.Errorf("could not generate keypair: %w", err)
	}
	if err := f.Fund(ctx, kp.Address()); err != nil {
		return nil, err
	}
	return kp, nil
}

// Fund asks friendbot to fund address. Server-side (5xx) and transport
// failures are retried; client-side rejections (e.g. the account already
// exists) are permanent.
func (f *Funder) Fund(ctx context.Context, address string) error {
	requestURL := fmt.Sprintf("%s?addr=%s", f.friendbotURL, url.QueryEscape(address))

	constantBackoff := backoff.WithMaxRetries(backoff.NewConstantBackOff(f.retryInterval), f.maxRetries)
	contextBackoff := backoff.WithContext(constantBackoff, ctx)
	return backoff.RetryNotify(
		func() error {
			return f.fundOnce(ctx, requestURL)
		},
		contextBackoff,
		func(err error, _ time.Duration) {
			f.logger.WithError(err).WithField("account", address).
				Warn("friendbot request failed, retrying")
		},
	)
}

func (f *Funder) fundOnce(ctx context.Context, requestURL string) error {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return backoff.Permanent(err)
	}
	response, err := f.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("friendbot unreachable: %w", err)
	}
	defer response.Body.Close()

	switch {
	case response.StatusCode < 300:
		return nil
	case response.StatusCode >= 500:
		return fmt.Errorf("friendbot responded with %d", response.StatusCode)
	default:
		body, _ := io.ReadAll(io.LimitReader(response.Body, maxErrorBodyLen))
		return backoff.Permanent(fmt.Errorf("friendbot rejected the request (%d): %s", response.StatusCode, body))
	}
}
