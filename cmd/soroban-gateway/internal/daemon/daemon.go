// Package daemon wires the gateway together: RPC client, journal, invocation
// pipeline, REST API and admin servers, and runs them until shutdown.
package daemon

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/pprof" //nolint:gosec
	"os"
	"os/signal"
	"runtime"
	runtimePprof "runtime/pprof"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/stellar/go/keypair"
	supportlog "github.com/stellar/go/support/log"

	"github.com/stellar/soroban-gateway/cmd/soroban-gateway/internal/account"
	"github.com/stellar/soroban-gateway/cmd/soroban-gateway/internal/api"
	"github.com/stellar/soroban-gateway/cmd/soroban-gateway/internal/client"
	"github.com/stellar/soroban-gateway/cmd/soroban-gateway/internal/config"
	"github.com/stellar/soroban-gateway/cmd/soroban-gateway/internal/invoke"
	"github.com/stellar/soroban-gateway/cmd/soroban-gateway/internal/journal"
)

const (
	prometheusNamespace        = "soroban_gateway"
	defaultReadTimeout         = 5 * time.Second
	defaultShutdownGracePeriod = 10 * time.Second
)

type Daemon struct {
	logger          *supportlog.Entry
	rpcClient       *client.Client
	journal         *journal.Store
	invoker         *invoke.Invoker
	listener        net.Listener
	server          *http.Server
	adminListener   net.Listener
	adminServer     *http.Server
	closeOnce       sync.Once
	closeError      error
	done            chan struct{}
	metricsRegistry *prometheus.Registry
}

// Invoker exposes the invocation pipeline, mostly for tests that drive the
// daemon directly instead of through HTTP.
func (d *Daemon) Invoker() *invoke.Invoker {
	return d.invoker
}

func (d *Daemon) GetEndpointAddrs() (net.TCPAddr, *net.TCPAddr) {
	addr := d.listener.Addr().(*net.TCPAddr)
	var adminAddr *net.TCPAddr
	if d.adminListener != nil {
		adminAddr = d.adminListener.Addr().(*net.TCPAddr)
	}
	return *addr, adminAddr
}

func (d *Daemon) close() {
	shutdownCtx, shutdownRelease := context.WithTimeout(context.Background(), defaultShutdownGracePeriod)
	defer shutdownRelease()
	var closeErrors []error

	if err := d.server.Shutdown(shutdownCtx); err != nil {
		d.logger.WithError(err).Error("error during API server Shutdown")
		closeErrors = append(closeErrors, err)
	}
	if d.adminServer != nil {
		if err := d.adminServer.Shutdown(shutdownCtx); err != nil {
			d.logger.WithError(err).Error("error during admin server Shutdown")
			closeErrors = append(closeErrors, err)
		}
	}

	d.rpcClient.Close()
	if err := d.journal.Close(); err != nil {
		d.logger.WithError(err).Error("error closing journal")
		closeErrors = append(closeErrors, err)
	}
	d.closeError = errors.Join(closeErrors...)
	close(d.done)
}

func (d *Daemon) Close() error {
	d.closeOnce.Do(d.close)
	return d.closeError
}

func MustNew(cfg *config.Config, logger *supportlog.Entry) *Daemon {
	logger.SetLevel(cfg.LogLevel)
	if cfg.LogFormat == config.LogFormatJSON {
		logger.UseJSONFormatter()
	}

	logger.WithFields(supportlog.F{
		"version": config.Version,
		"commit":  config.CommitHash,
	}).Info("starting Soroban gateway")

	metricsRegistry := prometheus.NewRegistry()

	rpcClient := client.NewClient(cfg.RPCURL, logger.WithField("subservice", "rpc"), metricsRegistry)

	journalStore, err := journal.Open(cfg.DBPath)
	if err != nil {
		logger.WithError(err).Fatal("could not open transaction journal")
	}

	builder := invoke.NewBuilder(rpcClient, cfg.NetworkPassphrase, cfg.BaseFee, cfg.TxTimeout)
	engine := invoke.NewEngine(invoke.EngineConfig{
		Submitter:    rpcClient,
		Transactions: rpcClient,
		Health:       rpcClient,
		Logger:       logger.WithField("subservice", "engine"),
		Policy: invoke.ConfirmPolicy{
			MaxAttempts:  int(cfg.MaxPollAttempts),
			PollInterval: cfg.PollInterval,
		},
	})
	invoker := invoke.NewInvoker(invoke.InvokerConfig{
		Builder: builder,
		Engine:  engine,
		Journal: journalStore,
		Logger:  logger.WithField("subservice", "invoker"),
	})

	var accounts api.AccountCreator
	if cfg.FriendbotURL != "" {
		accounts = account.NewFunder(cfg.FriendbotURL, logger.WithField("subservice", "funder"))
	} else {
		accounts = accountCreationDisabled{}
	}

	daemon := &Daemon{
		logger:          logger,
		rpcClient:       rpcClient,
		journal:         journalStore,
		invoker:         invoker,
		done:            make(chan struct{}),
		metricsRegistry: metricsRegistry,
	}

	httpHandler := api.NewHandler(api.Config{
		Invoker:  invoker,
		Journal:  journalStore,
		Accounts: accounts,
		Health:   rpcClient,
		APIKey:   cfg.APIKey,
		Logger:   logger.WithField("subservice", "api"),
		Registry: metricsRegistry,
	})

	// Use a separate listener in order to obtain the actual TCP port
	// when using dynamic ports during testing (e.g. endpoint="localhost:0")
	daemon.listener, err = net.Listen("tcp", cfg.Endpoint)
	if err != nil {
		logger.WithError(err).WithField("endpoint", cfg.Endpoint).Fatal("cannot listen on endpoint")
	}
	daemon.server = &http.Server{
		Handler:     httpHandler,
		ReadTimeout: defaultReadTimeout,
	}

	if cfg.AdminEndpoint != "" {
		adminMux := http.NewServeMux()
		adminMux.HandleFunc("/debug/pprof/", pprof.Index)
		adminMux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		adminMux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		adminMux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		adminMux.HandleFunc("/debug/pprof/trace", pprof.Trace)
		// add the entry points for:
		// goroutine, threadcreate, heap, allocs, block, mutex
		for _, profile := range runtimePprof.Profiles() {
			adminMux.Handle("/debug/pprof/"+profile.Name(), pprof.Handler(profile.Name()))
		}
		adminMux.Handle("/metrics", promhttp.HandlerFor(metricsRegistry, promhttp.HandlerOpts{}))
		daemon.adminListener, err = net.Listen("tcp", cfg.AdminEndpoint)
		if err != nil {
			logger.WithError(err).WithField("endpoint", cfg.AdminEndpoint).Fatal("cannot listen on admin endpoint")
		}
		daemon.adminServer = &http.Server{Handler: adminMux}
	}
	daemon.registerMetrics()
	return daemon
}

func (d *Daemon) registerMetrics() {
	buildInfoGauge := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Namespace: prometheusNamespace, Subsystem: "build", Name: "info"},
		[]string{"goversion", "commit", "branch", "build_timestamp"},
	)
	buildInfoGauge.With(prometheus.Labels{
		"commit":          config.CommitHash,
		"branch":          config.Branch,
		"build_timestamp": config.BuildTimestamp,
		"goversion":       runtime.Version(),
	}).Inc()

	d.metricsRegistry.MustRegister(collectors.NewGoCollector())
	d.metricsRegistry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	d.metricsRegistry.MustRegister(buildInfoGauge)
}

func (d *Daemon) Run() {
	d.logger.WithFields(supportlog.F{
		"addr": d.listener.Addr().String(),
	}).Info("starting HTTP server")

	go func() {
		if err := d.server.Serve(d.listener); !errors.Is(err, http.ErrServerClosed) {
			d.logger.WithError(err).Fatal("API server encountered fatal error")
		}
	}()

	if d.adminServer != nil {
		d.logger.WithFields(supportlog.F{
			"addr": d.adminListener.Addr().String(),
		}).Info("starting Admin HTTP server")
		go func() {
			if err := d.adminServer.Serve(d.adminListener); !errors.Is(err, http.ErrServerClosed) {
				d.logger.WithError(err).Error("admin server encountered fatal error")
			}
		}()
	}

	// Shutdown gracefully when we receive an interrupt signal.
	// First server.Shutdown closes all open listeners, then closes all idle connections.
	// Finally, it waits a grace period for connections to return to idle and then shut down.
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-signals:
		d.Close()
	case <-d.done:
	}
}

// accountCreationDisabled is the AccountCreator used when no friendbot URL is
// configured.
type accountCreationDisabled struct{}

func (accountCreationDisabled) CreateAccount(context.Context) (*keypair.Full, error) {
	return nil, errors.New("account creation is disabled: no friendbot-url configured")
}
