// Package api exposes the gateway's REST surface: contract invocation,
// transaction lookup, account creation and classic asset helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/cors"

	"github.com/stellar/go/keypair"
	supportlog "github.com/stellar/go/support/log"
	"github.com/stellar/go/txnbuild"
	"github.com/stellar/go/xdr"

	"github.com/stellar/soroban-gateway/cmd/soroban-gateway/internal/assets"
	"github.com/stellar/soroban-gateway/cmd/soroban-gateway/internal/invoke"
	"github.com/stellar/soroban-gateway/cmd/soroban-gateway/internal/journal"
)

const defaultListLimit = 50

// Invoker runs transactions through the build/submit/confirm pipeline.
type Invoker interface {
	Invoke(ctx context.Context, request invoke.InvocationRequest) (*invoke.ConfirmationResult, error)
	SubmitOperation(ctx context.Context, sourceSecret string, op txnbuild.Operation) (*invoke.ConfirmationResult, error)
}

// Journal reads back previously recorded transaction outcomes.
type Journal interface {
	Get(ctx context.Context, hash string) (journal.Entry, error)
	Recent(ctx context.Context, limit uint64) ([]journal.Entry, error)
}

// AccountCreator generates and funds fresh accounts.
type AccountCreator interface {
	CreateAccount(ctx context.Context) (*keypair.Full, error)
}

// HealthChecker reports whether the backing node is usable.
type HealthChecker interface {
	GetHealth(ctx context.Context) error
}

// Config wires the REST handler.
type Config struct {
	Invoker  Invoker
	Journal  Journal
	Accounts AccountCreator
	Health   HealthChecker
	// APIKey protects all endpoints except /health when non-empty.
	APIKey   string
	Logger   *supportlog.Entry
	Registry *prometheus.Registry
}

type handler struct {
	invoker           Invoker
	journal           Journal
	accounts          AccountCreator
	health            HealthChecker
	logger            *supportlog.Entry
	invocationsMetric *prometheus.CounterVec
}

// NewHandler returns the gateway's HTTP handler.
func NewHandler(cfg Config) http.Handler {
	h := &handler{
		invoker:  cfg.Invoker,
		journal:  cfg.Journal,
		accounts: cfg.Accounts,
		health:   cfg.Health,
		logger:   cfg.Logger,
	}
	if cfg.Registry != nil {
		h.invocationsMetric = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "soroban_gateway", Subsystem: "api", Name: "invocations_total",
			Help: "contract invocations by outcome",
		}, []string{"outcome"})
		cfg.Registry.MustRegister(h.invocationsMetric)
	}

	router := chi.NewRouter()
	router.Use(cors.AllowAll().Handler)
	router.Get("/health", h.getHealth)
	router.Group(func(router chi.Router) {
		router.Use(apiKeyMiddleware(cfg.APIKey))
		router.Post("/invoke", h.postInvoke)
		router.Get("/transactions", h.listTransactions)
		router.Get("/transactions/{hash}", h.getTransaction)
		router.Post("/accounts", h.postAccounts)
		router.Post("/trustlines", h.postTrustlines)
		router.Post("/payments", h.postPayments)
	})
	return router
}

func apiKeyMiddleware(apiKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if apiKey != "" && r.Header.Get("X-Api-Key") != apiKey {
				writeError(w, http.StatusUnauthorized, "invalid or missing API key", "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
	Hash  string `json:"hash,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message, kind string) {
	writeJSON(w, status, errorResponse{Error: message, Kind: kind})
}

func (h *handler) writeClassifiedError(w http.ResponseWriter, err error) {
	var classified *invoke.Error
	if !errors.As(err, &classified) {
		h.logger.WithError(err).Error("unclassified error from invocation pipeline")
		writeError(w, http.StatusInternalServerError, "internal error", "")
		return
	}
	status := http.StatusInternalServerError
	switch classified.Kind {
	case invoke.ErrorKindValidation, invoke.ErrorKindEncoding:
		status = http.StatusBadRequest
	case invoke.ErrorKindAccountLookup:
		status = http.StatusNotFound
	case invoke.ErrorKindInfrastructure, invoke.ErrorKindProtocol:
		status = http.StatusBadGateway
	}
	writeJSON(w, status, errorResponse{
		Error: classified.Message,
		Kind:  classified.Kind.String(),
		Hash:  classified.Hash,
	})
}

// resultResponse is the JSON form of a confirmation result.
type resultResponse struct {
	Status      string `json:"status"`
	Hash        string `json:"hash"`
	ReturnValue string `json:"returnValue,omitempty"`
	Diagnostic  string `json:"diagnostic,omitempty"`
	Ledger      uint32 `json:"ledger,omitempty"`
	Attempts    int    `json:"attempts"`
}

func (h *handler) writeResult(w http.ResponseWriter, result *invoke.ConfirmationResult) {
	if h.invocationsMetric != nil {
		h.invocationsMetric.WithLabelValues(result.Status.String()).Inc()
	}
	response := resultResponse{
		Status:     result.Status.String(),
		Hash:       result.Hash,
		Diagnostic: result.Diagnostic,
		Ledger:     result.Ledger,
		Attempts:   result.Attempts,
	}
	status := http.StatusOK
	switch result.Status {
	case invoke.StatusSucceeded:
		value, err := xdr.MarshalBase64(result.ReturnValue)
		if err != nil {
			h.logger.WithError(err).WithField("tx", result.Hash).Error("could not marshal return value")
			writeError(w, http.StatusInternalServerError, "could not marshal return value", "")
			return
		}
		response.ReturnValue = value
	case invoke.StatusRejected, invoke.StatusFailed:
		status = http.StatusUnprocessableEntity
	case invoke.StatusTimedOut:
		// indeterminate: the transaction may still land, hand back the hash
		status = http.StatusAccepted
	}
	writeJSON(w, status, response)
}

type invokeRequest struct {
	ContractID   string      `json:"contractId"`
	Method       string      `json:"method"`
	SourceSecret string      `json:"sourceSecret"`
	Params       []paramSpec `json:"params"`
}

func (h *handler) postInvoke(w http.ResponseWriter, r *http.Request) {
	var request invokeRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", "validation")
		return
	}
	params, err := decodeParams(request.Params)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "validation")
		return
	}
	result, err := h.invoker.Invoke(r.Context(), invoke.InvocationRequest{
		ContractID:   request.ContractID,
		Method:       request.Method,
		SourceSecret: request.SourceSecret,
		Params:       params,
	})
	if err != nil {
		h.writeClassifiedError(w, err)
		return
	}
	h.writeResult(w, result)
}

type transactionResponse struct {
	Hash        string `json:"hash"`
	ContractID  string `json:"contractId,omitempty"`
	Method      string `json:"method,omitempty"`
	Status      string `json:"status"`
	ReturnValue string `json:"returnValue,omitempty"`
	Diagnostic  string `json:"diagnostic,omitempty"`
	Ledger      uint32 `json:"ledger,omitempty"`
	Attempts    int    `json:"attempts"`
	CreatedAt   string `json:"createdAt"`
}

func toTransactionResponse(entry journal.Entry) transactionResponse {
	return transactionResponse{
		Hash:        entry.Hash,
		ContractID:  entry.ContractID,
		Method:      entry.Method,
		Status:      entry.Outcome,
		ReturnValue: entry.ReturnValueXDR,
		Diagnostic:  entry.DiagnosticXDR,
		Ledger:      entry.Ledger,
		Attempts:    entry.Attempts,
		CreatedAt:   entry.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
}

func (h *handler) getTransaction(w http.ResponseWriter, r *http.Request) {
	hash := chi.URLParam(r, "hash")
	entry, err := h.journal.Get(r.Context(), hash)
	if errors.Is(err, journal.ErrNotFound) {
		writeError(w, http.StatusNotFound, "transaction not found", "")
		return
	}
	if err != nil {
		h.logger.WithError(err).WithField("tx", hash).Error("journal lookup failed")
		writeError(w, http.StatusInternalServerError, "internal error", "")
		return
	}
	writeJSON(w, http.StatusOK, toTransactionResponse(entry))
}

func (h *handler) listTransactions(w http.ResponseWriter, r *http.Request) {
	limit := uint64(defaultListLimit)
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || parsed == 0 {
			writeError(w, http.StatusBadRequest, "invalid limit", "validation")
			return
		}
		limit = parsed
	}
	entries, err := h.journal.Recent(r.Context(), limit)
	if err != nil {
		h.logger.WithError(err).Error("journal listing failed")
		writeError(w, http.StatusInternalServerError, "internal error", "")
		return
	}
	responses := make([]transactionResponse, 0, len(entries))
	for _, entry := range entries {
		responses = append(responses, toTransactionResponse(entry))
	}
	writeJSON(w, http.StatusOK, responses)
}

func (h *handler) postAccounts(w http.ResponseWriter, r *http.Request) {
	kp, err := h.accounts.CreateAccount(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("account creation failed")
		writeError(w, http.StatusBadGateway, "could not create account", "infrastructure")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"publicKey": kp.Address(),
		"secret":    kp.Seed(),
	})
}

type assetSpec struct {
	Code   string `json:"code"`
	Issuer string `json:"issuer"`
}

type trustlineRequest struct {
	SourceSecret string    `json:"sourceSecret"`
	Asset        assetSpec `json:"asset"`
	Limit        string    `json:"limit"`
}

func (h *handler) postTrustlines(w http.ResponseWriter, r *http.Request) {
	var request trustlineRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", "validation")
		return
	}
	op, err := assets.ChangeTrustOp(assets.Asset{Code: request.Asset.Code, Issuer: request.Asset.Issuer}, request.Limit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "validation")
		return
	}
	result, err := h.invoker.SubmitOperation(r.Context(), request.SourceSecret, op)
	if err != nil {
		h.writeClassifiedError(w, err)
		return
	}
	h.writeResult(w, result)
}

type paymentRequest struct {
	SourceSecret string    `json:"sourceSecret"`
	Destination  string    `json:"destination"`
	Asset        assetSpec `json:"asset"`
	Amount       string    `json:"amount"`
}

func (h *handler) postPayments(w http.ResponseWriter, r *http.Request) {
	var request paymentRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", "validation")
		return
	}
	op, err := assets.PaymentOp(request.Destination, assets.Asset{Code: request.Asset.Code, Issuer: request.Asset.Issuer}, request.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "validation")
		return
	}
	result, err := h.invoker.SubmitOperation(r.Context(), request.SourceSecret, op)
	if err != nil {
		h.writeClassifiedError(w, err)
		return
	}
	h.writeResult(w, result)
}

func (h *handler) getHealth(w http.ResponseWriter, r *http.Request) {
	if err := h.health.GetHealth(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}
