package client

// Client-side view of the Soroban RPC wire protocol. Only the fields this
// gateway consumes are declared; unknown fields are ignored on decode.

const (
	// TransactionStatusSuccess indicates the transaction was included in a
	// ledger and executed without errors.
	TransactionStatusSuccess = "SUCCESS"
	// TransactionStatusNotFound indicates the transaction is not (yet) known
	// to the node's transaction store.
	TransactionStatusNotFound = "NOT_FOUND"
	// TransactionStatusFailed indicates the transaction was included in a
	// ledger and failed there.
	TransactionStatusFailed = "FAILED"
)

// SendTransactionRequest is the sendTransaction request payload.
type SendTransactionRequest struct {
	// Transaction is the base64 encoded transaction envelope.
	Transaction string `json:"transaction"`
}

// SendTransactionResponse is the node's immediate acknowledgment of a
// transaction submission.
type SendTransactionResponse struct {
	// ErrorResultXDR is present only when Status is ERROR. It is a base64
	// TransactionResult with the rejection details.
	ErrorResultXDR string `json:"errorResultXdr,omitempty"`
	// DiagnosticEventsXDR is present only when Status is ERROR.
	DiagnosticEventsXDR []string `json:"diagnosticEventsXdr,omitempty"`
	// Status is one of PENDING, DUPLICATE, TRY_AGAIN_LATER or ERROR.
	Status string `json:"status"`
	// Hash identifies the transaction for subsequent getTransaction lookups.
	Hash string `json:"hash"`
	// LatestLedger is the latest ledger known to the node when it handled
	// the submission.
	LatestLedger uint32 `json:"latestLedger"`
	// LatestLedgerCloseTime is the unix close time of that ledger.
	LatestLedgerCloseTime int64 `json:"latestLedgerCloseTime,string"`
}

// GetTransactionRequest is the getTransaction request payload.
type GetTransactionRequest struct {
	Hash string `json:"hash"`
}

// GetTransactionResponse is the node's view of a previously submitted
// transaction.
type GetTransactionResponse struct {
	// Status is one of SUCCESS, NOT_FOUND or FAILED.
	Status string `json:"status"`
	// LatestLedger is the latest ledger known to the node.
	LatestLedger uint32 `json:"latestLedger"`
	// LatestLedgerCloseTime is the unix close time of that ledger.
	LatestLedgerCloseTime int64 `json:"latestLedgerCloseTime,string"`

	// The fields below are only present when Status is not NOT_FOUND.

	// EnvelopeXDR is the base64 TransactionEnvelope.
	EnvelopeXDR string `json:"envelopeXdr,omitempty"`
	// ResultXDR is the base64 TransactionResult.
	ResultXDR string `json:"resultXdr,omitempty"`
	// ResultMetaXDR is the base64 TransactionMeta. For Soroban transactions
	// it carries the invocation's return value.
	ResultMetaXDR string `json:"resultMetaXdr,omitempty"`
	// Ledger is the sequence of the ledger which included the transaction.
	Ledger uint32 `json:"ledger,omitempty"`
	// LedgerCloseTime is the unix close time of that ledger.
	LedgerCloseTime int64 `json:"createdAt,string,omitempty"`
}

// GetLedgerEntriesRequest is the getLedgerEntries request payload.
type GetLedgerEntriesRequest struct {
	Keys []string `json:"keys"`
}

// LedgerEntryResult is one entry of a getLedgerEntries response.
type LedgerEntryResult struct {
	// KeyXDR is the original request key matching this result.
	KeyXDR string `json:"key"`
	// DataXDR is the base64 LedgerEntryData.
	DataXDR string `json:"xdr"`
	// LastModifiedLedger is the ledger in which the entry last changed.
	LastModifiedLedger uint32 `json:"lastModifiedLedgerSeq"`
}

// GetLedgerEntriesResponse is the getLedgerEntries response payload.
type GetLedgerEntriesResponse struct {
	Entries      []LedgerEntryResult `json:"entries"`
	LatestLedger uint32              `json:"latestLedger"`
}

// HealthResult is the getHealth response payload.
type HealthResult struct {
	Status string `json:"status"`
}

// GetNetworkResponse is the getNetwork response payload.
type GetNetworkResponse struct {
	FriendbotURL    string `json:"friendbotUrl,omitempty"`
	Passphrase      string `json:"passphrase"`
	ProtocolVersion int    `json:"protocolVersion"`
}
