// Package journal persists the outcome of every submitted transaction in a
// local SQLite database, so callers can re-query results after the fact. This
// matters most for submissions that timed out client-side but may still have
// landed on the ledger.
package journal

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"
	migrate "github.com/rubenv/sql-migrate"

	"github.com/stellar/go/xdr"

	"github.com/stellar/soroban-gateway/cmd/soroban-gateway/internal/invoke"
)

//go:embed sqlmigrations/*.sql
var sqlMigrations embed.FS

const transactionTableName = "transactions"

// ErrNotFound is returned by Get when no journal row exists for a hash.
var ErrNotFound = errors.New("transaction not found in journal")

// Entry is one journaled transaction outcome.
type Entry struct {
	Hash           string
	ContractID     string
	Method         string
	Outcome        string
	ReturnValueXDR string
	DiagnosticXDR  string
	Ledger         uint32
	Attempts       int
	CreatedAt      time.Time
}

// Store is a SQLite-backed journal. Safe for concurrent use.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the journal database at dbFilePath and
// applies pending migrations.
func Open(dbFilePath string) (*Store, error) {
	// WAL with synchronous=NORMAL: faster than the default and still safe in
	// WAL mode.
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_journal_mode=WAL&_synchronous=NORMAL", dbFilePath))
	if err != nil {
		return nil, fmt.Errorf("open failed: %w", err)
	}
	source := migrate.EmbedFileSystemMigrationSource{FileSystem: sqlMigrations, Root: "sqlmigrations"}
	if _, err := migrate.Exec(db, "sqlite3", source, migrate.Up); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("could not run SQL migrations: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// RecordOutcome implements invoke.Recorder. Re-recording the same hash (e.g.
// a DUPLICATE submission confirmed twice) replaces the previous outcome.
func (s *Store) RecordOutcome(ctx context.Context, signed *invoke.SignedTransaction, result *invoke.ConfirmationResult) error {
	var returnValue string
	if result.Status == invoke.StatusSucceeded {
		var err error
		if returnValue, err = xdr.MarshalBase64(result.ReturnValue); err != nil {
			return fmt.Errorf("could not marshal return value: %w", err)
		}
	}
	_, err := sq.Insert(transactionTableName).
		Columns("hash", "contract_id", "method", "outcome", "return_value_xdr", "diagnostic_xdr", "ledger_sequence", "attempts").
		Values(result.Hash, signed.ContractID, signed.Method, result.Status.String(), returnValue, result.Diagnostic, result.Ledger, result.Attempts).
		Suffix("ON CONFLICT(hash) DO UPDATE SET " +
			"outcome=excluded.outcome, return_value_xdr=excluded.return_value_xdr, " +
			"diagnostic_xdr=excluded.diagnostic_xdr, ledger_sequence=excluded.ledger_sequence, " +
			"attempts=excluded.attempts").
		RunWith(s.db).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("could not journal transaction %s: %w", result.Hash, err)
	}
	return nil
}

// Get looks up one journaled transaction by its hex hash.
func (s *Store) Get(ctx context.Context, hash string) (Entry, error) {
	row := sq.Select("hash", "contract_id", "method", "outcome", "return_value_xdr", "diagnostic_xdr", "ledger_sequence", "attempts", "created_at").
		From(transactionTableName).
		Where(sq.Eq{"hash": hash}).
		RunWith(s.db).
		QueryRowContext(ctx)
	var entry Entry
	err := row.Scan(&entry.Hash, &entry.ContractID, &entry.Method, &entry.Outcome,
		&entry.ReturnValueXDR, &entry.DiagnosticXDR, &entry.Ledger, &entry.Attempts, &entry.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, fmt.Errorf("could not read journal entry %s: %w", hash, err)
	}
	return entry, nil
}

// Recent returns up to limit journal entries, newest first.
func (s *Store) Recent(ctx context.Context, limit uint64) ([]Entry, error) {
	rows, err := sq.Select("hash", "contract_id", "method", "outcome", "return_value_xdr", "diagnostic_xdr", "ledger_sequence", "attempts", "created_at").
		From(transactionTableName).
		OrderBy("created_at DESC", "hash").
		Limit(limit).
		RunWith(s.db).
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not list journal entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var entry Entry
		if err := rows.Scan(&entry.Hash, &entry.ContractID, &entry.Method, &entry.Outcome,
			&entry.ReturnValueXDR, &entry.DiagnosticXDR, &entry.Ledger, &entry.Attempts, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
