package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"paybot/internal/domain"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements domain.IntentStore on a SQLite file. One record
// per intent, keyed by id; the file survives process restart.
type SQLiteStore struct {
	db      *sql.DB
	logger  *slog.Logger
	updates *keyedLocks
}

func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create database directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}

	// Set connection pool (single connection for SQLite)
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &SQLiteStore{db: db, logger: logger, updates: newKeyedLocks()}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database migration failed: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS intents (
		id                       TEXT PRIMARY KEY,
		sender_identity          TEXT NOT NULL,
		recipient_identity       TEXT NOT NULL,
		sender_display_name      TEXT,
		recipient_display_name   TEXT,
		amount                   TEXT NOT NULL,
		currency_code            TEXT NOT NULL,
		sender_wallet_address    TEXT NOT NULL,
		recipient_wallet_address TEXT NOT NULL,
		sender_chain_label       TEXT,
		recipient_chain_label    TEXT,
		status                   TEXT NOT NULL,
		created_at               DATETIME NOT NULL,
		confirmed_at             DATETIME,
		settlement_reference     TEXT,
		origin_context           TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_intents_sender ON intents(sender_identity, created_at);
	CREATE INDEX IF NOT EXISTS idx_intents_recipient ON intents(recipient_identity, created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

const intentColumns = `id, sender_identity, recipient_identity, sender_display_name,
	recipient_display_name, amount, currency_code, sender_wallet_address,
	recipient_wallet_address, sender_chain_label, recipient_chain_label,
	status, created_at, confirmed_at, settlement_reference, origin_context`

func (s *SQLiteStore) Create(ctx context.Context, intent *domain.PaymentIntent) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO intents (`+intentColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		intent.ID, intent.SenderIdentity, intent.RecipientIdentity,
		intent.SenderDisplayName, intent.RecipientDisplayName,
		intent.Amount.String(), intent.CurrencyCode,
		intent.SenderWalletAddress, intent.RecipientWalletAddress,
		intent.SenderChainLabel, intent.RecipientChainLabel,
		string(intent.Status), intent.CreatedAt,
		nullableTime(intent.ConfirmedAt), nullableString(intent.SettlementReference),
		nullableString(intent.OriginContext),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateID
		}
		return domain.WrapError(domain.KindStorage, "insert intent", err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*domain.PaymentIntent, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+intentColumns+` FROM intents WHERE id = ?`, id)
	intent, err := scanIntent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrIntentNotFound
		}
		return nil, domain.WrapError(domain.KindStorage, "select intent", err)
	}
	return intent, nil
}

func (s *SQLiteStore) Update(ctx context.Context, id string, mutate func(*domain.PaymentIntent) error) (*domain.PaymentIntent, error) {
	// Per-id critical section across the read-modify-write, so two
	// concurrent confirmations of the same intent cannot interleave.
	lock := s.updates.get(id)
	lock.Lock()
	defer lock.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, domain.WrapError(domain.KindStorage, "begin update", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx,
		`SELECT `+intentColumns+` FROM intents WHERE id = ?`, id)
	intent, err := scanIntent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrIntentNotFound
		}
		return nil, domain.WrapError(domain.KindStorage, "select intent for update", err)
	}

	if err := mutate(intent); err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE intents SET status = ?, confirmed_at = ?, settlement_reference = ? WHERE id = ?`,
		string(intent.Status), nullableTime(intent.ConfirmedAt),
		nullableString(intent.SettlementReference), id,
	)
	if err != nil {
		return nil, domain.WrapError(domain.KindStorage, "update intent", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, domain.WrapError(domain.KindStorage, "commit update", err)
	}
	return intent, nil
}

func (s *SQLiteStore) ListByParty(ctx context.Context, identity string) ([]domain.PaymentIntent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+intentColumns+` FROM intents
		 WHERE sender_identity = ? OR recipient_identity = ?
		 ORDER BY created_at DESC`, identity, identity)
	if err != nil {
		return nil, domain.WrapError(domain.KindStorage, "list intents", err)
	}
	defer rows.Close()

	var out []domain.PaymentIntent
	for rows.Next() {
		intent, err := scanIntent(rows)
		if err != nil {
			return nil, domain.WrapError(domain.KindStorage, "scan intent row", err)
		}
		out = append(out, *intent)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.WrapError(domain.KindStorage, "iterate intents", err)
	}
	return out, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanIntent(row scanner) (*domain.PaymentIntent, error) {
	var (
		intent      domain.PaymentIntent
		amount      string
		status      string
		confirmedAt sql.NullTime
		settlement  sql.NullString
		origin      sql.NullString
	)
	err := row.Scan(
		&intent.ID, &intent.SenderIdentity, &intent.RecipientIdentity,
		&intent.SenderDisplayName, &intent.RecipientDisplayName,
		&amount, &intent.CurrencyCode,
		&intent.SenderWalletAddress, &intent.RecipientWalletAddress,
		&intent.SenderChainLabel, &intent.RecipientChainLabel,
		&status, &intent.CreatedAt, &confirmedAt, &settlement, &origin,
	)
	if err != nil {
		return nil, err
	}
	intent.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("stored amount %q is not a decimal: %w", amount, err)
	}
	intent.Status = domain.Status(status)
	if confirmedAt.Valid {
		ts := confirmedAt.Time
		intent.ConfirmedAt = &ts
	}
	intent.SettlementReference = settlement.String
	intent.OriginContext = origin.String
	return &intent, nil
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// isUniqueViolation detects a primary key collision without depending on
// driver-specific error types.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
