// Package store persists accounts and transactions.
package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"fjacquet/stmt-ingest/internal/models"
	"fjacquet/stmt-ingest/internal/parsererror"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

const timeLayout = time.RFC3339Nano

// SQLiteStore keeps accounts and transactions in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path and applies
// pending migrations.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	if err := runMigrations(path); err != nil {
		return nil, fmt.Errorf("failed to migrate %s: %w", path, err)
	}

	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1) // sqlite
	db.SetConnMaxLifetime(0)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return &SQLiteStore{db: db}, nil
}

func runMigrations(path string) error {
	src, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return err
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, fmt.Sprintf("sqlite3://%s?_foreign_keys=on", path))
	if err != nil {
		return err
	}
	defer m.Close()

	err = m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		return nil
	}
	return err
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// withTx runs fn in a transaction.
func (s *SQLiteStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// CreateAccount inserts a. An empty ID is replaced by a new UUID.
func (s *SQLiteStore) CreateAccount(ctx context.Context, a models.Account) (models.Account, error) {
	a, err := prepareAccount(a)
	if err != nil {
		return models.Account{}, err
	}
	_, err = s.db.ExecContext(ctx, `
	INSERT INTO accounts(id, name, owner_id, account_type, category, balance, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Name, a.OwnerID, string(a.Type), string(a.Category), a.Balance.StringFixed(2),
		time.Now().UTC().Format(timeLayout))
	if err != nil {
		return models.Account{}, fmt.Errorf("failed to create account %q: %w", a.Name, err)
	}
	return a, nil
}

// ListAccounts returns the accounts of accountType, or all accounts when it
// is empty, ordered by name.
func (s *SQLiteStore) ListAccounts(ctx context.Context, accountType models.AccountType) ([]models.Account, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT id, name, owner_id, account_type, category, balance FROM accounts
	WHERE ? = '' OR account_type = ?
	ORDER BY name, id`, string(accountType), string(accountType))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// GetAccount loads one account.
func (s *SQLiteStore) GetAccount(ctx context.Context, id string) (models.Account, error) {
	row := s.db.QueryRowContext(ctx, `
	SELECT id, name, owner_id, account_type, category, balance FROM accounts WHERE id = ?`, id)
	a, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Account{}, fmt.Errorf("%w: %s", parsererror.ErrAccountNotFound, id)
	}
	return a, err
}

// CreateTransaction inserts tx without touching the balance.
func (s *SQLiteStore) CreateTransaction(ctx context.Context, tx models.Transaction) error {
	return s.withTx(ctx, func(sqlTx *sql.Tx) error {
		return insertTransaction(ctx, sqlTx, tx)
	})
}

// AdjustBalance adds delta to the account balance inside a transaction.
func (s *SQLiteStore) AdjustBalance(ctx context.Context, accountID string, delta decimal.Decimal) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		balance, err = adjustBalance(ctx, tx, accountID, delta)
		return err
	})
	return balance, err
}

// CommitTransaction inserts tx and applies its amount to the owning account
// in one database transaction.
func (s *SQLiteStore) CommitTransaction(ctx context.Context, tx models.Transaction) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := s.withTx(ctx, func(sqlTx *sql.Tx) error {
		if err := insertTransaction(ctx, sqlTx, tx); err != nil {
			return err
		}
		var err error
		balance, err = adjustBalance(ctx, sqlTx, tx.AccountID, tx.Amount)
		return err
	})
	return balance, err
}

// ListTransactions returns the transactions of accountID ordered by date.
func (s *SQLiteStore) ListTransactions(ctx context.Context, accountID string) ([]models.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT id, account_id, description, amount, category, subcategory, date, created_at
	FROM transactions WHERE account_id = ?
	ORDER BY date, created_at, id`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Transaction
	for rows.Next() {
		var t models.Transaction
		var amount, createdAt string
		if err := rows.Scan(&t.ID, &t.AccountID, &t.Description, &amount, &t.Category, &t.Subcategory, &t.Date, &createdAt); err != nil {
			return nil, err
		}
		if t.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("transaction %s has corrupt amount %q: %w", t.ID, amount, err)
		}
		if t.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
			return nil, fmt.Errorf("transaction %s has corrupt timestamp %q: %w", t.ID, createdAt, err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAccount(row scanner) (models.Account, error) {
	var a models.Account
	var accountType, category, balance string
	if err := row.Scan(&a.ID, &a.Name, &a.OwnerID, &accountType, &category, &balance); err != nil {
		return models.Account{}, err
	}
	a.Type = models.AccountType(accountType)
	a.Category = models.AccountCategory(category)
	b, err := decimal.NewFromString(balance)
	if err != nil {
		return models.Account{}, fmt.Errorf("account %s has corrupt balance %q: %w", a.ID, balance, err)
	}
	a.Balance = b
	return a, nil
}

func insertTransaction(ctx context.Context, tx *sql.Tx, t models.Transaction) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	_, err := tx.ExecContext(ctx, `
	INSERT INTO transactions(id, account_id, description, amount, category, subcategory, date, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.AccountID, t.Description, t.AmountString(), t.Category, t.Subcategory, t.Date,
		t.CreatedAt.UTC().Format(timeLayout))
	return err
}

func adjustBalance(ctx context.Context, tx *sql.Tx, accountID string, delta decimal.Decimal) (decimal.Decimal, error) {
	var current string
	err := tx.QueryRowContext(ctx, `SELECT balance FROM accounts WHERE id = ?`, accountID).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, fmt.Errorf("%w: %s", parsererror.ErrAccountNotFound, accountID)
	}
	if err != nil {
		return decimal.Zero, err
	}
	balance, err := decimal.NewFromString(current)
	if err != nil {
		return decimal.Zero, fmt.Errorf("account %s has corrupt balance %q: %w", accountID, current, err)
	}

	next := models.RoundBalance(balance.Add(delta))
	if _, err := tx.ExecContext(ctx, `UPDATE accounts SET balance = ? WHERE id = ?`, next.StringFixed(2), accountID); err != nil {
		return decimal.Zero, err
	}
	return next, nil
}

func prepareAccount(a models.Account) (models.Account, error) {
	if a.Name == "" {
		return a, errors.New("account name is required")
	}
	if _, err := models.ParseAccountType(string(a.Type)); err != nil {
		return a, err
	}
	if _, err := models.ParseAccountCategory(string(a.Category)); err != nil {
		return a, err
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.Balance = models.RoundBalance(a.Balance)
	return a, nil
}
