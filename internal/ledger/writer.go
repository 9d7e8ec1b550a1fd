// Package ledger commits validated candidates as transactions and keeps the
// owning account balance in step, one row at a time.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"fjacquet/stmt-ingest/internal/logging"
	"fjacquet/stmt-ingest/internal/models"
	"fjacquet/stmt-ingest/internal/parsererror"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultRowTimeout bounds the store calls made for a single row.
const DefaultRowTimeout = 10 * time.Second

// Store is the persistence the writer needs.
type Store interface {
	// GetAccount returns an error wrapping parsererror.ErrAccountNotFound
	// when id is unknown.
	GetAccount(ctx context.Context, id string) (models.Account, error)
	CreateTransaction(ctx context.Context, tx models.Transaction) error
	// AdjustBalance adds delta to the stored balance, rounds it to two
	// places and returns the new value.
	AdjustBalance(ctx context.Context, accountID string, delta decimal.Decimal) (decimal.Decimal, error)
}

// AtomicStore is implemented by stores that can insert a transaction and
// update the balance in one unit. The writer prefers it when available.
type AtomicStore interface {
	Store
	CommitTransaction(ctx context.Context, tx models.Transaction) (decimal.Decimal, error)
}

// Writer commits candidates. Commits against the same account are
// serialized; different accounts proceed in parallel.
type Writer struct {
	store      Store
	locks      *accountLocks
	rowTimeout time.Duration
	logger     logging.Logger
	now        func() time.Time
}

// NewWriter creates a Writer. A non-positive rowTimeout means
// DefaultRowTimeout.
func NewWriter(store Store, rowTimeout time.Duration, logger logging.Logger) *Writer {
	if rowTimeout <= 0 {
		rowTimeout = DefaultRowTimeout
	}
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	return &Writer{
		store:      store,
		locks:      newAccountLocks(),
		rowTimeout: rowTimeout,
		logger:     logger,
		now:        time.Now,
	}
}

// Commit persists rows against accountID. The account must exist and, when
// accountType is set, be of that type; otherwise nothing is written and a
// ValidationError is returned.
//
// Each row is independent: a failure is recorded against the row's index and
// the batch continues. Cancelling ctx stops further rows from being issued;
// rows already written stay written and the partial result is returned with
// ctx's error.
func (w *Writer) Commit(ctx context.Context, accountID string, accountType models.AccountType, rows []models.Candidate) (models.CommitResult, error) {
	account, err := w.checkAccount(ctx, accountID, accountType)
	if err != nil {
		return models.CommitResult{AccountID: accountID}, err
	}

	logger := w.logger.WithFields(
		logging.F(logging.FieldAccount, accountID),
		logging.F(logging.FieldOperation, "commit"))

	result := models.CommitResult{AccountID: accountID, Balance: account.Balance}
	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			result.Stopped = true
			logger.WithError(err).Warn("Commit cancelled",
				logging.F("issued", i),
				logging.F(logging.FieldCount, len(rows)))
			return result, err
		}

		if !row.Valid {
			w.fail(&result, i, row, fmt.Errorf("row is not valid: %s", strings.Join(row.Errors, ", ")))
			continue
		}

		balance, err := w.commitRow(ctx, accountID, row)
		if err != nil {
			logger.WithError(err).Warn("Row commit failed", logging.F(logging.FieldRow, row.Row))
			w.fail(&result, i, row, err)
			continue
		}
		result.Imported++
		result.Balance = balance
	}

	logger.Info("Commit finished",
		logging.F("imported", result.Imported),
		logging.F("failed", result.Failed),
		logging.F(logging.FieldBalance, result.Balance.StringFixed(2)))
	return result, nil
}

// Record commits one manually entered transaction through the same per-account
// serialization as Commit.
func (w *Writer) Record(ctx context.Context, accountID string, row models.Candidate) (decimal.Decimal, error) {
	if _, err := w.checkAccount(ctx, accountID, ""); err != nil {
		return decimal.Zero, err
	}
	if !row.Valid {
		return decimal.Zero, &parsererror.ValidationError{
			Operation: "record",
			Reason:    strings.Join(row.Errors, ", "),
			Err:       errors.New("transaction is not valid"),
		}
	}
	return w.commitRow(ctx, accountID, row)
}

func (w *Writer) checkAccount(ctx context.Context, accountID string, accountType models.AccountType) (models.Account, error) {
	if accountID == "" {
		return models.Account{}, &parsererror.ValidationError{Operation: "commit", Err: parsererror.ErrNoTargetAccount}
	}
	account, err := w.store.GetAccount(ctx, accountID)
	if errors.Is(err, parsererror.ErrAccountNotFound) {
		return models.Account{}, &parsererror.ValidationError{Operation: "commit", Reason: accountID, Err: parsererror.ErrAccountNotFound}
	}
	if err != nil {
		return models.Account{}, fmt.Errorf("failed to load account %s: %w", accountID, err)
	}
	if accountType != "" && account.Type != accountType {
		return models.Account{}, &parsererror.ValidationError{
			Operation: "commit",
			Reason:    fmt.Sprintf("account %s is %s, not %s", accountID, account.Type, accountType),
			Err:       parsererror.ErrAccountTypeMismatch,
		}
	}
	return account, nil
}

// commitRow writes the transaction and then applies its amount to the
// balance while holding the account lock.
func (w *Writer) commitRow(ctx context.Context, accountID string, row models.Candidate) (decimal.Decimal, error) {
	rowCtx, cancel := context.WithTimeout(ctx, w.rowTimeout)
	defer cancel()

	unlock, err := w.locks.lock(rowCtx, accountID)
	if err != nil {
		return decimal.Zero, &parsererror.CommitError{AccountID: accountID, Stage: "lock", Err: err}
	}
	defer unlock()

	tx := w.transaction(accountID, row)
	if atomic, ok := w.store.(AtomicStore); ok {
		balance, err := atomic.CommitTransaction(rowCtx, tx)
		if err != nil {
			return decimal.Zero, &parsererror.CommitError{AccountID: accountID, Stage: "commit transaction", Err: err}
		}
		return balance, nil
	}
	if err := w.store.CreateTransaction(rowCtx, tx); err != nil {
		return decimal.Zero, &parsererror.CommitError{AccountID: accountID, Stage: "create transaction", Err: err}
	}
	balance, err := w.store.AdjustBalance(rowCtx, accountID, tx.Amount)
	if err != nil {
		return decimal.Zero, &parsererror.CommitError{AccountID: accountID, Stage: "update balance", Err: err}
	}
	return balance, nil
}

func (w *Writer) transaction(accountID string, row models.Candidate) models.Transaction {
	return models.Transaction{
		ID:          uuid.NewString(),
		AccountID:   accountID,
		Description: row.Description,
		Amount:      row.Amount,
		Category:    row.Direction(),
		Subcategory: row.Category,
		Date:        row.Date,
		CreatedAt:   w.now().UTC(),
	}
}

func (w *Writer) fail(result *models.CommitResult, index int, row models.Candidate, err error) {
	var ce *parsererror.CommitError
	if errors.As(err, &ce) {
		ce.Index = index
	}
	result.Failed++
	result.Errors = append(result.Errors, models.RowError{Index: index, Row: row.Row, Message: err.Error()})
}
