package ledger

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"testing"
	"time"

	"fjacquet/stmt-ingest/internal/logging"
	"fjacquet/stmt-ingest/internal/models"
	"fjacquet/stmt-ingest/internal/parsererror"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore deliberately splits AdjustBalance into a read and a later write
// so that unserialized callers lose updates.
type fakeStore struct {
	mu           sync.Mutex
	accounts     map[string]models.Account
	transactions []models.Transaction

	failDescription string
	blockCreate     bool
	afterCreate     func(n int)
}

func newFakeStore(accounts ...models.Account) *fakeStore {
	s := &fakeStore{accounts: make(map[string]models.Account)}
	for _, a := range accounts {
		s.accounts[a.ID] = a
	}
	return s
}

func (s *fakeStore) GetAccount(_ context.Context, id string) (models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return models.Account{}, fmt.Errorf("%w: %s", parsererror.ErrAccountNotFound, id)
	}
	return a, nil
}

func (s *fakeStore) CreateTransaction(ctx context.Context, tx models.Transaction) error {
	if s.blockCreate {
		<-ctx.Done()
		return ctx.Err()
	}
	if s.failDescription != "" && tx.Description == s.failDescription {
		return errors.New("disk full")
	}
	s.mu.Lock()
	s.transactions = append(s.transactions, tx)
	n := len(s.transactions)
	s.mu.Unlock()
	if s.afterCreate != nil {
		s.afterCreate(n)
	}
	return nil
}

func (s *fakeStore) AdjustBalance(ctx context.Context, accountID string, delta decimal.Decimal) (decimal.Decimal, error) {
	if err := ctx.Err(); err != nil {
		return decimal.Zero, err
	}
	s.mu.Lock()
	current := s.accounts[accountID].Balance
	s.mu.Unlock()

	runtime.Gosched()

	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.accounts[accountID]
	a.Balance = models.RoundBalance(current.Add(delta))
	s.accounts[accountID] = a
	return a.Balance, nil
}

func (s *fakeStore) balance(id string) decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accounts[id].Balance
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func candidate(row int, desc, amount string) models.Candidate {
	return models.Candidate{
		Row:         row,
		Date:        "2026-01-07",
		Description: desc,
		Amount:      dec(amount),
		Category:    "Food",
		Valid:       true,
	}
}

func checking(balance string) models.Account {
	return models.Account{
		ID:       "acct-1",
		Name:     "Main",
		Type:     models.AccountTypePersonal,
		Category: models.AccountCategoryChecking,
		Balance:  dec(balance),
	}
}

func TestCommit_AppliesEachRow(t *testing.T) {
	store := newFakeStore(checking("143.20"))
	w := NewWriter(store, time.Second, logging.NewMockLogger())

	rows := []models.Candidate{
		candidate(2, "Coffee Shop", "-12.50"),
		candidate(3, "Paycheck", "2500.00"),
	}
	result, err := w.Commit(context.Background(), "acct-1", models.AccountTypePersonal, rows)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Imported)
	assert.Equal(t, 0, result.Failed)
	assert.True(t, result.Balance.Equal(dec("2630.70")))
	assert.True(t, store.balance("acct-1").Equal(dec("2630.70")))

	require.Len(t, store.transactions, 2)
	tx := store.transactions[0]
	assert.Equal(t, "acct-1", tx.AccountID)
	assert.Equal(t, models.DirectionExpense, tx.Category)
	assert.Equal(t, "Food", tx.Subcategory)
	assert.Equal(t, "-12.50", tx.AmountString())
	assert.NotEmpty(t, tx.ID)
	assert.Equal(t, models.DirectionIncome, store.transactions[1].Category)
}

func TestCommit_RowFailuresDoNotAbort(t *testing.T) {
	store := newFakeStore(checking("100.00"))
	store.failDescription = "Broken"
	w := NewWriter(store, time.Second, logging.NewMockLogger())

	invalid := candidate(4, "", "1.00")
	invalid.AddError(models.ReasonMissingDescription)

	rows := []models.Candidate{
		candidate(2, "Rent", "-50.00"),
		candidate(3, "Broken", "-10.00"),
		invalid,
		candidate(5, "Refund", "5.25"),
	}
	result, err := w.Commit(context.Background(), "acct-1", "", rows)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Imported)
	assert.Equal(t, 2, result.Failed)
	require.Len(t, result.Errors, 2)
	assert.Equal(t, 1, result.Errors[0].Index)
	assert.Equal(t, 3, result.Errors[0].Row)
	assert.Contains(t, result.Errors[0].Message, "disk full")
	assert.Equal(t, 2, result.Errors[1].Index)
	assert.Contains(t, result.Errors[1].Message, models.ReasonMissingDescription)
	assert.True(t, store.balance("acct-1").Equal(dec("55.25")))
}

func TestCommit_Preconditions(t *testing.T) {
	store := newFakeStore(checking("0"))
	w := NewWriter(store, time.Second, logging.NewMockLogger())
	rows := []models.Candidate{candidate(2, "Rent", "-50.00")}

	tests := []struct {
		name        string
		accountID   string
		accountType models.AccountType
		want        error
	}{
		{"no account selected", "", "", parsererror.ErrNoTargetAccount},
		{"unknown account", "acct-9", "", parsererror.ErrAccountNotFound},
		{"type mismatch", "acct-1", models.AccountTypeBusiness, parsererror.ErrAccountTypeMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := w.Commit(context.Background(), tt.accountID, tt.accountType, rows)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want))
			assert.True(t, parsererror.IsPrecondition(err))
			assert.Zero(t, result.Imported)
		})
	}
	assert.Empty(t, store.transactions)
}

func TestCommit_CancellationStopsIssuingRows(t *testing.T) {
	store := newFakeStore(checking("0"))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	store.afterCreate = func(n int) {
		if n == 2 {
			cancel()
		}
	}
	w := NewWriter(store, time.Second, logging.NewMockLogger())

	rows := make([]models.Candidate, 5)
	for i := range rows {
		rows[i] = candidate(i+2, fmt.Sprintf("row %d", i), "1.00")
	}

	result, err := w.Commit(ctx, "acct-1", "", rows)
	require.ErrorIs(t, err, context.Canceled)
	assert.True(t, result.Stopped)
	assert.Len(t, store.transactions, 2, "committed rows stay committed")
	assert.Equal(t, 1, result.Imported)
	assert.Equal(t, 1, result.Failed, "balance update of the second row sees the cancelled context")
}

func TestCommit_RowTimeout(t *testing.T) {
	store := newFakeStore(checking("10.00"))
	store.blockCreate = true
	w := NewWriter(store, 20*time.Millisecond, logging.NewMockLogger())

	rows := []models.Candidate{candidate(2, "Slow", "-1.00"), candidate(3, "Slower", "-2.00")}
	result, err := w.Commit(context.Background(), "acct-1", "", rows)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Failed)
	assert.Contains(t, result.Errors[0].Message, context.DeadlineExceeded.Error())
	assert.True(t, result.Balance.Equal(dec("10.00")))
}

func TestCommit_ConcurrentBatchesLoseNoUpdates(t *testing.T) {
	store := newFakeStore(checking("143.20"))
	w := NewWriter(store, 5*time.Second, logging.NewMockLogger())

	batch := func(n int, amount string) []models.Candidate {
		rows := make([]models.Candidate, n)
		for i := range rows {
			rows[i] = candidate(i+2, "row", amount)
		}
		return rows
	}
	first, second := batch(60, "-12.50"), batch(45, "3.35")

	var wg sync.WaitGroup
	results := make([]models.CommitResult, 2)
	for i, rows := range [][]models.Candidate{first, second} {
		wg.Add(1)
		go func(i int, rows []models.Candidate) {
			defer wg.Done()
			res, err := w.Commit(context.Background(), "acct-1", "", rows)
			assert.NoError(t, err)
			results[i] = res
		}(i, rows)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := w.Record(context.Background(), "acct-1", candidate(1, "manual", "-0.70"))
		assert.NoError(t, err)
	}()
	wg.Wait()

	want := dec("143.20").
		Add(dec("-12.50").Mul(decimal.NewFromInt(60))).
		Add(dec("3.35").Mul(decimal.NewFromInt(45))).
		Add(dec("-0.70"))
	assert.True(t, store.balance("acct-1").Equal(want), "got %s want %s", store.balance("acct-1"), want)
	assert.Equal(t, 60, results[0].Imported)
	assert.Equal(t, 45, results[1].Imported)
	assert.Len(t, store.transactions, 106)
}

func TestRecord(t *testing.T) {
	store := newFakeStore(checking("143.20"))
	w := NewWriter(store, 0, nil)

	balance, err := w.Record(context.Background(), "acct-1", candidate(0, "Lunch", "-12.50"))
	require.NoError(t, err)
	assert.True(t, balance.Equal(dec("130.70")))

	bad := candidate(0, "Lunch", "0")
	bad.AddError(models.ReasonInvalidAmount)
	_, err = w.Record(context.Background(), "acct-1", bad)
	assert.True(t, parsererror.IsPrecondition(err))

	_, err = w.Record(context.Background(), "nope", candidate(0, "Lunch", "-1"))
	assert.ErrorIs(t, err, parsererror.ErrAccountNotFound)
}

func TestAccountLocks_HonourContext(t *testing.T) {
	locks := newAccountLocks()
	unlock, err := locks.lock(context.Background(), "a")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = locks.lock(ctx, "a")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	other, err := locks.lock(context.Background(), "b")
	require.NoError(t, err)
	other()

	unlock()
	again, err := locks.lock(context.Background(), "a")
	require.NoError(t, err)
	again()
}
