package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"fjacquet/stmt-ingest/internal/models"
	"fjacquet/stmt-ingest/internal/parsererror"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MemoryStore is an in-process store used for dry runs and tests. All
// methods are safe for concurrent use.
type MemoryStore struct {
	mu           sync.Mutex
	accounts     map[string]models.Account
	transactions []models.Transaction
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{accounts: make(map[string]models.Account)}
}

func (s *MemoryStore) CreateAccount(_ context.Context, a models.Account) (models.Account, error) {
	a, err := prepareAccount(a)
	if err != nil {
		return models.Account{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.accounts[a.ID]; exists {
		return models.Account{}, fmt.Errorf("account %s already exists", a.ID)
	}
	s.accounts[a.ID] = a
	return a, nil
}

func (s *MemoryStore) ListAccounts(_ context.Context, accountType models.AccountType) ([]models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Account
	for _, a := range s.accounts {
		if accountType == "" || a.Type == accountType {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) GetAccount(_ context.Context, id string) (models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return models.Account{}, fmt.Errorf("%w: %s", parsererror.ErrAccountNotFound, id)
	}
	return a, nil
}

func (s *MemoryStore) CreateTransaction(ctx context.Context, tx models.Transaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertLocked(tx)
}

func (s *MemoryStore) AdjustBalance(ctx context.Context, accountID string, delta decimal.Decimal) (decimal.Decimal, error) {
	if err := ctx.Err(); err != nil {
		return decimal.Zero, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.adjustLocked(accountID, delta)
}

// CommitTransaction inserts tx and updates the balance under one lock.
func (s *MemoryStore) CommitTransaction(ctx context.Context, tx models.Transaction) (decimal.Decimal, error) {
	if err := ctx.Err(); err != nil {
		return decimal.Zero, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[tx.AccountID]; !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", parsererror.ErrAccountNotFound, tx.AccountID)
	}
	if err := s.insertLocked(tx); err != nil {
		return decimal.Zero, err
	}
	return s.adjustLocked(tx.AccountID, tx.Amount)
}

func (s *MemoryStore) ListTransactions(_ context.Context, accountID string) ([]models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Transaction
	for _, t := range s.transactions {
		if t.AccountID == accountID {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) insertLocked(tx models.Transaction) error {
	if _, ok := s.accounts[tx.AccountID]; !ok {
		return fmt.Errorf("%w: %s", parsererror.ErrAccountNotFound, tx.AccountID)
	}
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}
	s.transactions = append(s.transactions, tx)
	return nil
}

func (s *MemoryStore) adjustLocked(accountID string, delta decimal.Decimal) (decimal.Decimal, error) {
	a, ok := s.accounts[accountID]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", parsererror.ErrAccountNotFound, accountID)
	}
	a.Balance = models.RoundBalance(a.Balance.Add(delta))
	s.accounts[accountID] = a
	return a.Balance, nil
}
