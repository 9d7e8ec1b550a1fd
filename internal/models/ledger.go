package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// AccountType discriminates which accounts are offered as commit targets.
type AccountType string

const (
	AccountTypePersonal AccountType = "personal"
	AccountTypeBusiness AccountType = "business"
)

// ParseAccountType validates a user-supplied account type.
func ParseAccountType(s string) (AccountType, error) {
	switch AccountType(s) {
	case AccountTypePersonal, AccountTypeBusiness:
		return AccountType(s), nil
	default:
		return "", fmt.Errorf("unknown account type %q (want personal or business)", s)
	}
}

// AccountCategory is the kind of financial account.
type AccountCategory string

const (
	AccountCategoryChecking   AccountCategory = "checking"
	AccountCategorySavings    AccountCategory = "savings"
	AccountCategoryCreditCard AccountCategory = "credit_card"
	AccountCategoryLoan       AccountCategory = "loan"
	AccountCategoryInvestment AccountCategory = "investment"
)

// ParseAccountCategory validates a user-supplied account category.
func ParseAccountCategory(s string) (AccountCategory, error) {
	switch AccountCategory(s) {
	case AccountCategoryChecking, AccountCategorySavings, AccountCategoryCreditCard, AccountCategoryLoan, AccountCategoryInvestment:
		return AccountCategory(s), nil
	default:
		return "", fmt.Errorf("unknown account category %q", s)
	}
}

// Account is owned by the persistence layer; only its balance is changed by
// the reconciliation writer.
type Account struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	OwnerID  string          `json:"owner_id"`
	Type     AccountType     `json:"type"`
	Category AccountCategory `json:"category"`
	Balance  decimal.Decimal `json:"balance"`
}

// Transaction is created from a valid candidate and never mutated afterwards.
type Transaction struct {
	ID          string          `json:"id"`
	AccountID   string          `json:"account_id"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	Subcategory string          `json:"subcategory"`
	Date        string          `json:"date"`
	CreatedAt   time.Time       `json:"created_at"`
}

// AmountString renders the amount as the fixed 2-decimal string sent to the
// persistence layer.
func (t Transaction) AmountString() string {
	return t.Amount.StringFixed(2)
}

// RowError records why one row of a batch could not be committed.
type RowError struct {
	Index   int    `json:"index"`
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// CommitResult summarizes a reconciliation batch.
type CommitResult struct {
	AccountID string          `json:"account_id"`
	Imported  int             `json:"imported"`
	Failed    int             `json:"failed"`
	Errors    []RowError      `json:"errors,omitempty"`
	Balance   decimal.Decimal `json:"balance"`
	// Stopped is set when the batch was cancelled before every row was issued.
	Stopped bool `json:"stopped,omitempty"`
}

// RoundBalance applies the fixed 2-decimal-place rounding used for balances.
func RoundBalance(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
