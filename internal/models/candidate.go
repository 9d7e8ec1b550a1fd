package models

import (
	"github.com/shopspring/decimal"
)

// Candidate is a parsed but not yet committed transaction.
type Candidate struct {
	// Row is the 1-based line of the row in the uploaded file.
	Row         int             `json:"row"`
	RawDate     string          `json:"raw_date,omitempty"`
	Date        string          `json:"date,omitempty"`
	Description string          `json:"description"`
	RawAmount   string          `json:"raw_amount,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	AuthCode    string          `json:"auth_code,omitempty"`
	Valid       bool            `json:"valid"`
	Errors      []string        `json:"errors,omitempty"`
}

// AddError records a failure reason and marks the candidate invalid.
func (c *Candidate) AddError(reason string) {
	c.Errors = append(c.Errors, reason)
	c.Valid = false
}

// Direction derives expense or income from the sign of the amount.
func (c Candidate) Direction() string {
	return Direction(c.Amount)
}

// Direction maps a signed amount to expense (< 0) or income.
func Direction(amount decimal.Decimal) string {
	if amount.IsNegative() {
		return DirectionExpense
	}
	return DirectionIncome
}

// IngestResult is the output of the tabular ingestor.
type IngestResult struct {
	Rows              []Candidate   `json:"rows"`
	ValidCount        int           `json:"valid_count"`
	InvalidCount      int           `json:"invalid_count"`
	SkippedZeroAmount int           `json:"skipped_zero_amount"`
	Headers           []string      `json:"headers"`
	HasHeader         bool          `json:"has_header"`
	Mapping           ColumnMapping `json:"mapping"`
}

// ValidRows returns only the rows that may be sent to the writer.
func (r IngestResult) ValidRows() []Candidate {
	out := make([]Candidate, 0, r.ValidCount)
	for _, row := range r.Rows {
		if row.Valid {
			out = append(out, row)
		}
	}
	return out
}

// InvalidRows returns the rows carrying failure reasons.
func (r IngestResult) InvalidRows() []Candidate {
	out := make([]Candidate, 0, r.InvalidCount)
	for _, row := range r.Rows {
		if !row.Valid {
			out = append(out, row)
		}
	}
	return out
}
