package models

import "github.com/shopspring/decimal"

// StatementLine is a transaction recovered from extracted statement text.
type StatementLine struct {
	Line        int             `json:"line"`
	Date        string          `json:"date"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	AuthCode    string          `json:"auth_code,omitempty"`
}

// SkippedLine explains why a line that started like a transaction was dropped.
type SkippedLine struct {
	Line   int    `json:"line"`
	Text   string `json:"text"`
	Reason string `json:"reason"`
}

// StatementResult is the output of the statement-text ingestor.
type StatementResult struct {
	Strategy string          `json:"strategy"`
	Lines    []StatementLine `json:"lines"`
	Skipped  []SkippedLine   `json:"skipped,omitempty"`
}

// Candidates converts the recovered lines into valid candidates so they can
// be committed through the same writer as tabular rows.
func (r StatementResult) Candidates() []Candidate {
	out := make([]Candidate, 0, len(r.Lines))
	for _, l := range r.Lines {
		out = append(out, Candidate{
			Row:         l.Line,
			RawDate:     l.Date,
			Date:        l.Date,
			Description: l.Description,
			RawAmount:   l.Amount.String(),
			Amount:      l.Amount,
			Category:    DefaultCategory,
			AuthCode:    l.AuthCode,
			Valid:       true,
		})
	}
	return out
}
