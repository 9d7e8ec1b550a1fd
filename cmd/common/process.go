// Package common contains shared functionality for command handlers
package common

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"fjacquet/stmt-ingest/internal/fileutils"
	"fjacquet/stmt-ingest/internal/ledger"
	"fjacquet/stmt-ingest/internal/logging"
	"fjacquet/stmt-ingest/internal/models"
	"fjacquet/stmt-ingest/internal/report"
)

// Target names the account an import is committed to.
type Target struct {
	AccountID   string
	AccountType string
}

// Type parses the optional account type; empty accepts any account.
func (t Target) Type() (models.AccountType, error) {
	if t.AccountType == "" {
		return "", nil
	}
	return models.ParseAccountType(t.AccountType)
}

// CommitSummary sends the valid rows of s to the writer and records the
// commit result on s. Row failures are reported through the summary, not
// as an error. A cancelled commit keeps its partial result.
func CommitSummary(ctx context.Context, w *ledger.Writer, s *report.Summary, target Target) error {
	accountType, err := target.Type()
	if err != nil {
		return err
	}

	result, err := w.Commit(ctx, target.AccountID, accountType, s.ValidRows())
	if err != nil && !result.Stopped {
		return err
	}
	s.Commit = &result
	return err
}

// WriteReport renders s to outputFile, or to w when outputFile is empty.
func WriteReport(g *report.Generator, s *report.Summary, format, outputFile string, w io.Writer, log logging.Logger) error {
	if outputFile == "" {
		return g.Write(w, s, format)
	}

	var buf bytes.Buffer
	if err := g.Write(&buf, s, format); err != nil {
		return err
	}
	if err := fileutils.WriteFile(outputFile, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	log.Info("Report written", logging.F(logging.FieldFile, outputFile))
	return nil
}
