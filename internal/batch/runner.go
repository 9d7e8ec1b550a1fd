// Package batch ingests many uploads at once. Files are parsed concurrently;
// commits against the target account go through the shared ledger writer,
// which serializes them.
package batch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"fjacquet/stmt-ingest/internal/fileutils"
	"fjacquet/stmt-ingest/internal/ledger"
	"fjacquet/stmt-ingest/internal/logging"
	"fjacquet/stmt-ingest/internal/models"
	"fjacquet/stmt-ingest/internal/parsererror"
	"fjacquet/stmt-ingest/internal/pdfparser"
	"fjacquet/stmt-ingest/internal/report"
	"fjacquet/stmt-ingest/internal/tabular"

	"golang.org/x/sync/errgroup"
)

// SupportedExtensions are the upload kinds the runner understands.
var SupportedExtensions = []string{".csv", ".txt", ".pdf"}

// Options control one Run.
type Options struct {
	AccountID   string
	AccountType models.AccountType
	// DryRun parses and reports without committing.
	DryRun bool
}

// FileResult is the outcome for one upload. Err is set when the file could
// not be read, parsed or committed as a whole.
type FileResult struct {
	File       string
	Summary    *report.Summary
	DateRange  DateRange
	Duplicates int
	Err        error
}

// Result aggregates a Run.
type Result struct {
	Files      []FileResult
	DateRange  DateRange
	Duplicates int
}

// Failed counts files that ended with an error.
func (r Result) Failed() int {
	n := 0
	for _, f := range r.Files {
		if f.Err != nil {
			n++
		}
	}
	return n
}

// Runner processes uploads with a bounded number of workers.
type Runner struct {
	tabular    *tabular.Ingestor
	statements *pdfparser.Parser
	writer     *ledger.Writer
	workers    int
	maxBytes   int64
	logger     logging.Logger
}

// NewRunner creates a Runner. writer may be nil when only dry runs are made.
func NewRunner(tab *tabular.Ingestor, statements *pdfparser.Parser, writer *ledger.Writer, workers int, maxBytes int64, logger logging.Logger) *Runner {
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	return &Runner{
		tabular:    tab,
		statements: statements,
		writer:     writer,
		workers:    workers,
		maxBytes:   maxBytes,
		logger:     logger,
	}
}

// Discover lists the supported uploads under dir.
func (r *Runner) Discover(dir string) ([]string, error) {
	return fileutils.ListFilesWithExtension(dir, SupportedExtensions...)
}

// Run processes files. A failing file does not stop the others; its error is
// kept in its FileResult. The returned error is only set when ctx ends the
// run early or the options are unusable.
func (r *Runner) Run(ctx context.Context, files []string, opts Options) (Result, error) {
	if opts.AccountID == "" {
		return Result{}, &parsererror.ValidationError{Operation: "batch", Err: parsererror.ErrNoTargetAccount}
	}
	if !opts.DryRun && r.writer == nil {
		return Result{}, errors.New("batch commit requested without a ledger writer")
	}

	results := make([]FileResult, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)

	for i, file := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i] = FileResult{File: file, Err: err}
				return nil
			}
			results[i] = r.processFile(gctx, file, opts)
			return nil
		})
	}
	_ = g.Wait()

	result := Result{Files: results}
	var all []models.Candidate
	for _, f := range results {
		result.DateRange = result.DateRange.Merge(f.DateRange)
		if f.Summary != nil {
			all = append(all, f.Summary.ValidRows()...)
		}
	}
	result.Duplicates = r.detectDuplicates(all, opts.AccountID)

	r.logger.Info("Batch finished",
		logging.F(logging.FieldCount, len(files)),
		logging.F("failed", result.Failed()),
		logging.F("date_range", result.DateRange.String()))
	return result, ctx.Err()
}

func (r *Runner) processFile(ctx context.Context, file string, opts Options) FileResult {
	logger := r.logger.WithFields(logging.F(logging.FieldFile, filepath.Base(file)))
	res := FileResult{File: file}

	summary, err := r.parse(ctx, file, opts.AccountID)
	if err != nil {
		logger.WithError(err).Warn("Failed to ingest file")
		res.Err = err
		return res
	}
	res.Summary = summary
	res.DateRange = RangeOf(summary.Rows)
	res.Duplicates = r.detectDuplicates(summary.ValidRows(), opts.AccountID)

	if opts.DryRun {
		return res
	}
	commit, err := r.writer.Commit(ctx, opts.AccountID, opts.AccountType, summary.ValidRows())
	summary.Commit = &commit
	if err != nil {
		logger.WithError(err).Warn("Failed to commit file")
		res.Err = err
	}
	return res
}

func (r *Runner) parse(ctx context.Context, file, accountID string) (*report.Summary, error) {
	data, err := fileutils.ReadUpload(file, r.maxBytes)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(filepath.Ext(file)) {
	case ".csv":
		res, err := r.tabular.Ingest(ctx, data, accountID, nil)
		if err != nil {
			return nil, withFile(err, file)
		}
		return report.FromIngest(file, res), nil
	case ".txt":
		return report.FromStatement(file, r.statements.ParseText(string(data))), nil
	case ".pdf":
		res, err := r.statements.Parse(bytes.NewReader(data))
		if err != nil {
			return nil, withFile(err, file)
		}
		return report.FromStatement(file, res), nil
	default:
		return nil, fmt.Errorf("unsupported file type: %s", file)
	}
}

// detectDuplicates warns about rows sharing date, amount and description.
// Duplicates are reported, never dropped.
func (r *Runner) detectDuplicates(rows []models.Candidate, accountID string) int {
	seen := make(map[string]bool, len(rows))
	count := 0
	for _, row := range rows {
		key := row.Date + "|" + row.Amount.StringFixed(2) + "|" + strings.ToLower(strings.TrimSpace(row.Description))
		if seen[key] {
			count++
			r.logger.Debug("Potential duplicate transaction",
				logging.F(logging.FieldAccount, accountID),
				logging.F("date", row.Date),
				logging.F("amount", row.Amount.StringFixed(2)),
				logging.F("description", row.Description))
			continue
		}
		seen[key] = true
	}
	return count
}

func withFile(err error, file string) error {
	var f *parsererror.InvalidFormatError
	if errors.As(err, &f) && f.FilePath == "" {
		f.FilePath = file
	}
	return err
}
