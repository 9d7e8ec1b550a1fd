// Package report renders ingestion and commit results for the CLI.
package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"fjacquet/stmt-ingest/internal/logging"
	"fjacquet/stmt-ingest/internal/models"

	"github.com/gocarina/gocsv"
)

// Supported formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatCSV  = "csv"
)

// Summary is everything known about one processed upload.
type Summary struct {
	Source            string               `json:"source"`
	Ingestor          string               `json:"ingestor"`
	Strategy          string               `json:"strategy,omitempty"`
	Rows              []models.Candidate   `json:"rows"`
	ValidCount        int                  `json:"valid_count"`
	InvalidCount      int                  `json:"invalid_count"`
	SkippedZeroAmount int                  `json:"skipped_zero_amount,omitempty"`
	Skipped           []models.SkippedLine `json:"skipped_lines,omitempty"`
	Commit            *models.CommitResult `json:"commit,omitempty"`
}

// FromIngest summarizes a tabular result.
func FromIngest(source string, r models.IngestResult) *Summary {
	return &Summary{
		Source:            source,
		Ingestor:          "tabular",
		Rows:              r.Rows,
		ValidCount:        r.ValidCount,
		InvalidCount:      r.InvalidCount,
		SkippedZeroAmount: r.SkippedZeroAmount,
	}
}

// FromStatement summarizes a statement-text result. Every recovered line is
// valid; rejected lines are listed under Skipped.
func FromStatement(source string, r models.StatementResult) *Summary {
	rows := r.Candidates()
	return &Summary{
		Source:     source,
		Ingestor:   "statement",
		Strategy:   r.Strategy,
		Rows:       rows,
		ValidCount: len(rows),
		Skipped:    r.Skipped,
	}
}

// ValidRows returns the rows the writer may commit.
func (s *Summary) ValidRows() []models.Candidate {
	out := make([]models.Candidate, 0, s.ValidCount)
	for _, row := range s.Rows {
		if row.Valid {
			out = append(out, row)
		}
	}
	return out
}

// csvRow is the flat export shape of a candidate.
type csvRow struct {
	Row         int    `csv:"Row"`
	Date        string `csv:"Date"`
	Description string `csv:"Description"`
	Amount      string `csv:"Amount"`
	Direction   string `csv:"Direction"`
	Category    string `csv:"Category"`
	AuthCode    string `csv:"AuthCode"`
	Valid       bool   `csv:"Valid"`
	Errors      string `csv:"Errors"`
}

// Generator renders summaries.
type Generator struct {
	logger    logging.Logger
	delimiter rune
}

// NewGenerator creates a Generator. delimiter applies to the csv format;
// zero means comma.
func NewGenerator(logger logging.Logger, delimiter rune) *Generator {
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	if delimiter == 0 {
		delimiter = ','
	}
	return &Generator{logger: logger, delimiter: delimiter}
}

// Generate renders s in format (text, json or csv).
func (g *Generator) Generate(s *Summary, format string) ([]byte, error) {
	var buf bytes.Buffer
	if err := g.Write(&buf, s, format); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write renders s in format to w.
func (g *Generator) Write(w io.Writer, s *Summary, format string) error {
	switch strings.ToLower(format) {
	case FormatText, "":
		return g.writeText(w, s)
	case FormatJSON:
		return g.writeJSON(w, s)
	case FormatCSV:
		return g.writeCSV(w, s)
	default:
		return fmt.Errorf("unsupported report format: %s", format)
	}
}

func (g *Generator) writeJSON(w io.Writer, s *Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		g.logger.WithError(err).Error("Failed to marshal JSON report")
		return fmt.Errorf("failed to marshal JSON report: %w", err)
	}
	return nil
}

func (g *Generator) writeCSV(w io.Writer, s *Summary) error {
	rows := make([]csvRow, 0, len(s.Rows))
	for _, c := range s.Rows {
		rows = append(rows, csvRow{
			Row:         c.Row,
			Date:        c.Date,
			Description: c.Description,
			Amount:      amountText(c),
			Direction:   direction(c),
			Category:    c.Category,
			AuthCode:    c.AuthCode,
			Valid:       c.Valid,
			Errors:      strings.Join(c.Errors, "; "),
		})
	}

	csvWriter := csv.NewWriter(w)
	csvWriter.Comma = g.delimiter
	if err := gocsv.MarshalCSV(&rows, gocsv.NewSafeCSVWriter(csvWriter)); err != nil {
		g.logger.WithError(err).Error("Failed to marshal CSV report")
		return fmt.Errorf("error writing CSV data: %w", err)
	}
	return nil
}

func (g *Generator) writeText(w io.Writer, s *Summary) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintf(tw, "Source:\t%s\n", s.Source)
	fmt.Fprintf(tw, "Ingestor:\t%s\n", ingestorLabel(s))
	fmt.Fprintf(tw, "Valid:\t%d\n", s.ValidCount)
	fmt.Fprintf(tw, "Invalid:\t%d\n", s.InvalidCount)
	if s.SkippedZeroAmount > 0 {
		fmt.Fprintf(tw, "Zero-amount rows skipped:\t%d\n", s.SkippedZeroAmount)
	}
	if s.Commit != nil {
		fmt.Fprintf(tw, "Imported:\t%d\n", s.Commit.Imported)
		fmt.Fprintf(tw, "Failed:\t%d\n", s.Commit.Failed)
		fmt.Fprintf(tw, "Balance:\t%s\n", s.Commit.Balance.StringFixed(2))
		if s.Commit.Stopped {
			fmt.Fprintln(tw, "Stopped:\tcancelled before all rows were issued")
		}
	}
	fmt.Fprintln(tw)

	fmt.Fprintln(tw, "ROW\tDATE\tDESCRIPTION\tAMOUNT\tCATEGORY\tSTATUS")
	for _, c := range s.Rows {
		status := "ok"
		if !c.Valid {
			status = strings.Join(c.Errors, ", ")
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", c.Row, c.Date, c.Description, amountText(c), c.Category, status)
	}

	if len(s.Skipped) > 0 {
		fmt.Fprintln(tw)
		fmt.Fprintln(tw, "LINE\tREASON\tTEXT")
		for _, l := range s.Skipped {
			fmt.Fprintf(tw, "%d\t%s\t%s\n", l.Line, l.Reason, l.Text)
		}
	}

	if s.Commit != nil && len(s.Commit.Errors) > 0 {
		fmt.Fprintln(tw)
		fmt.Fprintln(tw, "INDEX\tROW\tERROR")
		for _, e := range s.Commit.Errors {
			fmt.Fprintf(tw, "%d\t%d\t%s\n", e.Index, e.Row, e.Message)
		}
	}
	return tw.Flush()
}

func ingestorLabel(s *Summary) string {
	if s.Strategy == "" {
		return s.Ingestor
	}
	return fmt.Sprintf("%s (%s)", s.Ingestor, s.Strategy)
}

// amountText shows the parsed amount for valid rows and the raw text for
// rows whose amount could not be read.
func amountText(c models.Candidate) string {
	if !c.Valid && c.RawAmount != "" {
		return c.RawAmount
	}
	return c.Amount.StringFixed(2)
}

func direction(c models.Candidate) string {
	if !c.Valid {
		return ""
	}
	return c.Direction()
}
