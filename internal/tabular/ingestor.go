// Package tabular turns delimited text uploads into candidate transactions.
// An upload is opened into a Session so the caller can inspect the inferred
// header and mapping, correct them, and then process the rows.
package tabular

import (
	"context"

	"fjacquet/stmt-ingest/internal/categorizer"
	"fjacquet/stmt-ingest/internal/classifier"
	"fjacquet/stmt-ingest/internal/logging"
	"fjacquet/stmt-ingest/internal/models"
	"fjacquet/stmt-ingest/internal/parsererror"
)

// Options tunes an Ingestor.
type Options struct {
	// Delimiter separates cells. Zero means comma.
	Delimiter rune
	// SkipZeroAmount drops valid rows whose amount is exactly zero.
	SkipZeroAmount bool
}

// DefaultOptions returns comma-separated parsing with zero-amount filtering on.
func DefaultOptions() Options {
	return Options{Delimiter: ',', SkipZeroAmount: true}
}

// Ingestor opens delimited uploads. It is safe for concurrent use; each upload
// gets its own Session.
type Ingestor struct {
	classifier  *classifier.Classifier
	categorizer *categorizer.Categorizer
	opts        Options
	logger      logging.Logger
}

// NewIngestor creates an Ingestor. Nil collaborators are replaced by defaults.
func NewIngestor(cls *classifier.Classifier, cat *categorizer.Categorizer, opts Options, logger logging.Logger) *Ingestor {
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	if cls == nil {
		cls = classifier.NewClassifier(classifier.DefaultKeywordTables(), logger)
	}
	if cat == nil {
		cat = categorizer.NewCategorizer(models.DefaultCategory, logger)
	}
	if opts.Delimiter == 0 {
		opts.Delimiter = ','
	}
	return &Ingestor{classifier: cls, categorizer: cat, opts: opts, logger: logger}
}

// Open decodes and tokenizes data, detects the header row and infers a column
// mapping. Undecodable bytes and broken quoting return an InvalidFormatError;
// an upload without a single non-blank row is refused with ErrEmptyUpload.
func (i *Ingestor) Open(data []byte) (*Session, error) {
	text, err := decodeUpload(data)
	if err != nil {
		i.logger.WithError(err).Warn("Rejected undecodable upload")
		return nil, err
	}

	table, lines, err := readTable(text, i.opts.Delimiter)
	if err != nil {
		i.logger.WithError(err).Warn("Rejected malformed delimited upload")
		return nil, err
	}
	if len(table) == 0 {
		return nil, &parsererror.ValidationError{Operation: "open", Err: parsererror.ErrEmptyUpload}
	}

	s := &Session{
		ingestor: i,
		table:    table,
		lines:    lines,
		columns:  widest(table),
	}
	s.hasHeader = i.classifier.LooksLikeHeaderRow(table[0])
	s.infer()

	i.logger.Debug("Opened delimited upload",
		logging.F(logging.FieldCount, len(table)),
		logging.F("has_header", s.hasHeader),
		logging.F("mapping", s.mapping))
	return s, nil
}

// Ingest is the one-shot form of Open followed by Process. A non-nil override
// replaces the inferred mapping.
func (i *Ingestor) Ingest(ctx context.Context, data []byte, accountID string, override *models.ColumnMapping) (models.IngestResult, error) {
	s, err := i.Open(data)
	if err != nil {
		return models.IngestResult{}, err
	}
	if override != nil {
		s.SetMapping(*override)
	}
	return s.Process(ctx, accountID)
}

func widest(table models.RawTable) int {
	n := 0
	for _, row := range table {
		if len(row) > n {
			n = len(row)
		}
	}
	return n
}
