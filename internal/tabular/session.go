package tabular

import (
	"context"

	"fjacquet/stmt-ingest/internal/categorizer"
	"fjacquet/stmt-ingest/internal/classifier"
	"fjacquet/stmt-ingest/internal/logging"
	"fjacquet/stmt-ingest/internal/models"
	"fjacquet/stmt-ingest/internal/normalizer"
	"fjacquet/stmt-ingest/internal/parsererror"
)

// Session holds one opened upload. It is not safe for concurrent use.
type Session struct {
	ingestor  *Ingestor
	table     models.RawTable
	lines     []int
	columns   int
	hasHeader bool
	override  bool
	mapping   models.ColumnMapping
}

// HasHeader reports whether the first row is treated as a header.
func (s *Session) HasHeader() bool { return s.hasHeader }

// Mapping returns the mapping Process will use.
func (s *Session) Mapping() models.ColumnMapping { return s.mapping }

// Columns is the width of the widest row.
func (s *Session) Columns() int { return s.columns }

// Headers returns the header cells, or "Column N" placeholders when the upload
// has no header row.
func (s *Session) Headers() []string {
	if !s.hasHeader {
		return classifier.PlaceholderHeaders(s.columns)
	}
	headers := make([]string, s.columns)
	copy(headers, s.table[0])
	return headers
}

// DataRows returns the rows that Process will turn into candidates.
func (s *Session) DataRows() models.RawTable {
	if s.hasHeader {
		return s.table[1:]
	}
	return s.table
}

// SetHasHeader moves the header/data boundary. The mapping is re-inferred
// unless the caller has installed one with SetMapping.
func (s *Session) SetHasHeader(hasHeader bool) {
	if s.hasHeader == hasHeader {
		return
	}
	s.hasHeader = hasHeader
	if !s.override {
		s.infer()
	}
}

// SetMapping replaces the inferred mapping. It is validated by Process.
func (s *Session) SetMapping(m models.ColumnMapping) {
	s.mapping = m
	s.override = true
}

func (s *Session) infer() {
	var sample []string
	for _, row := range s.DataRows() {
		if sample == nil {
			sample = row
		}
		if !s.ingestor.classifier.LooksLikeHeaderRow(row) {
			sample = row
			break
		}
	}
	var header []string
	if s.hasHeader {
		header = s.Headers()
	}
	s.mapping = s.ingestor.classifier.InferMapping(header, sample, s.hasHeader)
}

// Process validates preconditions and converts every data row into a
// candidate. A precondition failure returns a ValidationError and no rows.
// Row problems never fail the call; they are recorded on the candidate.
func (s *Session) Process(ctx context.Context, accountID string) (models.IngestResult, error) {
	if err := s.checkPreconditions(accountID); err != nil {
		return models.IngestResult{}, err
	}

	i := s.ingestor
	logger := i.logger.WithFields(
		logging.F(logging.FieldIngestor, "tabular"),
		logging.F(logging.FieldAccount, accountID))

	result := models.IngestResult{
		Headers:   s.Headers(),
		HasHeader: s.hasHeader,
		Mapping:   s.mapping,
	}

	offset := 0
	if s.hasHeader {
		offset = 1
	}
	for n, row := range s.DataRows() {
		c := s.candidate(ctx, row, s.lines[n+offset])
		if c.Valid && c.Amount.IsZero() && i.opts.SkipZeroAmount {
			result.SkippedZeroAmount++
			logger.Debug("Skipping zero-amount row", logging.F(logging.FieldRow, c.Row))
			continue
		}
		if c.Valid {
			result.ValidCount++
		} else {
			result.InvalidCount++
		}
		result.Rows = append(result.Rows, c)
	}

	logger.Info("Processed delimited upload",
		logging.F(logging.FieldValid, result.ValidCount),
		logging.F(logging.FieldInvalid, result.InvalidCount),
		logging.F("skipped_zero_amount", result.SkippedZeroAmount))
	return result, nil
}

func (s *Session) checkPreconditions(accountID string) error {
	if err := s.mapping.Validate(s.columns); err != nil {
		sentinel := parsererror.ErrInvalidMapping
		if len(s.mapping.Missing()) > 0 {
			sentinel = parsererror.ErrMissingMapping
		}
		return &parsererror.ValidationError{Operation: "process", Reason: err.Error(), Err: sentinel}
	}
	if accountID == "" {
		return &parsererror.ValidationError{Operation: "process", Err: parsererror.ErrNoTargetAccount}
	}
	return nil
}

func (s *Session) candidate(ctx context.Context, row models.RawRow, line int) models.Candidate {
	p := models.Project(row, s.mapping)
	c := models.Candidate{
		Row:         line,
		RawDate:     p.DateText,
		Description: p.DescriptionText,
		RawAmount:   p.AmountText,
		Valid:       true,
	}

	if date, err := normalizer.NormalizeDate(p.DateText); err != nil {
		c.AddError(models.ReasonInvalidDate)
	} else {
		c.Date = date
	}
	if c.Description == "" {
		c.AddError(models.ReasonMissingDescription)
	}
	if amount, err := normalizer.NormalizeAmount(p.AmountText); err != nil {
		c.AddError(models.ReasonInvalidAmount)
	} else {
		c.Amount = amount
	}

	c.Category = s.ingestor.categorizer.Label(ctx, categorizer.Input{
		Description: c.Description,
		Label:       p.CategoryText,
	})
	return c
}
