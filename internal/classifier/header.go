package classifier

import (
	"fmt"

	"fjacquet/stmt-ingest/internal/logging"
	"fjacquet/stmt-ingest/internal/models"
)

// HeaderThreshold is the number of keyword cells that make a row a header.
const HeaderThreshold = 2

// Classifier applies the keyword tables and the mapping strategies.
type Classifier struct {
	tables     KeywordTables
	strategies []MappingStrategy
	logger     logging.Logger
}

// NewClassifier creates a Classifier using the default strategy chain.
func NewClassifier(tables KeywordTables, logger logging.Logger) *Classifier {
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	return &Classifier{
		tables:     tables,
		strategies: DefaultStrategies(),
		logger:     logger,
	}
}

// WithStrategies returns a copy of c that evaluates strategies instead of the
// default chain.
func (c *Classifier) WithStrategies(strategies ...MappingStrategy) *Classifier {
	clone := *c
	clone.strategies = strategies
	return &clone
}

// Tables returns the keyword tables in use.
func (c *Classifier) Tables() KeywordTables {
	return c.tables
}

// LooksLikeHeaderRow reports whether enough cells of row contain a header
// keyword.
func (c *Classifier) LooksLikeHeaderRow(row []string) bool {
	matches := 0
	for _, cell := range row {
		if containsAny(cell, c.tables.HeaderKeywords) {
			matches++
		}
	}
	return matches >= HeaderThreshold
}

// PlaceholderHeaders names n columns "Column 1" to "Column n".
func PlaceholderHeaders(n int) []string {
	headers := make([]string, n)
	for i := range headers {
		headers[i] = fmt.Sprintf("Column %d", i+1)
	}
	return headers
}

// InferMapping runs the strategy chain. header holds the header cells when
// hasHeader is true; sample is the first data row and may be nil. The result
// is advisory and may be overridden by the caller.
func (c *Classifier) InferMapping(header, sample []string, hasHeader bool) models.ColumnMapping {
	columns := len(header)
	if len(sample) > columns {
		columns = len(sample)
	}
	in := &Inference{
		Header:    header,
		Sample:    sample,
		HasHeader: hasHeader,
		Columns:   columns,
		Tables:    c.tables,
		Mapping:   models.NewColumnMapping(),
	}

	for _, s := range c.strategies {
		if !s.Applies(in) {
			continue
		}
		before := in.Mapping
		s.Apply(in)
		if in.Mapping != before {
			c.logger.Debug("Mapping strategy assigned roles",
				logging.F(logging.FieldStrategy, s.Name()),
				logging.F("mapping", in.Mapping))
		}
	}
	return in.Mapping
}
