// Package categorizer assigns the category label of a candidate row and
// derives its expense/income direction.
package categorizer

import (
	"context"

	"fjacquet/stmt-ingest/internal/logging"
	"fjacquet/stmt-ingest/internal/models"
)

// Categorizer runs its strategies in order and falls back to a default label.
type Categorizer struct {
	strategies []Strategy
	fallback   string
	logger     logging.Logger
}

// NewCategorizer creates a Categorizer. An empty fallback means
// models.DefaultCategory. With no strategies only the category column is
// consulted.
func NewCategorizer(fallback string, logger logging.Logger, strategies ...Strategy) *Categorizer {
	if fallback == "" {
		fallback = models.DefaultCategory
	}
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	if len(strategies) == 0 {
		strategies = []Strategy{ColumnLabelStrategy{}}
	}
	return &Categorizer{strategies: strategies, fallback: fallback, logger: logger}
}

// Fallback returns the label used when no strategy matches.
func (c *Categorizer) Fallback() string {
	return c.fallback
}

// Label returns the category label for in. Strategy errors are logged and
// the next strategy is tried.
func (c *Categorizer) Label(ctx context.Context, in Input) string {
	for _, s := range c.strategies {
		label, found, err := s.Categorize(ctx, in)
		if err != nil {
			c.logger.WithError(err).Warn("Categorization strategy failed",
				logging.F(logging.FieldStrategy, s.Name()))
			continue
		}
		if found {
			return label
		}
	}
	return c.fallback
}

// Direction is the expense/income hint passed to the writer.
func (c *Categorizer) Direction(row models.Candidate) string {
	return row.Direction()
}
