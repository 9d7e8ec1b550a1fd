package categorizer

import (
	"context"
	"strings"
)

// Input is what a strategy sees of a candidate row.
type Input struct {
	Description string
	// Label is the raw text of the mapped category column, if any.
	Label string
}

// Strategy is one way of finding a category label. Strategies are evaluated
// in order and the first one that reports found wins.
type Strategy interface {
	Categorize(ctx context.Context, in Input) (label string, found bool, err error)
	Name() string
}

// ColumnLabelStrategy uses the category column of the upload.
type ColumnLabelStrategy struct{}

func (ColumnLabelStrategy) Name() string { return "ColumnLabel" }

func (ColumnLabelStrategy) Categorize(_ context.Context, in Input) (string, bool, error) {
	label := strings.TrimSpace(in.Label)
	return label, label != "", nil
}
