package classifier

import (
	"regexp"
	"strings"
	"unicode"

	"fjacquet/stmt-ingest/internal/models"
	"fjacquet/stmt-ingest/internal/normalizer"
)

// Inference is the state shared by the strategies of one InferMapping call.
type Inference struct {
	Header    []string
	Sample    []string
	HasHeader bool
	Columns   int
	Tables    KeywordTables
	Mapping   models.ColumnMapping
}

// Assign maps role to column idx unless the role or the column is already
// taken. It reports whether the assignment happened.
func (in *Inference) Assign(role models.ColumnRole, idx int) bool {
	if in.Mapping.Has(role) || in.Mapping.RoleOf(idx) != models.RoleIgnored {
		return false
	}
	in.Mapping = in.Mapping.With(role, idx)
	return true
}

// SampleCell returns the trimmed sample cell at idx.
func (in *Inference) SampleCell(idx int) string {
	return models.RawRow(in.Sample).Cell(idx)
}

// MappingStrategy is one rule of the inference chain. Strategies only fill
// roles that are still unassigned, so earlier strategies win.
type MappingStrategy interface {
	Name() string
	Applies(in *Inference) bool
	Apply(in *Inference)
}

// DefaultStrategies is the built-in chain, in evaluation order.
func DefaultStrategies() []MappingStrategy {
	return []MappingStrategy{
		HeaderKeywordStrategy{},
		DateContentStrategy{},
		AmountContentStrategy{RequireDecimals: true},
		AmountContentStrategy{},
		LastColumnDescriptionStrategy{MinColumns: 4},
		TextColumnDescriptionStrategy{},
	}
}

// HeaderKeywordStrategy maps header cells by keyword family. Each column gets
// at most one role, checked in date, description, amount, category order.
type HeaderKeywordStrategy struct{}

func (HeaderKeywordStrategy) Name() string { return "header-keywords" }

func (HeaderKeywordStrategy) Applies(in *Inference) bool { return in.HasHeader }

func (HeaderKeywordStrategy) Apply(in *Inference) {
	for idx, cell := range in.Header {
		for _, role := range models.MappedRoles {
			if in.Mapping.Has(role) {
				continue
			}
			if containsAny(cell, in.Tables.Roles[role]) {
				in.Assign(role, idx)
				break
			}
		}
	}
}

// headerless strategies only run without a header row.
type headerless struct{}

func (headerless) Applies(in *Inference) bool { return !in.HasHeader && len(in.Sample) > 0 }

// DateContentStrategy picks the first column whose sample parses as a date.
type DateContentStrategy struct{ headerless }

func (DateContentStrategy) Name() string { return "date-content" }

func (DateContentStrategy) Apply(in *Inference) {
	for idx := 0; idx < in.Columns; idx++ {
		cell := in.SampleCell(idx)
		if cell == "" || looksLikeAmount(cell) {
			continue
		}
		if normalizer.IsDate(cell) && in.Assign(models.RoleDate, idx) {
			return
		}
	}
}

// AmountContentStrategy picks the first purely numeric column. With
// RequireDecimals only values carrying a fractional part qualify, so integer
// reference numbers lose to real money columns.
type AmountContentStrategy struct {
	headerless
	RequireDecimals bool
}

func (s AmountContentStrategy) Name() string {
	if s.RequireDecimals {
		return "decimal-amount-content"
	}
	return "amount-content"
}

func (s AmountContentStrategy) Apply(in *Inference) {
	for idx := 0; idx < in.Columns; idx++ {
		cell := in.SampleCell(idx)
		if !looksLikeAmount(cell) || looksLikeReferenceCode(cell) {
			continue
		}
		if s.RequireDecimals && !strings.Contains(cell, ".") {
			continue
		}
		if in.Assign(models.RoleAmount, idx) {
			return
		}
	}
}

// LastColumnDescriptionStrategy defaults the description to the last column
// of wide headerless files.
type LastColumnDescriptionStrategy struct {
	headerless
	MinColumns int
}

func (LastColumnDescriptionStrategy) Name() string { return "last-column-description" }

func (s LastColumnDescriptionStrategy) Apply(in *Inference) {
	if in.Columns >= s.MinColumns {
		in.Assign(models.RoleDescription, in.Columns-1)
	}
}

// TextColumnDescriptionStrategy falls back to the first unassigned column
// containing letters.
type TextColumnDescriptionStrategy struct{ headerless }

func (TextColumnDescriptionStrategy) Name() string { return "text-column-description" }

func (TextColumnDescriptionStrategy) Apply(in *Inference) {
	for idx := 0; idx < in.Columns; idx++ {
		if hasLetter(in.SampleCell(idx)) && in.Assign(models.RoleDescription, idx) {
			return
		}
	}
}

var amountShape = regexp.MustCompile(`^[+-]?\(?[+-]?[$£€¥]?[+-]?(\d[\d,]*(\.\d+)?|\.\d+)\)?$`)

// looksLikeAmount accepts digits with optional sign, parentheses, currency
// symbol and thousands separators, and no letters.
func looksLikeAmount(cell string) bool {
	cell = strings.TrimSpace(cell)
	if cell == "" || hasLetter(cell) {
		return false
	}
	return amountShape.MatchString(strings.ReplaceAll(cell, " ", ""))
}

// looksLikeReferenceCode flags zero-padded integers such as "000123", which
// are authorization or reference numbers rather than money.
func looksLikeReferenceCode(cell string) bool {
	if len(cell) > 1 && cell[0] == '0' && !strings.ContainsAny(cell, ".,") {
		return true
	}
	return false
}

func hasLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}
