package classifier

import (
	"os"
	"path/filepath"
	"testing"

	"fjacquet/stmt-ingest/internal/logging"
	"fjacquet/stmt-ingest/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClassifier() *Classifier {
	return NewClassifier(DefaultKeywordTables(), logging.NewMockLogger())
}

func mapping(date, desc, amount, category int) models.ColumnMapping {
	return models.ColumnMapping{Date: date, Description: desc, Amount: amount, Category: category}
}

func TestLooksLikeHeaderRow(t *testing.T) {
	c := newTestClassifier()
	tests := []struct {
		name string
		row  []string
		want bool
	}{
		{"classic header", []string{"Date", "Description", "Amount"}, true},
		{"letters only", []string{"A", "B", "C"}, false},
		{"single keyword", []string{"Date", "Foo", "Bar"}, false},
		{"mixed case substrings", []string{"TRANSACTION DATE", "Merchant Name", "x"}, true},
		{"data row", []string{"2026-01-07", "Coffee Shop", "-4.50"}, false},
		{"keyword inside data", []string{"01/08/2026", "Paycheck memo", "2500.00"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.LooksLikeHeaderRow(tt.row))
		})
	}
}

func TestPlaceholderHeaders(t *testing.T) {
	assert.Equal(t, []string{"Column 1", "Column 2", "Column 3"}, PlaceholderHeaders(3))
	assert.Empty(t, PlaceholderHeaders(0))
}

func TestInferMapping_WithHeader(t *testing.T) {
	c := newTestClassifier()
	tests := []struct {
		name   string
		header []string
		want   models.ColumnMapping
	}{
		{
			name:   "simple",
			header: []string{"Date", "Description", "Amount"},
			want:   mapping(0, 1, 2, models.Unmapped),
		},
		{
			name:   "bank export with category",
			header: []string{"Posted Date", "Payee", "Category", "Debit", "Credit"},
			want:   mapping(0, 1, 3, 2),
		},
		{
			name:   "first match wins per role",
			header: []string{"Transaction Date", "Post Date", "Memo", "Description", "Amount", "Type"},
			want:   mapping(0, 2, 4, 5),
		},
		{
			name:   "timestamp and merchant",
			header: []string{"Status", "Timestamp", "Merchant", "Amount", "Currency"},
			want:   mapping(1, 2, 3, models.Unmapped),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.InferMapping(tt.header, nil, true))
		})
	}
}

func TestInferMapping_Headerless(t *testing.T) {
	c := newTestClassifier()
	tests := []struct {
		name   string
		sample []string
		want   models.ColumnMapping
	}{
		{
			name:   "three columns",
			sample: []string{"2026-01-07 11:14:23", "Coffee Shop", "-4.50"},
			want:   mapping(0, 1, 2, models.Unmapped),
		},
		{
			name:   "auth code before amount, wide file uses last column",
			sample: []string{"01/08/2026", "4721", "45.99", "AMAZON.COM MARKETPLACE"},
			want:   mapping(0, 3, 2, models.Unmapped),
		},
		{
			name:   "alphanumeric reference code is skipped",
			sample: []string{"A1B2C3", "01/08/2026", "$1,204.33", "x", "Payroll"},
			want:   mapping(1, 4, 2, models.Unmapped),
		},
		{
			name:   "integer amount accepted when no decimal column",
			sample: []string{"2026-01-07", "Rent", "-1200"},
			want:   mapping(0, 1, 2, models.Unmapped),
		},
		{
			name:   "zero padded reference is not an amount",
			sample: []string{"2026-01-07", "000481", "Refund", "-12"},
			want:   mapping(0, 2, 3, models.Unmapped),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.InferMapping(PlaceholderHeaders(len(tt.sample)), tt.sample, false)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInferMapping_HeaderlessWithoutSample(t *testing.T) {
	c := newTestClassifier()
	got := c.InferMapping(PlaceholderHeaders(3), nil, false)
	assert.Equal(t, models.NewColumnMapping(), got)
}

func TestWithStrategies(t *testing.T) {
	c := newTestClassifier().WithStrategies(HeaderKeywordStrategy{})
	got := c.InferMapping(PlaceholderHeaders(3), []string{"2026-01-07", "Coffee", "-4.50"}, false)
	assert.Equal(t, models.NewColumnMapping(), got)
}

func TestParseKeywordTables(t *testing.T) {
	data := []byte(`
header_keywords: [Fecha, Importe]
roles:
  date: [fecha]
  amount: [importe]
  description: [concepto]
`)
	tables, err := ParseKeywordTables(data)
	require.NoError(t, err)
	assert.Contains(t, tables.HeaderKeywords, "fecha")
	assert.Contains(t, tables.HeaderKeywords, "date")
	assert.Contains(t, tables.Roles[models.RoleDate], "posted")
	assert.Contains(t, tables.Roles[models.RoleDate], "fecha")

	c := NewClassifier(tables, nil)
	header := []string{"Fecha", "Concepto", "Importe"}
	assert.True(t, c.LooksLikeHeaderRow(header))
	assert.Equal(t, mapping(0, 1, 2, models.Unmapped), c.InferMapping(header, nil, true))
}

func TestParseKeywordTables_Replace(t *testing.T) {
	tables, err := ParseKeywordTables([]byte("replace: true\nheader_keywords: [datum]\nroles:\n  date: [datum]\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"datum"}, tables.HeaderKeywords)
	assert.Empty(t, tables.Roles[models.RoleAmount])
}

func TestParseKeywordTables_UnknownRole(t *testing.T) {
	_, err := ParseKeywordTables([]byte("roles:\n  balance: [saldo]\n"))
	assert.EqualError(t, err, `unknown role "balance" in keyword file`)
}

func TestLoadKeywordTables(t *testing.T) {
	tables, err := LoadKeywordTables("")
	require.NoError(t, err)
	assert.Equal(t, DefaultKeywordTables(), tables)

	path := filepath.Join(t.TempDir(), "keywords.yaml")
	require.NoError(t, os.WriteFile(path, []byte("roles:\n  category: [rubrique]\n"), 0600))
	tables, err = LoadKeywordTables(path)
	require.NoError(t, err)
	assert.Contains(t, tables.Roles[models.RoleCategory], "rubrique")

	_, err = LoadKeywordTables(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
