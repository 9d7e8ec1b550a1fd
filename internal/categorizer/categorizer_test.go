package categorizer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"fjacquet/stmt-ingest/internal/logging"
	"fjacquet/stmt-ingest/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingStrategy struct{}

func (failingStrategy) Name() string { return "Failing" }
func (failingStrategy) Categorize(context.Context, Input) (string, bool, error) {
	return "", false, errors.New("backend down")
}

func TestCategorizer_DefaultsToColumnAndFallback(t *testing.T) {
	c := NewCategorizer("", nil)
	ctx := context.Background()

	assert.Equal(t, "Dining", c.Label(ctx, Input{Description: "Coffee", Label: " Dining "}))
	assert.Equal(t, models.DefaultCategory, c.Label(ctx, Input{Description: "Coffee"}))
	assert.Equal(t, models.DefaultCategory, c.Fallback())
}

func TestCategorizer_StrategyOrder(t *testing.T) {
	logger := logging.NewMockLogger()
	rules := []Rule{
		{Name: "Groceries", Keywords: []string{"market"}},
		{Name: "Shopping", Keywords: []string{"amazon"}},
	}
	c := NewCategorizer("Uncategorized", logger,
		failingStrategy{},
		ColumnLabelStrategy{},
		NewKeywordStrategy(rules, logger),
	)
	ctx := context.Background()

	assert.Equal(t, "Travel", c.Label(ctx, Input{Description: "AMAZON.COM", Label: "Travel"}))
	assert.Equal(t, "Groceries", c.Label(ctx, Input{Description: "AMAZON.COM MARKETPLACE"}))
	assert.Equal(t, "Shopping", c.Label(ctx, Input{Description: "amazon prime"}))
	assert.Equal(t, "Uncategorized", c.Label(ctx, Input{Description: "Paycheck"}))
	assert.NotEmpty(t, logger.GetEntriesByLevel("WARN"))
}

func TestCategorizer_Direction(t *testing.T) {
	c := NewCategorizer("", nil)
	assert.Equal(t, models.DirectionExpense, c.Direction(models.Candidate{Amount: decimal.RequireFromString("-4.50")}))
	assert.Equal(t, models.DirectionIncome, c.Direction(models.Candidate{Amount: decimal.RequireFromString("2500")}))
}

func TestLoadRules(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "categories.yaml")
	content := `- name: Groceries
  keywords: ["supermarket", "grocery"]
- name: Rent
  keywords: ["landlord"]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	rules, err := LoadRules(path)
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, "Rent", rules[1].Name)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("- keywords: [x]\n"), 0600))
	_, err = LoadRules(bad)
	assert.EqualError(t, err, "categorization rule 1 has no name")

	_, err = LoadRules(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
