package accounts

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"fjacquet/stmt-ingest/internal/config"
	"fjacquet/stmt-ingest/internal/container"
	"fjacquet/stmt-ingest/internal/logging"
	"fjacquet/stmt-ingest/internal/models"
	"fjacquet/stmt-ingest/internal/parsererror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newContainer(t *testing.T) *container.Container {
	t.Helper()
	cfg := config.Defaults()
	cfg.Database.Path = filepath.Join(t.TempDir(), "ledger.db")
	c, err := container.NewContainer(cfg, container.WithLogger(logging.NewMockLogger()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestAccountsCommand_Subcommands(t *testing.T) {
	names := make([]string, 0)
	for _, sub := range Cmd.Commands() {
		names = append(names, sub.Name())
	}
	assert.ElementsMatch(t, []string{"list", "add", "record", "transactions"}, names)
}

func TestAddAndList(t *testing.T) {
	c := newContainer(t)
	ctx := context.Background()

	main, err := Add(ctx, c, AddOptions{Name: " Main ", Type: "personal", Category: "checking", Balance: "143.20"})
	require.NoError(t, err)
	assert.Equal(t, "Main", main.Name)
	assert.NotEmpty(t, main.ID)

	_, err = Add(ctx, c, AddOptions{ID: "biz", Name: "Agency", Type: "business", Category: "credit_card", Balance: "0"})
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, List(ctx, c, "", "text", &out))
	assert.Contains(t, out.String(), "Agency")
	assert.Contains(t, out.String(), "143.20")

	out.Reset()
	require.NoError(t, List(ctx, c, "business", "json", &out))
	var accounts []models.Account
	require.NoError(t, json.Unmarshal(out.Bytes(), &accounts))
	require.Len(t, accounts, 1)
	assert.Equal(t, "biz", accounts[0].ID)

	assert.Error(t, List(ctx, c, "shared", "text", &out))
}

func TestAdd_Validation(t *testing.T) {
	c := newContainer(t)
	tests := []struct {
		name    string
		opts    AddOptions
		wantErr string
	}{
		{"no name", AddOptions{Type: "personal", Category: "checking", Balance: "0"}, "name"},
		{"bad type", AddOptions{Name: "x", Type: "shared", Category: "checking", Balance: "0"}, "account type"},
		{"bad category", AddOptions{Name: "x", Type: "personal", Category: "crypto", Balance: "0"}, "account category"},
		{"bad balance", AddOptions{Name: "x", Type: "personal", Category: "checking", Balance: "lots"}, "opening balance"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Add(context.Background(), c, tt.opts)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestRecordAndTransactions(t *testing.T) {
	c := newContainer(t)
	ctx := context.Background()
	a, err := Add(ctx, c, AddOptions{Name: "Main", Type: "personal", Category: "checking", Balance: "143.20"})
	require.NoError(t, err)

	balance, err := Record(ctx, c, RecordOptions{AccountID: a.ID, Date: "1/7/2026", Description: "Coffee Shop", Amount: "-12.50"})
	require.NoError(t, err)
	assert.Equal(t, "130.70", balance)

	_, err = Record(ctx, c, RecordOptions{AccountID: a.ID, Date: "soon", Description: "", Amount: "abc"})
	var verr *parsererror.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Reason, models.ReasonInvalidDate)
	assert.Contains(t, verr.Reason, models.ReasonMissingDescription)
	assert.Contains(t, verr.Reason, models.ReasonInvalidAmount)

	_, err = Record(ctx, c, RecordOptions{AccountID: "missing", Date: "2026-01-07", Description: "x", Amount: "1"})
	assert.ErrorIs(t, err, parsererror.ErrAccountNotFound)

	var out bytes.Buffer
	require.NoError(t, Transactions(ctx, c, a.ID, "json", &out))
	var txs []models.Transaction
	require.NoError(t, json.Unmarshal(out.Bytes(), &txs))
	require.Len(t, txs, 1)
	assert.Equal(t, "2026-01-07", txs[0].Date)
	assert.Equal(t, models.DirectionExpense, txs[0].Category)
	assert.Equal(t, "Other", txs[0].Subcategory)

	out.Reset()
	require.NoError(t, Transactions(ctx, c, a.ID, "text", &out))
	assert.Contains(t, out.String(), "Coffee Shop")
	assert.Contains(t, out.String(), "-12.50")

	assert.ErrorIs(t, Transactions(ctx, c, "", "text", &out), parsererror.ErrNoTargetAccount)
}
