package tabular

import (
	"context"
	"errors"
	"strings"
	"testing"

	"fjacquet/stmt-ingest/internal/categorizer"
	"fjacquet/stmt-ingest/internal/classifier"
	"fjacquet/stmt-ingest/internal/logging"
	"fjacquet/stmt-ingest/internal/models"
	"fjacquet/stmt-ingest/internal/parsererror"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIngestor(opts Options) *Ingestor {
	logger := logging.NewMockLogger()
	return NewIngestor(
		classifier.NewClassifier(classifier.DefaultKeywordTables(), logger),
		categorizer.NewCategorizer(models.DefaultCategory, logger),
		opts,
		logger,
	)
}

func mapping(date, desc, amount, category int) models.ColumnMapping {
	return models.ColumnMapping{Date: date, Description: desc, Amount: amount, Category: category}
}

const tenRows = `Date,Description,Amount
2026-01-01,Rent,-1200.00
2026-01-02,Groceries,-84.12
not-a-date,Bookstore,-19.99
2026-01-04,Salary,3100.00
2026-01-05,Pharmacy,-12.40
2026-01-06,Fuel,-55.00
2026-01-07,,-7.25
2026-01-08,Cinema,-24.00
2026-01-09,Refund,15.00
2026-01-10,Bakery,-6.30
`

func TestIngest_TenRowsWithTwoMalformed(t *testing.T) {
	ing := newTestIngestor(DefaultOptions())

	result, err := ing.Ingest(context.Background(), []byte(tenRows), "acct-1", nil)
	require.NoError(t, err)

	assert.True(t, result.HasHeader)
	assert.Equal(t, 8, result.ValidCount)
	assert.Equal(t, 2, result.InvalidCount)
	assert.Len(t, result.Rows, 10)

	invalid := result.InvalidRows()
	require.Len(t, invalid, 2)

	assert.Equal(t, 4, invalid[0].Row, "third data row sits on file line 4")
	assert.Equal(t, "Bookstore", invalid[0].Description)
	assert.Equal(t, []string{models.ReasonInvalidDate}, invalid[0].Errors)

	assert.Equal(t, 8, invalid[1].Row)
	assert.Equal(t, []string{models.ReasonMissingDescription}, invalid[1].Errors)
}

func TestIngest_CoffeeShopAndPaycheck(t *testing.T) {
	data := "2026-01-07 11:14:23,Coffee Shop,-4.50\n01/08/2026,Paycheck,2500.00\n"
	ing := newTestIngestor(DefaultOptions())
	override := mapping(0, 1, 2, models.Unmapped)

	result, err := ing.Ingest(context.Background(), []byte(data), "acct-1", &override)
	require.NoError(t, err)
	require.Len(t, result.Rows, 2)
	assert.Equal(t, 2, result.ValidCount)

	coffee := result.Rows[0]
	assert.Equal(t, "2026-01-07", coffee.Date)
	assert.Equal(t, "Coffee Shop", coffee.Description)
	assert.True(t, coffee.Amount.Equal(decimal.RequireFromString("-4.50")))
	assert.Equal(t, models.DirectionExpense, coffee.Direction())
	assert.Equal(t, models.DefaultCategory, coffee.Category)

	paycheck := result.Rows[1]
	assert.Equal(t, "2026-01-08", paycheck.Date)
	assert.Equal(t, "Paycheck", paycheck.Description)
	assert.True(t, paycheck.Amount.Equal(decimal.RequireFromString("2500.00")))
	assert.Equal(t, models.DirectionIncome, paycheck.Direction())
}

func TestOpen_HeaderlessInference(t *testing.T) {
	data := "2026-01-07 11:14:23,Coffee Shop,-4.50\n01/08/2026,Paycheck,2500.00\n"
	s, err := newTestIngestor(DefaultOptions()).Open([]byte(data))
	require.NoError(t, err)

	assert.False(t, s.HasHeader())
	assert.Equal(t, []string{"Column 1", "Column 2", "Column 3"}, s.Headers())
	assert.Equal(t, mapping(0, 1, 2, models.Unmapped), s.Mapping())
	assert.Len(t, s.DataRows(), 2)
}

func TestProcess_ZeroAmountFilter(t *testing.T) {
	data := "Date,Description,Amount\n2026-01-01,Fee waived,0.00\n2026-01-02,Coffee,-3.00\n2026-01-03,Broken,\n"

	tests := []struct {
		name        string
		skipZero    bool
		wantValid   int
		wantInvalid int
		wantSkipped int
	}{
		{"filter on", true, 1, 1, 1},
		{"filter off", false, 2, 1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ing := newTestIngestor(Options{SkipZeroAmount: tt.skipZero})
			result, err := ing.Ingest(context.Background(), []byte(data), "acct-1", nil)
			require.NoError(t, err)
			assert.Equal(t, tt.wantValid, result.ValidCount)
			assert.Equal(t, tt.wantInvalid, result.InvalidCount)
			assert.Equal(t, tt.wantSkipped, result.SkippedZeroAmount)
		})
	}
}

func TestProcess_InvalidRowKeepsAllReasons(t *testing.T) {
	data := "Date,Description,Amount\nsoon,,abc\n"
	result, err := newTestIngestor(DefaultOptions()).Ingest(context.Background(), []byte(data), "acct-1", nil)
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)

	row := result.Rows[0]
	assert.False(t, row.Valid)
	assert.Equal(t, []string{
		models.ReasonInvalidDate,
		models.ReasonMissingDescription,
		models.ReasonInvalidAmount,
	}, row.Errors)
}

func TestProcess_CategoryColumnAndFallback(t *testing.T) {
	data := "Date,Description,Amount,Category\n2026-01-01,Rent,-900,Housing\n2026-01-02,Coffee,-3,\n"
	result, err := newTestIngestor(DefaultOptions()).Ingest(context.Background(), []byte(data), "acct-1", nil)
	require.NoError(t, err)
	require.Len(t, result.Rows, 2)

	assert.Equal(t, "Housing", result.Rows[0].Category)
	assert.Equal(t, models.DefaultCategory, result.Rows[1].Category)
}

func TestProcess_Preconditions(t *testing.T) {
	data := "Date,Description,Amount\n2026-01-01,Rent,-900\n"

	tests := []struct {
		name      string
		mapping   *models.ColumnMapping
		accountID string
		want      error
	}{
		{
			name:      "missing amount mapping",
			mapping:   func() *models.ColumnMapping { m := mapping(0, 1, models.Unmapped, models.Unmapped); return &m }(),
			accountID: "acct-1",
			want:      parsererror.ErrMissingMapping,
		},
		{
			name:      "duplicate column",
			mapping:   func() *models.ColumnMapping { m := mapping(0, 1, 1, models.Unmapped); return &m }(),
			accountID: "acct-1",
			want:      parsererror.ErrInvalidMapping,
		},
		{
			name:      "out of range column",
			mapping:   func() *models.ColumnMapping { m := mapping(0, 1, 7, models.Unmapped); return &m }(),
			accountID: "acct-1",
			want:      parsererror.ErrInvalidMapping,
		},
		{
			name:      "no account",
			accountID: "",
			want:      parsererror.ErrNoTargetAccount,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := newTestIngestor(DefaultOptions()).Ingest(context.Background(), []byte(data), tt.accountID, tt.mapping)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want))
			assert.True(t, parsererror.IsPrecondition(err))
			assert.Empty(t, result.Rows)
		})
	}
}

func TestSession_SetHasHeader(t *testing.T) {
	data := "Date,Description,Amount\n2026-01-01,Rent,-900\n"
	s, err := newTestIngestor(DefaultOptions()).Open([]byte(data))
	require.NoError(t, err)
	require.True(t, s.HasHeader())
	assert.Len(t, s.DataRows(), 1)

	s.SetHasHeader(false)
	assert.Len(t, s.DataRows(), 2)
	assert.Equal(t, "Column 1", s.Headers()[0])

	result, err := s.Process(context.Background(), "acct-1")
	require.NoError(t, err)
	assert.Equal(t, 1, result.InvalidCount, "former header row is now data")
	assert.Equal(t, 1, result.ValidCount)

	s.SetHasHeader(true)
	assert.Equal(t, mapping(0, 1, 2, models.Unmapped), s.Mapping())
}

func TestSession_OverrideSurvivesHeaderToggle(t *testing.T) {
	data := "When,What,HowMuch\n2026-01-01,Rent,-900\n"
	s, err := newTestIngestor(DefaultOptions()).Open([]byte(data))
	require.NoError(t, err)

	headers := []string{"When", "What", "HowMuch"}
	override, err := models.ParseColumnMapping("date=When,description=What,amount=2", headers)
	require.NoError(t, err)

	s.SetMapping(override)
	s.SetHasHeader(true)
	assert.Equal(t, override, s.Mapping())

	result, err := s.Process(context.Background(), "acct-1")
	require.NoError(t, err)
	assert.Equal(t, 1, result.ValidCount)
	assert.Equal(t, "Rent", result.Rows[0].Description)
}

func TestOpen_RejectsMalformedInput(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"unterminated quote", []byte("Date,Description,Amount\n2026-01-01,\"Rent,-900\n")},
		{"stray quote", []byte("Date,Description,Amount\n2026-01-01,Re\"nt,-900\n")},
		{"invalid utf-8", []byte("Date,Description,Amount\n2026-01-01,\xff\xfe\xfd,-900\n")},
		{"binary", []byte("%PDF-1.4\x00\x01\x02")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := newTestIngestor(DefaultOptions()).Open(tt.data)
			require.Error(t, err)
			assert.Nil(t, s)
			assert.True(t, parsererror.IsInvalidFormat(err))
		})
	}
}

func TestOpen_EmptyUpload(t *testing.T) {
	_, err := newTestIngestor(DefaultOptions()).Open([]byte("\n , ,\n\n"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, parsererror.ErrEmptyUpload))
}

func TestOpen_DecodesBOMs(t *testing.T) {
	utf16 := []byte{0xFF, 0xFE}
	for _, r := range "Date,Description,Amount\n2026-01-01,Rent,-900\n" {
		utf16 = append(utf16, byte(r), 0)
	}

	tests := []struct {
		name string
		data []byte
	}{
		{"utf-8 bom", append([]byte{0xEF, 0xBB, 0xBF}, []byte("Date,Description,Amount\n2026-01-01,Rent,-900\n")...)},
		{"utf-16le bom", utf16},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := newTestIngestor(DefaultOptions()).Open(tt.data)
			require.NoError(t, err)
			assert.True(t, s.HasHeader())
			assert.Equal(t, "Date", s.Headers()[0])
		})
	}
}

func TestOpen_CustomDelimiterAndBlankRows(t *testing.T) {
	data := "Date;Description;Amount\n\n2026-01-01;Rent;-900\n;;\n2026-01-02;\"Coffee; large\";-4\n"
	s, err := newTestIngestor(Options{Delimiter: ';', SkipZeroAmount: true}).Open([]byte(data))
	require.NoError(t, err)

	result, err := s.Process(context.Background(), "acct-1")
	require.NoError(t, err)
	require.Equal(t, 2, result.ValidCount)
	assert.Equal(t, "Coffee; large", result.Rows[1].Description)
	assert.Equal(t, 5, result.Rows[1].Row)
	assert.True(t, strings.HasPrefix(result.Rows[0].Date, "2026-01-01"))
}
