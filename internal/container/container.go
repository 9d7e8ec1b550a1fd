// Package container provides dependency injection for the stmt-ingest
// application. It centralizes the creation and wiring of all application
// dependencies, making them explicit and testable.
package container

import (
	"fmt"

	"fjacquet/stmt-ingest/internal/batch"
	"fjacquet/stmt-ingest/internal/categorizer"
	"fjacquet/stmt-ingest/internal/classifier"
	"fjacquet/stmt-ingest/internal/config"
	"fjacquet/stmt-ingest/internal/ledger"
	"fjacquet/stmt-ingest/internal/logging"
	"fjacquet/stmt-ingest/internal/pdfparser"
	"fjacquet/stmt-ingest/internal/report"
	"fjacquet/stmt-ingest/internal/store"
	"fjacquet/stmt-ingest/internal/tabular"
)

// Container holds all application dependencies and provides methods to access them.
//
// Container is immutable after creation. All fields are private and can only
// be accessed through getter methods.
type Container struct {
	logger      logging.Logger
	config      *config.Config
	classifier  *classifier.Classifier
	categorizer *categorizer.Categorizer
	tabular     *tabular.Ingestor
	statements  *pdfparser.Parser
	store       *store.SQLiteStore
	writer      *ledger.Writer
	reports     *report.Generator
	runner      *batch.Runner
}

// Option customizes NewContainer.
type Option func(*options)

type options struct {
	logger    logging.Logger
	extractor pdfparser.PDFExtractor
}

// WithLogger replaces the logger built from the log section.
func WithLogger(logger logging.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithPDFExtractor replaces the pdftotext extractor.
func WithPDFExtractor(extractor pdfparser.PDFExtractor) Option {
	return func(o *options) { o.extractor = extractor }
}

// NewContainer creates and wires all application dependencies. The ledger
// database is opened (and migrated) here; call Close when done.
func NewContainer(cfg *config.Config, opts ...Option) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration cannot be nil")
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	// Create logger first as it's needed by other components
	logger := o.logger
	if logger == nil {
		logger = config.NewLogger(cfg)
	}

	tables, err := loadKeywordTables(cfg.Classifier.KeywordsFile)
	if err != nil {
		return nil, err
	}
	cls := classifier.NewClassifier(tables, logger)

	strategies := []categorizer.Strategy{categorizer.ColumnLabelStrategy{}}
	if cfg.Categorization.RulesFile != "" {
		rules, err := loadRules(cfg.Categorization.RulesFile)
		if err != nil {
			return nil, err
		}
		strategies = append(strategies, categorizer.NewKeywordStrategy(rules, logger))
		logger.Info("Keyword categorization enabled",
			logging.F(logging.FieldCount, len(rules)))
	}
	cat := categorizer.NewCategorizer(cfg.Import.DefaultCategory, logger, strategies...)

	tab := tabular.NewIngestor(cls, cat, tabular.Options{
		Delimiter:      cfg.DelimiterRune(),
		SkipZeroAmount: cfg.Import.SkipZeroAmount,
	}, logger)

	extractor := o.extractor
	if extractor == nil {
		extractor = pdfparser.NewRealPDFExtractor(cfg.PDF.PdftotextPath)
	}
	statements := pdfparser.NewParser(extractor, logger)

	db, err := store.OpenSQLite(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger database: %w", err)
	}
	writer := ledger.NewWriter(db, cfg.RowTimeout(), logger)

	logger.Info("Container initialized successfully",
		logging.F("database", cfg.Database.Path),
		logging.F("workers", cfg.Import.Workers))

	return &Container{
		logger:      logger,
		config:      cfg,
		classifier:  cls,
		categorizer: cat,
		tabular:     tab,
		statements:  statements,
		store:       db,
		writer:      writer,
		reports:     report.NewGenerator(logger, cfg.DelimiterRune()),
		runner:      batch.NewRunner(tab, statements, writer, cfg.Import.Workers, cfg.Import.MaxUploadBytes, logger),
	}, nil
}

func loadKeywordTables(name string) (classifier.KeywordTables, error) {
	if name == "" {
		return classifier.DefaultKeywordTables(), nil
	}
	path, err := store.FindConfigFile(name)
	if err != nil {
		return classifier.KeywordTables{}, fmt.Errorf("keyword file %s: %w", name, err)
	}
	return classifier.LoadKeywordTables(path)
}

func loadRules(name string) ([]categorizer.Rule, error) {
	path, err := store.FindConfigFile(name)
	if err != nil {
		return nil, fmt.Errorf("categorization rules %s: %w", name, err)
	}
	return categorizer.LoadRules(path)
}

// GetLogger returns the container's logger instance.
func (c *Container) GetLogger() logging.Logger {
	return c.logger
}

// GetConfig returns the container's configuration instance.
func (c *Container) GetConfig() *config.Config {
	return c.config
}

// GetClassifier returns the header classifier.
func (c *Container) GetClassifier() *classifier.Classifier {
	return c.classifier
}

// GetCategorizer returns the container's categorizer instance.
func (c *Container) GetCategorizer() *categorizer.Categorizer {
	return c.categorizer
}

// GetTabularIngestor returns the CSV ingestor.
func (c *Container) GetTabularIngestor() *tabular.Ingestor {
	return c.tabular
}

// GetStatementParser returns the statement-text ingestor.
func (c *Container) GetStatementParser() *pdfparser.Parser {
	return c.statements
}

// GetStore returns the ledger database.
func (c *Container) GetStore() *store.SQLiteStore {
	return c.store
}

// GetWriter returns the reconciliation writer.
func (c *Container) GetWriter() *ledger.Writer {
	return c.writer
}

// GetReportGenerator returns the summary renderer.
func (c *Container) GetReportGenerator() *report.Generator {
	return c.reports
}

// GetBatchRunner returns the directory runner.
func (c *Container) GetBatchRunner() *batch.Runner {
	return c.runner
}

// Close releases the ledger database.
func (c *Container) Close() error {
	if c.store == nil {
		return nil
	}
	if err := c.store.Close(); err != nil {
		return fmt.Errorf("failed to close ledger database: %w", err)
	}
	c.logger.Info("Container closed")
	return nil
}
