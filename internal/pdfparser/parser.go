// Package pdfparser recovers transactions from statement text. PDF statements
// are converted to text with pdftotext and then scanned line by line by an
// ordered list of strategies.
package pdfparser

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"fjacquet/stmt-ingest/internal/logging"
	"fjacquet/stmt-ingest/internal/models"
	"fjacquet/stmt-ingest/internal/parsererror"
)

var pdfMagic = []byte("%PDF-")

// Parser runs its strategies as successive passes over the whole text. The
// first pass that recovers at least one line decides the result.
type Parser struct {
	extractor PDFExtractor
	passes    []LineStrategy
	logger    logging.Logger
}

// NewParser creates a Parser. With no strategies the institution pass runs
// first and the generic pass is the fallback.
func NewParser(extractor PDFExtractor, logger logging.Logger, passes ...LineStrategy) *Parser {
	if extractor == nil {
		extractor = NewRealPDFExtractor("")
	}
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	if len(passes) == 0 {
		passes = DefaultStrategies()
	}
	return &Parser{extractor: extractor, passes: passes, logger: logger}
}

// ParseText scans already extracted text.
func (p *Parser) ParseText(text string) models.StatementResult {
	lines := splitLines(text)

	var last models.StatementResult
	for _, pass := range p.passes {
		result := runPass(pass, lines)
		p.logger.Debug("Statement pass finished",
			logging.F(logging.FieldStrategy, pass.Name()),
			logging.F(logging.FieldCount, len(result.Lines)),
			logging.F("skipped", len(result.Skipped)))
		if len(result.Lines) > 0 {
			return result
		}
		last = result
	}
	// Nothing recovered: keep the diagnostics of the final pass.
	last.Strategy = ""
	return last
}

func runPass(s LineStrategy, lines []string) models.StatementResult {
	result := models.StatementResult{Strategy: s.Name()}
	for i, text := range lines {
		line, ok, reason := s.ParseLine(text)
		switch {
		case ok:
			line.Line = i + 1
			result.Lines = append(result.Lines, line)
		case reason != "":
			result.Skipped = append(result.Skipped, models.SkippedLine{
				Line:   i + 1,
				Text:   strings.TrimSpace(text),
				Reason: reason,
			})
		}
	}
	return result
}

func splitLines(text string) []string {
	var lines []string
	sc := bufio.NewScanner(strings.NewReader(text))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	return lines
}

// Parse reads a PDF from r, extracts its text and scans it. Input that is
// not a PDF, or that the extractor cannot read, is an InvalidFormatError.
func (p *Parser) Parse(r io.Reader) (models.StatementResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return models.StatementResult{}, fmt.Errorf("failed to read PDF input: %w", err)
	}
	if !bytes.HasPrefix(data, pdfMagic) {
		return models.StatementResult{}, &parsererror.InvalidFormatError{
			ExpectedFormat:       "PDF",
			ActualContentSnippet: string(bytes.ToValidUTF8(data[:min(len(data), 16)], []byte("?"))),
			Msg:                  "missing PDF header",
		}
	}

	tempFile, err := os.CreateTemp("", "stmt-*.pdf")
	if err != nil {
		return models.StatementResult{}, fmt.Errorf("failed to create temporary PDF file: %w", err)
	}
	defer func() {
		if err := os.Remove(tempFile.Name()); err != nil {
			p.logger.WithError(err).Warn("Failed to remove temporary file",
				logging.F(logging.FieldFile, tempFile.Name()))
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return models.StatementResult{}, fmt.Errorf("failed to write temporary PDF file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return models.StatementResult{}, fmt.Errorf("failed to close temporary PDF file: %w", err)
	}

	text, err := p.extractor.ExtractText(tempFile.Name())
	if err != nil {
		return models.StatementResult{}, &parsererror.InvalidFormatError{
			ExpectedFormat: "PDF",
			Msg:            "text extraction failed",
			Err:            err,
		}
	}

	result := p.ParseText(text)
	p.logger.Info("Parsed PDF statement",
		logging.F(logging.FieldStrategy, result.Strategy),
		logging.F(logging.FieldCount, len(result.Lines)))
	return result, nil
}

// ParseFile opens path and calls Parse.
func (p *Parser) ParseFile(path string) (models.StatementResult, error) {
	file, err := os.Open(path) // #nosec G304 -- CLI tool requires user-provided file paths
	if err != nil {
		return models.StatementResult{}, fmt.Errorf("error opening input file: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			p.logger.WithError(err).Warn("Failed to close input file",
				logging.F(logging.FieldFile, path))
		}
	}()
	return p.Parse(file)
}
