package pdfparser

import (
	"bytes"
	"fmt"
	"os/exec"
	"strings"
	"sync"
)

// DefaultPdftotextPath is used when no binary path is configured.
const DefaultPdftotextPath = "pdftotext"

// PDFExtractor defines the interface for extracting text from PDF files.
// Production code shells out to pdftotext; tests inject a mock.
type PDFExtractor interface {
	// ExtractText extracts text content from a PDF file at the given path.
	ExtractText(pdfPath string) (string, error)
}

// RealPDFExtractor implements PDFExtractor using the pdftotext command.
type RealPDFExtractor struct {
	binary string
}

// NewRealPDFExtractor creates a RealPDFExtractor. An empty binary means
// pdftotext from PATH.
func NewRealPDFExtractor(binary string) *RealPDFExtractor {
	if binary == "" {
		binary = DefaultPdftotextPath
	}
	return &RealPDFExtractor{binary: binary}
}

// ExtractText runs "pdftotext -layout <file> -" and returns its stdout.
func (e *RealPDFExtractor) ExtractText(pdfPath string) (string, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.Command(e.binary, "-layout", pdfPath, "-") // #nosec G204 -- binary comes from local configuration
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("error running %s: %w: %s", e.binary, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

// MockPDFExtractor implements PDFExtractor for testing purposes.
type MockPDFExtractor struct {
	MockText string
	MockErr  error
	// Paths records every file handed to ExtractText.
	Paths []string
	mu    sync.Mutex
}

// NewMockPDFExtractor creates a new MockPDFExtractor with the given mock data.
func NewMockPDFExtractor(mockText string, mockErr error) *MockPDFExtractor {
	return &MockPDFExtractor{
		MockText: mockText,
		MockErr:  mockErr,
	}
}

// ExtractText returns the predefined mock text or error.
func (e *MockPDFExtractor) ExtractText(pdfPath string) (string, error) {
	e.mu.Lock()
	e.Paths = append(e.Paths, pdfPath)
	e.mu.Unlock()
	if e.MockErr != nil {
		return "", e.MockErr
	}
	return e.MockText, nil
}
