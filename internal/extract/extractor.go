// Package extract reads uploaded quiz documents into plain text or tabular rows.
package extract

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// ErrUnsupportedFormat is returned for extensions no reader handles.
var ErrUnsupportedFormat = errors.New("unsupported format")

// Document is the content of one file. Prose formats fill Text; tabular
// formats fill Rows (question, options..., answer per row).
type Document struct {
	Text string
	Rows [][]string
}

// Tabular reports whether the document came from a row-based format.
func (d *Document) Tabular() bool {
	return d.Rows != nil
}

// Empty reports whether the document has no usable content.
func (d *Document) Empty() bool {
	if d.Tabular() {
		return len(d.Rows) == 0
	}
	return strings.TrimSpace(d.Text) == ""
}

var textReaders = map[string]func([]byte) (string, error){
	".pdf":  extractPDF,
	".docx": extractDOCX,
	".pptx": extractPPTX,
	".odt":  extractODT,
	".rtf":  extractRTF,
	".odp":  extractODP,
	".txt":  extractPlain,
	".md":   extractPlain,
}

var rowReaders = map[string]func([]byte) ([][]string, error){
	".csv":  extractCSV,
	".xlsx": extractExcel,
	".ods":  extractODS,
}

// Supported reports whether ext (with leading dot) can be read.
func Supported(ext string) bool {
	ext = strings.ToLower(ext)
	_, text := textReaders[ext]
	_, rows := rowReaders[ext]
	return text || rows
}

// IsTabular reports whether ext is read as rows.
func IsTabular(ext string) bool {
	_, ok := rowReaders[strings.ToLower(ext)]
	return ok
}

// SupportedExtensions returns every readable extension, sorted.
func SupportedExtensions() []string {
	out := make([]string, 0, len(textReaders)+len(rowReaders))
	for ext := range textReaders {
		out = append(out, ext)
	}
	for ext := range rowReaders {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

// Extractor reads documents by extension.
type Extractor struct {
	logger *zap.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithLogger sets the logger for the extractor.
func WithLogger(l *zap.Logger) Option {
	return func(e *Extractor) {
		e.logger = l
	}
}

// NewExtractor returns a new Extractor.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract reads the file at path and returns its content.
// Returns an error if the file cannot be read or the format is unsupported.
func (e *Extractor) Extract(path string) (*Document, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if !Supported(ext) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return e.ExtractBytes(content, ext)
}

// ExtractBytes extracts content based on the given extension.
// ext should include the leading dot (e.g. ".pdf").
func (e *Extractor) ExtractBytes(content []byte, ext string) (*Document, error) {
	ext = strings.ToLower(ext)
	if read, ok := rowReaders[ext]; ok {
		rows, err := read(content)
		if err != nil {
			return nil, err
		}
		if rows == nil {
			rows = [][]string{}
		}
		e.logger.Debug("extracted rows", zap.String("ext", ext), zap.Int("rows", len(rows)))
		return &Document{Rows: rows}, nil
	}
	if read, ok := textReaders[ext]; ok {
		text, err := read(content)
		if err != nil {
			return nil, err
		}
		e.logger.Debug("extracted text", zap.String("ext", ext), zap.Int("bytes", len(text)))
		return &Document{Text: text}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
}
