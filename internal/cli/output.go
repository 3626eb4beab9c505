// Package cli renders extraction results and runs for the quizcast command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/hyperjump/quizcast/internal/models"
	"github.com/hyperjump/quizcast/internal/quiz"
	"github.com/hyperjump/quizcast/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseFormat validates a --format value. Empty means text.
func ParseFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(strings.TrimSpace(s))) {
	case "", OutputText:
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	}
	return "", fmt.Errorf("unknown format %q (want text or json)", s)
}

// Extraction is the printable result of extracting one document.
type Extraction struct {
	Source  string                  `json:"source"`
	Records []models.QuestionRecord `json:"records"`
	Skips   []models.Skip           `json:"skips,omitempty"`
}

// NewExtraction wraps a quiz result for output. Records are never nil so
// JSON consumers always see an array.
func NewExtraction(source string, res *quiz.Result) *Extraction {
	e := &Extraction{Source: source, Records: []models.QuestionRecord{}}
	if res != nil {
		if res.Records != nil {
			e.Records = res.Records
		}
		e.Skips = res.Skips
	}
	return e
}

// WriteExtraction writes extracted records to w in the given format.
func WriteExtraction(w io.Writer, e *Extraction, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, e)
	}
	fmt.Fprintf(w, "\n%s: %d questions, %d skipped\n\n", e.Source, len(e.Records), len(e.Skips))
	for i, rec := range e.Records {
		writeRecord(w, i+1, rec)
	}
	if len(e.Skips) > 0 {
		fmt.Fprintln(w, "--- Skipped ---")
		for _, s := range e.Skips {
			if s.Detail != "" {
				fmt.Fprintf(w, "%s: %s (%s)\n", s.Source, s.Reason, s.Detail)
			} else {
				fmt.Fprintf(w, "%s: %s\n", s.Source, s.Reason)
			}
		}
	}
	return nil
}

func writeRecord(w io.Writer, n int, rec models.QuestionRecord) {
	fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
	fmt.Fprintf(w, "%d. %s\n", n, rec.Question)
	for i, opt := range rec.Options {
		fmt.Fprintf(w, "   %s) %s\n", ArabicIndic(i+1), utils.Truncate(opt, 120))
	}
	fmt.Fprintf(w, "   Answer: %s) %s\n\n", ArabicIndic(rec.CorrectOptionID+1), rec.CorrectOption())
}

// WriteRun writes a run summary to w in the given format.
func WriteRun(w io.Writer, run *models.Run, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, run)
	}
	fmt.Fprintf(w, "Run %s [%s] %s\n", run.ID, run.Status, run.Source)
	fmt.Fprintln(w, run.Summary())
	if run.Excerpt != "" {
		fmt.Fprintf(w, "\nDocument starts with:\n%s\n", run.Excerpt)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// ArabicIndic formats n with Arabic-Indic digits (١٢٣...).
func ArabicIndic(n int) string {
	var b strings.Builder
	for _, d := range strconv.Itoa(n) {
		if d >= '0' && d <= '9' {
			b.WriteRune('٠' + (d - '0'))
			continue
		}
		b.WriteRune(d)
	}
	return b.String()
}
