// Package quiz turns normalized document text and tabular rows into validated
// multiple-choice question records.
//
// Text goes through an ordered list of independent grammars (see Grammars).
// Every grammar scans the whole text, so one quiz block may be matched more
// than once; candidates are unified by fingerprint before validation.
package quiz

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	// horizontalSpace matches runs of spaces, tabs and other Unicode space separators.
	horizontalSpace = regexp.MustCompile(`[\t\f\v\p{Zs}]+`)
	// trailingSpace matches horizontal whitespace before a line break or end of text.
	trailingSpace = regexp.MustCompile(`(?m) +$`)
	// blankRun matches three or more consecutive newlines.
	blankRun = regexp.MustCompile(`\n{3,}`)
)

// Normalize collapses incidental whitespace while keeping line boundaries,
// since option and answer markers are line-anchored. Blank-line runs collapse
// to a single paragraph separator.
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = norm.NFC.String(text)
	text = horizontalSpace.ReplaceAllString(text, " ")
	text = trailingSpace.ReplaceAllString(text, "")
	return blankRun.ReplaceAllString(text, "\n\n")
}
