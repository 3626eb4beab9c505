package quiz

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/hyperjump/quizcast/internal/models"
)

// arabicLetters is the fixed Arabic marker alphabet; a letter's position is its option index.
const arabicLetters = "أبجدهوزحطي"

// Alphabet is the ordered symbol set used to label options within one block.
type Alphabet int

const (
	AlphabetUnknown Alphabet = iota
	AlphabetLower
	AlphabetUpper
	AlphabetArabic
	AlphabetDigit
)

func (a Alphabet) String() string {
	switch a {
	case AlphabetLower:
		return "lower"
	case AlphabetUpper:
		return "upper"
	case AlphabetArabic:
		return "arabic"
	case AlphabetDigit:
		return "digit"
	}
	return "unknown"
}

// markerClass is the regexp character class body for option markers.
func (a Alphabet) markerClass() string {
	switch a {
	case AlphabetLower:
		return `a-j`
	case AlphabetUpper:
		return `A-J`
	case AlphabetArabic:
		return arabicLetters
	case AlphabetDigit:
		return `1-9١-٩`
	}
	return ""
}

// answerClass is the regexp character class body for the answer token.
// Latin answers are accepted in either case.
func (a Alphabet) answerClass() string {
	switch a {
	case AlphabetLower, AlphabetUpper:
		return `a-jA-J`
	}
	return a.markerClass()
}

// Index resolves an answer token to a zero-based option index, or -1.
func (a Alphabet) Index(token string) int {
	r, _ := utf8.DecodeRuneInString(strings.TrimSpace(token))
	switch a {
	case AlphabetLower, AlphabetUpper:
		r = unicode.ToLower(r)
		if r >= 'a' && r <= 'z' {
			return int(r - 'a')
		}
	case AlphabetArabic:
		for i, letter := range []rune(arabicLetters) {
			if letter == r {
				return i
			}
		}
	case AlphabetDigit:
		switch {
		case r >= '1' && r <= '9':
			return int(r - '1')
		case r >= '١' && r <= '٩':
			return int(r - '١')
		}
	}
	return -1
}

// detectAlphabet picks the alphabet from the first character of an option block.
func detectAlphabet(r rune) Alphabet {
	switch {
	case r >= 'a' && r <= 'z':
		return AlphabetLower
	case r >= 'A' && r <= 'Z':
		return AlphabetUpper
	case strings.ContainsRune(arabicLetters, r):
		return AlphabetArabic
	case r >= '1' && r <= '9', r >= '١' && r <= '٩':
		return AlphabetDigit
	}
	return AlphabetUnknown
}

// optionLines holds the per-alphabet line extractors used to re-scan option blocks.
var optionLines = map[Alphabet]*regexp.Regexp{}

func init() {
	for _, a := range []Alphabet{AlphabetLower, AlphabetUpper, AlphabetArabic, AlphabetDigit} {
		optionLines[a] = regexp.MustCompile(`^ ?[` + a.markerClass() + `][).] ?(.*)$`)
	}
}

// splitOptions re-scans an option block. An option's text runs from its marker
// to the next marker line; continuation lines are joined with a space.
func (a Alphabet) splitOptions(block string) []string {
	line := optionLines[a]
	if line == nil {
		return nil
	}
	var options []string
	for _, l := range strings.Split(block, "\n") {
		if m := line.FindStringSubmatch(l); m != nil {
			options = append(options, strings.TrimSpace(m[1]))
			continue
		}
		if len(options) > 0 {
			if l = strings.TrimSpace(l); l != "" {
				last := len(options) - 1
				options[last] = strings.TrimSpace(options[last] + " " + l)
			}
		}
	}
	return options
}

// answerKeywords introduce the answer token; matched case-insensitively.
const answerKeywords = `(?i:(?:correct )?answers?|الإجابة|الاجابة|الجواب)`

// Grammar recognizes one quiz-block layout: an optional ordinal, a question
// paragraph, one to five option lines sharing an alphabet and separator, and
// a keyword-introduced answer token.
type Grammar struct {
	Name      string
	Alphabet  Alphabet
	Separator rune
	pattern   *regexp.Regexp
}

// NewGrammar builds a grammar for the given marker alphabet and separator (')' or '.').
func NewGrammar(name string, alphabet Alphabet, sep rune) Grammar {
	marker := `[` + alphabet.markerClass() + `]` + regexp.QuoteMeta(string(sep))
	expr := `(?m)^ ?([0-9٠-٩]+(?:[-.] ?| ))?` + // ordinal
		`(\S[^\n]*(?:\n ?\S[^\n]*)*?)\n+` + // question paragraph
		`( ?` + marker + `[^\n]*(?:\n ?` + marker + `[^\n]*){0,4})\n+` + // option lines
		` ?` + answerKeywords + ` ?[:：] ?` +
		`([` + alphabet.answerClass() + `])[).]?(?: |$)`
	return Grammar{
		Name:      name,
		Alphabet:  alphabet,
		Separator: sep,
		pattern:   regexp.MustCompile(expr),
	}
}

// Grammars is the ordered list applied by Extract. Order decides which
// duplicate survives deduplication.
var Grammars = []Grammar{
	NewGrammar("lower-paren", AlphabetLower, ')'),
	NewGrammar("upper-paren", AlphabetUpper, ')'),
	NewGrammar("arabic-paren", AlphabetArabic, ')'),
	NewGrammar("digit-paren", AlphabetDigit, ')'),
	NewGrammar("lower-dot", AlphabetLower, '.'),
	NewGrammar("upper-dot", AlphabetUpper, '.'),
	NewGrammar("arabic-dot", AlphabetArabic, '.'),
	NewGrammar("digit-dot", AlphabetDigit, '.'),
}

// ordinalLine matches a line that opens with its own question ordinal.
var ordinalLine = regexp.MustCompile(`^ ?([0-9٠-٩]+[-.]) ?(\S.*)$`)

// splitQuestion trims the question paragraph to its last ordinal-led line, so a
// heading directly above a numbered question does not become part of it.
// Lines are joined with single spaces.
func splitQuestion(ordinal, paragraph string) (string, string) {
	lines := strings.Split(paragraph, "\n")
	for k := len(lines) - 1; k > 0; k-- {
		if m := ordinalLine.FindStringSubmatch(lines[k]); m != nil {
			ordinal = m[1]
			lines = append([]string{m[2]}, lines[k+1:]...)
			break
		}
	}
	return strings.TrimSpace(ordinal), strings.Join(strings.Fields(strings.Join(lines, " ")), " ")
}

// endsWithOption reports whether the question paragraph's last line is itself
// an option line of the given alphabet.
func endsWithOption(a Alphabet, paragraph string) bool {
	lines := strings.Split(paragraph, "\n")
	return optionLines[a].MatchString(lines[len(lines)-1])
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// Scan finds all non-overlapping blocks in normalized text and returns the
// candidates plus a skip for every match whose answer could not be resolved.
func (g Grammar) Scan(text string) ([]Candidate, []models.Skip) {
	var candidates []Candidate
	var skips []models.Skip
	for i, m := range g.pattern.FindAllStringSubmatch(text, -1) {
		source := fmt.Sprintf("%s#%d", g.Name, i+1)
		ordinal, question := splitQuestion(m[1], m[2])
		block := strings.TrimSpace(m[3])

		first, _ := utf8.DecodeRuneInString(block)
		alphabet := detectAlphabet(first)
		if alphabet == AlphabetUnknown {
			skips = append(skips, models.Skip{Source: source, Reason: models.SkipUnknownAlphabet, Detail: string(first)})
			continue
		}
		if alphabet.Index(string(first)) != 0 || endsWithOption(alphabet, m[2]) {
			// More option lines than the block allows: the match started
			// mid-list, so its options and answer would be shifted.
			skips = append(skips, models.Skip{Source: source, Reason: models.SkipTooManyOptions, Detail: firstLine(block)})
			continue
		}
		options := alphabet.splitOptions(block)
		idx := alphabet.Index(m[4])
		if idx < 0 || idx >= len(options) {
			skips = append(skips, models.Skip{
				Source: source,
				Reason: models.SkipAnswerOutOfRange,
				Detail: fmt.Sprintf("answer %q with %d options", m[4], len(options)),
			})
			continue
		}
		if ordinal != "" {
			question = ordinal + " " + question
		}
		candidates = append(candidates, Candidate{
			Source:   source,
			Question: question,
			Options:  options,
			Correct:  idx,
		})
	}
	return candidates, skips
}
