package quiz

import (
	"go.uber.org/zap"

	"github.com/hyperjump/quizcast/internal/models"
)

// Candidate is an unvalidated question as produced by a grammar match or a row.
// Grammar candidates carry a resolved Correct index; row candidates carry the
// correct answer as AnswerText and Correct is -1.
type Candidate struct {
	Source     string
	Question   string
	Options    []string
	Correct    int
	AnswerText string
}

// Result is the output of one extraction: the ordered records plus a skip
// entry for every unit that was dropped.
type Result struct {
	Records []models.QuestionRecord `json:"records"`
	Skips   []models.Skip           `json:"skips,omitempty"`
	// Matches counts raw matches per grammar name.
	Matches map[string]int `json:"matches,omitempty"`
}

type options struct {
	grammars []Grammar
	filler   string
	logger   *zap.Logger
}

// Option configures Extract and FromRows.
type Option func(*options)

// WithLogger sets a logger for per-grammar and per-skip debug output.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithFiller sets the filler option appended to questions with a single option.
func WithFiller(filler string) Option {
	return func(o *options) {
		if filler != "" {
			o.filler = filler
		}
	}
}

// WithGrammars replaces the default grammar list.
func WithGrammars(grammars []Grammar) Option {
	return func(o *options) { o.grammars = grammars }
}

func buildOptions(opts []Option) *options {
	o := &options{grammars: Grammars, filler: DefaultFiller, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	return o
}

// Extract normalizes text, runs every grammar over all of it, drops duplicate
// candidates by fingerprint and validates the survivors.
func Extract(text string, opts ...Option) *Result {
	o := buildOptions(opts)
	text = Normalize(text)
	res := &Result{Matches: make(map[string]int, len(o.grammars))}

	var candidates []Candidate
	for _, g := range o.grammars {
		found, skipped := g.Scan(text)
		res.Matches[g.Name] = len(found) + len(skipped)
		o.logger.Debug("grammar scanned",
			zap.String("grammar", g.Name),
			zap.Int("candidates", len(found)),
			zap.Int("skipped", len(skipped)),
		)
		candidates = append(candidates, found...)
		res.Skips = append(res.Skips, skipped...)
	}

	unique, dups := Dedup(candidates)
	res.Skips = append(res.Skips, dups...)
	for _, c := range unique {
		rec, skip := Validate(c, o.filler)
		if skip != nil {
			res.Skips = append(res.Skips, *skip)
			continue
		}
		res.Records = append(res.Records, rec)
	}
	for _, s := range res.Skips {
		o.logger.Debug("candidate skipped",
			zap.String("source", s.Source),
			zap.String("reason", string(s.Reason)),
			zap.String("detail", s.Detail),
		)
	}
	return res
}
