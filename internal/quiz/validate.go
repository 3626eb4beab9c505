package quiz

import (
	"fmt"
	"strings"

	"github.com/hyperjump/quizcast/internal/models"
)

// DefaultFiller is appended when a question ends up with a single option.
const DefaultFiller = "لا أعرف الإجابة"

// fallbackFiller replaces the filler when the only option already equals it.
const fallbackFiller = "-"

// Validate turns a candidate into a publishable record, repairing option
// counts where possible. It returns a skip instead when the candidate cannot
// be repaired.
func Validate(c Candidate, filler string) (models.QuestionRecord, *models.Skip) {
	skip := func(reason models.SkipReason, detail string) (models.QuestionRecord, *models.Skip) {
		return models.QuestionRecord{}, &models.Skip{Source: c.Source, Reason: reason, Detail: detail}
	}

	question := strings.TrimSpace(c.Question)
	if question == "" {
		return skip(models.SkipEmptyQuestion, "")
	}

	var opts []string
	correct := -1
	if answer := strings.TrimSpace(c.AnswerText); answer != "" {
		for _, o := range c.Options {
			if o = strings.TrimSpace(o); o != "" {
				opts = append(opts, o)
			}
		}
		for i, o := range opts {
			if o == answer {
				correct = i
				break
			}
		}
		if correct < 0 {
			opts = append(opts, answer)
			correct = len(opts) - 1
		}
	} else {
		if c.Correct < 0 || c.Correct >= len(c.Options) {
			return skip(models.SkipAnswerOutOfRange, fmt.Sprintf("index %d with %d options", c.Correct, len(c.Options)))
		}
		for i, o := range c.Options {
			o = strings.TrimSpace(o)
			if o == "" {
				if i == c.Correct {
					return skip(models.SkipEmptyCorrectOption, fmt.Sprintf("option %d", i+1))
				}
				continue
			}
			if i == c.Correct {
				correct = len(opts)
			}
			opts = append(opts, o)
		}
	}

	if len(opts) > models.MaxOptions {
		if correct >= models.MaxOptions {
			kept := append([]string(nil), opts[:models.MaxOptions-1]...)
			opts = append(kept, opts[correct])
			correct = models.MaxOptions - 1
		} else {
			opts = opts[:models.MaxOptions]
		}
	}

	if len(opts) < models.MinOptions {
		if filler == "" {
			filler = DefaultFiller
		}
		if len(opts) == 1 && opts[0] == filler {
			filler = fallbackFiller
		}
		opts = append(opts, filler)
	}

	return models.QuestionRecord{
		Question:        question,
		Options:         opts,
		CorrectOptionID: correct,
	}, nil
}
