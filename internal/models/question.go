// Package models defines core data structures for quiz questions, skips, and publish runs.
package models

// Poll format limits on the number of options.
const (
	MinOptions = 2
	MaxOptions = 10
)

// QuestionRecord is one validated multiple-choice question ready to publish.
type QuestionRecord struct {
	Question        string   `json:"question"`
	Options         []string `json:"options"`
	CorrectOptionID int      `json:"correct_option_id"`
}

// Valid reports whether the record satisfies the option-count and answer-index invariants.
func (q QuestionRecord) Valid() bool {
	n := len(q.Options)
	return q.Question != "" && n >= MinOptions && n <= MaxOptions &&
		q.CorrectOptionID >= 0 && q.CorrectOptionID < n
}

// CorrectOption returns the text of the correct option.
func (q QuestionRecord) CorrectOption() string {
	if q.CorrectOptionID < 0 || q.CorrectOptionID >= len(q.Options) {
		return ""
	}
	return q.Options[q.CorrectOptionID]
}

// SkipReason tags why an attempted unit did not become a record.
type SkipReason string

const (
	SkipDuplicate          SkipReason = "duplicate"
	SkipAnswerOutOfRange   SkipReason = "answer_out_of_range"
	SkipEmptyQuestion      SkipReason = "empty_question"
	SkipEmptyAnswer        SkipReason = "empty_answer"
	SkipTooFewCells        SkipReason = "too_few_cells"
	SkipEmptyCorrectOption SkipReason = "empty_correct_option"
	SkipUnknownAlphabet    SkipReason = "unknown_alphabet"
	SkipTooManyOptions     SkipReason = "too_many_options"
)

// Skip records one grammar match or row that was dropped, and why.
type Skip struct {
	Source string     `json:"source"`
	Reason SkipReason `json:"reason"`
	Detail string     `json:"detail,omitempty"`
}

// Outcome is the per-record result of a publish run.
type Outcome string

const (
	OutcomeSent    Outcome = "sent"
	OutcomeSkipped Outcome = "skipped"
	OutcomeFailed  Outcome = "failed"
)
