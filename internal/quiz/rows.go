package quiz

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/quizcast/internal/models"
)

// FromRows converts tabular rows into records. Each row is
// question, option..., correct answer text. Rows are not deduplicated.
func FromRows(rows [][]string, opts ...Option) *Result {
	o := buildOptions(opts)
	res := &Result{}
	for i, row := range rows {
		source := fmt.Sprintf("row %d", i+1)
		c, skip := rowCandidate(source, row)
		if skip == nil {
			var rec models.QuestionRecord
			rec, skip = Validate(c, o.filler)
			if skip == nil {
				res.Records = append(res.Records, rec)
				continue
			}
		}
		o.logger.Debug("row skipped", zap.String("source", source), zap.String("reason", string(skip.Reason)))
		res.Skips = append(res.Skips, *skip)
	}
	return res
}

func rowCandidate(source string, row []string) (Candidate, *models.Skip) {
	if len(row) < 2 {
		return Candidate{}, &models.Skip{Source: source, Reason: models.SkipTooFewCells, Detail: fmt.Sprintf("%d cells", len(row))}
	}
	question := strings.TrimSpace(row[0])
	if question == "" {
		return Candidate{}, &models.Skip{Source: source, Reason: models.SkipEmptyQuestion}
	}
	answer := strings.TrimSpace(row[len(row)-1])
	if answer == "" {
		return Candidate{}, &models.Skip{Source: source, Reason: models.SkipEmptyAnswer}
	}
	return Candidate{
		Source:     source,
		Question:   question,
		Options:    row[1 : len(row)-1],
		Correct:    -1,
		AnswerText: answer,
	}, nil
}
