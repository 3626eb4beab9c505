package models

import (
	"fmt"
	"time"
)

// RunStatus is the lifecycle state of one document submission.
type RunStatus string

const (
	RunQueued     RunStatus = "queued"
	RunPublishing RunStatus = "publishing"
	RunCompleted  RunStatus = "completed"
	RunCancelled  RunStatus = "cancelled"
	RunEmpty      RunStatus = "empty"
)

// Run is the persisted summary of one document submission and its publish run.
type Run struct {
	ID         string     `json:"id" db:"id"`
	Source     string     `json:"source" db:"source"`
	Requester  string     `json:"requester,omitempty" db:"requester"`
	Status     RunStatus  `json:"status" db:"status"`
	Total      int        `json:"total" db:"total"`
	Sent       int        `json:"sent" db:"sent"`
	Failed     int        `json:"failed" db:"failed"`
	Skipped    int        `json:"skipped" db:"skipped"`
	Rejected   int        `json:"rejected" db:"rejected"`
	Excerpt    string     `json:"excerpt,omitempty" db:"excerpt"`
	Skips      []Skip     `json:"skips,omitempty" db:"skips"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty" db:"finished_at"`
}

// Finished reports whether the run reached a terminal status.
func (r *Run) Finished() bool {
	switch r.Status {
	case RunCompleted, RunCancelled, RunEmpty:
		return true
	}
	return false
}

// Summary returns the final tally message shown to the submitter.
func (r *Run) Summary() string {
	switch r.Status {
	case RunEmpty:
		return fmt.Sprintf("No questions found in %s.", r.Source)
	case RunQueued:
		return fmt.Sprintf("Extracted %d unique questions from %s, queued for publishing.", r.Total, r.Source)
	case RunPublishing:
		return fmt.Sprintf("Publishing %d questions from %s: %d sent, %d failed so far.", r.Total, r.Source, r.Sent, r.Failed)
	}
	msg := fmt.Sprintf("Done: %d of %d questions sent, %d failed", r.Sent, r.Total, r.Failed)
	if r.Skipped > 0 {
		msg += fmt.Sprintf(", %d not sent", r.Skipped)
	}
	if r.Rejected > 0 {
		msg += fmt.Sprintf(", %d rejected while parsing", r.Rejected)
	}
	if r.Status == RunCancelled {
		msg += " (cancelled)"
	}
	return msg + "."
}
