// Package processor runs one submitted document through the gate, text
// extraction and the quiz pipeline, then publishes the resulting records.
package processor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/quizcast/internal/config"
	"github.com/hyperjump/quizcast/internal/dispatch"
	"github.com/hyperjump/quizcast/internal/extract"
	"github.com/hyperjump/quizcast/internal/gate"
	"github.com/hyperjump/quizcast/internal/models"
	"github.com/hyperjump/quizcast/internal/quiz"
	"github.com/hyperjump/quizcast/internal/storage"
	"github.com/hyperjump/quizcast/pkg/utils"
)

var (
	// ErrNoQuestions matches every *EmptyError.
	ErrNoQuestions = errors.New("no questions found")
	// ErrUpstreamUnavailable is returned when the document cannot be read or has no content.
	ErrUpstreamUnavailable = errors.New("document unreadable or empty")
	// ErrTooLarge is returned when a document exceeds the configured size limit.
	ErrTooLarge = errors.New("document too large")
)

// EmptyError reports a readable document in which no question survived.
// Excerpt shows the start of the text to help fix the format.
type EmptyError struct {
	Source  string
	Excerpt string
	Skips   []models.Skip
}

func (e *EmptyError) Error() string {
	return fmt.Sprintf("no questions found in %s", e.Source)
}

func (e *EmptyError) Unwrap() error { return ErrNoQuestions }

// Publisher publishes validated records. *dispatch.Dispatcher implements it.
type Publisher interface {
	Publish(ctx context.Context, records []models.QuestionRecord) dispatch.Result
}

// Notifier receives the final summary of each run.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// Submission is one document handed in for publishing.
type Submission struct {
	Source    string
	Requester string
	Ext       string
	Content   []byte
}

// Prepared is a stored run together with the records waiting to be published.
type Prepared struct {
	Run     *models.Run
	Records []models.QuestionRecord
}

// Processor owns the intake pipeline. Publish runs are serialized so two
// documents never interleave batches in the same chat.
type Processor struct {
	extractor *extract.Extractor
	gate      *gate.Gate
	store     storage.Storage
	publisher Publisher
	notifier  Notifier
	cfg       config.IntakeConfig
	logger    *zap.Logger
	now       func() time.Time

	publishMu sync.Mutex
}

// Option configures a Processor.
type Option func(*Processor)

// WithLogger sets the logger for the processor.
func WithLogger(l *zap.Logger) Option {
	return func(p *Processor) {
		p.logger = l
	}
}

// WithNotifier posts the summary of every finished run to n.
func WithNotifier(n Notifier) Option {
	return func(p *Processor) {
		p.notifier = n
	}
}

// New creates a processor. g may be nil to disable the submission gate.
func New(extractor *extract.Extractor, g *gate.Gate, store storage.Storage, publisher Publisher, cfg config.IntakeConfig, opts ...Option) *Processor {
	p := &Processor{
		extractor: extractor,
		gate:      g,
		store:     store,
		publisher: publisher,
		cfg:       cfg,
		logger:    zap.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Prepare checks the submission, extracts and validates its questions and
// stores a queued run. A document without questions is stored with status
// empty and reported as *EmptyError.
func (p *Processor) Prepare(ctx context.Context, sub Submission) (*Prepared, error) {
	ext := strings.ToLower(sub.Ext)
	if ext == "" {
		ext = strings.ToLower(filepath.Ext(sub.Source))
	}
	if !extract.Supported(ext) {
		return nil, fmt.Errorf("%w: %q", extract.ErrUnsupportedFormat, ext)
	}
	if limit := p.cfg.MaxFileSizeBytes(); limit > 0 && int64(len(sub.Content)) > limit {
		return nil, fmt.Errorf("%w: %d bytes, limit %d", ErrTooLarge, len(sub.Content), limit)
	}
	if p.gate != nil {
		if err := p.gate.Allow(ctx, sub.Requester); err != nil {
			return nil, err
		}
	}

	doc, err := p.extractor.ExtractBytes(sub.Content, ext)
	if err != nil {
		p.logger.Warn("failed to read document", zap.String("source", sub.Source), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	if doc.Empty() {
		return nil, fmt.Errorf("%w: %s has no content", ErrUpstreamUnavailable, sub.Source)
	}

	opts := []quiz.Option{quiz.WithLogger(p.logger), quiz.WithFiller(p.cfg.FillerOption)}
	var res *quiz.Result
	if doc.Tabular() {
		res = quiz.FromRows(doc.Rows, opts...)
	} else {
		res = quiz.Extract(doc.Text, opts...)
	}

	now := p.now()
	run := &models.Run{
		ID:        uuid.NewString(),
		Source:    sub.Source,
		Requester: sub.Requester,
		Status:    models.RunQueued,
		Total:     len(res.Records),
		Rejected:  len(res.Skips),
		Skips:     res.Skips,
		CreatedAt: now,
	}
	p.logger.Info("document extracted",
		zap.String("run_id", run.ID),
		zap.String("source", sub.Source),
		zap.Int("records", run.Total),
		zap.Int("rejected", run.Rejected))

	if len(res.Records) == 0 {
		run.Status = models.RunEmpty
		run.Excerpt = utils.Excerpt(documentText(doc), p.cfg.ExcerptLength)
		run.FinishedAt = &now
		if err := p.store.CreateRun(ctx, run); err != nil {
			return nil, fmt.Errorf("failed to store run: %w", err)
		}
		return nil, &EmptyError{Source: sub.Source, Excerpt: run.Excerpt, Skips: res.Skips}
	}

	if err := p.store.CreateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to store run: %w", err)
	}
	return &Prepared{Run: run, Records: res.Records}, nil
}

// Publish sends the prepared records and stores the final tally. It waits
// for any other run in progress. Cancelling ctx stops at the next batch
// boundary and marks the run cancelled.
func (p *Processor) Publish(ctx context.Context, prep *Prepared) (*models.Run, error) {
	p.publishMu.Lock()
	defer p.publishMu.Unlock()

	run := prep.Run
	// The final state is stored even after cancellation.
	persist := context.WithoutCancel(ctx)

	run.Status = models.RunPublishing
	if err := p.store.UpdateRun(persist, run); err != nil {
		return nil, fmt.Errorf("failed to update run: %w", err)
	}

	res := p.publisher.Publish(ctx, prep.Records)
	finished := p.now()
	run.Sent, run.Failed, run.Skipped = res.Sent, res.Failed, res.Skipped
	run.FinishedAt = &finished
	run.Status = models.RunCompleted
	if res.Skipped > 0 {
		run.Status = models.RunCancelled
	}
	if err := p.store.UpdateRun(persist, run); err != nil {
		return nil, fmt.Errorf("failed to update run: %w", err)
	}

	p.logger.Info("run finished",
		zap.String("run_id", run.ID),
		zap.String("status", string(run.Status)),
		zap.Int("sent", run.Sent),
		zap.Int("failed", run.Failed),
		zap.Int("skipped", run.Skipped))
	p.notify(persist, run.Summary())
	return run, nil
}

// Cancel marks a prepared run cancelled without publishing any of it.
func (p *Processor) Cancel(ctx context.Context, prep *Prepared) (*models.Run, error) {
	run := prep.Run
	finished := p.now()
	run.Status = models.RunCancelled
	run.Skipped = run.Total
	run.FinishedAt = &finished
	if err := p.store.UpdateRun(context.WithoutCancel(ctx), run); err != nil {
		return nil, fmt.Errorf("failed to update run: %w", err)
	}
	p.logger.Info("run cancelled before publishing", zap.String("run_id", run.ID), zap.Int("skipped", run.Skipped))
	return run, nil
}

// Submit prepares and publishes sub in one call.
func (p *Processor) Submit(ctx context.Context, sub Submission) (*models.Run, error) {
	prep, err := p.Prepare(ctx, sub)
	if err != nil {
		return nil, err
	}
	return p.Publish(ctx, prep)
}

// SubmitFile reads the file at path and submits it under requester.
func (p *Processor) SubmitFile(ctx context.Context, path, requester string) (*models.Run, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	return p.Submit(ctx, Submission{
		Source:    filepath.Base(path),
		Requester: requester,
		Ext:       filepath.Ext(path),
		Content:   content,
	})
}

func (p *Processor) notify(ctx context.Context, text string) {
	if p.notifier == nil {
		return
	}
	if err := p.notifier.Notify(ctx, text); err != nil {
		p.logger.Debug("summary notification failed", zap.Error(err))
	}
}

// documentText renders a document for the diagnostic excerpt.
func documentText(doc *extract.Document) string {
	if !doc.Tabular() {
		return doc.Text
	}
	lines := make([]string, len(doc.Rows))
	for i, row := range doc.Rows {
		lines[i] = strings.Join(row, ",")
	}
	return strings.Join(lines, "\n")
}
