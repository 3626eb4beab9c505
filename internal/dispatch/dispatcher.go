// Package dispatch publishes question records to a poll target in paced
// batches, backing off and retrying once when the target reports flood control.
package dispatch

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/quizcast/internal/config"
	"github.com/hyperjump/quizcast/internal/models"
)

// Target is the external poll surface.
type Target interface {
	SendQuiz(ctx context.Context, q models.QuestionRecord) error
	Notify(ctx context.Context, text string) error
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration)

// Result is the tally of one Publish call. Outcomes is index-aligned with the input.
type Result struct {
	Total    int
	Sent     int
	Failed   int
	Skipped  int
	Outcomes []models.Outcome
}

// Dispatcher publishes records one batch at a time.
type Dispatcher struct {
	target Target
	cfg    config.DispatchConfig
	logger *zap.Logger
	sleep  SleepFunc
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger for the dispatcher.
func WithLogger(l *zap.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = l
	}
}

// WithSleep replaces the wall-clock sleep, mainly for tests.
func WithSleep(fn SleepFunc) Option {
	return func(d *Dispatcher) {
		d.sleep = fn
	}
}

// New creates a dispatcher for target. Zero values in cfg are replaced by the defaults.
func New(target Target, cfg config.DispatchConfig, opts ...Option) *Dispatcher {
	config.ApplyDispatchDefaults(&cfg)
	d := &Dispatcher{
		target: target,
		cfg:    cfg,
		logger: zap.NewNop(),
		sleep:  sleepContext,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Publish sends records in order and returns the tally. Failures never abort
// the run. ctx is only consulted between batches; once it is done the
// remaining records are reported as skipped.
func (d *Dispatcher) Publish(ctx context.Context, records []models.QuestionRecord) Result {
	total := len(records)
	res := Result{Total: total, Outcomes: make([]models.Outcome, total)}
	for i := range res.Outcomes {
		res.Outcomes[i] = models.OutcomeSkipped
	}
	if total == 0 {
		return res
	}

	// A batch in flight runs to completion even if ctx is cancelled.
	work := context.WithoutCancel(ctx)
	d.notify(work, fmt.Sprintf("Sending %d questions...", total))

	size := d.cfg.BatchSize
	batches := (total + size - 1) / size
	for b := 0; b < batches; b++ {
		start := b * size
		if err := ctx.Err(); err != nil {
			d.logger.Info("publish cancelled",
				zap.Int("remaining", total-start),
				zap.Error(err))
			break
		}
		end := min(start+size, total)
		for i := start; i < end; i++ {
			res.Outcomes[i] = d.publishOne(work, i, records[i], &res)
		}
		if end == total {
			break
		}

		d.notify(work, fmt.Sprintf("Sent %d/%d questions... (%d successful, %d failed)", end, total, res.Sent, res.Failed))
		d.sleep(ctx, d.cfg.BatchDelay)
		if (b+1)%d.cfg.ExtendedEvery == 0 {
			d.notify(work, "Taking a longer break...")
			d.sleep(ctx, d.cfg.ExtendedDelay)
		}
	}

	for _, o := range res.Outcomes {
		if o == models.OutcomeSkipped {
			res.Skipped++
		}
	}
	d.logger.Info("publish finished",
		zap.Int("total", res.Total),
		zap.Int("sent", res.Sent),
		zap.Int("failed", res.Failed),
		zap.Int("skipped", res.Skipped))
	return res
}

// publishOne sends a single record, retrying exactly once after a rate limit.
func (d *Dispatcher) publishOne(ctx context.Context, i int, q models.QuestionRecord, res *Result) models.Outcome {
	err := d.target.SendQuiz(ctx, q)
	if err == nil {
		res.Sent++
		d.sleep(ctx, d.cfg.PacingDelay)
		return models.OutcomeSent
	}
	res.Failed++

	hint, limited := RateLimitHint(err)
	if !limited {
		d.logger.Warn("send failed", zap.Int("index", i), zap.Error(err))
		return models.OutcomeFailed
	}

	wait := d.cfg.RateLimitDefault
	if hint > 0 {
		wait = hint + d.cfg.RetryPadding
	}
	d.logger.Warn("rate limited, retrying once",
		zap.Int("index", i),
		zap.Duration("wait", wait),
		zap.Error(err))
	d.notify(ctx, fmt.Sprintf("Rate limit reached. Waiting %d seconds...", int(wait.Round(time.Second)/time.Second)))
	d.sleep(ctx, wait)

	if err := d.target.SendQuiz(ctx, q); err != nil {
		d.logger.Warn("retry failed", zap.Int("index", i), zap.Error(err))
		return models.OutcomeFailed
	}
	res.Sent++
	res.Failed--
	d.sleep(ctx, d.cfg.PacingDelay)
	return models.OutcomeSent
}

func (d *Dispatcher) notify(ctx context.Context, text string) {
	if err := d.target.Notify(ctx, text); err != nil {
		d.logger.Debug("notification failed", zap.String("text", text), zap.Error(err))
	}
}

func sleepContext(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
