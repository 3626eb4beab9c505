// Package gate enforces a minimum interval between accepted submissions per requester.
package gate

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrTooSoon matches every rejection returned by Allow.
var ErrTooSoon = errors.New("submission too soon")

// WaitError is returned when a requester submits again inside the interval.
type WaitError struct {
	Remaining time.Duration
}

func (e *WaitError) Error() string {
	return fmt.Sprintf("please wait %d seconds before sending another file", e.Seconds())
}

// Is reports ErrTooSoon so callers can use errors.Is.
func (e *WaitError) Is(target error) bool { return target == ErrTooSoon }

// Seconds returns the remaining wait rounded up to whole seconds.
func (e *WaitError) Seconds() int {
	return int(math.Ceil(e.Remaining.Seconds()))
}

// Store persists last-accepted times so the gate survives restarts.
type Store interface {
	RecordSubmission(ctx context.Context, requester string, at time.Time) error
	LastSubmission(ctx context.Context, requester string) (time.Time, bool, error)
}

// Gate tracks the last accepted submission per requester.
type Gate struct {
	mu       sync.Mutex
	interval time.Duration
	last     map[string]time.Time
	store    Store
	now      func() time.Time
	logger   *zap.Logger
}

// Option configures a Gate.
type Option func(*Gate)

// WithLogger sets the logger for the gate.
func WithLogger(l *zap.Logger) Option {
	return func(g *Gate) {
		g.logger = l
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(g *Gate) {
		g.now = now
	}
}

// New returns a gate enforcing interval. store may be nil for an in-memory gate.
func New(interval time.Duration, store Store, opts ...Option) *Gate {
	g := &Gate{
		interval: interval,
		last:     make(map[string]time.Time),
		store:    store,
		now:      time.Now,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Allow accepts a submission from requester and records it, or returns a
// *WaitError with the remaining time. Rejections do not reset the interval.
// An empty requester is never limited. Store failures are logged and the
// in-memory state is used.
func (g *Gate) Allow(ctx context.Context, requester string) error {
	if requester == "" || g.interval <= 0 {
		return nil
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	last, ok := g.last[requester]
	if !ok && g.store != nil {
		at, found, err := g.store.LastSubmission(ctx, requester)
		if err != nil {
			g.logger.Warn("failed to load last submission", zap.String("requester", requester), zap.Error(err))
		} else if found {
			last, ok = at, true
		}
	}
	if ok {
		if elapsed := now.Sub(last); elapsed < g.interval {
			g.logger.Debug("submission rejected",
				zap.String("requester", requester),
				zap.Duration("remaining", g.interval-elapsed))
			return &WaitError{Remaining: g.interval - elapsed}
		}
	}

	g.last[requester] = now
	if g.store != nil {
		if err := g.store.RecordSubmission(ctx, requester, now); err != nil {
			g.logger.Warn("failed to record submission", zap.String("requester", requester), zap.Error(err))
		}
	}
	return nil
}
