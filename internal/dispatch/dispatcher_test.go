package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hyperjump/quizcast/internal/config"
	"github.com/hyperjump/quizcast/internal/models"
)

type fakeTarget struct {
	mu        sync.Mutex
	attempts  map[string]int
	sent      []string
	notes     []string
	fail      func(q models.QuestionRecord, attempt int) error
	notifyErr error
}

func newFakeTarget() *fakeTarget {
	return &fakeTarget{attempts: map[string]int{}}
}

func (f *fakeTarget) SendQuiz(_ context.Context, q models.QuestionRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts[q.Question]++
	if f.fail != nil {
		if err := f.fail(q, f.attempts[q.Question]); err != nil {
			return err
		}
	}
	f.sent = append(f.sent, q.Question)
	return nil
}

func (f *fakeTarget) Notify(_ context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notes = append(f.notes, text)
	return f.notifyErr
}

type recordingSleep struct {
	mu    sync.Mutex
	waits []time.Duration
	hook  func(d time.Duration)
}

func (r *recordingSleep) sleep(_ context.Context, d time.Duration) {
	r.mu.Lock()
	r.waits = append(r.waits, d)
	r.mu.Unlock()
	if r.hook != nil {
		r.hook(d)
	}
}

func (r *recordingSleep) count(d time.Duration) int {
	n := 0
	for _, w := range r.waits {
		if w == d {
			n++
		}
	}
	return n
}

func makeRecords(n int) []models.QuestionRecord {
	out := make([]models.QuestionRecord, n)
	for i := range out {
		out[i] = models.QuestionRecord{
			Question:        fmt.Sprintf("q%d", i),
			Options:         []string{"a", "b"},
			CorrectOptionID: 0,
		}
	}
	return out
}

func defaultConfig() config.DispatchConfig {
	var cfg config.DispatchConfig
	config.ApplyDispatchDefaults(&cfg)
	return cfg
}

func countPrefix(notes []string, prefix string) int {
	n := 0
	for _, s := range notes {
		if strings.HasPrefix(s, prefix) {
			n++
		}
	}
	return n
}

func TestPublish_batchesAndPacing(t *testing.T) {
	target := newFakeTarget()
	sleeper := &recordingSleep{}
	cfg := defaultConfig()
	d := New(target, cfg, WithSleep(sleeper.sleep))

	res := d.Publish(context.Background(), makeRecords(12))

	if res.Total != 12 || res.Sent != 12 || res.Failed != 0 || res.Skipped != 0 {
		t.Fatalf("unexpected tally: %+v", res)
	}
	for i, q := range target.sent {
		if want := fmt.Sprintf("q%d", i); q != want {
			t.Fatalf("sent[%d] = %s, want %s", i, q, want)
		}
	}
	if target.notes[0] != "Sending 12 questions..." {
		t.Errorf("first notification = %q", target.notes[0])
	}
	if got := countPrefix(target.notes, "Sent "); got != 2 {
		t.Errorf("progress notifications = %d, want 2", got)
	}
	if target.notes[1] != "Sent 5/12 questions... (5 successful, 0 failed)" {
		t.Errorf("progress = %q", target.notes[1])
	}
	if got := sleeper.count(cfg.PacingDelay); got != 12 {
		t.Errorf("pacing sleeps = %d, want 12", got)
	}
	if got := sleeper.count(cfg.BatchDelay); got != 2 {
		t.Errorf("batch sleeps = %d, want 2", got)
	}
	if got := sleeper.count(cfg.ExtendedDelay); got != 0 {
		t.Errorf("extended sleeps = %d, want 0", got)
	}
	for _, o := range res.Outcomes {
		if o != models.OutcomeSent {
			t.Fatalf("outcome = %s", o)
		}
	}
}

func TestPublish_empty(t *testing.T) {
	target := newFakeTarget()
	res := New(target, defaultConfig(), WithSleep(func(context.Context, time.Duration) {})).Publish(context.Background(), nil)
	if res.Total != 0 || len(target.notes) != 0 {
		t.Errorf("empty publish should do nothing: %+v notes=%v", res, target.notes)
	}
}

func TestPublish_rateLimitRetrySucceeds(t *testing.T) {
	target := newFakeTarget()
	target.fail = func(q models.QuestionRecord, attempt int) error {
		if q.Question == "q2" && attempt == 1 {
			return &RateLimitError{RetryAfter: 10 * time.Second}
		}
		return nil
	}
	sleeper := &recordingSleep{}
	d := New(target, defaultConfig(), WithSleep(sleeper.sleep))

	res := d.Publish(context.Background(), makeRecords(4))

	if res.Sent != 4 || res.Failed != 0 {
		t.Fatalf("unexpected tally: %+v", res)
	}
	if target.attempts["q2"] != 2 {
		t.Errorf("attempts = %d, want 2", target.attempts["q2"])
	}
	if got := sleeper.count(15 * time.Second); got != 1 {
		t.Errorf("expected one 15s wait (hint + padding), waits=%v", sleeper.waits)
	}
	if res.Outcomes[2] != models.OutcomeSent {
		t.Errorf("outcome = %s", res.Outcomes[2])
	}
}

func TestPublish_rateLimitRetryFailsOnce(t *testing.T) {
	target := newFakeTarget()
	target.fail = func(q models.QuestionRecord, _ int) error {
		if q.Question == "q1" {
			return errors.New("Too Many Requests: retry after 7")
		}
		return nil
	}
	sleeper := &recordingSleep{}
	d := New(target, defaultConfig(), WithSleep(sleeper.sleep))

	res := d.Publish(context.Background(), makeRecords(3))

	if target.attempts["q1"] != 2 {
		t.Errorf("attempts = %d, want exactly 2", target.attempts["q1"])
	}
	if res.Sent != 2 || res.Failed != 1 {
		t.Errorf("unexpected tally: %+v", res)
	}
	if res.Outcomes[1] != models.OutcomeFailed {
		t.Errorf("outcome = %s", res.Outcomes[1])
	}
	if sleeper.count(12*time.Second) != 1 {
		t.Errorf("expected 12s wait before retry, waits=%v", sleeper.waits)
	}
}

func TestPublish_floodControlWithoutHint(t *testing.T) {
	target := newFakeTarget()
	target.fail = func(q models.QuestionRecord, attempt int) error {
		if q.Question == "q0" && attempt == 1 {
			return errors.New("Flood control exceeded")
		}
		return nil
	}
	sleeper := &recordingSleep{}
	cfg := defaultConfig()
	res := New(target, cfg, WithSleep(sleeper.sleep)).Publish(context.Background(), makeRecords(1))

	if res.Sent != 1 || res.Failed != 0 {
		t.Fatalf("unexpected tally: %+v", res)
	}
	if got := sleeper.count(cfg.RateLimitDefault); got != 1 {
		t.Errorf("default rate-limit waits = %d, waits=%v", got, sleeper.waits)
	}
	if countPrefix(target.notes, "Rate limit reached") != 1 {
		t.Errorf("expected a pause notification, notes=%v", target.notes)
	}
}

func TestPublish_otherFailureNotRetried(t *testing.T) {
	target := newFakeTarget()
	target.fail = func(q models.QuestionRecord, _ int) error {
		if q.Question == "q0" {
			return errors.New("Bad Request: poll options must be unique")
		}
		return nil
	}
	sleeper := &recordingSleep{}
	cfg := defaultConfig()
	res := New(target, cfg, WithSleep(sleeper.sleep)).Publish(context.Background(), makeRecords(2))

	if target.attempts["q0"] != 1 {
		t.Errorf("attempts = %d, want 1", target.attempts["q0"])
	}
	if res.Sent != 1 || res.Failed != 1 {
		t.Errorf("unexpected tally: %+v", res)
	}
	if got := sleeper.count(cfg.PacingDelay); got != 1 {
		t.Errorf("pacing only follows successful sends: got %d", got)
	}
}

func TestPublish_extendedCooldown(t *testing.T) {
	target := newFakeTarget()
	sleeper := &recordingSleep{}
	cfg := defaultConfig()
	res := New(target, cfg, WithSleep(sleeper.sleep)).Publish(context.Background(), makeRecords(26))

	if res.Sent != 26 {
		t.Fatalf("unexpected tally: %+v", res)
	}
	if got := sleeper.count(cfg.BatchDelay); got != 5 {
		t.Errorf("batch sleeps = %d, want 5", got)
	}
	if got := sleeper.count(cfg.ExtendedDelay); got != 1 {
		t.Errorf("extended sleeps = %d, want 1", got)
	}
	if got := countPrefix(target.notes, "Taking a longer break"); got != 1 {
		t.Errorf("extended notifications = %d, want 1", got)
	}
}

func TestPublish_noExtendedCooldownAfterLastBatch(t *testing.T) {
	target := newFakeTarget()
	sleeper := &recordingSleep{}
	cfg := defaultConfig()
	New(target, cfg, WithSleep(sleeper.sleep)).Publish(context.Background(), makeRecords(25))

	if got := sleeper.count(cfg.ExtendedDelay); got != 0 {
		t.Errorf("extended sleeps = %d, want 0", got)
	}
}

func TestPublish_cancelAtBatchBoundary(t *testing.T) {
	target := newFakeTarget()
	cfg := defaultConfig()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sleeper := &recordingSleep{}
	sleeper.hook = func(d time.Duration) {
		// Cancel in the middle of the first batch; the batch still completes.
		if len(target.sent) == 2 {
			cancel()
		}
	}
	res := New(target, cfg, WithSleep(sleeper.sleep)).Publish(ctx, makeRecords(12))

	if res.Sent != 5 || res.Skipped != 7 || res.Failed != 0 {
		t.Fatalf("unexpected tally: %+v", res)
	}
	for i, o := range res.Outcomes {
		want := models.OutcomeSent
		if i >= 5 {
			want = models.OutcomeSkipped
		}
		if o != want {
			t.Errorf("outcome[%d] = %s, want %s", i, o, want)
		}
	}
}

func TestPublish_alreadyCancelled(t *testing.T) {
	target := newFakeTarget()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := New(target, defaultConfig(), WithSleep(func(context.Context, time.Duration) {})).Publish(ctx, makeRecords(3))
	if res.Sent != 0 || res.Skipped != 3 {
		t.Errorf("unexpected tally: %+v", res)
	}
}

func TestPublish_notifyFailureIgnored(t *testing.T) {
	target := newFakeTarget()
	target.notifyErr = errors.New("chat not found")
	res := New(target, defaultConfig(), WithSleep(func(context.Context, time.Duration) {})).Publish(context.Background(), makeRecords(7))
	if res.Sent != 7 || res.Failed != 0 {
		t.Errorf("unexpected tally: %+v", res)
	}
}

func TestPublish_countsInvariant(t *testing.T) {
	target := newFakeTarget()
	target.fail = func(q models.QuestionRecord, attempt int) error {
		switch q.Question {
		case "q3", "q8":
			return errors.New("boom")
		case "q5":
			return &RateLimitError{RetryAfter: time.Second}
		}
		return nil
	}
	res := New(target, defaultConfig(), WithSleep(func(context.Context, time.Duration) {})).Publish(context.Background(), makeRecords(11))
	if res.Sent+res.Failed+res.Skipped != res.Total {
		t.Errorf("sent+failed+skipped != total: %+v", res)
	}
	if res.Failed != 3 {
		t.Errorf("failed = %d, want 3", res.Failed)
	}
}

func TestRateLimitHint(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		hint    time.Duration
		limited bool
	}{
		{"nil", nil, 0, false},
		{"typed with hint", &RateLimitError{RetryAfter: 3 * time.Second}, 3 * time.Second, true},
		{"typed without hint", &RateLimitError{}, 0, true},
		{"wrapped typed", fmt.Errorf("send: %w", &RateLimitError{RetryAfter: time.Second}), time.Second, true},
		{"message hint", errors.New("Too Many Requests: retry after 35"), 35 * time.Second, true},
		{"flood control", errors.New("Flood control exceeded"), 0, true},
		{"too many requests", errors.New("too many requests"), 0, true},
		{"other", errors.New("Bad Request: chat not found"), 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hint, limited := RateLimitHint(tt.err)
			if hint != tt.hint || limited != tt.limited {
				t.Errorf("RateLimitHint() = (%s, %v), want (%s, %v)", hint, limited, tt.hint, tt.limited)
			}
		})
	}
}
