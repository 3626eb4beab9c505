package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hyperjump/quizcast/internal/config"
	"github.com/hyperjump/quizcast/internal/models"
	"github.com/hyperjump/quizcast/internal/watcher"
	"go.uber.org/zap"
)

// botAPI records Bot API calls and answers every one successfully.
type botAPI struct {
	mu    sync.Mutex
	polls []string
	texts []string
}

func (b *botAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	method := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
	b.mu.Lock()
	switch method {
	case "sendPoll":
		b.polls = append(b.polls, r.PostForm.Get("question"))
	case "sendMessage":
		b.texts = append(b.texts, r.PostForm.Get("text"))
	}
	b.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	if method == "getMe" {
		_, _ = w.Write([]byte(`{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"q","username":"q"}}`))
		return
	}
	_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":7,"type":"group"}}}`))
}

func (b *botAPI) snapshot() (polls, texts []string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.polls...), append([]string(nil), b.texts...)
}

func newPipeline(t *testing.T) (*Components, *botAPI, *config.Config) {
	t.Helper()
	api := &botAPI{}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	cfg := &config.Config{
		Storage:  config.StorageConfig{DatabasePath: filepath.Join(dir, "data", "quizcast.db")},
		Telegram: config.TelegramConfig{Token: "123:abc", ChatID: 7, APIEndpoint: srv.URL + "/bot%s/%s"},
		Dispatch: config.DispatchConfig{
			BatchSize:     2,
			PacingDelay:   time.Millisecond,
			BatchDelay:    time.Millisecond,
			ExtendedDelay: time.Millisecond,
		},
	}
	config.ApplyDefaults(cfg)

	components, err := initializeComponents(cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("initializeComponents: %v", err)
	}
	t.Cleanup(components.Close)
	return components, api, cfg
}

const pipelineQuiz = `Chapter 1

1- What is 2+2?
a) 3
b) 4
c) 5
Answer: b

2- Capital of France?
a) Paris
b) Rome
Answer: a

3- Largest planet?
a) Mars
b) Jupiter
Answer: b
`

func TestPipeline_publishFile(t *testing.T) {
	components, api, _ := newPipeline(t)
	path := filepath.Join(t.TempDir(), "quiz.txt")
	if err := os.WriteFile(path, []byte(pipelineQuiz), 0600); err != nil {
		t.Fatal(err)
	}

	run, err := components.Processor.SubmitFile(context.Background(), path, "alice")
	if err != nil {
		t.Fatalf("SubmitFile: %v", err)
	}
	if run.Status != models.RunCompleted || run.Total != 3 || run.Sent != 3 {
		t.Fatalf("run = %+v", run)
	}

	polls, texts := api.snapshot()
	if len(polls) != 3 || !strings.Contains(polls[0], "What is 2+2?") || !strings.Contains(polls[2], "Largest planet?") {
		t.Errorf("polls = %q", polls)
	}
	joined := strings.Join(texts, "\n")
	for _, want := range []string{"Sending 3 questions...", "Sent 2/3 questions... (2 successful, 0 failed)", "Done: 3 of 3 questions sent"} {
		if !strings.Contains(joined, want) {
			t.Errorf("notifications missing %q: %q", want, texts)
		}
	}

	stored, err := components.Storage.GetRun(context.Background(), run.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Status != models.RunCompleted || stored.Sent != 3 {
		t.Errorf("stored run = %+v", stored)
	}

	// A second file from the same requester inside the interval is refused.
	if _, err := components.Processor.SubmitFile(context.Background(), path, "alice"); err == nil {
		t.Error("expected the submission gate to refuse a second file")
	}
}

func TestPipeline_inboxFile(t *testing.T) {
	components, api, cfg := newPipeline(t)
	inbox := t.TempDir()
	if err := os.WriteFile(filepath.Join(inbox, "quiz.txt"), []byte(pipelineQuiz), 0600); err != nil {
		t.Fatal(err)
	}

	w := watcher.NewWatcher([]string{inbox}, cfg.Watch.Extensions, func(ctx context.Context, path string) error {
		_, err := components.Processor.SubmitFile(ctx, path, "")
		return err
	}, watcher.WithProcessedDir(cfg.Watch.ProcessedDir))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()
	w.SyncExistingFiles()

	if _, err := os.Stat(filepath.Join(inbox, "processed", "quiz.txt")); err != nil {
		t.Errorf("inbox file not moved: %v", err)
	}
	if polls, _ := api.snapshot(); len(polls) != 3 {
		t.Errorf("polls = %d, want 3", len(polls))
	}
}
