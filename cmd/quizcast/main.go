// Package main is the quizcast CLI entry point.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/hyperjump/quizcast/internal/cli"
	"github.com/hyperjump/quizcast/internal/config"
	"github.com/hyperjump/quizcast/internal/dispatch"
	"github.com/hyperjump/quizcast/internal/extract"
	"github.com/hyperjump/quizcast/internal/gate"
	"github.com/hyperjump/quizcast/internal/processor"
	"github.com/hyperjump/quizcast/internal/quiz"
	"github.com/hyperjump/quizcast/internal/server"
	"github.com/hyperjump/quizcast/internal/storage"
	"github.com/hyperjump/quizcast/internal/telegram"
	"github.com/hyperjump/quizcast/internal/watcher"
	"github.com/hyperjump/quizcast/pkg/utils"
	"go.uber.org/zap"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/quizcast/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development); if that exists it is used.
// Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// loadConfigOrDefaults is loadConfig for commands that can run without a
// config file. A missing default config yields built-in defaults plus env.
func loadConfigOrDefaults(path string) (*config.Config, error) {
	cfg, _, err := loadConfig(path)
	if err == nil {
		return cfg, nil
	}
	if path != defaultConfigPath || !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	cfg = &config.Config{}
	if err := config.ApplyEnv(cfg); err != nil {
		return nil, err
	}
	config.ApplyDefaults(cfg)
	return cfg, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "publish":
		runPublish()
	case "extract":
		runExtract()
	case "version", "--version", "-v":
		fmt.Printf("quizcast version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging (inbox events, grammar matches, etc.)")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
		zap.Int64("chat_id", cfg.Telegram.ChatID),
	)

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	proc := components.Processor
	watchSvc := watcher.NewWatcher(
		cfg.Watch.Directories,
		cfg.Watch.Extensions,
		func(ctx context.Context, path string) error {
			run, err := proc.SubmitFile(ctx, path, "")
			if err != nil {
				return err
			}
			logger.Info("inbox run done", zap.String("run_id", run.ID), zap.String("summary", run.Summary()))
			return nil
		},
		watcher.WithLogger(logger),
		watcher.WithProcessedDir(cfg.Watch.ProcessedDir),
	)
	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if len(cfg.Watch.Directories) > 0 {
		if err := watchSvc.Start(watchCtx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		go watchSvc.SyncExistingFiles()
	}

	srv := server.NewServer(proc, components.Storage, cfg, logger)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	watchCancel()
	watchSvc.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

// argsReorder moves any flags (and their values) that appear after the
// positional file argument to the front so flag.Parse sees them.
func argsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

func runPublish() {
	fs := flag.NewFlagSet("publish", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	requester := fs.String("requester", "", "requester id for the submission gate (empty = no gate)")
	outputFormat := fs.String("format", "text", "output format: text or json")
	_ = fs.Parse(argsReorder(os.Args[2:]))

	if fs.NArg() < 1 {
		fmt.Println("Usage: quizcast publish [flags] <file>")
		os.Exit(1)
	}
	format, err := cli.ParseFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	// Interrupting stops at the next batch boundary.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	run, err := components.Processor.SubmitFile(ctx, fs.Arg(0), *requester)
	var empty *processor.EmptyError
	switch {
	case errors.As(err, &empty):
		fmt.Fprintf(os.Stderr, "No questions found in %s.\n", empty.Source)
		if empty.Excerpt != "" {
			fmt.Fprintf(os.Stderr, "\nDocument starts with:\n%s\n", empty.Excerpt)
		}
		os.Exit(2)
	case err != nil:
		fmt.Fprintf(os.Stderr, "Publish failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteRun(os.Stdout, run, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runExtract() {
	fs := flag.NewFlagSet("extract", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (optional)")
	outputFormat := fs.String("format", "text", "output format: text or json")
	_ = fs.Parse(argsReorder(os.Args[2:]))

	if fs.NArg() < 1 {
		fmt.Println("Usage: quizcast extract [--format text|json] <file>")
		os.Exit(1)
	}
	format, err := cli.ParseFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	cfg, err := loadConfigOrDefaults(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	out, err := extractFile(fs.Arg(0), cfg.Intake.FillerOption, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Extraction failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteExtraction(os.Stdout, out, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

// extractFile reads one document and runs it through the grammars or the
// row adapter without publishing anything.
func extractFile(path, filler string, logger *zap.Logger) (*cli.Extraction, error) {
	doc, err := extract.NewExtractor(extract.WithLogger(logger)).Extract(path)
	if err != nil {
		return nil, err
	}
	opts := []quiz.Option{quiz.WithLogger(logger), quiz.WithFiller(filler)}
	var res *quiz.Result
	if doc.Tabular() {
		res = quiz.FromRows(doc.Rows, opts...)
	} else {
		res = quiz.Extract(doc.Text, opts...)
	}
	return cli.NewExtraction(filepath.Base(path), res), nil
}

// Components holds initialized services.
type Components struct {
	Storage    *storage.SQLiteStorage
	Telegram   *telegram.Client
	Dispatcher *dispatch.Dispatcher
	Processor  *processor.Processor
}

func (c *Components) Close() {
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Storage.DatabasePath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	client, err := telegram.NewClient(&cfg.Telegram, telegram.WithLogger(logger))
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize telegram client: %w", err)
	}

	dispatcher := dispatch.New(client, cfg.Dispatch, dispatch.WithLogger(logger))
	submissions := gate.New(cfg.Intake.MinInterval, store, gate.WithLogger(logger))
	proc := processor.New(
		extract.NewExtractor(extract.WithLogger(logger)),
		submissions,
		store,
		dispatcher,
		cfg.Intake,
		processor.WithLogger(logger),
		processor.WithNotifier(client),
	)

	return &Components{
		Storage:    store,
		Telegram:   client,
		Dispatcher: dispatcher,
		Processor:  proc,
	}, nil
}

func printUsage() {
	fmt.Printf(`quizcast - Turn quiz documents into paced Telegram quiz polls

Usage:
  quizcast server [flags]            Start the HTTP server and inbox watcher
  quizcast publish [flags] <file>    Extract a document and publish its questions
  quizcast extract [flags] <file>    Extract questions and print them (no publishing)
  quizcast version                   Show version
  quizcast help                      Show this help

Server Flags:
  --config string    Config file path (default: %[1]s)
  --debug            Enable debug logging

Publish Flags:
  --config string     Config file path
  --requester string  Requester id checked against the minimum submission interval
  --format string     Output format: text or json (default: text)

Extract Flags:
  --config string    Config file path (optional; defaults apply when missing)
  --format string    Output format: text or json (default: text)

Environment:
  TELEGRAM_TOKEN     Bot token (overrides telegram.token)
  TELEGRAM_CHAT_ID   Target chat id (overrides telegram.chat_id)

Supported formats: %[2]v

Examples:
  quizcast server
  quizcast extract --format json quiz.pdf
  quizcast publish quiz.docx
`, defaultConfigPath, extract.SupportedExtensions())
}
