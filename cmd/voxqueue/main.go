package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	audioimpl "github.com/foxseedlab/voxqueue/external/audio"
	configloader "github.com/foxseedlab/voxqueue/external/config"
	eventsimpl "github.com/foxseedlab/voxqueue/external/events"
	transcriberimpl "github.com/foxseedlab/voxqueue/external/transcriber"
	webhookimpl "github.com/foxseedlab/voxqueue/external/webhook"
	"github.com/foxseedlab/voxqueue/internal/audio"
	"github.com/foxseedlab/voxqueue/internal/config"
	"github.com/foxseedlab/voxqueue/internal/orchestrator"
	"github.com/foxseedlab/voxqueue/internal/queue"
	"github.com/foxseedlab/voxqueue/internal/session"
	"github.com/foxseedlab/voxqueue/internal/transcriber"
	"github.com/samber/do/v2"
)

const releaseWait = 100 * time.Millisecond

type options struct {
	record string
	model  string
	prompt string
	files  []string
}

func main() {
	opts := parseFlags()

	cfg := mustLoadConfig()
	if err := applyOverrides(cfg, opts); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	initLogger(cfg)

	injector := setupDI(cfg)
	defer injector.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, injector, opts); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		injector.Shutdown()
		os.Exit(1)
	}
}

func parseFlags() options {
	var opts options
	flag.StringVar(&opts.record, "record", "", "record from the microphone and save under this name")
	flag.StringVar(&opts.model, "model", "", "transcription model: whisper, assemblyai or local-whisper")
	flag.StringVar(&opts.prompt, "prompt", "", "prompt passed to the transcription model")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [-model m] [-prompt p] (-record name | file...)\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	flag.Parse()
	opts.files = flag.Args()
	if (opts.record == "") == (len(opts.files) == 0) {
		flag.Usage()
		os.Exit(2)
	}
	return opts
}

func applyOverrides(cfg *config.Config, opts options) error {
	if opts.model != "" {
		m, err := transcriber.ParseModel(opts.model)
		if err != nil {
			return err
		}
		cfg.TranscribeModel = m
	}
	if opts.prompt != "" {
		cfg.TranscribePrompt = opts.prompt
	}
	return nil
}

func mustLoadConfig() *config.Config {
	cfg, err := configloader.Load()
	if err != nil {
		slog.Error("config validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

// Logs go to stderr so stdout stays readable for the job table.
func initLogger(cfg *config.Config) {
	logLevel := slog.LevelWarn
	if cfg.IsDevelopment() {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))
}

func setupDI(cfg *config.Config) do.Injector {
	injector := do.New()

	do.ProvideValue(injector, cfg)
	audioimpl.RegisterDI(injector)
	transcriberimpl.RegisterDI(injector)
	webhookimpl.RegisterDI(injector)
	eventsimpl.RegisterDI(injector)
	session.RegisterDI(injector)
	orchestrator.RegisterDI(injector)

	return injector
}

func run(ctx context.Context, injector do.Injector, opts options) error {
	orch, err := do.Invoke[*orchestrator.Orchestrator](injector)
	if err != nil {
		return fmt.Errorf("failed to resolve orchestrator: %w", err)
	}

	if opts.record != "" {
		if err := recordAndEnqueue(ctx, injector, orch, opts.record); err != nil {
			return err
		}
	} else if err := loadFiles(orch, opts.files); err != nil {
		return err
	}

	r := newRenderer(os.Stdout, orch.Events())
	go r.Run(ctx)

	summary, err := orch.StartRun(ctx)
	r.Close()
	if err != nil {
		return err
	}

	fmt.Fprintln(os.Stdout)
	fmt.Fprint(os.Stdout, orchestrator.FormatReport(summary.Jobs))
	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d jobs failed", summary.Failed, summary.Completed+summary.Failed)
	}
	return nil
}

func loadFiles(orch *orchestrator.Orchestrator, paths []string) error {
	specs := make([]queue.Spec, 0, len(paths))
	for _, p := range paths {
		blob, err := audio.LoadFile(p)
		if err != nil {
			return err
		}
		specs = append(specs, queue.Spec{FileName: filepath.Base(p), Source: blob})
	}
	return orch.Load(specs)
}

func recordAndEnqueue(ctx context.Context, injector do.Injector, orch *orchestrator.Orchestrator, name string) error {
	recorder, err := do.Invoke[*session.Recorder](injector)
	if err != nil {
		return fmt.Errorf("failed to resolve recorder: %w", err)
	}

	s, err := recorder.Start(ctx)
	if err != nil {
		return errors.New(session.UserMessage(err))
	}
	fmt.Fprintln(os.Stdout, "Recording... press Enter to stop.")

	stopped := waitForStop(ctx, s.Done(), os.Stdin)
	blob, err := recorder.Stop(context.WithoutCancel(ctx), s)
	if err != nil {
		return errors.New(session.UserMessage(err))
	}
	fmt.Fprintf(os.Stdout, "Recorded %ds (%s).\n", s.ElapsedSeconds(), stopped)

	canonical, err := orch.SaveAndEnqueue(ctx, blob, name)
	if err != nil {
		return fmt.Errorf("failed to save recording: %w", err)
	}
	fmt.Fprintf(os.Stdout, "Saved as %s.\n", canonical)
	return nil
}

type deadlineReader interface {
	io.Reader
	SetReadDeadline(t time.Time) error
}

// waitForStop blocks until a newline arrives on in, the session ends on its
// own, or ctx is cancelled.
func waitForStop(ctx context.Context, done <-chan struct{}, in deadlineReader) string {
	enter, exited, release := watchEnter(in)
	defer func() {
		release()
		select {
		case <-exited:
		case <-time.After(releaseWait):
			slog.Debug("stdin reader still blocked after release")
		}
	}()

	select {
	case <-enter:
		return "stopped"
	case <-done:
		return "stopped automatically"
	case <-ctx.Done():
		return "interrupted"
	}
}

// watchEnter closes enter on the first newline read from r. release unblocks a
// pending read and exited is closed once the reader goroutine has returned.
func watchEnter(r deadlineReader) (enter, exited <-chan struct{}, release func()) {
	enterCh := make(chan struct{})
	exitedCh := make(chan struct{})
	go func() {
		defer close(exitedCh)
		buf := make([]byte, 1)
		for {
			n, err := r.Read(buf)
			if n == 1 && buf[0] == '\n' {
				close(enterCh)
				return
			}
			if err != nil {
				return
			}
		}
	}()
	release = func() {
		_ = r.SetReadDeadline(time.Now())
	}
	return enterCh, exitedCh, release
}
