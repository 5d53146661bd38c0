// Command mokuwatch watches one scan job until it reaches a terminal state.
//
// Usage: mokuwatch -job <id> [-config f] [-base-url u] [-interval d]
// [-history db] [-metrics-addr a] [-changes]
//
// Exit codes: 0 completed, 2 failed or cancelled, 1 setup error, 130 interrupted.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/raysh454/moku-watch/internal/cli"
	"github.com/raysh454/moku-watch/internal/config"
	"github.com/raysh454/moku-watch/internal/history"
	"github.com/raysh454/moku-watch/internal/jobstatus"
	"github.com/raysh454/moku-watch/internal/logging"
	"github.com/raysh454/moku-watch/internal/metrics"
	"github.com/raysh454/moku-watch/internal/monitor"
	"github.com/raysh454/moku-watch/internal/render"
	"github.com/raysh454/moku-watch/internal/statusclient"
	"github.com/raysh454/moku-watch/internal/webclient"
)

const (
	exitCompleted   = 0
	exitSetup       = 1
	exitFailed      = 2
	exitInterrupted = 130
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, argv []string, stdout, stderr io.Writer) int {
	args, err := cli.ParseArgs(argv)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitCompleted
		}
		fmt.Fprintf(stderr, "mokuwatch: %v\n", err)
		return exitSetup
	}

	cfg := config.Default()
	if args.ConfigPath != "" {
		if cfg, err = config.Load(args.ConfigPath); err != nil {
			fmt.Fprintf(stderr, "mokuwatch: %v\n", err)
			return exitSetup
		}
	}
	args.Apply(cfg)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "mokuwatch: config: %v\n", err)
		return exitSetup
	}

	logger := logging.NewZerologLogger(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format}, stderr).
		With(logging.Field{Key: "component", Value: "mokuwatch"})

	wc, err := webclient.NewWebClient(webclient.Config{
		Client:    webclient.ClientNetHTTP,
		Timeout:   cfg.Backend.Timeout,
		CookieJar: cfg.Backend.CookieJar,
	}, logger)
	if err != nil {
		logger.Error("creating webclient", logging.Err(err))
		return exitSetup
	}
	defer wc.Close()

	httpSrc, err := statusclient.NewHTTPSource(statusclient.Config{
		BaseURL: cfg.Backend.BaseURL,
		Token:   cfg.Backend.Token,
	}, wc, logger)
	if err != nil {
		logger.Error("creating status source", logging.Err(err))
		return exitSetup
	}
	src := metrics.Instrument(httpSrc)

	if addr := cfg.Metrics.ListenAddr; addr != "" {
		metrics.MustRegister()
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Warn("metrics server stopped", logging.Err(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		logger.Info("serving metrics", logging.Field{Key: "addr", Value: addr})
	}

	var journal *history.Store
	if cfg.History.Path != "" {
		journal, err = history.Open(cfg.History.Path, logger)
		if err != nil {
			logger.Error("opening history", logging.Err(err))
			return exitSetup
		}
		defer journal.Close()
	}

	w := &watcher{
		out:     stdout,
		logger:  logger,
		journal: journal,
		session: history.NewSessionID(),
		changes: args.Changes,
		done:    make(chan int, 1),
	}

	m := monitor.New(src, monitor.Config{
		Interval:             cfg.Monitor.Interval,
		MaxUnrecognizedPolls: cfg.Monitor.MaxUnrecognizedPolls,
		OnUpdate:             w.update,
		OnComplete:           func(jobstatus.Snapshot) { w.finish(exitCompleted) },
		OnFailed:             func(jobstatus.Snapshot) { w.finish(exitFailed) },
	}, logger)
	defer m.Close()

	m.Watch(args.JobID)

	select {
	case code := <-w.done:
		return code
	case <-ctx.Done():
		logger.Info("interrupted", logging.Field{Key: "job_id", Value: args.JobID})
		return exitInterrupted
	}
}

// watcher renders monitor updates and journals new snapshots. Its methods run
// on the monitor's loop goroutine, one at a time.
type watcher struct {
	out     io.Writer
	logger  logging.Logger
	journal *history.Store
	session string
	changes bool
	done    chan int

	last *jobstatus.Snapshot
}

func (w *watcher) update(st monitor.State) {
	fmt.Fprintln(w.out, render.Line(st, time.Now()))

	if st.Snapshot == nil || st.Snapshot == w.last {
		return
	}
	if w.changes && w.last != nil {
		if changes, err := render.Changes(w.last, st.Snapshot); err != nil {
			w.logger.Warn("diffing snapshots", logging.Err(err))
		} else {
			fmt.Fprint(w.out, render.FormatChanges(changes))
		}
	}
	if w.journal != nil {
		if err := w.journal.Record(context.Background(), w.session, *st.Snapshot, st.Progress); err != nil {
			w.logger.Warn("recording history", logging.Err(err))
		}
	}
	w.last = st.Snapshot
}

func (w *watcher) finish(code int) {
	select {
	case w.done <- code:
	default:
	}
}
