package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/roach88/skein/internal/feed"
	"github.com/roach88/skein/internal/metrics"
	"github.com/roach88/skein/internal/session"
)

// WatchOptions holds flags for the watch command.
type WatchOptions struct {
	*RootOptions
	Existing bool // apply files already in the directory first
}

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Apply batch files as they appear in a directory",
		Long: `Restore the session from the batch log, then watch a directory and
apply every batch file (.json, .yaml, .yml, .cue) written to it. Files
written in one burst are applied once each, in name order. A snapshot is
saved after every batch.

A file that fails to load is reported and skipped; watching continues.
Stop with Ctrl-C.

With --metrics-addr, Prometheus metrics are served at /metrics.

Examples:
  skein watch ./batches
  skein watch ./batches --existing
  skein watch ./batches --metrics-addr :9090 --settle 250ms`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Existing, "existing", false, "apply files already in the directory before watching")
	cmd.Flags().Duration("settle", feed.DefaultSettle, "quiet period before a burst of writes is applied")
	cmd.Flags().String("metrics-addr", "", "serve Prometheus metrics on this address")
	_ = rootOpts.v.BindPFlag(keyWatchSettle, cmd.Flags().Lookup("settle"))
	_ = rootOpts.v.BindPFlag(keyMetricsAddr, cmd.Flags().Lookup("metrics-addr"))

	return cmd
}

func runWatch(opts *WatchOptions, dir string, cmd *cobra.Command) error {
	ctx := cmd.Context()

	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return NewExitError(ExitCommandError, fmt.Sprintf("batch directory not found: %s", dir))
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	st, s, err := openSession(ctx, opts.RootOptions, session.WithObserver(m))
	if err != nil {
		return err
	}
	defer st.Close()

	if addr := opts.metricsAddr(); addr != "" {
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to serve metrics", err)
		}
		defer serveMetrics(ln, reg)()
	}

	events, err := feed.Watch(ctx, dir,
		feed.WithSettle(opts.watchSettle()),
		feed.WithWatchLogger(slog.Default()),
	)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to watch directory", err)
	}

	w := &watcher{opts: opts, session: s, out: opts.formatter(cmd)}

	if opts.Existing {
		paths, err := feed.ListBatchFiles(dir)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list batch files", err)
		}
		for _, path := range paths {
			b, err := feed.LoadBatch(path)
			if err := w.handle(ctx, feed.Event{Path: path, Batch: b, Err: err}); err != nil {
				return err
			}
		}
	}

	slog.Info("watching for batches", "dir", dir, "seq", s.Seq())
	for ev := range events {
		if err := w.handle(ctx, ev); err != nil {
			return err
		}
	}
	return nil
}

type watcher struct {
	opts    *WatchOptions
	session *session.Session
	out     *OutputFormatter
}

// handle applies one event. Load failures are reported and skipped;
// log write failures stop the watch.
func (w *watcher) handle(ctx context.Context, ev feed.Event) error {
	if ev.Err != nil {
		slog.Warn("batch file rejected", "path", ev.Path, "error", ev.Err)
		if w.opts.Format == "json" {
			return w.out.Error("E_LOAD", ev.Err.Error(), map[string]string{"path": ev.Path})
		}
		fmt.Fprintf(w.out.Writer, "%s %s: %v\n", crossMark, ev.Path, ev.Err)
		return nil
	}

	res, err := w.session.Apply(ctx, ev.Batch)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return WrapExitError(ExitCommandError, fmt.Sprintf("failed to apply %s", ev.Path), err)
	}
	if err := checkpoint(ctx, w.session); err != nil {
		return err
	}

	slog.Info("batch applied",
		"path", ev.Path,
		"seq", res.Seq,
		"issues", issueCodes(res.Report),
	)

	sum := summarize(ev.Path, res)
	if w.opts.Format == "json" {
		return w.out.Success(sum)
	}
	writeBatchText(w.out.Writer, sum)
	return nil
}

// serveMetrics serves /metrics on ln and returns the shutdown func.
func serveMetrics(ln net.Listener, reg *prometheus.Registry) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(reg))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server failed", "error", err)
		}
	}()
	slog.Info("serving metrics", "addr", ln.Addr().String())

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
