package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/roach88/memelang/internal/engine"
)

// WatchOptions holds flags for the watch command.
type WatchOptions struct {
	*RootOptions
	Debounce    time.Duration
	MetricsAddr string
}

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Import .meme files as they change",
		Long: `Import every .meme file under a directory, then re-import files as they
are written or created until interrupted.

Changes are batched: a file is imported once no event for it has arrived
for the debounce interval. Import errors are logged and do not stop the
watch. With --metrics-addr, engine metrics are served at /metrics.

Examples:
  meme watch ./data
  meme watch ./data --debounce 500ms --metrics-addr :9090`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(opts, args[0], cmd)
		},
	}

	cmd.Flags().DurationVar(&opts.Debounce, "debounce", 200*time.Millisecond, "quiet period before a changed file is imported")
	cmd.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")

	return cmd
}

func runWatch(opts *WatchOptions, dir string, cmd *cobra.Command) error {
	out := newFormatter(opts.RootOptions, cmd)
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return out.Fail(NewExitError(ExitCommandError, fmt.Sprintf("watch directory not found: %s", dir)))
	}

	reg := prometheus.NewRegistry()
	s, err := openSession(opts.RootOptions, cmd, engine.WithMetrics(engine.NewMetrics(reg)))
	if err != nil {
		return out.Fail(err)
	}
	defer s.Close()

	// Setup signal handling for graceful shutdown
	ctx, cancel := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := s.engine.Install(ctx); err != nil {
		return out.Fail(err)
	}

	if opts.MetricsAddr != "" {
		srv := &http.Server{
			Addr:              opts.MetricsAddr,
			Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.logger.Error("metrics server failed", "error", err)
			}
		}()
		defer srv.Close()
		s.logger.Info("serving metrics", "addr", opts.MetricsAddr)
	}

	w := &watcher{engine: s.engine, logger: s.logger, debounce: opts.Debounce}
	fmt.Fprintf(cmd.OutOrStdout(), "Watching %s. Press Ctrl-C to stop.\n", dir)
	if err := w.Run(ctx, dir); err != nil && !errors.Is(err, context.Canceled) {
		return out.Fail(WrapExitError(ExitFailure, "watch failed", err))
	}

	s.logger.Info("watch stopped")
	return nil
}

// watcher re-imports .meme files under a directory tree.
type watcher struct {
	engine   *engine.Engine
	logger   *slog.Logger
	debounce time.Duration

	// imported is called after each successful import. Used by tests.
	imported func(path string, statements int)
}

// Run imports every .meme file under dir, then watches the tree until ctx is
// done. Directories created later are watched too.
func (w *watcher) Run(ctx context.Context, dir string) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fsw.Close()

	if err := w.addTree(fsw, dir); err != nil {
		return err
	}

	initial, err := doublestar.Glob(os.DirFS(dir), "**/*.meme", doublestar.WithFilesOnly())
	if err != nil {
		return fmt.Errorf("scan %s: %w", dir, err)
	}
	sort.Strings(initial)
	for _, rel := range initial {
		w.importFile(ctx, filepath.Join(dir, filepath.FromSlash(rel)))
	}

	pending := make(map[string]bool)
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addTree(fsw, event.Name); err != nil {
						w.logger.Warn("cannot watch directory", "path", event.Name, "error", err)
					}
					continue
				}
			}
			if !isMemeFile(event.Name) || !(event.Has(fsnotify.Write) || event.Has(fsnotify.Create)) {
				continue
			}
			pending[event.Name] = true
			timer.Reset(w.debounce)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "error", err)

		case <-timer.C:
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			sort.Strings(paths)
			clear(pending)
			for _, p := range paths {
				w.importFile(ctx, p)
			}
		}
	}
}

// addTree watches dir and every directory below it.
func (w *watcher) addTree(fsw *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := fsw.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

// importFile puts one file, logging instead of failing.
func (w *watcher) importFile(ctx context.Context, path string) {
	src, err := os.ReadFile(path)
	if err != nil {
		w.logger.Warn("cannot read file", "path", path, "error", err)
		return
	}
	n, err := importSource(ctx, w.engine, path, string(src))
	if err != nil {
		w.logger.Error("import failed", "path", path, "error", err)
		return
	}
	w.logger.Info("imported", "path", path, "statements", n)
	if w.imported != nil {
		w.imported(path, n)
	}
}

func isMemeFile(path string) bool {
	return strings.HasSuffix(path, ".meme")
}
