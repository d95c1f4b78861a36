package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hyperjump/shiori/internal/indexer"
	"github.com/hyperjump/shiori/internal/server"
	"github.com/hyperjump/shiori/internal/watcher"
)

var serveOpts struct {
	port    int
	noBuild bool
	watch   bool
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the output directory and the search API",
	Long: `Serve site.output_dir (pages, simple indexes, manifests and chunks) and the
/api/v1 search endpoints. Indexes are rebuilt on start unless --no-build is given;
with --watch they are rebuilt whenever a page source changes.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	f := serveCmd.Flags()
	f.IntVar(&serveOpts.port, "port", 0, "port to listen on (default: server.port)")
	f.BoolVar(&serveOpts.noBuild, "no-build", false, "serve existing indexes without building first")
	f.BoolVarP(&serveOpts.watch, "watch", "w", false, "rebuild when page sources change")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	e, err := setup()
	if err != nil {
		return err
	}
	defer e.logger.Sync()
	if serveOpts.port > 0 {
		e.cfg.Server.Port = serveOpts.port
	}

	history, err := e.openHistory()
	if err != nil {
		return err
	}
	defer history.Close()

	srv := server.New(e.cfg,
		server.WithLogger(e.logger),
		server.WithHistory(history),
		server.WithRebuild(func(ctx context.Context) (*indexer.BuildReport, error) {
			return e.rebuild(ctx, history)
		}))

	ctx := cmd.Context()
	if serveOpts.noBuild {
		err = srv.Reload()
	} else {
		_, err = srv.Rebuild(ctx)
	}
	if err != nil {
		return err
	}

	if serveOpts.watch {
		w := newRebuildWatcher(e, func(ctx context.Context) error {
			_, err := srv.Rebuild(ctx)
			return err
		})
		if err := w.Start(ctx); err != nil {
			return err
		}
		defer w.Stop()
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	e.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Stop(shutdownCtx)
}

// newRebuildWatcher watches the content dir and runs rebuild after each burst of changes.
func newRebuildWatcher(e *env, rebuild func(ctx context.Context) error) *watcher.Watcher {
	opts := []watcher.WatcherOption{
		watcher.WithDebounce(time.Duration(e.cfg.Watch.DebounceMs) * time.Millisecond),
		watcher.WithLogger(e.logger),
	}
	return watcher.NewWatcher(
		[]string{e.cfg.Site.ContentDir},
		e.cfg.Watch.Extensions,
		func(paths []string) {
			e.logger.Info("page sources changed, rebuilding", zap.Int("changed", len(paths)))
			if err := rebuild(context.Background()); err != nil {
				e.logger.Error("rebuild failed", zap.Error(err))
			}
		},
		opts...,
	)
}
