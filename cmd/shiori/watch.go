package main

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Rebuild search indexes whenever page sources change",
	Args:  cobra.NoArgs,
	RunE:  runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	e, err := setup()
	if err != nil {
		return err
	}
	defer e.logger.Sync()

	history, err := e.openHistory()
	if err != nil {
		return err
	}
	defer history.Close()

	ctx := cmd.Context()
	report, err := e.rebuild(ctx, history)
	if err != nil {
		return err
	}
	e.logger.Info("initial build complete", zap.Int("documents", report.Documents()))

	w := newRebuildWatcher(e, func(ctx context.Context) error {
		_, err := e.rebuild(ctx, history)
		return err
	})
	if err := w.Start(ctx); err != nil {
		return err
	}
	defer w.Stop()
	e.logger.Info("watching for changes", zap.String("dir", e.cfg.Site.ContentDir))
	<-ctx.Done()
	return nil
}
