// Package main is the shiori CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hyperjump/shiori/internal/config"
	"github.com/hyperjump/shiori/internal/extract"
	"github.com/hyperjump/shiori/internal/indexer"
	"github.com/hyperjump/shiori/internal/storage"
	"github.com/hyperjump/shiori/pkg/utils"
)

var version = "dev"

var (
	configPath string
	debugFlag  bool
)

var rootCmd = &cobra.Command{
	Use:           "shiori",
	Short:         "Build and query full-text search indexes for static sites",
	Long:          "shiori builds per-language search indexes from rendered pages, chunks them for incremental delivery, and serves them with a search API.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "shiori version %s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default: ./config.toml or ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "enable debug logging")
	rootCmd.AddCommand(versionCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// configCandidates are looked up in the working directory when --config is not given.
var configCandidates = []string{"config.toml", "config.yaml", "config.yml", "shiori.toml", "shiori.yaml"}

// loadConfig loads the config at path. With no path it uses the first candidate in dir,
// falling back to defaults relative to dir. Returns the config and the file used ("" for defaults).
func loadConfig(path, dir string) (*config.Config, string, error) {
	if path == "" {
		for _, name := range configCandidates {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}
	if path == "" {
		return config.Default(dir), "", nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// env is what every command needs: config and logger.
type env struct {
	cfg        *config.Config
	configFile string
	logger     *zap.Logger
}

func setup() (*env, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	cfg, file, err := loadConfig(configPath, cwd)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	debug := cfg.Debug || debugFlag
	logger, err := utils.NewLogger(debug)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	if file != "" {
		logger.Debug("config loaded", zap.String("config_path", file), zap.Bool("debug", debug))
	}
	return &env{cfg: cfg, configFile: file, logger: logger}, nil
}

func (e *env) openHistory() (storage.Storage, error) {
	store, err := storage.NewSQLiteStorage(e.cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open build history: %w", err)
	}
	return store, nil
}

// rebuild loads every page under the content dir and builds all indexes.
func (e *env) rebuild(ctx context.Context, history storage.Storage) (*indexer.BuildReport, error) {
	ex := extract.NewExtractor(
		extract.WithLogger(e.logger),
		extract.WithSkipInvalid(e.cfg.Search.OnPageError == config.OnPageErrorSkip),
	)
	pages, err := ex.LoadDir(ctx, e.cfg.Site.ContentDir)
	if err != nil {
		return nil, err
	}
	opts := []indexer.BuilderOption{indexer.WithLogger(e.logger)}
	if history != nil {
		opts = append(opts, indexer.WithHistory(history))
	}
	return indexer.NewBuilder(e.cfg, opts...).Build(ctx, pages)
}

// joinQuery joins positional args so multi-word queries work with or without shell quoting.
func joinQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}
