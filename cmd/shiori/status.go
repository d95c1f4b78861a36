package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hyperjump/shiori/internal/cli"
	"github.com/hyperjump/shiori/internal/models"
	"github.com/hyperjump/shiori/internal/storage"
)

var statusOpts struct {
	limit  int
	output string
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show recent builds and disk usage",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().IntVarP(&statusOpts.limit, "limit", "n", 10, "number of build records to show")
	statusCmd.Flags().StringVarP(&statusOpts.output, "output", "o", "text", "output format: text or json")
	rootCmd.AddCommand(statusCmd)
}

type statusReport struct {
	ConfigFile     string                `json:"config_file,omitempty"`
	Engine         string                `json:"engine"`
	OutputDir      string                `json:"output_dir"`
	TotalBuilds    int64                 `json:"total_builds"`
	Builds         []*models.BuildRecord `json:"builds"`
	DiskUsageBytes int64                 `json:"disk_usage_bytes"`
	Disk           []storage.PathUsage   `json:"disk"`
}

func runStatus(cmd *cobra.Command, _ []string) error {
	format, err := cli.ParseFormat(statusOpts.output)
	if err != nil {
		return err
	}
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
	total, err := history.CountBuilds(ctx)
	if err != nil {
		return err
	}
	builds, err := history.LatestBuilds(ctx, statusOpts.limit)
	if err != nil {
		return err
	}
	disk, err := storage.DiskUsage(e.cfg.Site.OutputDir, e.cfg.Storage.DatabasePath, e.cfg.Storage.IndexPath)
	if err != nil {
		return err
	}
	var diskTotal int64
	for _, u := range disk {
		diskTotal += u.Bytes
	}
	st := statusReport{
		ConfigFile:     e.configFile,
		Engine:         e.cfg.Search.Engine,
		OutputDir:      e.cfg.Site.OutputDir,
		TotalBuilds:    total,
		Builds:         builds,
		DiskUsageBytes: diskTotal,
		Disk:           disk,
	}

	w := cmd.OutOrStdout()
	if format == cli.OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(st)
	}
	if st.ConfigFile != "" {
		fmt.Fprintf(w, "Config:      %s\n", st.ConfigFile)
	}
	fmt.Fprintf(w, "Engine:      %s\n", st.Engine)
	fmt.Fprintf(w, "Output:      %s\n", st.OutputDir)
	fmt.Fprintf(w, "Disk usage:  %s\n", cli.FormatBytes(st.DiskUsageBytes))
	for _, u := range st.Disk {
		fmt.Fprintf(w, "  %-10s %5d files  %s\n", cli.FormatBytes(u.Bytes), u.Files, u.Path)
	}
	fmt.Fprintf(w, "Builds:      %d\n\n", st.TotalBuilds)
	return cli.WriteBuildHistory(w, builds, cli.OutputText)
}
