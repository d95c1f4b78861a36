package main

import (
	"github.com/spf13/cobra"

	"github.com/hyperjump/shiori/internal/cli"
)

var buildOutput string

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build search indexes from the content directory",
	Long: `Load every page record under site.content_dir and rebuild the search index
for each language. Each build is a full rebuild and is recorded in the build history.`,
	Args: cobra.NoArgs,
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().StringVarP(&buildOutput, "output", "o", "text", "output format: text or json")
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, _ []string) error {
	format, err := cli.ParseFormat(buildOutput)
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

	report, err := e.rebuild(cmd.Context(), history)
	if err != nil {
		return err
	}
	return cli.WriteBuildReport(cmd.OutOrStdout(), report, format)
}
