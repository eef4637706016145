package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/matsen/bibcat/internal/pipeline"
)

var reportOutput string

func init() {
	reportCmd.Flags().StringVarP(&reportOutput, "output", "o", "", "Report path (default from config)")
	rootCmd.AddCommand(reportCmd)
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Write the consolidated bibliography report",
	Long: `Write the consolidated bibliography report.

One row per title and subject that requests it, semicolon-delimited, UTF-8
with BOM. If the target file cannot be written (e.g. it is open in a
spreadsheet), a timestamped name is used instead.`,
	Args: cobra.NoArgs,
	RunE: runReport,
}

func runReport(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	log := mustLogger(cfg)
	defer log.Sync()
	db := mustOpenDatabase(cfg)
	defer db.Close()

	model := completer(cfg, log)
	res, err := pipeline.WriteReport(context.Background(), db, newDetector(model, log), newReportWriter(cfg, reportOutput, log), log)
	if err != nil {
		exitWithError(ExitError, "writing report: %v", err)
	}

	if humanOutput {
		outputHuman("Wrote %d rows to %s\n", res.Rows, res.Path)
		return nil
	}
	return outputJSON(res)
}
