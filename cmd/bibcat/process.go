package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matsen/bibcat/internal/pdf"
	"github.com/matsen/bibcat/internal/pipeline"
)

var (
	processCareer   string
	processFaculty  string
	processNoReport bool
	processReport   string
)

func init() {
	processCmd.Flags().StringVar(&processCareer, "career", "", "Career the syllabi belong to (default from config)")
	processCmd.Flags().StringVar(&processFaculty, "faculty", "", "Faculty of the career (default from config)")
	processCmd.Flags().BoolVar(&processNoReport, "no-report", false, "Skip writing the report and notices after the run")
	processCmd.Flags().StringVarP(&processReport, "output", "o", "", "Report path (default from config)")
	rootCmd.AddCommand(processCmd)
}

var processCmd = &cobra.Command{
	Use:   "process [dir|file.pdf...]",
	Short: "Process syllabus PDFs into the catalog",
	Long: `Process syllabus PDFs into the catalog.

Each PDF is read, its subject and bibliography are extracted, and every
reference is merged into the store: existing titles are linked to the
subject, new books are looked up in the library catalog first.
Afterwards the report is written and available titles are listed per career.

Usage:
  bibcat process                      # every PDF in ./archivos
  bibcat process syllabi/ --career "Trabajo Social"
  bibcat process a.pdf b.pdf --no-report`,
	RunE: runProcess,
}

// ProcessResult is the response for the process command.
type ProcessResult struct {
	Stats  *pipeline.Stats        `json:"stats"`
	Report *pipeline.ReportResult `json:"report,omitempty"`
}

func runProcess(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	log := mustLogger(cfg)
	defer log.Sync()
	model := mustCompleter(cfg, log)

	paths, err := collectPDFs(args)
	if err != nil {
		exitWithError(ExitDataError, "%v", err)
	}
	if len(paths) == 0 {
		exitWithError(ExitDataError, "no PDF files found")
	}

	db := mustOpenDatabase(cfg)
	defer db.Close()

	ctx := context.Background()
	runner := newRunner(cfg, db, model, log)
	if humanOutput {
		runner.SetProgressReporter(pipeline.ProgressFunc(func(current, total int, path string) {
			outputHuman("[%d/%d] %s\n", current, total, path)
		}))
	}

	stats, err := runner.Run(ctx, paths, pipeline.Options{Career: processCareer, Faculty: processFaculty})
	if errors.Is(err, pipeline.ErrBusy) {
		exitWithError(ExitBusy, "%v", err)
	}
	if err != nil {
		exitWithError(ExitError, "processing: %v", err)
	}

	result := ProcessResult{Stats: stats}
	if !processNoReport {
		rep, err := pipeline.WriteReport(ctx, db, newDetector(model, log), newReportWriter(cfg, processReport, log), log)
		if err != nil {
			exitWithError(ExitError, "writing report: %v", err)
		}
		result.Report = rep
		if _, err := pipeline.Notify(ctx, db, log); err != nil {
			log.Warn("notify failed", "error", err)
		}
	}

	if humanOutput {
		outputHuman("Processed %d documents (%d skipped, %d already seen) in %s\n",
			stats.Documents, stats.Skipped, stats.Reprocessed, formatDuration(stats.Duration))
		outputHuman("References: %d (%d new titles, %d existing, %d failed)\n",
			stats.References, stats.Created, stats.Reused, stats.Failed)
		for _, e := range stats.Errors {
			outputHuman("  error: %s\n", e)
		}
		if result.Report != nil {
			outputHuman("Report: %s (%d rows)\n", result.Report.Path, result.Report.Rows)
		}
		return nil
	}
	return outputJSON(result)
}

// collectPDFs expands directories into their PDF files. No arguments
// means the ./archivos directory.
func collectPDFs(args []string) ([]string, error) {
	if len(args) == 0 {
		args = []string{"archivos"}
	}
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if info.IsDir() {
			found, err := pdf.List(arg)
			if err != nil {
				return nil, err
			}
			paths = append(paths, found...)
			continue
		}
		if !strings.EqualFold(filepath.Ext(arg), ".pdf") {
			return nil, fmt.Errorf("%s is not a PDF", arg)
		}
		paths = append(paths, arg)
	}
	return paths, nil
}
