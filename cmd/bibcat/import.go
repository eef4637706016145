package main

import (
	"context"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(importCmd)
}

var importCmd = &cobra.Command{
	Use:   "import <report.csv>",
	Short: "Import a previously generated report",
	Long: `Import a previously generated report.

Rows are merged, never replaced: a title already in the store is only
linked to the row's subject, a new one is stored with the row's printed
and digital counts. No catalog lookups are made. Rows without author or
title are reported and skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	log := mustLogger(cfg)
	defer log.Sync()
	db := mustOpenDatabase(cfg)
	defer db.Close()

	im := newImporter(cfg, db, completer(cfg, log), log)
	res, err := im.ImportFile(context.Background(), args[0])
	if err != nil {
		exitWithError(ExitDataError, "importing %s: %v", args[0], err)
	}

	if humanOutput {
		outputHuman("Imported: %d new, %d existing, %d invalid\n", res.Created, res.Skipped, res.Invalid)
		for _, e := range res.Errors {
			outputHuman("  %s\n", e)
		}
		return nil
	}
	return outputJSON(res)
}
