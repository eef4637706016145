package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/matsen/bibcat/internal/pipeline"
)

func init() {
	rootCmd.AddCommand(notifyCmd)
}

var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "List available titles per career",
	Long: `List, for each career, the titles whose acquisition is available
in print or online, so the career can be told about them.`,
	Args: cobra.NoArgs,
	RunE: runNotify,
}

func runNotify(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	log := mustLogger(cfg)
	defer log.Sync()
	db := mustOpenDatabase(cfg)
	defer db.Close()

	groups, err := pipeline.Notify(context.Background(), db, log)
	if err != nil {
		exitWithError(ExitError, "%v", err)
	}

	if humanOutput {
		if len(groups) == 0 {
			outputHuman("No available titles\n")
			return nil
		}
		for _, g := range groups {
			outputHuman("%s (%d)\n", g.Career.Name, len(g.Titles))
			for _, t := range g.Titles {
				outputHuman("  %s, %s\n", t.NormalizedTitle, t.NormalizedAuthor)
			}
		}
		return nil
	}
	return outputJSON(groups)
}
