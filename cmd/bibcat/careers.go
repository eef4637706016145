package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/matsen/bibcat/internal/reference"
)

var careersSubjects bool

func init() {
	careersCmd.Flags().BoolVar(&careersSubjects, "subjects", false, "Include each career's subjects")
	rootCmd.AddCommand(careersCmd)
}

var careersCmd = &cobra.Command{
	Use:   "careers",
	Short: "List known careers",
	Args:  cobra.NoArgs,
	RunE:  runCareers,
}

// CareerListing is one career in the careers output.
type CareerListing struct {
	reference.Career
	Subjects []reference.Subject `json:"subjects,omitempty"`
}

func runCareers(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	db := mustOpenDatabase(cfg)
	defer db.Close()

	ctx := context.Background()
	careers, err := db.ListCareers(ctx)
	if err != nil {
		exitWithError(ExitError, "%v", err)
	}

	listing := make([]CareerListing, 0, len(careers))
	for _, c := range careers {
		item := CareerListing{Career: c}
		if careersSubjects {
			item.Subjects, err = db.ListSubjects(ctx, c.ID)
			if err != nil {
				exitWithError(ExitError, "%v", err)
			}
		}
		listing = append(listing, item)
	}

	if humanOutput {
		for _, c := range listing {
			outputHuman("%s (%s)\n", c.Name, c.Faculty)
			for _, s := range c.Subjects {
				outputHuman("  %s\n", s.Name)
			}
		}
		return nil
	}
	return outputJSON(listing)
}
