package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"storyteller-admin/internal/database"
	"storyteller-admin/internal/pipeline"
	"storyteller-admin/internal/repository"
)

type orphanLister interface {
	ListWithOrphans(ctx context.Context, limit int) ([]pipeline.Run, error)
}

type journalOpener func(ctx context.Context, databaseURL string) (orphanLister, func(), error)

func defaultJournalOpener(ctx context.Context, databaseURL string) (orphanLister, func(), error) {
	db, err := database.New(ctx, databaseURL, database.PoolOptions{MaxConns: 2})
	if err != nil {
		return nil, nil, err
	}
	return repository.NewPipelineRunRepository(db.Pool), db.Close, nil
}

func newOrphansCommand(openJournal journalOpener) *cobra.Command {
	var databaseURL string
	var limit int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "orphans",
		Short: "List failed pipeline runs that left uploaded assets behind",
		RunE: func(cmd *cobra.Command, args []string) error {
			databaseURL = strings.TrimSpace(databaseURL)
			if databaseURL == "" {
				return errors.New("orphans needs --database-url or DATABASE_URL")
			}

			journal, closeJournal, err := openJournal(cmd.Context(), databaseURL)
			if err != nil {
				return fmt.Errorf("open run journal: %w", err)
			}
			defer closeJournal()

			runs, err := journal.ListWithOrphans(cmd.Context(), limit)
			if err != nil {
				return err
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), runs)
			}
			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No orphaned assets")
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "RUN\tSTORY\tFAILED STEP\tASSET")
			for _, run := range runs {
				for _, url := range run.Orphans {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", run.ID, run.StoryID, run.FailedStep, url)
				}
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&databaseURL, "database-url", os.Getenv("DATABASE_URL"), "Postgres connection string")
	cmd.Flags().IntVar(&limit, "limit", 100, "Maximum runs to list")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print runs as JSON")
	return cmd
}
