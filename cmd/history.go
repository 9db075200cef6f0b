package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/cita-scheduler/internal/config"
	"github.com/example/cita-scheduler/internal/journal"
)

func newHistoryCmd() *cobra.Command {
	var limit int
	c := &cobra.Command{
		Use:   "history",
		Short: "List recent attempts from the journal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}
			if cfg.DatabaseURL == "" && cfg.JournalSQLite == "" {
				return fmt.Errorf("no journal configured (set DATABASE_URL or CITA_JOURNAL_SQLITE)")
			}
			ctx := context.Background()
			store, err := journal.Open(ctx, journal.Config{DatabaseURL: cfg.DatabaseURL, SQLitePath: cfg.JournalSQLite})
			if err != nil {
				return err
			}
			defer store.Close()

			recs, err := store.Recent(ctx, limit)
			if err != nil {
				return err
			}
			for _, r := range recs {
				fmt.Fprintf(cmd.OutOrStdout(), "run=%s attempt=%d status=%s province=%s operation=%s started=%s took=%s code=%q detail=%q\n",
					r.RunID, r.Attempt, r.Status, r.Province, r.Operation, r.StartedAt.Format(time.RFC3339),
					r.EndedAt.Sub(r.StartedAt).Round(time.Second), r.Code, r.Detail)
			}
			return nil
		},
	}
	c.Flags().IntVar(&limit, "limit", 20, "number of attempts to show")
	return c
}
