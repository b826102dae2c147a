package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/p-n-ai/pai-tutor/internal/platform/database"
)

func newMigrateCommand() *cobra.Command {
	var databaseURL string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if databaseURL == "" {
				return fmt.Errorf("--database-url or LEARN_DATABASE_URL is required")
			}
			db, err := database.New(cmd.Context(), databaseURL, 2, 1)
			if err != nil {
				return err
			}
			defer db.Close()

			applied, err := database.Migrate(cmd.Context(), db.Pool)
			if err != nil {
				return err
			}
			if len(applied) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
				return nil
			}
			for _, v := range applied {
				fmt.Fprintf(cmd.OutOrStdout(), "applied %s\n", v)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&databaseURL, "database-url", os.Getenv("LEARN_DATABASE_URL"), "PostgreSQL connection URL")
	return cmd
}
