// Command tutorctl checks curricula, previews XP awards and applies database migrations.
package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

const version = "0.1.0"

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "tutorctl",
		Short:   "tutorctl - administer the pai-tutor progression engine",
		Version: version,

		SilenceUsage: true,
	}

	rootCmd.AddCommand(newCurriculumCommand())
	rootCmd.AddCommand(newXPCommand())
	rootCmd.AddCommand(newMigrateCommand())

	return rootCmd
}
