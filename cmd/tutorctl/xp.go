package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/p-n-ai/pai-tutor/internal/xp"
)

func newXPCommand() *cobra.Command {
	var in xp.Input

	cmd := &cobra.Command{
		Use:   "xp",
		Short: "Compute the XP award for one attempt and print its breakdown",
		RunE: func(cmd *cobra.Command, args []string) error {
			award, err := xp.Compute(in)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, line := range award.Breakdown {
				fmt.Fprintf(tw, "%s\t%s\n", line.Label, line.Value)
			}
			return tw.Flush()
		},
	}

	f := cmd.Flags()
	f.IntVar(&in.Difficulty, "difficulty", 1, "Subtopic difficulty (1-3)")
	f.BoolVar(&in.IsCorrect, "correct", true, "Whether the answer was correct")
	f.IntVar(&in.TimeSpent, "time", 30, "Seconds spent on the problem")
	f.IntVar(&in.HintsUsed, "hints", 0, "Hints used")
	f.IntVar(&in.AttemptNumber, "attempt", 1, "Attempt number at this subtopic")
	f.BoolVar(&in.IsAlreadyMastered, "mastered", false, "Whether the subtopic is already mastered")

	return cmd
}
