package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/p-n-ai/pai-tutor/internal/curriculum"
)

func newCurriculumCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "curriculum",
		Short: "Inspect curriculum files",
	}

	cmd.AddCommand(newCurriculumValidateCommand())
	cmd.AddCommand(newCurriculumListCommand())

	return cmd
}

// loadGraph loads dir, or the embedded curriculum when no dir is given.
func loadGraph(args []string) (*curriculum.Graph, error) {
	if len(args) == 0 {
		return curriculum.Default()
	}
	return curriculum.LoadDir(args[0])
}

func newCurriculumValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [dir]",
		Short: "Check topic files against the schema and the prerequisite rules",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := loadGraph(args)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %d topics, %d subtopics\n", len(g.Topics()), g.Len())
			return nil
		},
	}
}

func newCurriculumListCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "list [dir]",
		Short: "List subtopics in prerequisite order",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := loadGraph(args)
			if err != nil {
				return err
			}

			switch output {
			case "json":
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(g.Nodes())
			case "table":
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tNAME\tTOPIC\tDIFFICULTY\tPREREQUISITES")
				for _, s := range g.Nodes() {
					pre := strings.Join(s.Prerequisites, ",")
					if pre == "" {
						pre = "-"
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", s.ID, s.Name, s.TopicID, s.Difficulty, pre)
				}
				return tw.Flush()
			default:
				return fmt.Errorf("unknown output format %q (want table or json)", output)
			}
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "table", "Output format: table, json")
	return cmd
}
