package main

import (
	"encoding/json"
	"fmt"

	"github.com/messagemind/automaton/internal/validator"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <file|id>",
	Short: "Check an automation for structural problems",
	Long: `Reports broken edges, unreachable nodes, invalid dates and other problems.
Exits non-zero when an error-level issue is found; warnings never fail.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")

		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		g, err := a.loadGraph(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		report := validator.ValidateGraph(g)

		out := cmd.OutOrStdout()
		if asJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			if err := enc.Encode(report); err != nil {
				return err
			}
		} else {
			for _, issue := range report.Issues {
				fmt.Fprintln(out, issue.String())
			}
			if report.Valid() {
				fmt.Fprintf(out, "✅ %s is valid (%d warnings)\n", g.ID, len(report.Issues))
			}
		}
		return report.Err()
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().Bool("json", false, "Print the report as JSON")
}
