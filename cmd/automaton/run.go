package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/messagemind/automaton"
	"github.com/messagemind/automaton/internal/presentation/graph"
	"github.com/messagemind/automaton/pkg/adapters/memory"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run <file|id>",
	Short: "Run an automation for one email address and wait for it",
	Long: `Runs an automation in the foreground, waiting through its delays, and prints
the run report as JSON. The argument is a graph file (.json, .yaml) or the id of an
automation in the configured store.

Interrupting the command cancels pending delays.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		email, _ := cmd.Flags().GetString("email")
		if email == "" {
			return fmt.Errorf("--email is required")
		}
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		mermaid, _ := cmd.Flags().GetBool("mermaid")

		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		g, err := a.loadGraph(ctx, args[0])
		if err != nil {
			return err
		}

		engine := automaton.New(memory.NewStore(g), a.sender(dryRun), a.engineOptions()...)
		report, err := engine.Run(ctx, g.ID, email)
		if err != nil {
			return err
		}

		if mermaid {
			fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(g, graph.OverlayFromReport(report)))
			return nil
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringP("email", "e", "", "Target email address")
	runCmd.Flags().Bool("dry-run", false, "Log messages instead of sending them")
	runCmd.Flags().Bool("mermaid", false, "Print the graph with the visited path highlighted instead of JSON")
}
