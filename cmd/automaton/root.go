package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "automaton",
	Short: "Automaton runs email automation graphs",
	Long: `Automaton stores automation graphs (start, action, delay, condition and end nodes)
and runs them for a target email address, over HTTP, MCP or the command line.

Settings come from a .env file and the environment; flags override both.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("env-file", ".env", "Path to a .env file (missing files are ignored)")
	rootCmd.PersistentFlags().String("store", "", "Automation store: memory, file or redis (env AUTOMATON_STORE)")
	rootCmd.PersistentFlags().String("data-dir", "", "Directory of the file store (env AUTOMATON_DATA_DIR)")
	rootCmd.PersistentFlags().String("redis-addr", "", "Redis address (env REDIS_ADDR)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error (env LOG_LEVEL)")
	rootCmd.PersistentFlags().Int("max-steps", 0, "Maximum nodes visited per traversal, 0 for none (env AUTOMATON_MAX_STEPS)")
	rootCmd.PersistentFlags().Duration("max-duration", 0, "Maximum wall time per traversal, 0 for none (env AUTOMATON_MAX_DURATION)")
}

func main() {
	Execute()
}
