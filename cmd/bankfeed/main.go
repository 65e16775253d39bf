package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nexabank/bankfeed/cmd/bankfeed/commands"
	"github.com/nexabank/bankfeed/logger"
)

var rootCmd = &cobra.Command{
	Use:   "bankfeed",
	Short: "bankfeed - schema-driven ingestion pipeline",
	Long: `bankfeed watches an incoming directory tree for dropped dataset files,
validates each file against a declarative schema, derives enriched columns,
and loads the result into the HDFS warehouse.

Available commands:
  run      - Watch the incoming directory and process files as they stabilize
  validate - Validate a single file against the schema and print the report
  status   - Show the processing status of a drop directory
  gen      - Generate a synthetic data drop for local testing
  version  - Show version information

Examples:
  bankfeed run                                  # Sweep backlog, then watch
  bankfeed validate incoming_data/2025-04-29/21/loans.txt
  bankfeed status incoming_data/2025-04-29/21
  bankfeed gen --date 2025-04-29 --hour 21`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		jsonOutput, _ := cmd.Flags().GetBool("log-json")
		if err := logger.Initialize(jsonOutput); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().Bool("log-json", false, "Emit logs as JSON instead of console output")
	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to a bankfeed config file")

	rootCmd.AddCommand(commands.RunCmd)
	rootCmd.AddCommand(commands.ValidateCmd)
	rootCmd.AddCommand(commands.StatusCmd)
	rootCmd.AddCommand(commands.GenCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	defer logger.Cleanup()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
