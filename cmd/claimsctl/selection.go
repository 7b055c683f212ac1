package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"claimlens/internal/cli"
)

var selectionCmd = &cobra.Command{
	Use:   "selection",
	Short: "Show the month range and payer options",
	Long:  "Load the configured claims source and print the range selector marks, the default range and the payer options as JSON.",
	Run:   runSelection,
}

func init() {
	rootCmd.AddCommand(selectionCmd)
}

func runSelection(cmd *cobra.Command, args []string) {
	logger := newLogger()
	cfg := cli.LoadAndValidateConfig(logger)

	ctx, cancel := newContext()
	defer cancel()

	engine, err := cli.LoadEngine(ctx, logger, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading claims: %v\n", err)
		os.Exit(1)
	}

	if err := printJSON(engine.Selection()); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing output: %v\n", err)
		os.Exit(1)
	}
}
