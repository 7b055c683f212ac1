package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"claimlens/internal/cli"
	"claimlens/internal/services"
)

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export-parquet",
	Short: "Write the validated claims table to a Parquet file",
	Run:   runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "claims.parquet", "Output file")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) {
	logger := newLogger()
	cfg := cli.LoadAndValidateConfig(logger)

	ctx, cancel := newContext()
	defer cancel()

	src, err := cli.OpenBackend(ctx, logger, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening %s backend: %v\n", cfg.DataBackend, err)
		os.Exit(1)
	}
	defer src.Close()

	n, err := services.ExportParquet(ctx, src.Reader, cli.DatasetOptions(cfg), exportOut)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Wrote %d rows to %s\n", n, exportOut)
}
