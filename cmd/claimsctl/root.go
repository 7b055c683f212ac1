package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"claimlens/internal/cli"
	"claimlens/internal/log"
)

var (
	logLevel  string
	logFormat string
	envFile   string
)

var rootCmd = &cobra.Command{
	Use:           "claimsctl",
	Short:         "Inspect and manage the claims dataset",
	Long:          "claimsctl runs selections against the claims dataset, imports claim tables into a store and exports them to Parquet.",
	SilenceUsage:  true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if envFile != "" {
			if err := cli.LoadEnvFrom(envFile); err != nil {
				fmt.Fprintf(os.Stderr, "Error loading %s: %v\n", envFile, err)
				os.Exit(1)
			}
			return
		}
		cli.LoadEnvFile()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format (text, json)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Load environment from this file instead of .env")
}

// newLogger writes to stderr so command output stays parseable.
func newLogger() *log.Logger {
	return log.New(log.Config{
		Level:     log.ParseLevel(logLevel),
		Format:    logFormat,
		Component: log.ComponentApp,
		Output:    os.Stderr,
	})
}

// newContext is cancelled on SIGINT or SIGTERM.
func newContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
