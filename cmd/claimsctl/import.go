package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"claimlens/internal/backend"
	"claimlens/internal/cli"
	"claimlens/internal/services"
	"claimlens/internal/sources"
	"claimlens/internal/sources/csvfile"
	"claimlens/internal/sources/parquetfile"
)

var (
	importFrom   string
	importFormat string
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Load a claims file into the configured store",
	Long: `Validate a CSV or Parquet claims file and replace the table of the
configured DATA_BACKEND with it. Only sqlite, postgres and memory backends
accept imports.`,
	Run: runImport,
}

func init() {
	importCmd.Flags().StringVar(&importFrom, "from", "", "Claims file to import")
	importCmd.Flags().StringVar(&importFormat, "format", "", "Input format (csv, parquet; default: from extension)")
	importCmd.MarkFlagRequired("from")
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) {
	logger := newLogger()
	cfg := cli.LoadAndValidateConfig(logger)

	ctx, cancel := newContext()
	defer cancel()

	src, err := fileReader(importFrom, importFormat, cfg.Separator(), cfg.Columns())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if !backend.BackendType(cfg.DataBackend).Writable() {
		fmt.Fprintf(os.Stderr, "Error: backend %q does not accept imports\n", cfg.DataBackend)
		os.Exit(1)
	}
	target, err := cli.OpenBackend(ctx, logger, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening %s backend: %v\n", cfg.DataBackend, err)
		os.Exit(1)
	}
	defer target.Close()

	recorder, _ := target.Writer.(services.ImportRecorder)
	svc := services.NewImportService(target.Writer, recorder, cli.DatasetOptions(cfg), logger)

	res, err := svc.Import(ctx, importFrom, src)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error importing %s: %v\n", importFrom, err)
		os.Exit(1)
	}

	fmt.Printf("Imported %d rows from %s into %s (%d months, %d payers, total paid %s)\n",
		res.Rows, res.Source, cfg.DataBackend, res.Stats.Months, res.Stats.Payers, res.Stats.TotalPaid.StringFixed(2))
}

// fileReader picks the reader for path by format, or by extension when
// format is blank.
func fileReader(path, format string, sep rune, cols sources.Columns) (sources.RowReader, error) {
	if format == "" {
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	}
	switch format {
	case "csv", "txt", "tsv":
		return csvfile.New(path, csvfile.WithSeparator(sep), csvfile.WithColumns(cols)), nil
	case "parquet":
		return parquetfile.NewReader(path), nil
	default:
		return nil, fmt.Errorf("unknown input format %q", format)
	}
}
