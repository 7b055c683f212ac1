package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"claimlens/internal/amqp"
	"claimlens/internal/cli"
	"claimlens/internal/config"
	"claimlens/internal/core"
	"claimlens/internal/log"
	"claimlens/internal/services"
)

var (
	queryMin      int
	queryMax      int
	queryPayers   []string
	queryNoPayers bool
	queryViaAMQP  bool
	queryNoWait   bool
)

// Exit codes of the query command.
const (
	exitFailed   = 1
	exitRejected = 2
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Run a selection and print the four views",
	Long: `Run one selection against the claims dataset and print the result as JSON.

Without --max the range ends at the last month. Without --payer every payer
is selected; --no-payers selects none. With --amqp the query is sent to a
running worker instead of being computed locally; --no-wait publishes it
without waiting for the reply.

Exit status is 2 when the query itself is rejected (invalid range, or a
worker-side failure) and 1 for any other error.`,
	Run: runQuery,
}

func init() {
	queryCmd.Flags().IntVar(&queryMin, "min", 0, "First month ordinal")
	queryCmd.Flags().IntVar(&queryMax, "max", -1, "Last month ordinal (default: last month)")
	queryCmd.Flags().StringSliceVar(&queryPayers, "payer", nil, "Payer to include (repeatable)")
	queryCmd.Flags().BoolVar(&queryNoPayers, "no-payers", false, "Select no payers")
	queryCmd.Flags().BoolVar(&queryViaAMQP, "amqp", false, "Send the query to a worker over AMQP")
	queryCmd.Flags().BoolVar(&queryNoWait, "no-wait", false, "With --amqp, publish the query and exit without a reply")
	queryCmd.MarkFlagsMutuallyExclusive("payer", "no-payers")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) {
	logger := newLogger()
	cfg := cli.LoadAndValidateConfig(logger)

	ctx, cancel := newContext()
	defer cancel()

	var err error
	switch {
	case queryNoWait && !queryViaAMQP:
		err = errors.New("--no-wait needs --amqp")
	case queryViaAMQP:
		err = queryRemote(ctx, logger, cfg, cmd.Flags().Changed("payer"))
	default:
		err = queryLocal(ctx, logger, cfg, cmd.Flags().Changed("payer"))
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

// exitCode separates rejected queries from transport and load failures.
func exitCode(err error) int {
	if amqp.IsReplyError(err) || core.IsSelectionError(err) {
		return exitRejected
	}
	return exitFailed
}

func queryLocal(ctx context.Context, logger *log.Logger, cfg *config.Config, payersSet bool) error {
	engine, err := cli.LoadEngine(ctx, logger, cfg)
	if err != nil {
		return fmt.Errorf("load claims: %w", err)
	}
	svc := services.NewQueryService(engine, logger, cfg.QueryTimeout)

	sel := core.FilterSelection{MinOrdinal: queryMin, MaxOrdinal: queryMax}
	if sel.MaxOrdinal < 0 {
		sel.MaxOrdinal = len(engine.Months()) - 1
	}
	switch {
	case queryNoPayers:
		sel.Payers = []string{}
	case payersSet:
		sel.Payers = queryPayers
	default:
		sel.Payers = engine.Payers()
	}

	res, err := svc.Query(ctx, sel)
	if err != nil {
		var selErr *core.SelectionError
		if errors.As(err, &selErr) {
			return fmt.Errorf("invalid selection: %w", err)
		}
		return err
	}
	label, _ := svc.RangeLabel(sel.MinOrdinal, sel.MaxOrdinal)

	return printJSON(struct {
		Selection  core.FilterSelection `json:"selection"`
		RangeLabel string               `json:"range_label"`
		Result     any                  `json:"result"`
	}{sel, label, res})
}

func queryRemote(ctx context.Context, logger *log.Logger, cfg *config.Config, payersSet bool) error {
	if !cfg.AMQPEnabled() {
		return errors.New("--amqp needs AMQP_URL")
	}
	if queryMax < 0 {
		return errors.New("--amqp needs an explicit --max")
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		return err
	}
	defer client.Close()

	req := amqp.NewQueryRequest(queryMin, queryMax, queryPayers)
	switch {
	case queryNoPayers:
		req.Payers = []string{}
	case !payersSet:
		req.AllPayers = true
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.QueryTimeout)
	defer cancel()

	if queryNoWait {
		if err := client.PublishQuery(ctx, req); err != nil {
			return fmt.Errorf("publish query: %w", err)
		}
		return printJSON(struct {
			RequestID string `json:"request_id"`
		}{req.RequestID})
	}

	reply, err := client.Request(ctx, req)
	if err != nil {
		return fmt.Errorf("query worker: %w", err)
	}
	if err := reply.Err(); err != nil {
		return err
	}

	return printJSON(struct {
		RequestID  string          `json:"request_id"`
		RangeLabel string          `json:"range_label"`
		Result     json.RawMessage `json:"result"`
	}{reply.RequestID, reply.RangeLabel, reply.Result})
}
