// Package worker answers query requests delivered over AMQP.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"claimlens/internal/amqp"
	"claimlens/internal/core"
	"claimlens/internal/log"
	"claimlens/internal/services"
)

// Consumer delivers query requests to a handler. *amqp.Client implements it.
type Consumer interface {
	ConsumeQueries(ctx context.Context, concurrency int, handler amqp.QueryHandler) error
}

// QueryWorker runs queries received from the broker against the loaded
// engine and publishes the replies.
type QueryWorker struct {
	svc         *services.QueryService
	consumer    Consumer
	concurrency int
	logger      *log.Logger
}

func NewQueryWorker(svc *services.QueryService, consumer Consumer, concurrency int, logger *log.Logger) *QueryWorker {
	if concurrency < 1 {
		concurrency = 1
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &QueryWorker{
		svc:         svc,
		consumer:    consumer,
		concurrency: concurrency,
		logger:      logger.WithComponent(log.ComponentWorker),
	}
}

// Run consumes until ctx is cancelled. A lost broker connection is retried
// with a growing delay.
func (w *QueryWorker) Run(ctx context.Context) error {
	w.logger.InfoContext(ctx, "Query worker started", "concurrency", w.concurrency)

	delay := time.Second
	for {
		err := w.consumer.ConsumeQueries(ctx, w.concurrency, w.HandleQuery)
		if ctx.Err() != nil {
			w.logger.InfoContext(ctx, "Query worker stopped")
			return nil
		}

		w.logger.ErrorContext(ctx, "Consumer stopped, retrying",
			log.FieldError, err,
			"retry_in", delay.String())
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}
		if delay < 30*time.Second {
			delay *= 2
		}
	}
}

// HandleQuery answers one request. It never fails: errors are encoded in the
// reply with a code the caller can branch on.
func (w *QueryWorker) HandleQuery(ctx context.Context, req *amqp.QueryRequest) *amqp.QueryReply {
	reply := &amqp.QueryReply{RequestID: req.RequestID}
	defer func() { reply.Timestamp = time.Now().UTC() }()

	sel := core.FilterSelection{
		MinOrdinal: req.MinOrdinal,
		MaxOrdinal: req.MaxOrdinal,
		Payers:     req.Payers,
	}
	if req.AllPayers {
		sel.Payers = w.svc.Selection().Payers
	}

	fields := log.NewFields().
		WithOperation(log.OpQuery).
		WithRequestID(req.RequestID)

	res, err := w.svc.Query(ctx, sel)
	if err != nil {
		reply.Error = replyError(err)
		fields["code"] = reply.Error.Code
		w.logger.WarnContext(ctx, "Query request failed", fields.WithError(err).ToSlice()...)
		return reply
	}

	body, err := json.Marshal(res)
	if err != nil {
		reply.Error = &amqp.ReplyError{Code: amqp.CodeInternal, Message: "encode result"}
		w.logger.ErrorContext(ctx, "Failed to encode query result", fields.WithError(err).ToSlice()...)
		return reply
	}
	reply.Result = body
	reply.RangeLabel, _ = w.svc.RangeLabel(req.MinOrdinal, req.MaxOrdinal)
	w.logger.DebugContext(ctx, "Query request answered", fields.ToSlice()...)
	return reply
}

func replyError(err error) *amqp.ReplyError {
	var selErr *core.SelectionError
	switch {
	case errors.As(err, &selErr):
		return &amqp.ReplyError{
			Code:    amqp.CodeSelectionError,
			Message: selErr.Error(),
			Min:     selErr.Min,
			Max:     selErr.Max,
			Months:  selErr.Months,
		}
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return &amqp.ReplyError{Code: amqp.CodeTimeout, Message: err.Error()}
	default:
		return &amqp.ReplyError{Code: amqp.CodeInternal, Message: "query failed"}
	}
}
