package worker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"claimlens/internal/amqp"
	"claimlens/internal/dataset"
	"claimlens/internal/log"
	"claimlens/internal/services"
	"claimlens/internal/sources/memory"
)

func newTestWorker(t *testing.T, consumer Consumer) *QueryWorker {
	t.Helper()
	logger := log.New(log.Config{Level: log.ParseLevel("error"), Format: "text", Output: io.Discard})
	engine, err := services.LoadEngine(context.Background(), logger, memory.NewSample(), dataset.DefaultOptions())
	if err != nil {
		t.Fatalf("LoadEngine() error = %v", err)
	}
	return NewQueryWorker(services.NewQueryService(engine, logger, time.Second), consumer, 2, logger)
}

func TestHandleQuery(t *testing.T) {
	w := newTestWorker(t, nil)

	t.Run("all payers over the full range", func(t *testing.T) {
		req := &amqp.QueryRequest{RequestID: "r1", MinOrdinal: 0, MaxOrdinal: 3, AllPayers: true}
		reply := w.HandleQuery(context.Background(), req)
		if reply.Error != nil {
			t.Fatalf("unexpected error: %v", reply.Error)
		}
		if reply.RequestID != "r1" {
			t.Errorf("RequestID = %q, want r1", reply.RequestID)
		}
		if reply.RangeLabel != "Jan 2024 - Apr 2024" {
			t.Errorf("RangeLabel = %q", reply.RangeLabel)
		}
		var body struct {
			CategoryTotals struct {
				Empty bool `json:"empty"`
				Data  struct {
					Total string `json:"total"`
				} `json:"data"`
			} `json:"category_totals"`
		}
		if err := json.Unmarshal(reply.Result, &body); err != nil {
			t.Fatalf("decode result: %v", err)
		}
		if body.CategoryTotals.Empty || body.CategoryTotals.Data.Total != "10919.25" {
			t.Errorf("category totals = %+v, want total 10919.25", body.CategoryTotals)
		}
		if reply.Timestamp.IsZero() {
			t.Error("Timestamp should be set")
		}
	})

	t.Run("empty payer set gives empty views", func(t *testing.T) {
		reply := w.HandleQuery(context.Background(), &amqp.QueryRequest{MinOrdinal: 0, MaxOrdinal: 3, Payers: []string{}})
		if reply.Error != nil {
			t.Fatalf("unexpected error: %v", reply.Error)
		}
		var body map[string]struct {
			Empty bool `json:"empty"`
		}
		if err := json.Unmarshal(reply.Result, &body); err != nil {
			t.Fatalf("decode result: %v", err)
		}
		for name, view := range body {
			if !view.Empty {
				t.Errorf("view %s should be empty", name)
			}
		}
	})

	t.Run("invalid range is a selection error", func(t *testing.T) {
		reply := w.HandleQuery(context.Background(), &amqp.QueryRequest{MinOrdinal: 3, MaxOrdinal: 1, AllPayers: true})
		if reply.Error == nil {
			t.Fatal("expected an error reply")
		}
		if reply.Error.Code != amqp.CodeSelectionError || reply.Error.Months != 4 {
			t.Errorf("error = %+v, want selection_error over 4 months", reply.Error)
		}
		if reply.Result != nil {
			t.Errorf("Result = %s, want none", reply.Result)
		}
	})

	t.Run("cancelled context is a timeout", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		reply := w.HandleQuery(ctx, &amqp.QueryRequest{MinOrdinal: 0, MaxOrdinal: 3, AllPayers: true})
		if reply.Error == nil || reply.Error.Code != amqp.CodeTimeout {
			t.Errorf("error = %+v, want timeout", reply.Error)
		}
	})
}

type stubConsumer struct {
	calls  int32
	cancel context.CancelFunc
}

func (s *stubConsumer) ConsumeQueries(ctx context.Context, concurrency int, handler amqp.QueryHandler) error {
	if atomic.AddInt32(&s.calls, 1) == 1 {
		return errors.New("connection closed")
	}
	reply := handler(ctx, &amqp.QueryRequest{RequestID: "x", MinOrdinal: 1, MaxOrdinal: 1, AllPayers: true})
	if reply.Error != nil {
		return reply.Error
	}
	s.cancel()
	<-ctx.Done()
	return ctx.Err()
}

func TestRunRetriesAfterConsumerError(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stub := &stubConsumer{cancel: cancel}
	w := newTestWorker(t, stub)

	if err := w.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := atomic.LoadInt32(&stub.calls); got != 2 {
		t.Errorf("ConsumeQueries calls = %d, want 2", got)
	}
	if ctx.Err() != context.Canceled {
		t.Errorf("worker should stop on cancellation, ctx err = %v", ctx.Err())
	}
}
