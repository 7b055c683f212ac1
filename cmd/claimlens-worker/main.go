package main

import (
	"context"
	"os"
	"time"

	"claimlens/internal/amqp"
	"claimlens/internal/cli"
	"claimlens/internal/log"
	"claimlens/internal/services"
	"claimlens/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))

	logger.Info("Starting claimlens-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	if !cfg.AMQPEnabled() {
		logger.Error("AMQP_URL is required for the query worker")
		os.Exit(1)
	}

	engine := cli.MustLoadEngine(context.Background(), logger, cfg)
	svc := services.NewQueryService(engine, logger, cfg.QueryTimeout)

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	ctx, done := cli.GracefulShutdown(logger, 10*time.Second, nil)

	w := worker.NewQueryWorker(svc, amqpClient, cfg.WorkerConcurrency, logger)
	if err := w.Run(ctx); err != nil {
		logger.Error("Query worker failed", log.FieldError, err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("claimlens-worker stopped")
}
