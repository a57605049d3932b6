package main

import (
	"context"
	"errors"
	"time"

	"spendwise/internal/amqp"
	"spendwise/internal/backend"
	"spendwise/internal/cache"
	"spendwise/internal/cli"
	"spendwise/internal/config"
	"spendwise/internal/log"
	"spendwise/internal/worker"
)

func main() {
	cfg, logger := cli.LoadAndValidateConfig(log.ComponentWorker, (*config.Config).ValidateMirror)
	logger.Info("Starting mirror-worker")

	factory := backend.NewFactory(logger.Logger)

	// The worker only reads records; it never publishes.
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		cli.Fatal(logger, "Invalid backend configuration", err)
	}
	backendCfg.AMQPURL = ""
	res, err := factory.CreateBackend(context.Background(), backendCfg)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize backend", err)
	}
	defer res.Cleanup()

	mirrorCfg, err := backend.MirrorFromAppConfig(cfg)
	if err != nil {
		cli.Fatal(logger, "Invalid mirror configuration", err)
	}
	mirror, err := factory.CreateMirror(context.Background(), mirrorCfg)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize mirror", err)
	}
	defer mirror.Cleanup()

	caches := cache.NewManager()
	if mirror.Cleaner != nil {
		caches.Register(mirror.Cleaner)
	}
	caches.StartCleanup(10 * time.Minute)
	defer caches.Stop()

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize AMQP client", err)
	}
	defer amqpClient.Close()

	mirrorWorker := worker.NewMirrorWorker(res.Store, mirror.Mirror, worker.Config{ReconcileInterval: cfg.MirrorInterval})

	ctx, cancel, done := cli.GracefulShutdown(logger, 30*time.Second, mirrorWorker.Stop)
	defer cancel()

	if err := mirrorWorker.Start(ctx); err != nil {
		cli.Fatal(logger, "Failed to start mirror worker", err)
	}

	go func() {
		if err := amqpClient.ConsumeRecordChanged(ctx, mirrorWorker.HandleRecordChanged); err != nil {
			if !errors.Is(err, context.Canceled) {
				logger.Error("Message consumption failed", log.FieldError, err)
			}
			cancel()
		}
	}()

	<-done
	logger.Info("Worker shutdown complete")
}
