package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/moatasim-KT/interactive-knowledge-system-sub003/internal/config"
	httpserver "github.com/moatasim-KT/interactive-knowledge-system-sub003/internal/http"
	"github.com/moatasim-KT/interactive-knowledge-system-sub003/internal/http/handlers"
	"github.com/moatasim-KT/interactive-knowledge-system-sub003/internal/knowledge"
	"github.com/moatasim-KT/interactive-knowledge-system-sub003/internal/pipeline"
	"github.com/moatasim-KT/interactive-knowledge-system-sub003/internal/stage"
)

func main() {
	logger := log.New(os.Stdout, "[importd] ", log.LstdFlags|log.LUTC|log.Lmicroseconds)
	if err := config.LoadDotEnv(".env", ".env.local"); err != nil {
		logger.Printf("failed loading .env files: %v", err)
	}
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := knowledge.NewMemoryStore()
	fetcher := stage.NewFetcher(stage.FetcherConfig{
		RequestsPerHost: cfg.FetchRequestsPerHost,
		Burst:           cfg.FetchBurst,
		MaxBodyBytes:    cfg.FetchMaxBodyBytes,
		UserAgent:       cfg.FetchUserAgent,
	})
	stages := pipeline.StageSet{
		Fetch:     fetcher.Run,
		Analyze:   stage.NewAnalyzer().Run,
		Transform: stage.NewTransformer().Run,
		Integrate: stage.NewIntegrator(store, logger).Run,
	}

	manager, err := pipeline.NewManager(cfg.PipelineConfig(), stages, logger)
	if err != nil {
		logger.Fatalf("failed to construct pipeline manager: %v", err)
	}
	manager.Subscribe(func(event pipeline.Event) {
		logger.Printf("event kind=%s job_id=%s batch_id=%s", event.Kind, event.JobID, event.BatchID)
	}, pipeline.EventJobCompleted, pipeline.EventJobFailed, pipeline.EventJobCancelled, pipeline.EventBatchUpdated)

	if err := manager.Start(ctx); err != nil {
		logger.Fatalf("failed to start pipeline manager: %v", err)
	}

	api := handlers.NewAPI(manager, store, cfg.EnableParallelProcessing)
	handler := httpserver.NewRouter(httpserver.RouterDependencies{
		API:            api,
		Logger:         logger,
		AuthToken:      cfg.AuthToken,
		CORSOrigins:    cfg.CORSAllowedOrigins,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Printf("import api listening on :%s", cfg.Port)
		errChan <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Printf("shutdown signal received")
	case err := <-errChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Printf("server failed: %v", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Printf("graceful shutdown failed: %v", err)
	}

	stop()
	manager.Wait()
}
