// Command cleanupd fires due cleanup schedules: it deletes a finished
// session's cloned voices from the synthesis provider and drops the
// lease record. It shares its stores with the main service and is meant
// to run as a single sidecar process.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/membox/afterwords/internal/cleanup"
	"github.com/membox/afterwords/internal/config"
	"github.com/membox/afterwords/internal/lease"
	"github.com/membox/afterwords/internal/observability"
	"github.com/membox/afterwords/internal/schedule"
	"github.com/membox/afterwords/internal/voice"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace + "_cleanupd")

	ctx := context.Background()
	leaseStore, err := lease.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("lease store init failed: %v", err)
	}
	defer leaseStore.Close()

	scheduleStore, err := schedule.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("schedule store init failed: %v", err)
	}
	defer scheduleStore.Close()

	job := cleanup.NewJob(buildDeleter(cfg), leaseStore)

	invoker := schedule.InvokerFunc(func(ctx context.Context, s schedule.Schedule) error {
		res, err := job.Run(ctx, cleanup.Payload{
			SessionID: s.SessionID,
			VoiceIDs:  s.VoiceIDs,
			DueEpoch:  s.DueEpoch,
		})

		for range res.DeletedVoices {
			metrics.CleanupVoices.WithLabelValues("deleted").Inc()
		}
		for range res.FailedVoices {
			metrics.CleanupVoices.WithLabelValues("failed").Inc()
		}
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		metrics.CleanupRuns.WithLabelValues(outcome).Inc()

		if out, jsonErr := json.Marshal(res); jsonErr == nil {
			log.Printf("cleanup %s: %s", s.Name, out)
		}
		return err
	})

	runner := schedule.NewRunner(scheduleStore, invoker, schedule.RunnerConfig{
		PollInterval: cfg.CleanupPollInterval,
		MaxEventAge:  cfg.CleanupMaxEventAge,
		MaxRetries:   cfg.CleanupMaxRetries,
	})

	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.MetricsHandler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	httpServer := &http.Server{Addr: cfg.BindAddr, Handler: mux}
	go func() {
		log.Printf("cleanupd listening on %s", cfg.BindAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen error: %v", err)
		}
	}()

	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()

	go func() {
		if err := runner.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("runner stopped: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Printf("shutdown signal received")

	runCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		_ = httpServer.Close()
	}

	log.Printf("shutdown complete")
}

func buildDeleter(cfg config.Config) voice.Deleter {
	if strings.TrimSpace(cfg.ElevenLabsAPIKey) == "" {
		log.Printf("voice provider: mock (no elevenlabs key)")
		return voice.NewMockProvider()
	}
	log.Printf("voice provider: elevenlabs")
	return voice.NewElevenLabsClient(voice.ElevenLabsConfig{
		APIKey:         cfg.ElevenLabsAPIKey,
		BaseURL:        cfg.ElevenLabsBaseURL,
		RequestTimeout: cfg.RequestTimeout,
	})
}
