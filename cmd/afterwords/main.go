package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/membox/afterwords/internal/chat"
	"github.com/membox/afterwords/internal/config"
	"github.com/membox/afterwords/internal/httpapi"
	"github.com/membox/afterwords/internal/lease"
	"github.com/membox/afterwords/internal/objectstore"
	"github.com/membox/afterwords/internal/observability"
	"github.com/membox/afterwords/internal/persona"
	"github.com/membox/afterwords/internal/schedule"
	"github.com/membox/afterwords/internal/session"
	"github.com/membox/afterwords/internal/voice"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace)

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

	objects, err := objectstore.NewStore(cfg.NATSURL, cfg.AudioBucket)
	if err != nil {
		log.Fatalf("object store init failed: %v", err)
	}
	defer objects.Close()

	synth := buildSynthesizer(cfg)

	responder := persona.NewClient(persona.Config{
		APIKey:      cfg.OpenAIAPIKey,
		BaseURL:     cfg.OpenAIBaseURL,
		Model:       cfg.OpenAIChatModel,
		Temperature: cfg.OpenAITemperature,
	})

	orchestrator := chat.NewOrchestrator(responder, synth, objects, metrics)

	scheduler := schedule.NewScheduler(scheduleStore, cfg.CleanupBuffer)
	sessions := session.NewManager(leaseStore, scheduler, orchestrator, cfg.SessionTTL)

	api := httpapi.New(cfg, sessions, orchestrator, objects, metrics)
	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: api.Router(),
	}

	go func() {
		log.Printf("server listening on %s", cfg.BindAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Printf("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		_ = httpServer.Close()
	}

	log.Printf("shutdown complete")
}

func buildSynthesizer(cfg config.Config) voice.Synthesizer {
	mode := strings.ToLower(strings.TrimSpace(cfg.VoiceProvider))
	if mode == "" {
		mode = "auto"
	}

	tryElevenLabs := func() voice.Synthesizer {
		if strings.TrimSpace(cfg.ElevenLabsAPIKey) == "" {
			return nil
		}
		log.Printf("voice provider: elevenlabs")
		return voice.NewElevenLabsClient(voice.ElevenLabsConfig{
			APIKey:          cfg.ElevenLabsAPIKey,
			BaseURL:         cfg.ElevenLabsBaseURL,
			ModelID:         cfg.ElevenLabsModelID,
			Stability:       cfg.ElevenLabsStability,
			SimilarityBoost: cfg.ElevenLabsSimilarityBoost,
			Style:           cfg.ElevenLabsStyle,
			RequestTimeout:  cfg.RequestTimeout,
		})
	}

	switch mode {
	case "elevenlabs":
		s := tryElevenLabs()
		if s == nil {
			log.Fatalf("VOICE_PROVIDER=elevenlabs but ELEVENLABS_API_KEY is not set")
		}
		return s
	case "mock":
		log.Printf("voice provider: mock")
		return voice.NewMockProvider()
	case "auto":
		if s := tryElevenLabs(); s != nil {
			return s
		}
		log.Printf("voice provider: mock (no elevenlabs key)")
		return voice.NewMockProvider()
	default:
		log.Fatalf("invalid VOICE_PROVIDER: %q (expected auto|elevenlabs|mock)", cfg.VoiceProvider)
		return nil
	}
}
