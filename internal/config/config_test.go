package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("APP_BIND_ADDR", ":9090")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.BindAddr != ":9090" {
		t.Fatalf("BindAddr = %q, want %q", cfg.BindAddr, ":9090")
	}
	if cfg.SessionTTL != 600*time.Second {
		t.Fatalf("SessionTTL = %v, want %v", cfg.SessionTTL, 600*time.Second)
	}
	if cfg.CleanupBuffer != 90*time.Second {
		t.Fatalf("CleanupBuffer = %v, want %v", cfg.CleanupBuffer, 90*time.Second)
	}
	if cfg.CleanupMaxRetries != 2 {
		t.Fatalf("CleanupMaxRetries = %d, want 2", cfg.CleanupMaxRetries)
	}
	if cfg.ElevenLabsModelID != "eleven_multilingual_v2" {
		t.Fatalf("ElevenLabsModelID = %q, want default model", cfg.ElevenLabsModelID)
	}
	if cfg.OpenAIChatModel != "gpt-3.5-turbo" {
		t.Fatalf("OpenAIChatModel = %q, want default model", cfg.OpenAIChatModel)
	}
	if cfg.ElevenLabsSimilarityBoost != 1.0 {
		t.Fatalf("ElevenLabsSimilarityBoost = %v, want 1.0", cfg.ElevenLabsSimilarityBoost)
	}
}

func TestLoadUsesExplicitOverrides(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("APP_SESSION_TTL", "300s")
	t.Setenv("APP_CLEANUP_BUFFER", "2m")
	t.Setenv("OPENAI_TEMPERATURE", "0.2")
	t.Setenv("DATABASE_URL", "postgres://localhost/afterwords")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.SessionTTL != 300*time.Second {
		t.Fatalf("SessionTTL = %v, want 300s", cfg.SessionTTL)
	}
	if cfg.CleanupBuffer != 2*time.Minute {
		t.Fatalf("CleanupBuffer = %v, want 2m", cfg.CleanupBuffer)
	}
	if cfg.OpenAITemperature != 0.2 {
		t.Fatalf("OpenAITemperature = %v, want 0.2", cfg.OpenAITemperature)
	}
	if cfg.DatabaseURL != "postgres://localhost/afterwords" {
		t.Fatalf("DatabaseURL = %q, want explicit value", cfg.DatabaseURL)
	}
}

func TestLoadRejectsTinySessionTTL(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("APP_SESSION_TTL", "5s")

	if _, err := Load(); err == nil {
		t.Fatalf("Load() error = nil, want TTL validation error")
	}
}

func TestLoadRejectsBadFloat(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("ELEVENLABS_STABILITY", "lots")

	if _, err := Load(); err == nil {
		t.Fatalf("Load() error = nil, want parse error")
	}
}

func setCoreEnvEmpty(t *testing.T) {
	t.Helper()
	keys := []string{
		"APP_BIND_ADDR",
		"APP_SHUTDOWN_TIMEOUT",
		"APP_REQUEST_TIMEOUT",
		"APP_METRICS_NAMESPACE",
		"APP_ALLOW_ANY_ORIGIN",
		"APP_SESSION_TTL",
		"APP_CLEANUP_BUFFER",
		"DATABASE_URL",
		"NATS_URL",
		"AUDIO_BUCKET",
		"VOICE_PROVIDER",
		"ELEVENLABS_API_KEY",
		"ELEVENLABS_BASE_URL",
		"ELEVENLABS_TTS_MODEL_ID",
		"ELEVENLABS_STABILITY",
		"ELEVENLABS_SIMILARITY_BOOST",
		"ELEVENLABS_STYLE",
		"OPENAI_API_KEY",
		"OPENAI_BASE_URL",
		"OPENAI_CHAT_MODEL",
		"OPENAI_TEMPERATURE",
		"CLEANUP_POLL_INTERVAL",
		"CLEANUP_MAX_EVENT_AGE",
		"CLEANUP_MAX_RETRIES",
	}
	for _, key := range keys {
		t.Setenv(key, "")
	}
}
