package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the After Words service and
// its cleanup worker.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string

	AllowAnyOrigin bool

	DatabaseURL string

	NATSURL     string
	AudioBucket string

	VoiceProvider string

	ElevenLabsAPIKey          string
	ElevenLabsBaseURL         string
	ElevenLabsModelID         string
	ElevenLabsStability       float64
	ElevenLabsSimilarityBoost float64
	ElevenLabsStyle           float64

	OpenAIAPIKey      string
	OpenAIBaseURL     string
	OpenAIChatModel   string
	OpenAITemperature float64

	RequestTimeout time.Duration

	SessionTTL    time.Duration
	CleanupBuffer time.Duration

	CleanupPollInterval time.Duration
	CleanupMaxEventAge  time.Duration
	CleanupMaxRetries   int
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:          envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace:  envOrDefault("APP_METRICS_NAMESPACE", "afterwords"),
		AllowAnyOrigin:    false,
		DatabaseURL:       stringsTrimSpace("DATABASE_URL"),
		NATSURL:           stringsTrimSpace("NATS_URL"),
		AudioBucket:       envOrDefault("AUDIO_BUCKET", "afterwords-audio"),
		VoiceProvider:     envOrDefault("VOICE_PROVIDER", "auto"),
		ElevenLabsAPIKey:  stringsTrimSpace("ELEVENLABS_API_KEY"),
		ElevenLabsBaseURL: envOrDefault("ELEVENLABS_BASE_URL", "https://api.elevenlabs.io"),
		ElevenLabsModelID: envOrDefault("ELEVENLABS_TTS_MODEL_ID", "eleven_multilingual_v2"),
		// Voice settings tuned for cloned voices.
		ElevenLabsStability:       0.5,
		ElevenLabsSimilarityBoost: 1.0,
		ElevenLabsStyle:           0.7,
		OpenAIAPIKey:              stringsTrimSpace("OPENAI_API_KEY"),
		OpenAIBaseURL:             stringsTrimSpace("OPENAI_BASE_URL"),
		OpenAIChatModel:           envOrDefault("OPENAI_CHAT_MODEL", "gpt-3.5-turbo"),
		OpenAITemperature:         0.7,
		RequestTimeout:            60 * time.Second,
		ShutdownTimeout:           15 * time.Second,
		SessionTTL:                600 * time.Second,
		CleanupBuffer:             90 * time.Second,
		CleanupPollInterval:       15 * time.Second,
		CleanupMaxEventAge:        60 * time.Second,
		CleanupMaxRetries:         2,
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.RequestTimeout, err = durationFromEnv("APP_REQUEST_TIMEOUT", cfg.RequestTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.SessionTTL, err = durationFromEnv("APP_SESSION_TTL", cfg.SessionTTL)
	if err != nil {
		return Config{}, err
	}
	cfg.CleanupBuffer, err = durationFromEnv("APP_CLEANUP_BUFFER", cfg.CleanupBuffer)
	if err != nil {
		return Config{}, err
	}
	cfg.CleanupPollInterval, err = durationFromEnv("CLEANUP_POLL_INTERVAL", cfg.CleanupPollInterval)
	if err != nil {
		return Config{}, err
	}
	cfg.CleanupMaxEventAge, err = durationFromEnv("CLEANUP_MAX_EVENT_AGE", cfg.CleanupMaxEventAge)
	if err != nil {
		return Config{}, err
	}
	cfg.CleanupMaxRetries, err = intFromEnv("CLEANUP_MAX_RETRIES", cfg.CleanupMaxRetries)
	if err != nil {
		return Config{}, err
	}
	cfg.OpenAITemperature, err = floatFromEnv("OPENAI_TEMPERATURE", cfg.OpenAITemperature)
	if err != nil {
		return Config{}, err
	}
	cfg.ElevenLabsStability, err = floatFromEnv("ELEVENLABS_STABILITY", cfg.ElevenLabsStability)
	if err != nil {
		return Config{}, err
	}
	cfg.ElevenLabsSimilarityBoost, err = floatFromEnv("ELEVENLABS_SIMILARITY_BOOST", cfg.ElevenLabsSimilarityBoost)
	if err != nil {
		return Config{}, err
	}
	cfg.ElevenLabsStyle, err = floatFromEnv("ELEVENLABS_STYLE", cfg.ElevenLabsStyle)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}

	if cfg.SessionTTL < 30*time.Second {
		return Config{}, fmt.Errorf("APP_SESSION_TTL must be at least 30s")
	}
	if cfg.CleanupBuffer < 0 {
		return Config{}, fmt.Errorf("APP_CLEANUP_BUFFER must not be negative")
	}
	if cfg.CleanupMaxRetries < 0 {
		return Config{}, fmt.Errorf("CLEANUP_MAX_RETRIES must be >= 0")
	}
	if cfg.ElevenLabsStability < 0 || cfg.ElevenLabsStability > 1 {
		return Config{}, fmt.Errorf("ELEVENLABS_STABILITY must be within [0,1]")
	}
	if cfg.ElevenLabsSimilarityBoost < 0 || cfg.ElevenLabsSimilarityBoost > 1 {
		return Config{}, fmt.Errorf("ELEVENLABS_SIMILARITY_BOOST must be within [0,1]")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func stringsTrimSpace(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func floatFromEnv(key string, fallback float64) (float64, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return f, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(stringsTrimSpace(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
