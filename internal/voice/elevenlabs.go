package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/membox/afterwords/internal/reliability"
)

// tts and delete calls retry on transient upstream failures; cloning
// does not, since a timed-out clone may still have registered a voice
// server-side and a blind retry would orphan it.
const (
	retryAttempts = 3
	retryBase     = 250 * time.Millisecond
	retryCap      = 2 * time.Second
)

type ElevenLabsConfig struct {
	APIKey          string
	BaseURL         string
	ModelID         string
	Stability       float64
	SimilarityBoost float64
	Style           float64
	RequestTimeout  time.Duration
}

// ElevenLabsClient talks to the ElevenLabs REST API for voice cloning,
// speech synthesis and voice deletion.
type ElevenLabsClient struct {
	cfg    ElevenLabsConfig
	client *http.Client
}

func NewElevenLabsClient(cfg ElevenLabsConfig) *ElevenLabsClient {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = "https://api.elevenlabs.io"
	}
	if strings.TrimSpace(cfg.ModelID) == "" {
		cfg.ModelID = "eleven_multilingual_v2"
	}
	if cfg.Stability <= 0 {
		cfg.Stability = 0.5
	}
	if cfg.SimilarityBoost <= 0 {
		cfg.SimilarityBoost = 1.0
	}
	if cfg.Style <= 0 {
		cfg.Style = 0.7
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 60 * time.Second
	}
	return &ElevenLabsClient{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.RequestTimeout},
	}
}

// Synthesize clones a voice from the sample when no voice id is given,
// then generates speech with it. The voice id in the result is the one
// callers should persist for reuse on later turns.
func (c *ElevenLabsClient) Synthesize(ctx context.Context, req SynthesisRequest) (SynthesisResult, error) {
	voiceID := strings.TrimSpace(req.VoiceID)
	if voiceID == "" {
		if len(req.Sample) == 0 {
			return SynthesisResult{}, fmt.Errorf("voice cloning requires a voice sample")
		}
		cloned, err := c.cloneVoice(ctx, req.Who, req.Sample)
		if err != nil {
			return SynthesisResult{}, err
		}
		voiceID = cloned
	}

	audio, err := c.textToSpeech(ctx, voiceID, req.Text)
	if err != nil {
		return SynthesisResult{}, err
	}
	return SynthesisResult{VoiceID: voiceID, Audio: audio}, nil
}

func (c *ElevenLabsClient) cloneVoice(ctx context.Context, name string, sample []byte) (string, error) {
	if strings.TrimSpace(name) == "" {
		name = "afterwords-voice"
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("name", name); err != nil {
		return "", fmt.Errorf("write clone form: %w", err)
	}
	fw, err := mw.CreateFormFile("files", "sample.wav")
	if err != nil {
		return "", fmt.Errorf("write clone form: %w", err)
	}
	if _, err := fw.Write(sample); err != nil {
		return "", fmt.Errorf("write clone form: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("write clone form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/v1/voices/add"), &body)
	if err != nil {
		return "", fmt.Errorf("create clone request: %w", err)
	}
	req.Header.Set("xi-api-key", c.cfg.APIKey)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	res, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("clone voice: %w", err)
	}
	defer res.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return "", fmt.Errorf("clone voice status %d: %s", res.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var parsed struct {
		VoiceID string `json:"voice_id"`
	}
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("clone voice invalid json: %w", err)
	}
	if strings.TrimSpace(parsed.VoiceID) == "" {
		return "", fmt.Errorf("clone voice returned no voice_id")
	}
	return parsed.VoiceID, nil
}

func (c *ElevenLabsClient) textToSpeech(ctx context.Context, voiceID, text string) ([]byte, error) {
	payload, err := json.Marshal(map[string]any{
		"text":     text,
		"model_id": c.cfg.ModelID,
		"voice_settings": map[string]any{
			"stability":        c.cfg.Stability,
			"similarity_boost": c.cfg.SimilarityBoost,
			"style":            c.cfg.Style,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal tts request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < retryAttempts; attempt++ {
		if attempt > 0 {
			if err := sleepBackoff(ctx, attempt-1); err != nil {
				return nil, err
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			c.endpoint("/v1/text-to-speech/"+url.PathEscape(voiceID)), bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("create tts request: %w", err)
		}
		req.Header.Set("xi-api-key", c.cfg.APIKey)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "audio/mpeg")

		res, err := c.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("text to speech: %w", err)
			continue
		}

		if res.StatusCode < 200 || res.StatusCode >= 300 {
			body, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
			res.Body.Close()
			lastErr = fmt.Errorf("text to speech status %d: %s", res.StatusCode, strings.TrimSpace(string(body)))
			if !reliability.IsRetryableHTTPStatus(res.StatusCode) {
				return nil, lastErr
			}
			continue
		}

		audio, err := io.ReadAll(res.Body)
		res.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read tts audio: %w", err)
			continue
		}
		return audio, nil
	}
	return nil, lastErr
}

func sleepBackoff(ctx context.Context, attempt int) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(reliability.ExponentialBackoff(attempt, retryBase, retryCap)):
		return nil
	}
}

// DeleteVoice removes a cloned voice. A voice already gone is not an
// error the caller can act on, so 404 is treated as success.
func (c *ElevenLabsClient) DeleteVoice(ctx context.Context, voiceID string) error {
	var lastErr error
	for attempt := 0; attempt < retryAttempts; attempt++ {
		if attempt > 0 {
			if err := sleepBackoff(ctx, attempt-1); err != nil {
				return err
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodDelete,
			c.endpoint("/v1/voices/"+url.PathEscape(voiceID)), nil)
		if err != nil {
			return fmt.Errorf("create delete request: %w", err)
		}
		req.Header.Set("xi-api-key", c.cfg.APIKey)

		res, err := c.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("delete voice: %w", err)
			continue
		}

		if res.StatusCode == http.StatusNotFound {
			res.Body.Close()
			return nil
		}
		if res.StatusCode < 200 || res.StatusCode >= 300 {
			body, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
			res.Body.Close()
			lastErr = fmt.Errorf("delete voice status %d: %s", res.StatusCode, strings.TrimSpace(string(body)))
			if !reliability.IsRetryableHTTPStatus(res.StatusCode) {
				return lastErr
			}
			continue
		}
		res.Body.Close()
		return nil
	}
	return lastErr
}

func (c *ElevenLabsClient) endpoint(path string) string {
	return strings.TrimRight(c.cfg.BaseURL, "/") + path
}
