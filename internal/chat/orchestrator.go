// Package chat sequences one chat turn: role-played reply, translation,
// voice synthesis, and storage of the resulting audio.
package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/membox/afterwords/internal/objectstore"
	"github.com/membox/afterwords/internal/observability"
	"github.com/membox/afterwords/internal/voice"
)

// Responder produces the reply text for a turn.
type Responder interface {
	Reply(ctx context.Context, who, relation, message string) (string, error)
	Translate(ctx context.Context, text, lang string) (string, error)
}

// TurnRequest describes one user message against a session's state.
type TurnRequest struct {
	Who      string
	Relation string
	Lang     string
	Text     string
	// VoiceID is empty on the first turn; the synthesizer then clones a
	// voice from the sample stored under SampleKey.
	VoiceID   string
	SampleKey string
}

// TurnResult is what the caller persists: the voice that spoke and the
// storage key of the synthesized reply.
type TurnResult struct {
	VoiceID  string `json:"voice_id"`
	AudioKey string `json:"audio_key"`
}

// Orchestrator runs chat turns against the external text and voice
// services. It holds no session state; on any failure the turn aborts
// with nothing persisted.
type Orchestrator struct {
	responder Responder
	synth     voice.Synthesizer
	objects   objectstore.Store
	metrics   *observability.Metrics
}

func NewOrchestrator(responder Responder, synth voice.Synthesizer, objects objectstore.Store, metrics *observability.Metrics) *Orchestrator {
	return &Orchestrator{
		responder: responder,
		synth:     synth,
		objects:   objects,
		metrics:   metrics,
	}
}

// Turn produces the spoken reply for one user message.
func (o *Orchestrator) Turn(ctx context.Context, req TurnRequest) (TurnResult, error) {
	reply, err := o.responder.Reply(ctx, req.Who, req.Relation, req.Text)
	if err != nil {
		o.metrics.ProviderErrors.WithLabelValues("llm", "reply").Inc()
		return TurnResult{}, fmt.Errorf("generate reply: %w", err)
	}

	translated, err := o.responder.Translate(ctx, reply, req.Lang)
	if err != nil {
		o.metrics.ProviderErrors.WithLabelValues("llm", "translate").Inc()
		return TurnResult{}, fmt.Errorf("translate reply: %w", err)
	}

	var sample []byte
	if req.VoiceID == "" {
		sample, err = o.objects.Download(ctx, req.SampleKey)
		if err != nil {
			o.metrics.ProviderErrors.WithLabelValues("objectstore", "download").Inc()
			return TurnResult{}, fmt.Errorf("fetch voice sample: %w", err)
		}
	}

	start := time.Now()
	synthRes, err := o.synth.Synthesize(ctx, voice.SynthesisRequest{
		Who:     req.Who,
		Text:    translated,
		VoiceID: req.VoiceID,
		Sample:  sample,
	})
	if err != nil {
		o.metrics.ProviderErrors.WithLabelValues("voice", "synthesize").Inc()
		return TurnResult{}, fmt.Errorf("synthesize reply: %w", err)
	}
	o.metrics.ObserveSynthesisLatency(time.Since(start))

	audioKey := uuid.NewString() + ".mp3"
	if err := o.objects.Upload(ctx, audioKey, synthRes.Audio); err != nil {
		o.metrics.ProviderErrors.WithLabelValues("objectstore", "upload").Inc()
		return TurnResult{}, fmt.Errorf("store reply audio: %w", err)
	}

	o.metrics.Turns.Inc()
	return TurnResult{VoiceID: synthRes.VoiceID, AudioKey: audioKey}, nil
}
