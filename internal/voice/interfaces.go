package voice

import "context"

// SynthesisRequest describes one text-to-speech call. When VoiceID is
// empty the provider clones a new voice from Sample first; otherwise
// Sample is ignored and the existing voice is reused.
type SynthesisRequest struct {
	Who     string
	Text    string
	VoiceID string
	Sample  []byte
}

// SynthesisResult carries the synthesized audio and the id of the voice
// that produced it (freshly cloned or reused).
type SynthesisResult struct {
	VoiceID string
	Audio   []byte
}

// Synthesizer produces speech in a cloned voice.
type Synthesizer interface {
	Synthesize(ctx context.Context, req SynthesisRequest) (SynthesisResult, error)
}

// Deleter removes a cloned voice from the provider.
type Deleter interface {
	DeleteVoice(ctx context.Context, voiceID string) error
}
