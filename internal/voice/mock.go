package voice

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MockProvider is an offline Synthesizer/Deleter for local dev and tests.
type MockProvider struct {
	mu      sync.Mutex
	voices  map[string]bool
	FailTTS error
}

func NewMockProvider() *MockProvider {
	return &MockProvider{voices: make(map[string]bool)}
}

func (m *MockProvider) Synthesize(_ context.Context, req SynthesisRequest) (SynthesisResult, error) {
	if m.FailTTS != nil {
		return SynthesisResult{}, m.FailTTS
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	voiceID := req.VoiceID
	if voiceID == "" {
		voiceID = "mock-" + uuid.NewString()
		m.voices[voiceID] = true
	}
	return SynthesisResult{VoiceID: voiceID, Audio: []byte("mock audio: " + req.Text)}, nil
}

func (m *MockProvider) DeleteVoice(_ context.Context, voiceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.voices, voiceID)
	return nil
}
