package lease

import (
	"context"
	"sync"
)

// InMemoryStore is a simple in-process lease store for local/dev use.
type InMemoryStore struct {
	mu     sync.RWMutex
	leases map[string]*Lease
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{leases: make(map[string]*Lease)}
}

func (s *InMemoryStore) Put(_ context.Context, l Lease) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := l
	c.ChatLog = append([]Turn(nil), l.ChatLog...)
	s.leases[l.SessionID] = &c
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, sessionID string) (Lease, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.leases[sessionID]
	if !ok {
		return Lease{}, ErrNotFound
	}
	c := *l
	c.ChatLog = append([]Turn(nil), l.ChatLog...)
	return c, nil
}

func (s *InMemoryStore) AppendTurn(_ context.Context, sessionID string, t Turn, voiceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.leases[sessionID]
	if !ok {
		return ErrNotFound
	}
	l.ChatLog = append(l.ChatLog, t)
	l.VoiceID = voiceID
	return nil
}

func (s *InMemoryStore) SetStatus(_ context.Context, sessionID string, status Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.leases[sessionID]
	if !ok {
		return ErrNotFound
	}
	l.Status = status
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.leases, sessionID)
	return nil
}

func (s *InMemoryStore) Close() error { return nil }
