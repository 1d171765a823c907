package schedule

import (
	"context"
	"sort"
	"sync"
)

// InMemoryStore is a simple in-process schedule store for local/dev use.
type InMemoryStore struct {
	mu        sync.RWMutex
	schedules map[string]*Schedule
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{schedules: make(map[string]*Schedule)}
}

func (s *InMemoryStore) Upsert(_ context.Context, sched Schedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := sched
	c.VoiceIDs = append([]string(nil), sched.VoiceIDs...)
	c.Attempts = 0
	s.schedules[sched.Name] = &c
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, name string) (Schedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sched, ok := s.schedules[name]
	if !ok {
		return Schedule{}, ErrNotFound
	}
	c := *sched
	c.VoiceIDs = append([]string(nil), sched.VoiceIDs...)
	return c, nil
}

func (s *InMemoryStore) Due(_ context.Context, nowEpoch int64, limit int) ([]Schedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Schedule, 0, 4)
	for _, sched := range s.schedules {
		if sched.DueEpoch > nowEpoch {
			continue
		}
		c := *sched
		c.VoiceIDs = append([]string(nil), sched.VoiceIDs...)
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DueEpoch < out[j].DueEpoch })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *InMemoryStore) MarkAttempt(_ context.Context, name string, attempts int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sched, ok := s.schedules[name]
	if !ok {
		return ErrNotFound
	}
	sched.Attempts = attempts
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.schedules, name)
	return nil
}

func (s *InMemoryStore) Close() error { return nil }
