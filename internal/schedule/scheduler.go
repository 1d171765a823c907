package schedule

import (
	"context"
	"fmt"
	"time"
)

// DefaultBuffer pads the fire time past the session expiry. It absorbs
// clock skew between the scheduling process and the cleanup worker so a
// schedule never lands in the past relative to the worker's clock.
const DefaultBuffer = 90 * time.Second

// Scheduler creates one-shot cleanup schedules for sessions.
type Scheduler struct {
	store  Store
	buffer time.Duration
	now    func() time.Time
}

func NewScheduler(store Store, buffer time.Duration) *Scheduler {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Scheduler{store: store, buffer: buffer, now: time.Now}
}

// ScheduleName returns the deterministic schedule name for a session.
func ScheduleName(sessionID string) string {
	return "session-" + sessionID
}

// ScheduleCleanup upserts the session's one-shot cleanup schedule to
// fire at now + ttl + buffer. Calling it again for the same session
// moves the existing schedule instead of erroring.
func (s *Scheduler) ScheduleCleanup(ctx context.Context, sessionID string, voiceIDs []string, ttl time.Duration) (Schedule, error) {
	due := s.now().UTC().Add(ttl + s.buffer)
	sched := Schedule{
		Name:      ScheduleName(sessionID),
		SessionID: sessionID,
		VoiceIDs:  append([]string(nil), voiceIDs...),
		DueEpoch:  due.Unix(),
	}
	if err := s.store.Upsert(ctx, sched); err != nil {
		return Schedule{}, fmt.Errorf("upsert cleanup schedule: %w", err)
	}
	return sched, nil
}
