package schedule

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("schedule not found")

// Schedule is a named one-shot cleanup trigger. The name is
// deterministic per session ("session-<id>") so re-entrant scheduling
// updates the existing entry instead of stacking duplicates.
type Schedule struct {
	Name      string   `json:"name"`
	SessionID string   `json:"session_id"`
	VoiceIDs  []string `json:"voice_ids"`
	DueEpoch  int64    `json:"due_epoch"`
	Attempts  int      `json:"attempts"`
}

// Store persists one-shot schedules keyed by name.
type Store interface {
	// Upsert creates the schedule or replaces an existing one of the
	// same name, resetting its attempt count.
	Upsert(ctx context.Context, s Schedule) error
	Get(ctx context.Context, name string) (Schedule, error)
	// Due returns schedules whose due time is at or before now.
	Due(ctx context.Context, nowEpoch int64, limit int) ([]Schedule, error)
	// MarkAttempt records a failed invocation attempt.
	MarkAttempt(ctx context.Context, name string, attempts int) error
	// Delete removes the schedule. Deleting an absent schedule succeeds.
	Delete(ctx context.Context, name string) error
	Close() error
}
