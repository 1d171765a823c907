package lease

import (
	"context"
	"errors"
	"time"
)

type Status string

const (
	StatusActive  Status = "active"
	StatusEnded   Status = "ended"
	StatusExpired Status = "expired"
)

var ErrNotFound = errors.New("lease not found")

// Turn is one completed chat exchange: the user's text and the object
// storage key of the synthesized reply.
type Turn struct {
	UserText string `json:"user_text"`
	AudioKey string `json:"audio_key"`
}

// Lease is the time-boxed record of one chat session and the external
// resources it owns. Timestamps are epoch seconds; ExpiresAt is always
// StartedAt plus the session TTL and is never re-extended.
type Lease struct {
	SessionID string `json:"session_id"`
	Status    Status `json:"status"`
	Who       string `json:"who"`
	Relation  string `json:"relation"`
	Lang      string `json:"lang"`
	AudioKey  string `json:"audio_key"`
	VoiceID   string `json:"voice_id"`
	ChatLog   []Turn `json:"chat_log"`
	StartedAt int64  `json:"started_at_epoch"`
	ExpiresAt int64  `json:"expires_at_epoch"`
}

// ActiveAt reports whether the lease is usable at the given instant:
// status must still be active and the expiry must not have passed.
func (l Lease) ActiveAt(now time.Time) bool {
	return l.Status == StatusActive && now.Unix() < l.ExpiresAt
}

// SecondsLeft returns the remaining session time, floored at zero.
func (l Lease) SecondsLeft(now time.Time) int64 {
	left := l.ExpiresAt - now.Unix()
	if left < 0 {
		return 0
	}
	return left
}

// Store persists session leases keyed by session id.
//
// AppendTurn and SetStatus are the only mutations after Put; both are
// single-statement updates with last-write-wins semantics. Nothing here
// guards an append against an ended lease: expiry is detected on the
// interactive path and a write racing the expiry instant still lands.
type Store interface {
	// Put writes the full lease record, replacing any prior row.
	Put(ctx context.Context, l Lease) error
	// Get returns the lease or ErrNotFound.
	Get(ctx context.Context, sessionID string) (Lease, error)
	// AppendTurn appends one chat turn and refreshes the voice id in a
	// single update.
	AppendTurn(ctx context.Context, sessionID string, t Turn, voiceID string) error
	// SetStatus flips the lease status. Setting an already-set status is
	// a no-op, not an error.
	SetStatus(ctx context.Context, sessionID string, status Status) error
	// Delete removes the lease. Deleting an absent lease succeeds.
	Delete(ctx context.Context, sessionID string) error
	Close() error
}
