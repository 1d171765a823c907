package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/membox/afterwords/internal/chat"
	"github.com/membox/afterwords/internal/lease"
	"github.com/membox/afterwords/internal/schedule"
)

// DefaultTTL is the fixed session time box.
const DefaultTTL = 600 * time.Second

// TurnRunner produces the spoken reply for one user message.
type TurnRunner interface {
	Turn(ctx context.Context, req chat.TurnRequest) (chat.TurnResult, error)
}

// CreateRequest carries everything needed to start a session. AudioKey
// must reference an already-uploaded voice sample.
type CreateRequest struct {
	Who          string
	Relation     string
	Lang         string
	AudioKey     string
	FirstMessage string
}

// CreateResult is the outcome of starting a session. CleanupScheduled
// is false when the cleanup schedule could not be created; the session
// still proceeds and the voice clone may leak.
type CreateResult struct {
	Lease            lease.Lease
	CleanupScheduled bool
}

// Manager owns the session lease lifecycle: creation, restoration,
// turn persistence and termination. Expiry is detected by callers
// comparing wall-clock time to the lease (render tick, input attempt);
// the manager never locks out a write racing the expiry instant.
type Manager struct {
	leases    lease.Store
	scheduler *schedule.Scheduler
	runner    TurnRunner
	ttl       time.Duration
	now       func() time.Time
}

func NewManager(leases lease.Store, scheduler *schedule.Scheduler, runner TurnRunner, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{
		leases:    leases,
		scheduler: scheduler,
		runner:    runner,
		ttl:       ttl,
		now:       time.Now,
	}
}

// TTL returns the fixed session time box.
func (m *Manager) TTL() time.Duration { return m.ttl }

// Create starts a new session. The first synthesis call runs before
// anything is persisted: if it fails, no lease is written and no
// cleanup is scheduled, so there is no partial state to undo.
func (m *Manager) Create(ctx context.Context, req CreateRequest) (CreateResult, error) {
	sessionID := uuid.NewString()

	turn, err := m.runner.Turn(ctx, chat.TurnRequest{
		Who:       req.Who,
		Relation:  req.Relation,
		Lang:      req.Lang,
		Text:      req.FirstMessage,
		SampleKey: req.AudioKey,
	})
	if err != nil {
		return CreateResult{}, fmt.Errorf("first synthesis: %w", err)
	}

	started := m.now().UTC().Unix()
	l := lease.Lease{
		SessionID: sessionID,
		Status:    lease.StatusActive,
		Who:       req.Who,
		Relation:  req.Relation,
		Lang:      req.Lang,
		AudioKey:  req.AudioKey,
		VoiceID:   turn.VoiceID,
		ChatLog:   []lease.Turn{{UserText: req.FirstMessage, AudioKey: turn.AudioKey}},
		StartedAt: started,
		ExpiresAt: started + int64(m.ttl/time.Second),
	}
	if err := m.leases.Put(ctx, l); err != nil {
		return CreateResult{}, fmt.Errorf("persist lease: %w", err)
	}

	// Scheduling failure is a warning, not an error: the session runs,
	// the cleanup just won't - an acknowledged leak.
	scheduled := true
	if _, err := m.scheduler.ScheduleCleanup(ctx, sessionID, []string{turn.VoiceID}, m.ttl); err != nil {
		log.Printf("session %s: cleanup scheduling failed: %v", sessionID, err)
		scheduled = false
	}

	return CreateResult{Lease: l, CleanupScheduled: scheduled}, nil
}

// Restore looks up a session on page reload. A missing lease is "no
// session", not an error; the caller decides liveness via ActiveAt.
func (m *Manager) Restore(ctx context.Context, sessionID string) (lease.Lease, bool, error) {
	l, err := m.leases.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, lease.ErrNotFound) {
			return lease.Lease{}, false, nil
		}
		return lease.Lease{}, false, fmt.Errorf("restore session: %w", err)
	}
	return l, true, nil
}

// AppendTurn persists one completed chat turn and the (possibly
// refreshed) voice id in a single store update. Callers verify the
// session is active first.
func (m *Manager) AppendTurn(ctx context.Context, sessionID, userText, audioKey, voiceID string) error {
	t := lease.Turn{UserText: userText, AudioKey: audioKey}
	if err := m.leases.AppendTurn(ctx, sessionID, t, voiceID); err != nil {
		return fmt.Errorf("append turn: %w", err)
	}
	return nil
}

// Terminate marks the session ended. Terminating an already-ended or
// missing session is a no-op.
func (m *Manager) Terminate(ctx context.Context, sessionID, reason string) error {
	err := m.leases.SetStatus(ctx, sessionID, lease.StatusEnded)
	if err != nil {
		if errors.Is(err, lease.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("terminate session: %w", err)
	}
	log.Printf("session %s ended: %s", sessionID, reason)
	return nil
}
