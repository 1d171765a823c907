package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/membox/afterwords/internal/chat"
	"github.com/membox/afterwords/internal/lease"
	"github.com/membox/afterwords/internal/schedule"
)

type stubRunner struct {
	err   error
	calls int
}

func (r *stubRunner) Turn(_ context.Context, req chat.TurnRequest) (chat.TurnResult, error) {
	r.calls++
	if r.err != nil {
		return chat.TurnResult{}, r.err
	}
	return chat.TurnResult{VoiceID: "voice-1", AudioKey: "reply-1.mp3"}, nil
}

func newTestManager(runner TurnRunner) (*Manager, lease.Store, schedule.Store) {
	leases := lease.NewInMemoryStore()
	schedules := schedule.NewInMemoryStore()
	m := NewManager(leases, schedule.NewScheduler(schedules, 90*time.Second), runner, 600*time.Second)
	return m, leases, schedules
}

func TestCreateWritesLeaseAndSchedule(t *testing.T) {
	m, leases, schedules := newTestManager(&stubRunner{})
	m.now = func() time.Time { return time.Unix(1000, 0) }

	ctx := context.Background()
	res, err := m.Create(ctx, CreateRequest{
		Who:          "jamil",
		Relation:     "daughter",
		Lang:         "ar",
		AudioKey:     "sample.wav",
		FirstMessage: "Hello, how are you?",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	l := res.Lease
	if l.StartedAt != 1000 || l.ExpiresAt != 1600 {
		t.Fatalf("StartedAt/ExpiresAt = %d/%d, want 1000/1600", l.StartedAt, l.ExpiresAt)
	}
	if l.ExpiresAt != l.StartedAt+600 {
		t.Fatalf("ExpiresAt must be StartedAt+ttl exactly, got %d", l.ExpiresAt)
	}
	if l.Status != lease.StatusActive {
		t.Fatalf("Status = %q, want active", l.Status)
	}
	if l.VoiceID != "voice-1" {
		t.Fatalf("VoiceID = %q, want voice-1", l.VoiceID)
	}
	if len(l.ChatLog) != 1 || l.ChatLog[0].UserText != "Hello, how are you?" {
		t.Fatalf("first turn not recorded: %+v", l.ChatLog)
	}
	if !res.CleanupScheduled {
		t.Fatal("CleanupScheduled = false, want true")
	}

	stored, err := leases.Get(ctx, l.SessionID)
	if err != nil {
		t.Fatalf("lease not persisted: %v", err)
	}
	if stored.ExpiresAt != 1600 {
		t.Fatalf("persisted ExpiresAt = %d, want 1600", stored.ExpiresAt)
	}

	sched, err := schedules.Get(ctx, schedule.ScheduleName(l.SessionID))
	if err != nil {
		t.Fatalf("cleanup schedule not created: %v", err)
	}
	// The scheduler stamps its own clock; the fire time is ttl+buffer out.
	wantDue := time.Now().UTC().Add(690 * time.Second).Unix()
	if diff := sched.DueEpoch - wantDue; diff < -2 || diff > 2 {
		t.Fatalf("DueEpoch = %d, want about %d (ttl+90s buffer)", sched.DueEpoch, wantDue)
	}
	if len(sched.VoiceIDs) != 1 || sched.VoiceIDs[0] != "voice-1" {
		t.Fatalf("schedule VoiceIDs = %v, want [voice-1]", sched.VoiceIDs)
	}
}

func TestCreateSynthesisFailureLeavesNoState(t *testing.T) {
	runner := &stubRunner{err: errors.New("synthesis down")}
	m, leases, schedules := newTestManager(runner)

	ctx := context.Background()
	if _, err := m.Create(ctx, CreateRequest{FirstMessage: "hi"}); err == nil {
		t.Fatal("Create() should propagate synthesis failure")
	}

	if due, _ := schedules.Due(ctx, time.Now().Add(time.Hour).Unix(), 10); len(due) != 0 {
		t.Fatalf("schedules written despite failed create: %v", due)
	}
	// No lease id to look up, so assert via the store being empty of any
	// row: an in-memory Get on a random id suffices as a smoke check.
	if _, err := leases.Get(ctx, "anything"); err != lease.ErrNotFound {
		t.Fatalf("Get on empty store error = %v, want ErrNotFound", err)
	}
}

func TestRestore(t *testing.T) {
	m, leases, _ := newTestManager(&stubRunner{})
	ctx := context.Background()

	if err := leases.Put(ctx, lease.Lease{SessionID: "s1", Status: lease.StatusActive, ExpiresAt: 1600}); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, ok, err := m.Restore(ctx, "s1")
	if err != nil || !ok {
		t.Fatalf("Restore() = ok=%v err=%v, want found", ok, err)
	}
	if got.SessionID != "s1" {
		t.Fatalf("restored wrong lease: %+v", got)
	}

	_, ok, err = m.Restore(ctx, "missing")
	if err != nil {
		t.Fatalf("Restore(missing) error = %v, want nil", err)
	}
	if ok {
		t.Fatal("Restore(missing) reported a session")
	}
}

func TestTerminateIdempotent(t *testing.T) {
	m, leases, _ := newTestManager(&stubRunner{})
	ctx := context.Background()

	if err := leases.Put(ctx, lease.Lease{SessionID: "s1", Status: lease.StatusActive}); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	if err := m.Terminate(ctx, "s1", "user ended"); err != nil {
		t.Fatalf("Terminate() error = %v", err)
	}
	if err := m.Terminate(ctx, "s1", "again"); err != nil {
		t.Fatalf("Terminate() second call error = %v, want nil", err)
	}

	got, _ := leases.Get(ctx, "s1")
	if got.Status != lease.StatusEnded {
		t.Fatalf("Status = %q, want ended", got.Status)
	}

	if err := m.Terminate(ctx, "never-existed", "noop"); err != nil {
		t.Fatalf("Terminate(missing) error = %v, want nil", err)
	}
}

func TestAppendTurn(t *testing.T) {
	m, leases, _ := newTestManager(&stubRunner{})
	ctx := context.Background()

	if err := leases.Put(ctx, lease.Lease{SessionID: "s1", Status: lease.StatusActive, VoiceID: "v1"}); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := m.AppendTurn(ctx, "s1", "how are you", "a2.mp3", "v2"); err != nil {
		t.Fatalf("AppendTurn() error = %v", err)
	}

	got, _ := leases.Get(ctx, "s1")
	if len(got.ChatLog) != 1 || got.ChatLog[0].AudioKey != "a2.mp3" || got.VoiceID != "v2" {
		t.Fatalf("unexpected lease after append: %+v", got)
	}
}
