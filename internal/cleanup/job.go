// Package cleanup deletes an expired session's cloned voices and lease
// record. It runs out-of-band, driven by the schedule runner, and must
// tolerate a session that was already terminated interactively.
package cleanup

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/membox/afterwords/internal/lease"
	"github.com/membox/afterwords/internal/voice"
)

// Payload is the invocation payload carried by a cleanup schedule.
type Payload struct {
	SessionID string   `json:"session_id"`
	VoiceIDs  []string `json:"voice_ids"`
	DueEpoch  int64    `json:"due_epoch"`
}

// LeaseResult reports the lease-deletion half of a cleanup run.
type LeaseResult struct {
	Deleted bool   `json:"deleted"`
	Reason  string `json:"reason,omitempty"`
}

// Result reports every outcome of one cleanup run: which voices were
// deleted, which failed and why, and whether the lease row is gone.
type Result struct {
	SessionID     string            `json:"session_id"`
	DeletedVoices []string          `json:"deleted"`
	FailedVoices  map[string]string `json:"failed"`
	Lease         LeaseResult       `json:"lease"`
	CompletedAt   int64             `json:"ts"`
}

// Job deletes cloned voices from the synthesis provider and the lease
// record from the store.
type Job struct {
	voices voice.Deleter
	leases lease.Store
	now    func() time.Time
}

func NewJob(voices voice.Deleter, leases lease.Store) *Job {
	return &Job{voices: voices, leases: leases, now: time.Now}
}

// Run executes one cleanup. Per-voice failures are recorded and never
// abort the batch or block lease deletion; a permanently undeletable
// voice is an accepted orphan. A lease-store failure is recorded in the
// result and also returned as an error so the runner's bounded retry
// applies to it.
func (j *Job) Run(ctx context.Context, p Payload) (Result, error) {
	res := Result{
		SessionID:    p.SessionID,
		FailedVoices: map[string]string{},
	}

	deleted, failed := j.deleteVoices(ctx, p.VoiceIDs)
	res.DeletedVoices = deleted
	res.FailedVoices = failed

	var retErr error
	res.Lease = j.deleteLease(ctx, p.SessionID)
	if !res.Lease.Deleted && res.Lease.Reason != "" && p.SessionID != "" {
		retErr = fmt.Errorf("delete lease %s: %s", p.SessionID, res.Lease.Reason)
	}

	res.CompletedAt = j.now().Unix()
	return res, retErr
}

// deleteVoices attempts one deletion per distinct non-empty voice id.
func (j *Job) deleteVoices(ctx context.Context, voiceIDs []string) ([]string, map[string]string) {
	deleted := []string{}
	failed := map[string]string{}

	seen := make(map[string]bool, len(voiceIDs))
	for _, id := range voiceIDs {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true

		if err := j.voices.DeleteVoice(ctx, id); err != nil {
			failed[id] = err.Error()
			continue
		}
		deleted = append(deleted, id)
	}

	sort.Strings(deleted)
	return deleted, failed
}

func (j *Job) deleteLease(ctx context.Context, sessionID string) LeaseResult {
	if strings.TrimSpace(sessionID) == "" {
		return LeaseResult{Deleted: false, Reason: "no_session_id"}
	}
	// Store deletes are idempotent: an already-absent lease succeeds.
	if err := j.leases.Delete(ctx, sessionID); err != nil {
		return LeaseResult{Deleted: false, Reason: err.Error()}
	}
	return LeaseResult{Deleted: true}
}
