package lease

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists session leases in PostgreSQL, one row per
// session keyed by session_id.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, strings.TrimSpace(databaseURL))
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := initLeaseSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &PostgresStore{pool: pool}, nil
}

func initLeaseSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS leases (
			session_id TEXT PRIMARY KEY,
			status TEXT NOT NULL,
			who TEXT NOT NULL DEFAULT '',
			relation TEXT NOT NULL DEFAULT '',
			lang TEXT NOT NULL DEFAULT '',
			audio_key TEXT NOT NULL DEFAULT '',
			voice_id TEXT NOT NULL DEFAULT '',
			chat_log JSONB NOT NULL DEFAULT '[]'::jsonb,
			started_at_epoch BIGINT NOT NULL,
			expires_at_epoch BIGINT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_leases_status_expires ON leases (status, expires_at_epoch);`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init lease schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (s *PostgresStore) Put(ctx context.Context, l Lease) error {
	chatLog, err := json.Marshal(l.ChatLog)
	if err != nil {
		return fmt.Errorf("encode chat log: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO leases (
			session_id, status, who, relation, lang, audio_key, voice_id, chat_log,
			started_at_epoch, expires_at_epoch
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (session_id) DO UPDATE SET
			status=EXCLUDED.status,
			who=EXCLUDED.who,
			relation=EXCLUDED.relation,
			lang=EXCLUDED.lang,
			audio_key=EXCLUDED.audio_key,
			voice_id=EXCLUDED.voice_id,
			chat_log=EXCLUDED.chat_log,
			started_at_epoch=EXCLUDED.started_at_epoch,
			expires_at_epoch=EXCLUDED.expires_at_epoch`,
		l.SessionID,
		string(l.Status),
		l.Who,
		l.Relation,
		l.Lang,
		l.AudioKey,
		l.VoiceID,
		chatLog,
		l.StartedAt,
		l.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("put lease: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, sessionID string) (Lease, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT session_id, status, who, relation, lang, audio_key, voice_id, chat_log,
		        started_at_epoch, expires_at_epoch
		   FROM leases WHERE session_id=$1`,
		sessionID,
	)

	var (
		l       Lease
		status  string
		chatLog []byte
	)
	if err := row.Scan(
		&l.SessionID,
		&status,
		&l.Who,
		&l.Relation,
		&l.Lang,
		&l.AudioKey,
		&l.VoiceID,
		&chatLog,
		&l.StartedAt,
		&l.ExpiresAt,
	); err != nil {
		if err == pgx.ErrNoRows {
			return Lease{}, ErrNotFound
		}
		return Lease{}, fmt.Errorf("get lease: %w", err)
	}
	l.Status = Status(status)
	if err := json.Unmarshal(chatLog, &l.ChatLog); err != nil {
		return Lease{}, fmt.Errorf("decode chat log: %w", err)
	}
	return l, nil
}

// AppendTurn appends the turn and refreshes the voice id in a single
// statement; the store offers no cross-statement atomicity beyond it.
func (s *PostgresStore) AppendTurn(ctx context.Context, sessionID string, t Turn, voiceID string) error {
	entry, err := json.Marshal([]Turn{t})
	if err != nil {
		return fmt.Errorf("encode turn: %w", err)
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE leases SET voice_id=$2, chat_log = chat_log || $3::jsonb WHERE session_id=$1`,
		sessionID, voiceID, entry,
	)
	if err != nil {
		return fmt.Errorf("append turn: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) SetStatus(ctx context.Context, sessionID string, status Status) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE leases SET status=$2 WHERE session_id=$1`,
		sessionID, string(status),
	)
	if err != nil {
		return fmt.Errorf("set lease status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, sessionID string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM leases WHERE session_id=$1`, sessionID); err != nil {
		return fmt.Errorf("delete lease: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
