package schedule

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists one-shot cleanup schedules in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, strings.TrimSpace(databaseURL))
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := initScheduleSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &PostgresStore{pool: pool}, nil
}

func initScheduleSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS cleanup_schedules (
			name TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			voice_ids TEXT[] NOT NULL DEFAULT '{}',
			due_epoch BIGINT NOT NULL,
			attempts INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE INDEX IF NOT EXISTS idx_cleanup_schedules_due ON cleanup_schedules (due_epoch);`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schedule schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (s *PostgresStore) Upsert(ctx context.Context, sched Schedule) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO cleanup_schedules (name, session_id, voice_ids, due_epoch, attempts)
		 VALUES ($1,$2,$3,$4,0)
		 ON CONFLICT (name) DO UPDATE SET
			session_id=EXCLUDED.session_id,
			voice_ids=EXCLUDED.voice_ids,
			due_epoch=EXCLUDED.due_epoch,
			attempts=0`,
		sched.Name,
		sched.SessionID,
		sched.VoiceIDs,
		sched.DueEpoch,
	)
	if err != nil {
		return fmt.Errorf("upsert schedule: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, name string) (Schedule, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT name, session_id, voice_ids, due_epoch, attempts
		   FROM cleanup_schedules WHERE name=$1`,
		name,
	)
	var sched Schedule
	if err := row.Scan(&sched.Name, &sched.SessionID, &sched.VoiceIDs, &sched.DueEpoch, &sched.Attempts); err != nil {
		if err == pgx.ErrNoRows {
			return Schedule{}, ErrNotFound
		}
		return Schedule{}, fmt.Errorf("get schedule: %w", err)
	}
	return sched, nil
}

func (s *PostgresStore) Due(ctx context.Context, nowEpoch int64, limit int) ([]Schedule, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT name, session_id, voice_ids, due_epoch, attempts
		   FROM cleanup_schedules WHERE due_epoch <= $1
		  ORDER BY due_epoch ASC LIMIT $2`,
		nowEpoch, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list due schedules: %w", err)
	}
	defer rows.Close()

	out := make([]Schedule, 0, limit)
	for rows.Next() {
		var sched Schedule
		if err := rows.Scan(&sched.Name, &sched.SessionID, &sched.VoiceIDs, &sched.DueEpoch, &sched.Attempts); err != nil {
			return nil, fmt.Errorf("scan schedule row: %w", err)
		}
		out = append(out, sched)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate schedule rows: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) MarkAttempt(ctx context.Context, name string, attempts int) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE cleanup_schedules SET attempts=$2 WHERE name=$1`,
		name, attempts,
	)
	if err != nil {
		return fmt.Errorf("mark schedule attempt: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, name string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM cleanup_schedules WHERE name=$1`, name); err != nil {
		return fmt.Errorf("delete schedule: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
