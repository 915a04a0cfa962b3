// Package diag records narration failures for later inspection. The API
// enqueues them; the worker writes them to Postgres.
package diag

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"

	"github.com/briangreenhill/voicept/internal/jobs"
	"github.com/briangreenhill/voicept/internal/narration"
)

type enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// QueueRecorder enqueues every failure as a diagnostics task.
type QueueRecorder struct {
	client    enqueuer
	sessionID string
	logger    zerolog.Logger
}

func NewQueueRecorder(client *asynq.Client, logger zerolog.Logger) *QueueRecorder {
	return newQueueRecorder(client, logger)
}

func newQueueRecorder(client enqueuer, logger zerolog.Logger) *QueueRecorder {
	return &QueueRecorder{client: client, logger: logger.With().Str("component", "diag").Logger()}
}

// ForSession returns a copy that tags records with sessionID.
func (q *QueueRecorder) ForSession(sessionID string) *QueueRecorder {
	cp := *q
	cp.sessionID = sessionID
	return &cp
}

// RecordFailure implements narration.Recorder.
func (q *QueueRecorder) RecordFailure(ctx context.Context, f narration.Failure) error {
	task, err := jobs.NewGuidanceFailureTask(Payload(q.sessionID, f))
	if err != nil {
		return fmt.Errorf("encode failure: %w", err)
	}
	info, err := q.client.EnqueueContext(ctx, task)
	if err != nil {
		return fmt.Errorf("enqueue failure: %w", err)
	}
	q.logger.Debug().Str("task_id", info.ID).Str("queue", info.Queue).Msg("failure enqueued")
	return nil
}

// Payload flattens a failure into its task payload.
func Payload(sessionID string, f narration.Failure) jobs.GuidanceFailurePayload {
	p := jobs.GuidanceFailurePayload{
		ID:         uuid.NewString(),
		SessionID:  sessionID,
		Kind:       f.Kind.String(),
		Generation: f.Generation,
		OccurredAt: f.At,
	}
	if f.Target != nil {
		p.Target = f.Target.Label()
	}
	if f.Err != nil {
		p.Error = f.Err.Error()
	}
	return p
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PGStore writes failure records into guidance_failures.
type PGStore struct {
	db execer
}

// NewPGStore takes a *pgxpool.Pool or anything with the same Exec.
func NewPGStore(db execer) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Insert(ctx context.Context, p jobs.GuidanceFailurePayload) error {
	id, err := uuid.Parse(p.ID)
	if err != nil {
		return fmt.Errorf("parse failure id: %w", err)
	}
	_, err = s.db.Exec(ctx,
		`INSERT INTO guidance_failures (id, session_id, kind, target, generation, error, occurred_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (id) DO NOTHING`,
		id, p.SessionID, p.Kind, p.Target, int64(p.Generation), p.Error, p.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("insert guidance failure: %w", err)
	}
	return nil
}

// IsRetryable reports whether err looks transient.
func IsRetryable(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	errStr := strings.ToLower(err.Error())

	// Network/connectivity issues
	if strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "connection") ||
		strings.Contains(errStr, "network") ||
		strings.Contains(errStr, "dns") {
		return true
	}

	// Database is starting up or shutting down
	if strings.Contains(errStr, "the database system is") ||
		strings.Contains(errStr, "too many clients") {
		return true
	}

	return false
}
