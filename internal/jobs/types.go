package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const TaskRecordGuidanceFailure = "diag:guidance_failure"

// QueueDiagnostics is the asynq queue failure records are written to.
const QueueDiagnostics = "diagnostics"

type GuidanceFailurePayload struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"session_id,omitempty"`
	Kind       string    `json:"kind"`
	Target     string    `json:"target"`
	Generation uint64    `json:"generation"`
	Error      string    `json:"error"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewGuidanceFailureTask encodes p as a task for the diagnostics queue.
func NewGuidanceFailureTask(p GuidanceFailurePayload) (*asynq.Task, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRecordGuidanceFailure, payload,
		asynq.Queue(QueueDiagnostics),
		asynq.MaxRetry(3),
		asynq.Timeout(30*time.Second),
	), nil
}
