package diag

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/briangreenhill/voicept/internal/jobs"
)

type inserter interface {
	Insert(ctx context.Context, p jobs.GuidanceFailurePayload) error
}

// Handler consumes diagnostics tasks. Permanent errors drop the task; transient
// ones are returned so asynq retries.
func Handler(store inserter, logger zerolog.Logger) asynq.HandlerFunc {
	logger = logger.With().Str("component", "diag_worker").Logger()
	return func(ctx context.Context, t *asynq.Task) error {
		var p jobs.GuidanceFailurePayload
		if err := json.Unmarshal(t.Payload(), &p); err != nil {
			logger.Error().Err(err).Msg("bad payload")
			return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
		}

		start := time.Now()
		err := store.Insert(ctx, p)
		duration := time.Since(start)

		if err != nil {
			if IsRetryable(err) {
				logger.Warn().Err(err).Str("id", p.ID).Dur("duration", duration).Msg("retryable error")
				return err
			}
			logger.Error().Err(err).Str("id", p.ID).Dur("duration", duration).Msg("permanent error, dropping task")
			return nil
		}
		logger.Info().Str("id", p.ID).Str("kind", p.Kind).Str("target", p.Target).Dur("duration", duration).Msg("failure recorded")
		return nil
	}
}
