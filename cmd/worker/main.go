package main

import (
	"context"
	"os"

	"github.com/hibiken/asynq"

	"github.com/briangreenhill/voicept/internal/config"
	"github.com/briangreenhill/voicept/internal/db"
	"github.com/briangreenhill/voicept/internal/diag"
	"github.com/briangreenhill/voicept/internal/jobs"
	"github.com/briangreenhill/voicept/internal/logging"
)

func main() {
	cfg, err := config.LoadWorker()
	if err != nil {
		l := logging.New(os.Stderr, "info", "")
		l.Fatal().Err(err).Msg("invalid configuration")
	}
	logger := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)

	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		logger.Fatal().Err(err).Msg("migrate")
	}
	pool, err := db.Connect(context.Background(), cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("unable to connect to database")
	}
	defer pool.Close()

	srv := asynq.NewServer(asynq.RedisClientOpt{Addr: cfg.RedisAddr}, asynq.Config{
		Concurrency: 4,
		Queues: map[string]int{
			jobs.QueueDiagnostics: 5,
		},
	})
	mux := asynq.NewServeMux()
	mux.HandleFunc(jobs.TaskRecordGuidanceFailure, diag.Handler(diag.NewPGStore(pool), logger))

	logger.Info().Str("redis", cfg.RedisAddr).Msg("Worker running...")
	if err := srv.Run(mux); err != nil {
		logger.Fatal().Err(err).Msg("worker")
	}
}
