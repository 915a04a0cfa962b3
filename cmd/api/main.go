// cmd/api/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	scs "github.com/alexedwards/scs/v2"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/briangreenhill/voicept/internal/app"
	"github.com/briangreenhill/voicept/internal/config"
	"github.com/briangreenhill/voicept/internal/diag"
	"github.com/briangreenhill/voicept/internal/events"
	"github.com/briangreenhill/voicept/internal/http/routes"
	"github.com/briangreenhill/voicept/internal/logging"
	"github.com/briangreenhill/voicept/internal/narration"
	"github.com/briangreenhill/voicept/internal/session"
	"github.com/briangreenhill/voicept/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		l := logging.New(os.Stderr, "info", "")
		l.Fatal().Err(err).Msg("invalid configuration")
	}

	// Logger
	logger := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	logger.Info().Str("port", cfg.Port).Msg("starting voicept api")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	guide, err := app.ProvideGuidance(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("guidance")
	}
	synth, err := app.ProvideSynthesizer(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("speech")
	}
	if synth == nil {
		logger.Warn().Msg("speech disabled, play will report SpeechUnavailable")
	}

	// Profile store
	kv, err := store.Open(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Str("backend", cfg.Store.Backend).Msg("store")
	}
	defer kv.Close()

	deps := session.Deps{
		Guide:           guide,
		Synth:           synth,
		FrameInterval:   cfg.Speech.FrameInterval,
		GuidanceTimeout: cfg.Guidance.Timeout,
		Cache:           store.NewProfileCache(kv, logger),
		Logger:          logger,
	}

	if cfg.HasKafka() {
		publisher := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger)
		defer publisher.Close()
		deps.Observers = func(id string) []narration.Observer {
			return []narration.Observer{publisher.ForSession(id)}
		}
	}

	if cfg.Diagnostics.Enabled {
		client := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
		defer func() {
			if closeErr := client.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("Error closing asynq client")
			}
		}()
		recorder := diag.NewQueueRecorder(client, logger)
		deps.Recorder = func(id string) narration.Recorder { return recorder.ForSession(id) }
	}

	sessions := session.NewManager(deps)
	defer sessions.Shutdown()
	go sweep(ctx, sessions, cfg.SessionLifetime, logger)

	// Sessions
	sess := scs.New()
	sess.Lifetime = cfg.SessionLifetime
	sess.Cookie.HttpOnly = true
	sess.Cookie.SameSite = http.SameSiteLaxMode
	sess.Cookie.Secure = strings.HasPrefix(cfg.BaseURL, "https://")

	// Router / server
	s := routes.New(routes.ServerOptions{
		Sess:     sess,
		Sessions: sessions,
		Logger:   logger,
	})

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: s.Router, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("shutdown")
		}
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("server")
	}
	logger.Info().Msg("stopped")
}

// sweep drops idle session hosts once their browser session would have expired.
func sweep(ctx context.Context, sessions *session.Manager, idle time.Duration, logger zerolog.Logger) {
	t := time.NewTicker(time.Minute)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := sessions.Sweep(idle); n > 0 {
				logger.Debug().Int("hosts", n).Msg("swept idle sessions")
			}
		}
	}
}
