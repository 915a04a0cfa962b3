// Package app builds the shared components both binaries run on.
package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/briangreenhill/voicept/internal/config"
	"github.com/briangreenhill/voicept/internal/guidance"
	"github.com/briangreenhill/voicept/internal/prompt"
	"github.com/briangreenhill/voicept/internal/speech"
)

// ProvideRegistry registers every guidance backend that has credentials.
func ProvideRegistry(ctx context.Context, cfg *config.Config) (*guidance.Registry, error) {
	registry := guidance.NewRegistry()
	if cfg.HasGemini() {
		b, err := guidance.NewGeminiBackend(ctx, guidance.GeminiOptions{
			APIKey:   cfg.Gemini.APIKey,
			Endpoint: cfg.Gemini.Endpoint,
			Model:    cfg.Gemini.Model,
		})
		if err != nil {
			return nil, err
		}
		registry.Register(b)
	}
	if cfg.HasOpenAI() {
		b, err := guidance.NewOpenAIBackend(guidance.OpenAIOptions{
			APIKey:  cfg.OpenAI.APIKey,
			BaseURL: cfg.OpenAI.BaseURL,
			Model:   cfg.OpenAI.Model,
		})
		if err != nil {
			return nil, err
		}
		registry.Register(b)
	}
	return registry, nil
}

// ProvideGuidance returns the client for the configured backend.
func ProvideGuidance(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*guidance.Requester, error) {
	registry, err := ProvideRegistry(ctx, cfg)
	if err != nil {
		return nil, err
	}
	backend, ok := registry.Get(cfg.Guidance.Backend)
	if !ok {
		return nil, fmt.Errorf("guidance backend %q not configured (available: %v)", cfg.Guidance.Backend, registry.List())
	}
	instructions := prompt.NewGenerator(cfg.Guidance.InstructionsPath, logger).GenerateWithFallback()
	logger.Info().Str("backend", backend.Name()).Msg("guidance backend enabled")
	return guidance.NewRequester(backend, instructions, logger), nil
}

// ProvideSynthesizer returns the configured synthesizer, or nil when speech
// is disabled.
func ProvideSynthesizer(ctx context.Context, cfg *config.Config) (speech.Synthesizer, error) {
	switch cfg.Speech.Backend {
	case config.BackendGemini:
		synth, err := speech.NewGeminiSynthesizer(ctx, speech.GeminiOptions{
			APIKey:   cfg.Gemini.APIKey,
			Endpoint: cfg.Gemini.Endpoint,
			Model:    cfg.Gemini.TTSModel,
			Voice:    cfg.Gemini.Voice,
		})
		if err != nil {
			return nil, err
		}
		return synth, nil
	case config.BackendOpenAI:
		synth, err := speech.NewOpenAISynthesizer(speech.OpenAIOptions{
			APIKey:  cfg.OpenAI.APIKey,
			BaseURL: cfg.OpenAI.BaseURL,
			Model:   cfg.OpenAI.TTSModel,
			Voice:   cfg.OpenAI.Voice,
		})
		if err != nil {
			return nil, err
		}
		return synth, nil
	case config.BackendNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown speech backend %q", cfg.Speech.Backend)
	}
}
