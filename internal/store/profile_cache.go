package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/briangreenhill/voicept/internal/fitness"
)

// Keys under which a profile and its program are stored.
const (
	HealthInfoKey     = "voicePtHealthInfo"
	WorkoutProgramKey = "voicePtWorkoutProgram"
)

// Saved is a health profile together with the program generated for it.
type Saved struct {
	Profile fitness.HealthProfile
	Program fitness.WorkoutProgram
}

// ProfileCache stores a profile and its program as a pair. Either both are
// present or neither is; anything unreadable is discarded and reported as a miss.
type ProfileCache struct {
	kv     KV
	logger zerolog.Logger
}

func NewProfileCache(kv KV, logger zerolog.Logger) *ProfileCache {
	return &ProfileCache{kv: kv, logger: logger.With().Str("component", "profile_cache").Logger()}
}

// Load returns the saved pair for namespace ns, or ErrNotFound.
func (c *ProfileCache) Load(ctx context.Context, ns string) (Saved, error) {
	rawProfile, errProfile := c.kv.Get(ctx, key(ns, HealthInfoKey))
	rawProgram, errProgram := c.kv.Get(ctx, key(ns, WorkoutProgramKey))

	for _, err := range []error{errProfile, errProgram} {
		if err != nil && !errors.Is(err, ErrNotFound) {
			return Saved{}, err
		}
	}
	if errProfile != nil && errProgram != nil {
		return Saved{}, ErrNotFound
	}

	saved, err := decode(rawProfile, rawProgram)
	if err != nil {
		c.logger.Warn().Err(err).Str("namespace", ns).Msg("Discarding cached profile")
		if clearErr := c.Clear(ctx, ns); clearErr != nil {
			c.logger.Error().Err(clearErr).Str("namespace", ns).Msg("Failed to clear corrupt cache")
		}
		return Saved{}, ErrNotFound
	}
	return saved, nil
}

// Save writes both halves. The program is written first so a crash between
// the writes leaves a half pair, which Load treats as corrupt.
func (c *ProfileCache) Save(ctx context.Context, ns string, s Saved) error {
	if !s.Program.Complete() {
		return fmt.Errorf("save program with %d days: %w", len(s.Program), ErrCacheCorrupt)
	}
	program, err := json.Marshal(s.Program)
	if err != nil {
		return err
	}
	profile, err := json.Marshal(s.Profile)
	if err != nil {
		return err
	}
	if err := c.kv.Set(ctx, key(ns, WorkoutProgramKey), program); err != nil {
		return fmt.Errorf("save program: %w", err)
	}
	if err := c.kv.Set(ctx, key(ns, HealthInfoKey), profile); err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}

// Clear removes both keys.
func (c *ProfileCache) Clear(ctx context.Context, ns string) error {
	return errors.Join(
		c.kv.Remove(ctx, key(ns, HealthInfoKey)),
		c.kv.Remove(ctx, key(ns, WorkoutProgramKey)),
	)
}

func decode(rawProfile, rawProgram []byte) (Saved, error) {
	if rawProfile == nil || rawProgram == nil {
		return Saved{}, fmt.Errorf("incomplete pair: %w", ErrCacheCorrupt)
	}

	var profile *fitness.HealthProfile
	if err := json.Unmarshal(rawProfile, &profile); err != nil || profile == nil {
		return Saved{}, fmt.Errorf("profile: %w", errors.Join(ErrCacheCorrupt, err))
	}
	var program fitness.WorkoutProgram
	if err := json.Unmarshal(rawProgram, &program); err != nil {
		return Saved{}, fmt.Errorf("program: %w", errors.Join(ErrCacheCorrupt, err))
	}
	if !program.Complete() {
		return Saved{}, fmt.Errorf("program has %d days: %w", len(program), ErrCacheCorrupt)
	}
	return Saved{Profile: *profile, Program: program}, nil
}

func key(ns, name string) string {
	if ns == "" {
		return name
	}
	return ns + ":" + name
}
