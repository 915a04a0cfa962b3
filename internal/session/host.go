// Package session adapts user requests to a narration controller and keeps
// the user's profile and program.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/briangreenhill/voicept/internal/catalog"
	"github.com/briangreenhill/voicept/internal/fitness"
	"github.com/briangreenhill/voicept/internal/narration"
	"github.com/briangreenhill/voicept/internal/notify"
	"github.com/briangreenhill/voicept/internal/prompt"
	"github.com/briangreenhill/voicept/internal/store"
)

var (
	// ErrNoProfile is returned when a program is needed before a profile was submitted.
	ErrNoProfile = errors.New("no health profile")
	// ErrRestDay is returned when guidance is requested for a rest day.
	ErrRestDay = narration.ErrRestDay
	// ErrUnknownDay is returned for a day index outside the program.
	ErrUnknownDay = errors.New("unknown day")
	// ErrUnknownExercise is returned for an exercise index outside the day.
	ErrUnknownExercise = errors.New("unknown exercise")
)

// Host is one user's session: their profile, their program and a single
// narration controller.
type Host struct {
	id     string
	cache  *store.ProfileCache
	ctrl   *narration.Controller
	hub    *notify.Hub
	logger zerolog.Logger

	mu      sync.RWMutex
	profile *fitness.HealthProfile
	program fitness.WorkoutProgram
}

// NewHost wires a Host. hub may be nil when nobody listens live.
func NewHost(id string, ctrl *narration.Controller, cache *store.ProfileCache, hub *notify.Hub, logger zerolog.Logger) *Host {
	return &Host{
		id:     id,
		cache:  cache,
		ctrl:   ctrl,
		hub:    hub,
		logger: logger.With().Str("component", "session").Str("session_id", id).Logger(),
	}
}

func (h *Host) ID() string { return h.id }

// Restore loads a previously saved profile. A missing or unreadable cache
// leaves the host without a profile and is not an error.
func (h *Host) Restore(ctx context.Context) error {
	if h.cache == nil {
		return nil
	}
	saved, err := h.cache.Load(ctx, h.id)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("restore profile: %w", err)
	}

	h.mu.Lock()
	h.profile = &saved.Profile
	h.program = saved.Program
	h.mu.Unlock()
	h.logger.Debug().Msg("profile restored")
	return nil
}

// SubmitProfile validates in, derives metrics, generates the program and
// saves both. Any open narration is closed.
func (h *Host) SubmitProfile(ctx context.Context, in fitness.ProfileInput) (fitness.HealthProfile, fitness.WorkoutProgram, error) {
	profile, err := fitness.NewHealthProfile(in)
	if err != nil {
		return fitness.HealthProfile{}, nil, err
	}
	program := catalog.Program(profile)

	if h.cache != nil {
		if err := h.cache.Save(ctx, h.id, store.Saved{Profile: profile, Program: program}); err != nil {
			return fitness.HealthProfile{}, nil, fmt.Errorf("save profile: %w", err)
		}
	}
	if _, err := h.ctrl.Close(); err != nil {
		return fitness.HealthProfile{}, nil, err
	}

	h.mu.Lock()
	h.profile = &profile
	h.program = program
	h.mu.Unlock()

	h.logger.Info().Float64("bmi", profile.BMI).Msg("profile submitted")
	return profile, program, nil
}

// Profile returns the current profile.
func (h *Host) Profile() (fitness.HealthProfile, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.profile == nil {
		return fitness.HealthProfile{}, ErrNoProfile
	}
	return *h.profile, nil
}

// Program returns the current seven-day program.
func (h *Host) Program() (fitness.WorkoutProgram, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.profile == nil {
		return nil, ErrNoProfile
	}
	return h.program, nil
}

// PlayDay opens guidance for a whole day.
func (h *Host) PlayDay(day int) (narration.State, error) {
	return h.open(day, -1)
}

// PlayExercise opens guidance for one exercise within a day.
func (h *Host) PlayExercise(day, exercise int) (narration.State, error) {
	if exercise < 0 {
		return h.ctrl.Snapshot(), ErrUnknownExercise
	}
	return h.open(day, exercise)
}

func (h *Host) open(day, exercise int) (narration.State, error) {
	h.mu.RLock()
	profile := h.profile
	program := h.program
	h.mu.RUnlock()

	if profile == nil {
		return h.ctrl.Snapshot(), ErrNoProfile
	}
	workout, ok := program.Day(day)
	if !ok {
		return h.ctrl.Snapshot(), fmt.Errorf("%w: %d", ErrUnknownDay, day)
	}
	if workout.IsRest() {
		return h.ctrl.Snapshot(), ErrRestDay
	}

	target := narration.Target{DayIndex: day, Workout: workout}
	if exercise >= 0 {
		ex, ok := workout.Exercise(exercise)
		if !ok {
			return h.ctrl.Snapshot(), fmt.Errorf("%w: %d", ErrUnknownExercise, exercise)
		}
		target.Exercise = &ex
	}

	h.logger.Debug().Str("target", target.Label()).Msg("opening guidance")
	return h.ctrl.Open(target, prompt.Build(workout, target.Exercise, profile))
}

// Play starts, resumes or retries narration.
func (h *Host) Play() (narration.State, error) { return h.ctrl.Play() }

// Pause pauses narration.
func (h *Host) Pause() (narration.State, error) { return h.ctrl.Pause() }

// Close dismisses the guidance dialog.
func (h *Host) Close() (narration.State, error) { return h.ctrl.Close() }

// Snapshot returns the narration state.
func (h *Host) Snapshot() narration.State { return h.ctrl.Snapshot() }

// Reset forgets the profile and program and closes narration.
func (h *Host) Reset(ctx context.Context) error {
	if _, err := h.ctrl.Close(); err != nil {
		return err
	}
	h.mu.Lock()
	h.profile = nil
	h.program = nil
	h.mu.Unlock()

	if h.cache != nil {
		if err := h.cache.Clear(ctx, h.id); err != nil {
			return fmt.Errorf("clear profile: %w", err)
		}
	}
	h.logger.Info().Msg("session reset")
	return nil
}

// Subscribe returns a live feed of phase changes, notices and audio, or nil
// when the host has no hub.
func (h *Host) Subscribe() *notify.Subscription {
	if h.hub == nil {
		return nil
	}
	return h.hub.Subscribe()
}

// Shutdown stops the controller and disconnects subscribers.
func (h *Host) Shutdown() {
	h.ctrl.Stop()
	if h.hub != nil {
		h.hub.Close()
	}
}
