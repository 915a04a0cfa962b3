package store

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/briangreenhill/voicept/internal/catalog"
	"github.com/briangreenhill/voicept/internal/fitness"
)

func testSaved(t *testing.T) Saved {
	t.Helper()
	profile, err := fitness.NewHealthProfile(fitness.ProfileInput{
		Height:                 180,
		Weight:                 81,
		WaistCircumference:     85,
		DiastolicBloodPressure: 80,
		SystolicBloodPressure:  120,
		FitnessGoals:           "Run a half marathon",
	})
	require.NoError(t, err)
	return Saved{Profile: profile, Program: catalog.Program(profile)}
}

func TestProfileCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	cache := NewProfileCache(NewMemoryKV(), zerolog.Nop())

	_, err := cache.Load(ctx, "s1")
	assert.ErrorIs(t, err, ErrNotFound)

	want := testSaved(t)
	require.NoError(t, cache.Save(ctx, "s1", want))

	got, err := cache.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = cache.Load(ctx, "s2")
	assert.ErrorIs(t, err, ErrNotFound, "namespaces are isolated")

	require.NoError(t, cache.Clear(ctx, "s1"))
	_, err = cache.Load(ctx, "s1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestProfileCacheCorruptIsDiscarded(t *testing.T) {
	tests := []struct {
		name    string
		profile string
		program string
	}{
		{"bad profile json", `{"height":`, ""},
		{"null profile", `null`, ""},
		{"bad program json", "", `[{"day":`},
		{"short program", "", `[{"day":"Monday","workoutName":"x","exercises":[]}]`},
		{"profile without program", "keep", "missing"},
		{"program without profile", "missing", "keep"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			kv := NewMemoryKV()
			cache := NewProfileCache(kv, zerolog.Nop())
			require.NoError(t, cache.Save(ctx, "ns", testSaved(t)))

			overwrite := func(name, value string) {
				switch value {
				case "", "keep":
				case "missing":
					require.NoError(t, kv.Remove(ctx, key("ns", name)))
				default:
					require.NoError(t, kv.Set(ctx, key("ns", name), []byte(value)))
				}
			}
			overwrite(HealthInfoKey, tt.profile)
			overwrite(WorkoutProgramKey, tt.program)

			_, err := cache.Load(ctx, "ns")
			assert.ErrorIs(t, err, ErrNotFound)

			_, err = kv.Get(ctx, key("ns", HealthInfoKey))
			assert.ErrorIs(t, err, ErrNotFound, "profile key cleared")
			_, err = kv.Get(ctx, key("ns", WorkoutProgramKey))
			assert.ErrorIs(t, err, ErrNotFound, "program key cleared")
		})
	}
}

func TestProfileCacheRejectsIncompleteProgram(t *testing.T) {
	cache := NewProfileCache(NewMemoryKV(), zerolog.Nop())
	s := testSaved(t)
	s.Program = s.Program[:3]

	err := cache.Save(context.Background(), "ns", s)
	assert.ErrorIs(t, err, ErrCacheCorrupt)
}

func TestProfileCacheEmptyNamespace(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	cache := NewProfileCache(kv, zerolog.Nop())
	require.NoError(t, cache.Save(ctx, "", testSaved(t)))

	_, err := kv.Get(ctx, HealthInfoKey)
	assert.NoError(t, err)
}
