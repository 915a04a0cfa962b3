package guidance

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	name   string
	out    string
	err    error
	system string
	user   string
	calls  int
}

func (f *fakeBackend) Name() string { return f.name }

func (f *fakeBackend) Generate(ctx context.Context, system, user string) (string, error) {
	f.calls++
	f.system, f.user = system, user
	return f.out, f.err
}

func TestSanitize(t *testing.T) {
	p := Sanitize(Prompt{})
	assert.Equal(t, PlaceholderDescription, p.WorkoutDescription)
	assert.Equal(t, PlaceholderMotivation, p.UserMotivation)

	p = Sanitize(Prompt{WorkoutDescription: "Squats", UserMotivation: "  "})
	assert.Equal(t, "Squats", p.WorkoutDescription)
	assert.Equal(t, PlaceholderMotivation, p.UserMotivation)
}

func TestParseResult(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    Result
		wantErr bool
	}{
		{"plain", `{"voiceGuidance":"Go","closedCaptions":"Cap"}`, Result{"Go", "Cap"}, false},
		{"fenced", "```json\n{\"voiceGuidance\":\"Go\",\"closedCaptions\":\"Cap\"}\n```", Result{"Go", "Cap"}, false},
		{"empty strings allowed", `{"voiceGuidance":"","closedCaptions":""}`, Result{}, false},
		{"missing captions", `{"voiceGuidance":"Go"}`, Result{}, true},
		{"null guidance", `{"voiceGuidance":null,"closedCaptions":"Cap"}`, Result{}, true},
		{"wrong type", `{"voiceGuidance":1,"closedCaptions":"Cap"}`, Result{}, true},
		{"not json", `Sure! Here is your workout`, Result{}, true},
		{"blank", "  ", Result{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseResult(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRequesterSuccess(t *testing.T) {
	b := &fakeBackend{name: "fake", out: `{"voiceGuidance":"Great job...","closedCaptions":"Caption text"}`}
	r := NewRequester(b, "be nice", zerolog.Nop())

	res, err := r.RequestGuidance(context.Background(), Prompt{WorkoutDescription: "Squats", UserMotivation: ""})
	require.NoError(t, err)
	assert.Equal(t, Result{VoiceGuidance: "Great job...", ClosedCaptions: "Caption text"}, res)
	assert.Equal(t, 1, b.calls)
	assert.Equal(t, "be nice", b.system)
	assert.Equal(t, "Workout Description: Squats\nUser Motivation: "+PlaceholderMotivation, b.user)
}

func TestRequesterBackendError(t *testing.T) {
	upstream := errors.New("503 from upstream")
	b := &fakeBackend{name: "fake", err: upstream}
	r := NewRequester(b, "", zerolog.Nop())

	_, err := r.RequestGuidance(context.Background(), Prompt{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnavailable))
	assert.True(t, errors.Is(err, upstream))
	assert.Equal(t, 1, b.calls, "no retries")

	var gerr *Error
	require.True(t, errors.As(err, &gerr))
	assert.Equal(t, "fake", gerr.Backend)
}

func TestRequesterMalformedOutput(t *testing.T) {
	b := &fakeBackend{name: "fake", out: `{"voiceGuidance":"only half"}`}
	r := NewRequester(b, "", zerolog.Nop())

	_, err := r.RequestGuidance(context.Background(), Prompt{})
	assert.True(t, errors.Is(err, ErrUnavailable))
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	assert.Empty(t, reg.List())

	reg.Register(&fakeBackend{name: "openai"})
	reg.Register(&fakeBackend{name: "gemini"})

	b, ok := reg.Get("gemini")
	require.True(t, ok)
	assert.Equal(t, "gemini", b.Name())

	_, ok = reg.Get("nonexistent")
	assert.False(t, ok)
	assert.Equal(t, []string{"gemini", "openai"}, reg.List())
}
