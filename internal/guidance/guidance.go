// Package guidance requests voice guidance scripts from a text generation backend.
package guidance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrUnavailable marks every failure to obtain usable guidance.
var ErrUnavailable = errors.New("guidance unavailable")

// Placeholders substituted for empty prompt fields.
const (
	PlaceholderDescription = "No workout description provided."
	PlaceholderMotivation  = "General fitness motivation."
)

// Prompt is built per request and never stored.
type Prompt struct {
	WorkoutDescription string `json:"workoutDescription"`
	UserMotivation     string `json:"userMotivation"`
}

// Result is the narration script and its captions.
type Result struct {
	VoiceGuidance  string `json:"voiceGuidance"`
	ClosedCaptions string `json:"closedCaptions"`
}

// Client requests guidance for a prompt. One call per invocation, no retries.
type Client interface {
	RequestGuidance(ctx context.Context, p Prompt) (Result, error)
}

// Error records the upstream cause of an ErrUnavailable for diagnostics.
type Error struct {
	Backend string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (%s): %v", ErrUnavailable, e.Backend, e.Err)
}

func (e *Error) Unwrap() []error { return []error{ErrUnavailable, e.Err} }

// Sanitize replaces blank fields with placeholders.
func Sanitize(p Prompt) Prompt {
	if strings.TrimSpace(p.WorkoutDescription) == "" {
		p.WorkoutDescription = PlaceholderDescription
	}
	if strings.TrimSpace(p.UserMotivation) == "" {
		p.UserMotivation = PlaceholderMotivation
	}
	return p
}

// Render formats the prompt as the user message.
func (p Prompt) Render() string {
	return "Workout Description: " + p.WorkoutDescription + "\nUser Motivation: " + p.UserMotivation
}

type rawResult struct {
	VoiceGuidance  *string `json:"voiceGuidance"`
	ClosedCaptions *string `json:"closedCaptions"`
}

// ParseResult decodes backend output. Both fields must be present non-null
// strings; a surrounding markdown code fence is tolerated.
func ParseResult(raw string) (Result, error) {
	text := stripFence(raw)
	if text == "" {
		return Result{}, errors.New("empty response")
	}

	var r rawResult
	if err := json.Unmarshal([]byte(text), &r); err != nil {
		return Result{}, fmt.Errorf("decode response: %w", err)
	}
	if r.VoiceGuidance == nil {
		return Result{}, errors.New("response missing voiceGuidance")
	}
	if r.ClosedCaptions == nil {
		return Result{}, errors.New("response missing closedCaptions")
	}
	return Result{VoiceGuidance: *r.VoiceGuidance, ClosedCaptions: *r.ClosedCaptions}, nil
}

func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
