package guidance

import (
	"context"
	"sort"

	"github.com/rs/zerolog"
)

// Backend generates JSON guidance text from a system instruction and a user message.
type Backend interface {
	// Name returns the backend name (e.g., "gemini", "openai")
	Name() string

	// Generate returns the raw model output
	Generate(ctx context.Context, system, user string) (string, error)
}

// Registry manages available guidance backends
type Registry struct {
	backends map[string]Backend
}

// NewRegistry creates a new backend registry
func NewRegistry() *Registry {
	return &Registry{
		backends: make(map[string]Backend),
	}
}

// Register adds a backend to the registry
func (r *Registry) Register(b Backend) {
	r.backends[b.Name()] = b
}

// Get retrieves a backend by name
func (r *Registry) Get(name string) (Backend, bool) {
	b, exists := r.backends[name]
	return b, exists
}

// List returns all registered backend names, sorted
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.backends))
	for name := range r.backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// maxLoggedResponse caps raw model output in debug logs.
const maxLoggedResponse = 8192

// Requester is the Client backed by one Backend.
type Requester struct {
	backend      Backend
	instructions string
	logger       zerolog.Logger
}

// NewRequester creates a Client that sends instructions as the system prompt.
func NewRequester(b Backend, instructions string, logger zerolog.Logger) *Requester {
	return &Requester{
		backend:      b,
		instructions: instructions,
		logger:       logger.With().Str("component", "guidance").Str("backend", b.Name()).Logger(),
	}
}

// RequestGuidance substitutes placeholders, calls the backend once and
// validates the output. Every failure wraps ErrUnavailable.
func (r *Requester) RequestGuidance(ctx context.Context, p Prompt) (Result, error) {
	p = Sanitize(p)

	raw, err := r.backend.Generate(ctx, r.instructions, p.Render())
	if err != nil {
		r.logger.Error().Err(err).Msg("guidance request failed")
		return Result{}, &Error{Backend: r.backend.Name(), Err: err}
	}
	r.logResponse(raw)

	res, err := ParseResult(raw)
	if err != nil {
		r.logger.Error().Err(err).Msg("guidance response rejected")
		return Result{}, &Error{Backend: r.backend.Name(), Err: err}
	}
	return res, nil
}

func (r *Requester) logResponse(raw string) {
	ev := r.logger.Debug()
	if !ev.Enabled() {
		return
	}
	if len(raw) > maxLoggedResponse {
		ev.Str("response", raw[:maxLoggedResponse]+"... [truncated]").Int("response_len", len(raw)).Msg("guidance response")
		return
	}
	ev.Str("response", raw).Msg("guidance response")
}

var _ Client = (*Requester)(nil)
