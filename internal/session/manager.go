package session

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/briangreenhill/voicept/internal/guidance"
	"github.com/briangreenhill/voicept/internal/narration"
	"github.com/briangreenhill/voicept/internal/notify"
	"github.com/briangreenhill/voicept/internal/speech"
	"github.com/briangreenhill/voicept/internal/store"
)

// Deps are shared by every Host a Manager creates.
type Deps struct {
	Guide           guidance.Client
	Synth           speech.Synthesizer // nil disables speech
	FrameInterval   time.Duration
	GuidanceTimeout time.Duration
	Cache           *store.ProfileCache

	// Observers and Recorder, when set, are asked for per-session instances.
	Observers func(sessionID string) []narration.Observer
	Recorder  func(sessionID string) narration.Recorder

	Logger zerolog.Logger
}

// Manager keeps one Host per session id.
type Manager struct {
	deps Deps
	now  func() time.Time

	mu    sync.Mutex
	hosts map[string]*entry
}

type entry struct {
	host     *Host
	lastSeen time.Time
}

func NewManager(deps Deps) *Manager {
	return &Manager{deps: deps, now: time.Now, hosts: make(map[string]*entry)}
}

// Get returns the Host for id, creating and restoring it on first use.
// Restoring reads the store without holding the manager lock.
func (m *Manager) Get(ctx context.Context, id string) (*Host, error) {
	m.mu.Lock()
	if e, ok := m.hosts[id]; ok {
		e.lastSeen = m.now()
		m.mu.Unlock()
		return e.host, nil
	}
	m.mu.Unlock()

	h := m.newHost(id)
	if err := h.Restore(ctx); err != nil {
		h.Shutdown()
		return nil, err
	}

	m.mu.Lock()
	if e, ok := m.hosts[id]; ok {
		// Lost the race to a concurrent Get for the same id.
		e.lastSeen = m.now()
		m.mu.Unlock()
		h.Shutdown()
		return e.host, nil
	}
	m.hosts[id] = &entry{host: h, lastSeen: m.now()}
	m.mu.Unlock()
	return h, nil
}

// Touch marks id as in use so Sweep keeps it.
func (m *Manager) Touch(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.hosts[id]; ok {
		e.lastSeen = m.now()
	}
}

func (m *Manager) newHost(id string) *Host {
	logger := m.deps.Logger.With().Str("session_id", id).Logger()
	hub := notify.NewHub(logger)

	var engine speech.Engine
	if m.deps.Synth != nil {
		engine = speech.NewNarrator(m.deps.Synth, hub, m.deps.FrameInterval, logger)
	}

	opts := []narration.Option{
		narration.WithNotifier(hub),
		narration.WithObserver(hub),
		narration.WithLogger(logger),
		narration.WithGuidanceTimeout(m.deps.GuidanceTimeout),
	}
	if m.deps.Observers != nil {
		for _, o := range m.deps.Observers(id) {
			opts = append(opts, narration.WithObserver(o))
		}
	}
	if m.deps.Recorder != nil {
		if r := m.deps.Recorder(id); r != nil {
			opts = append(opts, narration.WithRecorder(r))
		}
	}

	ctrl := narration.New(m.deps.Guide, engine, opts...)
	return NewHost(id, ctrl, m.deps.Cache, hub, m.deps.Logger)
}

// Len returns the number of live hosts.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.hosts)
}

// Remove shuts down and forgets the host for id.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	e, ok := m.hosts[id]
	delete(m.hosts, id)
	m.mu.Unlock()
	if ok {
		e.host.Shutdown()
	}
}

// Sweep shuts down hosts unused for longer than maxIdle and returns how many.
// Their saved profiles stay in the store.
func (m *Manager) Sweep(maxIdle time.Duration) int {
	cutoff := m.now().Add(-maxIdle)

	m.mu.Lock()
	var stale []*Host
	for id, e := range m.hosts {
		if e.lastSeen.Before(cutoff) {
			stale = append(stale, e.host)
			delete(m.hosts, id)
		}
	}
	m.mu.Unlock()

	for _, h := range stale {
		h.Shutdown()
	}
	return len(stale)
}

// Shutdown stops every host.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	hosts := m.hosts
	m.hosts = make(map[string]*entry)
	m.mu.Unlock()

	for _, e := range hosts {
		e.host.Shutdown()
	}
}
