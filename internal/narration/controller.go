package narration

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/briangreenhill/voicept/internal/guidance"
	"github.com/briangreenhill/voicept/internal/speech"
)

var (
	// ErrRestDay is returned when opening a rest day.
	ErrRestDay = errors.New("rest day has no guidance")
	// ErrStopped is returned after Stop.
	ErrStopped = errors.New("narration controller stopped")
)

// Controller serializes every transition of one NarrationSession.
type Controller struct {
	guide    guidance.Client
	engine   speech.Engine
	notifier Notifier
	observer []Observer
	recorder Recorder
	timeout  time.Duration
	logger   zerolog.Logger

	events   chan envelope
	quit     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	state    atomic.Pointer[State]

	// owned by the loop goroutine
	ctx          context.Context
	cancelCtx    context.CancelFunc
	fetchCancel  context.CancelFunc
	utterance    speech.Utterance
	utteranceSeq uint64
}

type envelope struct {
	ev  event
	ack chan State
}

// Option configures a Controller.
type Option func(*Controller)

func WithNotifier(n Notifier) Option { return func(c *Controller) { c.notifier = n } }

func WithObserver(o Observer) Option {
	return func(c *Controller) { c.observer = append(c.observer, o) }
}

func WithRecorder(r Recorder) Option { return func(c *Controller) { c.recorder = r } }

func WithLogger(l zerolog.Logger) Option { return func(c *Controller) { c.logger = l } }

// WithGuidanceTimeout bounds each guidance request. A timeout is reported as
// a guidance failure. Zero means no bound.
func WithGuidanceTimeout(d time.Duration) Option { return func(c *Controller) { c.timeout = d } }

// New starts a Controller in the Idle phase. A nil engine behaves as an
// unavailable speech engine.
func New(guide guidance.Client, engine speech.Engine, opts ...Option) *Controller {
	c := &Controller{
		guide:  guide,
		engine: engine,
		logger: zerolog.Nop(),
		events: make(chan envelope),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With().Str("component", "narration").Logger()
	c.ctx, c.cancelCtx = context.WithCancel(context.Background())
	c.state.Store(&State{})
	go c.loop()
	return c
}

// Snapshot returns the current state without waiting for the loop.
func (c *Controller) Snapshot() State {
	return *c.state.Load()
}

// Open tears down the current session and starts loading guidance for target.
// Rest days, including their informational exercises, are refused.
func (c *Controller) Open(target Target, p guidance.Prompt) (State, error) {
	if target.Workout.IsRest() {
		return c.Snapshot(), ErrRestDay
	}
	return c.dispatch(openEvent{target: target, prompt: p})
}

// Play starts, resumes or retries narration. It is a no-op while Playing.
func (c *Controller) Play() (State, error) { return c.dispatch(playEvent{}) }

// Pause pauses narration. It is a no-op unless Playing.
func (c *Controller) Pause() (State, error) { return c.dispatch(pauseEvent{}) }

// Close returns to Idle, cancelling speech and invalidating pending guidance.
func (c *Controller) Close() (State, error) { return c.dispatch(closeEvent{}) }

// Stop closes the session and ends the loop.
func (c *Controller) Stop() {
	c.stopOnce.Do(func() { close(c.quit) })
	<-c.done
}

// Done is closed once the loop has exited.
func (c *Controller) Done() <-chan struct{} { return c.done }

func (c *Controller) dispatch(ev event) (State, error) {
	ack := make(chan State, 1)
	select {
	case c.events <- envelope{ev: ev, ack: ack}:
	case <-c.done:
		return c.Snapshot(), ErrStopped
	}
	select {
	case s := <-ack:
		return s, nil
	case <-c.done:
		return c.Snapshot(), ErrStopped
	}
}

// post delivers an asynchronous completion. It never blocks past Stop.
func (c *Controller) post(ev event) {
	select {
	case c.events <- envelope{ev: ev}:
	case <-c.done:
	}
}

func (c *Controller) loop() {
	defer close(c.done)
	for {
		select {
		case env := <-c.events:
			s := c.step(env.ev)
			if env.ack != nil {
				env.ack <- s
			}
		case <-c.quit:
			c.step(closeEvent{})
			c.cancelCtx()
			return
		}
	}
}

// step applies ev and every event its effects raise synchronously.
func (c *Controller) step(ev event) State {
	queue := []event{ev}
	for len(queue) > 0 {
		ev, queue = queue[0], queue[1:]
		prev := *c.state.Load()
		next, effs := reduce(prev, ev)
		c.state.Store(&next)

		for _, eff := range effs {
			queue = append(queue, c.execute(next, eff)...)
		}
		if prev.Phase != next.Phase || prev.Generation != next.Generation {
			c.logger.Debug().
				Stringer("from", prev.Phase).
				Stringer("to", next.Phase).
				Uint64("generation", next.Generation).
				Msg("phase changed")
			for _, o := range c.observer {
				o.PhaseChanged(prev, next)
			}
		}
	}
	return *c.state.Load()
}

func (c *Controller) execute(s State, eff effect) []event {
	switch e := eff.(type) {
	case fetchEffect:
		c.fetch(e)

	case cancelFetchEffect:
		if c.fetchCancel != nil {
			c.fetchCancel()
			c.fetchCancel = nil
		}

	case speakEffect:
		return c.speak(e)

	case pauseEffect:
		if u := c.live(e.utterance); u != nil {
			u.Pause()
		}

	case resumeEffect:
		if u := c.live(e.utterance); u != nil {
			u.Resume()
		}

	case stopEffect:
		if u := c.live(e.utterance); u != nil {
			u.Cancel()
		}
		if c.utteranceSeq == e.utterance {
			c.utterance = nil
			c.utteranceSeq = 0
		}

	case failureEffect:
		c.fail(s, e)
	}
	return nil
}

func (c *Controller) fetch(e fetchEffect) {
	if c.fetchCancel != nil {
		c.fetchCancel()
	}
	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if c.timeout > 0 {
		ctx, cancel = context.WithTimeout(c.ctx, c.timeout)
	} else {
		ctx, cancel = context.WithCancel(c.ctx)
	}
	c.fetchCancel = cancel

	go func() {
		defer cancel()
		res, err := c.guide.RequestGuidance(ctx, e.prompt)
		c.post(guidanceEvent{generation: e.generation, result: res, err: err})
	}()
}

func (c *Controller) speak(e speakEffect) []event {
	if c.utterance != nil {
		c.utterance.Cancel()
		c.utterance = nil
	}
	if c.engine == nil {
		return []event{utteranceErrorEvent{utterance: e.utterance, err: speech.ErrUnavailable}}
	}

	seq := e.utterance
	u, err := c.engine.Speak(c.ctx, e.text, speech.Callbacks{
		// The engine may fire while holding its own lock; post from a new
		// goroutine so the loop can always cancel.
		OnEnd:   func() { go c.post(utteranceEndEvent{utterance: seq}) },
		OnError: func(err error) { go c.post(utteranceErrorEvent{utterance: seq, err: err}) },
	})
	if err != nil {
		return []event{utteranceErrorEvent{utterance: seq, err: err}}
	}
	c.utterance = u
	c.utteranceSeq = seq
	return nil
}

func (c *Controller) live(seq uint64) speech.Utterance {
	if seq == 0 || seq != c.utteranceSeq {
		return nil
	}
	return c.utterance
}

func (c *Controller) fail(s State, e failureEffect) {
	ev := c.logger.Error().Err(e.err).Stringer("kind", e.kind).Uint64("generation", s.Generation)
	if e.target != nil {
		ev = ev.Str("target", e.target.Label())
	}
	ev.Msg("narration failed")

	if c.recorder != nil {
		f := Failure{Kind: e.kind, Target: e.target, Generation: s.Generation, Err: e.err, At: time.Now().UTC()}
		go func() {
			if err := c.recorder.RecordFailure(c.ctx, f); err != nil {
				c.logger.Warn().Err(err).Msg("record failure")
			}
		}()
	}
	if c.notifier != nil {
		c.notifier.Notify(NoticeFor(e.kind))
	}
}
