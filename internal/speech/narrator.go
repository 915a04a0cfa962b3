package speech

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DefaultFrameInterval is the playback pacing used when none is configured.
const DefaultFrameInterval = 100 * time.Millisecond

// Narrator is an Engine that synthesizes the whole script and then plays it
// into a Sink one frame per interval.
type Narrator struct {
	synth  Synthesizer
	sink   Sink
	frame  time.Duration
	logger zerolog.Logger
}

// NewNarrator creates a Narrator. A nil synth makes every Speak fail with
// ErrUnavailable. A frame of zero or less writes audio without pacing.
func NewNarrator(synth Synthesizer, sink Sink, frame time.Duration, logger zerolog.Logger) *Narrator {
	return &Narrator{
		synth:  synth,
		sink:   sink,
		frame:  frame,
		logger: logger.With().Str("component", "speech").Logger(),
	}
}

// Speak starts an utterance and returns immediately.
func (n *Narrator) Speak(ctx context.Context, text string, cb Callbacks) (Utterance, error) {
	if n == nil || n.synth == nil {
		return nil, ErrUnavailable
	}
	pctx, cancel := context.WithCancel(ctx)
	p := &playback{
		id:      uuid.NewString(),
		ctx:     pctx,
		cancel:  cancel,
		cb:      cb,
		onPause: make(chan struct{}),
	}
	go n.run(p, text)
	return p, nil
}

func (n *Narrator) run(p *playback, text string) {
	defer p.cancel()
	log := n.logger.With().Str("utterance", p.id).Logger()

	audio, err := n.synth.Synthesize(p.ctx, text)
	if err != nil {
		if p.ctx.Err() == nil {
			log.Error().Err(err).Str("synth", n.synth.Name()).Msg("synthesis failed")
		}
		p.fail(fmt.Errorf("synthesize: %w", err))
		return
	}

	for _, chunk := range frames(audio, n.frame) {
		if err := p.waitWhilePaused(); err != nil {
			return
		}
		if n.sink != nil {
			if err := n.sink.WriteAudio(p.id, audio.MIMEType, chunk); err != nil {
				log.Error().Err(err).Msg("audio sink write failed")
				p.fail(fmt.Errorf("write audio: %w", err))
				return
			}
		}
		if err := p.hold(n.frame); err != nil {
			return
		}
	}
	p.end()
}

// frames splits audio into chunks of one frame each.
func frames(a Audio, frame time.Duration) [][]byte {
	if len(a.Data) == 0 {
		return nil
	}
	size := int(int64(a.BytesPerSecond) * int64(frame) / int64(time.Second))
	if frame <= 0 || a.BytesPerSecond <= 0 || size <= 0 {
		return [][]byte{a.Data}
	}
	if size%2 == 1 {
		size++ // keep 16-bit samples whole
	}
	out := make([][]byte, 0, len(a.Data)/size+1)
	for off := 0; off < len(a.Data); off += size {
		end := off + size
		if end > len(a.Data) {
			end = len(a.Data)
		}
		out = append(out, a.Data[off:end])
	}
	return out
}

type playback struct {
	id     string
	ctx    context.Context
	cancel context.CancelFunc
	cb     Callbacks

	mu        sync.Mutex
	paused    bool
	resumed   chan struct{}
	onPause   chan struct{}
	cancelled bool
	finished  bool
}

func (p *playback) ID() string { return p.id }

func (p *playback) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.paused || p.cancelled || p.finished {
		return
	}
	p.paused = true
	p.resumed = make(chan struct{})
	close(p.onPause)
}

func (p *playback) Resume() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.paused {
		return
	}
	p.paused = false
	p.onPause = make(chan struct{})
	close(p.resumed)
}

// Cancel stops playback. No callback fires once Cancel returns.
func (p *playback) Cancel() {
	p.mu.Lock()
	p.cancelled = true
	p.mu.Unlock()
	p.cancel()
}

func (p *playback) waitWhilePaused() error {
	p.mu.Lock()
	paused, ch := p.paused, p.resumed
	p.mu.Unlock()
	if paused {
		select {
		case <-ch:
		case <-p.ctx.Done():
		}
	}
	return p.ctx.Err()
}

// hold waits out d of playing time. Time spent paused does not count.
func (p *playback) hold(d time.Duration) error {
	for d > 0 {
		if err := p.waitWhilePaused(); err != nil {
			return err
		}
		p.mu.Lock()
		onPause := p.onPause
		p.mu.Unlock()

		start := time.Now()
		t := time.NewTimer(d)
		select {
		case <-t.C:
			return nil
		case <-onPause:
			t.Stop()
			d -= time.Since(start)
		case <-p.ctx.Done():
			t.Stop()
			return p.ctx.Err()
		}
	}
	return p.ctx.Err()
}

// end reports a natural finish. A paused utterance does not end until it is
// resumed.
func (p *playback) end() {
	for {
		p.mu.Lock()
		if p.cancelled || p.finished || p.ctx.Err() != nil {
			p.mu.Unlock()
			return
		}
		if !p.paused {
			p.finished = true
			if p.cb.OnEnd != nil {
				p.cb.OnEnd()
			}
			p.mu.Unlock()
			return
		}
		ch := p.resumed
		p.mu.Unlock()

		select {
		case <-ch:
		case <-p.ctx.Done():
			return
		}
	}
}

func (p *playback) fail(err error) {
	p.finish(func() {
		if p.cb.OnError != nil {
			p.cb.OnError(err)
		}
	})
}

func (p *playback) finish(fire func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancelled || p.finished || p.ctx.Err() != nil {
		return
	}
	p.finished = true
	fire()
}

var _ Engine = (*Narrator)(nil)
