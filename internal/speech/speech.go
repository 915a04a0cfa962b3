// Package speech narrates text through a synthesizer with pause, resume and cancel.
package speech

import (
	"context"
	"errors"
)

// ErrUnavailable is returned by Speak when no synthesis engine exists.
var ErrUnavailable = errors.New("speech engine unavailable")

// Callbacks receive the terminal event of an utterance. At most one of them
// fires, at most once, and never after Cancel has returned. Callbacks must
// not call back into the Utterance.
type Callbacks struct {
	OnEnd   func()
	OnError func(error)
}

// Utterance is one speech job for one script.
type Utterance interface {
	ID() string
	Pause()
	Resume()
	Cancel()
}

// Engine starts utterances.
type Engine interface {
	Speak(ctx context.Context, text string, cb Callbacks) (Utterance, error)
}

// Audio is synthesized speech. BytesPerSecond paces playback; zero means the
// data is delivered in one piece.
type Audio struct {
	Data           []byte
	MIMEType       string
	BytesPerSecond int
}

// Synthesizer converts text to audio.
type Synthesizer interface {
	Name() string
	Synthesize(ctx context.Context, text string) (Audio, error)
}

// Sink receives audio frames of an utterance in order.
type Sink interface {
	WriteAudio(utteranceID, mimeType string, chunk []byte) error
}
