package narration

import (
	"context"
	"time"
)

// Notice is a user-facing failure toast. It never carries upstream detail.
type Notice struct {
	Kind    FailureKind `json:"kind"`
	Title   string      `json:"title"`
	Message string      `json:"message"`
}

// NoticeFor returns the generic notice for a failure kind.
func NoticeFor(kind FailureKind) Notice {
	switch kind {
	case FailureSpeech:
		return Notice{
			Kind:    kind,
			Title:   "Speech Error",
			Message: "Could not play voice guidance. Your device might not support it or there was an issue.",
		}
	default:
		return Notice{
			Kind:    FailureGuidance,
			Title:   "Error",
			Message: "Could not load AI trainer guidance. Please try again.",
		}
	}
}

// Notifier delivers notices to the presentation layer.
type Notifier interface {
	Notify(n Notice)
}

// Observer is told about every phase change. Implementations must not block.
type Observer interface {
	PhaseChanged(prev, next State)
}

// Failure is the operator-facing record of a failure, including the cause.
type Failure struct {
	Kind       FailureKind
	Target     *Target
	Generation uint64
	Err        error
	At         time.Time
}

// Recorder keeps failures for diagnostics.
type Recorder interface {
	RecordFailure(ctx context.Context, f Failure) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notice)

func (f NotifierFunc) Notify(n Notice) { f(n) }

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(prev, next State)

func (f ObserverFunc) PhaseChanged(prev, next State) { f(prev, next) }
