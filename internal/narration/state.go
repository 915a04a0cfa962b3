// Package narration owns the guidance playback state machine.
//
// All transitions go through reduce, a pure function of the current State and
// one event. The Controller feeds it from a single event loop and performs the
// effects it returns. Guidance results are tagged with the generation of the
// open that issued them and speech events with the utterance number that
// produced them; anything that does not match the current State is dropped.
package narration

import (
	"fmt"

	"github.com/briangreenhill/voicept/internal/fitness"
	"github.com/briangreenhill/voicept/internal/guidance"
)

// Phase is the playback phase of a session.
type Phase int

const (
	Idle Phase = iota
	Loading
	Ready
	Playing
	Paused
	Failed
)

var phaseNames = [...]string{"Idle", "Loading", "Ready", "Playing", "Paused", "Failed"}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return fmt.Sprintf("Phase(%d)", int(p))
	}
	return phaseNames[p]
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Phase) UnmarshalText(b []byte) error {
	for i, name := range phaseNames {
		if name == string(b) {
			*p = Phase(i)
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", b)
}

// FailureKind tells guidance failures from speech failures.
type FailureKind int

const (
	FailureNone FailureKind = iota
	FailureGuidance
	FailureSpeech
)

func (k FailureKind) String() string {
	switch k {
	case FailureGuidance:
		return "GuidanceUnavailable"
	case FailureSpeech:
		return "SpeechUnavailable"
	default:
		return ""
	}
}

func (k FailureKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *FailureKind) UnmarshalText(b []byte) error {
	for _, kind := range []FailureKind{FailureNone, FailureGuidance, FailureSpeech} {
		if kind.String() == string(b) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown failure kind %q", b)
}

// Target is a whole day, or one exercise within it when Exercise is set.
type Target struct {
	DayIndex int                  `json:"dayIndex"`
	Workout  fitness.DailyWorkout `json:"workout"`
	Exercise *fitness.Exercise    `json:"exercise,omitempty"`
}

// Label is a short human description, e.g. "Monday - Squats".
func (t Target) Label() string {
	if t.Exercise != nil {
		return t.Workout.Day + " - " + t.Exercise.Name
	}
	return t.Workout.Day + " - " + t.Workout.WorkoutName
}

// State is an immutable snapshot of the session.
type State struct {
	Phase      Phase            `json:"phase"`
	Target     *Target          `json:"target,omitempty"`
	Generation uint64           `json:"generation"`
	Result     *guidance.Result `json:"result,omitempty"`
	Failure    FailureKind      `json:"failure,omitempty"`
	// Utterance numbers the active speech job; zero when none.
	Utterance uint64 `json:"utterance,omitempty"`

	lastUtterance uint64
}

// Captions returns the caption text when a result is held.
func (s State) Captions() string {
	if s.Result == nil {
		return ""
	}
	return s.Result.ClosedCaptions
}

type event interface{ isEvent() }

type (
	openEvent struct {
		target Target
		prompt guidance.Prompt
	}
	guidanceEvent struct {
		generation uint64
		result     guidance.Result
		err        error
	}
	playEvent           struct{}
	pauseEvent          struct{}
	closeEvent          struct{}
	utteranceEndEvent   struct{ utterance uint64 }
	utteranceErrorEvent struct {
		utterance uint64
		err       error
	}
)

func (openEvent) isEvent()           {}
func (guidanceEvent) isEvent()       {}
func (playEvent) isEvent()           {}
func (pauseEvent) isEvent()          {}
func (closeEvent) isEvent()          {}
func (utteranceEndEvent) isEvent()   {}
func (utteranceErrorEvent) isEvent() {}

type effect interface{ isEffect() }

type (
	fetchEffect struct {
		generation uint64
		prompt     guidance.Prompt
	}
	cancelFetchEffect struct{ generation uint64 }
	speakEffect       struct {
		utterance uint64
		text      string
	}
	pauseEffect   struct{ utterance uint64 }
	resumeEffect  struct{ utterance uint64 }
	stopEffect    struct{ utterance uint64 }
	failureEffect struct {
		kind   FailureKind
		target *Target
		err    error
	}
)

func (fetchEffect) isEffect()       {}
func (cancelFetchEffect) isEffect() {}
func (speakEffect) isEffect()       {}
func (pauseEffect) isEffect()       {}
func (resumeEffect) isEffect()      {}
func (stopEffect) isEffect()        {}
func (failureEffect) isEffect()     {}

// reduce applies one event. It never mutates its input.
func reduce(s State, ev event) (State, []effect) {
	switch e := ev.(type) {
	case openEvent:
		effs := teardown(s)
		target := e.target
		s = State{
			Phase:         Loading,
			Target:        &target,
			Generation:    s.Generation + 1,
			lastUtterance: s.lastUtterance,
		}
		return s, append(effs, fetchEffect{generation: s.Generation, prompt: e.prompt})

	case guidanceEvent:
		if e.generation != s.Generation || s.Phase != Loading {
			return s, nil
		}
		if e.err != nil {
			s.Phase = Failed
			s.Failure = FailureGuidance
			s.Result = nil
			return s, []effect{failureEffect{kind: FailureGuidance, target: s.Target, err: e.err}}
		}
		r := e.result
		s.Phase = Ready
		s.Result = &r
		return s, nil

	case playEvent:
		switch s.Phase {
		case Ready:
			return startUtterance(s)
		case Paused:
			s.Phase = Playing
			return s, []effect{resumeEffect{utterance: s.Utterance}}
		case Failed:
			if s.Result != nil {
				return startUtterance(s)
			}
		}
		return s, nil

	case pauseEvent:
		if s.Phase != Playing {
			return s, nil
		}
		s.Phase = Paused
		return s, []effect{pauseEffect{utterance: s.Utterance}}

	case utteranceEndEvent:
		if !current(s, e.utterance) {
			return s, nil
		}
		s.Phase = Ready
		s.Utterance = 0
		return s, []effect{stopEffect{utterance: e.utterance}}

	case utteranceErrorEvent:
		if !current(s, e.utterance) {
			return s, nil
		}
		s.Phase = Failed
		s.Failure = FailureSpeech
		s.Utterance = 0
		return s, []effect{
			stopEffect{utterance: e.utterance},
			failureEffect{kind: FailureSpeech, target: s.Target, err: e.err},
		}

	case closeEvent:
		effs := teardown(s)
		return State{
			Phase:         Idle,
			Generation:    s.Generation + 1,
			lastUtterance: s.lastUtterance,
		}, effs
	}
	return s, nil
}

func startUtterance(s State) (State, []effect) {
	s.lastUtterance++
	s.Utterance = s.lastUtterance
	s.Phase = Playing
	s.Failure = FailureNone
	return s, []effect{speakEffect{utterance: s.Utterance, text: s.Result.VoiceGuidance}}
}

// current reports whether a speech event belongs to the live utterance.
// Paused is accepted because an engine may report an end it reached before
// the pause was applied. Engines never end an utterance while it is paused.
func current(s State, utterance uint64) bool {
	return utterance != 0 && utterance == s.Utterance && (s.Phase == Playing || s.Phase == Paused)
}

// teardown releases whatever the session holds before it is replaced.
func teardown(s State) []effect {
	var effs []effect
	if s.Utterance != 0 {
		effs = append(effs, stopEffect{utterance: s.Utterance})
	}
	if s.Phase == Loading {
		effs = append(effs, cancelFetchEffect{generation: s.Generation})
	}
	return effs
}
