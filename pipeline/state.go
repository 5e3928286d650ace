package pipeline

import "fmt"

// State is the single live pipeline state. Exactly one value is current at any
// instant; the Machine run loop is the only writer.
type State int

const (
	StateIdle State = iota
	StateRecording
	StateTranscribing
	StateReady
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StateTranscribing:
		return "transcribing"
	case StateReady:
		return "ready"
	case StateError:
		return "error"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Kind classifies every way a recording can fail to turn into injected text.
type Kind int

const (
	KindNone Kind = iota
	KindDeviceUnavailable
	KindBufferTooShort
	KindNoCredential
	KindNetworkUnreachable
	KindProviderError
	KindUnknownProvider
	KindInjectionBlocked
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindDeviceUnavailable:
		return "device_unavailable"
	case KindBufferTooShort:
		return "buffer_too_short"
	case KindNoCredential:
		return "no_credential"
	case KindNetworkUnreachable:
		return "network_unreachable"
	case KindProviderError:
		return "provider_error"
	case KindUnknownProvider:
		return "unknown_provider"
	case KindInjectionBlocked:
		return "injection_blocked"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ClassifiedError pairs an underlying error with its Kind so producers can
// report failures without the consumer re-parsing error strings.
type ClassifiedError struct {
	Kind Kind
	Err  error
}

func (e *ClassifiedError) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.Err.Error()
}

func (e *ClassifiedError) Unwrap() error { return e.Err }

func Classified(kind Kind, err error) *ClassifiedError {
	return &ClassifiedError{Kind: kind, Err: err}
}

// StatusSink receives every state transition, with the error kind when the
// transition carries one (Error states, plus silent notices like
// buffer_too_short that land back in Idle). Implementations must not block.
type StatusSink interface {
	OnState(state State, kind Kind)
}

// SinkFunc adapts a function to the StatusSink interface.
type SinkFunc func(state State, kind Kind)

func (f SinkFunc) OnState(state State, kind Kind) { f(state, kind) }
