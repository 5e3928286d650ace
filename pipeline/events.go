package pipeline

import (
	"context"

	"github.com/google/uuid"
)

// Event is anything posted into the Machine's single-consumer channel.
// HotkeyListener and the Dispatcher are the producers; the Machine run loop is
// the sole consumer and the sole mutator of pipeline state.
type Event interface{ isEvent() }

// RecordStart is emitted on combo press.
type RecordStart struct{}

// RecordStop is emitted on combo release.
type RecordStop struct{}

// Transcribed carries a finished transcription back into the Machine. Err is
// nil on success. Results for a session the Machine no longer owns are
// discarded without side effects.
type Transcribed struct {
	SessionID uuid.UUID
	Text      string
	Err       *ClassifiedError
}

// expire fires when a Ready or Error state has outlived its display window.
// The generation counter invalidates timers left over from earlier states.
type expire struct{ gen uint64 }

func (RecordStart) isEvent() {}
func (RecordStop) isEvent()  {}
func (Transcribed) isEvent() {}
func (expire) isEvent()      {}

// ProviderConfig is an immutable snapshot of the active speech-to-text
// configuration, captured once per submission. Later settings changes never
// touch a request already in flight.
type ProviderConfig struct {
	Provider   string // enumerated kind name, e.g. "gemini"
	Model      string
	Language   string
	Format     string // upload format: "flac" or "wav"
	Credential string // resolved secret; empty means no credential configured
}

// ConfigSource yields provider snapshots. Owned by the settings layer; the
// Machine calls it exactly once per Recording→Transcribing transition.
type ConfigSource interface {
	Snapshot() ProviderConfig
}

// Capture owns the microphone stream. Start begins appending frames into sess
// from the capture thread; Stop halts the stream so the Machine can seal.
type Capture interface {
	Start(sess *Session) error
	Stop()
}

// Dispatcher performs the asynchronous transcription call. Submit must not
// block; the eventual result arrives as a Transcribed event. Cancelling ctx
// abandons the in-flight call and suppresses its result.
type Dispatcher interface {
	Submit(ctx context.Context, sess *Session, cfg ProviderConfig)
}

// Injector delivers final text at the current input focus.
type Injector interface {
	Insert(text string) error
}
