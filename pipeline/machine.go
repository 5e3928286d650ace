package pipeline

import (
	"context"
	"sync"
	"time"

	"dikt/log"
)

// Options tune the Machine. Zero values fall back to defaults.
type Options struct {
	// MinDuration is the shortest sealed buffer worth transcribing. Anything
	// under it is discarded and reported as buffer_too_short.
	MinDuration time.Duration
	// ReadyTimeout is how long Ready and Error linger before resting in Idle.
	ReadyTimeout time.Duration
}

const (
	defaultMinDuration  = 300 * time.Millisecond
	defaultReadyTimeout = 3 * time.Second
)

// Machine is the central coordinator. It consumes events from the hotkey
// listener and the dispatcher on a single channel, drives capture and
// injection, and publishes every transition to the registered sinks. Run is
// the only goroutine that ever touches state.
type Machine struct {
	capture    Capture
	dispatcher Dispatcher
	injector   Injector
	config     ConfigSource
	sinks      []StatusSink
	opts       Options

	events chan Event
	quit   chan struct{}
	once   sync.Once

	// Owned by the run loop.
	state    State
	errKind  Kind
	sess     *Session
	inflight context.CancelFunc
	gen      uint64
	timer    *time.Timer
}

func NewMachine(capture Capture, dispatcher Dispatcher, injector Injector, config ConfigSource, opts Options, sinks ...StatusSink) *Machine {
	if opts.MinDuration <= 0 {
		opts.MinDuration = defaultMinDuration
	}
	if opts.ReadyTimeout <= 0 {
		opts.ReadyTimeout = defaultReadyTimeout
	}
	return &Machine{
		capture:    capture,
		dispatcher: dispatcher,
		injector:   injector,
		config:     config,
		sinks:      sinks,
		opts:       opts,
		events:     make(chan Event, 16),
		quit:       make(chan struct{}),
		state:      StateIdle,
	}
}

// Post delivers an event to the run loop. Safe from any goroutine; a no-op
// once the machine has shut down.
func (m *Machine) Post(ev Event) {
	select {
	case m.events <- ev:
	case <-m.quit:
	}
}

// Run consumes events until ctx is cancelled. On exit any in-flight
// transcription is abandoned and an open recording is stopped.
func (m *Machine) Run(ctx context.Context) {
	defer m.shutdown()
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-m.events:
			m.handle(ev)
		}
	}
}

func (m *Machine) shutdown() {
	m.once.Do(func() { close(m.quit) })
	if m.inflight != nil {
		m.inflight()
		m.inflight = nil
	}
	if m.state == StateRecording {
		m.capture.Stop()
		if m.sess != nil {
			m.sess.Seal()
		}
	}
	m.stopTimer()
	m.sess = nil
}

func (m *Machine) handle(ev Event) {
	switch ev := ev.(type) {
	case RecordStart:
		m.onRecordStart()
	case RecordStop:
		m.onRecordStop()
	case Transcribed:
		m.onTranscribed(ev)
	case expire:
		if ev.gen == m.gen && (m.state == StateReady || m.state == StateError) {
			m.setState(StateIdle, KindNone)
		}
	}
}

func (m *Machine) onRecordStart() {
	switch m.state {
	case StateReady, StateError:
		// Next RecordStart ends the display window and records immediately.
		m.stopTimer()
	case StateIdle:
	default:
		// Single-flight: no new recording while one is being captured or an
		// earlier transcription is still outstanding.
		log.Info("record_start ignored in state " + m.state.String())
		return
	}

	sess := NewSession()
	if err := m.capture.Start(sess); err != nil {
		log.Errorf("capture start: %v", err)
		m.sess = nil
		m.setState(StateIdle, KindDeviceUnavailable)
		return
	}
	m.sess = sess
	m.setState(StateRecording, KindNone)
}

func (m *Machine) onRecordStop() {
	if m.state != StateRecording {
		return
	}
	m.capture.Stop()
	m.sess.Seal()

	if m.sess.Duration() < m.opts.MinDuration {
		log.Info("recording discarded: below minimum duration")
		m.sess = nil
		m.setState(StateIdle, KindBufferTooShort)
		return
	}

	snap := m.config.Snapshot()
	ctx, cancel := context.WithCancel(context.Background())
	m.inflight = cancel
	m.dispatcher.Submit(ctx, m.sess, snap)
	m.setState(StateTranscribing, KindNone)
}

func (m *Machine) onTranscribed(ev Transcribed) {
	if m.state != StateTranscribing || m.sess == nil || ev.SessionID != m.sess.ID {
		// Stale result from a session the machine no longer owns.
		return
	}
	if m.inflight != nil {
		m.inflight()
		m.inflight = nil
	}
	m.sess = nil

	if ev.Err != nil {
		log.Errorf("transcription failed: %v", ev.Err)
		m.setState(StateError, ev.Err.Kind)
		return
	}

	if ev.Text == "" {
		log.Info("no speech detected")
		m.setState(StateReady, KindNone)
		return
	}

	log.TranscriptionText(ev.Text)
	if err := m.injector.Insert(ev.Text); err != nil {
		log.Errorf("text injection: %v", err)
		m.setState(StateReady, KindInjectionBlocked)
		return
	}
	m.setState(StateReady, KindNone)
}

func (m *Machine) setState(state State, kind Kind) {
	m.state = state
	m.errKind = kind
	m.gen++
	m.stopTimer()

	if state == StateReady || state == StateError {
		gen := m.gen
		m.timer = time.AfterFunc(m.opts.ReadyTimeout, func() {
			m.Post(expire{gen: gen})
		})
	}

	for _, sink := range m.sinks {
		sink.OnState(state, kind)
	}
}

func (m *Machine) stopTimer() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}
