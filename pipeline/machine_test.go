package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"dikt/hotkey"
)

type fakeCapture struct {
	mu       sync.Mutex
	startErr error
	audio    time.Duration
	sessions []*Session
	stops    int
}

func (f *fakeCapture) Start(sess *Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return f.startErr
	}
	n := int(f.audio.Seconds() * SampleRate)
	sess.Append(make([]byte, n*2))
	f.sessions = append(f.sessions, sess)
	return nil
}

func (f *fakeCapture) Stop() {
	f.mu.Lock()
	f.stops++
	f.mu.Unlock()
}

func (f *fakeCapture) sessionCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sessions)
}

type fakeDispatcher struct {
	mu      sync.Mutex
	text    string
	err     *ClassifiedError
	post    func(Event)
	release chan struct{} // when non-nil, result waits for close
	subs    []ProviderConfig
}

func (d *fakeDispatcher) Submit(_ context.Context, sess *Session, cfg ProviderConfig) {
	d.mu.Lock()
	d.subs = append(d.subs, cfg)
	release := d.release
	text, err := d.text, d.err
	d.mu.Unlock()
	go func() {
		if release != nil {
			<-release
		}
		d.post(Transcribed{SessionID: sess.ID, Text: text, Err: err})
	}()
}

func (d *fakeDispatcher) submissions() []ProviderConfig {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]ProviderConfig(nil), d.subs...)
}

type fakeInjector struct {
	mu       sync.Mutex
	err      error
	inserted []string
}

func (f *fakeInjector) Insert(text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.inserted = append(f.inserted, text)
	return nil
}

func (f *fakeInjector) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.inserted...)
}

type stubConfig struct {
	mu  sync.Mutex
	cfg ProviderConfig
}

func (s *stubConfig) Snapshot() ProviderConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

func (s *stubConfig) set(cfg ProviderConfig) {
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
}

type recordingSink struct {
	mu    sync.Mutex
	steps []string
}

func (r *recordingSink) OnState(state State, kind Kind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := state.String()
	if kind != KindNone {
		s += ":" + kind.String()
	}
	r.steps = append(r.steps, s)
}

func (r *recordingSink) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.steps...)
}

type harness struct {
	m       *Machine
	capture *fakeCapture
	disp    *fakeDispatcher
	inj     *fakeInjector
	config  *stubConfig
	sink    *recordingSink
	cancel  context.CancelFunc
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()
	h := &harness{
		capture: &fakeCapture{audio: 3 * time.Second},
		disp:    &fakeDispatcher{text: "the quick brown fox"},
		inj:     &fakeInjector{},
		config:  &stubConfig{cfg: ProviderConfig{Provider: "gemini", Format: "flac", Credential: "key"}},
		sink:    &recordingSink{},
	}
	h.m = NewMachine(h.capture, h.disp, h.inj, h.config, opts, h.sink)
	h.disp.post = h.m.Post

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go h.m.Run(ctx)
	t.Cleanup(cancel)
	return h
}

func (h *harness) waitSteps(t *testing.T, want ...string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		got := h.sink.snapshot()
		if len(got) >= len(want) {
			for i, w := range want {
				if got[i] != w {
					t.Fatalf("transition %d = %q, want %q (full: %v)", i, got[i], w, got)
				}
			}
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %v, got %v", want, h.sink.snapshot())
}

func (h *harness) settle() {
	// Post a no-op event and give the loop a moment so prior events drain.
	time.Sleep(20 * time.Millisecond)
}

func TestSuccessfulRecording(t *testing.T) {
	h := newHarness(t, Options{ReadyTimeout: time.Minute})

	h.m.Post(RecordStart{})
	h.m.Post(RecordStop{})

	h.waitSteps(t, "recording", "transcribing", "ready")
	if got := h.inj.texts(); len(got) != 1 || got[0] != "the quick brown fox" {
		t.Errorf("inserted %v, want exactly one insert of the provider text", got)
	}
}

func TestShortRecordingDiscarded(t *testing.T) {
	h := newHarness(t, Options{MinDuration: 300 * time.Millisecond})
	h.capture.audio = 100 * time.Millisecond

	h.m.Post(RecordStart{})
	h.m.Post(RecordStop{})

	h.waitSteps(t, "recording", "idle:buffer_too_short")
	if len(h.disp.submissions()) != 0 {
		t.Error("short buffer must never reach the dispatcher")
	}
	if len(h.inj.texts()) != 0 {
		t.Error("injector must not run")
	}
}

func TestCaptureStartFailure(t *testing.T) {
	h := newHarness(t, Options{})
	h.capture.startErr = errors.New("device gone")

	h.m.Post(RecordStart{})

	h.waitSteps(t, "idle:device_unavailable")
	h.m.Post(RecordStop{}) // must be a no-op outside Recording
	h.settle()
	if got := h.sink.snapshot(); len(got) != 1 {
		t.Errorf("unexpected extra transitions: %v", got)
	}
}

func TestTranscriptionFailureThenExpire(t *testing.T) {
	h := newHarness(t, Options{ReadyTimeout: 50 * time.Millisecond})
	h.disp.err = Classified(KindNoCredential, errors.New("no API key configured"))

	h.m.Post(RecordStart{})
	h.m.Post(RecordStop{})

	h.waitSteps(t, "recording", "transcribing", "error:no_credential", "idle")
	if len(h.inj.texts()) != 0 {
		t.Error("injector must not run on failure")
	}
}

func TestRecordStartDuringErrorRestartsImmediately(t *testing.T) {
	h := newHarness(t, Options{ReadyTimeout: time.Minute})
	h.disp.err = Classified(KindNetworkUnreachable, errors.New("dial: no route"))

	h.m.Post(RecordStart{})
	h.m.Post(RecordStop{})
	h.waitSteps(t, "recording", "transcribing", "error:network_unreachable")

	h.m.Post(RecordStart{})
	h.waitSteps(t, "recording", "transcribing", "error:network_unreachable", "recording")
}

func TestRecordStartWhileTranscribingIgnored(t *testing.T) {
	h := newHarness(t, Options{ReadyTimeout: time.Minute})
	h.disp.release = make(chan struct{})

	h.m.Post(RecordStart{})
	h.m.Post(RecordStop{})
	h.waitSteps(t, "recording", "transcribing")

	h.m.Post(RecordStart{})
	h.settle()
	if got := h.sink.snapshot(); len(got) != 2 {
		t.Fatalf("RecordStart during Transcribing changed state: %v", got)
	}
	if h.capture.sessionCount() != 1 {
		t.Error("a second session was created mid-flight")
	}

	close(h.disp.release)
	h.waitSteps(t, "recording", "transcribing", "ready")
}

func TestRecordStartWhileRecordingIgnored(t *testing.T) {
	h := newHarness(t, Options{})

	h.m.Post(RecordStart{})
	h.waitSteps(t, "recording")
	h.m.Post(RecordStart{})
	h.settle()
	if h.capture.sessionCount() != 1 {
		t.Error("duplicate RecordStart created a second session")
	}
}

func TestStaleResultDiscarded(t *testing.T) {
	h := newHarness(t, Options{ReadyTimeout: time.Minute})
	h.disp.release = make(chan struct{})

	h.m.Post(RecordStart{})
	h.m.Post(RecordStop{})
	h.waitSteps(t, "recording", "transcribing")

	// A result for a session the machine never owned.
	h.m.Post(Transcribed{SessionID: NewSession().ID, Text: "ghost"})
	h.settle()
	if len(h.inj.texts()) != 0 {
		t.Error("stale result was injected")
	}

	close(h.disp.release)
	h.waitSteps(t, "recording", "transcribing", "ready")
	if got := h.inj.texts(); len(got) != 1 || got[0] != "the quick brown fox" {
		t.Errorf("inserted %v", got)
	}
}

func TestConfigSnapshotIsolation(t *testing.T) {
	h := newHarness(t, Options{ReadyTimeout: time.Minute})
	h.disp.release = make(chan struct{})

	h.m.Post(RecordStart{})
	h.m.Post(RecordStop{})
	h.waitSteps(t, "recording", "transcribing")

	// Mid-flight config change.
	h.config.set(ProviderConfig{Provider: "groq", Format: "wav", Credential: "other"})
	close(h.disp.release)
	h.waitSteps(t, "recording", "transcribing", "ready")

	h.m.Post(RecordStart{})
	h.m.Post(RecordStop{})
	h.waitSteps(t, "recording", "transcribing", "ready", "recording", "transcribing")

	subs := h.disp.submissions()
	if len(subs) != 2 {
		t.Fatalf("submissions = %d, want 2", len(subs))
	}
	if subs[0].Provider != "gemini" {
		t.Errorf("first submission used %q, want the snapshot taken at submit time", subs[0].Provider)
	}
	if subs[1].Provider != "groq" {
		t.Errorf("second submission used %q, want the new config", subs[1].Provider)
	}
}

func TestReadyExpiresToIdle(t *testing.T) {
	h := newHarness(t, Options{ReadyTimeout: 50 * time.Millisecond})

	h.m.Post(RecordStart{})
	h.m.Post(RecordStop{})

	h.waitSteps(t, "recording", "transcribing", "ready", "idle")
}

func TestEmptyTranscriptSkipsInjection(t *testing.T) {
	h := newHarness(t, Options{ReadyTimeout: time.Minute})
	h.disp.text = ""

	h.m.Post(RecordStart{})
	h.m.Post(RecordStop{})

	h.waitSteps(t, "recording", "transcribing", "ready")
	if len(h.inj.texts()) != 0 {
		t.Error("empty transcript must not be injected")
	}
}

func TestInjectionBlockedIsNonFatal(t *testing.T) {
	h := newHarness(t, Options{ReadyTimeout: 50 * time.Millisecond})
	h.inj.err = errors.New("focus rejects synthetic input")

	h.m.Post(RecordStart{})
	h.m.Post(RecordStop{})

	h.waitSteps(t, "recording", "transcribing", "ready:injection_blocked", "idle")

	// Pipeline still usable afterwards.
	h.inj.err = nil
	h.m.Post(RecordStart{})
	h.waitSteps(t, "recording", "transcribing", "ready:injection_blocked", "idle", "recording")
}

func TestComboSwapDuringRecording(t *testing.T) {
	h := newHarness(t, Options{ReadyTimeout: time.Minute})

	hk := hotkey.NewFake()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-hk.Keydown():
				h.m.Post(RecordStart{})
			case <-hk.Keyup():
				h.m.Post(RecordStop{})
			}
		}
	}()

	hk.SimPress()
	h.waitSteps(t, "recording")

	// Swap the combo mid-hold. The open session must be untouched and the
	// release of the old combo still ends it.
	combo, err := hotkey.Parse("ctrl+shift+d")
	if err != nil {
		t.Fatal(err)
	}
	if err := hk.SetCombo(combo); err != nil {
		t.Fatalf("SetCombo during recording: %v", err)
	}

	hk.SimRelease()
	h.waitSteps(t, "recording", "transcribing", "ready")
	if got := h.inj.texts(); len(got) != 1 || got[0] != "the quick brown fox" {
		t.Errorf("inserted %v, want the in-flight session's text", got)
	}
	if got := hk.Combo().String(); got != "ctrl+shift+d" {
		t.Errorf("active combo = %q after swap", got)
	}

	// The new combo drives the next cycle.
	hk.SimPress()
	h.waitSteps(t, "recording", "transcribing", "ready", "recording")
	hk.SimRelease()
	h.waitSteps(t, "recording", "transcribing", "ready", "recording", "transcribing", "ready")
	if got := h.capture.sessionCount(); got != 2 {
		t.Errorf("sessions started = %d, want 2", got)
	}
}

func TestAtMostOneUnsealedSession(t *testing.T) {
	h := newHarness(t, Options{ReadyTimeout: 10 * time.Millisecond})

	for i := 0; i < 5; i++ {
		h.m.Post(RecordStart{})
		h.m.Post(RecordStop{})
	}
	h.settle()

	h.capture.mu.Lock()
	defer h.capture.mu.Unlock()
	unsealed := 0
	for _, sess := range h.capture.sessions {
		if !sess.Sealed() {
			unsealed++
		}
	}
	if unsealed > 1 {
		t.Errorf("%d unsealed sessions live at once", unsealed)
	}
}
