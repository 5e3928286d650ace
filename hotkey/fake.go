package hotkey

import "sync"

// FakeListener drives the pipeline from tests and the headless test mode.
type FakeListener struct {
	keydown chan struct{}
	keyup   chan struct{}

	mu    sync.Mutex
	combo Combo
	held  bool
}

func NewFake() *FakeListener {
	return &FakeListener{
		keydown: make(chan struct{}, 1),
		keyup:   make(chan struct{}, 1),
		combo:   Default(),
	}
}

func (f *FakeListener) Start() error { return nil }
func (f *FakeListener) Stop()        {}

func (f *FakeListener) SetCombo(c Combo) error {
	f.mu.Lock()
	f.combo = c
	f.mu.Unlock()
	return nil
}

func (f *FakeListener) Combo() Combo {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.combo
}

func (f *FakeListener) Keydown() <-chan struct{} { return f.keydown }
func (f *FakeListener) Keyup() <-chan struct{}   { return f.keyup }

// SimPress emits a keydown edge unless the combo is already held.
func (f *FakeListener) SimPress() {
	f.mu.Lock()
	if f.held {
		f.mu.Unlock()
		return
	}
	f.held = true
	f.mu.Unlock()
	f.keydown <- struct{}{}
}

// SimRelease emits a keyup edge unless the combo is not held.
func (f *FakeListener) SimRelease() {
	f.mu.Lock()
	if !f.held {
		f.mu.Unlock()
		return
	}
	f.held = false
	f.mu.Unlock()
	f.keyup <- struct{}{}
}
