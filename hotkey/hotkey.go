// Package hotkey watches a system-wide key combination and emits edge events:
// one keydown when the full combo goes down, one keyup when it is released.
// Repeat presses while the combo is held and releases while it is not held
// produce nothing.
package hotkey

// Listener is the system-wide combo watcher. Start returns only after the
// low-level hook is verified installed; callers must treat the listener as
// dead until then. SetCombo atomically replaces the watched combination and
// is safe to call from any goroutine, including while a recording driven by
// the old combo is still active.
type Listener interface {
	Start() error
	Stop()
	SetCombo(c Combo) error
	Combo() Combo
	Keydown() <-chan struct{}
	Keyup() <-chan struct{}
}
