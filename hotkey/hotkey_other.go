//go:build !linux

package hotkey

import (
	"fmt"
	"sync"

	"golang.design/x/hotkey"
)

// xListener backs the listener with golang.design/x/hotkey. Each registered
// combo gets its own forwarder goroutine; SetCombo installs the replacement
// registration before tearing the old one down.
type xListener struct {
	keydown chan struct{}
	keyup   chan struct{}

	mu      sync.Mutex
	combo   Combo
	hk      *hotkey.Hotkey
	unhook  chan struct{}
	started bool
}

func New(combo Combo) (Listener, error) {
	if _, _, err := compileX(combo); err != nil {
		return nil, err
	}
	return &xListener{
		keydown: make(chan struct{}, 1),
		keyup:   make(chan struct{}, 1),
		combo:   combo,
	}, nil
}

func compileX(combo Combo) ([]hotkey.Modifier, hotkey.Key, error) {
	mods := make([]hotkey.Modifier, 0, len(combo.Mods))
	for _, m := range combo.Mods {
		xm, err := modFor(m)
		if err != nil {
			return nil, 0, err
		}
		mods = append(mods, xm)
	}
	key, err := keyFor(combo.Key)
	if err != nil {
		return nil, 0, err
	}
	return mods, key, nil
}

func keyFor(name string) (hotkey.Key, error) {
	if len(name) == 1 {
		ch := name[0]
		switch {
		case ch >= 'a' && ch <= 'z':
			return hotkey.Key(letterKeys[ch-'a']), nil
		case ch >= '0' && ch <= '9':
			return hotkey.Key(digitKeys[ch-'0']), nil
		}
	}
	if name == "space" {
		return hotkey.KeySpace, nil
	}
	if k, ok := fnKeys[name]; ok {
		return k, nil
	}
	return 0, fmt.Errorf("key %q not supported on this platform", name)
}

var letterKeys = [26]hotkey.Key{
	hotkey.KeyA, hotkey.KeyB, hotkey.KeyC, hotkey.KeyD, hotkey.KeyE,
	hotkey.KeyF, hotkey.KeyG, hotkey.KeyH, hotkey.KeyI, hotkey.KeyJ,
	hotkey.KeyK, hotkey.KeyL, hotkey.KeyM, hotkey.KeyN, hotkey.KeyO,
	hotkey.KeyP, hotkey.KeyQ, hotkey.KeyR, hotkey.KeyS, hotkey.KeyT,
	hotkey.KeyU, hotkey.KeyV, hotkey.KeyW, hotkey.KeyX, hotkey.KeyY,
	hotkey.KeyZ,
}

var digitKeys = [10]hotkey.Key{
	hotkey.Key0, hotkey.Key1, hotkey.Key2, hotkey.Key3, hotkey.Key4,
	hotkey.Key5, hotkey.Key6, hotkey.Key7, hotkey.Key8, hotkey.Key9,
}

var fnKeys = map[string]hotkey.Key{
	"f1": hotkey.KeyF1, "f2": hotkey.KeyF2, "f3": hotkey.KeyF3,
	"f4": hotkey.KeyF4, "f5": hotkey.KeyF5, "f6": hotkey.KeyF6,
	"f7": hotkey.KeyF7, "f8": hotkey.KeyF8, "f9": hotkey.KeyF9,
	"f10": hotkey.KeyF10, "f11": hotkey.KeyF11, "f12": hotkey.KeyF12,
}

// Start registers the combo and returns only once Register has succeeded, so
// a nil return means the hook is live.
func (l *xListener) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.started {
		return nil
	}
	hk, unhook, err := l.register(l.combo)
	if err != nil {
		return err
	}
	l.hk = hk
	l.unhook = unhook
	l.started = true
	return nil
}

func (l *xListener) register(combo Combo) (*hotkey.Hotkey, chan struct{}, error) {
	mods, key, err := compileX(combo)
	if err != nil {
		return nil, nil, err
	}
	hk := hotkey.New(mods, key)
	if err := hk.Register(); err != nil {
		return nil, nil, err
	}
	unhook := make(chan struct{})
	go func() {
		for {
			select {
			case <-hk.Keydown():
				select {
				case l.keydown <- struct{}{}:
				default:
				}
			case <-unhook:
				return
			}
		}
	}()
	go func() {
		for {
			select {
			case <-hk.Keyup():
				select {
				case l.keyup <- struct{}{}:
				default:
				}
			case <-unhook:
				return
			}
		}
	}()
	return hk, unhook, nil
}

// SetCombo installs the new registration first; only once it is live is the
// old one torn down, so there is no window with neither combo active. If the
// new combo cannot be registered the old one stays in place.
func (l *xListener) SetCombo(combo Combo) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.started {
		if _, _, err := compileX(combo); err != nil {
			return err
		}
		l.combo = combo
		return nil
	}

	hk, unhook, err := l.register(combo)
	if err != nil {
		return err
	}
	close(l.unhook)
	l.hk.Unregister()
	l.hk = hk
	l.unhook = unhook
	l.combo = combo
	return nil
}

func (l *xListener) Combo() Combo {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.combo
}

func (l *xListener) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.started {
		return
	}
	close(l.unhook)
	l.hk.Unregister()
	l.started = false
}

func (l *xListener) Keydown() <-chan struct{} {
	return l.keydown
}

func (l *xListener) Keyup() <-chan struct{} {
	return l.keyup
}

func Diagnose() (string, error) {
	return "global hotkey support available", nil
}
