//go:build linux

package hotkey

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
)

const (
	evKey      = 1
	keyPress   = 1
	keyRelease = 0
)

const inputEventSize = 24

// evdev key codes from linux/input-event-codes.h
var modCodes = map[uint16]Mod{
	29:  ModCtrl, // KEY_LEFTCTRL
	97:  ModCtrl, // KEY_RIGHTCTRL
	42:  ModShift,
	54:  ModShift,
	56:  ModAlt, // KEY_LEFTALT
	100: ModAlt, // KEY_RIGHTALT
	125: ModSuper,
	126: ModSuper,
}

var keyCodes = map[string]uint16{
	"a": 30, "b": 48, "c": 46, "d": 32, "e": 18, "f": 33, "g": 34,
	"h": 35, "i": 23, "j": 36, "k": 37, "l": 38, "m": 50, "n": 49,
	"o": 24, "p": 25, "q": 16, "r": 19, "s": 31, "t": 20, "u": 22,
	"v": 47, "w": 17, "x": 45, "y": 21, "z": 44,
	"1": 2, "2": 3, "3": 4, "4": 5, "5": 6, "6": 7, "7": 8, "8": 9,
	"9": 10, "0": 11,
	"space": 57,
	"f1":    59, "f2": 60, "f3": 61, "f4": 62, "f5": 63, "f6": 64,
	"f7": 65, "f8": 66, "f9": 67, "f10": 68, "f11": 87, "f12": 88,
}

type comboSpec struct {
	combo Combo
	key   uint16
	mods  []Mod
}

type linuxListener struct {
	keydown chan struct{}
	keyup   chan struct{}

	spec atomic.Pointer[comboSpec]

	// active is set while the combo is held, so repeat press events and
	// stray releases collapse into clean edges across all keyboards.
	active    atomic.Bool
	activeKey atomic.Uint32

	setMu sync.Mutex
	files []*os.File
	stop  chan struct{}
	once  sync.Once
}

func New(combo Combo) (Listener, error) {
	l := &linuxListener{
		keydown: make(chan struct{}, 1),
		keyup:   make(chan struct{}, 1),
	}
	spec, err := compileCombo(combo)
	if err != nil {
		return nil, err
	}
	l.spec.Store(spec)
	return l, nil
}

func compileCombo(combo Combo) (*comboSpec, error) {
	code, ok := keyCodes[combo.Key]
	if !ok {
		return nil, fmt.Errorf("key %q not mapped for evdev", combo.Key)
	}
	return &comboSpec{combo: combo, key: code, mods: combo.Mods}, nil
}

// Start opens the keyboard devices and returns only once at least one is
// readable. A listener that reports success here is verifiably installed;
// there is no window where it appears registered but captures nothing.
func (l *linuxListener) Start() error {
	keyboards, err := findKeyboards()
	if err != nil {
		return fmt.Errorf("finding keyboards: %w", err)
	}
	if len(keyboards) == 0 {
		return fmt.Errorf("no keyboard devices found (is user in 'input' group?)")
	}

	l.stop = make(chan struct{})

	for _, path := range keyboards {
		f, err := os.Open(path)
		if err != nil {
			continue
		}
		l.files = append(l.files, f)
	}

	if len(l.files) == 0 {
		return fmt.Errorf("could not open any keyboard device (run: sudo usermod -aG input $USER, then re-login)")
	}

	for _, f := range l.files {
		go l.readEvents(f)
	}

	return nil
}

// SetCombo swaps the watched combination atomically. The readers consult the
// spec pointer on every event, so the new combo is live the instant the store
// completes and the old one was live right up to it.
func (l *linuxListener) SetCombo(combo Combo) error {
	l.setMu.Lock()
	defer l.setMu.Unlock()
	spec, err := compileCombo(combo)
	if err != nil {
		return err
	}
	l.spec.Store(spec)
	return nil
}

func (l *linuxListener) Combo() Combo {
	return l.spec.Load().combo
}

func (l *linuxListener) readEvents(f *os.File) {
	buf := make([]byte, inputEventSize*16)
	held := map[Mod]int{}

	for {
		select {
		case <-l.stop:
			return
		default:
		}

		n, err := f.Read(buf)
		if err != nil {
			return
		}

		for i := 0; i+inputEventSize <= n; i += inputEventSize {
			evType := binary.LittleEndian.Uint16(buf[i+16:])
			evCode := binary.LittleEndian.Uint16(buf[i+18:])
			evValue := int32(binary.LittleEndian.Uint32(buf[i+20:]))

			if evType != evKey {
				continue
			}

			pressed := evValue == keyPress
			released := evValue == keyRelease
			if !pressed && !released {
				continue // key repeat
			}

			if mod, ok := modCodes[evCode]; ok {
				if pressed {
					held[mod]++
				} else if held[mod] > 0 {
					held[mod]--
				}
				continue
			}

			spec := l.spec.Load()
			if pressed {
				if evCode != spec.key || l.active.Load() {
					continue
				}
				if !modsHeld(held, spec.mods) {
					continue
				}
				l.active.Store(true)
				l.activeKey.Store(uint32(evCode))
				select {
				case l.keydown <- struct{}{}:
				default:
				}
			} else {
				// Release matches the key that armed the combo, even if
				// SetCombo swapped specs mid-press.
				if !l.active.Load() || uint32(evCode) != l.activeKey.Load() {
					continue
				}
				l.active.Store(false)
				select {
				case l.keyup <- struct{}{}:
				default:
				}
			}
		}
	}
}

func modsHeld(held map[Mod]int, mods []Mod) bool {
	for _, m := range mods {
		if held[m] == 0 {
			return false
		}
	}
	return true
}

func (l *linuxListener) Stop() {
	l.once.Do(func() {
		if l.stop != nil {
			close(l.stop)
		}
		for _, f := range l.files {
			f.Close()
		}
	})
}

func (l *linuxListener) Keydown() <-chan struct{} {
	return l.keydown
}

func (l *linuxListener) Keyup() <-chan struct{} {
	return l.keyup
}

func findKeyboards() ([]string, error) {
	entries, err := os.ReadDir("/dev/input")
	if err != nil {
		return nil, err
	}

	var keyboards []string
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), "event") {
			continue
		}
		path := filepath.Join("/dev/input", e.Name())
		if isKeyboard(e.Name()) {
			keyboards = append(keyboards, path)
		}
	}
	return keyboards, nil
}

func isKeyboard(eventName string) bool {
	capsPath := filepath.Join("/sys/class/input", eventName, "device", "capabilities", "key")
	data, err := os.ReadFile(capsPath)
	if err != nil {
		return false
	}
	caps := strings.TrimSpace(string(data))
	return len(caps) > 10
}

func Diagnose() (string, error) {
	keyboards, err := findKeyboards()
	if err != nil {
		return "", fmt.Errorf("cannot scan input devices: %w", err)
	}
	if len(keyboards) == 0 {
		return "", fmt.Errorf("no keyboard devices found (is user in 'input' group?)")
	}

	var opened string
	for _, path := range keyboards {
		f, err := os.Open(path)
		if err == nil {
			f.Close()
			opened = path
			break
		}
	}
	if opened == "" {
		return "", fmt.Errorf("found %d keyboard(s) but cannot open any (run: sudo usermod -aG input $USER)", len(keyboards))
	}

	return fmt.Sprintf("%d keyboard(s) found, opened %s", len(keyboards), opened), nil
}
