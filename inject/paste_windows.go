package inject

import (
	"errors"
	"sync"

	"github.com/micmonay/keybd_event"
)

// No per-character synthesis on Windows; everything goes through Ctrl+V.
var errTypingUnsupported = errors.New("typing unsupported")

func typeText(string) error { return errTypingUnsupported }

var (
	kb     keybd_event.KeyBonding
	kbOnce sync.Once
	kbErr  error
)

func Init() error {
	kbOnce.Do(func() {
		kb, kbErr = keybd_event.NewKeyBonding()
	})
	return kbErr
}

func paste() error {
	if err := Init(); err != nil {
		return err
	}
	kb.SetKeys(keybd_event.VK_V)
	kb.HasCTRL(true)
	return kb.Launching()
}

// Verify checks that the keyboard event binding is initialized.
func Verify() (string, error) {
	if err := Init(); err != nil {
		return "", err
	}
	return "keyboard event binding OK (Ctrl+V)", nil
}
