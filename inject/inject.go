// Package inject delivers transcribed text at the current input focus.
// Synthesized keystrokes go first; targets that reject synthetic input get a
// clipboard-paste sequence that restores the prior clipboard contents.
package inject

import (
	"errors"
	"fmt"
	"time"

	cb "github.com/atotto/clipboard"

	"dikt/log"
)

// ErrBlocked means the target rejected both injection paths.
var ErrBlocked = errors.New("text injection blocked")

// restoreDelay gives the paste target time to read the selection before the
// prior clipboard contents come back.
const restoreDelay = 600 * time.Millisecond

type Injector struct {
	typeFn  func(string) error
	pasteFn func() error
	readFn  func() (string, error)
	writeFn func(string) error
	delay   time.Duration
}

func New() *Injector {
	return &Injector{
		typeFn:  typeText,
		pasteFn: paste,
		readFn:  cb.ReadAll,
		writeFn: cb.WriteAll,
		delay:   restoreDelay,
	}
}

// Insert implements pipeline.Injector.
func (in *Injector) Insert(text string) error {
	typeErr := in.typeFn(text)
	if typeErr == nil {
		return nil
	}
	if !errors.Is(typeErr, errTypingUnsupported) {
		log.Warnf("synthetic typing failed, falling back to paste: %v", typeErr)
	}

	if err := in.pasteInsert(text); err != nil {
		return fmt.Errorf("%w: %v", ErrBlocked, err)
	}
	return nil
}

func (in *Injector) pasteInsert(text string) error {
	prior, priorErr := in.readFn()

	if err := in.writeFn(text); err != nil {
		return fmt.Errorf("clipboard write: %w", err)
	}
	if err := in.pasteFn(); err != nil {
		return fmt.Errorf("paste keystroke: %w", err)
	}

	if priorErr == nil {
		time.AfterFunc(in.delay, func() {
			if err := in.writeFn(prior); err != nil {
				log.Warnf("clipboard restore: %v", err)
			}
		})
	}
	return nil
}
