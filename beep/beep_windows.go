//go:build windows

package beep

import "sync"

// No audio playback backend on Windows; cues are silent.

var soundOnce sync.Once

func initSound() {}

func play(Cue) {}
