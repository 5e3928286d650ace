// Package beep plays short audible cues for pipeline transitions so the user
// gets feedback without looking at a screen.
package beep

var disabled bool

// Disable silences all cues (headless test mode).
func Disable() { disabled = true }

// Cue identifies one audible signal.
type Cue int

const (
	CueRecord Cue = iota // recording started
	CueStop              // recording stopped, transcription pending
	CueReady             // text delivered
	CueError             // transcription or injection failed
)

const sampleRate = 44100

type toneSpec struct {
	freq   float64
	volume float64
	decay  float64
	double bool // error cue is a double beep
}

var toneSpecs = map[Cue]toneSpec{
	CueRecord: {freq: 1200, volume: 0.5, decay: 60},
	CueStop:   {freq: 900, volume: 0.5, decay: 40},
	CueReady:  {freq: 1500, volume: 0.4, decay: 50},
	CueError:  {freq: 350, volume: 0.6, decay: 30, double: true},
}

// Play fires a cue without blocking the caller.
func Play(c Cue) {
	if disabled {
		return
	}
	soundOnce.Do(initSound)
	play(c)
}

// Init warms the playback backend ahead of the first cue.
func Init() {
	soundOnce.Do(initSound)
}
