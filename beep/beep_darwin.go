//go:build darwin

package beep

import (
	"math"
	"sync"
	"sync/atomic"

	"github.com/gen2brain/malgo"
)

var (
	malgoCtx  *malgo.AllocatedContext
	device    *malgo.Device
	samples   map[Cue][]byte
	soundOnce sync.Once

	// Playback state, accessed atomically from the device callback
	playSamples atomic.Pointer[[]byte]
	playPos     atomic.Uint32
	playMu      sync.Mutex
)

// CoreAudio drains the tail itself, so darwin cues are shorter.
const tickDuration = 0.05

func initDevice() error {
	config := malgo.DefaultDeviceConfig(malgo.Playback)
	config.Playback.Format = malgo.FormatS16
	config.Playback.Channels = 1
	config.SampleRate = sampleRate

	callbacks := malgo.DeviceCallbacks{
		Data: dataCallback,
	}

	var err error
	device, err = malgo.InitDevice(malgoCtx.Context, config, callbacks)
	return err
}

func initSound() {
	var err error
	malgoCtx, err = malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return
	}

	samples = make(map[Cue][]byte, len(toneSpecs))
	for cue, spec := range toneSpecs {
		if spec.double {
			samples[cue] = doubleBeep(spec, 0.08, 0.05)
		} else {
			samples[cue] = tick(spec, tickDuration)
		}
	}

	if err := initDevice(); err != nil {
		malgoCtx.Uninit()
		malgoCtx = nil
		return
	}
}

func dataCallback(pOutput, _ []byte, frameCount uint32) {
	buf := playSamples.Load()
	if buf == nil || len(*buf) == 0 {
		for i := range pOutput {
			pOutput[i] = 0
		}
		return
	}

	pos := playPos.Load()
	total := uint32(len(*buf))
	bytesToWrite := frameCount * 2
	remaining := total - pos

	if remaining == 0 {
		playSamples.Store(nil)
		for i := range pOutput {
			pOutput[i] = 0
		}
		return
	}

	if bytesToWrite > remaining {
		bytesToWrite = remaining
	}

	copy(pOutput[:bytesToWrite], (*buf)[pos:pos+bytesToWrite])
	playPos.Store(pos + bytesToWrite)

	for i := bytesToWrite; i < frameCount*2; i++ {
		pOutput[i] = 0
	}
}

func tick(spec toneSpec, duration float64) []byte {
	n := int(sampleRate * duration)
	buf := make([]byte, n*2)
	for i := 0; i < n; i++ {
		t := float64(i) / sampleRate
		envelope := math.Exp(-t * spec.decay)
		sample := int16(math.Sin(2*math.Pi*spec.freq*t) * 32767 * spec.volume * envelope)
		buf[i*2] = byte(sample)
		buf[i*2+1] = byte(sample >> 8)
	}
	return buf
}

func doubleBeep(spec toneSpec, beepDur, gapDur float64) []byte {
	beep := tick(spec, beepDur)
	gap := make([]byte, int(sampleRate*gapDur)*2)
	out := make([]byte, 0, len(beep)*2+len(gap))
	out = append(out, beep...)
	out = append(out, gap...)
	out = append(out, beep...)
	return out
}

func play(c Cue) {
	playBytes(samples[c])
}

func playBytes(buf []byte) {
	if malgoCtx == nil || len(buf) == 0 {
		return
	}

	playMu.Lock()
	defer playMu.Unlock()

	if device == nil {
		return
	}

	// Stop first for a clean state (no-op if not running)
	device.Stop()

	playPos.Store(0)
	playSamples.Store(&buf)

	if err := device.Start(); err != nil {
		// Recreate the device (handles macOS sleep/wake)
		device.Uninit()
		if err := initDevice(); err != nil {
			playSamples.Store(nil)
			return
		}
		if err := device.Start(); err != nil {
			playSamples.Store(nil)
			return
		}
	}
}
