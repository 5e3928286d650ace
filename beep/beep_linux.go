//go:build linux

package beep

import (
	"math"
	"sync"

	"github.com/jfreymuth/pulse"
	"github.com/jfreymuth/pulse/proto"
)

var (
	samples   map[Cue][]int16
	soundOnce sync.Once
)

// tickDuration includes a tail so PulseAudio's buffer fill does not clip the
// decay.
const tickDuration = 0.2

func initSound() {
	samples = make(map[Cue][]int16, len(toneSpecs))
	for cue, spec := range toneSpecs {
		if spec.double {
			samples[cue] = doubleBeep(spec, 0.08, 0.05)
		} else {
			samples[cue] = tick(spec, tickDuration)
		}
	}
}

func tick(spec toneSpec, duration float64) []int16 {
	n := int(sampleRate * duration)
	// Interleaved stereo to match the output sink format
	buf := make([]int16, n*2)
	for i := 0; i < n; i++ {
		t := float64(i) / sampleRate
		envelope := math.Exp(-t * spec.decay)
		s := int16(math.Sin(2*math.Pi*spec.freq*t) * 32767 * spec.volume * envelope)
		buf[i*2] = s
		buf[i*2+1] = s
	}
	return buf
}

func doubleBeep(spec toneSpec, beepDur, gapDur float64) []int16 {
	beep := tick(spec, beepDur)
	gap := make([]int16, int(sampleRate*gapDur)*2)
	out := make([]int16, 0, len(beep)*2+len(gap))
	out = append(out, beep...)
	out = append(out, gap...)
	out = append(out, beep...)
	return out
}

func play(c Cue) {
	go playSamples(samples[c])
}

func playSamples(buf []int16) {
	if len(buf) == 0 {
		return
	}
	c, err := pulse.NewClient()
	if err != nil {
		return
	}
	defer c.Close()

	pos := 0
	reader := pulse.Int16Reader(func(out []int16) (int, error) {
		if pos >= len(buf) {
			return 0, pulse.EndOfData
		}
		n := copy(out, buf[pos:])
		pos += n
		return n, nil
	})
	stream, err := c.NewPlayback(reader,
		pulse.PlaybackStereo,
		pulse.PlaybackSampleRate(sampleRate),
		pulse.PlaybackLatency(0.1),
		pulse.PlaybackRawOption(func(p *proto.CreatePlaybackStream) {
			p.ChannelVolumes = proto.ChannelVolumes{uint32(proto.VolumeNorm), uint32(proto.VolumeNorm)}
		}),
	)
	if err != nil {
		return
	}
	stream.Start()
	stream.Drain()
	stream.Stop()
	stream.Close()
}
