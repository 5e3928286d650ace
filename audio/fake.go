package audio

import (
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

const (
	wavHeaderSize     = 44
	fakeFrameSize     = 1024
	fakeBytesPerFrame = 2 // 16-bit mono
)

// FakeContext replays a PCM buffer through the CaptureDevice interface.
// Used by the headless test mode and package tests.
type FakeContext struct {
	pcm      []byte
	realtime bool
}

// NewFakeContext loads a WAV file and serves its samples as capture data.
// realtime paces delivery at the actual sample rate; otherwise all audio is
// delivered as fast as the consumer accepts it.
func NewFakeContext(wavPath string, realtime bool) (*FakeContext, error) {
	data, err := os.ReadFile(wavPath)
	if err != nil {
		return nil, err
	}
	if len(data) > wavHeaderSize {
		data = data[wavHeaderSize:]
	}
	return &FakeContext{pcm: data, realtime: realtime}, nil
}

// NewFakePCMContext serves an in-memory PCM buffer. Test helper.
func NewFakePCMContext(pcm []byte, realtime bool) *FakeContext {
	return &FakeContext{pcm: pcm, realtime: realtime}
}

func (f *FakeContext) Devices() ([]DeviceInfo, error) {
	return []DeviceInfo{{ID: "fake", Name: "fake"}}, nil
}

func (f *FakeContext) Close() {}

func (f *FakeContext) NewCapture(_ *DeviceInfo, config CaptureConfig) (CaptureDevice, error) {
	return &FakeCapture{pcm: f.pcm, realtime: f.realtime, sampleRate: config.SampleRate}, nil
}

type FakeCapture struct {
	pcm        []byte
	realtime   bool
	sampleRate uint32

	mu       sync.Mutex
	callback atomic.Pointer[DataCallback]
	stopCh   chan struct{}
	feedDone chan struct{}
}

func (f *FakeCapture) SetCallback(cb DataCallback) {
	f.callback.Store(&cb)
}

func (f *FakeCapture) ClearCallback() {
	f.callback.Store(nil)
}

func (f *FakeCapture) DeviceName() string { return "fake" }

func (f *FakeCapture) Start() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.stopCh = make(chan struct{})
	f.feedDone = make(chan struct{})

	chunkBytes := fakeFrameSize * fakeBytesPerFrame
	interval := time.Millisecond
	if f.realtime {
		interval = time.Duration(fakeFrameSize) * time.Second / time.Duration(f.sampleRate)
	}

	stop := f.stopCh
	go func() {
		defer close(f.feedDone)
		pos := 0
		silence := make([]byte, chunkBytes)
		for {
			select {
			case <-stop:
				return
			default:
			}

			cb := f.callback.Load()
			if cb != nil {
				if pos < len(f.pcm) {
					end := min(pos+chunkBytes, len(f.pcm))
					chunk := make([]byte, end-pos)
					copy(chunk, f.pcm[pos:end])
					(*cb)(chunk, uint32(len(chunk)/fakeBytesPerFrame))
					pos = end
				} else {
					// Audio exhausted; keep the stream alive with silence.
					(*cb)(silence, fakeFrameSize)
				}
			}

			select {
			case <-stop:
				return
			case <-time.After(interval):
			}
		}
	}()

	return nil
}

func (f *FakeCapture) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stopCh == nil {
		return
	}
	select {
	case <-f.stopCh:
	default:
		close(f.stopCh)
	}
	<-f.feedDone
	f.stopCh = nil
}

func (f *FakeCapture) Close() {
	f.Stop()
}

// BrokenCapture always fails to open. Test helper for the
// device-unavailable path.
type BrokenCapture struct{}

func (BrokenCapture) Start() error             { return errors.New("capture device gone") }
func (BrokenCapture) Stop()                    {}
func (BrokenCapture) Close()                   {}
func (BrokenCapture) SetCallback(DataCallback) {}
func (BrokenCapture) ClearCallback()           {}
func (BrokenCapture) DeviceName() string       { return "broken" }
