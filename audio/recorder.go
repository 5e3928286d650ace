package audio

import (
	"fmt"
	"sync"

	"dikt/pipeline"
)

// Recorder binds a CaptureDevice to one pipeline session at a time. The
// capture callback is the only producer into the session buffer; frames
// arriving after the seal are dropped by the session itself.
type Recorder struct {
	mu     sync.Mutex
	device CaptureDevice
}

func NewRecorder(device CaptureDevice) *Recorder {
	return &Recorder{device: device}
}

// SetDevice swaps the underlying capture device. Callers must not swap while
// a recording is active; the pipeline's single-flight discipline guarantees
// that when the swap comes from the settings path.
func (r *Recorder) SetDevice(device CaptureDevice) {
	r.mu.Lock()
	old := r.device
	r.device = device
	r.mu.Unlock()
	if old != nil {
		old.Close()
	}
}

func (r *Recorder) DeviceName() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.device == nil {
		return "none"
	}
	return r.device.DeviceName()
}

func (r *Recorder) Start(sess *pipeline.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.device == nil {
		return fmt.Errorf("no capture device")
	}

	r.device.SetCallback(func(data []byte, _ uint32) {
		if len(data) == 0 {
			return
		}
		pcm := make([]byte, len(data))
		copy(pcm, data)
		// Append fails once the session is sealed; late frames from the
		// capture thread are dropped, not buffered anywhere else.
		_ = sess.Append(pcm)
	})

	if err := r.device.Start(); err != nil {
		r.device.ClearCallback()
		return fmt.Errorf("opening capture stream: %w", err)
	}
	return nil
}

func (r *Recorder) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.device == nil {
		return
	}
	r.device.Stop()
	r.device.ClearCallback()
}
