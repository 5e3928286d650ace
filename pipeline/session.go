package pipeline

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Audio constants shared by the capture and encoding paths.
const (
	SampleRate    = 16000
	Channels      = 1
	BitsPerSample = 16
	bytesPerFrame = Channels * BitsPerSample / 8
)

// ErrSealed is returned by Append once a session's buffer has been sealed.
var ErrSealed = errors.New("session is sealed")

// Session is one record-to-seal lifecycle of a single audio buffer. The
// capture callback appends into it while open; Seal closes it for writing and
// hands the buffer to the transcription path. At most one Session exists at a
// time; the Machine enforces that.
type Session struct {
	ID      uuid.UUID
	Started time.Time

	mu      sync.Mutex
	pcm     []byte
	sealed  bool
	stopped time.Time
}

func NewSession() *Session {
	return &Session{
		ID:      uuid.New(),
		Started: time.Now(),
	}
}

// Append adds raw PCM (s16le mono) to the open buffer. It fails once the
// session is sealed: the seal is enforced, not advisory.
func (s *Session) Append(pcm []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sealed {
		return ErrSealed
	}
	s.pcm = append(s.pcm, pcm...)
	return nil
}

// Seal closes the buffer for writing, stamps the stop time, and returns the
// buffer. Sealing twice returns the same buffer.
func (s *Session) Seal() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.sealed {
		s.sealed = true
		s.stopped = time.Now()
	}
	return s.pcm
}

func (s *Session) Sealed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sealed
}

func (s *Session) Stopped() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

// Duration reports the captured audio length derived from the frame count,
// not from wall-clock timestamps.
func (s *Session) Duration() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	frames := len(s.pcm) / bytesPerFrame
	return time.Duration(float64(frames) / float64(SampleRate) * float64(time.Second))
}
