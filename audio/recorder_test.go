package audio

import (
	"testing"
	"time"

	"dikt/pipeline"
)

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestRecorderFillsSession(t *testing.T) {
	pcm := make([]byte, 16000*2) // 1s of silence
	ctx := NewFakePCMContext(pcm, false)
	dev, err := ctx.NewCapture(nil, CaptureConfig{SampleRate: 16000, Channels: 1})
	if err != nil {
		t.Fatal(err)
	}
	rec := NewRecorder(dev)

	sess := pipeline.NewSession()
	if err := rec.Start(sess); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitFor(t, 2*time.Second, func() bool { return sess.Duration() >= time.Second })
	rec.Stop()

	sess.Seal()
	if sess.Duration() < time.Second {
		t.Errorf("Duration = %v, want >= 1s", sess.Duration())
	}
}

func TestRecorderStopDropsLateFrames(t *testing.T) {
	pcm := make([]byte, 16000*2)
	ctx := NewFakePCMContext(pcm, false)
	dev, err := ctx.NewCapture(nil, CaptureConfig{SampleRate: 16000, Channels: 1})
	if err != nil {
		t.Fatal(err)
	}
	rec := NewRecorder(dev)

	sess := pipeline.NewSession()
	if err := rec.Start(sess); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitFor(t, 2*time.Second, func() bool { return sess.Duration() > 0 })
	rec.Stop()
	sealed := sess.Seal()

	// A frame arriving after the seal must not grow the buffer.
	if err := sess.Append([]byte{0, 0}); err == nil {
		t.Error("Append after seal should fail")
	}
	if got := sess.Seal(); len(got) != len(sealed) {
		t.Errorf("buffer grew after seal: %d -> %d", len(sealed), len(got))
	}
}

func TestRecorderStartFailure(t *testing.T) {
	rec := NewRecorder(BrokenCapture{})
	if err := rec.Start(pipeline.NewSession()); err == nil {
		t.Error("expected error from broken capture device")
	}
}

func TestIsBluetooth(t *testing.T) {
	for _, tt := range []struct {
		name string
		want bool
	}{
		{"AirPods Pro", true},
		{"Jabra Elite 75t", true},
		{"Built-in Microphone", false},
		{"USB Condenser Mic", false},
	} {
		if got := IsBluetooth(tt.name); got != tt.want {
			t.Errorf("IsBluetooth(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}
