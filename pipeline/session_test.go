package pipeline

import (
	"testing"
	"time"
)

func TestSessionAppendAndSeal(t *testing.T) {
	sess := NewSession()
	if err := sess.Append(make([]byte, 320)); err != nil {
		t.Fatal(err)
	}
	if sess.Sealed() {
		t.Fatal("session sealed before Seal")
	}

	buf := sess.Seal()
	if len(buf) != 320 {
		t.Errorf("sealed buffer = %d bytes, want 320", len(buf))
	}
	if !sess.Sealed() {
		t.Error("Sealed() false after Seal")
	}
	if sess.Stopped().IsZero() {
		t.Error("stop time not stamped")
	}
}

func TestSessionAppendAfterSealFails(t *testing.T) {
	sess := NewSession()
	sess.Append(make([]byte, 100))
	sess.Seal()

	if err := sess.Append(make([]byte, 100)); err != ErrSealed {
		t.Errorf("Append after seal = %v, want ErrSealed", err)
	}
	if got := len(sess.Seal()); got != 100 {
		t.Errorf("buffer grew after seal: %d bytes", got)
	}
}

func TestSessionSealIdempotent(t *testing.T) {
	sess := NewSession()
	sess.Append(make([]byte, 64))
	first := sess.Seal()
	second := sess.Seal()
	if len(first) != len(second) {
		t.Error("double Seal returned different buffers")
	}
}

func TestSessionDuration(t *testing.T) {
	sess := NewSession()
	// One second of s16le mono at the fixed sample rate.
	sess.Append(make([]byte, SampleRate*2))
	if got := sess.Duration(); got != time.Second {
		t.Errorf("Duration = %v, want 1s", got)
	}
}

func TestSessionIdentity(t *testing.T) {
	a, b := NewSession(), NewSession()
	if a.ID == b.ID {
		t.Error("sessions share an ID")
	}
}
