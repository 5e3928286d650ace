package inject

import (
	"errors"
	"sync"
	"testing"
	"time"
)

type clipStub struct {
	mu       sync.Mutex
	contents string
	readErr  error
	writes   []string
}

func (c *clipStub) read() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.contents, c.readErr
}

func (c *clipStub) write(s string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.contents = s
	c.writes = append(c.writes, s)
	return nil
}

func (c *clipStub) current() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.contents
}

func testInjector(clip *clipStub) *Injector {
	return &Injector{
		typeFn:  func(string) error { return errTypingUnsupported },
		pasteFn: func() error { return nil },
		readFn:  clip.read,
		writeFn: clip.write,
		delay:   10 * time.Millisecond,
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestInsertTypingSucceeds(t *testing.T) {
	clip := &clipStub{contents: "prior"}
	in := testInjector(clip)
	var typed string
	in.typeFn = func(s string) error { typed = s; return nil }
	in.pasteFn = func() error { t.Fatal("paste must not run when typing works"); return nil }

	if err := in.Insert("hello"); err != nil {
		t.Fatal(err)
	}
	if typed != "hello" {
		t.Errorf("typed %q, want hello", typed)
	}
	if clip.current() != "prior" {
		t.Error("clipboard must be untouched when typing works")
	}
}

func TestInsertFallbackRestoresClipboard(t *testing.T) {
	clip := &clipStub{contents: "prior"}
	in := testInjector(clip)
	pasted := false
	in.pasteFn = func() error {
		if clip.current() != "new text" {
			t.Errorf("paste saw clipboard %q, want new text", clip.current())
		}
		pasted = true
		return nil
	}

	if err := in.Insert("new text"); err != nil {
		t.Fatal(err)
	}
	if !pasted {
		t.Fatal("paste not invoked")
	}
	waitFor(t, func() bool { return clip.current() == "prior" })
}

func TestInsertNoRestoreWhenReadFails(t *testing.T) {
	clip := &clipStub{readErr: errors.New("clipboard empty")}
	in := testInjector(clip)

	if err := in.Insert("text"); err != nil {
		t.Fatal(err)
	}
	time.Sleep(50 * time.Millisecond)
	if clip.current() != "text" {
		t.Errorf("clipboard = %q, want text to remain", clip.current())
	}
}

func TestInsertBothPathsBlocked(t *testing.T) {
	clip := &clipStub{}
	in := testInjector(clip)
	in.pasteFn = func() error { return errors.New("no input permission") }

	err := in.Insert("text")
	if !errors.Is(err, ErrBlocked) {
		t.Fatalf("err = %v, want ErrBlocked", err)
	}
}
