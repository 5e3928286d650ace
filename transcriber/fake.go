package transcriber

import (
	"context"
	"time"
)

// FakeTranscriber returns a canned result (or error) after an optional delay.
type FakeTranscriber struct {
	text  string
	err   error
	delay time.Duration
}

func NewFake(text string, err error) *FakeTranscriber {
	return &FakeTranscriber{text: text, err: err}
}

func (f *FakeTranscriber) WithDelay(d time.Duration) *FakeTranscriber {
	f.delay = d
	return f
}

func (f *FakeTranscriber) Name() string { return "fake" }

func (f *FakeTranscriber) Transcribe(ctx context.Context, _ []byte, _, _ string) (*Result, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &Result{Text: f.text}, nil
}
