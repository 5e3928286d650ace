package transcriber

import (
	"context"
	"fmt"
	"sync"
	"time"

	"dikt/encoder"
	"dikt/log"
	"dikt/pipeline"
)

// Dispatcher runs transcription calls off the pipeline's event loop. Submit
// returns immediately; the eventual result flows back as a Transcribed event
// through the post function. One call per session, no queueing.
type Dispatcher struct {
	post func(pipeline.Event)
	wg   sync.WaitGroup

	// The built provider is kept across submissions so its HTTP connection
	// pool (and warmed TLS session) survives between recordings. Rebuilt
	// only when the snapshot's kind, model, or credential changes.
	mu     sync.Mutex
	cached Transcriber
	key    providerKey

	// Overridable in tests to inject a fake provider.
	newTranscriber func(kind Kind, cfg pipeline.ProviderConfig) (Transcriber, error)
}

type providerKey struct {
	kind       Kind
	model      string
	credential string
}

// warmer is implemented by providers that can pre-open their TLS connection
// ahead of the first request.
type warmer interface{ warm() }

func NewDispatcher(post func(pipeline.Event)) *Dispatcher {
	return &Dispatcher{
		post: post,
		newTranscriber: func(kind Kind, cfg pipeline.ProviderConfig) (Transcriber, error) {
			return New(kind, cfg.Model, cfg.Credential)
		},
	}
}

func (d *Dispatcher) Submit(ctx context.Context, sess *pipeline.Session, cfg pipeline.ProviderConfig) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		text, cerr := d.run(ctx, sess, cfg)
		d.post(pipeline.Transcribed{SessionID: sess.ID, Text: text, Err: cerr})
	}()
}

func (d *Dispatcher) run(ctx context.Context, sess *pipeline.Session, cfg pipeline.ProviderConfig) (string, *pipeline.ClassifiedError) {
	kind, err := ParseKind(cfg.Provider)
	if err != nil {
		return "", pipeline.Classified(pipeline.KindUnknownProvider, err)
	}

	// Fail before touching the network.
	if cfg.Credential == "" {
		return "", pipeline.Classified(pipeline.KindNoCredential,
			fmt.Errorf("no API key configured for %s", cfg.Provider))
	}

	pcm := sess.Seal()
	encodeStart := time.Now()
	audio, err := encoder.Encode(cfg.Format, pcm)
	if err != nil {
		return "", pipeline.Classified(pipeline.KindProviderError, err)
	}
	encodeTime := time.Since(encodeStart)

	t, err := d.provider(kind, cfg)
	if err != nil {
		return "", classify(err)
	}

	callStart := time.Now()
	res, err := t.Transcribe(ctx, audio, cfg.Format, cfg.Language)
	if err != nil {
		return "", classify(err)
	}

	m := log.RequestMetrics{
		AudioLengthS: sess.Duration().Seconds(),
		UploadKB:     float64(len(audio)) / 1024,
		EncodeTimeMs: float64(encodeTime.Milliseconds()),
		TotalTimeMs:  float64(time.Since(callStart).Milliseconds()),
	}
	connReused := false
	if res.Metrics != nil {
		m.DNSTimeMs = float64(res.Metrics.DNS.Milliseconds())
		m.TLSTimeMs = float64(res.Metrics.TLS.Milliseconds())
		m.TTFBMs = float64(res.Metrics.TTFB.Milliseconds())
		connReused = res.Metrics.ConnReused
	}
	log.Request(m, cfg.Provider, cfg.Format, connReused)

	return res.Text, nil
}

func (d *Dispatcher) provider(kind Kind, cfg pipeline.ProviderConfig) (Transcriber, error) {
	key := providerKey{kind: kind, model: cfg.Model, credential: cfg.Credential}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cached != nil && d.key == key {
		return d.cached, nil
	}
	t, err := d.newTranscriber(kind, cfg)
	if err != nil {
		return nil, err
	}
	d.cached = t
	d.key = key
	if w, ok := t.(warmer); ok {
		go w.warm()
	}
	return t, nil
}

// Shutdown waits for any in-flight call to post its result, up to timeout.
// Returns false if a call was still outstanding when the deadline hit.
func (d *Dispatcher) Shutdown(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}
