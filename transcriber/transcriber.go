// Package transcriber turns sealed audio buffers into text through a remote
// speech-to-text provider. Providers form a fixed enumerated set; selection
// happens by Kind, never by reflection or plugin lookup.
package transcriber

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// Kind enumerates the supported providers.
type Kind int

const (
	KindGemini Kind = iota
	KindElevenLabs
	KindGroq
)

func (k Kind) String() string {
	switch k {
	case KindGemini:
		return "gemini"
	case KindElevenLabs:
		return "elevenlabs"
	case KindGroq:
		return "groq"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseKind maps a configured provider name to its Kind.
func ParseKind(name string) (Kind, error) {
	switch name {
	case "gemini":
		return KindGemini, nil
	case "elevenlabs":
		return KindElevenLabs, nil
	case "groq":
		return KindGroq, nil
	default:
		return 0, fmt.Errorf("unknown provider %q", name)
	}
}

// NetworkMetrics breaks one HTTP request into its phases.
type NetworkMetrics struct {
	DNS        time.Duration
	ConnWait   time.Duration
	TCP        time.Duration
	TLS        time.Duration
	ReqHeaders time.Duration
	ReqBody    time.Duration
	TTFB       time.Duration
	Download   time.Duration
	Total      time.Duration
	ConnReused bool
}

// Result is one finished provider call. Metrics is nil for providers whose
// SDK hides the transport.
type Result struct {
	Text    string
	Metrics *NetworkMetrics
}

// Transcriber is one provider. Transcribe sends an encoded audio buffer and
// returns the recognized text; cancelling ctx abandons the call.
type Transcriber interface {
	Name() string
	Transcribe(ctx context.Context, audio []byte, format, language string) (*Result, error)
}

// New builds the provider for kind. The credential must be non-empty; the
// dispatcher short-circuits missing credentials before ever reaching here.
func New(kind Kind, model, credential string) (Transcriber, error) {
	switch kind {
	case KindGemini:
		return NewGemini(model, credential)
	case KindElevenLabs:
		return NewElevenLabs(model, credential), nil
	case KindGroq:
		return NewGroq(model, credential), nil
	default:
		return nil, fmt.Errorf("unknown provider kind %d", int(kind))
	}
}

// apiError is a non-2xx provider response.
type apiError struct {
	provider string
	status   int
	body     string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("%s API error %d: %s", e.provider, e.status, e.body)
}

func firstNonEmpty(h http.Header, keys ...string) string {
	for _, k := range keys {
		if v := h.Get(k); v != "" {
			return v
		}
	}
	return "?"
}

// languageNames maps the ISO codes the settings layer accepts to the names
// the Gemini prompt uses. Unknown codes pass through unchanged.
var languageNames = map[string]string{
	"khm": "Khmer",
	"eng": "English",
	"tha": "Thai",
	"vie": "Vietnamese",
	"zho": "Chinese",
	"jpn": "Japanese",
	"kor": "Korean",
	"fra": "French",
	"spa": "Spanish",
	"deu": "German",
	"rus": "Russian",
	"ara": "Arabic",
	"hin": "Hindi",
}

func languageName(code string) string {
	if name, ok := languageNames[code]; ok {
		return name
	}
	return code
}
