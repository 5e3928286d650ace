package transcriber

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"dikt/pipeline"
)

func TestClassify(t *testing.T) {
	for _, tt := range []struct {
		name string
		err  error
		want pipeline.Kind
	}{
		{
			"nil",
			nil,
			pipeline.KindNone,
		},
		{
			"unauthorized",
			&apiError{provider: "groq", status: http.StatusUnauthorized},
			pipeline.KindNoCredential,
		},
		{
			"forbidden",
			&apiError{provider: "gemini", status: http.StatusForbidden},
			pipeline.KindNoCredential,
		},
		{
			"server error",
			&apiError{provider: "elevenlabs", status: http.StatusInternalServerError},
			pipeline.KindProviderError,
		},
		{
			"rate limited",
			&apiError{provider: "groq", status: http.StatusTooManyRequests},
			pipeline.KindProviderError,
		},
		{
			"wrapped api error",
			fmt.Errorf("call failed: %w", &apiError{provider: "groq", status: 500}),
			pipeline.KindProviderError,
		},
		{
			"dns failure",
			&net.DNSError{Err: "no such host", Name: "api.example.invalid"},
			pipeline.KindNetworkUnreachable,
		},
		{
			"connection refused",
			&net.OpError{Op: "dial", Err: errors.New("connection refused")},
			pipeline.KindNetworkUnreachable,
		},
		{
			"deadline exceeded",
			context.DeadlineExceeded,
			pipeline.KindNetworkUnreachable,
		},
		{
			"parse error",
			errors.New("response parse error"),
			pipeline.KindUnknownProvider,
		},
		{
			"opaque sdk failure",
			errors.New("tls: internal error"),
			pipeline.KindUnknownProvider,
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(tt.err)
			if tt.err == nil {
				assert.Nil(t, got)
				return
			}
			assert.Equal(t, tt.want, got.Kind)
			assert.ErrorIs(t, got, tt.err)
		})
	}
}

func TestClassifyUnreachableServer(t *testing.T) {
	g := NewGroq("", "key")
	g.apiURL = "http://127.0.0.1:1/v1/audio/transcriptions"

	_, err := g.Transcribe(context.Background(), []byte("x"), "flac", "")
	got := classify(err)
	assert.Equal(t, pipeline.KindNetworkUnreachable, got.Kind)
}
