package transcriber

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKind(t *testing.T) {
	for _, tt := range []struct {
		name string
		want Kind
	}{
		{"gemini", KindGemini},
		{"elevenlabs", KindElevenLabs},
		{"groq", KindGroq},
	} {
		got, err := ParseKind(tt.name)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
		assert.Equal(t, tt.name, got.String())
	}

	_, err := ParseKind("whisper-local")
	assert.Error(t, err)
}

func TestGroqTranscribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, r.ParseMultipartForm(1 << 20))
		assert.Equal(t, "whisper-large-v3-turbo", r.FormValue("model"))
		assert.Equal(t, "khm", r.FormValue("language"))
		_, _, err := r.FormFile("file")
		require.NoError(t, err)
		w.Write([]byte(`{"text": " hello from groq "}`))
	}))
	defer srv.Close()

	g := NewGroq("", "test-key")
	g.apiURL = srv.URL

	res, err := g.Transcribe(context.Background(), []byte("fake-flac"), "flac", "khm")
	require.NoError(t, err)
	assert.Equal(t, "hello from groq", res.Text)
	require.NotNil(t, res.Metrics)
	assert.Positive(t, res.Metrics.Total)
}

func TestGroqAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "rate limited"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	g := NewGroq("", "test-key")
	g.apiURL = srv.URL

	_, err := g.Transcribe(context.Background(), []byte("x"), "flac", "")
	var api *apiError
	require.ErrorAs(t, err, &api)
	assert.Equal(t, http.StatusTooManyRequests, api.status)
}

func TestElevenLabsTranscribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "xi-test-key", r.Header.Get("xi-api-key"))
		require.NoError(t, r.ParseMultipartForm(1 << 20))
		assert.Equal(t, "scribe_v1", r.FormValue("model_id"))
		assert.Equal(t, "eng", r.FormValue("language_code"))
		w.Write([]byte(`{"text": "eleven says hi", "language_code": "eng"}`))
	}))
	defer srv.Close()

	e := NewElevenLabs("", "xi-test-key")
	e.apiURL = srv.URL

	res, err := e.Transcribe(context.Background(), []byte("fake-wav"), "wav", "eng")
	require.NoError(t, err)
	assert.Equal(t, "eleven says hi", res.Text)
}

func TestElevenLabsUnauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail": "invalid key"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	e := NewElevenLabs("", "bad-key")
	e.apiURL = srv.URL

	_, err := e.Transcribe(context.Background(), []byte("x"), "wav", "")
	var api *apiError
	require.ErrorAs(t, err, &api)
	assert.Equal(t, http.StatusUnauthorized, api.status)
}

func TestLanguageName(t *testing.T) {
	assert.Equal(t, "Khmer", languageName("khm"))
	assert.Equal(t, "English", languageName("eng"))
	assert.Equal(t, "xx", languageName("xx"))
}
