package settings

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dikt.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	s, err := Load(writeConfig(t, "{}\n"), Overrides{})
	require.NoError(t, err)

	c := s.Current()
	assert.Equal(t, "ctrl+alt+space", c.Combo)
	assert.Equal(t, "gemini", c.Provider)
	assert.Equal(t, "khm", c.Language)
	assert.Equal(t, "flac", c.Format)
	assert.Equal(t, 300*time.Millisecond, c.MinDuration)
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
combo: ctrl+shift+d
provider: groq
model: whisper-large-v3
language: eng
format: wav
min_duration_ms: 500
`)
	s, err := Load(path, Overrides{})
	require.NoError(t, err)

	c := s.Current()
	assert.Equal(t, "ctrl+shift+d", c.Combo)
	assert.Equal(t, "groq", c.Provider)
	assert.Equal(t, "whisper-large-v3", c.Model)
	assert.Equal(t, "eng", c.Language)
	assert.Equal(t, "wav", c.Format)
	assert.Equal(t, 500*time.Millisecond, c.MinDuration)
}

func TestOverridesBeatFile(t *testing.T) {
	path := writeConfig(t, "provider: groq\nlanguage: eng\n")
	s, err := Load(path, Overrides{Provider: "elevenlabs", Combo: "ctrl+alt+v"})
	require.NoError(t, err)

	c := s.Current()
	assert.Equal(t, "elevenlabs", c.Provider)
	assert.Equal(t, "ctrl+alt+v", c.Combo)
	assert.Equal(t, "eng", c.Language, "non-overridden keys still come from the file")
}

func TestLoadBadFile(t *testing.T) {
	path := writeConfig(t, "provider: [unclosed\n")
	_, err := Load(path, Overrides{})
	assert.Error(t, err)
}

func TestCredential(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "google-key")
	t.Setenv("ELEVENLABS_API_KEY", "el-key")
	t.Setenv("GROQ_API_KEY", "groq-key")

	assert.Equal(t, "google-key", Credential("gemini"))
	assert.Equal(t, "el-key", Credential("elevenlabs"))
	assert.Equal(t, "groq-key", Credential("groq"))
	assert.Equal(t, "", Credential("carrier-pigeon"))

	t.Setenv("GEMINI_API_KEY", "gemini-key")
	assert.Equal(t, "gemini-key", Credential("gemini"), "GEMINI_API_KEY wins over GOOGLE_API_KEY")
}

func TestSnapshotResolvesCredentialAtCallTime(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "first-key")
	s, err := Load(writeConfig(t, "provider: groq\n"), Overrides{})
	require.NoError(t, err)

	snap := s.Snapshot()
	assert.Equal(t, "groq", snap.Provider)
	assert.Equal(t, "first-key", snap.Credential)

	// A later key change affects the next snapshot, never a taken one.
	t.Setenv("GROQ_API_KEY", "second-key")
	assert.Equal(t, "first-key", snap.Credential)
	assert.Equal(t, "second-key", s.Snapshot().Credential)
}
