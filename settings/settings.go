// Package settings owns the live configuration: a dikt.yaml read through
// viper with file watching, and credentials resolved from the environment
// (optionally seeded from a .env file). The pipeline only ever sees immutable
// snapshots taken at submission time.
package settings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"dikt/log"
	"dikt/pipeline"
)

// Config is one coherent view of the user-tunable settings.
type Config struct {
	Combo       string
	Provider    string
	Model       string
	Language    string
	Format      string
	Device      string
	MinDuration time.Duration
}

// Overrides are command-line flags that beat the config file, including
// across live reloads.
type Overrides struct {
	Combo    string
	Provider string
	Model    string
	Language string
	Format   string
	Device   string
}

// Store implements pipeline.ConfigSource. Reads are lock-guarded snapshots;
// the viper watcher is the only writer after Load returns.
type Store struct {
	v         *viper.Viper
	overrides Overrides

	mu  sync.RWMutex
	cur Config

	onChange []func(Config)
}

// Load reads dikt.yaml (explicit path, else the user config dir, else the
// working directory) and any .env next to it. A missing config file is fine;
// defaults apply.
func Load(configPath string, overrides Overrides) (*Store, error) {
	dir := configDir()

	// Credentials may live in a .env in either location.
	godotenv.Load(filepath.Join(dir, ".env"))
	godotenv.Load()

	v := viper.New()
	v.SetDefault("combo", "ctrl+alt+space")
	v.SetDefault("provider", "gemini")
	v.SetDefault("model", "")
	v.SetDefault("language", "khm")
	v.SetDefault("format", "flac")
	v.SetDefault("device", "")
	v.SetDefault("min_duration_ms", 300)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("dikt")
		v.SetConfigType("yaml")
		v.AddConfigPath(dir)
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		if configPath != "" {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	s := &Store{v: v, overrides: overrides}
	s.cur = s.read()

	if v.ConfigFileUsed() != "" {
		v.OnConfigChange(func(fsnotify.Event) {
			s.mu.Lock()
			s.cur = s.read()
			cfg := s.cur
			handlers := s.onChange
			s.mu.Unlock()
			log.Info("settings reloaded from " + v.ConfigFileUsed())
			for _, h := range handlers {
				h(cfg)
			}
		})
		v.WatchConfig()
	}

	return s, nil
}

func (s *Store) read() Config {
	c := Config{
		Combo:       s.v.GetString("combo"),
		Provider:    s.v.GetString("provider"),
		Model:       s.v.GetString("model"),
		Language:    s.v.GetString("language"),
		Format:      s.v.GetString("format"),
		Device:      s.v.GetString("device"),
		MinDuration: time.Duration(s.v.GetInt("min_duration_ms")) * time.Millisecond,
	}
	if s.overrides.Combo != "" {
		c.Combo = s.overrides.Combo
	}
	if s.overrides.Provider != "" {
		c.Provider = s.overrides.Provider
	}
	if s.overrides.Model != "" {
		c.Model = s.overrides.Model
	}
	if s.overrides.Language != "" {
		c.Language = s.overrides.Language
	}
	if s.overrides.Format != "" {
		c.Format = s.overrides.Format
	}
	if s.overrides.Device != "" {
		c.Device = s.overrides.Device
	}
	return c
}

// Current returns the live config.
func (s *Store) Current() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur
}

// Snapshot implements pipeline.ConfigSource. The credential is resolved here
// so an in-flight request is never affected by a later key change.
func (s *Store) Snapshot() pipeline.ProviderConfig {
	c := s.Current()
	return pipeline.ProviderConfig{
		Provider:   c.Provider,
		Model:      c.Model,
		Language:   c.Language,
		Format:     c.Format,
		Credential: Credential(c.Provider),
	}
}

// Subscribe registers a handler for live config reloads. Handlers run on the
// watcher goroutine and must not block.
func (s *Store) Subscribe(h func(Config)) {
	s.mu.Lock()
	s.onChange = append(s.onChange, h)
	s.mu.Unlock()
}

// Credential resolves the API key for a provider from the environment.
// Empty means not configured; the dispatcher reports that as no_credential
// without a network call.
func Credential(provider string) string {
	switch provider {
	case "gemini":
		if key := os.Getenv("GEMINI_API_KEY"); key != "" {
			return key
		}
		return os.Getenv("GOOGLE_API_KEY")
	case "elevenlabs":
		return os.Getenv("ELEVENLABS_API_KEY")
	case "groq":
		return os.Getenv("GROQ_API_KEY")
	default:
		return ""
	}
}

func configDir() string {
	if base, err := os.UserConfigDir(); err == nil {
		return filepath.Join(base, "dikt")
	}
	return "."
}
