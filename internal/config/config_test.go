package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv unsets every variable Load reads for the duration of the test
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		FileEnv, "PORT", "LOG_LEVEL", "REDIS_ADDR", "DATABASE_URL", "SESSION_LIFETIME",
		"GUIDANCE_BACKEND", "GUIDANCE_TIMEOUT", "GEMINI_API_KEY", "GEMINI_MODEL",
		"OPENAI_API_KEY", "SPEECH_BACKEND", "SPEECH_FRAME_INTERVAL",
		"STORE_BACKEND", "STORE_DIR", "STORE_VALKEY_ADDR", "KAFKA_BROKERS", "KAFKA_TOPIC",
		"DIAGNOSTICS_ENABLED",
	} {
		t.Setenv(key, "")
		_ = os.Unsetenv(key)
	}
	t.Setenv("HOME", t.TempDir())
}

func TestLoad(t *testing.T) {
	clearEnv(t)
	t.Setenv("GEMINI_API_KEY", "test_key")
	t.Setenv("PORT", "9090")
	t.Setenv("SPEECH_FRAME_INTERVAL", "250ms")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "test_key", cfg.Gemini.APIKey)
	assert.Equal(t, "gemini-2.0-flash", cfg.Gemini.Model)
	assert.Equal(t, 250*time.Millisecond, cfg.Speech.FrameInterval)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.HasGemini())
	assert.False(t, cfg.HasOpenAI())
	assert.True(t, cfg.HasKafka())
	assert.Equal(t, StoreFile, cfg.Store.Backend)
}

func TestLoadFileThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "voicept.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: "7000"
guidance:
  backend: openai
  timeout: 45s
openai:
  apiKey: from-file
  model: gpt-4o
speech:
  backend: none
store:
  backend: sqlite
  dir: /tmp/voicept
`), 0o600))
	t.Setenv(FileEnv, path)
	t.Setenv("OPENAI_MODEL", "gpt-4.1-mini")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "7000", cfg.Port)
	assert.Equal(t, BackendOpenAI, cfg.Guidance.Backend)
	assert.Equal(t, 45*time.Second, cfg.Guidance.Timeout)
	assert.Equal(t, "from-file", cfg.OpenAI.APIKey)
	assert.Equal(t, "gpt-4.1-mini", cfg.OpenAI.Model, "env overrides file")
	assert.Equal(t, BackendNone, cfg.Speech.Backend)
	assert.Equal(t, StoreSQLite, cfg.Store.Backend)
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)
	t.Setenv(FileEnv, filepath.Join(t.TempDir(), "nope.yaml"))

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadInvalidDuration(t *testing.T) {
	clearEnv(t)
	t.Setenv("GEMINI_API_KEY", "k")
	t.Setenv("SESSION_LIFETIME", "forever")

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"missing gemini key", func(c *Config) { c.Gemini.APIKey = "" }, "GEMINI_API_KEY"},
		{"openai without key", func(c *Config) { c.Guidance.Backend = BackendOpenAI }, "OPENAI_API_KEY"},
		{"unknown guidance backend", func(c *Config) { c.Guidance.Backend = "llama" }, "GUIDANCE_BACKEND"},
		{"unknown speech backend", func(c *Config) { c.Speech.Backend = "espeak" }, "SPEECH_BACKEND"},
		{"no speech is fine", func(c *Config) { c.Speech.Backend = BackendNone }, ""},
		{"valkey without addr", func(c *Config) { c.Store.Backend = StoreValkey }, "STORE_VALKEY_ADDR"},
		{"postgres without url", func(c *Config) { c.Store.Backend = StorePostgres }, "DATABASE_URL"},
		{"unknown store", func(c *Config) { c.Store.Backend = "s3" }, "STORE_BACKEND"},
		{"diagnostics without redis", func(c *Config) { c.Diagnostics.Enabled = true; c.RedisAddr = "" }, "REDIS_ADDR"},
		{"negative timeout", func(c *Config) { c.Guidance.Timeout = -time.Second }, "GUIDANCE_TIMEOUT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Gemini.APIKey = "k"
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadWorker(t *testing.T) {
	clearEnv(t)

	_, err := LoadWorker()
	assert.ErrorContains(t, err, "DATABASE_URL")

	t.Setenv("DATABASE_URL", "postgres://localhost/voicept")
	cfg, err := LoadWorker()
	require.NoError(t, err)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.False(t, cfg.HasGemini(), "no api key needed")
}
