// Package config handles application configuration from a YAML file and environment variables
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// FileEnv names the optional YAML config file.
const FileEnv = "VOICEPT_CONFIG"

// Config holds all application configuration
type Config struct {
	Port            string        `yaml:"port" env:"PORT"`
	BaseURL         string        `yaml:"baseURL" env:"BASE_URL"`
	LogLevel        string        `yaml:"logLevel" env:"LOG_LEVEL"`
	LogFormat       string        `yaml:"logFormat" env:"LOG_FORMAT"`
	RedisAddr       string        `yaml:"redisAddr" env:"REDIS_ADDR"`
	DatabaseURL     string        `yaml:"databaseURL" env:"DATABASE_URL"`
	SessionLifetime time.Duration `yaml:"sessionLifetime" env:"SESSION_LIFETIME"`

	Guidance    GuidanceConfig    `yaml:"guidance" envPrefix:"GUIDANCE_"`
	Gemini      GeminiConfig      `yaml:"gemini" envPrefix:"GEMINI_"`
	OpenAI      OpenAIConfig      `yaml:"openai" envPrefix:"OPENAI_"`
	Speech      SpeechConfig      `yaml:"speech" envPrefix:"SPEECH_"`
	Store       StoreConfig       `yaml:"store" envPrefix:"STORE_"`
	Kafka       KafkaConfig       `yaml:"kafka" envPrefix:"KAFKA_"`
	Diagnostics DiagnosticsConfig `yaml:"diagnostics" envPrefix:"DIAGNOSTICS_"`
}

// GuidanceConfig selects the text generation backend
type GuidanceConfig struct {
	Backend          string        `yaml:"backend" env:"BACKEND"`
	Timeout          time.Duration `yaml:"timeout" env:"TIMEOUT"`
	InstructionsPath string        `yaml:"instructionsPath" env:"INSTRUCTIONS_PATH"`
}

// GeminiConfig holds Gemini-specific configuration
type GeminiConfig struct {
	APIKey   string `yaml:"apiKey" env:"API_KEY"`
	Endpoint string `yaml:"endpoint" env:"ENDPOINT"`
	Model    string `yaml:"model" env:"MODEL"`
	TTSModel string `yaml:"ttsModel" env:"TTS_MODEL"`
	Voice    string `yaml:"voice" env:"TTS_VOICE"`
}

// OpenAIConfig holds OpenAI-specific configuration
type OpenAIConfig struct {
	APIKey   string `yaml:"apiKey" env:"API_KEY"`
	BaseURL  string `yaml:"baseURL" env:"BASE_URL"`
	Model    string `yaml:"model" env:"MODEL"`
	TTSModel string `yaml:"ttsModel" env:"TTS_MODEL"`
	Voice    string `yaml:"voice" env:"TTS_VOICE"`
}

// SpeechConfig selects the speech synthesizer
type SpeechConfig struct {
	Backend       string        `yaml:"backend" env:"BACKEND"`
	FrameInterval time.Duration `yaml:"frameInterval" env:"FRAME_INTERVAL"`
}

// StoreConfig selects where profiles and programs are cached
type StoreConfig struct {
	Backend    string `yaml:"backend" env:"BACKEND"`
	Dir        string `yaml:"dir" env:"DIR"`
	ValkeyAddr string `yaml:"valkeyAddr" env:"VALKEY_ADDR"`
}

// KafkaConfig enables the phase event stream when brokers are set
type KafkaConfig struct {
	Brokers []string `yaml:"brokers" env:"BROKERS" envSeparator:","`
	Topic   string   `yaml:"topic" env:"TOPIC"`
}

// DiagnosticsConfig enables queueing failures for the worker
type DiagnosticsConfig struct {
	Enabled bool `yaml:"enabled" env:"ENABLED"`
}

// Backend names.
const (
	BackendGemini     = "gemini"
	BackendOpenAI     = "openai"
	BackendNone       = "none"
	StoreFile         = "file"
	StoreSQLite       = "sqlite"
	StoreValkey       = "valkey"
	StorePostgres     = "postgres"
	DefaultKafkaTopic = "voicept.narration"
)

// Default returns the configuration used before any file or env override.
func Default() Config {
	dir := ".voicept"
	if home, err := os.UserHomeDir(); err == nil {
		dir = filepath.Join(home, ".voicept")
	}
	return Config{
		Port:            "8080",
		BaseURL:         "http://localhost:8080",
		LogLevel:        "info",
		LogFormat:       "json",
		RedisAddr:       "localhost:6379",
		SessionLifetime: 12 * time.Hour,
		Guidance:        GuidanceConfig{Backend: BackendGemini},
		Gemini: GeminiConfig{
			Model:    "gemini-2.0-flash",
			TTSModel: "gemini-2.5-flash-preview-tts",
			Voice:    "Kore",
		},
		OpenAI: OpenAIConfig{
			Model:    "gpt-4o-mini",
			TTSModel: "gpt-4o-mini-tts",
			Voice:    "shimmer",
		},
		Speech: SpeechConfig{Backend: BackendGemini, FrameInterval: 100 * time.Millisecond},
		Store:  StoreConfig{Backend: StoreFile, Dir: dir},
		Kafka:  KafkaConfig{Topic: DefaultKafkaTopic},
	}
}

// Load reads the YAML file named by VOICEPT_CONFIG (if any), then applies
// environment variables, then validates.
func Load() (*Config, error) {
	cfg, err := Read()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadWorker loads the same sources but only checks what the diagnostics
// worker needs.
func LoadWorker() (*Config, error) {
	cfg, err := Read()
	if err != nil {
		return nil, err
	}
	var errs []error
	if cfg.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required by the worker"))
	}
	if cfg.RedisAddr == "" {
		errs = append(errs, errors.New("REDIS_ADDR is required by the worker"))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read loads defaults, the optional file and the environment without validating.
func Read() (*Config, error) {
	cfg := Default()

	if path := os.Getenv(FileEnv); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return nil, err
		}
	}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	return &cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// HasGemini returns true if a Gemini API key is configured
func (c *Config) HasGemini() bool {
	return c.Gemini.APIKey != ""
}

// HasOpenAI returns true if an OpenAI API key is configured
func (c *Config) HasOpenAI() bool {
	return c.OpenAI.APIKey != ""
}

// HasKafka returns true if the phase event stream is configured
func (c *Config) HasKafka() bool {
	return len(c.Kafka.Brokers) > 0 && c.Kafka.Topic != ""
}

// Validate ensures the selected backends are known and have credentials
func (c *Config) Validate() error {
	var errs []error

	switch c.Guidance.Backend {
	case BackendGemini:
		if !c.HasGemini() {
			errs = append(errs, errors.New("GEMINI_API_KEY is required for the gemini guidance backend"))
		}
	case BackendOpenAI:
		if !c.HasOpenAI() {
			errs = append(errs, errors.New("OPENAI_API_KEY is required for the openai guidance backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown GUIDANCE_BACKEND %q", c.Guidance.Backend))
	}

	switch c.Speech.Backend {
	case BackendGemini:
		if !c.HasGemini() {
			errs = append(errs, errors.New("GEMINI_API_KEY is required for the gemini speech backend"))
		}
	case BackendOpenAI:
		if !c.HasOpenAI() {
			errs = append(errs, errors.New("OPENAI_API_KEY is required for the openai speech backend"))
		}
	case BackendNone:
	default:
		errs = append(errs, fmt.Errorf("unknown SPEECH_BACKEND %q", c.Speech.Backend))
	}

	switch c.Store.Backend {
	case StoreFile, StoreSQLite:
		if c.Store.Dir == "" {
			errs = append(errs, errors.New("STORE_DIR is required for file and sqlite stores"))
		}
	case StoreValkey:
		if c.Store.ValkeyAddr == "" {
			errs = append(errs, errors.New("STORE_VALKEY_ADDR is required for the valkey store"))
		}
	case StorePostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_BACKEND %q", c.Store.Backend))
	}

	if c.Diagnostics.Enabled && c.RedisAddr == "" {
		errs = append(errs, errors.New("REDIS_ADDR is required when diagnostics are enabled"))
	}
	if c.Guidance.Timeout < 0 {
		errs = append(errs, errors.New("GUIDANCE_TIMEOUT must not be negative"))
	}
	if c.SessionLifetime <= 0 {
		errs = append(errs, errors.New("SESSION_LIFETIME must be positive"))
	}

	return errors.Join(errs...)
}
