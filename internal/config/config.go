// Package config handles loading and validating the phoenix configuration.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config is the root configuration for phoenix.
type Config struct {
	Engine  EngineConfig  `mapstructure:"engine"`
	Audio   AudioConfig   `mapstructure:"audio"`
	Voices  VoicesConfig  `mapstructure:"voices"`
	History HistoryConfig `mapstructure:"history"`
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// EngineConfig selects and configures the synthesis backend.
type EngineConfig struct {
	Backend string       `mapstructure:"backend"` // "kokoro" or "piper"
	Kokoro  KokoroConfig `mapstructure:"kokoro"`
	Piper   PiperConfig  `mapstructure:"piper"`
}

// KokoroConfig holds settings for a Kokoro OpenAI-compatible speech server.
type KokoroConfig struct {
	Endpoint string  `mapstructure:"endpoint"` // base URL including /v1
	APIKey   string  `mapstructure:"api_key"`  // optional; local servers ignore it
	Model    string  `mapstructure:"model"`
	Speed    float64 `mapstructure:"speed"`
}

// PiperConfig holds Piper TTS settings (Wyoming protocol).
type PiperConfig struct {
	Endpoint string `mapstructure:"endpoint"` // Wyoming TCP endpoint (host:port)
}

// AudioConfig holds playback settings.
type AudioConfig struct {
	QueueSize int `mapstructure:"queue_size"` // max utterances waiting for the device
}

// VoicesConfig locates the voice catalog and the preference store.
type VoicesConfig struct {
	File      string `mapstructure:"file"`       // newline-delimited voice names
	PrefsFile string `mapstructure:"prefs_file"` // persisted voice1/voice2/blend
}

// HistoryConfig holds the utterance log settings.
type HistoryConfig struct {
	File   string `mapstructure:"file"`
	Replay int    `mapstructure:"replay"` // entries replayed into the UI on startup
}

// ServerConfig holds the optional headless HTTP API settings.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, text
	File   string `mapstructure:"file"`   // log destination; empty means stderr
}

// Load reads the configuration from file, environment variables, and defaults.
// If configFile is non-empty it is used directly; otherwise the standard
// search order applies: ./phoenix.yaml, ./configs/phoenix.yaml, /etc/phoenix/phoenix.yaml.
func Load(configFile string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("engine.backend", "kokoro")
	v.SetDefault("engine.kokoro.endpoint", "http://localhost:8880/v1")
	v.SetDefault("engine.kokoro.model", "kokoro")
	v.SetDefault("engine.kokoro.speed", 1.0)
	v.SetDefault("engine.piper.endpoint", "localhost:10200")
	v.SetDefault("audio.queue_size", 16)
	v.SetDefault("voices.file", "voices-list.txt")
	v.SetDefault("voices.prefs_file", "phoenix_prefs.json")
	v.SetDefault("history.file", "tts_log.txt")
	v.SetDefault("history.replay", 50)
	v.SetDefault("server.port", 8080)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.file", "")

	// Config file
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("phoenix")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/phoenix")
	}

	// Environment variables: PHOENIX_ENGINE_BACKEND, PHOENIX_SERVER_PORT, etc.
	v.SetEnvPrefix("PHOENIX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (optional — env vars and defaults are sufficient)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		slog.Info("no config file found, using defaults and environment variables")
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	switch cfg.Engine.Backend {
	case "kokoro", "piper":
	default:
		return nil, fmt.Errorf("unknown engine backend %q", cfg.Engine.Backend)
	}

	// Resolve env var references in sensitive fields (e.g., "${KOKORO_API_KEY}")
	cfg.Engine.Kokoro.APIKey = resolveEnvRef(cfg.Engine.Kokoro.APIKey)

	return &cfg, nil
}

// resolveEnvRef replaces "${VAR_NAME}" patterns with the corresponding env var value.
func resolveEnvRef(val string) string {
	if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
		envKey := val[2 : len(val)-1]
		if envVal := os.Getenv(envKey); envVal != "" {
			return envVal
		}
	}
	return val
}

// SetupLogging configures the global slog logger based on config. When a log
// file is configured, logs go there instead of stderr — the TUI owns the
// terminal, so writing log lines to it would corrupt the display.
func SetupLogging(cfg LoggingConfig) error {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var out io.Writer = os.Stderr
	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		out = f
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.ToLower(cfg.Format) == "json" {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	slog.SetDefault(slog.New(handler))
	return nil
}
