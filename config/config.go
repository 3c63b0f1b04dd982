package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the server settings
type Config struct {
	Port           int
	AllowedOrigins []string
	EvictAfter     time.Duration
	SendBuffer     int
	RateLimit      float64
	RateBurst      int
	LogLevel       string
	LogFormat      string
	GinMode        string
}

// Default returns the settings used when neither a flag nor an env
// variable is given.
func Default() Config {
	return Config{
		Port:       8080,
		EvictAfter: 5 * time.Minute,
		SendBuffer: 64,
		RateLimit:  20,
		RateBurst:  40,
		LogLevel:   "info",
		LogFormat:  "console",
		GinMode:    "release",
	}
}

// Parse reads flags from args, falling back to environment variables and
// then to Default.
func Parse(args []string) (Config, error) {
	var cfg Config
	var origins string

	fs := flag.NewFlagSet("scrum-poker", flag.ContinueOnError)
	fs.IntVar(&cfg.Port, "p", 0, "Server port")
	fs.StringVar(&origins, "origins", "", "Comma separated list of allowed origins (empty allows all)")
	fs.DurationVar(&cfg.EvictAfter, "evict-after", 0, "How long a disconnected participant keeps their seat")
	fs.IntVar(&cfg.SendBuffer, "send-buffer", 0, "Outbound messages buffered per connection")
	fs.Float64Var(&cfg.RateLimit, "rate", 0, "Inbound messages per second per connection")
	fs.IntVar(&cfg.RateBurst, "burst", 0, "Inbound message burst per connection")
	fs.StringVar(&cfg.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	fs.StringVar(&cfg.LogFormat, "log-format", "", "Log format (console or json)")
	fs.StringVar(&cfg.GinMode, "gin-mode", "", "Gin mode (debug, release, test)")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	def := Default()
	var err error

	if cfg.Port == 0 {
		if cfg.Port, err = envInt("PORT", def.Port); err != nil {
			return Config{}, err
		}
	}
	if origins == "" {
		origins = os.Getenv("ALLOWED_ORIGINS")
	}
	cfg.AllowedOrigins = splitList(origins)

	if cfg.EvictAfter == 0 {
		if cfg.EvictAfter, err = envDuration("EVICT_AFTER", def.EvictAfter); err != nil {
			return Config{}, err
		}
	}
	if cfg.SendBuffer == 0 {
		if cfg.SendBuffer, err = envInt("SEND_BUFFER", def.SendBuffer); err != nil {
			return Config{}, err
		}
	}
	if cfg.RateLimit == 0 {
		if cfg.RateLimit, err = envFloat("RATE_LIMIT", def.RateLimit); err != nil {
			return Config{}, err
		}
	}
	if cfg.RateBurst == 0 {
		if cfg.RateBurst, err = envInt("RATE_BURST", def.RateBurst); err != nil {
			return Config{}, err
		}
	}
	cfg.LogLevel = firstNonEmpty(cfg.LogLevel, os.Getenv("LOG_LEVEL"), def.LogLevel)
	cfg.LogFormat = firstNonEmpty(cfg.LogFormat, os.Getenv("LOG_FORMAT"), def.LogFormat)
	cfg.GinMode = firstNonEmpty(cfg.GinMode, os.Getenv("GIN_MODE"), def.GinMode)

	return cfg, cfg.Validate()
}

// Validate checks value ranges
func (c Config) Validate() error {
	switch {
	case c.Port < 1 || c.Port > 65535:
		return fmt.Errorf("invalid port %d", c.Port)
	case c.EvictAfter <= 0:
		return errors.New("evict-after must be positive")
	case c.SendBuffer < 1:
		return errors.New("send-buffer must be at least 1")
	case c.RateLimit <= 0:
		return errors.New("rate must be positive")
	case c.RateBurst < 1:
		return errors.New("burst must be at least 1")
	}
	switch c.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("invalid log format %q", c.LogFormat)
	}
	return nil
}

func envInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s env variable: %w", key, err)
	}
	return v, nil
}

func envFloat(key string, def float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s env variable: %w", key, err)
	}
	return v, nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s env variable: %w", key, err)
	}
	return v, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
