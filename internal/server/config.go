// Package server provides configuration helpers that define runtime defaults,
// validation, and environment parsing for the memory server.
package server

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// RateLimitConfig defines the parameters for per-connection message rate limiting.
type RateLimitConfig struct {
	Burst          int
	RefillInterval time.Duration
}

// GameConfig holds the session bootstrap parameters and pacing delays.
type GameConfig struct {
	RequiredPlayers int
	PairsCount      int
	// ResolveDelay lets clients finish the second card's reveal animation.
	ResolveDelay time.Duration
	// GameOverDelay separates the congratulation from the new game prompt.
	GameOverDelay time.Duration
	// ReadyTimeout abandons an unanswered restart vote. Zero disables it.
	ReadyTimeout time.Duration
	// Seed fixes the shuffle. Zero seeds from the clock.
	Seed uint64
}

// Config holds the server configuration settings including security controls.
type Config struct {
	Port           string
	Path           string
	AllowedOrigins []string
	MaxMessageSize int64
	RateLimit      RateLimitConfig
	Game           GameConfig
	// NumericActionTypes writes actionType as its enum ordinal in server
	// frames, for desktop clients that cannot read the name.
	NumericActionTypes bool
}

func defaultConfig() Config {
	return Config{
		Port: ":5000",
		Path: "/",
		AllowedOrigins: []string{
			"http://localhost:5000",
		},
		MaxMessageSize: 4096,
		RateLimit: RateLimitConfig{
			Burst:          10,
			RefillInterval: time.Second,
		},
		Game: GameConfig{
			RequiredPlayers: 2,
			PairsCount:      8,
			ResolveDelay:    1200 * time.Millisecond,
			GameOverDelay:   1000 * time.Millisecond,
			ReadyTimeout:    2 * time.Minute,
		},
	}
}

// sanitize fills unset values with defaults.
func (c Config) sanitize() Config {
	def := defaultConfig()

	if c.Port == "" {
		c.Port = def.Port
	}
	if !strings.HasPrefix(c.Path, "/") {
		c.Path = "/" + c.Path
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = def.MaxMessageSize
	}
	if c.RateLimit.Burst <= 0 {
		c.RateLimit.Burst = def.RateLimit.Burst
	}
	if c.RateLimit.RefillInterval <= 0 {
		c.RateLimit.RefillInterval = def.RateLimit.RefillInterval
	}
	if c.Game.ResolveDelay < 0 {
		c.Game.ResolveDelay = 0
	}
	if c.Game.GameOverDelay < 0 {
		c.Game.GameOverDelay = 0
	}
	if c.Game.ReadyTimeout < 0 {
		c.Game.ReadyTimeout = 0
	}
	c.AllowedOrigins = append([]string(nil), c.AllowedOrigins...)
	return c
}

// Validate rejects configurations a session cannot be played with.
func (c *Config) Validate() error {
	var errs []error
	if c.Game.RequiredPlayers < 1 {
		errs = append(errs, fmt.Errorf("required players must be at least 1, got %d", c.Game.RequiredPlayers))
	}
	if c.Game.PairsCount < 1 {
		errs = append(errs, fmt.Errorf("pairs count must be at least 1, got %d", c.Game.PairsCount))
	}
	return errors.Join(errs...)
}

// NewConfig creates a Config instance populated with default values for all settings.
func NewConfig() *Config {
	cfg := defaultConfig()
	return &cfg
}

// NewConfigFromEnv creates a Config instance from environment variables.
// Falls back to default values if environment variables are not set.
func NewConfigFromEnv() *Config {
	cfg := defaultConfig()

	if port := os.Getenv("SERVER_PORT"); port != "" {
		cfg.Port = port
	}

	if path := os.Getenv("WS_PATH"); path != "" {
		cfg.Path = path
	}

	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		cfg.AllowedOrigins = parseOrigins(origins)
	}

	if maxSize := os.Getenv("MAX_MESSAGE_SIZE"); maxSize != "" {
		cfg.MaxMessageSize = parseMaxMessageSize(maxSize, cfg.MaxMessageSize)
	}

	if burst := os.Getenv("RATE_LIMIT_BURST"); burst != "" {
		cfg.RateLimit.Burst = parseIntValue(burst, cfg.RateLimit.Burst)
	}

	if interval := os.Getenv("RATE_LIMIT_REFILL_INTERVAL"); interval != "" {
		cfg.RateLimit.RefillInterval = parseRefillInterval(interval, cfg.RateLimit.RefillInterval)
	}

	if players := os.Getenv("REQUIRED_PLAYERS"); players != "" {
		cfg.Game.RequiredPlayers = parseIntValue(players, cfg.Game.RequiredPlayers)
	}

	if pairs := os.Getenv("PAIRS_COUNT"); pairs != "" {
		cfg.Game.PairsCount = parseIntValue(pairs, cfg.Game.PairsCount)
	}

	if timeout := os.Getenv("READY_TIMEOUT"); timeout != "" {
		cfg.Game.ReadyTimeout = parseDuration(timeout, cfg.Game.ReadyTimeout)
	}

	if numeric := os.Getenv("NUMERIC_ACTION_TYPES"); numeric != "" {
		cfg.NumericActionTypes = parseBool(numeric, cfg.NumericActionTypes)
	}

	return &cfg
}

func parseOrigins(origins string) []string {
	parts := strings.Split(origins, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func parseMaxMessageSize(value string, defaultValue int64) int64 {
	if size, err := strconv.ParseInt(value, 10, 64); err == nil && size > 0 {
		return size
	}
	return defaultValue
}

func parseIntValue(value string, defaultValue int) int {
	if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
		return parsed
	}
	return defaultValue
}

func parseRefillInterval(value string, defaultValue time.Duration) time.Duration {
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return defaultValue
}

// parseDuration accepts Go durations ("90s") and "0" to disable.
func parseDuration(value string, defaultValue time.Duration) time.Duration {
	if d, err := time.ParseDuration(value); err == nil && d >= 0 {
		return d
	}
	return defaultValue
}

func parseBool(value string, defaultValue bool) bool {
	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}
	return defaultValue
}
