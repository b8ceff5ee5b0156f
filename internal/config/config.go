// Package config reads the process environment once, at startup, into
// an immutable record, and nowhere else: no package in this module
// calls os.Getenv outside this file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the immutable configuration record shared by both the
// Simulator and the Hardware entry points.
type Config struct {
	ActHost string
	ActPort int

	StepPeriod   time.Duration
	ReplyTimeout time.Duration
	TotalSteps   uint64

	LogDir    string
	LogFormat string // "text" | "json"
	LogLevel  string // "debug" | "info" | "warn" | "error"

	MetricsAddr string // empty disables the HTTP metrics listener

	MDNSEnable bool
	MDNSName   string

	TCPStatInterval time.Duration // 0 disables kernel TCP_INFO sampling
}

// ConfigError reports a malformed or out-of-range environment value.
// Wraps the offending key so callers can log it without re-deriving it.
type ConfigError struct {
	Key string
	Err error
}

func (e *ConfigError) Error() string { return fmt.Sprintf("config: %s: %v", e.Key, e.Err) }
func (e *ConfigError) Unwrap() error { return e.Err }

// Load reads the environment into a Config, applying documented
// defaults, and validates it. defaultHost lets the two entry points
// differ (the Simulator defaults to "act"; the Hardware defaults to
// binding "0.0.0.0") without duplicating the rest of the parsing.
func Load(defaultHost string) (Config, error) {
	c := Config{
		ActHost:      defaultHost,
		ActPort:      5001,
		StepPeriod:   10 * time.Millisecond,
		ReplyTimeout: 2 * time.Millisecond,
		TotalSteps:   1000,
		LogDir:       "/app/logs",
		LogFormat:    "text",
		LogLevel:     "info",
		MetricsAddr:  "",
		MDNSEnable:   false,
		MDNSName:     "",
	}

	if v, ok := lookup("ACT_HOST"); ok {
		c.ActHost = v
	}
	if v, ok := lookup("ACT_PORT"); ok {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 65535 {
			return Config{}, &ConfigError{Key: "ACT_PORT", Err: fmt.Errorf("must be a port in 1..65535, got %q", v)}
		}
		c.ActPort = n
	}
	if v, ok := lookup("STEP_MS"); ok {
		d, err := parsePositiveMillis(v)
		if err != nil {
			return Config{}, &ConfigError{Key: "STEP_MS", Err: err}
		}
		c.StepPeriod = d
	}
	if v, ok := lookup("REPLY_TIMEOUT_MS"); ok {
		d, err := parsePositiveMillis(v)
		if err != nil {
			return Config{}, &ConfigError{Key: "REPLY_TIMEOUT_MS", Err: err}
		}
		c.ReplyTimeout = d
	}
	if v, ok := lookup("TOTAL_STEPS"); ok {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil || n == 0 {
			return Config{}, &ConfigError{Key: "TOTAL_STEPS", Err: fmt.Errorf("must be a positive integer, got %q", v)}
		}
		c.TotalSteps = n
	}
	if v, ok := lookup("LOG_DIR"); ok {
		if v == "" {
			return Config{}, &ConfigError{Key: "LOG_DIR", Err: fmt.Errorf("must not be empty")}
		}
		c.LogDir = v
	}
	if v, ok := lookup("LOG_FORMAT"); ok {
		c.LogFormat = v
	}
	if v, ok := lookup("LOG_LEVEL"); ok {
		c.LogLevel = v
	}
	if v, ok := lookup("METRICS_ADDR"); ok {
		c.MetricsAddr = v
	}
	if v, ok := lookup("MDNS_ENABLE"); ok {
		b, err := parseBool(v)
		if err != nil {
			return Config{}, &ConfigError{Key: "MDNS_ENABLE", Err: err}
		}
		c.MDNSEnable = b
	}
	if v, ok := lookup("MDNS_NAME"); ok {
		c.MDNSName = v
	}
	if v, ok := lookup("TCPSTAT_INTERVAL_MS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return Config{}, &ConfigError{Key: "TCPSTAT_INTERVAL_MS", Err: fmt.Errorf("must be >= 0, got %q", v)}
		}
		c.TCPStatInterval = time.Duration(n) * time.Millisecond
	}

	if err := c.validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) validate() error {
	switch c.LogFormat {
	case "text", "json":
	default:
		return &ConfigError{Key: "LOG_FORMAT", Err: fmt.Errorf("must be text or json, got %q", c.LogFormat)}
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return &ConfigError{Key: "LOG_LEVEL", Err: fmt.Errorf("must be debug|info|warn|error, got %q", c.LogLevel)}
	}
	if c.ActHost == "" {
		return &ConfigError{Key: "ACT_HOST", Err: fmt.Errorf("must not be empty")}
	}
	// STEP_MS < REPLY_TIMEOUT_MS is legal but degenerate: the scheduler
	// applies its rules unchanged and this is surfaced only via a
	// startup log line, not a ConfigError.
	return nil
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(v), true
}

func parsePositiveMillis(v string) (time.Duration, error) {
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("must be a positive integer number of milliseconds, got %q", v)
	}
	return time.Duration(n) * time.Millisecond, nil
}

func parseBool(v string) (bool, error) {
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off":
		return false, nil
	default:
		return false, fmt.Errorf("must be a boolean (1/0, true/false, yes/no, on/off), got %q", v)
	}
}
