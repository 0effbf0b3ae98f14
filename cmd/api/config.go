package main

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// config is read from the environment once at startup.
type config struct {
	Addr          string
	LogLevel      string
	SessionTTL    time.Duration
	MaxSessions   int
	SweepInterval time.Duration
	OTLPLogs      bool
}

func loadConfig() (config, error) {
	cfg := config{
		Addr:     envString("CALCULATOR_ADDR", ":8080"),
		LogLevel: envString("LOG_LEVEL", "info"),
	}

	var err error
	if cfg.SessionTTL, err = envDuration("CALCULATOR_SESSION_TTL", 30*time.Minute); err != nil {
		return config{}, err
	}
	if cfg.MaxSessions, err = envInt("CALCULATOR_MAX_SESSIONS", 1000); err != nil {
		return config{}, err
	}
	if cfg.SweepInterval, err = envDuration("CALCULATOR_SWEEP_INTERVAL", time.Minute); err != nil {
		return config{}, err
	}
	if cfg.OTLPLogs, err = envBool("OTEL_LOGS_ENABLED", false); err != nil {
		return config{}, err
	}

	return cfg, nil
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: must not be negative, got %s", key, v)
	}
	return d, nil
}

func envInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("%s: must not be negative, got %d", key, n)
	}
	return n, nil
}

func envBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}
