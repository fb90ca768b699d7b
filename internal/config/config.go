// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Allowed values, in seconds, for the poll interval and the per-cycle
// fetch timeout. Arbitrary values are rejected so a typo cannot hammer
// the Monarch API.
var (
	AllowedPollIntervals = []int{30, 60, 120, 600, 1800, 3600, 21600, 86400}
	AllowedTimeouts      = []int{10, 15, 30, 45, 60}
)

// Defaults.
const (
	DefaultPollInterval = 21600 * time.Second
	DefaultTimeout      = 30 * time.Second
	DefaultListenAddr   = "127.0.0.1:8600"
	DefaultDBPath       = "monarchwatch.db"
	DefaultSessionFile  = ".mm-session"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	Email        string
	Password     string
	MFASecret    string
	PollInterval time.Duration
	Timeout      time.Duration
	ListenAddr   string
	DBPath       string
	SessionFile  string
}

// Load reads configuration from environment variables and returns a validated
// Config. MONARCHWATCH_EMAIL and MONARCHWATCH_PASSWORD are required;
// MONARCHWATCH_MFA_SECRET is optional and enables unattended MFA logins.
// Optional variables with defaults: MONARCHWATCH_POLL_INTERVAL (21600, seconds),
// MONARCHWATCH_TIMEOUT (30, seconds), MONARCHWATCH_LISTEN_ADDR (127.0.0.1:8600),
// MONARCHWATCH_DB_PATH (monarchwatch.db), MONARCHWATCH_SESSION_FILE (.mm-session).
func Load() (*Config, error) {
	email := strings.TrimSpace(os.Getenv("MONARCHWATCH_EMAIL"))
	if email == "" {
		return nil, fmt.Errorf("MONARCHWATCH_EMAIL is required")
	}

	password := os.Getenv("MONARCHWATCH_PASSWORD")
	if password == "" {
		return nil, fmt.Errorf("MONARCHWATCH_PASSWORD is required")
	}

	// Secrets are often pasted with spaces from authenticator setup pages.
	mfaSecret := strings.ReplaceAll(strings.TrimSpace(os.Getenv("MONARCHWATCH_MFA_SECRET")), " ", "")

	pollInterval := DefaultPollInterval
	if v, ok := os.LookupEnv("MONARCHWATCH_POLL_INTERVAL"); ok {
		secs, err := parseAllowedSeconds(v, AllowedPollIntervals)
		if err != nil {
			return nil, fmt.Errorf("MONARCHWATCH_POLL_INTERVAL: %w", err)
		}
		pollInterval = time.Duration(secs) * time.Second
	}

	timeout := DefaultTimeout
	if v, ok := os.LookupEnv("MONARCHWATCH_TIMEOUT"); ok {
		secs, err := parseAllowedSeconds(v, AllowedTimeouts)
		if err != nil {
			return nil, fmt.Errorf("MONARCHWATCH_TIMEOUT: %w", err)
		}
		timeout = time.Duration(secs) * time.Second
	}

	listenAddr := DefaultListenAddr
	if v, ok := os.LookupEnv("MONARCHWATCH_LISTEN_ADDR"); ok {
		listenAddr = v
	}

	dbPath := DefaultDBPath
	if v, ok := os.LookupEnv("MONARCHWATCH_DB_PATH"); ok {
		dbPath = v
	}

	sessionFile := DefaultSessionFile
	if v, ok := os.LookupEnv("MONARCHWATCH_SESSION_FILE"); ok {
		sessionFile = v
	}

	return &Config{
		Email:        email,
		Password:     password,
		MFASecret:    mfaSecret,
		PollInterval: pollInterval,
		Timeout:      timeout,
		ListenAddr:   listenAddr,
		DBPath:       dbPath,
		SessionFile:  sessionFile,
	}, nil
}

func parseAllowedSeconds(v string, allowed []int) (int, error) {
	secs, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("invalid integer %q: %w", v, err)
	}
	if !slices.Contains(allowed, secs) {
		return 0, fmt.Errorf("%d is not one of %v", secs, allowed)
	}
	return secs, nil
}
