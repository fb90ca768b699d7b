package application

import (
	"errors"
	"fmt"
	"strings"
)

// Authentication error taxonomy. Transient fetch errors stay unclassified
// and are retried on the next tick; these sentinels are surfaced to the
// configuration layer instead.
var (
	// ErrInvalidAuth means the service rejected the credentials; the user
	// must fix them.
	ErrInvalidAuth = errors.New("invalid authentication")
	// ErrMFARequired means the service demands a one-time code and no MFA
	// secret is configured to answer it.
	ErrMFARequired = errors.New("multi-factor authentication required")
	// ErrRateLimited means the service throttled the request. The regular
	// poll interval is sufficient backoff.
	ErrRateLimited = errors.New("rate limited")
	// ErrAuthExhausted means re-authentication failed; polling stops until
	// the instance is reconfigured.
	ErrAuthExhausted = errors.New("authentication exhausted")
)

// Marker substrings per error kind, matched in order: MFA first, rate
// limit second, general auth rejection last. The sets overlap (for
// example "authentication" appears in several vendor messages); the
// precedence is inherited from the integration this replaces and must not
// be reordered without checking real vendor responses.
var (
	mfaMarkers  = []string{"mfa", "multi-factor", "multi factor", "one time password", "totp"}
	rateMarkers = []string{"429", "too many requests", "rate limit", "throttled"}
	authMarkers = []string{"401", "403", "unauthorized", "forbidden", "invalid password", "credentials", "authentication"}
)

// ClassifyAuthError maps a remote-service failure onto the error taxonomy
// by matching message substrings; the Monarch API exposes no structured
// error codes, so this is the single place the heuristic lives. Errors
// carrying no known marker are returned unchanged and treated as
// transient.
func ClassifyAuthError(err error) error {
	if err == nil {
		return nil
	}

	msg := strings.ToLower(err.Error())
	switch {
	case containsAny(msg, mfaMarkers):
		return fmt.Errorf("%w: %v", ErrMFARequired, err)
	case containsAny(msg, rateMarkers):
		return fmt.Errorf("%w: %v", ErrRateLimited, err)
	case containsAny(msg, authMarkers):
		return fmt.Errorf("%w: %v", ErrInvalidAuth, err)
	}

	return err
}

// isAuthRejection reports whether err reads as a dead session or rejected
// credentials, i.e. a failure that warrants one re-authentication attempt.
// Rate limiting is excluded: the next scheduled tick is backoff enough.
func isAuthRejection(err error) bool {
	classified := ClassifyAuthError(err)
	return errors.Is(classified, ErrInvalidAuth) || errors.Is(classified, ErrMFARequired)
}

func containsAny(msg string, markers []string) bool {
	for _, marker := range markers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
