package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/pquerna/otp/totp"
	"golang.org/x/sync/singleflight"

	"monarchwatch/internal/domain/model"
	"monarchwatch/internal/domain/port/driven"
)

// reauthWindow is the minimum spacing between live re-authentication
// attempts for one configured instance.
const reauthWindow = 60 * time.Second

// ClientFactory builds a fresh, unauthenticated Monarch client.
type ClientFactory func() driven.MonarchClient

// AuthService owns the session lifecycle: bootstrap from the persisted
// blob, password and MFA login, session validation, and rate-limited
// re-authentication.
type AuthService struct {
	creds    model.Credentials
	factory  ClientFactory
	provider *ClientProvider
	sessions driven.SessionStore

	reauth singleflight.Group

	mu          sync.Mutex
	lastAttempt time.Time
	lastErr     error

	// Test hooks.
	now      func() time.Time
	totpCode func(secret string, t time.Time) (string, error)
}

// NewAuthService creates an AuthService with all required dependencies.
func NewAuthService(
	creds model.Credentials,
	factory ClientFactory,
	provider *ClientProvider,
	sessions driven.SessionStore,
) *AuthService {
	return &AuthService{
		creds:    creds,
		factory:  factory,
		provider: provider,
		sessions: sessions,
		now:      time.Now,
		totpCode: totp.GenerateCode,
	}
}

// Bootstrap restores the persisted session when one exists and still
// validates, and falls back to a fresh login otherwise. A failed load is
// never fatal; it only forces the login path.
func (s *AuthService) Bootstrap(ctx context.Context) error {
	blob, err := s.sessions.Load(ctx)
	switch {
	case errors.Is(err, driven.ErrSessionNotFound):
		slog.Info("no persisted session, performing fresh login")
	case err != nil:
		slog.Warn("session load failed, performing fresh login", "error", err)
	case len(blob) > 0:
		client := s.factory()
		client.SetToken(string(blob))
		if s.validateClient(ctx, client) {
			s.provider.Replace(client)
			slog.Info("restored persisted session")
			return nil
		}
		slog.Info("persisted session rejected, performing fresh login")
	}

	return s.Login(ctx)
}

// Login performs a password login on a fresh client. An MFA challenge is
// answered automatically with a derived one-time code when an MFA secret
// is configured; otherwise ErrMFARequired is returned for the
// configuration layer to surface. The authenticated client replaces the
// current one only after login succeeds.
func (s *AuthService) Login(ctx context.Context) error {
	client := s.factory()

	err := client.Login(ctx, s.creds.Email, s.creds.Password, "")
	if err != nil {
		classified := ClassifyAuthError(err)
		if !errors.Is(classified, ErrMFARequired) {
			return classified
		}
		if !s.creds.HasMFASecret() {
			return classified
		}

		code, cerr := s.totpCode(s.creds.MFASecret, s.now())
		if cerr != nil {
			return fmt.Errorf("derive one-time code: %w", cerr)
		}
		if merr := client.MultiFactorAuthenticate(ctx, s.creds.Email, s.creds.Password, code); merr != nil {
			return ClassifyAuthError(merr)
		}
	}

	s.installSession(ctx, client)
	return nil
}

// LoginWithMFACode completes an MFA challenge with a user-supplied
// one-time code.
func (s *AuthService) LoginWithMFACode(ctx context.Context, code string) error {
	client := s.factory()

	if err := client.MultiFactorAuthenticate(ctx, s.creds.Email, s.creds.Password, code); err != nil {
		return ClassifyAuthError(err)
	}

	s.installSession(ctx, client)
	return nil
}

// Validate probes whether the current session is still live with one
// lightweight authenticated call. Any failure reads as "invalid"; the
// probe has no side effects and never returns an error.
func (s *AuthService) Validate(ctx context.Context) bool {
	client := s.provider.Get()
	if client == nil {
		return false
	}
	return s.validateClient(ctx, client)
}

func (s *AuthService) validateClient(ctx context.Context, client driven.MonarchClient) bool {
	return client.GetSubscriptionDetails(ctx) == nil
}

// Reauthenticate performs at most one live login per 60-second window, no
// matter how many callers race into it. Concurrent callers share a single
// in-flight attempt via singleflight; a caller arriving inside the window
// after a finished attempt gets that attempt's result back immediately.
func (s *AuthService) Reauthenticate(ctx context.Context) error {
	_, err, _ := s.reauth.Do("reauth", func() (any, error) {
		s.mu.Lock()
		if !s.lastAttempt.IsZero() && s.now().Sub(s.lastAttempt) < reauthWindow {
			err := s.lastErr
			s.mu.Unlock()
			slog.Debug("re-authentication short-circuited inside window", "error", err)
			return nil, err
		}
		s.mu.Unlock()

		slog.Info("re-authenticating")
		err := s.Login(ctx)

		s.mu.Lock()
		s.lastAttempt = s.now()
		s.lastErr = err
		s.mu.Unlock()

		return nil, err
	})
	return err
}

// installSession publishes the authenticated client and persists its
// session token. The previous client is discarded only here, after the
// replacement is in place. Persist failures are logged, not returned.
func (s *AuthService) installSession(ctx context.Context, client driven.MonarchClient) {
	s.provider.Replace(client)

	if err := s.sessions.Save(ctx, []byte(client.Token())); err != nil {
		slog.Error("session save failed", "error", err)
	}
}
