// Package monarch implements the MonarchClient port against the Monarch
// Money HTTP API.
package monarch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"monarchwatch/internal/domain/port/driven"
)

const (
	defaultBaseURL = "https://api.monarchmoney.com"
	loginPath      = "/auth/login/"
	graphqlPath    = "/graphql"

	clientPlatform = "web"
)

// Compile-time interface satisfaction check.
var _ driven.MonarchClient = (*Client)(nil)

// Client implements the driven.MonarchClient port. Logins go through the
// auth endpoint; all data fetches go through GraphQL. The session token is
// guarded by a mutex because the poller reads it while re-authentication
// replaces it.
type Client struct {
	httpClient *http.Client
	baseURL    string
	deviceUUID string

	mu    sync.RWMutex
	token string
}

// NewClient creates a Client against the production Monarch API.
func NewClient() *Client {
	return &Client{
		// Safety-net timeout alongside per-cycle context deadlines.
		httpClient: &http.Client{Timeout: 60 * time.Second},
		baseURL:    defaultBaseURL,
		deviceUUID: uuid.NewString(),
	}
}

// NewClientWithBaseURL creates a Client with a custom http.Client and base
// URL. This constructor is intended for testing, allowing injection of an
// httptest server.
func NewClientWithBaseURL(httpClient *http.Client, baseURL string) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		deviceUUID: uuid.NewString(),
	}
}

// Token returns the current session token, or "" when unauthenticated.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// SetToken installs a session token restored from the session store.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// loginRequest is the JSON body for the Monarch auth endpoint. The totp
// field answers an MFA challenge in the same request when present.
type loginRequest struct {
	Username      string `json:"username"`
	Password      string `json:"password"`
	TrustedDevice bool   `json:"trusted_device"`
	SupportsMFA   bool   `json:"supports_mfa"`
	TOTP          string `json:"totp,omitempty"`
}

type loginResponse struct {
	Token string `json:"token"`
}

// Login performs a password login, optionally answering an MFA challenge
// with the given one-time code. On success the returned session token is
// installed on the client.
func (c *Client) Login(ctx context.Context, email, password, totp string) error {
	return c.authenticate(ctx, loginRequest{
		Username:      email,
		Password:      password,
		TrustedDevice: true,
		SupportsMFA:   true,
		TOTP:          totp,
	})
}

// MultiFactorAuthenticate completes a pending MFA challenge with a
// one-time code.
func (c *Client) MultiFactorAuthenticate(ctx context.Context, email, password, code string) error {
	return c.authenticate(ctx, loginRequest{
		Username:      email,
		Password:      password,
		TrustedDevice: true,
		SupportsMFA:   true,
		TOTP:          code,
	})
}

func (c *Client) authenticate(ctx context.Context, reqBody loginRequest) error {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal login request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+loginPath, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Client-Platform", clientPlatform)
	req.Header.Set("device-uuid", c.deviceUUID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("monarch login: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read login response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newAPIError(resp.StatusCode, respBody)
	}

	var lr loginResponse
	if err := json.Unmarshal(respBody, &lr); err != nil {
		return fmt.Errorf("decode login response: %w", err)
	}
	if lr.Token == "" {
		return fmt.Errorf("monarch login: response carried no token")
	}

	c.SetToken(lr.Token)
	return nil
}
