package application

import (
	"sync"

	"monarchwatch/internal/domain/port/driven"
)

// ClientProvider holds the current authenticated Monarch client behind a
// read-write mutex. The poller reads through Get; the auth service swaps
// in a freshly authenticated client via Replace, and only then is the
// previous client discarded. This keeps the handle replacement atomic.
type ClientProvider struct {
	mu     sync.RWMutex
	client driven.MonarchClient
}

// NewClientProvider creates a provider with the given initial client.
// client may be nil when no session is available yet at startup.
func NewClientProvider(client driven.MonarchClient) *ClientProvider {
	return &ClientProvider{client: client}
}

// Get returns the current client. Callers must check for nil if the
// provider was created before any authentication happened.
func (p *ClientProvider) Get() driven.MonarchClient {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.client
}

// Replace swaps the current client with a new one. The next caller of
// Get() receives the new client.
func (p *ClientProvider) Replace(client driven.MonarchClient) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.client = client
}

// HasClient returns true if a non-nil client is currently held.
func (p *ClientProvider) HasClient() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.client != nil
}
