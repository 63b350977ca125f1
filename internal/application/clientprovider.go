package application

import (
	"sync"

	"github.com/jcalloway/lenddesk/internal/domain/port/driven"
)

// ClientProvider holds a mutex-protected reference to the current lending API
// client. It breaks the construction cycle between the session service (which
// needs the client to log in) and the gateway (which needs the session as its
// token source), and lets the composition root swap the client at runtime,
// e.g. when the API base URL is reconfigured.
type ClientProvider struct {
	mu     sync.RWMutex
	client driven.LendingClient
}

// NewClientProvider creates a provider with the given initial client.
// client may be nil when the gateway has not been constructed yet.
func NewClientProvider(client driven.LendingClient) *ClientProvider {
	return &ClientProvider{client: client}
}

// Get returns the current client. Callers should check for nil if the
// provider was created empty.
func (p *ClientProvider) Get() driven.LendingClient {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.client
}

// Replace swaps the current client. The next caller of Get receives the new one.
func (p *ClientProvider) Replace(client driven.LendingClient) {
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
