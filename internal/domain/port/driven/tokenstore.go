package driven

import (
	"context"
	"errors"
)

// ErrEncryptionKeyNotSet is returned by TokenStore operations when
// LENDDESK_SECRET_KEY has not been configured. Sessions then live in memory
// only and do not survive a restart.
var ErrEncryptionKeyNotSet = errors.New("encryption key not configured: set LENDDESK_SECRET_KEY")

// TokenStore defines the driven port for bearer-token persistence. The
// adapter layer owns encryption; this interface operates on plaintext tokens
// at the domain boundary.
type TokenStore interface {
	// Save stores or replaces the persisted bearer token.
	Save(ctx context.Context, token string) error

	// Load retrieves the persisted bearer token. Returns ("", nil) when none
	// is stored.
	Load(ctx context.Context) (string, error)

	// Clear removes the persisted bearer token. Clearing an empty store is
	// not an error.
	Clear(ctx context.Context) error
}
