// Package application holds the client-side core of LendDesk: the session
// lifecycle and the loan-application wizard state machine. It depends only on
// the domain model and the driven ports.
package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jcalloway/lenddesk/internal/domain/model"
	"github.com/jcalloway/lenddesk/internal/domain/port/driven"
)

// ErrNoClient indicates the lending API client has not been wired yet.
var ErrNoClient = errors.New("lending api client not configured")

// SessionService owns the process-wide authentication state. It holds at most
// one credential, derives identity exclusively by decoding that credential's
// token, and is the gateway's TokenSource: every outbound call reads the
// bearer through it, and authorization failures are funneled back into
// HandleAuthFailure.
//
// Credential state is written only by Authenticate, Deauthenticate and
// eviction (lazy on expiry, eager on auth failure). Readers get snapshots.
type SessionService struct {
	provider *ClientProvider
	store    driven.TokenStore
	logger   *slog.Logger

	mu        sync.Mutex
	cred      model.Credential
	onEvicted func() // redirect-to-login side effect; fired at most once per credential

	now func() time.Time // test seam
}

// Compile-time check: the session is the gateway's token source.
var _ driven.TokenSource = (*SessionService)(nil)

// NewSessionService creates a SessionService. store persists the credential
// across restarts; persistence failures are logged and never fatal.
func NewSessionService(provider *ClientProvider, store driven.TokenStore, logger *slog.Logger) *SessionService {
	return &SessionService{
		provider: provider,
		store:    store,
		logger:   logger,
		now:      time.Now,
	}
}

// SetEvictionHook registers the side effect fired when a credential is
// evicted after an authorization failure. The driving layer uses it to push
// the browser back to the login view. Fired at most once per credential.
func (s *SessionService) SetEvictionHook(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onEvicted = fn
}

// Restore loads the persisted credential at process start. An expired or
// undecodable token is discarded. Running without a persisted token is the
// normal first-launch state, not an error.
func (s *SessionService) Restore(ctx context.Context) {
	token, err := s.store.Load(ctx)
	if err != nil {
		if !errors.Is(err, driven.ErrEncryptionKeyNotSet) {
			s.logger.Warn("could not load persisted session", "error", err)
		}
		return
	}
	if token == "" {
		return
	}

	cred, err := model.ParseCredential(token)
	if err != nil {
		s.logger.Warn("discarding undecodable persisted token", "error", err)
		s.clearPersisted(ctx)
		return
	}
	if !cred.Valid(s.now()) {
		s.logger.Info("persisted session expired, discarding")
		s.clearPersisted(ctx)
		return
	}

	s.mu.Lock()
	s.cred = cred
	s.mu.Unlock()
	s.logger.Info("session restored", "subject", cred.Subject, "expires_at", cred.ExpiresAt)
}

// Authenticate exchanges credentials for a bearer token via the lending API,
// decodes the identity claims from the returned token and stores the
// credential. Returns driven.ErrInvalidCredentials when the server rejects
// the pair.
func (s *SessionService) Authenticate(ctx context.Context, email, password string) (model.Identity, error) {
	client := s.provider.Get()
	if client == nil {
		return model.Identity{}, ErrNoClient
	}

	token, err := client.Login(ctx, email, password)
	if err != nil {
		return model.Identity{}, err
	}

	cred, err := model.ParseCredential(token)
	if err != nil {
		return model.Identity{}, fmt.Errorf("server returned an unusable token: %w", err)
	}

	s.mu.Lock()
	s.cred = cred
	s.mu.Unlock()

	if err := s.store.Save(ctx, token); err != nil && !errors.Is(err, driven.ErrEncryptionKeyNotSet) {
		s.logger.Warn("could not persist session", "error", err)
	}

	s.logger.Info("authenticated", "subject", cred.Subject, "expires_at", cred.ExpiresAt)
	return cred.Identity(), nil
}

// Deauthenticate clears the stored credential. It always succeeds locally;
// there is no server-side logout call to fail.
func (s *SessionService) Deauthenticate(ctx context.Context) {
	s.mu.Lock()
	s.cred = model.Credential{}
	s.mu.Unlock()
	s.clearPersisted(ctx)
	s.logger.Info("deauthenticated")
}

// IsAuthenticated reports whether a valid credential is held. A stored but
// expired credential is treated as absent and evicted as a side effect, so a
// subsequent call returns false without re-checking the stale token.
func (s *SessionService) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cred.Token == "" {
		return false
	}
	if !s.cred.Valid(s.now()) {
		s.cred = model.Credential{}
		s.clearPersisted(context.Background())
		return false
	}
	return true
}

// CurrentIdentity returns the identity decoded from the live credential.
// The second return is false when no valid credential is held.
func (s *SessionService) CurrentIdentity() (model.Identity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cred.Token == "" || !s.cred.Valid(s.now()) {
		return model.Identity{}, false
	}
	return s.cred.Identity(), true
}

// Token returns the current bearer token as a snapshot for a single call, or
// "" when no valid credential is held.
func (s *SessionService) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.cred.Valid(s.now()) {
		return ""
	}
	return s.cred.Token
}

// HandleAuthFailure is called by the gateway after any request comes back
// with an authorization failure. When no credential is held there is nothing
// to recover and the call is a no-op, so concurrent 401s collapse onto a
// single eviction: the first caller clears the credential and fires the
// redirect hook, the rest see an empty session.
func (s *SessionService) HandleAuthFailure() {
	s.mu.Lock()
	if s.cred.Token == "" {
		s.mu.Unlock()
		return
	}

	expired := !s.cred.Valid(s.now())
	s.cred = model.Credential{}
	hook := s.onEvicted
	s.mu.Unlock()

	s.clearPersisted(context.Background())
	if expired {
		s.logger.Info("session expired, evicted")
	} else {
		s.logger.Warn("server rejected a seemingly valid credential, evicted")
	}

	if hook != nil {
		hook()
	}
}

// Register creates a new account. The caller still authenticates afterwards;
// registration does not implicitly start a session.
func (s *SessionService) Register(ctx context.Context, reg model.Registration) error {
	client := s.provider.Get()
	if client == nil {
		return ErrNoClient
	}
	return client.Register(ctx, reg)
}

// Profile fetches the authenticated user's profile from the API.
func (s *SessionService) Profile(ctx context.Context) (model.UserProfile, error) {
	client := s.provider.Get()
	if client == nil {
		return model.UserProfile{}, ErrNoClient
	}
	return client.Me(ctx)
}

// UpdateProfile updates the authenticated user's profile.
func (s *SessionService) UpdateProfile(ctx context.Context, profile model.UserProfile) error {
	client := s.provider.Get()
	if client == nil {
		return ErrNoClient
	}
	return client.UpdateProfile(ctx, profile)
}

// UpdateSettings updates the authenticated user's notification settings.
func (s *SessionService) UpdateSettings(ctx context.Context, settings model.UserSettings) error {
	client := s.provider.Get()
	if client == nil {
		return ErrNoClient
	}
	return client.UpdateSettings(ctx, settings)
}

func (s *SessionService) clearPersisted(ctx context.Context) {
	if err := s.store.Clear(ctx); err != nil && !errors.Is(err, driven.ErrEncryptionKeyNotSet) {
		s.logger.Warn("could not clear persisted session", "error", err)
	}
}
