package lendingapi

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/jcalloway/lenddesk/internal/domain/port/driven"
)

// authTransport injects the current bearer credential and a correlation id
// into every outbound request. Calls made while no valid credential is held
// proceed unauthenticated; the server rejects them if the route requires auth.
type authTransport struct {
	next   http.RoundTripper
	tokens driven.TokenSource
}

func newAuthTransport(next http.RoundTripper, tokens driven.TokenSource) *authTransport {
	if next == nil {
		next = http.DefaultTransport
	}
	return &authTransport{next: next, tokens: tokens}
}

// RoundTrip clones the request before mutating headers, per the
// http.RoundTripper contract.
func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())

	if token := t.tokens.Token(); token != "" {
		clone.Header.Set("Authorization", "Bearer "+token)
	}
	clone.Header.Set("X-Request-ID", uuid.NewString())

	return t.next.RoundTrip(clone)
}
