package model

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrMalformedToken indicates a bearer token that could not be decoded into claims.
var ErrMalformedToken = errors.New("malformed bearer token")

// Credential is the opaque bearer token issued by the lending API together
// with the claims decoded from it. Identity is always re-derived from the
// token itself; a credential never carries identity state from anywhere else,
// so a stale cached identity cannot outlive its token.
type Credential struct {
	Token     string
	Subject   string
	Email     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Identity is who the credential says we are.
type Identity struct {
	Subject string
	Email   string
}

// Valid reports whether the credential is present and unexpired at the given
// instant. A zero ExpiresAt is treated as already expired.
func (c Credential) Valid(now time.Time) bool {
	return c.Token != "" && now.Before(c.ExpiresAt)
}

// Identity returns the identity claims carried by the credential.
func (c Credential) Identity() Identity {
	return Identity{Subject: c.Subject, Email: c.Email}
}

// tokenClaims is the claim set the lending API embeds in access tokens.
// Only sub, exp, iat and the optional email claim are load-bearing here.
type tokenClaims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// ParseCredential decodes a bearer token into a Credential without verifying
// its signature. The client holds no verification key; the server remains the
// authority on token validity, and the claims are read only to learn the
// subject and expiry. Returns ErrMalformedToken when the token cannot be
// decoded or carries no expiry.
func ParseCredential(token string) (Credential, error) {
	var claims tokenClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return Credential{}, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	if claims.ExpiresAt == nil {
		return Credential{}, fmt.Errorf("%w: missing exp claim", ErrMalformedToken)
	}

	cred := Credential{
		Token:     token,
		Subject:   claims.Subject,
		Email:     claims.Email,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		cred.IssuedAt = claims.IssuedAt.Time
	}
	return cred, nil
}
