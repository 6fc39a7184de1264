package auth

import (
	"context"
	"crypto/rsa"
	"net/http"
	"time"
)

// ContextWithPrincipal adds a principal to the context for testing purposes
// This is exported to allow other packages to create test contexts
func ContextWithPrincipal(ctx context.Context, principal *Principal) context.Context {
	return context.WithValue(ctx, principalKey, principal)
}

// NewTestKeySet builds a KeySet preloaded with a single public key. It never
// refreshes, so tests don't need a JWKS endpoint.
func NewTestKeySet(kid string, pub *rsa.PublicKey) *KeySet {
	return &KeySet{
		client:   &http.Client{Timeout: time.Second},
		keysByID: map[string]*rsa.PublicKey{kid: pub},
		done:     make(chan struct{}),
	}
}
