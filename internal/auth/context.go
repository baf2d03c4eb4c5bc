package auth

import (
	"context"
	"errors"
)

// contextKey is a private type for context keys to avoid collisions
type contextKey string

const identityContextKey contextKey = "identity"

// Identity marks a request as having presented the shared secret.
// There is exactly one tenant (the panel), so unlike the teacher's
// UserContext there are no roles or claims to carry, just the fact that
// the request was authenticated.
type Identity struct {
	Principal string // fixed username compared during the handshake, e.g. "wings"
}

// SetIdentity stores the authenticated identity in the context.
func SetIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, id)
}

// GetIdentity retrieves the identity from the context.
// Returns an error if the request was never authenticated.
func GetIdentity(ctx context.Context) (*Identity, error) {
	id, ok := ctx.Value(identityContextKey).(*Identity)
	if !ok || id == nil {
		return nil, errors.New("no identity in context - request is not authenticated")
	}
	return id, nil
}

// MustGetIdentity retrieves the identity from the context.
// Panics if none is present; only call this downstream of RequireAuth.
func MustGetIdentity(ctx context.Context) *Identity {
	id, err := GetIdentity(ctx)
	if err != nil {
		panic("MustGetIdentity called on unauthenticated request")
	}
	return id
}
