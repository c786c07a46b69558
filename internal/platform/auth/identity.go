package auth

import (
	"context"
	"strings"
)

// Identity captures the authenticated principal details extracted from a
// bearer token. RawToken keeps the original credential so it can be forwarded
// to the upstream cart API.
type Identity struct {
	UserID   string
	Email    string
	Locale   string
	RawToken string
}

// Authenticated reports whether the identity carries a verified subject.
func (i *Identity) Authenticated() bool {
	return i != nil && strings.TrimSpace(i.UserID) != ""
}

type contextKey string

const identityContextKey contextKey = "github.com/bozor-market/api/internal/platform/auth/identity"

// WithIdentity stores the identity within the context for downstream handlers.
func WithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, identity)
}

// IdentityFromContext retrieves the identity previously stored in context.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	identity, ok := ctx.Value(identityContextKey).(*Identity)
	if !ok || identity == nil {
		return nil, false
	}
	return identity, true
}
