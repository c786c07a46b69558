package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/bozor-market/api/internal/platform/httpx"
)

const bearerPrefix = "bearer "

// Optional verifies the Authorization header when present and stores the
// identity on the context. Requests without a bearer token pass through as
// guests; requests with an invalid or expired token are rejected so that an
// expired session is never silently downgraded to a guest session.
func (v *Verifier) Optional() func(http.Handler) http.Handler {
	return v.middleware(false)
}

// Require rejects requests that do not carry a valid bearer token.
func (v *Verifier) Require() func(http.Handler) http.Handler {
	return v.middleware(true)
}

func (v *Verifier) middleware(required bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if next == nil {
			next = http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			raw := bearerToken(r)
			if raw == "" {
				if required {
					httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			if v == nil {
				httpx.WriteError(ctx, w, httpx.NewError("auth_unavailable", "authentication is unavailable", http.StatusServiceUnavailable))
				return
			}

			identity, err := v.Verify(raw)
			if err != nil {
				switch {
				case errors.Is(err, ErrTokenExpired):
					httpx.WriteError(ctx, w, httpx.NewError("token_expired", "session expired; sign in again", http.StatusUnauthorized))
				default:
					httpx.WriteError(ctx, w, httpx.NewError("token_invalid", "invalid bearer token", http.StatusUnauthorized))
				}
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(ctx, identity)))
		})
	}
}

func bearerToken(r *http.Request) string {
	if r == nil {
		return ""
	}
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return ""
	}
	if len(header) < len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(header[len(bearerPrefix):])
}
