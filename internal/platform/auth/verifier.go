package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v4"
)

// ErrTokenInvalid indicates the bearer token failed signature or claim checks.
var ErrTokenInvalid = errors.New("auth: token invalid")

// ErrTokenExpired indicates the bearer token has expired.
var ErrTokenExpired = errors.New("auth: token expired")

// Verifier validates HMAC-signed bearer tokens issued by the account backend.
type Verifier struct {
	secret []byte
	issuer string
}

// NewVerifier constructs a Verifier from the shared signing secret. The
// issuer check is skipped when issuer is empty.
func NewVerifier(secret string, issuer string) (*Verifier, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, errors.New("auth: signing secret is required")
	}
	return &Verifier{
		secret: []byte(secret),
		issuer: strings.TrimSpace(issuer),
	}, nil
}

type tokenClaims struct {
	Email  string `json:"email,omitempty"`
	Locale string `json:"locale,omitempty"`
	jwt.RegisteredClaims
}

// Verify parses and validates the raw token, returning the caller identity.
func (v *Verifier) Verify(raw string) (*Identity, error) {
	if v == nil {
		return nil, ErrTokenInvalid
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrTokenInvalid
	}

	claims := &tokenClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return v.secret, nil
	}, jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if token == nil || !token.Valid {
		return nil, ErrTokenInvalid
	}

	if v.issuer != "" && !strings.EqualFold(strings.TrimSpace(claims.Issuer), v.issuer) {
		return nil, fmt.Errorf("%w: issuer mismatch", ErrTokenInvalid)
	}

	subject := strings.TrimSpace(claims.Subject)
	if subject == "" {
		return nil, fmt.Errorf("%w: subject is required", ErrTokenInvalid)
	}

	return &Identity{
		UserID:   subject,
		Email:    strings.TrimSpace(claims.Email),
		Locale:   strings.TrimSpace(claims.Locale),
		RawToken: raw,
	}, nil
}
