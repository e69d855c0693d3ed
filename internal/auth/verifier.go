package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnauthenticated is the parent of every credential failure.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrMissingCredential is returned when no credential was presented.
	ErrMissingCredential = fmt.Errorf("%w: missing credential", ErrUnauthenticated)
	// ErrInvalidCredential is returned when a credential fails verification.
	ErrInvalidCredential = fmt.Errorf("%w: invalid credential", ErrUnauthenticated)
)

// Verifier resolves a presented bearer credential into a stable user id.
type Verifier interface {
	Verify(ctx context.Context, credential string) (string, error)
}

// JWTVerifier verifies HS256 tokens issued by the identity provider.
type JWTVerifier struct {
	cfg *JWTConfig
}

// NewJWTVerifier creates a verifier for the given JWT configuration.
func NewJWTVerifier(cfg *JWTConfig) *JWTVerifier {
	return &JWTVerifier{cfg: cfg}
}

// Verify implements Verifier.
func (v *JWTVerifier) Verify(_ context.Context, credential string) (string, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return "", ErrMissingCredential
	}

	claims, err := ValidateToken(v.cfg, credential)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}
	return claims.Subject, nil
}

// VerifierFunc adapts a plain function to the Verifier interface.
type VerifierFunc func(ctx context.Context, credential string) (string, error)

// Verify implements Verifier.
func (f VerifierFunc) Verify(ctx context.Context, credential string) (string, error) {
	return f(ctx, credential)
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header value.
// It returns an empty string when the header is absent or malformed.
func BearerToken(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
