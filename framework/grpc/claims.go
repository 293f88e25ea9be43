package verifygrpc

import (
	"context"

	"github.com/sessionkit/verifytoken/core"
	"github.com/sessionkit/verifytoken/validator"
)

// GetClaims retrieves claims from the context with type safety using generics.
func GetClaims[T any](ctx context.Context) (T, error) {
	return core.GetClaims[T](ctx)
}

// MustGetClaims retrieves claims from the context or panics.
// Use only when you are certain claims exist (e.g., after interceptor has run).
func MustGetClaims[T any](ctx context.Context) T {
	claims, err := core.GetClaims[T](ctx)
	if err != nil {
		panic(err)
	}
	return claims
}

// HasClaims checks if claims exist in the context.
func HasClaims(ctx context.Context) bool {
	return core.HasClaims(ctx)
}

// SessionClaims returns the claims stored by an interceptor built with
// WithValidator.
func SessionClaims(ctx context.Context) (*validator.Claims, bool) {
	claims, err := core.GetClaims[*validator.Claims](ctx)
	return claims, err == nil
}
