package core

import (
	"context"
	"fmt"
)

type contextKey int

const sessionClaimsKey contextKey = 0

// SetClaims returns a copy of ctx carrying the claims of a verified session
// token. Transport adapters call it once verification succeeded; nil claims
// (an anonymous request let through with credentials optional) leave ctx
// untouched.
func SetClaims(ctx context.Context, claims any) context.Context {
	if claims == nil {
		return ctx
	}
	return context.WithValue(ctx, sessionClaimsKey, claims)
}

// GetClaims returns the session claims stored by SetClaims as a T.
// The verifier decides the concrete type; with validator.Validator it is
// *validator.Claims:
//
//	claims, err := core.GetClaims[*validator.Claims](ctx)
//	if err != nil {
//	    return err // ErrClaimsNotFound
//	}
//	log.Printf("user %s, session %s", claims.Subject, claims.SessionID)
//
// Both a missing value and a value of another type fail with a
// claims_not_found VerificationError.
func GetClaims[T any](ctx context.Context) (T, error) {
	var zero T

	v := ctx.Value(sessionClaimsKey)
	if v == nil {
		return zero, ErrClaimsNotFound
	}

	claims, ok := v.(T)
	if !ok {
		return zero, NewVerificationError(CodeClaimsNotFound,
			fmt.Sprintf("session claims are %T, not %T", v, zero), nil)
	}
	return claims, nil
}

// HasClaims reports whether ctx carries session claims.
func HasClaims(ctx context.Context) bool {
	return ctx.Value(sessionClaimsKey) != nil
}
