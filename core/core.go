// Package core provides the transport-agnostic half of session token
// verification: the error taxonomy, the logging/metrics/tracing seams shared
// by every package, and a small Core type that HTTP and gRPC adapters wrap.
package core

import (
	"context"
	"time"
)

// TokenVerifier verifies a raw token and returns its claims.
// *validator.Bound satisfies it.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (any, error)
}

// VerifyFunc adapts a plain function to TokenVerifier.
type VerifyFunc func(ctx context.Context, token string) (any, error)

// VerifyToken calls f(ctx, token).
func (f VerifyFunc) VerifyToken(ctx context.Context, token string) (any, error) {
	return f(ctx, token)
}

// Core is the framework-agnostic verification engine used by the transport
// adapters. It handles the missing-credentials policy and logs the outcome
// of each check.
type Core struct {
	verifier            TokenVerifier
	credentialsOptional bool
	logger              Logger
}

// CheckToken verifies a token string and returns the verified claims.
//
//   - If token is empty and credentialsOptional is true, returns (nil, nil)
//   - If token is empty and credentialsOptional is false, returns ErrJWTMissing
//   - Otherwise, verifies the token using the configured verifier
func (c *Core) CheckToken(ctx context.Context, token string) (any, error) {
	if token == "" {
		if c.credentialsOptional {
			c.logger.Debug("No token provided, but credentials are optional")
			return nil, nil
		}

		c.logger.Warn("No token provided and credentials are required")
		return nil, ErrJWTMissing
	}

	start := time.Now()
	claims, err := c.verifier.VerifyToken(ctx, token)
	duration := time.Since(start)

	if err != nil {
		code, _ := CodeOf(err)
		c.logger.Error("Token verification failed", "error", err, "code", code, "duration", duration)
		return nil, err
	}

	c.logger.Debug("Token verified successfully", "duration", duration)
	return claims, nil
}
