/*
Package core holds the pieces of session token verification that every other
package shares.

# Errors

Every failure produced while verifying a token is a *VerificationError. Each
error has a Kind that tells the caller who must act on it:

	KindConfig     the verifier is misconfigured (missing or unparsable key)
	KindTransport  the backend API could not serve the signing keys
	KindToken      the token itself was rejected

Callers branch with errors.Is, either on a single code or on a whole kind:

	claims, err := v.Verify(ctx, token, opts)
	switch {
	case errors.Is(err, core.ErrTokenExpired):
	    // ask the client to refresh its session
	case errors.Is(err, core.ErrTransport):
	    // retry later
	case errors.Is(err, core.ErrConfig):
	    // page someone
	}

# Core

Core wraps a TokenVerifier with the missing-credentials policy used by the
HTTP and gRPC adapters:

	c, err := core.New(
	    core.WithVerifier(v.Bind(opts)),
	    core.WithCredentialsOptional(false),
	    core.WithLogger(slog.Default()),
	)

	claims, err := c.CheckToken(ctx, token)

# Observability

Logger, Metrics and Tracer are small interfaces with no-op defaults.
*slog.Logger satisfies Logger directly. The root package ships adapters for
logrus, zap, zerolog, Prometheus and OpenTelemetry.

# Context helpers

	ctx = core.SetClaims(ctx, claims)
	claims, err := core.GetClaims[*validator.Claims](ctx)
*/
package core
