package verifytoken

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sessionkit/verifytoken/core"
	"github.com/sessionkit/verifytoken/validator"
)

// Middleware verifies the session token carried by each request and stores
// the resulting claims in the request context.
type Middleware struct {
	core                *core.Core
	errorHandler        ErrorHandler
	tokenExtractor      TokenExtractor
	validateOnOptions   bool
	exclusionURLHandler ExclusionURLHandler
	logger              core.Logger

	// set by options, consumed when building core
	verifier            core.TokenVerifier
	credentialsOptional bool
}

// ExclusionURLHandler reports whether a request should skip verification.
type ExclusionURLHandler func(r *http.Request) bool

// New constructs a Middleware from the supplied options.
//
// Example:
//
//	mw, err := verifytoken.New(
//	    verifytoken.WithValidator(v, opts),
//	    verifytoken.WithCredentialsOptional(false),
//	)
//	if err != nil {
//	    log.Fatalf("failed to create middleware: %v", err)
//	}
//	http.Handle("/api/", mw.CheckToken(apiHandler))
func New(opts ...Option) (*Middleware, error) {
	m := &Middleware{
		validateOnOptions: true,
	}

	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}

	if m.verifier == nil {
		return nil, fmt.Errorf("invalid middleware configuration: %w", ErrVerifierNil)
	}

	if m.errorHandler == nil {
		m.errorHandler = DefaultErrorHandler
	}
	if m.tokenExtractor == nil {
		m.tokenExtractor = DefaultTokenExtractor
	}
	if m.logger == nil {
		m.logger = core.NopLogger{}
	}

	c, err := core.New(
		core.WithVerifier(m.verifier),
		core.WithCredentialsOptional(m.credentialsOptional),
		core.WithLogger(m.logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create core: %w", err)
	}
	m.core = c

	return m, nil
}

// CheckToken wraps next so that it only runs for requests carrying a valid
// token (or no token when credentials are optional).
func (m *Middleware) CheckToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.exclusionURLHandler != nil && m.exclusionURLHandler(r) {
			m.logger.Debug("skipping token verification for excluded URL",
				"method", r.Method,
				"path", r.URL.Path)
			next.ServeHTTP(w, r)
			return
		}
		if !m.validateOnOptions && r.Method == http.MethodOptions {
			m.logger.Debug("skipping token verification for OPTIONS request")
			next.ServeHTTP(w, r)
			return
		}

		token, err := m.tokenExtractor(r)
		if err != nil {
			m.logger.Error("failed to extract token from request",
				"error", err,
				"method", r.Method,
				"path", r.URL.Path)
			m.errorHandler(w, r, fmt.Errorf("%w: %w", ErrTokenExtraction, err))
			return
		}

		claims, err := m.core.CheckToken(r.Context(), token)
		if err != nil {
			m.logger.Warn("token verification failed",
				"error", err,
				"method", r.Method,
				"path", r.URL.Path)
			m.errorHandler(w, r, err)
			return
		}

		if claims == nil {
			next.ServeHTTP(w, r)
			return
		}

		r = r.Clone(core.SetClaims(r.Context(), claims))
		next.ServeHTTP(w, r)
	})
}

// GetClaims retrieves claims from the context with type safety using generics.
//
// Example:
//
//	claims, err := verifytoken.GetClaims[*validator.Claims](r.Context())
//	if err != nil {
//	    http.Error(w, "failed to get claims", http.StatusInternalServerError)
//	    return
//	}
//	fmt.Println(claims.Subject)
func GetClaims[T any](ctx context.Context) (T, error) {
	return core.GetClaims[T](ctx)
}

// MustGetClaims retrieves claims from the context or panics.
// Use only when you are certain claims exist (e.g., after middleware has run).
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

// SessionClaims returns the claims stored by a Middleware built with
// WithValidator.
func SessionClaims(ctx context.Context) (*validator.Claims, bool) {
	claims, err := core.GetClaims[*validator.Claims](ctx)
	if err != nil {
		return nil, false
	}
	return claims, true
}
