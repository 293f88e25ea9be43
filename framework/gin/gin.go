// Package verifygin authenticates session tokens in gin applications.
package verifygin

import (
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/sessionkit/verifytoken"
	"github.com/sessionkit/verifytoken/core"
	"github.com/sessionkit/verifytoken/validator"
)

// DefaultClaimsKey is the gin context key claims are stored under.
const DefaultClaimsKey = "session_claims"

var (
	ErrMissingClaims = errors.New("no session claims found in context")
	ErrInvalidClaims = errors.New("invalid session claims type")
)

type config struct {
	errorHandler        func(*gin.Context, error)
	contextKey          string
	tokenExtractor      verifytoken.TokenExtractor
	credentialsOptional bool
	logger              core.Logger
}

// New returns a gin middleware that verifies the request's session token
// with verifier (typically validator.Validator.Bind). Verified claims are
// stored in the gin context and in the request context.
//
//	r := gin.New()
//	mw, err := verifygin.New(v.Bind(opts))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	r.Use(mw)
func New(verifier core.TokenVerifier, opts ...Option) (gin.HandlerFunc, error) {
	cfg := &config{
		errorHandler:   defaultErrorHandler,
		contextKey:     DefaultClaimsKey,
		tokenExtractor: verifytoken.DefaultTokenExtractor,
		logger:         core.NopLogger{},
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}

	c, err := core.New(
		core.WithVerifier(verifier),
		core.WithCredentialsOptional(cfg.credentialsOptional),
		core.WithLogger(cfg.logger),
	)
	if err != nil {
		return nil, err
	}

	return func(ctx *gin.Context) {
		token, err := cfg.tokenExtractor(ctx.Request)
		if err != nil {
			cfg.errorHandler(ctx, fmt.Errorf("%w: %w", verifytoken.ErrTokenExtraction, err))
			ctx.Abort()
			return
		}

		claims, err := c.CheckToken(ctx.Request.Context(), token)
		if err != nil {
			cfg.errorHandler(ctx, err)
			ctx.Abort()
			return
		}

		if claims != nil {
			ctx.Set(cfg.contextKey, claims)
			ctx.Request = ctx.Request.WithContext(core.SetClaims(ctx.Request.Context(), claims))
		}
		ctx.Next()
	}, nil
}

// defaultErrorHandler writes the same response as verifytoken.DefaultErrorHandler.
func defaultErrorHandler(ctx *gin.Context, err error) {
	verifytoken.DefaultErrorHandler(ctx.Writer, ctx.Request, err)
}

// GetClaims returns the claims stored under contextKey (DefaultClaimsKey
// when empty).
func GetClaims(ctx *gin.Context, contextKey string) (*validator.Claims, error) {
	if contextKey == "" {
		contextKey = DefaultClaimsKey
	}
	claims, exists := ctx.Get(contextKey)
	if !exists {
		return nil, ErrMissingClaims
	}

	sessionClaims, ok := claims.(*validator.Claims)
	if !ok {
		return nil, ErrInvalidClaims
	}

	return sessionClaims, nil
}
