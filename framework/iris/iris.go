// Package verifyiris authenticates session tokens in iris applications.
package verifyiris

import (
	"errors"
	"fmt"

	"github.com/kataras/iris/v12"

	"github.com/sessionkit/verifytoken"
	"github.com/sessionkit/verifytoken/core"
	"github.com/sessionkit/verifytoken/validator"
)

// DefaultClaimsKey is the iris context value key claims are stored under.
const DefaultClaimsKey = "session_claims"

var (
	ErrMissingClaims = errors.New("no session claims found in context")
	ErrInvalidClaims = errors.New("invalid session claims type")
)

type config struct {
	errorHandler        func(iris.Context, error)
	contextKey          string
	tokenExtractor      verifytoken.TokenExtractor
	credentialsOptional bool
	logger              core.Logger
}

// New returns an iris handler that verifies the request's session token
// with verifier. Claims are stored in the iris context values and in the
// request context, so both GetClaims and verifytoken.SessionClaims see them.
func New(verifier core.TokenVerifier, opts ...Option) (iris.Handler, error) {
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

	return func(ctx iris.Context) {
		req := ctx.Request()

		token, err := cfg.tokenExtractor(req)
		if err != nil {
			cfg.errorHandler(ctx, fmt.Errorf("%w: %w", verifytoken.ErrTokenExtraction, err))
			ctx.StopExecution()
			return
		}

		claims, err := c.CheckToken(req.Context(), token)
		if err != nil {
			cfg.logger.Warn("token verification failed", "method", ctx.Method(), "path", ctx.Path(), "error", err)
			cfg.errorHandler(ctx, err)
			ctx.StopExecution()
			return
		}

		if claims != nil {
			ctx.Values().Set(cfg.contextKey, claims)
			ctx.ResetRequest(req.WithContext(core.SetClaims(req.Context(), claims)))
		}
		ctx.Next()
	}, nil
}

func defaultErrorHandler(ctx iris.Context, err error) {
	verifytoken.DefaultErrorHandler(ctx.ResponseWriter(), ctx.Request(), err)
}

// GetClaims returns the claims stored under contextKey (DefaultClaimsKey
// when empty).
func GetClaims(ctx iris.Context, contextKey string) (*validator.Claims, error) {
	if contextKey == "" {
		contextKey = DefaultClaimsKey
	}
	v := ctx.Values().Get(contextKey)
	if v == nil {
		return nil, ErrMissingClaims
	}
	claims, ok := v.(*validator.Claims)
	if !ok {
		return nil, ErrInvalidClaims
	}
	return claims, nil
}

// MustGetClaims returns the claims from the default key, or writes a 401
// response, stops the handler chain and returns nil.
//
//	func profile(ctx iris.Context) {
//		claims := verifyiris.MustGetClaims(ctx)
//		if claims == nil {
//			return
//		}
//		ctx.JSON(iris.Map{"user": claims.Subject})
//	}
func MustGetClaims(ctx iris.Context) *validator.Claims {
	claims, err := GetClaims(ctx, "")
	if err != nil {
		verifytoken.DefaultErrorHandler(ctx.ResponseWriter(), ctx.Request(), core.ErrClaimsNotFound)
		ctx.StopExecution()
		return nil
	}
	return claims
}
