// Package verifyecho authenticates session tokens in echo applications.
package verifyecho

import (
	"fmt"

	"github.com/labstack/echo/v4"

	"github.com/sessionkit/verifytoken"
	"github.com/sessionkit/verifytoken/core"
	"github.com/sessionkit/verifytoken/validator"
)

// DefaultClaimsKey is the echo context key claims are stored under.
const DefaultClaimsKey = "session_claims"

type config struct {
	errorHandler        func(echo.Context, error) error
	contextKey          string
	tokenExtractor      verifytoken.TokenExtractor
	credentialsOptional bool
	logger              core.Logger
}

// New returns an echo middleware that verifies the request's session token
// with verifier (typically validator.Validator.Bind).
func New(verifier core.TokenVerifier, opts ...Option) (echo.MiddlewareFunc, error) {
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

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ec echo.Context) error {
			req := ec.Request()

			token, err := cfg.tokenExtractor(req)
			if err != nil {
				return cfg.errorHandler(ec, fmt.Errorf("%w: %w", verifytoken.ErrTokenExtraction, err))
			}

			claims, err := c.CheckToken(req.Context(), token)
			if err != nil {
				return cfg.errorHandler(ec, err)
			}

			if claims != nil {
				ec.Set(cfg.contextKey, claims)
				ec.SetRequest(req.WithContext(core.SetClaims(req.Context(), claims)))
			}
			return next(ec)
		}
	}, nil
}

func defaultErrorHandler(ec echo.Context, err error) error {
	verifytoken.DefaultErrorHandler(ec.Response(), ec.Request(), err)
	return nil
}

// GetClaims extracts the session claims from the echo context.
func GetClaims(ec echo.Context, contextKey string) (*validator.Claims, bool) {
	if contextKey == "" {
		contextKey = DefaultClaimsKey
	}
	claims, ok := ec.Get(contextKey).(*validator.Claims)
	return claims, ok
}
