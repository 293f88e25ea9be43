package verifyiris

import (
	"errors"

	"github.com/kataras/iris/v12"

	"github.com/sessionkit/verifytoken"
	"github.com/sessionkit/verifytoken/core"
)

// Option configures the iris handler.
type Option func(*config) error

// WithErrorHandler sets the handler called when a request is rejected. The
// handler chain is stopped after it returns.
func WithErrorHandler(handler func(iris.Context, error)) Option {
	return func(cfg *config) error {
		if handler == nil {
			return errors.New("error handler cannot be nil")
		}
		cfg.errorHandler = handler
		return nil
	}
}

// WithContextKey sets the iris context value key the claims are stored under.
func WithContextKey(key string) Option {
	return func(cfg *config) error {
		if key == "" {
			return errors.New("context key cannot be empty")
		}
		cfg.contextKey = key
		return nil
	}
}

// WithTokenExtractor sets a custom token extractor.
func WithTokenExtractor(extractor verifytoken.TokenExtractor) Option {
	return func(cfg *config) error {
		if extractor == nil {
			return errors.New("token extractor cannot be nil")
		}
		cfg.tokenExtractor = extractor
		return nil
	}
}

// WithCredentialsOptional lets requests without a token through without claims.
func WithCredentialsOptional(value bool) Option {
	return func(cfg *config) error {
		cfg.credentialsOptional = value
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(logger core.Logger) Option {
	return func(cfg *config) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}
