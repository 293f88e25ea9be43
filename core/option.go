package core

import (
	"errors"
)

// Option is a function that configures the Core.
// Options return errors to enable validation during construction.
type Option func(*Core) error

// New creates a new Core instance with the provided options.
//
// The Core must be configured with a TokenVerifier using WithVerifier.
//
// Example:
//
//	c, err := core.New(
//	    core.WithVerifier(v.Bind(opts)),
//	    core.WithCredentialsOptional(true),
//	    core.WithLogger(slog.Default()),
//	)
func New(opts ...Option) (*Core, error) {
	c := &Core{
		credentialsOptional: false,
		logger:              NopLogger{},
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	if c.verifier == nil {
		return nil, errors.New("verifier is required but not set (use WithVerifier option)")
	}

	return c, nil
}

// WithVerifier sets the token verifier. This is a required option.
func WithVerifier(v TokenVerifier) Option {
	return func(c *Core) error {
		if v == nil {
			return errors.New("verifier cannot be nil")
		}
		c.verifier = v
		return nil
	}
}

// WithCredentialsOptional configures whether credentials are optional.
//
// When set to true, requests without tokens are allowed to proceed
// without verification and no claims are set.
//
// When set to false (default), requests without tokens return ErrJWTMissing.
func WithCredentialsOptional(optional bool) Option {
	return func(c *Core) error {
		c.credentialsOptional = optional
		return nil
	}
}

// WithLogger sets the logger used by the Core.
//
// Example:
//
//	c, _ := core.New(
//	    core.WithVerifier(verifier),
//	    core.WithLogger(slog.Default()),
//	)
func WithLogger(logger Logger) Option {
	return func(c *Core) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		c.logger = logger
		return nil
	}
}
