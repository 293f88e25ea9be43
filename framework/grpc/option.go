package verifygrpc

import (
	"errors"

	"github.com/sessionkit/verifytoken/core"
	"github.com/sessionkit/verifytoken/options"
	"github.com/sessionkit/verifytoken/validator"
)

// Option configures the interceptor.
type Option func(*Interceptor) error

// WithVerifier sets the TokenVerifier. Either WithVerifier or WithValidator
// is required.
func WithVerifier(v core.TokenVerifier) Option {
	return func(i *Interceptor) error {
		if v == nil {
			return errors.New("verifier cannot be nil")
		}
		i.verifier = v
		return nil
	}
}

// WithValidator verifies tokens with v under opts.
//
// Example:
//
//	interceptor, err := verifygrpc.New(
//	    verifygrpc.WithValidator(v, opts),
//	    verifygrpc.WithExcludedMethods("/grpc.health.v1.Health/Check"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	srv := grpc.NewServer(
//	    grpc.UnaryInterceptor(interceptor.UnaryServerInterceptor()),
//	    grpc.StreamInterceptor(interceptor.StreamServerInterceptor()),
//	)
func WithValidator(v *validator.Validator, opts *options.VerifyTokenOptions) Option {
	return func(i *Interceptor) error {
		if v == nil {
			return errors.New("validator cannot be nil")
		}
		if opts == nil {
			return errors.New("verify options cannot be nil")
		}
		i.verifier = v.Bind(opts)
		return nil
	}
}

// WithCredentialsOptional allows calls without a token to proceed without
// claims.
//
// Default: false (credentials required)
func WithCredentialsOptional(optional bool) Option {
	return func(i *Interceptor) error {
		i.credentialsOptional = optional
		return nil
	}
}

// WithLogger sets a logger for the interceptor and its core.
func WithLogger(logger core.Logger) Option {
	return func(i *Interceptor) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		i.logger = logger
		return nil
	}
}

// WithTokenExtractor sets a custom token extractor function.
// Default is MetadataTokenExtractor.
func WithTokenExtractor(extractor TokenExtractor) Option {
	return func(i *Interceptor) error {
		if extractor == nil {
			return errors.New("token extractor cannot be nil")
		}
		i.tokenExtractor = extractor
		return nil
	}
}

// WithErrorHandler sets a custom error handler function.
// Default is DefaultErrorHandler.
func WithErrorHandler(handler ErrorHandler) Option {
	return func(i *Interceptor) error {
		if handler == nil {
			return errors.New("error handler cannot be nil")
		}
		i.errorHandler = handler
		return nil
	}
}

// WithExcludedMethods skips verification for full method names such as
// "/grpc.health.v1.Health/Check".
func WithExcludedMethods(methods ...string) Option {
	return func(i *Interceptor) error {
		for _, method := range methods {
			i.excludedMethods[method] = true
		}
		return nil
	}
}
