package verifytoken

import (
	"errors"
	"net/http"

	"github.com/sessionkit/verifytoken/core"
	"github.com/sessionkit/verifytoken/options"
	"github.com/sessionkit/verifytoken/validator"
)

// Option configures the Middleware.
// Returns error for validation failures.
type Option func(*Middleware) error

// WithVerifier sets the TokenVerifier used to check tokens. Either
// WithVerifier or WithValidator is required.
func WithVerifier(v core.TokenVerifier) Option {
	return func(m *Middleware) error {
		if v == nil {
			return ErrVerifierNil
		}
		m.verifier = v
		return nil
	}
}

// WithValidator binds a validator to a fixed set of verify options and uses
// the result as the TokenVerifier. Verified requests carry *validator.Claims.
//
// Example:
//
//	opts, err := options.FromSecretKey(os.Getenv("CLERK_SECRET_KEY"),
//	    options.WithAuthorizedParty("https://app.example.com"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	v, err := validator.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	mw, err := verifytoken.New(verifytoken.WithValidator(v, opts))
func WithValidator(v *validator.Validator, opts *options.VerifyTokenOptions) Option {
	return func(m *Middleware) error {
		if v == nil {
			return ErrValidatorNil
		}
		if opts == nil {
			return ErrVerifyOptionsNil
		}
		m.verifier = v.Bind(opts)
		return nil
	}
}

// WithCredentialsOptional sets whether credentials are optional.
// If set to true, a request without a token reaches the next handler
// without claims.
//
// Default: false (credentials required)
func WithCredentialsOptional(value bool) Option {
	return func(m *Middleware) error {
		m.credentialsOptional = value
		return nil
	}
}

// WithValidateOnOptions sets whether OPTIONS requests should have their token verified.
//
// Default: true (OPTIONS requests are verified)
func WithValidateOnOptions(value bool) Option {
	return func(m *Middleware) error {
		m.validateOnOptions = value
		return nil
	}
}

// WithErrorHandler sets the handler called when a request is rejected.
//
// Default: DefaultErrorHandler
func WithErrorHandler(h ErrorHandler) Option {
	return func(m *Middleware) error {
		if h == nil {
			return ErrErrorHandlerNil
		}
		m.errorHandler = h
		return nil
	}
}

// WithTokenExtractor sets the function to extract the token from the request.
//
// Default: DefaultTokenExtractor
func WithTokenExtractor(e TokenExtractor) Option {
	return func(m *Middleware) error {
		if e == nil {
			return ErrTokenExtractorNil
		}
		m.tokenExtractor = e
		return nil
	}
}

// WithExclusionUrls configures URLs that skip verification entirely.
// Entries may be full URLs or just paths.
func WithExclusionUrls(exclusions []string) Option {
	return func(m *Middleware) error {
		if len(exclusions) == 0 {
			return ErrExclusionUrlsEmpty
		}
		m.exclusionURLHandler = func(r *http.Request) bool {
			requestFullURL := r.URL.String()
			requestPath := r.URL.Path

			for _, exclusion := range exclusions {
				if requestFullURL == exclusion || requestPath == exclusion {
					return true
				}
			}
			return false
		}
		return nil
	}
}

// WithLogger sets a logger for the middleware and its core.
// *slog.Logger satisfies core.Logger; see NewZapLogger, NewLogrusLogger and
// NewZerologLogger for the other supported backends.
func WithLogger(logger core.Logger) Option {
	return func(m *Middleware) error {
		if logger == nil {
			return ErrLoggerNil
		}
		m.logger = logger
		return nil
	}
}

// Sentinel errors for configuration validation
var (
	ErrVerifierNil        = errors.New("verifier cannot be nil (use WithVerifier or WithValidator)")
	ErrValidatorNil       = errors.New("validator cannot be nil")
	ErrVerifyOptionsNil   = errors.New("verify options cannot be nil")
	ErrErrorHandlerNil    = errors.New("errorHandler cannot be nil")
	ErrTokenExtractorNil  = errors.New("tokenExtractor cannot be nil")
	ErrExclusionUrlsEmpty = errors.New("exclusion URLs list cannot be empty")
	ErrLoggerNil          = errors.New("logger cannot be nil")
)
