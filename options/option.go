package options

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// Option configures VerifyTokenOptions during construction.
// Options return errors to enable validation during construction.
type Option func(*VerifyTokenOptions) error

// WithSecretKey sets the backend API secret key. It can be combined with
// WithJWTKey; the JWT key then takes precedence and no request is made.
func WithSecretKey(secretKey string) Option {
	return WithOptionalSecretKey(Some(secretKey))
}

// WithOptionalSecretKey sets or clears the secret key.
func WithOptionalSecretKey(secretKey Optional[string]) Option {
	return func(o *VerifyTokenOptions) error {
		if err := nonEmpty("secret key", secretKey); err != nil {
			return err
		}
		o.secretKey = secretKey
		return nil
	}
}

// WithJWTKey sets the PEM-encoded public key for networkless verification.
// The key is parsed at verify time.
func WithJWTKey(jwtKey string) Option {
	return WithOptionalJWTKey(Some(jwtKey))
}

// WithOptionalJWTKey sets or clears the JWT key.
func WithOptionalJWTKey(jwtKey Optional[string]) Option {
	return func(o *VerifyTokenOptions) error {
		if err := nonEmpty("jwt key", jwtKey); err != nil {
			return err
		}
		o.jwtKey = jwtKey
		return nil
	}
}

// WithAudience sets the audience the token's aud claim must equal or contain.
func WithAudience(audience string) Option {
	return WithOptionalAudience(Some(audience))
}

// WithOptionalAudience sets or clears the expected audience.
func WithOptionalAudience(audience Optional[string]) Option {
	return func(o *VerifyTokenOptions) error {
		if err := nonEmpty("audience", audience); err != nil {
			return err
		}
		o.audience = audience
		return nil
	}
}

// WithAuthorizedParty adds one allowed azp value. Repeated values collapse.
func WithAuthorizedParty(party string) Option {
	return func(o *VerifyTokenOptions) error {
		if party == "" {
			return fmt.Errorf("authorized party: %w", ErrEmptyValue)
		}
		o.authorizedParties[party] = struct{}{}
		return nil
	}
}

// WithAuthorizedParties merges parties into the allowed azp set. A nil or
// empty slice leaves the set unchanged.
func WithAuthorizedParties(parties []string) Option {
	return func(o *VerifyTokenOptions) error {
		for _, p := range parties {
			if p == "" {
				return fmt.Errorf("authorized parties: %w", ErrEmptyValue)
			}
		}
		for _, p := range parties {
			o.authorizedParties[p] = struct{}{}
		}
		return nil
	}
}

// WithClockSkew sets the clock skew as amount*unit, truncated to
// milliseconds.
//
// Example:
//
//	options.WithClockSkew(10, time.Second)
func WithClockSkew(amount int64, unit time.Duration) Option {
	return func(o *VerifyTokenOptions) error {
		if unit <= 0 {
			return errors.New("clock skew unit must be positive")
		}
		if amount < 0 {
			return ErrNegativeClockSkew
		}
		if amount > math.MaxInt64/int64(unit) {
			return fmt.Errorf("clock skew %d * %s overflows", amount, unit)
		}
		o.clockSkew = (time.Duration(amount) * unit).Truncate(time.Millisecond)
		return nil
	}
}

// WithOptionalClockSkew is WithClockSkew for an optional amount. None
// restores DefaultClockSkew.
func WithOptionalClockSkew(amount Optional[int64], unit time.Duration) Option {
	return func(o *VerifyTokenOptions) error {
		v, ok := amount.Get()
		if !ok {
			o.clockSkew = DefaultClockSkew
			return nil
		}
		return WithClockSkew(v, unit)(o)
	}
}

// WithAPIURL overrides the backend API base URL.
func WithAPIURL(apiURL string) Option {
	return WithOptionalAPIURL(Some(apiURL))
}

// WithOptionalAPIURL overrides the API URL. None restores DefaultAPIURL.
func WithOptionalAPIURL(apiURL Optional[string]) Option {
	return func(o *VerifyTokenOptions) error {
		v, ok := apiURL.Get()
		if !ok {
			o.apiURL = DefaultAPIURL
			return nil
		}
		if v == "" {
			return fmt.Errorf("api url: %w", ErrEmptyValue)
		}
		if err := validateURL(v); err != nil {
			return err
		}
		o.apiURL = v
		return nil
	}
}

// WithAPIVersion overrides the backend API version.
func WithAPIVersion(apiVersion string) Option {
	return WithOptionalAPIVersion(Some(apiVersion))
}

// WithOptionalAPIVersion overrides the API version. None restores
// DefaultAPIVersion.
func WithOptionalAPIVersion(apiVersion Optional[string]) Option {
	return func(o *VerifyTokenOptions) error {
		v, ok := apiVersion.Get()
		if !ok {
			o.apiVersion = DefaultAPIVersion
			return nil
		}
		if strings.Trim(v, "/") == "" {
			return fmt.Errorf("api version: %w", ErrEmptyValue)
		}
		o.apiVersion = v
		return nil
	}
}

func nonEmpty(field string, v Optional[string]) error {
	if s, ok := v.Get(); ok && s == "" {
		return fmt.Errorf("%s: %w", field, ErrEmptyValue)
	}
	return nil
}
