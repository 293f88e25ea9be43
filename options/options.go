package options

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"
)

// Defaults applied when a field is not provided.
const (
	DefaultClockSkew  = 5000 * time.Millisecond
	DefaultAPIURL     = "https://api.clerk.com"
	DefaultAPIVersion = "v1"
)

// VerifyTokenOptions configures token verification. It is immutable once
// built and safe to share between goroutines.
//
// Having neither a secret key nor a JWT key is allowed here; Verify reports
// it as a missing key configuration error.
type VerifyTokenOptions struct {
	secretKey         Optional[string]
	jwtKey            Optional[string]
	audience          Optional[string]
	authorizedParties map[string]struct{}
	clockSkew         time.Duration
	apiURL            string
	apiVersion        string
}

// Params is the explicit constructor input for New. Every pointer field must
// be non-nil; use None to select the default.
type Params struct {
	SecretKey         *Optional[string]
	JWTKey            *Optional[string]
	Audience          *Optional[string]
	AuthorizedParties []string
	ClockSkewMs       *Optional[int64]
	APIURL            *Optional[string]
	APIVersion        *Optional[string]
}

// New builds options from Params. A nil pointer field fails with
// *ErrNilField; a None field takes its default.
func New(p Params) (*VerifyTokenOptions, error) {
	fields := []struct {
		name    string
		missing bool
	}{
		{"secretKey", p.SecretKey == nil},
		{"jwtKey", p.JWTKey == nil},
		{"audience", p.Audience == nil},
		{"clockSkewMs", p.ClockSkewMs == nil},
		{"apiUrl", p.APIURL == nil},
		{"apiVersion", p.APIVersion == nil},
	}
	for _, f := range fields {
		if f.missing {
			return nil, &ErrNilField{Field: f.name}
		}
	}

	return build(
		WithOptionalSecretKey(*p.SecretKey),
		WithOptionalJWTKey(*p.JWTKey),
		WithOptionalAudience(*p.Audience),
		WithAuthorizedParties(p.AuthorizedParties),
		WithOptionalClockSkew(*p.ClockSkewMs, time.Millisecond),
		WithOptionalAPIURL(*p.APIURL),
		WithOptionalAPIVersion(*p.APIVersion),
	)
}

// FromSecretKey starts options for networked verification. Signing keys are
// fetched from the backend API using secretKey.
func FromSecretKey(secretKey string, opts ...Option) (*VerifyTokenOptions, error) {
	return build(append([]Option{WithSecretKey(secretKey)}, opts...)...)
}

// FromJWTKey starts options for networkless verification with a PEM-encoded
// public key.
func FromJWTKey(jwtKey string, opts ...Option) (*VerifyTokenOptions, error) {
	return build(append([]Option{WithJWTKey(jwtKey)}, opts...)...)
}

func build(opts ...Option) (*VerifyTokenOptions, error) {
	o := &VerifyTokenOptions{
		authorizedParties: make(map[string]struct{}),
		clockSkew:         DefaultClockSkew,
		apiURL:            DefaultAPIURL,
		apiVersion:        DefaultAPIVersion,
	}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, fmt.Errorf("invalid verify token option: %w", err)
		}
	}
	return o, nil
}

// SecretKey returns the backend API secret key.
func (o *VerifyTokenOptions) SecretKey() Optional[string] { return o.secretKey }

// JWTKey returns the PEM-encoded public key used for networkless verification.
func (o *VerifyTokenOptions) JWTKey() Optional[string] { return o.jwtKey }

// Audience returns the expected audience.
func (o *VerifyTokenOptions) Audience() Optional[string] { return o.audience }

// AuthorizedParties returns a sorted copy of the authorized party set.
func (o *VerifyTokenOptions) AuthorizedParties() []string {
	parties := make([]string, 0, len(o.authorizedParties))
	for p := range o.authorizedParties {
		parties = append(parties, p)
	}
	sort.Strings(parties)
	return parties
}

// IsAuthorizedParty reports whether azp is allowed. An empty set allows any
// party.
func (o *VerifyTokenOptions) IsAuthorizedParty(azp string) bool {
	if len(o.authorizedParties) == 0 {
		return true
	}
	_, ok := o.authorizedParties[azp]
	return ok
}

// ClockSkew returns the tolerance applied to time-based claims.
func (o *VerifyTokenOptions) ClockSkew() time.Duration { return o.clockSkew }

// ClockSkewMs returns ClockSkew in milliseconds.
func (o *VerifyTokenOptions) ClockSkewMs() int64 { return o.clockSkew.Milliseconds() }

// APIURL returns the backend API base URL.
func (o *VerifyTokenOptions) APIURL() string { return o.apiURL }

// APIVersion returns the backend API version path segment.
func (o *VerifyTokenOptions) APIVersion() string { return o.apiVersion }

// JWKSURL returns {apiUrl}/{apiVersion}/jwks.
func (o *VerifyTokenOptions) JWKSURL() string {
	return strings.TrimRight(o.apiURL, "/") + "/" + strings.Trim(o.apiVersion, "/") + "/jwks"
}

// String describes the options with key material redacted.
func (o *VerifyTokenOptions) String() string {
	return fmt.Sprintf(
		"VerifyTokenOptions{secretKey=%s, jwtKey=%s, audience=%s, authorizedParties=%v, clockSkewMs=%d, apiUrl=%s, apiVersion=%s}",
		redact(o.secretKey), redact(o.jwtKey), o.audience, o.AuthorizedParties(),
		o.ClockSkewMs(), o.apiURL, o.apiVersion,
	)
}

func redact(o Optional[string]) string {
	if o.IsPresent() {
		return "Some(***)"
	}
	return "None"
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid api url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid api url %q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid api url %q: missing host", raw)
	}
	return nil
}
