package validator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/sessionkit/verifytoken/core"
	"github.com/sessionkit/verifytoken/jwks"
	"github.com/sessionkit/verifytoken/options"
)

// allowedSigningAlgorithms are the asymmetric algorithms a session token may
// be signed with. "none" and HMAC are refused.
var allowedSigningAlgorithms = map[jwa.SignatureAlgorithm]bool{
	jwa.RS256: true,
	jwa.RS384: true,
	jwa.RS512: true,
	jwa.PS256: true,
	jwa.PS384: true,
	jwa.PS512: true,
	jwa.ES256: true,
	jwa.ES384: true,
	jwa.ES512: true,
	jwa.EdDSA: true,
}

// KeyResolver finds the key that verifies a token. *jwks.Resolver
// implements it.
type KeyResolver interface {
	Resolve(ctx context.Context, req jwks.ResolveRequest) (*jwks.KeyMaterial, error)
	Refresh(ctx context.Context, req jwks.ResolveRequest) (*jwks.KeyMaterial, error)
}

// Validator verifies session tokens. It is safe for concurrent use and is
// meant to be shared: its resolver holds the key cache.
type Validator struct {
	resolver KeyResolver
	logger   core.Logger
	metrics  core.Metrics
	tracer   core.Tracer
	now      func() time.Time
}

// New sets up a Validator.
//
// Optional options:
//   - WithResolver: key resolution (default: jwks.NewResolver with a memory cache)
//   - WithLogger, WithMetrics, WithTracer
//   - WithClock: time source for claim checks
func New(opts ...Option) (*Validator, error) {
	v := &Validator{
		logger:  core.NopLogger{},
		metrics: core.NopMetrics{},
		tracer:  core.NopTracer{},
		now:     time.Now,
	}

	for _, opt := range opts {
		if err := opt(v); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}

	if v.resolver == nil {
		r, err := jwks.NewResolver(
			jwks.WithLogger(v.logger),
			jwks.WithMetrics(v.metrics),
			jwks.WithTracer(v.tracer),
		)
		if err != nil {
			return nil, err
		}
		v.resolver = r
	}

	return v, nil
}

// Verify authenticates token under opts and returns its claims.
//
// Every error is a *core.VerificationError. If the signature does not verify
// with a cached key, the key is refreshed once before giving up.
func (v *Validator) Verify(ctx context.Context, token string, opts *options.VerifyTokenOptions) (claims *Claims, err error) {
	ctx, span := v.tracer.Start(ctx, "verifytoken.verify")
	start := time.Now()
	defer func() {
		v.observe(span, time.Since(start), err)
		span.End()
	}()

	if err := validateTokenFormat(token); err != nil {
		return nil, core.NewVerificationError(core.CodeMalformedToken, "token is malformed", err)
	}

	msg, err := jws.Parse([]byte(token))
	if err != nil {
		return nil, core.NewVerificationError(core.CodeMalformedToken, "could not parse the token", err)
	}
	sigs := msg.Signatures()
	if len(sigs) != 1 {
		return nil, core.NewVerificationError(core.CodeMalformedToken, "token must carry exactly one signature", nil)
	}
	headers := sigs[0].ProtectedHeaders()
	alg := headers.Algorithm()
	kid := headers.KeyID()
	span.SetAttribute("jwt.alg", alg.String())
	span.SetAttribute("jwt.kid", kid)

	if opts == nil || (!opts.JWTKey().IsPresent() && !opts.SecretKey().IsPresent()) {
		return nil, core.NewVerificationError(
			core.CodeMissingKeyConfiguration,
			"either a secret key or a jwt key must be configured",
			nil,
		)
	}

	if !allowedSigningAlgorithms[alg] {
		return nil, core.NewVerificationError(
			core.CodeUnsupportedAlgorithm,
			fmt.Sprintf("signing algorithm %q is not supported", alg),
			nil,
		)
	}

	req := jwks.ResolveRequest{Options: opts, KeyID: kid}
	key, err := v.resolver.Resolve(ctx, req)
	if err != nil {
		return nil, asVerificationError(err)
	}

	if err := verifySignature(token, alg, key); err != nil {
		if key.Source != jwks.SourceCache {
			return nil, err
		}

		v.logger.Info("Signature check failed with a cached key, refreshing", "kid", kid)
		key, err = v.resolver.Refresh(ctx, req)
		if err != nil {
			return nil, asVerificationError(err)
		}
		if err := verifySignature(token, alg, key); err != nil {
			return nil, err
		}
	}

	tok, err := jwt.ParseInsecure([]byte(token))
	if err != nil {
		return nil, core.NewVerificationError(core.CodeMalformedClaims, "could not decode the token claims", err)
	}

	claims, err = claimsFromToken(tok)
	if err != nil {
		return nil, err
	}

	if err := ValidateClaims(claims, opts, v.now()); err != nil {
		return nil, err
	}

	return claims, nil
}

func verifySignature(token string, alg jwa.SignatureAlgorithm, key *jwks.KeyMaterial) error {
	if key.Algorithm != "" && key.Algorithm != alg {
		return core.NewVerificationError(
			core.CodeSignatureInvalid,
			fmt.Sprintf("token algorithm %q does not match key algorithm %q", alg, key.Algorithm),
			nil,
		)
	}

	if _, err := jws.Verify([]byte(token), jws.WithKey(alg, key.Key)); err != nil {
		return core.NewVerificationError(core.CodeSignatureInvalid, "token signature is invalid", err)
	}
	return nil
}

func (v *Validator) observe(span core.Span, d time.Duration, err error) {
	result := "valid"
	code := ""
	if err != nil {
		result = "invalid"
		c, _ := core.CodeOf(err)
		code = string(c)
		span.RecordError(err)
		v.logger.Debug("Token rejected", "code", code, "error", err)
	}
	span.SetAttribute("verifytoken.result", result)

	v.metrics.IncCounter(core.MetricVerifications, map[string]string{"result": result, "code": code})
	v.metrics.ObserveHistogram(core.MetricVerifyDuration, d.Seconds(), map[string]string{"result": result})
}

func asVerificationError(err error) error {
	var verr *core.VerificationError
	if errors.As(err, &verr) {
		return err
	}
	return core.NewVerificationError(core.CodeNetworkError, "key resolution failed", err)
}

// Bind returns a core.TokenVerifier that verifies with opts.
func (v *Validator) Bind(opts *options.VerifyTokenOptions) *Bound {
	return &Bound{validator: v, opts: opts}
}

// Bound is a Validator with fixed options.
type Bound struct {
	validator *Validator
	opts      *options.VerifyTokenOptions
}

// VerifyToken implements core.TokenVerifier. The claims are a *Claims.
func (b *Bound) VerifyToken(ctx context.Context, token string) (any, error) {
	claims, err := b.validator.Verify(ctx, token, b.opts)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// Options returns the options b verifies with.
func (b *Bound) Options() *options.VerifyTokenOptions {
	return b.opts
}
