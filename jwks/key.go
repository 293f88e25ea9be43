package jwks

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"

	"github.com/sessionkit/verifytoken/core"
	"github.com/sessionkit/verifytoken/options"
)

// Source records where a KeyMaterial came from.
type Source string

const (
	SourceStatic Source = "static"
	SourceRemote Source = "remote"
	SourceCache  Source = "cache"
)

// KeyMaterial is a resolved public key ready for signature verification.
type KeyMaterial struct {
	KeyID string
	Key   jwk.Key

	// Algorithm is the alg advertised by the JWKS entry. Empty for static
	// keys, where the token header decides.
	Algorithm jwa.SignatureAlgorithm

	Source    Source
	FetchedAt time.Time

	// ExpiresAt is a freshness hint from the backend's Cache-Control header.
	// Zero means no hint.
	ExpiresAt time.Time
}

func (m *KeyMaterial) withSource(s Source) *KeyMaterial {
	cp := *m
	cp.Source = s
	return &cp
}

// Endpoint identifies a remote JWKS location and the credential used to
// read it.
type Endpoint struct {
	URL       string
	SecretKey string
}

// EndpointFor returns the JWKS endpoint configured by opts.
func EndpointFor(opts *options.VerifyTokenOptions) Endpoint {
	return Endpoint{
		URL:       opts.JWKSURL(),
		SecretKey: opts.SecretKey().OrElse(""),
	}
}

// CacheKey addresses one key in a KeyCache.
type CacheKey struct {
	// Endpoint is the JWKS URL.
	Endpoint string
	// Credential is a fingerprint of the secret key, so two instances
	// sharing an API URL never see each other's keys.
	Credential string
	KeyID      string
}

func (k CacheKey) String() string {
	return k.Endpoint + "|" + k.Credential + "|" + k.KeyID
}

// CacheKeyFor builds the cache key for kid at ep.
func CacheKeyFor(ep Endpoint, kid string) CacheKey {
	return CacheKey{
		Endpoint:   ep.URL,
		Credential: fingerprint(ep.SecretKey),
		KeyID:      kid,
	}
}

func fingerprint(secret string) string {
	if secret == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:8])
}

const (
	pemPublicHeader = "-----BEGIN PUBLIC KEY-----"
	pemPublicFooter = "-----END PUBLIC KEY-----"
)

// ParsePEM parses a PEM-encoded public key.
//
// Besides a regular PEM block it accepts the bare base64 body of a PUBLIC KEY
// block and PEM text whose newlines were escaped as "\n", which is how keys
// usually arrive through environment variables. Private keys are reduced to
// their public half. Symmetric keys are rejected.
func ParsePEM(pemKey string) (*KeyMaterial, error) {
	normalized := normalizePEM(pemKey)
	if normalized == "" {
		return nil, core.NewVerificationError(core.CodeInvalidKeyFormat, "jwt key is empty", nil)
	}

	key, err := jwk.ParseKey([]byte(normalized), jwk.WithPEM(true))
	if err != nil {
		return nil, core.NewVerificationError(core.CodeInvalidKeyFormat, "could not parse jwt key", err)
	}

	if key.KeyType() == jwa.OctetSeq {
		return nil, core.NewVerificationError(core.CodeInvalidKeyFormat, "jwt key must be an asymmetric public key", nil)
	}

	pub, err := jwk.PublicKeyOf(key)
	if err != nil {
		return nil, core.NewVerificationError(core.CodeInvalidKeyFormat, "could not derive public key", err)
	}

	return &KeyMaterial{
		KeyID:  pub.KeyID(),
		Key:    pub,
		Source: SourceStatic,
	}, nil
}

func normalizePEM(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, `\n`, "\n")
	if s == "" || strings.HasPrefix(s, "-----BEGIN") {
		return s
	}

	body := strings.Join(strings.Fields(s), "")
	var b strings.Builder
	b.WriteString(pemPublicHeader)
	b.WriteByte('\n')
	for len(body) > 64 {
		b.WriteString(body[:64])
		b.WriteByte('\n')
		body = body[64:]
	}
	b.WriteString(body)
	b.WriteByte('\n')
	b.WriteString(pemPublicFooter)
	return b.String()
}
