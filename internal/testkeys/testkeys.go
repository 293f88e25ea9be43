// Package testkeys generates signing keys, tokens and fake JWKS endpoints
// for tests.
package testkeys

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"testing"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// Key is an asymmetric signing key with its JWK views.
type Key struct {
	KeyID      string
	Alg        jwa.SignatureAlgorithm
	Private    crypto.Signer
	PrivateJWK jwk.Key
	PublicJWK  jwk.Key
}

// RSA generates a 2048-bit RS256 key.
func RSA(t testing.TB, kid string) *Key {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate rsa key: %v", err)
	}
	return newKey(t, kid, jwa.RS256, priv)
}

// EC generates a P-256 ES256 key.
func EC(t testing.TB, kid string) *Key {
	t.Helper()
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate ec key: %v", err)
	}
	return newKey(t, kid, jwa.ES256, priv)
}

func newKey(t testing.TB, kid string, alg jwa.SignatureAlgorithm, priv crypto.Signer) *Key {
	t.Helper()

	privJWK, err := jwk.FromRaw(priv)
	if err != nil {
		t.Fatalf("private key jwk: %v", err)
	}
	if err := privJWK.Set(jwk.AlgorithmKey, alg); err != nil {
		t.Fatalf("set alg: %v", err)
	}
	if kid != "" {
		if err := privJWK.Set(jwk.KeyIDKey, kid); err != nil {
			t.Fatalf("set kid: %v", err)
		}
	}

	pubJWK, err := jwk.PublicKeyOf(privJWK)
	if err != nil {
		t.Fatalf("public key: %v", err)
	}

	return &Key{KeyID: kid, Alg: alg, Private: priv, PrivateJWK: privJWK, PublicJWK: pubJWK}
}

// PublicPEM returns the public key as a PKIX "PUBLIC KEY" PEM block.
func (k *Key) PublicPEM(t testing.TB) string {
	t.Helper()
	der, err := x509.MarshalPKIXPublicKey(k.Private.Public())
	if err != nil {
		t.Fatalf("marshal public key: %v", err)
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}))
}

// Sign builds a JWT from claims and signs it with jwx. Time-valued claims
// may be time.Time or Unix seconds.
func (k *Key) Sign(t testing.TB, claims map[string]any) string {
	t.Helper()

	token := jwt.New()
	for name, v := range claims {
		if err := token.Set(name, v); err != nil {
			t.Fatalf("set claim %s: %v", name, err)
		}
	}

	hdrs := jws.NewHeaders()
	if k.KeyID != "" {
		if err := hdrs.Set(jws.KeyIDKey, k.KeyID); err != nil {
			t.Fatalf("set kid header: %v", err)
		}
	}

	signed, err := jwt.Sign(token, jwt.WithKey(k.Alg, k.PrivateJWK, jws.WithProtectedHeaders(hdrs)))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return string(signed)
}

// SignGolangJWT signs claims with golang-jwt, independently of jwx.
func (k *Key) SignGolangJWT(t testing.TB, claims jwtv5.MapClaims) string {
	t.Helper()

	var method jwtv5.SigningMethod
	switch k.Alg {
	case jwa.RS256:
		method = jwtv5.SigningMethodRS256
	case jwa.ES256:
		method = jwtv5.SigningMethodES256
	default:
		t.Fatalf("no golang-jwt signing method for %s", k.Alg)
	}

	token := jwtv5.NewWithClaims(method, claims)
	if k.KeyID != "" {
		token.Header["kid"] = k.KeyID
	}
	signed, err := token.SignedString(k.Private)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

// SignHMAC signs claims with HS256, an algorithm verification must refuse.
func SignHMAC(t testing.TB, secret []byte, kid string, claims jwtv5.MapClaims) string {
	t.Helper()
	token := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims)
	if kid != "" {
		token.Header["kid"] = kid
	}
	signed, err := token.SignedString(secret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

// Set returns a JWK set with the public halves of keys.
func Set(t testing.TB, keys ...*Key) jwk.Set {
	t.Helper()
	set := jwk.NewSet()
	for _, k := range keys {
		if err := set.AddKey(k.PublicJWK); err != nil {
			t.Fatalf("add key: %v", err)
		}
	}
	return set
}
