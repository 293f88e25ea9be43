package validator

import (
	"slices"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/sessionkit/verifytoken/core"
)

// Claims is the verified payload of a session token.
type Claims struct {
	Subject         string    `json:"sub"`
	Issuer          string    `json:"iss,omitempty"`
	Audience        []string  `json:"aud,omitempty"`
	AuthorizedParty string    `json:"azp,omitempty"`
	SessionID       string    `json:"sid,omitempty"`
	ID              string    `json:"jti,omitempty"`
	IssuedAt        time.Time `json:"iat,omitempty"`
	ExpiresAt       time.Time `json:"exp,omitempty"`
	NotBefore       time.Time `json:"nbf,omitempty"`

	// Extra holds every other claim, keyed by name.
	Extra map[string]any `json:"-"`
}

const (
	claimAuthorizedParty = "azp"
	claimSessionID       = "sid"
)

func claimsFromToken(tok jwt.Token) (*Claims, error) {
	c := &Claims{
		Subject:   tok.Subject(),
		Issuer:    tok.Issuer(),
		Audience:  slices.Clone(tok.Audience()),
		ID:        tok.JwtID(),
		IssuedAt:  tok.IssuedAt(),
		ExpiresAt: tok.Expiration(),
		NotBefore: tok.NotBefore(),
		Extra:     make(map[string]any),
	}

	for name, v := range tok.PrivateClaims() {
		switch name {
		case claimAuthorizedParty, claimSessionID:
			s, ok := v.(string)
			if !ok {
				return nil, core.NewVerificationError(core.CodeMalformedClaims, "claim "+name+" must be a string", nil)
			}
			if name == claimAuthorizedParty {
				c.AuthorizedParty = s
			} else {
				c.SessionID = s
			}
		default:
			c.Extra[name] = v
		}
	}

	return c, nil
}
