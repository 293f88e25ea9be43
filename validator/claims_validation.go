package validator

import (
	"fmt"
	"slices"
	"time"

	"github.com/sessionkit/verifytoken/core"
	"github.com/sessionkit/verifytoken/options"
)

// ValidateClaims checks c against opts at time now, with opts.ClockSkew
// tolerance on every time-based claim.
//
// The checks, in order: expiry, not-before, issued-at, audience, authorized
// party. Every check runs; the error of the first failing one is returned.
func ValidateClaims(c *Claims, opts *options.VerifyTokenOptions, now time.Time) error {
	skew := opts.ClockSkew()
	var failures []error

	if !c.ExpiresAt.IsZero() && now.Add(-skew).After(c.ExpiresAt) {
		failures = append(failures, core.NewVerificationError(
			core.CodeTokenExpired,
			fmt.Sprintf("token expired at %s", c.ExpiresAt.UTC().Format(time.RFC3339)),
			nil,
		))
	}

	if !c.NotBefore.IsZero() && now.Add(skew).Before(c.NotBefore) {
		failures = append(failures, core.NewVerificationError(
			core.CodeTokenNotYetValid,
			fmt.Sprintf("token is not valid before %s", c.NotBefore.UTC().Format(time.RFC3339)),
			nil,
		))
	}

	if !c.IssuedAt.IsZero() && now.Add(skew).Before(c.IssuedAt) {
		failures = append(failures, core.NewVerificationError(
			core.CodeTokenNotYetValid,
			fmt.Sprintf("token issued in the future at %s", c.IssuedAt.UTC().Format(time.RFC3339)),
			nil,
		))
	}

	if aud, ok := opts.Audience().Get(); ok && !slices.Contains(c.Audience, aud) {
		failures = append(failures, core.NewVerificationError(
			core.CodeAudienceMismatch,
			fmt.Sprintf("token audience %v does not contain %q", c.Audience, aud),
			nil,
		))
	}

	// A token without azp is not a member of a non-empty set.
	if !opts.IsAuthorizedParty(c.AuthorizedParty) {
		failures = append(failures, core.NewVerificationError(
			core.CodeUnauthorizedParty,
			fmt.Sprintf("authorized party %q is not allowed", c.AuthorizedParty),
			nil,
		))
	}

	if len(failures) > 0 {
		return failures[0]
	}
	return nil
}
