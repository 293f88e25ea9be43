/*
Package validator verifies session tokens using the lestrrat-go/jwx v2
library.

Verify runs these steps and stops at the first failure:

 1. Reject input that is not a compact JWS (malformed_token).
 2. Read alg and kid from the protected header.
 3. Require a secret key or a JWT key (missing_key_configuration).
 4. Require an asymmetric algorithm: RS256/384/512, PS256/384/512,
    ES256/384/512 or EdDSA (unsupported_algorithm).
 5. Resolve the key through a KeyResolver. A configured JWT key wins over
    the secret key and never causes a network request.
 6. Verify the signature (signature_invalid). A key that came from the
    cache is refreshed once before the failure is reported.
 7. Decode the claims (malformed_claims).
 8. Run ValidateClaims: exp, nbf, iat, aud, azp.

# Basic Usage

	v, err := validator.New()
	if err != nil {
	    log.Fatal(err)
	}

	opts, err := options.FromSecretKey(os.Getenv("CLERK_SECRET_KEY"),
	    options.WithAuthorizedParty("https://app.example.com"),
	)
	if err != nil {
	    log.Fatal(err)
	}

	claims, err := v.Verify(ctx, token, opts)
	if err != nil {
	    // errors.Is(err, core.ErrTokenExpired), errors.Is(err, core.ErrTransport), ...
	}
	fmt.Println(claims.Subject, claims.SessionID)

# Sharing keys

The key cache lives in the resolver. To share it between validators, build
the resolver once:

	resolver, _ := jwks.NewResolver(jwks.WithCache(jwks.NewRedisCache(rdb)))
	v1, _ := validator.New(validator.WithResolver(resolver))
	v2, _ := validator.New(validator.WithResolver(resolver))

Use Bind to get a core.TokenVerifier for the HTTP and gRPC middleware.
*/
package validator
