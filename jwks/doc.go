/*
Package jwks resolves the public key that verifies a session token.

Two modes are supported. With a PEM public key configured (networkless
mode) the key is parsed locally and nothing else happens. With only a secret
key, the key set is fetched from

	GET {apiUrl}/{apiVersion}/jwks
	Authorization: Bearer <secret key>

and every key in the response is cached by (endpoint, credential, kid).

	resolver, err := jwks.NewResolver(
	    jwks.WithCache(jwks.NewMemoryCache(jwks.WithTTL(30*time.Minute))),
	)
	key, err := resolver.Resolve(ctx, jwks.ResolveRequest{Options: opts, KeyID: kid})

Caches are plain values passed to the Resolver; there is no package-level
state. Use a RedisCache to share keys between processes.
*/
package jwks
