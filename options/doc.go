// Package options defines VerifyTokenOptions, the immutable configuration
// passed to every verification call.
//
// Options start from one of two entry points, matching the two verification
// modes:
//
//	opts, err := options.FromSecretKey(os.Getenv("CLERK_SECRET_KEY"),
//	    options.WithAuthorizedParty("https://app.example.com"),
//	)
//
//	opts, err := options.FromJWTKey(pemPublicKey,
//	    options.WithClockSkew(10, time.Second),
//	)
//
// New builds the same value from an explicit Params struct where every
// optional field is either Some or None; a nil field is rejected.
package options
