/*
Package verifytoken provides net/http middleware that authenticates Clerk
session tokens.

The verification itself lives in the validator package; this package is the
HTTP transport adapter around it. It extracts the token from the request,
verifies it, stores the claims in the request context and turns failures
into RFC 6750 responses.

# Quick Start

	import (
	    "github.com/sessionkit/verifytoken"
	    "github.com/sessionkit/verifytoken/options"
	    "github.com/sessionkit/verifytoken/validator"
	)

	func main() {
	    opts, err := options.FromSecretKey(os.Getenv("CLERK_SECRET_KEY"),
	        options.WithAuthorizedParty("https://app.example.com"),
	    )
	    if err != nil {
	        log.Fatal(err)
	    }

	    v, err := validator.New()
	    if err != nil {
	        log.Fatal(err)
	    }

	    mw, err := verifytoken.New(verifytoken.WithValidator(v, opts))
	    if err != nil {
	        log.Fatal(err)
	    }

	    http.Handle("/api/", mw.CheckToken(apiHandler))
	    http.ListenAndServe(":8080", nil)
	}

For networkless verification pass the instance's PEM public key instead:

	opts, err := options.FromJWTKey(os.Getenv("CLERK_JWT_KEY"))

# Accessing Claims

	func apiHandler(w http.ResponseWriter, r *http.Request) {
	    claims, ok := verifytoken.SessionClaims(r.Context())
	    if !ok {
	        http.Error(w, "unauthenticated", http.StatusUnauthorized)
	        return
	    }
	    fmt.Fprintf(w, "hello %s (session %s)", claims.Subject, claims.SessionID)
	}

GetClaims, MustGetClaims and HasClaims work with any claims type, for
middleware built with a custom WithVerifier.

# Token Sources

DefaultTokenExtractor reads "Authorization: Bearer <token>" and falls back
to the "__session" cookie. Use WithTokenExtractor with AuthHeaderTokenExtractor,
CookieTokenExtractor, ParameterTokenExtractor or MultiTokenExtractor to
change that.

# Error Responses

DefaultErrorHandler writes a JSON body with error, error_description and
error_code, and a WWW-Authenticate challenge for token errors:

	missing token                 401  WWW-Authenticate: Bearer
	malformed token               400  invalid_request
	audience / authorized party   403  insufficient_scope
	other token errors            401  invalid_token
	backend API unavailable       503  temporarily_unavailable
	verifier misconfigured        500  server_error

# Observability

Loggers: *slog.Logger, NewZapLogger, NewLogrusLogger, NewZerologLogger.
Metrics: NewPrometheusMetrics. Tracing: NewOpenTelemetryTracer. Pass the
logger to WithLogger here and all three to validator.New.
*/
package verifytoken
