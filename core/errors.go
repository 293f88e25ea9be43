package core

import "errors"

// Kind groups error codes by who has to act on them.
type Kind string

const (
	// KindConfig marks a misconfigured verifier. Fatal and never retried.
	KindConfig Kind = "config"
	// KindTransport marks a failure talking to the backend API.
	KindTransport Kind = "transport"
	// KindToken marks a rejected token. The caller decides the response.
	KindToken Kind = "token"
)

// Code is a machine-readable error code (e.g., "token_expired").
type Code string

// Error codes, grouped by kind.
const (
	CodeMissingKeyConfiguration Code = "missing_key_configuration"
	CodeInvalidKeyFormat        Code = "invalid_key_format"

	CodeNetworkError Code = "network_error"
	CodeTimeout      Code = "timeout"
	CodeAuthError    Code = "auth_error"
	CodeKeyNotFound  Code = "key_not_found"

	CodeMalformedToken       Code = "malformed_token"
	CodeMalformedClaims      Code = "malformed_claims"
	CodeSignatureInvalid     Code = "signature_invalid"
	CodeUnsupportedAlgorithm Code = "unsupported_algorithm"
	CodeTokenExpired         Code = "token_expired"
	CodeTokenNotYetValid     Code = "token_not_yet_valid"
	CodeAudienceMismatch     Code = "audience_mismatch"
	CodeUnauthorizedParty    Code = "unauthorized_party"

	CodeTokenMissing   Code = "token_missing"
	CodeClaimsNotFound Code = "claims_not_found"
)

var codeKinds = map[Code]Kind{
	CodeMissingKeyConfiguration: KindConfig,
	CodeInvalidKeyFormat:        KindConfig,
	CodeNetworkError:            KindTransport,
	CodeTimeout:                 KindTransport,
	CodeAuthError:               KindTransport,
	CodeKeyNotFound:             KindTransport,
	CodeMalformedToken:          KindToken,
	CodeMalformedClaims:         KindToken,
	CodeSignatureInvalid:        KindToken,
	CodeUnsupportedAlgorithm:    KindToken,
	CodeTokenExpired:            KindToken,
	CodeTokenNotYetValid:        KindToken,
	CodeAudienceMismatch:        KindToken,
	CodeUnauthorizedParty:       KindToken,
	CodeTokenMissing:            KindToken,
	CodeClaimsNotFound:          KindToken,
}

// KindOf returns the kind a code belongs to. Unknown codes are token errors.
func KindOf(code Code) Kind {
	if k, ok := codeKinds[code]; ok {
		return k
	}
	return KindToken
}

// VerificationError is the single error type returned by token verification.
// It carries enough structure for a caller to pick a response (HTTP status,
// gRPC code) without inspecting the underlying cause.
type VerificationError struct {
	// Kind is derived from Code.
	Kind Kind

	// Code is a machine-readable error code.
	Code Code

	// Message is a human-readable error message.
	Message string

	// Details contains the underlying error, if any.
	Details error
}

// Error implements the error interface.
func (e *VerificationError) Error() string {
	if e.Details != nil {
		return e.Message + ": " + e.Details.Error()
	}
	return e.Message
}

// Unwrap returns the underlying error for error unwrapping.
func (e *VerificationError) Unwrap() error {
	return e.Details
}

// Is reports whether target is a code sentinel with the same code or a kind
// sentinel with the same kind.
func (e *VerificationError) Is(target error) bool {
	switch t := target.(type) {
	case *VerificationError:
		return t.Code == e.Code
	case kindError:
		return Kind(t) == e.Kind
	}
	return false
}

// NewVerificationError creates a VerificationError for the given code.
func NewVerificationError(code Code, message string, details error) *VerificationError {
	return &VerificationError{
		Kind:    KindOf(code),
		Code:    code,
		Message: message,
		Details: details,
	}
}

// CodeOf returns the code of the first VerificationError in err's chain.
func CodeOf(err error) (Code, bool) {
	var verr *VerificationError
	if errors.As(err, &verr) {
		return verr.Code, true
	}
	return "", false
}

type kindError Kind

func (k kindError) Error() string { return string(k) + " error" }

// Kind sentinels, for use with errors.Is.
var (
	ErrConfig    error = kindError(KindConfig)
	ErrTransport error = kindError(KindTransport)
	ErrToken     error = kindError(KindToken)
)

// Code sentinels, for use with errors.Is.
var (
	ErrMissingKeyConfiguration = sentinel(CodeMissingKeyConfiguration, "no secret key or jwt key configured")
	ErrInvalidKeyFormat        = sentinel(CodeInvalidKeyFormat, "jwt key is not a valid public key")

	ErrNetwork     = sentinel(CodeNetworkError, "could not reach the backend api")
	ErrTimeout     = sentinel(CodeTimeout, "backend api request timed out")
	ErrAuth        = sentinel(CodeAuthError, "secret key rejected by the backend api")
	ErrKeyNotFound = sentinel(CodeKeyNotFound, "no signing key matches the token kid")

	ErrMalformedToken       = sentinel(CodeMalformedToken, "token is malformed")
	ErrMalformedClaims      = sentinel(CodeMalformedClaims, "token claims are malformed")
	ErrSignatureInvalid     = sentinel(CodeSignatureInvalid, "token signature is invalid")
	ErrUnsupportedAlgorithm = sentinel(CodeUnsupportedAlgorithm, "token signing algorithm is not supported")
	ErrTokenExpired         = sentinel(CodeTokenExpired, "token has expired")
	ErrTokenNotYetValid     = sentinel(CodeTokenNotYetValid, "token is not valid yet")
	ErrAudienceMismatch     = sentinel(CodeAudienceMismatch, "token audience does not match")
	ErrUnauthorizedParty    = sentinel(CodeUnauthorizedParty, "token authorized party is not allowed")

	// ErrJWTMissing is returned when no token was presented.
	ErrJWTMissing = sentinel(CodeTokenMissing, "jwt missing")

	// ErrClaimsNotFound is returned when claims cannot be retrieved from context.
	ErrClaimsNotFound = sentinel(CodeClaimsNotFound, "claims not found in context")
)

func sentinel(code Code, message string) *VerificationError {
	return NewVerificationError(code, message, nil)
}
