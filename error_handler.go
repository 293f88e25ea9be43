package verifytoken

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/sessionkit/verifytoken/core"
)

// ErrTokenExtraction wraps any error returned by a TokenExtractor. It means a
// credential was presented but could not be read, as opposed to no credential
// at all (core.ErrJWTMissing).
var ErrTokenExtraction = errors.New("error extracting token")

// ErrorHandler is called when the Middleware rejects a request. The err is
// either a *core.VerificationError, an error wrapping ErrTokenExtraction, or
// whatever a custom TokenVerifier returned. Use errors.Is against the core
// code and kind sentinels to choose a response.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// ErrorResponse is the JSON body written by DefaultErrorHandler.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
	ErrorCode        string `json:"error_code,omitempty"`
}

// DefaultErrorHandler writes an RFC 6750 style response:
//
//   - no token: 401 with a bare Bearer challenge
//   - malformed token or unreadable credential: 400 invalid_request
//   - audience or authorized party rejected: 403 insufficient_scope
//   - any other token error: 401 invalid_token
//   - backend unreachable: 503
//   - misconfigured verifier or unknown error: 500
func DefaultErrorHandler(w http.ResponseWriter, _ *http.Request, err error) {
	status, resp, challenge := mapError(err)

	w.Header().Set("Content-Type", "application/json")
	if challenge != "" {
		w.Header().Set("WWW-Authenticate", challenge)
	}
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

var tokenDescriptions = map[core.Code]string{
	core.CodeMalformedToken:       "The access token is malformed",
	core.CodeMalformedClaims:      "The access token claims are malformed",
	core.CodeSignatureInvalid:     "The access token signature is invalid",
	core.CodeUnsupportedAlgorithm: "The access token uses an unsupported algorithm",
	core.CodeTokenExpired:         "The access token expired",
	core.CodeTokenNotYetValid:     "The access token is not valid yet",
	core.CodeAudienceMismatch:     "The access token audience does not match",
	core.CodeUnauthorizedParty:    "The access token was issued to an unauthorized party",
}

func mapError(err error) (int, ErrorResponse, string) {
	if errors.Is(err, ErrTokenExtraction) {
		resp := ErrorResponse{
			Error:            "invalid_request",
			ErrorDescription: "The access token could not be read from the request",
		}
		return http.StatusBadRequest, resp, bearerChallenge(resp)
	}

	var verr *core.VerificationError
	if !errors.As(err, &verr) {
		return http.StatusInternalServerError, ErrorResponse{
			Error:            "server_error",
			ErrorDescription: "An internal error occurred while processing the request",
		}, ""
	}

	code := string(verr.Code)
	switch verr.Kind {
	case core.KindConfig:
		return http.StatusInternalServerError, ErrorResponse{
			Error:            "server_error",
			ErrorDescription: "The token verifier is not configured correctly",
			ErrorCode:        code,
		}, ""
	case core.KindTransport:
		return http.StatusServiceUnavailable, ErrorResponse{
			Error:            "temporarily_unavailable",
			ErrorDescription: "Unable to verify the access token",
			ErrorCode:        code,
		}, ""
	}

	switch verr.Code {
	case core.CodeTokenMissing:
		return http.StatusUnauthorized, ErrorResponse{
			Error:            "invalid_token",
			ErrorDescription: "The access token is missing",
			ErrorCode:        code,
		}, "Bearer"
	case core.CodeMalformedToken:
		resp := ErrorResponse{Error: "invalid_request", ErrorDescription: tokenDescriptions[verr.Code], ErrorCode: code}
		return http.StatusBadRequest, resp, bearerChallenge(resp)
	case core.CodeAudienceMismatch, core.CodeUnauthorizedParty:
		resp := ErrorResponse{Error: "insufficient_scope", ErrorDescription: tokenDescriptions[verr.Code], ErrorCode: code}
		return http.StatusForbidden, resp, bearerChallenge(resp)
	}

	desc, ok := tokenDescriptions[verr.Code]
	if !ok {
		desc = "The access token is invalid"
	}
	resp := ErrorResponse{Error: "invalid_token", ErrorDescription: desc, ErrorCode: code}
	return http.StatusUnauthorized, resp, bearerChallenge(resp)
}

func bearerChallenge(resp ErrorResponse) string {
	return fmt.Sprintf(`Bearer error=%q, error_description=%q`, resp.Error, resp.ErrorDescription)
}
