package verifygrpc

import (
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/sessionkit/verifytoken/core"
)

// ErrorHandler converts a verification failure into the error returned to
// the client.
type ErrorHandler func(error) error

// DefaultErrorHandler maps verification errors to gRPC status codes:
//
//   - missing or rejected token: Unauthenticated
//   - audience or authorized party mismatch: PermissionDenied
//   - unreadable authorization metadata: InvalidArgument
//   - backend API unreachable: Unavailable
//   - misconfigured verifier and anything else: Internal
func DefaultErrorHandler(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, ErrMultipleAuthHeaders) ||
		errors.Is(err, ErrInvalidAuthFormat) ||
		errors.Is(err, ErrUnsupportedScheme) {
		return status.Error(codes.InvalidArgument, err.Error())
	}

	var verr *core.VerificationError
	if !errors.As(err, &verr) {
		return status.Error(codes.Internal, "unable to verify token")
	}

	switch verr.Kind {
	case core.KindConfig:
		return status.Error(codes.Internal, "token verifier is misconfigured")
	case core.KindTransport:
		return status.Error(codes.Unavailable, "unable to verify token")
	}

	switch verr.Code {
	case core.CodeTokenMissing:
		return status.Error(codes.Unauthenticated, "missing credentials")
	case core.CodeTokenExpired:
		return status.Error(codes.Unauthenticated, "token expired")
	case core.CodeTokenNotYetValid:
		return status.Error(codes.Unauthenticated, "token not yet valid")
	case core.CodeSignatureInvalid:
		return status.Error(codes.Unauthenticated, "invalid signature")
	case core.CodeMalformedToken, core.CodeMalformedClaims:
		return status.Error(codes.Unauthenticated, "malformed token")
	case core.CodeUnsupportedAlgorithm:
		return status.Error(codes.Unauthenticated, "invalid algorithm")
	case core.CodeAudienceMismatch:
		return status.Error(codes.PermissionDenied, "invalid audience")
	case core.CodeUnauthorizedParty:
		return status.Error(codes.PermissionDenied, "unauthorized party")
	}
	return status.Error(codes.Unauthenticated, "invalid token")
}
