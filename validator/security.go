package validator

import (
	"errors"
	"strings"
)

var (
	// ErrTokenSegments is returned when a token is not in JWS compact form.
	ErrTokenSegments = errors.New("token must have exactly three segments")
)

// maxTokenSize caps the raw token length. Valid session tokens are a few KB.
const maxTokenSize = 1024 * 1024

// validateTokenFormat rejects obviously invalid input before it is handed to
// the JWS parser.
func validateTokenFormat(tokenString string) error {
	if len(tokenString) == 0 {
		return errors.New("token is empty")
	}

	if len(tokenString) > maxTokenSize {
		return errors.New("token exceeds maximum size (1MB)")
	}

	if strings.Count(tokenString, ".") != 2 {
		return ErrTokenSegments
	}

	return nil
}
