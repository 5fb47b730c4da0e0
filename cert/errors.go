package cert

import "fmt"

// ErrorCode is the cert-layer sentinel error code set, layered on top of
// the codec's own MalformedImage/OutOfRange/SchemaViolation codes.
type ErrorCode string

const (
	ErrValidationFailed   ErrorCode = "VALIDATION_FAILED"
	ErrSignatureFailed    ErrorCode = "SIGNATURE_FAILED"
	ErrConstraintsMismatch ErrorCode = "CONSTRAINTS_MISMATCH"
)

// CertError is returned by every validation, signing, and constraint
// operation in this package.
type CertError struct {
	Code   ErrorCode
	Reason string
}

func (e *CertError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Reason == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Reason)
}

func cerr(code ErrorCode, format string, args ...any) error {
	return &CertError{Code: code, Reason: fmt.Sprintf(format, args...)}
}

// validationFailed builds a ValidationFailed error whose reason string
// is stable; callers may test against it verbatim.
func validationFailed(reason string) error {
	return &CertError{Code: ErrValidationFailed, Reason: reason}
}

// CodeOf extracts the ErrorCode from err if it is a *CertError.
func CodeOf(err error) (ErrorCode, bool) {
	ce, ok := err.(*CertError)
	if !ok || ce == nil {
		return "", false
	}
	return ce.Code, true
}
