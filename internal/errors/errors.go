package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error identifier
type ErrorCode string

// Error categories
const (
	// Safety gate errors (GATE-001 to GATE-099)
	ErrCodeGateEnvMissing   ErrorCode = "GATE-001"
	ErrCodeGateEnvBlocked   ErrorCode = "GATE-002"
	ErrCodeGateDBBlocked    ErrorCode = "GATE-003"
	ErrCodeGateDBUnknown    ErrorCode = "GATE-004"
	ErrCodeGateDBUnparsable ErrorCode = "GATE-005"

	// Manifest errors (MANIFEST-001 to MANIFEST-099)
	ErrCodeManifestWriteFailed   ErrorCode = "MANIFEST-001"
	ErrCodeManifestOversized     ErrorCode = "MANIFEST-002"
	ErrCodeManifestDirFailed     ErrorCode = "MANIFEST-003"
	ErrCodeManifestSchemaInvalid ErrorCode = "MANIFEST-004"

	// Database errors (DB-001 to DB-099)
	ErrCodeDBConnectFailed ErrorCode = "DB-001"
	ErrCodeDBTenantUnknown ErrorCode = "DB-002"
	ErrCodeDBQueryFailed   ErrorCode = "DB-003"
	ErrCodeDBMigrateFailed ErrorCode = "DB-004"

	// Configuration errors (CONFIG-001 to CONFIG-099)
	ErrCodeConfigInvalid    ErrorCode = "CONFIG-001"
	ErrCodeConfigFileFailed ErrorCode = "CONFIG-002"

	// Execution errors (EXEC-001 to EXEC-099)
	ErrCodeExecFailed    ErrorCode = "EXEC-001"
	ErrCodeExecPanic     ErrorCode = "EXEC-002"
	ErrCodeExecCancelled ErrorCode = "EXEC-003"
	ErrCodeExecTruncated ErrorCode = "EXEC-004"
)

// ToolkitError is an error with a stable code and a recoverability hint.
// The code and hint survive into the manifest after sanitization; the
// wrapped cause does not.
type ToolkitError struct {
	Code        ErrorCode
	Message     string
	Recoverable bool
	Cause       error
}

// Error implements the error interface
func (e *ToolkitError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements error unwrapping for errors.Is and errors.As
func (e *ToolkitError) Unwrap() error {
	return e.Cause
}

// New creates a new ToolkitError
func New(code ErrorCode, message string) *ToolkitError {
	return &ToolkitError{Code: code, Message: message}
}

// Wrap creates a new ToolkitError wrapping an existing error
func Wrap(code ErrorCode, message string, cause error) *ToolkitError {
	return &ToolkitError{Code: code, Message: message, Cause: cause}
}

// AsRecoverable marks the error as fixable by operator action
// (environment or configuration changes, not code changes).
func (e *ToolkitError) AsRecoverable() *ToolkitError {
	e.Recoverable = true
	return e
}

// CodeOf returns the ErrorCode carried by err, or ErrCodeExecFailed when
// the chain carries none.
func CodeOf(err error) ErrorCode {
	var te *ToolkitError
	if errors.As(err, &te) {
		return te.Code
	}
	return ErrCodeExecFailed
}

// IsRecoverable reports whether err is marked operator-recoverable
func IsRecoverable(err error) bool {
	var te *ToolkitError
	if errors.As(err, &te) {
		return te.Recoverable
	}
	return false
}
