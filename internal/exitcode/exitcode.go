package exitcode

import (
	"errors"
	"fmt"
	"os"
)

// Exit codes form a fixed enumeration shared with the manifest schema and
// the crash handlers. Adding a value is a breaking change for consumers
// parsing manifests, so new codes require a schema version bump.
const (
	// Success indicates the command completed and all writes were applied
	Success = 0

	// GeneralError indicates an unexpected failure during execution
	GeneralError = 1

	// UsageError indicates invalid command usage (bad flags, missing args)
	UsageError = 2

	// PartialSync indicates some but not all planned writes were applied
	PartialSync = 10

	// SafetyBlocked indicates a pre-flight safety gate refused execution
	SafetyBlocked = 78

	// NotExecutable indicates the command cannot run in this environment
	NotExecutable = 126

	// Interrupted indicates the run was cancelled by SIGINT
	Interrupted = 130
)

// CodeError carries an explicit exit code up through the command layer so
// main can exit with it after the manifest has already been written.
type CodeError struct {
	Code    int
	Message string
}

// Error implements the error interface
func (e *CodeError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("exit code %d: %s", e.Code, Describe(e.Code))
}

// WithCode creates a CodeError for the given code and message
func WithCode(code int, message string) *CodeError {
	return &CodeError{Code: code, Message: message}
}

// Exit terminates the program with the given exit code
func Exit(code int) {
	os.Exit(code)
}

// ExitWithError exits with the code carried by err, or GeneralError when
// the error carries none. A nil error exits with Success.
func ExitWithError(err error) {
	Exit(FromError(err))
}

// FromError extracts an exit code from an error chain
func FromError(err error) int {
	if err == nil {
		return Success
	}
	var ce *CodeError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return GeneralError
}

// Valid reports whether code is a member of the fixed enumeration
func Valid(code int) bool {
	switch code {
	case Success, GeneralError, UsageError, PartialSync, SafetyBlocked, NotExecutable, Interrupted:
		return true
	default:
		return false
	}
}

// Describe returns a human-readable description of an exit code
func Describe(code int) string {
	switch code {
	case Success:
		return "Success"
	case GeneralError:
		return "Unexpected failure"
	case UsageError:
		return "Usage error (invalid flags or arguments)"
	case PartialSync:
		return "Partial sync (some writes not applied)"
	case SafetyBlocked:
		return "Blocked by safety gate"
	case NotExecutable:
		return "Command not executable in this environment"
	case Interrupted:
		return "Cancelled by SIGINT"
	default:
		return "Unknown exit code"
	}
}
