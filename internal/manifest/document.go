// Package manifest implements the run-manifest pipeline: a safety-gated
// execution wrapper that records every write-capable command as a
// schema-versioned, redacted, atomically persisted audit document.
package manifest

import (
	"time"

	"github.com/adlift/toolkit/internal/redact"
	"github.com/adlift/toolkit/internal/safety"
)

// SchemaVersion identifies the document layout. Any breaking field
// change requires a bump.
const SchemaVersion = "1.0"

// Status is the terminal status of a run
type Status string

const (
	StatusSuccess   Status = "SUCCESS"
	StatusFailed    Status = "FAILED"
	StatusBlocked   Status = "BLOCKED"
	StatusCancelled Status = "CANCELLED"
)

// StepStatus is the outcome of a single step within a run
type StepStatus string

const (
	StepSuccess StepStatus = "SUCCESS"
	StepFailed  StepStatus = "FAILED"
	StepSkipped StepStatus = "SKIPPED"
)

// Classification describes what a command is allowed to do to data
type Classification string

const (
	ClassificationRead        Classification = "READ"
	ClassificationWrite       Classification = "WRITE"
	ClassificationDestructive Classification = "DESTRUCTIVE"
)

// ExecutionMode records how the run was started
type ExecutionMode string

const (
	ModeCLI ExecutionMode = "CLI"
	ModeAPI ExecutionMode = "API"
)

// Size bounds enforced on every document.
const (
	// MaxWarnings caps results.warnings (plus one truncation marker)
	MaxWarnings = 50

	// MaxErrors caps results.errors (plus one truncation marker)
	MaxErrors = 10

	// MaxDocumentBytes caps the serialized document; larger documents
	// are reported to stderr and never written
	MaxDocumentBytes = 256 << 10
)

// Runtime describes the process that produced the manifest
type Runtime struct {
	ToolVersion string `json:"toolVersion"`
	GoVersion   string `json:"goVersion"`
	OS          string `json:"os"`
	PID         int    `json:"pid"`
}

// Confirmation records how a destructive command was confirmed
type Confirmation struct {
	Required bool   `json:"required"`
	Received bool   `json:"received"`
	Method   string `json:"method,omitempty"`
}

// Invocation describes the command that was run. Args are redacted
// before they ever reach this struct.
type Invocation struct {
	Command        string            `json:"command"`
	Classification Classification    `json:"classification"`
	Args           map[string]string `json:"args,omitempty"`
	Flags          map[string]string `json:"flags,omitempty"`
	Confirmation   *Confirmation     `json:"confirmation,omitempty"`
}

// Tenant identifies which tenant's data the command touched
type Tenant struct {
	ID          string `json:"id"`
	Slug        string `json:"slug"`
	DisplayName string `json:"displayName,omitempty"`
	ResolvedBy  string `json:"resolvedBy,omitempty"`
}

// Step is one named, timed phase of a run
type Step struct {
	Name       string                 `json:"name"`
	StartedAt  time.Time              `json:"startedAt"`
	FinishedAt time.Time              `json:"finishedAt"`
	DurationMs int64                  `json:"durationMs"`
	Status     StepStatus             `json:"status"`
	Summary    string                 `json:"summary,omitempty"`
	Metrics    map[string]int64       `json:"metrics,omitempty"`
	Error      *redact.SanitizedError `json:"error,omitempty"`
}

// Counts are the write-volume numbers recorded by the execute callback
type Counts struct {
	PlannedWrites    int `json:"plannedWrites"`
	AppliedWrites    int `json:"appliedWrites"`
	ExternalCalls    int `json:"externalCalls"`
	FilesystemWrites int `json:"filesystemWrites"`
}

// Results aggregates outcome data; warnings and errors are size-bounded
type Results struct {
	Counts
	Warnings []string                 `json:"warnings"`
	Errors   []*redact.SanitizedError `json:"errors"`
}

// Document is the immutable, schema-versioned record of one command
// execution. It is produced exactly once per run by Builder.Finalize and
// never mutated afterwards.
type Document struct {
	SchemaVersion string        `json:"schemaVersion"`
	RunID         string        `json:"runId"`
	StartedAt     time.Time     `json:"startedAt"`
	FinishedAt    time.Time     `json:"finishedAt"`
	DurationMs    int64         `json:"durationMs"`
	Status        Status        `json:"status"`
	ExitCode      int           `json:"exitCode"`
	ExecutionMode ExecutionMode `json:"executionMode"`
	TTY           bool          `json:"tty"`
	Runtime       Runtime       `json:"runtime"`
	Invocation    Invocation    `json:"invocation"`
	Safety        safety.Result `json:"safety"`
	Tenant        *Tenant       `json:"tenant,omitempty"`
	Steps         []Step        `json:"steps"`
	Results       Results       `json:"results"`
}
