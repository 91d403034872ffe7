package manifest

import (
	"fmt"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-isatty"

	"github.com/adlift/toolkit/internal/exitcode"
	"github.com/adlift/toolkit/internal/redact"
	"github.com/adlift/toolkit/internal/safety"
	"github.com/adlift/toolkit/internal/version"
)

// Config describes the command a Builder will record
type Config struct {
	ExecutionMode  ExecutionMode
	Command        string
	Classification Classification
	Args           map[string]string
	Flags          map[string]string
}

// Builder accumulates one run's lifecycle and produces the immutable
// Document on finalize. A Builder is single-use: once finalized, every
// mutator becomes a no-op and Finalize keeps returning the same
// Document (first-call-wins).
//
// The mutex exists for the one legitimate interleaving: an emergency
// finalize triggered from a signal handler while the normal path is
// still running.
type Builder struct {
	mu sync.Mutex

	runID     string
	startedAt time.Time
	mode      ExecutionMode
	tty       bool

	invocation   Invocation
	safetyResult *safety.Result
	tenant       *Tenant
	counts       Counts

	steps    []Step
	warnings []string
	errs     []*redact.SanitizedError

	// dropped entries are counted so finalize can append a single
	// truncation marker within the cap
	droppedWarnings int
	droppedErrors   int

	// staged status is what an emergency finalize will record; it is
	// BLOCKED/78 until the run proves otherwise (fail-closed)
	stagedStatus Status
	stagedExit   int

	finalized bool
	final     *Document
}

// NewBuilder constructs a Builder for one run. Args are redacted here;
// raw argument values are never stored.
func NewBuilder(cfg Config) *Builder {
	mode := cfg.ExecutionMode
	if mode == "" {
		mode = ModeCLI
	}
	return &Builder{
		runID:     uuid.New().String(),
		startedAt: time.Now().UTC(),
		mode:      mode,
		tty:       isatty.IsTerminal(os.Stderr.Fd()),
		invocation: Invocation{
			Command:        cfg.Command,
			Classification: cfg.Classification,
			Args:           redact.Args(cfg.Args),
			Flags:          redact.Args(cfg.Flags),
		},
		stagedStatus: StatusBlocked,
		stagedExit:   exitcode.SafetyBlocked,
	}
}

// RunID returns the run identifier generated at construction
func (b *Builder) RunID() string {
	return b.runID
}

// Command returns the command name being recorded
func (b *Builder) Command() string {
	return b.invocation.Command
}

// Finalized reports whether the builder has produced its document
func (b *Builder) Finalized() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.finalized
}

// StepHandle records one step. It references the builder only through a
// closure, so a handle held past finalize cannot mutate the frozen
// document.
type StepHandle struct {
	name      string
	startedAt time.Time
	closed    bool
	record    func(Step)
}

// StepClose carries the outcome of a step
type StepClose struct {
	Status  StepStatus
	Summary string
	Metrics map[string]int64
	Err     error
}

// StartStep opens a named step and returns its handle
func (b *Builder) StartStep(name string) *StepHandle {
	return &StepHandle{
		name:      name,
		startedAt: time.Now().UTC(),
		record:    b.appendStep,
	}
}

// Close records the step exactly once; subsequent calls are no-ops.
func (h *StepHandle) Close(c StepClose) {
	if h.closed {
		return
	}
	h.closed = true

	finished := time.Now().UTC()
	h.record(Step{
		Name:       h.name,
		StartedAt:  h.startedAt,
		FinishedAt: finished,
		DurationMs: finished.Sub(h.startedAt).Milliseconds(),
		Status:     c.Status,
		Summary:    redact.Truncate(c.Summary, redact.MaxStepSummaryLen),
		Metrics:    c.Metrics,
		Error:      redact.Error(c.Err),
	})
}

func (b *Builder) appendStep(step Step) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.finalized {
		return
	}
	b.steps = append(b.steps, step)
}

// SetSafety records the gate evaluation outcome
func (b *Builder) SetSafety(res safety.Result) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.finalized {
		return
	}
	b.safetyResult = &res
}

// SetTenant records which tenant the run operated on
func (b *Builder) SetTenant(t Tenant) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.finalized {
		return
	}
	b.tenant = &t
}

// SetConfirmation records how a destructive command was confirmed
func (b *Builder) SetConfirmation(c Confirmation) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.finalized {
		return
	}
	b.invocation.Confirmation = &c
}

// SetResults records the write-volume counts
func (b *Builder) SetResults(c Counts) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.finalized {
		return
	}
	b.counts = c
}

// AddWarning appends a warning, refusing additions beyond the cap
func (b *Builder) AddWarning(msg string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.finalized {
		return
	}
	if len(b.warnings) >= MaxWarnings {
		b.droppedWarnings++
		return
	}
	b.warnings = append(b.warnings, redact.Truncate(redact.ScrubCredentials(msg), redact.MaxErrorMessageLen))
}

// AddError appends a sanitized error, refusing additions beyond the cap
func (b *Builder) AddError(err error) {
	if err == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.finalized {
		return
	}
	if len(b.errs) >= MaxErrors {
		b.droppedErrors++
		return
	}
	b.errs = append(b.errs, redact.Error(err))
}

// Stage records the status an emergency finalize should use, without
// finalizing. No-op after finalize.
func (b *Builder) Stage(status Status, exitCode int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.finalized {
		return
	}
	b.stagedStatus = status
	b.stagedExit = exitCode
}

// Finalize freezes the builder and produces the Document. The first
// call wins; subsequent calls return the original document and ignore
// their arguments.
func (b *Builder) Finalize(status Status, exitCode int) *Document {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.finalizeLocked(status, exitCode)
}

// EmergencyFinalize finalizes with whatever status is currently staged
// (initially BLOCKED/78). Used by crash paths that cannot compute a
// meaningful status. Same first-call-wins contract as Finalize.
func (b *Builder) EmergencyFinalize() *Document {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.finalizeLocked(b.stagedStatus, b.stagedExit)
}

func (b *Builder) finalizeLocked(status Status, exitCode int) *Document {
	if b.finalized {
		return b.final
	}
	b.finalized = true

	finished := time.Now().UTC()

	warnings := b.warnings
	if b.droppedWarnings > 0 {
		warnings = append(warnings, fmt.Sprintf("+%d more warnings truncated", b.droppedWarnings))
	}
	if warnings == nil {
		warnings = []string{}
	}

	errs := b.errs
	if b.droppedErrors > 0 {
		errs = append(errs, &redact.SanitizedError{
			Code:    "EXEC-004",
			Message: fmt.Sprintf("+%d more errors truncated", b.droppedErrors),
		})
	}
	if errs == nil {
		errs = []*redact.SanitizedError{}
	}

	// A run that finalizes without any gate evaluation must not look
	// safe in the audit trail.
	safetyResult := safety.Unknown()
	if b.safetyResult != nil {
		safetyResult = *b.safetyResult
	}

	steps := b.steps
	if steps == nil {
		steps = []Step{}
	}

	info := version.GetInfo()
	b.final = &Document{
		SchemaVersion: SchemaVersion,
		RunID:         b.runID,
		StartedAt:     b.startedAt,
		FinishedAt:    finished,
		DurationMs:    finished.Sub(b.startedAt).Milliseconds(),
		Status:        status,
		ExitCode:      exitCode,
		ExecutionMode: b.mode,
		TTY:           b.tty,
		Runtime: Runtime{
			ToolVersion: info.Version,
			GoVersion:   info.GoVersion,
			OS:          runtime.GOOS,
			PID:         os.Getpid(),
		},
		Invocation: b.invocation,
		Safety:     safetyResult,
		Tenant:     b.tenant,
		Steps:      steps,
		Results: Results{
			Counts:   b.counts,
			Warnings: warnings,
			Errors:   errs,
		},
	}
	return b.final
}
