package manifest

import (
	"fmt"
	"sync"

	"github.com/adlift/toolkit/internal/errors"
	"github.com/adlift/toolkit/internal/exitcode"
	"github.com/adlift/toolkit/internal/safety"
)

// Step names used by the pipeline itself
const (
	StepSafetyCheck = "SAFETY_CHECK"
	StepExecute     = "EXECUTE"
)

// ExecResult is what an execute callback reports back on success
type ExecResult struct {
	Status   Status
	ExitCode int
}

// ExecuteFunc is the caller-supplied command body. It may record steps,
// tenant and counts through the builder; its returned result becomes the
// run's terminal status. A returned error (or panic) forces FAILED/1.
type ExecuteFunc func(b *Builder) (ExecResult, error)

// Params configures one pipeline run
type Params struct {
	Config        Config
	Execute       ExecuteFunc
	SafetyOptions *safety.Options
	ManifestDir   string
	SkipSafety    bool
}

// Outcome is returned to the caller in place of any exception: the
// pipeline's public functions never propagate errors.
type Outcome struct {
	Status       Status
	ExitCode     int
	ManifestPath string
	Manifest     *Document
}

// At most one run is active per process. The slot is set at run start
// and cleared in a defer on every path, which is what keeps repeated
// runs from accumulating stale references.
var (
	activeMu      sync.Mutex
	activeBuilder *Builder
)

// ActiveBuilder returns the currently active run's builder, or nil. The
// embedding CLI uses this to decide whether an emergency finalize is
// needed at all.
func ActiveBuilder() *Builder {
	activeMu.Lock()
	defer activeMu.Unlock()
	return activeBuilder
}

func setActive(b *Builder) {
	activeMu.Lock()
	defer activeMu.Unlock()
	activeBuilder = b
}

func clearActive(b *Builder) {
	activeMu.Lock()
	defer activeMu.Unlock()
	if activeBuilder == b {
		activeBuilder = nil
	}
}

// Execute runs one command through the full pipeline: gate evaluation,
// the caller's execute callback, finalize, and write. Every invocation
// produces exactly one manifest, including blocked and failed runs.
func Execute(params Params) Outcome {
	b := NewBuilder(params.Config)
	setActive(b)
	defer clearActive(b)

	status, code := runGated(b, params)

	doc := b.Finalize(status, code)
	path := Write(doc, params.ManifestDir)

	return Outcome{
		Status:       doc.Status,
		ExitCode:     doc.ExitCode,
		ManifestPath: path,
		Manifest:     doc,
	}
}

func runGated(b *Builder, params Params) (Status, int) {
	if !params.SkipSafety {
		gateStep := b.StartStep(StepSafetyCheck)

		opts := safety.FromEnv()
		if params.SafetyOptions != nil {
			opts = *params.SafetyOptions
		}
		res := safety.Evaluate(opts)
		b.SetSafety(res)

		if res.Blocked {
			gateErr := gateError(res)
			gateStep.Close(StepClose{
				Status:  StepFailed,
				Summary: fmt.Sprintf("blocked by %s gate", res.BlockedGate),
				Err:     gateErr,
			})
			b.AddError(gateErr)
			return StatusBlocked, exitcode.SafetyBlocked
		}

		gateStep.Close(StepClose{
			Status:  StepSuccess,
			Summary: fmt.Sprintf("%d gates passed", len(res.Gates)),
		})
	} else {
		skipStep := b.StartStep(StepSafetyCheck)
		skipStep.Close(StepClose{
			Status:  StepSkipped,
			Summary: "safety gates skipped by caller",
		})
	}

	if params.Execute == nil {
		return StatusSuccess, exitcode.Success
	}

	execStep := b.StartStep(StepExecute)
	result, err := invoke(params.Execute, b)
	if err != nil {
		execStep.Close(StepClose{Status: StepFailed, Summary: "execute callback failed", Err: err})
		b.AddError(err)
		return StatusFailed, exitcode.GeneralError
	}

	execStep.Close(StepClose{Status: StepSuccess})
	if result.Status == "" {
		result.Status = StatusSuccess
	}
	return result.Status, result.ExitCode
}

// invoke runs the execute callback, converting a panic into an error so
// it is caught exactly once at this boundary and never rethrown past
// the pipeline.
func invoke(fn ExecuteFunc, b *Builder) (result ExecResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.New(errors.ErrCodeExecPanic, fmt.Sprintf("execute callback panicked: %v", r))
		}
	}()
	return fn(b)
}

// gateError maps a blocked gate evaluation to its stable error code
func gateError(res safety.Result) error {
	reasonCode := ""
	for _, gate := range res.Gates {
		if gate.Name == res.BlockedGate {
			reasonCode = gate.ReasonCode
			break
		}
	}

	code := errors.ErrCodeGateEnvBlocked
	switch {
	case res.BlockedGate == safety.GateEnvironment && reasonCode == safety.ReasonMissing:
		code = errors.ErrCodeGateEnvMissing
	case res.BlockedGate == safety.GateDatabaseHost && res.Database.Class == safety.ClassBlocked:
		code = errors.ErrCodeGateDBBlocked
	case res.BlockedGate == safety.GateDatabaseHost:
		code = errors.ErrCodeGateDBUnknown
	}
	return errors.New(code, fmt.Sprintf("safety gate %s failed: %s", res.BlockedGate, res.BlockedReason)).AsRecoverable()
}

// EmergencyFinalizeAndWrite force-finalizes the active run from a crash
// handler. SIGINT maps to CANCELLED/130; anything else to FAILED/1. A
// guaranteed no-op when no run is active or the active run has already
// finalized. Go file I/O is synchronous, so the emergency path can share
// the writer with the normal path. A signal landing mid-write can leave
// both paths writing; both derive the same filename from the run id, so
// the last rename wins with identical content.
func EmergencyFinalizeAndWrite(signal string) string {
	activeMu.Lock()
	b := activeBuilder
	activeBuilder = nil
	activeMu.Unlock()

	if b == nil || b.Finalized() {
		return ""
	}

	status, code := StatusFailed, exitcode.GeneralError
	if signal == "SIGINT" {
		status, code = StatusCancelled, exitcode.Interrupted
	}

	b.AddWarning(fmt.Sprintf("emergency finalize triggered by %s", signal))
	b.Stage(status, code)
	doc := b.EmergencyFinalize()
	return Write(doc, "")
}
