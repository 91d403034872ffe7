package manifest

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adlift/toolkit/internal/exitcode"
	"github.com/adlift/toolkit/internal/safety"
)

func passingGates() *safety.Options {
	return &safety.Options{
		ToolkitEnv:  "LOCAL",
		DatabaseURL: "postgresql://x@localhost:5432/app",
	}
}

func testParams(t *testing.T, execute ExecuteFunc) Params {
	t.Helper()
	return Params{
		Config: Config{
			Command:        "seed",
			Classification: ClassificationWrite,
		},
		Execute:       execute,
		SafetyOptions: passingGates(),
		ManifestDir:   t.TempDir(),
	}
}

func TestExecuteSuccess(t *testing.T) {
	params := testParams(t, func(b *Builder) (ExecResult, error) {
		step := b.StartStep("LOAD_FIXTURES")
		step.Close(StepClose{Status: StepSuccess, Summary: "10 rows"})
		b.SetResults(Counts{PlannedWrites: 10, AppliedWrites: 10})
		return ExecResult{Status: StatusSuccess, ExitCode: exitcode.Success}, nil
	})

	outcome := Execute(params)

	assert.Equal(t, StatusSuccess, outcome.Status)
	assert.Equal(t, exitcode.Success, outcome.ExitCode)
	assert.NotEmpty(t, outcome.ManifestPath)
	require.NotNil(t, outcome.Manifest)

	require.Len(t, outcome.Manifest.Steps, 3)
	assert.Equal(t, StepSafetyCheck, outcome.Manifest.Steps[0].Name)
	assert.Equal(t, StepSuccess, outcome.Manifest.Steps[0].Status)
	assert.Equal(t, "LOAD_FIXTURES", outcome.Manifest.Steps[1].Name)
	assert.Equal(t, StepExecute, outcome.Manifest.Steps[2].Name)
	assert.Equal(t, 10, outcome.Manifest.Results.AppliedWrites)
}

func TestExecuteBlockedNeverInvokesCallback(t *testing.T) {
	invoked := false
	params := testParams(t, func(b *Builder) (ExecResult, error) {
		invoked = true
		return ExecResult{}, nil
	})
	params.SafetyOptions = &safety.Options{
		ToolkitEnv:  "PRODUCTION",
		DatabaseURL: "postgresql://x@localhost/app",
	}

	outcome := Execute(params)

	assert.False(t, invoked, "execute must not run when a gate blocks")
	assert.Equal(t, StatusBlocked, outcome.Status)
	assert.Equal(t, exitcode.SafetyBlocked, outcome.ExitCode)
	assert.NotEmpty(t, outcome.ManifestPath, "blocked runs still produce a manifest")

	require.Len(t, outcome.Manifest.Steps, 1)
	assert.Equal(t, StepFailed, outcome.Manifest.Steps[0].Status)
	require.NotNil(t, outcome.Manifest.Steps[0].Error)

	require.NotEmpty(t, outcome.Manifest.Results.Errors)
	assert.Equal(t, "GATE-002", outcome.Manifest.Results.Errors[0].Code)
	assert.True(t, outcome.Manifest.Results.Errors[0].Recoverable)
}

func TestExecuteCallbackErrorForcesFailed(t *testing.T) {
	params := testParams(t, func(b *Builder) (ExecResult, error) {
		return ExecResult{}, stderrors.New("deliberate explosion")
	})

	outcome := Execute(params)

	assert.Equal(t, StatusFailed, outcome.Status)
	assert.Equal(t, exitcode.GeneralError, outcome.ExitCode)
	require.NotEmpty(t, outcome.Manifest.Results.Errors)
	assert.Equal(t, "deliberate explosion", outcome.Manifest.Results.Errors[0].Message)
}

func TestExecuteCallbackPanicIsCaught(t *testing.T) {
	params := testParams(t, func(b *Builder) (ExecResult, error) {
		panic("kaboom")
	})

	outcome := Execute(params)

	assert.Equal(t, StatusFailed, outcome.Status)
	assert.Equal(t, exitcode.GeneralError, outcome.ExitCode)
	require.NotEmpty(t, outcome.Manifest.Results.Errors)
	assert.Equal(t, "EXEC-002", outcome.Manifest.Results.Errors[0].Code)
	assert.Contains(t, outcome.Manifest.Results.Errors[0].Message, "kaboom")
}

func TestExecuteSkipSafetyRecordsSkippedStep(t *testing.T) {
	params := testParams(t, func(b *Builder) (ExecResult, error) {
		return ExecResult{Status: StatusSuccess}, nil
	})
	params.SkipSafety = true
	params.SafetyOptions = nil

	outcome := Execute(params)

	assert.Equal(t, StatusSuccess, outcome.Status)
	assert.Equal(t, StepSkipped, outcome.Manifest.Steps[0].Status)
	// No gates ran, so the audit record stays fail-closed.
	assert.True(t, outcome.Manifest.Safety.Blocked)
}

func TestExecuteInvalidManifestDirPreservesOutcome(t *testing.T) {
	occupied := filepath.Join(t.TempDir(), "occupied")
	require.NoError(t, os.WriteFile(occupied, []byte("x"), 0600))

	params := testParams(t, func(b *Builder) (ExecResult, error) {
		return ExecResult{Status: StatusSuccess, ExitCode: exitcode.Success}, nil
	})
	params.ManifestDir = occupied

	outcome := Execute(params)

	assert.Equal(t, StatusSuccess, outcome.Status)
	assert.Equal(t, exitcode.Success, outcome.ExitCode)
	assert.Empty(t, outcome.ManifestPath)
	assert.NotNil(t, outcome.Manifest)
}

func TestActiveBuilderClearedAcrossRuns(t *testing.T) {
	params := testParams(t, func(b *Builder) (ExecResult, error) {
		assert.Same(t, b, ActiveBuilder(), "builder must be registered while running")
		return ExecResult{Status: StatusSuccess}, nil
	})

	for i := 0; i < 3; i++ {
		Execute(params)
		assert.Nil(t, ActiveBuilder(), "active slot must be cleared after run %d", i)
	}
}

func TestActiveBuilderClearedEvenOnPanicAndBlock(t *testing.T) {
	params := testParams(t, func(b *Builder) (ExecResult, error) { panic("boom") })
	Execute(params)
	assert.Nil(t, ActiveBuilder())

	blocked := testParams(t, nil)
	blocked.SafetyOptions = &safety.Options{}
	Execute(blocked)
	assert.Nil(t, ActiveBuilder())
}

func TestEmergencyFinalizeNoopWhenIdle(t *testing.T) {
	assert.Empty(t, EmergencyFinalizeAndWrite("SIGINT"))
}

func TestEmergencyFinalizeDuringRun(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TOOLKIT_MANIFEST_DIR", dir)

	var emergencyPath string
	params := testParams(t, func(b *Builder) (ExecResult, error) {
		// Simulates a signal arriving while execute is in flight.
		emergencyPath = EmergencyFinalizeAndWrite("SIGINT")
		return ExecResult{Status: StatusSuccess, ExitCode: exitcode.Success}, nil
	})
	params.ManifestDir = ""

	outcome := Execute(params)

	require.NotEmpty(t, emergencyPath)
	// The emergency finalize won; the normal path's finalize was a no-op.
	assert.Equal(t, StatusCancelled, outcome.Manifest.Status)
	assert.Equal(t, exitcode.Interrupted, outcome.Manifest.ExitCode)
	assert.Nil(t, ActiveBuilder())

	warnings := outcome.Manifest.Results.Warnings
	require.NotEmpty(t, warnings)
	assert.Contains(t, warnings[0], "SIGINT")
}

func TestEmergencyFinalizeNoopOnceFinalized(t *testing.T) {
	params := testParams(t, func(b *Builder) (ExecResult, error) {
		return ExecResult{Status: StatusSuccess}, nil
	})
	Execute(params)

	assert.Empty(t, EmergencyFinalizeAndWrite("uncaughtException"))
}

func TestEmergencySignalMapping(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TOOLKIT_MANIFEST_DIR", dir)

	b := NewBuilder(Config{Command: "seed", Classification: ClassificationWrite})
	setActive(b)
	path := EmergencyFinalizeAndWrite("SIGTERM")

	require.NotEmpty(t, path)
	doc := b.Finalize(StatusSuccess, exitcode.Success) // returns the frozen doc
	assert.Equal(t, StatusFailed, doc.Status)
	assert.Equal(t, exitcode.GeneralError, doc.ExitCode)
}
