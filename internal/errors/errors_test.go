package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToolkitError(t *testing.T) {
	err := New(ErrCodeGateEnvMissing, "TOOLKIT_ENV is not set")
	assert.Equal(t, "[GATE-001] TOOLKIT_ENV is not set", err.Error())
	assert.False(t, err.Recoverable)

	err = err.AsRecoverable()
	assert.True(t, err.Recoverable)
}

func TestWrap(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := Wrap(ErrCodeDBConnectFailed, "opening database", cause)

	assert.Contains(t, err.Error(), "DB-001")
	assert.Contains(t, err.Error(), "connection refused")
	assert.True(t, stderrors.Is(err, cause))
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, ErrCodeExecFailed, CodeOf(stderrors.New("plain")))
	assert.Equal(t, ErrCodeGateDBBlocked, CodeOf(New(ErrCodeGateDBBlocked, "managed host")))

	wrapped := fmt.Errorf("outer: %w", New(ErrCodeDBTenantUnknown, "no such tenant"))
	assert.Equal(t, ErrCodeDBTenantUnknown, CodeOf(wrapped))
}

func TestIsRecoverable(t *testing.T) {
	assert.False(t, IsRecoverable(stderrors.New("plain")))
	assert.False(t, IsRecoverable(New(ErrCodeExecFailed, "boom")))
	assert.True(t, IsRecoverable(New(ErrCodeGateEnvBlocked, "env not writable").AsRecoverable()))
}
