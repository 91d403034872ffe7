package exitcode

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValid(t *testing.T) {
	valid := []int{0, 1, 2, 10, 78, 126, 130}
	for _, code := range valid {
		assert.True(t, Valid(code), "code %d should be valid", code)
	}

	invalid := []int{-1, 3, 11, 77, 127, 255}
	for _, code := range invalid {
		assert.False(t, Valid(code), "code %d should be invalid", code)
	}
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		code int
		want string
	}{
		{Success, "Success"},
		{SafetyBlocked, "Blocked by safety gate"},
		{Interrupted, "Cancelled by SIGINT"},
		{999, "Unknown exit code"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Describe(tt.code))
	}
}

func TestFromError(t *testing.T) {
	assert.Equal(t, Success, FromError(nil))
	assert.Equal(t, GeneralError, FromError(fmt.Errorf("boom")))
	assert.Equal(t, SafetyBlocked, FromError(WithCode(SafetyBlocked, "gate refused")))

	// Wrapped CodeError is still recovered.
	wrapped := fmt.Errorf("run failed: %w", WithCode(Interrupted, ""))
	assert.Equal(t, Interrupted, FromError(wrapped))
}

func TestCodeErrorMessage(t *testing.T) {
	err := WithCode(SafetyBlocked, "")
	assert.Contains(t, err.Error(), "Blocked by safety gate")

	err = WithCode(GeneralError, "deliberate explosion")
	assert.Equal(t, "deliberate explosion", err.Error())
}
