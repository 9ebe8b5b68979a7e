package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMatching(t *testing.T) {
	cause := errors.New("disk full")
	err := fmt.Errorf("saving: %w", Wrap(CodeActionExecution, "a.b", cause))

	assert.True(t, errors.Is(err, ErrActionExecution))
	assert.False(t, errors.Is(err, ErrGuardEvaluation))
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, CodeActionExecution, CodeOf(err))
	assert.Equal(t, ErrorCode(""), CodeOf(cause))
	assert.Contains(t, err.Error(), "node=a.b")
}

func TestRecoveredPanics(t *testing.T) {
	e := recovered(CodeGuardEvaluation, "n", "boom")
	assert.Equal(t, "GUARD_EVALUATION: panic: boom (node=n)", e.Error())

	inner := errors.New("inner")
	e = recovered(CodeActionExecution, "", inner)
	assert.True(t, errors.Is(e, inner))
	assert.Equal(t, "ACTION_EXECUTION: panic: inner", e.Error())
}
