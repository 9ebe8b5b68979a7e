package extensibility

import (
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/comalice/actorx/internal/core"
	"github.com/comalice/actorx/internal/primitives"
)

func call(do func() error) core.ActionCall {
	return core.ActionCall{
		Executable: core.Executable{
			Action: core.ExecAction{Name: "notify"},
			Event:  primitives.NewEvent("test", nil),
			Node:   "a",
		},
		ActorID: "actor-1",
		Do:      do,
	}
}

func TestDefaultActionRunner_Run(t *testing.T) {
	called := false
	r := &DefaultActionRunner{}
	if err := r.Run(call(func() error { called = true; return nil })); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if !called {
		t.Error("action not called")
	}
}

func TestDefaultActionRunner_Run_Nil(t *testing.T) {
	r := &DefaultActionRunner{}
	if err := r.Run(call(nil)); err != nil {
		t.Errorf("unexpected error for nil: %v", err)
	}
}

func TestDefaultActionRunner_Run_Error(t *testing.T) {
	cause := errors.New("disk full")
	r := &DefaultActionRunner{}
	err := r.Run(call(func() error { return cause }))
	if !errors.Is(err, core.ErrActionExecution) {
		t.Errorf("expected action execution error, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Error("cause lost")
	}
}

func TestDefaultActionRunner_Run_Panic(t *testing.T) {
	r := &DefaultActionRunner{}
	err := r.Run(call(func() error { panic("boom") }))
	if !errors.Is(err, core.ErrActionExecution) {
		t.Fatalf("expected action execution error, got %v", err)
	}
}

func TestLoggingActionRunner(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	r := NewLoggingActionRunner(nil, logrus.NewEntry(logger))

	if err := r.Run(call(func() error { return nil })); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if len(hook.AllEntries()) != 2 {
		t.Fatalf("expected 2 log entries, got %d", len(hook.AllEntries()))
	}
	if got := hook.LastEntry().Data["action"]; got != "notify" {
		t.Errorf("action field = %v", got)
	}

	hook.Reset()
	if err := r.Run(call(func() error { return errors.New("nope") })); err == nil {
		t.Error("expected error")
	}
	if hook.LastEntry().Level != logrus.ErrorLevel {
		t.Errorf("failure logged at %v", hook.LastEntry().Level)
	}
}
