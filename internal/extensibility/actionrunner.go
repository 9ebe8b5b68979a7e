// Package extensibility holds the pluggable pieces an actor is assembled
// from: action runners, the expression language for string guards, and
// event sources that feed observable logic.
package extensibility

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/comalice/actorx/internal/core"
)

// DefaultActionRunner executes an action and classifies its failure.
type DefaultActionRunner struct{}

// Run calls call.Do. Errors and panics become ErrActionExecution.
func (r *DefaultActionRunner) Run(call core.ActionCall) (err error) {
	if call.Do == nil {
		return nil
	}
	defer func() {
		if rec := recover(); rec != nil {
			err = core.Errorf(core.CodeActionExecution, call.Node, "panic in %s: %v", core.ActionName(call.Action), rec)
		}
	}()
	if err := call.Do(); err != nil {
		if core.CodeOf(err) != "" {
			return err
		}
		return core.Wrap(core.CodeActionExecution, call.Node, err)
	}
	return nil
}

// LoggingActionRunner wraps an ActionRunner and logs around execution.
type LoggingActionRunner struct {
	inner core.ActionRunner
	log   *logrus.Entry
}

// NewLoggingActionRunner creates a LoggingActionRunner. A nil logger uses
// the logrus standard logger.
func NewLoggingActionRunner(inner core.ActionRunner, logger *logrus.Entry) *LoggingActionRunner {
	if inner == nil {
		inner = &DefaultActionRunner{}
	}
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &LoggingActionRunner{inner: inner, log: logger}
}

// Run logs before and after delegating to the inner runner.
func (r *LoggingActionRunner) Run(call core.ActionCall) error {
	entry := r.log.WithFields(logrus.Fields{
		"actor":  call.ActorID,
		"action": core.ActionName(call.Action),
		"event":  call.Event.Type,
		"node":   call.Node,
	})
	entry.Debug("executing action")
	start := time.Now()
	err := r.inner.Run(call)
	entry = entry.WithField("elapsed", time.Since(start))
	if err != nil {
		entry.WithError(err).Error("action failed")
		return err
	}
	entry.Debug("action completed")
	return nil
}
