package actorx

import (
	"errors"

	"github.com/comalice/actorx/internal/core"
)

// Error taxonomy. Match with errors.Is.
var (
	ErrInvalidModel      = core.ErrInvalidModel
	ErrGuardEvaluation   = core.ErrGuardEvaluation
	ErrActionExecution   = core.ErrActionExecution
	ErrRuntimeFault      = core.ErrRuntimeFault
	ErrDuplicateSystemID = core.ErrDuplicateSystemID
	ErrNotFound          = core.ErrNotFound
)

var (
	// ErrActorStopped is returned by ToPromise and WaitFor when the actor
	// stopped before producing what the caller waited for.
	ErrActorStopped = errors.New("actor stopped")

	// ErrNotRunning is returned by operations that need a running actor.
	ErrNotRunning = errors.New("actor is not running")
)

// ErrorCode returns the taxonomy code of err, or "" when err is not an
// engine error.
func ErrorCode(err error) string {
	return string(core.CodeOf(err))
}
