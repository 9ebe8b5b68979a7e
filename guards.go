package actorx

import (
	"fmt"

	"github.com/comalice/actorx/internal/core"
	"github.com/comalice/actorx/internal/extensibility"
)

// Expr compiles a comparison expression such as "count >= 3" into a guard.
// A malformed expression yields a guard that fails with ErrGuardEvaluation.
func Expr(expr string) Guard {
	g, err := extensibility.NewExpressionGuardEvaluator().Compile(expr)
	if err != nil {
		return failingGuard{err: err}
	}
	return g
}

type failingGuard struct{ err error }

func (g failingGuard) Check(core.GuardArgs) (bool, error) { return false, g.err }

// StateIn is enabled while the node with the given id is active.
func StateIn(id string) Guard {
	return stateIn(id)
}

type stateIn string

func (s stateIn) Check(args GuardArgs) (bool, error) {
	if args.In == nil {
		return false, nil
	}
	return args.In(string(s)), nil
}

func (s stateIn) String() string { return "stateIn(" + string(s) + ")" }

// And is enabled when every guard is. Guards are a Guard, a
// func(Context, Event) bool or an expression string.
func And(guards ...any) Guard {
	gs := toGuards(guards)
	return core.GuardFuncArgs(func(args GuardArgs) (bool, error) {
		for _, g := range gs {
			ok, err := g.Check(args)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	})
}

// Or is enabled when any guard is.
func Or(guards ...any) Guard {
	gs := toGuards(guards)
	return core.GuardFuncArgs(func(args GuardArgs) (bool, error) {
		for _, g := range gs {
			ok, err := g.Check(args)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	})
}

// Not negates a guard.
func Not(guard any) Guard {
	g := toGuard(guard)
	return core.GuardFuncArgs(func(args GuardArgs) (bool, error) {
		ok, err := g.Check(args)
		return !ok && err == nil, err
	})
}

func toGuards(vs []any) []Guard {
	out := make([]Guard, len(vs))
	for i, v := range vs {
		out[i] = toGuard(v)
	}
	return out
}

func toGuard(v any) Guard {
	switch g := v.(type) {
	case Guard:
		return g
	case func(Context, Event) bool:
		return GuardFunc(g)
	case string:
		return Expr(g)
	}
	return failingGuard{err: fmt.Errorf("unsupported guard %T", v)}
}
