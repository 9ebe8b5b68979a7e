package extensibility

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/comalice/actorx/internal/core"
	"github.com/comalice/actorx/internal/primitives"
)

// ExpressionGuardEvaluator evaluates simple comparisons such as
// "temp > 30", "event.by >= 2" or "status == 'ready'".
//
// Operands are literals (numbers, quoted strings, true, false, nil), event
// payload paths ("event.key") or context paths ("context.key", "ctx.key" or
// a bare key). Missing operands make the guard fail closed.
type ExpressionGuardEvaluator struct{}

// NewExpressionGuardEvaluator creates a new ExpressionGuardEvaluator.
func NewExpressionGuardEvaluator() *ExpressionGuardEvaluator {
	return &ExpressionGuardEvaluator{}
}

// operators are matched longest first.
var operators = []string{">=", "<=", "==", "!=", ">", "<"}

type expression struct {
	source   string
	lhs, rhs string
	op       string
}

// Compile parses expr once and returns it as a guard.
func (e *ExpressionGuardEvaluator) Compile(expr string) (core.Guard, error) {
	parsed, err := parse(expr)
	if err != nil {
		return nil, err
	}
	return parsed, nil
}

// Eval parses and evaluates expr against ctx and ev.
func (e *ExpressionGuardEvaluator) Eval(ctx primitives.Context, expr string, ev primitives.Event) (bool, error) {
	parsed, err := parse(expr)
	if err != nil {
		return false, err
	}
	return parsed.Check(core.GuardArgs{Context: ctx, Event: ev})
}

func parse(expr string) (*expression, error) {
	for i := 0; i < len(expr); i++ {
		for _, op := range operators {
			if !strings.HasPrefix(expr[i:], op) {
				continue
			}
			lhs := strings.TrimSpace(expr[:i])
			rhs := strings.TrimSpace(expr[i+len(op):])
			if lhs == "" || rhs == "" {
				return nil, fmt.Errorf("expression %q: missing operand", expr)
			}
			return &expression{source: expr, lhs: lhs, rhs: rhs, op: op}, nil
		}
	}
	return nil, fmt.Errorf("expression %q: no comparison operator", expr)
}

func (x *expression) String() string { return x.source }

// Check implements core.Guard.
func (x *expression) Check(args core.GuardArgs) (bool, error) {
	l, ok := operand(x.lhs, args)
	if !ok {
		return false, nil
	}
	r, ok := operand(x.rhs, args)
	if !ok {
		return false, nil
	}

	switch x.op {
	case "==":
		return equal(l, r), nil
	case "!=":
		return !equal(l, r), nil
	}

	if lf, lok := toFloat(l); lok {
		if rf, rok := toFloat(r); rok {
			return compare(x.op, lf, rf), nil
		}
	}
	ls, lok := l.(string)
	rs, rok := r.(string)
	if lok && rok {
		return compare(x.op, ls, rs), nil
	}
	return false, nil
}

func compare[T float64 | string](op string, a, b T) bool {
	switch op {
	case ">":
		return a > b
	case ">=":
		return a >= b
	case "<":
		return a < b
	case "<=":
		return a <= b
	}
	return false
}

func equal(a, b any) bool {
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		return af == bf
	}
	return reflect.DeepEqual(a, b)
}

func operand(tok string, args core.GuardArgs) (any, bool) {
	switch tok {
	case "true":
		return true, true
	case "false":
		return false, true
	case "nil", "null":
		return nil, true
	}
	if len(tok) >= 2 && (tok[0] == '\'' || tok[0] == '"') && tok[len(tok)-1] == tok[0] {
		return tok[1 : len(tok)-1], true
	}
	if f, err := strconv.ParseFloat(tok, 64); err == nil {
		return f, true
	}

	if rest, ok := strings.CutPrefix(tok, "event."); ok {
		return lookup(args.Event.Data, strings.Split(rest, "."))
	}
	for _, prefix := range []string{"context.", "ctx."} {
		if rest, ok := strings.CutPrefix(tok, prefix); ok {
			return lookup(args.Context, strings.Split(rest, "."))
		}
	}
	return lookup(args.Context, strings.Split(tok, "."))
}

func lookup(v any, path []string) (any, bool) {
	for _, key := range path {
		switch m := v.(type) {
		case primitives.Context:
			v = m[key]
			if _, ok := m[key]; !ok {
				return nil, false
			}
		case map[string]any:
			v = m[key]
			if _, ok := m[key]; !ok {
				return nil, false
			}
		default:
			return nil, false
		}
	}
	return v, true
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
