package loader

import (
	"fmt"
	"strings"
	"time"

	"github.com/comalice/actorx"
)

// convertActions replaces built-in action mappings with actions. Strings and
// action values pass through.
func convertActions(refs []actorx.ActionRef) ([]actorx.ActionRef, error) {
	if refs == nil {
		return nil, nil
	}
	out := make([]actorx.ActionRef, len(refs))
	for i, ref := range refs {
		m, ok := ref.(map[string]any)
		if !ok {
			out[i] = ref
			continue
		}
		a, err := builtin(m)
		if err != nil {
			return nil, err
		}
		out[i] = a
	}
	return out, nil
}

func builtin(m map[string]any) (actorx.Action, error) {
	if len(m) != 1 {
		return nil, fmt.Errorf("action mapping must have exactly one key, got %d", len(m))
	}
	for kind, arg := range m {
		switch kind {
		case "raise":
			return actorx.Raise(actorx.NewEvent(str(arg), nil)), nil
		case "log":
			return actorx.Log(str(arg)), nil
		case "assign":
			values, _ := arg.(map[string]any)
			return assignValues(values), nil
		case "increment":
			return increment(arg), nil
		case "sendParent":
			return actorx.SendParent(str(arg)), nil
		case "sendTo":
			return sendTo(arg)
		case "cancel":
			return actorx.Cancel(str(arg)), nil
		case "stopChild":
			return actorx.StopChild(str(arg)), nil
		default:
			return nil, fmt.Errorf("unknown built-in action %q", kind)
		}
	}
	return nil, nil
}

// assignValues sets context keys to literals. A string value "$event" copies
// the event payload, "$event.key" one of its fields and "$context.key"
// another context key.
func assignValues(values map[string]any) actorx.Action {
	return actorx.Assign(func(ctx actorx.Context, ev actorx.Event) actorx.Context {
		patch := make(actorx.Context, len(values))
		for k, v := range values {
			patch[k] = resolveValue(v, ctx, ev)
		}
		return patch
	})
}

func resolveValue(v any, ctx actorx.Context, ev actorx.Event) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	switch {
	case s == "$event":
		return ev.Data
	case strings.HasPrefix(s, "$event."):
		got, _ := ev.Get(strings.TrimPrefix(s, "$event."))
		return got
	case strings.HasPrefix(s, "$context."):
		return ctx[strings.TrimPrefix(s, "$context.")]
	}
	return s
}

func increment(arg any) actorx.Action {
	key, by := "", 1.0
	switch a := arg.(type) {
	case string:
		key = a
	case map[string]any:
		key = str(a["key"])
		if n, ok := number(a["by"]); ok {
			by = n
		}
	}
	return actorx.AssignKey(key, func(ctx actorx.Context, _ actorx.Event) any {
		cur, _ := number(ctx[key])
		sum := cur + by
		if sum == float64(int(sum)) {
			return int(sum)
		}
		return sum
	})
}

func sendTo(arg any) (actorx.Action, error) {
	m, _ := arg.(map[string]any)
	var opts []actorx.SendOption
	if d := str(m["delay"]); d != "" {
		dur, err := time.ParseDuration(d)
		if err != nil {
			return nil, fmt.Errorf("sendTo delay: %w", err)
		}
		opts = append(opts, actorx.WithDelay(dur))
	}
	if id := str(m["id"]); id != "" {
		opts = append(opts, actorx.WithSendID(id))
	}
	return actorx.SendTo(str(m["target"]), str(m["event"]), opts...), nil
}

func str(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
