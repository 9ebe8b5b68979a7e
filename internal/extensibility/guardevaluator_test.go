package extensibility

import (
	"testing"

	"github.com/comalice/actorx/internal/primitives"
)

func TestExpressionGuardEvaluator(t *testing.T) {
	ctx := primitives.Context{
		"temp":     35.0,
		"count":    3,
		"loggedIn": true,
		"status":   "ready",
		"user":     map[string]any{"age": 42},
	}
	ev := primitives.NewEvent("test", map[string]any{"by": 2})

	tests := []struct {
		expr string
		want bool
	}{
		{"temp > 30", true},
		{"temp < 30", false},
		{"temp == 35", true},
		{"temp != 35", false},
		{"count >= 3", true},
		{"count<=2", false},
		{"context.count == 3", true},
		{"ctx.count > 2.5", true},
		{"loggedIn == true", true},
		{"loggedIn != false", true},
		{"status == 'ready'", true},
		{`status == "idle"`, false},
		{"status > 'a'", true},
		{"event.by >= 2", true},
		{"event.by == count", false},
		{"user.age == 42", true},
		{"missing == nil", false},
		{"missing != 1", false},
		{"event.nope > 1", false},
		{"status > 1", false},
	}
	e := NewExpressionGuardEvaluator()
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := e.Eval(ctx, tt.expr, ev)
			if err != nil {
				t.Fatalf("Eval(%q) error: %v", tt.expr, err)
			}
			if got != tt.want {
				t.Errorf("Eval(%q) = %v, want %v", tt.expr, got, tt.want)
			}
		})
	}
}

func TestExpressionGuardEvaluator_Malformed(t *testing.T) {
	e := NewExpressionGuardEvaluator()
	for _, expr := range []string{"temp", "> 3", "temp >", "a = b"} {
		if _, err := e.Compile(expr); err == nil {
			t.Errorf("Compile(%q) expected error", expr)
		}
	}
}

func TestExpressionGuardEvaluator_CompiledGuardKeepsSource(t *testing.T) {
	g, err := NewExpressionGuardEvaluator().Compile("count > 1")
	if err != nil {
		t.Fatal(err)
	}
	if s, ok := g.(interface{ String() string }); !ok || s.String() != "count > 1" {
		t.Errorf("compiled guard should print its source, got %v", g)
	}
}
