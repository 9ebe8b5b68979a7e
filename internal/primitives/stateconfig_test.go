package primitives

import (
	"strings"
	"testing"
)

func TestStateConfigValidate(t *testing.T) {
	tests := []struct {
		name        string
		state       *StateConfig
		errContains string
	}{
		{
			name:  "atomic",
			state: NewStateConfig("idle", Atomic),
		},
		{
			name: "compound with inferred type",
			state: &StateConfig{ID: "parent", Initial: "a", Children: []*StateConfig{
				NewStateConfig("a", Atomic),
			}},
		},
		{
			name:        "missing id",
			state:       &StateConfig{Type: Atomic},
			errContains: "state ID is required",
		},
		{
			name:        "dotted id",
			state:       NewStateConfig("a.b", Atomic),
			errContains: "must not contain",
		},
		{
			name:        "atomic with children",
			state:       &StateConfig{ID: "x", Type: Atomic, Children: []*StateConfig{NewStateConfig("y", Atomic)}},
			errContains: "cannot have Children",
		},
		{
			name:        "final with initial",
			state:       &StateConfig{ID: "x", Type: Final, Initial: "y"},
			errContains: "cannot have Initial",
		},
		{
			name:        "parallel with initial",
			state:       &StateConfig{ID: "p", Type: Parallel, Initial: "a", Children: []*StateConfig{NewStateConfig("a", Atomic)}},
			errContains: "cannot have Initial",
		},
		{
			name:        "compound without children",
			state:       NewStateConfig("c", Compound),
			errContains: "requires Children",
		},
		{
			name:        "bad history type",
			state:       &StateConfig{ID: "h", Type: History, History: "sideways"},
			errContains: "invalid history type",
		},
		{
			name:        "output on non-final",
			state:       &StateConfig{ID: "a", Type: Atomic, Output: 1},
			errContains: "only final states",
		},
		{
			name: "duplicate children",
			state: &StateConfig{ID: "c", Initial: "a", Children: []*StateConfig{
				NewStateConfig("a", Atomic), NewStateConfig("a", Final),
			}},
			errContains: "duplicate child",
		},
		{
			name:        "unknown type",
			state:       NewStateConfig("x", "weird"),
			errContains: "invalid state type",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.state.Validate()
			if tt.errContains == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.errContains) {
				t.Fatalf("Validate() = %v, want error containing %q", err, tt.errContains)
			}
		})
	}
}

func TestStateConfigFluent(t *testing.T) {
	root := NewStateConfig("light", Compound).WithInitial("green")
	root.State("green").Transition("timer", "yellow")
	root.State("yellow").Transition("timer", "red")
	root.State("red", Final)

	if len(root.Children) != 3 {
		t.Fatalf("children = %d, want 3", len(root.Children))
	}
	green := root.Child("green")
	if green == nil || len(green.On["timer"]) != 1 || green.On["timer"][0].Target[0] != "yellow" {
		t.Fatalf("green transition not recorded: %+v", green)
	}
	if root.Child("red").EffectiveType() != Final {
		t.Error("red should be final")
	}
	if err := root.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}
