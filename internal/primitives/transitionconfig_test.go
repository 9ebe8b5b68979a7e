package primitives

import (
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func TestTransitionConfigValidate(t *testing.T) {
	tests := []struct {
		name        string
		tc          TransitionConfig
		errContains string
	}{
		{name: "sibling", tc: TransitionConfig{Target: Targets{"next"}}},
		{name: "targetless", tc: TransitionConfig{}},
		{name: "absolute", tc: TransitionConfig{Target: Targets{"#m.a.b"}}},
		{name: "relative", tc: TransitionConfig{Target: Targets{".child"}}},
		{name: "empty segment", tc: TransitionConfig{Target: Targets{"a..b"}}, errContains: "empty segment"},
		{name: "hash only", tc: TransitionConfig{Target: Targets{"#"}}, errContains: "empty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.tc.Validate()
			if tt.errContains == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.errContains) {
				t.Fatalf("Validate() = %v, want %q", err, tt.errContains)
			}
		})
	}
}

func TestTransitionListYAMLForms(t *testing.T) {
	src := `
toggle: active
inc:
  guard: "count < 10"
  actions: [increment]
pick:
  - target: [a, b]
    guard: ready
  - fallback
reset:
  target: idle
  reenter: true
`
	var on map[string]TransitionList
	if err := yaml.Unmarshal([]byte(src), &on); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if got := on["toggle"]; len(got) != 1 || got[0].Target[0] != "active" {
		t.Errorf("scalar form = %+v", got)
	}
	inc := on["inc"]
	if len(inc) != 1 || len(inc[0].Target) != 0 || inc[0].Guard != "count < 10" || len(inc[0].Actions) != 1 {
		t.Errorf("mapping form = %+v", inc)
	}
	pick := on["pick"]
	if len(pick) != 2 || len(pick[0].Target) != 2 || pick[1].Target[0] != "fallback" {
		t.Errorf("sequence form = %+v", pick)
	}
	if !on["reset"][0].Reenter {
		t.Error("reenter flag lost")
	}
}

func TestDelayedTransitionFixedDelay(t *testing.T) {
	tests := []struct {
		in     DelayedTransitionConfig
		want   time.Duration
		fixed  bool
		wantID string
	}{
		{DelayedTransitionConfig{Delay: "2000"}, 2 * time.Second, true, "2000"},
		{DelayedTransitionConfig{Delay: "150ms"}, 150 * time.Millisecond, true, "150"},
		{DelayedTransitionConfig{Duration: time.Second}, time.Second, true, "1000"},
		{DelayedTransitionConfig{Delay: "lightDelay"}, 0, false, "lightDelay"},
	}
	for _, tt := range tests {
		got, fixed := tt.in.FixedDelay()
		if got != tt.want || fixed != tt.fixed {
			t.Errorf("FixedDelay(%+v) = %v, %v; want %v, %v", tt.in, got, fixed, tt.want, tt.fixed)
		}
		if k := tt.in.Key(); k != tt.wantID {
			t.Errorf("Key() = %q, want %q", k, tt.wantID)
		}
	}
}

func TestDelayedTransitionYAMLInline(t *testing.T) {
	var after []DelayedTransitionConfig
	if err := yaml.Unmarshal([]byte(`[{delay: 2s, target: inactive, guard: armed}]`), &after); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(after) != 1 || after[0].Delay != "2s" || after[0].Target[0] != "inactive" || after[0].Guard != "armed" {
		t.Fatalf("got %+v", after)
	}
}
