package primitives

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Targets lists the target references of a transition.
//
// A reference is a sibling key ("idle"), a path below a sibling
// ("active.fetching"), a path relative to the source (".child") or an
// absolute path prefixed with '#' ("#root.active"). An empty list makes the
// transition targetless: its actions run without exiting or entering states.
type Targets []string

// UnmarshalYAML accepts a scalar or a sequence of scalars.
func (t *Targets) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Tag == "!!null" || node.Value == "" {
			*t = nil
			return nil
		}
		*t = Targets{node.Value}
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := node.Decode(&list); err != nil {
			return err
		}
		*t = Targets(list)
		return nil
	}
	return fmt.Errorf("line %d: target must be a string or a list of strings", node.Line)
}

// TransitionConfig defines a single transition candidate.
type TransitionConfig struct {
	Target      Targets     `json:"target,omitempty" yaml:"target,omitempty"`
	Guard       GuardRef    `json:"guard,omitempty" yaml:"guard,omitempty"`
	Actions     []ActionRef `json:"actions,omitempty" yaml:"actions,omitempty"`
	Reenter     bool        `json:"reenter,omitempty" yaml:"reenter,omitempty"`
	Description string      `json:"description,omitempty" yaml:"description,omitempty"`
}

// Validate checks target path syntax.
func (t *TransitionConfig) Validate() error {
	for _, target := range t.Target {
		if err := validateTargetSyntax(target); err != nil {
			return err
		}
	}
	return nil
}

func validateTargetSyntax(target string) error {
	path := strings.TrimPrefix(target, "#")
	path = strings.TrimPrefix(path, ".")
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("invalid target path %q: empty", target)
	}
	for i, seg := range strings.Split(path, ".") {
		if strings.TrimSpace(seg) == "" {
			return fmt.Errorf("invalid target path %q: empty segment at index %d", target, i)
		}
	}
	return nil
}

// TransitionList holds the candidates for one event in declaration order.
// The first candidate whose guard passes is taken.
type TransitionList []TransitionConfig

// UnmarshalYAML accepts the three shorthand forms:
//
//	toggle: active                       # target only
//	toggle: {target: active, guard: ok}  # single candidate
//	toggle: [{guard: ok, target: a}, b]  # ordered candidates
func (l *TransitionList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode, yaml.MappingNode:
		tc, err := decodeTransition(node)
		if err != nil {
			return err
		}
		*l = TransitionList{tc}
		return nil
	case yaml.SequenceNode:
		out := make(TransitionList, 0, len(node.Content))
		for _, item := range node.Content {
			tc, err := decodeTransition(item)
			if err != nil {
				return err
			}
			out = append(out, tc)
		}
		*l = out
		return nil
	}
	return fmt.Errorf("line %d: unsupported transition form", node.Line)
}

func decodeTransition(node *yaml.Node) (TransitionConfig, error) {
	var tc TransitionConfig
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Tag != "!!null" && node.Value != "" {
			tc.Target = Targets{node.Value}
		}
		return tc, nil
	case yaml.MappingNode:
		if err := node.Decode(&tc); err != nil {
			return tc, err
		}
		return tc, nil
	}
	return tc, fmt.Errorf("line %d: transition must be a target or a mapping", node.Line)
}

// DelayedTransitionConfig is a transition taken when its state has been
// active for the given delay.
//
// Delay is either a duration ("2s", "150ms"), a plain number of milliseconds
// ("2000"), or the name of a delay implementation. Duration, when non-zero,
// takes precedence and is meant for Go literals.
type DelayedTransitionConfig struct {
	Delay            string        `json:"delay,omitempty" yaml:"delay,omitempty"`
	Duration         time.Duration `json:"-" yaml:"-"`
	TransitionConfig `yaml:",inline"`
}

// FixedDelay returns the literal delay when one is given. ok is false when the
// delay refers to a named implementation.
func (d DelayedTransitionConfig) FixedDelay() (time.Duration, bool) {
	if d.Duration > 0 {
		return d.Duration, true
	}
	if d.Delay == "" {
		return 0, true
	}
	if ms, err := strconv.ParseInt(d.Delay, 10, 64); err == nil {
		return time.Duration(ms) * time.Millisecond, true
	}
	if dur, err := time.ParseDuration(d.Delay); err == nil {
		return dur, true
	}
	return 0, false
}

// Key is a stable label for the delay, used in generated event types.
func (d DelayedTransitionConfig) Key() string {
	if dur, ok := d.FixedDelay(); ok {
		return strconv.FormatInt(dur.Milliseconds(), 10)
	}
	return d.Delay
}
