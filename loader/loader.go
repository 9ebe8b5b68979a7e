// Package loader reads machine definitions from YAML.
//
// A document is decoded with yaml.v3, checked against the CUE schema in
// schema.cue, NFC-normalised and compiled with actorx.DefineMachine. Actions
// may name registered implementations or use the built-in forms:
//
//	entry:
//	  - log: entering
//	  - assign: {count: 0, last: $event.value}
//	  - increment: {key: count, by: 2}
//	  - raise: ready
//	  - sendParent: done
//	  - sendTo: {target: worker, event: ping, delay: 1s, id: ping-1}
//	  - cancel: ping-1
//	  - stopChild: worker
package loader

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	"github.com/comalice/actorx"
	"github.com/comalice/actorx/internal/core"
)

//go:embed schema.cue
var schemaSource string

// Schema returns the CUE schema machine documents are validated against.
func Schema() string { return schemaSource }

// Validate checks a YAML document against the schema without compiling it.
func Validate(data []byte) error {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return core.Wrap(core.CodeInvalidModel, "", fmt.Errorf("yaml: %w", err))
	}
	if doc == nil {
		return core.Errorf(core.CodeInvalidModel, "", "empty document")
	}
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compiling schema: %w", err)
	}
	machine := schema.LookupPath(cue.ParsePath("#Machine"))
	v := machine.Unify(ctx.Encode(doc))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return core.Errorf(core.CodeInvalidModel, "", "schema: %s", cueerrors.Details(err, nil))
	}
	return nil
}

// Parse validates and decodes a YAML document into a MachineConfig. Built-in
// action forms are converted to actions; named references are kept as
// strings for DefineMachine to resolve.
func Parse(data []byte) (actorx.MachineConfig, error) {
	var cfg actorx.MachineConfig
	if err := Validate(data); err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, core.Wrap(core.CodeInvalidModel, "", fmt.Errorf("yaml: %w", err))
	}
	normalizeMachine(&cfg)

	root := cfg.Root()
	if err := convertNode(root); err != nil {
		return cfg, err
	}
	cfg.On, cfg.Always, cfg.After = root.On, root.Always, root.After
	cfg.Entry, cfg.Exit, cfg.Invoke = root.Entry, root.Exit, root.Invoke
	return cfg, nil
}

// Load parses data and compiles it.
func Load(data []byte, opts ...actorx.MachineOption) (*actorx.Machine, error) {
	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return actorx.DefineMachine(cfg, opts...)
}

// LoadFile loads the machine defined in path.
func LoadFile(path string, opts ...actorx.MachineOption) (*actorx.Machine, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	m, err := Load(data, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return m, nil
}

func convertNode(s *actorx.StateConfig) error {
	var err error
	if s.Entry, err = convertActions(s.Entry); err != nil {
		return fmt.Errorf("state %q entry: %w", s.ID, err)
	}
	if s.Exit, err = convertActions(s.Exit); err != nil {
		return fmt.Errorf("state %q exit: %w", s.ID, err)
	}
	convertList := func(list actorx.TransitionList) error {
		for i := range list {
			if list[i].Actions, err = convertActions(list[i].Actions); err != nil {
				return fmt.Errorf("state %q: %w", s.ID, err)
			}
		}
		return nil
	}
	for _, list := range s.On {
		if err := convertList(list); err != nil {
			return err
		}
	}
	lists := []actorx.TransitionList{s.Always, s.OnDone}
	for _, inv := range s.Invoke {
		lists = append(lists, inv.OnDone, inv.OnError, inv.OnSnapshot)
	}
	for _, list := range lists {
		if err := convertList(list); err != nil {
			return err
		}
	}
	for i := range s.After {
		if s.After[i].Actions, err = convertActions(s.After[i].Actions); err != nil {
			return fmt.Errorf("state %q after: %w", s.ID, err)
		}
	}
	for _, child := range s.Children {
		if err := convertNode(child); err != nil {
			return err
		}
	}
	return nil
}

func normalizeMachine(cfg *actorx.MachineConfig) {
	cfg.ID = nfc(cfg.ID)
	cfg.Initial = nfc(cfg.Initial)
	cfg.On = normalizeOn(cfg.On)
	normalizeList(cfg.Always)
	for i := range cfg.After {
		normalizeTargets(cfg.After[i].Target)
	}
	normalizeInvokes(cfg.Invoke)
	for _, s := range cfg.States {
		normalizeState(s)
	}
}

func normalizeState(s *actorx.StateConfig) {
	s.ID = nfc(s.ID)
	s.Initial = nfc(s.Initial)
	normalizeTargets(s.Target)
	s.On = normalizeOn(s.On)
	normalizeList(s.Always)
	normalizeList(s.OnDone)
	for i := range s.After {
		normalizeTargets(s.After[i].Target)
	}
	normalizeInvokes(s.Invoke)
	for i, tag := range s.Tags {
		s.Tags[i] = nfc(tag)
	}
	for _, child := range s.Children {
		normalizeState(child)
	}
}

func normalizeOn(on map[string]actorx.TransitionList) map[string]actorx.TransitionList {
	if on == nil {
		return nil
	}
	out := make(map[string]actorx.TransitionList, len(on))
	for ev, list := range on {
		normalizeList(list)
		out[nfc(ev)] = list
	}
	return out
}

func normalizeInvokes(invokes []actorx.InvokeConfig) {
	for i := range invokes {
		invokes[i].ID = nfc(invokes[i].ID)
		invokes[i].SystemID = nfc(invokes[i].SystemID)
		normalizeList(invokes[i].OnDone)
		normalizeList(invokes[i].OnError)
		normalizeList(invokes[i].OnSnapshot)
	}
}

func normalizeList(list actorx.TransitionList) {
	for i := range list {
		normalizeTargets(list[i].Target)
	}
}

func normalizeTargets(ts actorx.Targets) {
	for i, t := range ts {
		ts[i] = nfc(t)
	}
}

func nfc(s string) string {
	if s == "" {
		return s
	}
	return norm.NFC.String(s)
}
