// Package production provides production integrations: persistence, inspection
// publishing and visualization. Each type implements an interface from core.
package production

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/comalice/actorx/internal/core"
)

// fileStore holds what JSON and YAML persisters share: a directory of one
// file per key.
type fileStore struct {
	dir string
	ext string
}

func newFileStore(dir, ext string) (fileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fileStore{}, fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return fileStore{dir: dir, ext: ext}, nil
}

func (s fileStore) path(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return "", fmt.Errorf("invalid snapshot key %q", key)
	}
	return filepath.Join(s.dir, key+s.ext), nil
}

func (s fileStore) write(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fn, err := s.path(key)
	if err != nil {
		return err
	}
	tmp := fn + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, fn); err != nil {
		return fmt.Errorf("rename %s: %w", fn, err)
	}
	return nil
}

func (s fileStore) read(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fn, err := s.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(fn)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("snapshot %q: %w: %w", key, core.ErrNotFound, os.ErrNotExist)
		}
		return nil, fmt.Errorf("read %s: %w", fn, err)
	}
	return data, nil
}

// JSONPersister is a file-based persister using JSON serialization.
type JSONPersister struct {
	files fileStore
}

// NewJSONPersister creates a JSONPersister, ensuring the directory exists.
func NewJSONPersister(dir string) (*JSONPersister, error) {
	fs, err := newFileStore(dir, ".json")
	if err != nil {
		return nil, err
	}
	return &JSONPersister{files: fs}, nil
}

func (p *JSONPersister) Save(ctx context.Context, key string, snapshot core.PersistedSnapshot) error {
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("json marshal: %w", err)
	}
	return p.files.write(ctx, key, data)
}

func (p *JSONPersister) Load(ctx context.Context, key string) (core.PersistedSnapshot, error) {
	data, err := p.files.read(ctx, key)
	if err != nil {
		return core.PersistedSnapshot{}, err
	}
	var snapshot core.PersistedSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return core.PersistedSnapshot{}, fmt.Errorf("json unmarshal: %w", err)
	}
	return snapshot, nil
}

// YAMLPersister is a file-based persister using YAML serialization.
type YAMLPersister struct {
	files fileStore
}

// NewYAMLPersister creates a YAMLPersister, ensuring the directory exists.
func NewYAMLPersister(dir string) (*YAMLPersister, error) {
	fs, err := newFileStore(dir, ".yaml")
	if err != nil {
		return nil, err
	}
	return &YAMLPersister{files: fs}, nil
}

func (p *YAMLPersister) Save(ctx context.Context, key string, snapshot core.PersistedSnapshot) error {
	data, err := yaml.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("yaml marshal: %w", err)
	}
	return p.files.write(ctx, key, data)
}

func (p *YAMLPersister) Load(ctx context.Context, key string) (core.PersistedSnapshot, error) {
	data, err := p.files.read(ctx, key)
	if err != nil {
		return core.PersistedSnapshot{}, err
	}
	var snapshot core.PersistedSnapshot
	if err := yaml.Unmarshal(data, &snapshot); err != nil {
		return core.PersistedSnapshot{}, fmt.Errorf("yaml unmarshal: %w", err)
	}
	return snapshot, nil
}
