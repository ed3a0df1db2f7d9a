//go:build !darwin

package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// fileBackend keeps settings in a flat JSON object. Numbers are written as
// JSON numbers, so a hand-edited file can use either 4 or "4".
type fileBackend struct {
	path   string
	values map[string]any
}

func newPlatformBackend() ConfigBackend {
	return newFileBackend(configFilePath())
}

func newFileBackend(path string) *fileBackend {
	b := &fileBackend{path: path, values: map[string]any{}}
	b.read()
	return b
}

// configFilePath is $XDG_CONFIG_HOME/docqa/config.json, falling back to ~/.config.
func configFilePath() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(".", "docqa", "config.json")
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "docqa", "config.json")
}

func (b *fileBackend) read() {
	raw, err := os.ReadFile(b.path)
	switch {
	case os.IsNotExist(err):
		return
	case err != nil:
		slog.Warn("config file unreadable, using defaults", "path", b.path, "error", err)
		return
	}
	if err := json.Unmarshal(raw, &b.values); err != nil {
		slog.Warn("config file is not valid JSON, using defaults", "path", b.path, "error", err)
		b.values = map[string]any{}
	}
}

func (b *fileBackend) write() error {
	if err := os.MkdirAll(filepath.Dir(b.path), 0o700); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	raw, err := json.MarshalIndent(b.values, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return os.WriteFile(b.path, append(raw, '\n'), 0o600)
}

func (b *fileBackend) Get(key string) (any, bool, error) {
	v, ok := b.values[key]
	return v, ok, nil
}

func (b *fileBackend) Set(key string, val any) error {
	switch val.(type) {
	case string, int, float64:
	default:
		return fmt.Errorf("cannot store %T for %s", val, key)
	}
	b.values[key] = val
	return b.write()
}

func (b *fileBackend) Delete(key string) error {
	if _, ok := b.values[key]; !ok {
		return nil
	}
	delete(b.values, key)
	return b.write()
}
