//go:build darwin

package config

import (
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

const defaultsDomain = "com.docqa.app"

// defaultsBackend shells out to `defaults`. Ints and floats are written with
// their native plist type; everything else as a string.
type defaultsBackend struct {
	domain string
}

func newPlatformBackend() ConfigBackend {
	return &defaultsBackend{domain: defaultsDomain}
}

func (b *defaultsBackend) run(args ...string) (string, error) {
	out, err := exec.Command("defaults", args...).CombinedOutput()
	return strings.TrimSpace(string(out)), err
}

// Get returns the value as text; `defaults read` prints every type that way.
func (b *defaultsBackend) Get(key string) (any, bool, error) {
	out, err := b.run("read", b.domain, key)
	if err == nil {
		return out, true, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
		// Missing domain or key.
		return nil, false, nil
	}
	return nil, false, fmt.Errorf("defaults read %s: %w (%s)", key, err, out)
}

func (b *defaultsBackend) Set(key string, val any) error {
	var typ, text string
	switch v := val.(type) {
	case int:
		typ, text = "-int", strconv.Itoa(v)
	case float64:
		typ, text = "-float", strconv.FormatFloat(v, 'f', -1, 64)
	case string:
		typ, text = "-string", v
	default:
		return fmt.Errorf("cannot store %T for %s", val, key)
	}
	if out, err := b.run("write", b.domain, key, typ, text); err != nil {
		return fmt.Errorf("defaults write %s: %w (%s)", key, err, out)
	}
	return nil
}

func (b *defaultsBackend) Delete(key string) error {
	out, err := b.run("delete", b.domain, key)
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
		return nil
	}
	return fmt.Errorf("defaults delete %s: %w (%s)", key, err, out)
}
