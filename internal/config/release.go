package config

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Release is a release identifier that is either a literal value or a
// zero-argument provider evaluated once when settings are resolved.
type Release struct {
	value    string
	provider func() (string, error)
}

// ReleaseValue returns a literal release identifier.
func ReleaseValue(v string) Release {
	return Release{value: v}
}

// ReleaseNumber returns a numeric release identifier.
func ReleaseNumber(n int64) Release {
	return Release{value: strconv.FormatInt(n, 10)}
}

// ReleaseFunc returns a release identifier produced by fn.
func ReleaseFunc(fn func() (string, error)) Release {
	return Release{provider: fn}
}

// ReleaseCommand returns a release identifier produced by running a shell
// command and taking its trimmed stdout, e.g. "git rev-parse --short HEAD".
func ReleaseCommand(command string) Release {
	return ReleaseFunc(func() (string, error) {
		out, err := exec.CommandContext(context.Background(), "sh", "-c", command).Output()
		if err != nil {
			return "", fmt.Errorf("release command %q: %w", command, err)
		}
		return strings.TrimSpace(string(out)), nil
	})
}

// IsZero reports whether neither a value nor a provider was supplied.
func (r Release) IsZero() bool {
	return r.value == "" && r.provider == nil
}

// resolve returns the concrete identifier, invoking the provider if present.
func (r Release) resolve() (string, error) {
	if r.provider == nil {
		return r.value, nil
	}
	v, err := r.provider()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(v), nil
}

// UnmarshalYAML accepts a string or a number.
func (r *Release) UnmarshalYAML(node *yaml.Node) error {
	var raw any
	if err := node.Decode(&raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case nil:
		*r = Release{}
	case string:
		*r = ReleaseValue(v)
	case int:
		*r = ReleaseNumber(int64(v))
	case float64:
		*r = ReleaseValue(strconv.FormatFloat(v, 'f', -1, 64))
	default:
		return fmt.Errorf("release must be a string or number, got %T", raw)
	}
	return nil
}
