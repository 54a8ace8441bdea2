// Package naming derives environment identities: the sanitized name,
// the per-environment branch/network/path namespace, and deterministic
// port assignments.
package naming

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/zpdzap/coves/internal/config"
)

// MaxNameLen bounds sanitized environment names.
const MaxNameLen = 32

// Sanitize converts arbitrary user input into an environment name:
// lowercase [a-z0-9-], runs of anything else collapsed to a single
// hyphen, trimmed, truncated to MaxNameLen. Empty results fall back to
// a generated cove-<id> name. Idempotent for any non-empty result.
func Sanitize(input string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(input) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}

	name := collapseHyphens(b.String())
	name = strings.Trim(name, "-")
	if len(name) > MaxNameLen {
		name = name[:MaxNameLen]
		name = strings.Trim(name, "-")
	}
	if name == "" {
		return "cove-" + uuid.NewString()[:8]
	}
	return name
}

// ValidName reports whether name is already in sanitized form:
// nonempty lowercase [a-z0-9-] within the length bound, no leading,
// trailing, or doubled hyphen. The store only ever writes names of
// this shape, so lookups reject anything else before it can touch a
// path (names with separators would otherwise escape the envs dir).
func ValidName(name string) bool {
	if name == "" || len(name) > MaxNameLen {
		return false
	}
	prev := byte('-')
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
		case c == '-':
			if prev == '-' {
				return false
			}
		default:
			return false
		}
		prev = c
	}
	return prev != '-'
}

func collapseHyphens(s string) string {
	var b strings.Builder
	prev := false
	for _, r := range s {
		if r == '-' {
			if !prev {
				b.WriteRune('-')
				prev = true
			}
			continue
		}
		b.WriteRune(r)
		prev = false
	}
	return b.String()
}

// AllocatePorts computes the host port for every declared label:
// base + ordinal*increment. The ordinal is assigned once at environment
// creation and persisted, never recomputed.
func AllocatePorts(specs []config.PortSpec, ordinal int) map[string]int {
	ports := make(map[string]int, len(specs))
	for _, spec := range specs {
		inc := spec.Increment
		if inc == 0 {
			inc = config.DefaultPortIncrement
		}
		ports[strings.ToUpper(spec.Name)] = spec.Base + ordinal*inc
	}
	return ports
}

// The identities below are pure functions of (projectDir, name): the
// name alone determines every namespaced resource.

// Branch returns the git branch owned by an environment.
func Branch(name string) string {
	return "cove/" + name
}

// Network returns the docker network owned by an environment.
func Network(name string) string {
	return "cove-" + name
}

// ComposeProject returns the compose project name for an environment.
func ComposeProject(name string) string {
	return "cove-" + name
}

// EnvDir returns the environment's directory under the project.
func EnvDir(projectDir, name string) string {
	return filepath.Join(projectDir, config.Dir, config.EnvsDir, name)
}

// WorktreePath returns the environment's isolated checkout path.
func WorktreePath(projectDir, name string) string {
	return filepath.Join(EnvDir(projectDir, name), "worktree")
}

// PortVar returns the compose-template variable name for a port label.
// Labels are conventionally uppercase regardless of how the config
// spells them.
func PortVar(label string) string {
	return fmt.Sprintf("COVE_PORT_%s", strings.ToUpper(label))
}
