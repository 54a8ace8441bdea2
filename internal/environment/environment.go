// Package environment defines the environment data model and the
// on-disk store. There is no index or database: the set of directories
// under .coves/envs/ is the source of truth, rescanned on every lookup.
package environment

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/zpdzap/coves/internal/naming"
)

// DescriptorFile holds the computed identity and port variables for an
// environment. Together with the rendered compose file it is fully
// regenerable from config + template + name; neither is hand-edited.
const DescriptorFile = "cove.env"

// ComposeFileName is the rendered runtime description inside an env dir.
const ComposeFileName = "compose.yaml"

// Environment is one named, isolated instance of workspace + network +
// containers + optional agent session.
type Environment struct {
	Name         string
	Branch       string
	Network      string
	Ordinal      int
	Ports        map[string]int // label -> host port
	ProjectRoot  string
	EnvDir       string
	WorktreePath string
	CreatedAt    time.Time
}

// New derives a fresh Environment from its name, project root, and a
// stable ordinal. All namespaced identities are pure functions of the
// name.
func New(projectRoot, name string, ordinal int, ports map[string]int) *Environment {
	return &Environment{
		Name:         name,
		Branch:       naming.Branch(name),
		Network:      naming.Network(name),
		Ordinal:      ordinal,
		Ports:        ports,
		ProjectRoot:  projectRoot,
		EnvDir:       naming.EnvDir(projectRoot, name),
		WorktreePath: naming.WorktreePath(projectRoot, name),
		CreatedAt:    time.Now().UTC(),
	}
}

// ComposeFile returns the path of the rendered compose description.
func (e *Environment) ComposeFile() string {
	return filepath.Join(e.EnvDir, ComposeFileName)
}

// ComposeProject returns the compose project name.
func (e *Environment) ComposeProject() string {
	return naming.ComposeProject(e.Name)
}

// Vars returns the full substitution set for template rendering and the
// descriptor file. Port labels appear as COVE_PORT_<LABEL>.
func (e *Environment) Vars() map[string]string {
	vars := map[string]string{
		"COVE_ENV":          e.Name,
		"COVE_BRANCH":       e.Branch,
		"COVE_NETWORK":      e.Network,
		"COVE_ORDINAL":      strconv.Itoa(e.Ordinal),
		"COVE_PROJECT_ROOT": e.ProjectRoot,
		"COVE_WORKSPACE":    e.WorktreePath,
		"COVE_CREATED_AT":   e.CreatedAt.Format(time.RFC3339),
	}
	for label, port := range e.Ports {
		vars[naming.PortVar(label)] = strconv.Itoa(port)
	}
	return vars
}

// WriteDescriptor persists cove.env inside the env dir.
func (e *Environment) WriteDescriptor() error {
	vars := e.Vars()
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%s=%s\n", k, vars[k])
	}
	path := filepath.Join(e.EnvDir, DescriptorFile)
	return os.WriteFile(path, []byte(b.String()), 0o644)
}

// readDescriptor rebuilds an Environment from a cove.env file.
func readDescriptor(projectRoot, name string) (*Environment, error) {
	path := filepath.Join(naming.EnvDir(projectRoot, name), DescriptorFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	vars := make(map[string]string)
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		k, v, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		vars[k] = v
	}

	env := &Environment{
		Name:         name,
		Branch:       naming.Branch(name),
		Network:      naming.Network(name),
		Ports:        make(map[string]int),
		ProjectRoot:  projectRoot,
		EnvDir:       naming.EnvDir(projectRoot, name),
		WorktreePath: naming.WorktreePath(projectRoot, name),
	}
	if raw, ok := vars["COVE_ORDINAL"]; ok {
		if n, err := strconv.Atoi(raw); err == nil {
			env.Ordinal = n
		}
	}
	if raw, ok := vars["COVE_CREATED_AT"]; ok {
		if ts, err := time.Parse(time.RFC3339, raw); err == nil {
			env.CreatedAt = ts
		}
	}
	for k, v := range vars {
		if label, ok := strings.CutPrefix(k, "COVE_PORT_"); ok {
			if port, err := strconv.Atoi(v); err == nil {
				env.Ports[label] = port
			}
		}
	}
	return env, nil
}
