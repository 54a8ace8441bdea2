// Package config loads the project-level coves configuration.
//
// The config grammar is deliberately restricted: flat scalar keys, one
// level of nested mappings (section.key), and flat lists of
// scalar-only mappings for `ports` and `services`. Deeper nesting,
// anchors/aliases, and block scalars are rejected with a
// diagnostic instead of being silently misparsed.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/zpdzap/coves/internal/coverr"
)

const (
	Dir          = ".coves"
	ConfigFile   = "config.yaml"
	EnvsDir      = "envs"
	TemplateFile = "compose.yaml.tmpl"
)

// Defaults applied when keys are absent.
const (
	DefaultComposeService = "dev"
	DefaultAgentProgram   = "goose"
	DefaultAgentSession   = "main"
	DefaultReadyMarker    = "/workspace/.cove/ready"
	DefaultReadyTimeout   = 90
	DefaultReadyInterval  = 2
	DefaultPortIncrement  = 10
	DefaultServiceLogDir  = "/workspace/.cove"
)

// PortSpec declares one named exposed port.
type PortSpec struct {
	Name      string `yaml:"name"`
	Base      int    `yaml:"base"`
	Increment int    `yaml:"increment,omitempty"`
}

// ServiceSpec declares one background service to run inside an
// environment's dev container.
type ServiceSpec struct {
	Name    string `yaml:"name"`
	Dir     string `yaml:"dir,omitempty"`
	Command string `yaml:"command"`
	Log     string `yaml:"log,omitempty"`
}

// LogPath returns the configured log destination, or the default one.
func (s ServiceSpec) LogPath() string {
	if s.Log != "" {
		return s.Log
	}
	return DefaultServiceLogDir + "/" + s.Name + ".log"
}

type ComposeConfig struct {
	Template string `yaml:"template,omitempty"`
	Service  string `yaml:"service,omitempty"`
}

type AgentConfig struct {
	Program string `yaml:"program,omitempty"`
	Args    string `yaml:"args,omitempty"`
	Recipe  string `yaml:"recipe,omitempty"`
	Session string `yaml:"session,omitempty"`
}

type ReadyConfig struct {
	Marker          string `yaml:"marker,omitempty"`
	TimeoutSeconds  int    `yaml:"timeout_seconds,omitempty"`
	IntervalSeconds int    `yaml:"interval_seconds,omitempty"`
}

// Config is the validated project configuration.
type Config struct {
	Version  string        `yaml:"version"`
	Project  string        `yaml:"project"`
	Compose  ComposeConfig `yaml:"compose,omitempty"`
	Agent    AgentConfig   `yaml:"agent,omitempty"`
	Ready    ReadyConfig   `yaml:"ready,omitempty"`
	Ports    []PortSpec    `yaml:"ports,omitempty"`
	Services []ServiceSpec `yaml:"services,omitempty"`

	flat map[string]string `yaml:"-"`
}

// Path returns the config file path for a project dir.
func Path(projectDir string) string {
	return filepath.Join(projectDir, Dir, ConfigFile)
}

// Exists reports whether the project has been initialized.
func Exists(projectDir string) bool {
	_, err := os.Stat(Path(projectDir))
	return err == nil
}

// Load reads and validates .coves/config.yaml under projectDir.
func Load(projectDir string) (*Config, error) {
	data, err := os.ReadFile(Path(projectDir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, coverr.Wrap(coverr.ECfgMissing,
				fmt.Sprintf("no %s/%s in %s (run `cove init` first)", Dir, ConfigFile, projectDir), err)
		}
		return nil, coverr.Wrap(coverr.ECfgMissing, "reading config", err)
	}
	return Parse(data)
}

// Parse validates raw config bytes against the restricted grammar and
// decodes them.
func Parse(data []byte) (*Config, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, coverr.Wrap(coverr.ECfgMalformed, "parsing config", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, coverr.New(coverr.ECfgMalformed, "config is empty")
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, malformed(root, "top level must be a mapping")
	}

	flat := make(map[string]string)
	lists := make(map[string][]map[string]string)

	for i := 0; i < len(root.Content); i += 2 {
		key, val := root.Content[i], root.Content[i+1]
		if err := checkScalar(key); err != nil {
			return nil, err
		}
		switch val.Kind {
		case yaml.ScalarNode:
			if err := checkScalar(val); err != nil {
				return nil, err
			}
			flat[key.Value] = val.Value
		case yaml.MappingNode:
			if err := flattenSection(key.Value, val, flat); err != nil {
				return nil, err
			}
		case yaml.SequenceNode:
			items, err := decodeList(key.Value, val)
			if err != nil {
				return nil, err
			}
			lists[key.Value] = items
		case yaml.AliasNode:
			return nil, malformed(val, "anchors and aliases are not supported")
		default:
			return nil, malformed(val, fmt.Sprintf("unsupported value for %q", key.Value))
		}
	}

	return decode(flat, lists)
}

func flattenSection(section string, node *yaml.Node, flat map[string]string) error {
	for i := 0; i < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]
		if err := checkScalar(key); err != nil {
			return err
		}
		if val.Kind != yaml.ScalarNode {
			return malformed(val, fmt.Sprintf(
				"%s.%s: nesting deeper than section.key is not supported", section, key.Value))
		}
		if err := checkScalar(val); err != nil {
			return err
		}
		flat[section+"."+key.Value] = val.Value
	}
	return nil
}

func decodeList(name string, node *yaml.Node) ([]map[string]string, error) {
	var items []map[string]string
	for _, item := range node.Content {
		if item.Kind != yaml.MappingNode {
			return nil, malformed(item, fmt.Sprintf("%s entries must be mappings", name))
		}
		entry := make(map[string]string)
		for i := 0; i < len(item.Content); i += 2 {
			key, val := item.Content[i], item.Content[i+1]
			if err := checkScalar(key); err != nil {
				return nil, err
			}
			if val.Kind != yaml.ScalarNode {
				return nil, malformed(val, fmt.Sprintf(
					"%s.%s must be a scalar", name, key.Value))
			}
			if err := checkScalar(val); err != nil {
				return nil, err
			}
			entry[key.Value] = val.Value
		}
		items = append(items, entry)
	}
	return items, nil
}

func checkScalar(node *yaml.Node) error {
	if node.Kind == yaml.AliasNode || node.Anchor != "" {
		return malformed(node, "anchors and aliases are not supported")
	}
	if node.Style == yaml.LiteralStyle || node.Style == yaml.FoldedStyle {
		return malformed(node, "multi-line block scalars are not supported")
	}
	if strings.Contains(node.Value, "\n") {
		return malformed(node, "multi-line values are not supported")
	}
	return nil
}

func malformed(node *yaml.Node, msg string) error {
	return coverr.New(coverr.ECfgMalformed, fmt.Sprintf("line %d: %s", node.Line, msg))
}

func decode(flat map[string]string, lists map[string][]map[string]string) (*Config, error) {
	cfg := &Config{
		Version: flat["version"],
		Project: flat["project"],
		Compose: ComposeConfig{
			Template: getOr(flat, "compose.template", filepath.Join(Dir, TemplateFile)),
			Service:  getOr(flat, "compose.service", DefaultComposeService),
		},
		Agent: AgentConfig{
			Program: getOr(flat, "agent.program", DefaultAgentProgram),
			Args:    flat["agent.args"],
			Recipe:  flat["agent.recipe"],
			Session: getOr(flat, "agent.session", DefaultAgentSession),
		},
		Ready: ReadyConfig{
			Marker: getOr(flat, "ready.marker", DefaultReadyMarker),
		},
		flat: flat,
	}
	if cfg.Project == "" {
		return nil, coverr.New(coverr.ECfgMalformed, "missing required key: project")
	}

	var err error
	if cfg.Ready.TimeoutSeconds, err = intOr(flat, "ready.timeout_seconds", DefaultReadyTimeout); err != nil {
		return nil, err
	}
	if cfg.Ready.IntervalSeconds, err = intOr(flat, "ready.interval_seconds", DefaultReadyInterval); err != nil {
		return nil, err
	}

	for _, entry := range lists["ports"] {
		spec := PortSpec{Name: entry["name"]}
		if spec.Name == "" {
			return nil, coverr.New(coverr.ECfgMalformed, "ports entries need a name")
		}
		if spec.Base, err = atoi("ports."+spec.Name+".base", entry["base"]); err != nil {
			return nil, err
		}
		spec.Increment = DefaultPortIncrement
		if raw, ok := entry["increment"]; ok {
			if spec.Increment, err = atoi("ports."+spec.Name+".increment", raw); err != nil {
				return nil, err
			}
		}
		cfg.Ports = append(cfg.Ports, spec)
	}

	for _, entry := range lists["services"] {
		spec := ServiceSpec{
			Name:    entry["name"],
			Dir:     entry["dir"],
			Command: entry["command"],
			Log:     entry["log"],
		}
		if spec.Name == "" || spec.Command == "" {
			return nil, coverr.New(coverr.ECfgMalformed, "services entries need a name and a command")
		}
		cfg.Services = append(cfg.Services, spec)
	}

	return cfg, nil
}

func getOr(flat map[string]string, key, def string) string {
	if v, ok := flat[key]; ok && v != "" {
		return v
	}
	return def
}

func intOr(flat map[string]string, key string, def int) (int, error) {
	raw, ok := flat[key]
	if !ok || raw == "" {
		return def, nil
	}
	return atoi(key, raw)
}

func atoi(key, raw string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, coverr.Newf(coverr.ECfgMalformed, "%s: %q is not an integer", key, raw)
	}
	return n, nil
}

// Get looks up a scalar by dot-separated path (e.g. "agent.program").
// Returns the raw configured value; defaults are not applied here.
func (c *Config) Get(path string) (string, bool) {
	v, ok := c.flat[path]
	return v, ok
}

// Save writes the config to .coves/config.yaml under projectDir.
func (c *Config) Save(projectDir string) error {
	dir := filepath.Join(projectDir, Dir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(Path(projectDir), data, 0o644)
}
