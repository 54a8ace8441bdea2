package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/zpdzap/coves/internal/coverr"
)

const sample = `version: "1"
project: myapp

compose:
  template: .coves/compose.yaml.tmpl
  service: dev

agent:
  program: goose
  recipe: .coves/recipe.yaml

ready:
  marker: /workspace/.cove/ready
  timeout_seconds: 45

ports:
  - name: APP
    base: 8080
    increment: 10
  - name: DB
    base: 5432

services:
  - name: web
    dir: /workspace
    command: npm run dev
    log: /workspace/.cove/web.log
`

func TestParseValid(t *testing.T) {
	cfg, err := Parse([]byte(sample))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Project != "myapp" {
		t.Errorf("Project = %q", cfg.Project)
	}
	if cfg.Ready.TimeoutSeconds != 45 {
		t.Errorf("TimeoutSeconds = %d, want 45", cfg.Ready.TimeoutSeconds)
	}
	if cfg.Ready.IntervalSeconds != DefaultReadyInterval {
		t.Errorf("IntervalSeconds = %d, want default %d", cfg.Ready.IntervalSeconds, DefaultReadyInterval)
	}
	if len(cfg.Ports) != 2 || cfg.Ports[0].Name != "APP" || cfg.Ports[0].Base != 8080 {
		t.Errorf("Ports = %+v", cfg.Ports)
	}
	if cfg.Ports[1].Increment != DefaultPortIncrement {
		t.Errorf("DB increment = %d, want default", cfg.Ports[1].Increment)
	}
	if len(cfg.Services) != 1 || cfg.Services[0].Command != "npm run dev" {
		t.Errorf("Services = %+v", cfg.Services)
	}
	if cfg.Agent.Session != DefaultAgentSession {
		t.Errorf("Agent.Session = %q, want default", cfg.Agent.Session)
	}
}

func TestGetDotPath(t *testing.T) {
	cfg, err := Parse([]byte(sample))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if v, ok := cfg.Get("agent.recipe"); !ok || v != ".coves/recipe.yaml" {
		t.Errorf("Get(agent.recipe) = %q, %v", v, ok)
	}
	if v, ok := cfg.Get("project"); !ok || v != "myapp" {
		t.Errorf("Get(project) = %q, %v", v, ok)
	}
	if _, ok := cfg.Get("agent.session"); ok {
		t.Error("Get should not report defaults as configured")
	}
}

func TestParseRejectsUnsupportedShapes(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"deep nesting", "project: x\na:\n  b:\n    c: 1\n"},
		{"anchor alias", "project: x\na: &anchor val\nb: *anchor\n"},
		{"block scalar", "project: x\nnote: |\n  line one\n  line two\n"},
		{"list of scalars in section", "project: x\na:\n  b:\n    - one\n"},
		{"nested list entry", "ports:\n  - name: APP\n    extra:\n      deep: 1\nproject: x\n"},
		{"top level sequence", "- a\n- b\n"},
		{"missing project", "version: \"1\"\n"},
		{"non-integer port", "project: x\nports:\n  - name: APP\n    base: eighty\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			if err == nil {
				t.Fatal("expected error")
			}
			if !coverr.Is(err, coverr.ECfgMalformed) {
				t.Errorf("code = %v, want E_CONFIG_MALFORMED", coverr.CodeOf(err))
			}
		})
	}
}

func TestLoadMissing(t *testing.T) {
	dir := t.TempDir()
	_, err := Load(dir)
	if !coverr.Is(err, coverr.ECfgMissing) {
		t.Errorf("code = %v, want E_CONFIG_MISSING", coverr.CodeOf(err))
	}
}

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	cfg := &Config{
		Version: "1",
		Project: "test-project",
		Compose: ComposeConfig{Service: "dev"},
		Ports:   []PortSpec{{Name: "APP", Base: 8080, Increment: 10}},
	}
	if err := cfg.Save(dir); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Project != "test-project" {
		t.Errorf("Project = %q", loaded.Project)
	}
	if len(loaded.Ports) != 1 || loaded.Ports[0].Base != 8080 {
		t.Errorf("Ports = %+v", loaded.Ports)
	}
}

func TestServiceLogPath(t *testing.T) {
	withLog := ServiceSpec{Name: "web", Log: "/tmp/custom.log"}
	if withLog.LogPath() != "/tmp/custom.log" {
		t.Errorf("LogPath = %q", withLog.LogPath())
	}
	noLog := ServiceSpec{Name: "web"}
	if noLog.LogPath() != DefaultServiceLogDir+"/web.log" {
		t.Errorf("default LogPath = %q", noLog.LogPath())
	}
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		wantLang string
	}{
		{"go project", "go.mod", "go"},
		{"node project", "package.json", "node"},
		{"python project", "requirements.txt", "python"},
		{"unknown project", "", "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			if tt.file != "" {
				os.WriteFile(filepath.Join(dir, tt.file), []byte(""), 0o644)
			}
			d := Detect(dir)
			if d.Language != tt.wantLang {
				t.Errorf("Language = %q, want %q", d.Language, tt.wantLang)
			}
		})
	}
}

func TestScaffold(t *testing.T) {
	dir := t.TempDir()
	cfg := &Config{
		Project: "myapp",
		Compose: ComposeConfig{Service: "dev"},
		Ready:   ReadyConfig{Marker: DefaultReadyMarker},
		Ports:   []PortSpec{{Name: "APP", Base: 3000}},
	}
	if err := os.MkdirAll(filepath.Join(dir, Dir), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := Scaffold(dir, cfg); err != nil {
		t.Fatalf("Scaffold: %v", err)
	}

	tmpl, err := os.ReadFile(filepath.Join(dir, Dir, TemplateFile))
	if err != nil {
		t.Fatalf("template not written: %v", err)
	}
	for _, want := range []string{"${COVE_NETWORK}", "${COVE_WORKSPACE}", "${COVE_PORT_APP}:3000", DefaultReadyMarker} {
		if !strings.Contains(string(tmpl), want) {
			t.Errorf("template missing %q", want)
		}
	}

	gi, err := os.ReadFile(filepath.Join(dir, ".gitignore"))
	if err != nil {
		t.Fatalf("gitignore not written: %v", err)
	}
	if !strings.Contains(string(gi), ".coves/envs/") {
		t.Errorf("gitignore missing envs entry: %q", string(gi))
	}

	// Scaffolding again is a no-op for gitignore.
	if err := Scaffold(dir, cfg); err != nil {
		t.Fatalf("second Scaffold: %v", err)
	}
	gi2, _ := os.ReadFile(filepath.Join(dir, ".gitignore"))
	if strings.Count(string(gi2), ".coves/envs/") != 1 {
		t.Error("gitignore entry duplicated")
	}
}
