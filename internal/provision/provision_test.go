package provision

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/zpdzap/coves/internal/compose"
	"github.com/zpdzap/coves/internal/config"
	"github.com/zpdzap/coves/internal/coverr"
	"github.com/zpdzap/coves/internal/environment"
	"github.com/zpdzap/coves/internal/execx"
	"github.com/zpdzap/coves/internal/progress"
	"github.com/zpdzap/coves/internal/worktree"
)

const testTemplate = `name: ${COVE_ENV}
networks:
  default:
    name: ${COVE_NETWORK}
services:
  dev:
    volumes:
      - ${COVE_WORKSPACE}:/workspace
    ports:
      - "${COVE_PORT_WEB}:3000"
`

func testSetup(t *testing.T, fake *execx.Fake) (*Provisioner, string) {
	t.Helper()
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, config.Dir), 0o755); err != nil {
		t.Fatal(err)
	}
	tmpl := filepath.Join(root, config.Dir, config.TemplateFile)
	if err := os.WriteFile(tmpl, []byte(testTemplate), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := &config.Config{
		Project: "x",
		Compose: config.ComposeConfig{Service: "dev"},
		Ports:   []config.PortSpec{{Name: "web", Base: 3000, Increment: 10}},
	}
	p := NewProvisioner(cfg, environment.NewStore(root), worktree.NewGit(fake, root),
		compose.NewRuntime(fake), root)
	return p, root
}

func silentReporter() *progress.Reporter {
	return progress.New(&bytes.Buffer{}, false)
}

func TestCreateSequence(t *testing.T) {
	fake := execx.NewFake()
	fake.StubPrefix("git branch --show-current", execx.Result{Stdout: "main\n"}, nil)
	p, root := testSetup(t, fake)

	env, err := p.Create(context.Background(), "Fix Login!", "", silentReporter())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if env.Name != "fix-login" {
		t.Errorf("Name = %q, want sanitized %q", env.Name, "fix-login")
	}
	if env.Branch != "cove/fix-login" || env.Network != "cove-fix-login" {
		t.Errorf("derived names wrong: %s / %s", env.Branch, env.Network)
	}
	if got := env.Ports["WEB"]; got != 3000 {
		t.Errorf("port web = %d, want 3000 for ordinal 0", got)
	}

	wantWT := "git worktree add " + env.WorktreePath + " -b cove/fix-login main"
	if !fake.Saw(wantWT) {
		t.Errorf("worktree command missing, got:\n%s", strings.Join(fake.CallLines(), "\n"))
	}
	if !fake.Saw("docker compose -p cove-fix-login -f " + env.ComposeFile() + " up -d") {
		t.Errorf("up command missing, got:\n%s", strings.Join(fake.CallLines(), "\n"))
	}

	// Descriptor and rendered compose file land in the env dir.
	if _, err := os.Stat(filepath.Join(env.EnvDir, environment.DescriptorFile)); err != nil {
		t.Error("descriptor not written")
	}
	rendered, err := os.ReadFile(env.ComposeFile())
	if err != nil {
		t.Fatal("compose file not rendered")
	}
	for _, want := range []string{"cove-fix-login", root, `"3000:3000"`} {
		if !strings.Contains(string(rendered), want) {
			t.Errorf("rendered compose missing %q", want)
		}
	}
}

func TestCreateRefusesExisting(t *testing.T) {
	fake := execx.NewFake()
	p, root := testSetup(t, fake)

	env := environment.New(root, "taken", 0, nil)
	if err := os.MkdirAll(env.WorktreePath, 0o755); err != nil {
		t.Fatal(err)
	}

	_, err := p.Create(context.Background(), "taken", "", silentReporter())
	if !coverr.Is(err, coverr.EWorkspaceExists) {
		t.Fatalf("code = %v, want E_WORKSPACE_EXISTS", coverr.CodeOf(err))
	}
	if len(fake.Calls()) != 0 {
		t.Errorf("no commands should run for a taken name: %v", fake.CallLines())
	}
}

func TestCreateStopsAtWorktreeFailure(t *testing.T) {
	fake := execx.NewFake()
	fake.StubPrefix("git branch --show-current", execx.Result{Stdout: "main\n"}, nil)
	fake.StubPrefix("git worktree add", execx.Result{ExitCode: 128, Stderr: "fatal: not a git repository"}, nil)
	p, _ := testSetup(t, fake)

	_, err := p.Create(context.Background(), "foo", "", silentReporter())
	if !coverr.Is(err, coverr.EVCSFailure) {
		t.Fatalf("code = %v, want E_VCS_FAILURE", coverr.CodeOf(err))
	}
	if fake.Saw("docker compose") {
		t.Error("containers must not start after a worktree failure")
	}
}

func TestCreateRenderFailurePreventsUp(t *testing.T) {
	fake := execx.NewFake()
	fake.StubPrefix("git branch --show-current", execx.Result{Stdout: "main\n"}, nil)
	p, root := testSetup(t, fake)

	// Template references a namespace variable the engine never defines.
	tmpl := filepath.Join(root, config.Dir, config.TemplateFile)
	if err := os.WriteFile(tmpl, []byte("name: ${COVE_NO_SUCH_VAR}\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := p.Create(context.Background(), "foo", "", silentReporter())
	if !coverr.Is(err, coverr.ETemplateRender) {
		t.Fatalf("code = %v, want E_TEMPLATE_RENDER", coverr.CodeOf(err))
	}
	if fake.Saw("up -d") {
		t.Error("containers must not start after a render failure")
	}
	// The worktree survives for inspection.
	env := environment.New(root, "foo", 0, nil)
	if _, statErr := os.Stat(env.EnvDir); statErr != nil {
		t.Error("partially-created env dir should be kept")
	}
}

func TestCreateRuntimeStartFailure(t *testing.T) {
	fake := execx.NewFake()
	fake.StubPrefix("git branch --show-current", execx.Result{Stdout: "main\n"}, nil)
	fake.StubPrefix("docker compose", execx.Result{ExitCode: 1, Stderr: "pull access denied"}, nil)
	p, _ := testSetup(t, fake)

	_, err := p.Create(context.Background(), "foo", "", silentReporter())
	if !coverr.Is(err, coverr.ERuntimeStart) {
		t.Fatalf("code = %v, want E_RUNTIME_START", coverr.CodeOf(err))
	}
	if !strings.Contains(err.Error(), "pull access denied") {
		t.Errorf("runtime stderr should surface in the error: %v", err)
	}
}

func TestCreateOrdinalReusesFreedSlot(t *testing.T) {
	fake := execx.NewFake()
	fake.StubPrefix("git branch --show-current", execx.Result{Stdout: "main\n"}, nil)
	p, root := testSetup(t, fake)

	// An existing env holds ordinal 1; slot 0 is free and must be taken.
	other := environment.New(root, "other", 1, map[string]int{"WEB": 3010})
	if err := os.MkdirAll(other.WorktreePath, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := other.WriteDescriptor(); err != nil {
		t.Fatal(err)
	}

	env, err := p.Create(context.Background(), "fresh", "", silentReporter())
	if err != nil {
		t.Fatal(err)
	}
	if env.Ordinal != 0 {
		t.Errorf("Ordinal = %d, want freed slot 0", env.Ordinal)
	}
	if env.Ports["WEB"] != 3000 {
		t.Errorf("port = %d, want base port for slot 0", env.Ports["WEB"])
	}
}
