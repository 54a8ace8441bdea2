package teardown

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/zpdzap/coves/internal/agent"
	"github.com/zpdzap/coves/internal/compose"
	"github.com/zpdzap/coves/internal/config"
	"github.com/zpdzap/coves/internal/coverr"
	"github.com/zpdzap/coves/internal/environment"
	"github.com/zpdzap/coves/internal/execx"
	"github.com/zpdzap/coves/internal/worktree"
)

func testCoordinator(fake *execx.Fake, projectRoot string) *Coordinator {
	cfg := &config.Config{
		Project: "x",
		Compose: config.ComposeConfig{Service: "dev"},
		Agent:   config.AgentConfig{Session: "main", Program: "goose"},
	}
	rt := compose.NewRuntime(fake)
	return NewCoordinator(fake, rt, worktree.NewGit(fake, projectRoot), agent.NewSession(rt, cfg))
}

func mkenv(t *testing.T, root, name string) *environment.Environment {
	t.Helper()
	env := environment.New(root, name, 0, nil)
	if err := os.MkdirAll(env.WorktreePath, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := env.WriteDescriptor(); err != nil {
		t.Fatal(err)
	}
	return env
}

func TestRemoveHappyPath(t *testing.T) {
	root := t.TempDir()
	fake := execx.NewFake()
	// Session exists so kill-session runs.
	c := testCoordinator(fake, root)
	env := mkenv(t, root, "foo")

	if err := c.Remove(context.Background(), env, false); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	lines := fake.CallLines()
	// Dependency order: agent stop, compose down, worktree remove.
	var kill, down, wt int = -1, -1, -1
	for i, line := range lines {
		switch {
		case kill == -1 && strings.Contains(line, "kill-session"):
			kill = i
		case down == -1 && strings.Contains(line, "down --volumes"):
			down = i
		case wt == -1 && strings.Contains(line, "worktree remove"):
			wt = i
		}
	}
	if kill == -1 || down == -1 || wt == -1 || !(kill < down && down < wt) {
		t.Errorf("wrong teardown order: %v", lines)
	}

	if _, err := os.Stat(env.EnvDir); !os.IsNotExist(err) {
		t.Error("env dir not removed")
	}
}

func TestRemoveBlockedWithoutForce(t *testing.T) {
	root := t.TempDir()
	fake := execx.NewFake()
	fake.StubPrefix("git worktree remove", execx.Result{ExitCode: 1, Stderr: "Permission denied"}, nil)
	c := testCoordinator(fake, root)
	env := mkenv(t, root, "foo")

	err := c.Remove(context.Background(), env, false)
	if !coverr.Is(err, coverr.ERemovalBlocked) {
		t.Fatalf("code = %v, want E_REMOVAL_BLOCKED", coverr.CodeOf(err))
	}
	if !strings.Contains(err.Error(), env.WorktreePath) {
		t.Errorf("error should name the blocked path: %v", err)
	}
	if fake.Saw("docker run --rm") {
		t.Error("privileged helper launched without force")
	}
	if _, statErr := os.Stat(env.EnvDir); statErr != nil {
		t.Error("env dir should be left in place for inspection")
	}
}

func TestRemoveForceEscalates(t *testing.T) {
	root := t.TempDir()
	fake := execx.NewFake()
	// First worktree removal fails, retry after cleanup succeeds.
	fake.StubSeq("git worktree remove",
		execx.Result{ExitCode: 1, Stderr: "Permission denied"},
		execx.Result{ExitCode: 0})
	c := testCoordinator(fake, root)
	env := mkenv(t, root, "foo")

	if err := c.Remove(context.Background(), env, true); err != nil {
		t.Fatalf("Remove with force: %v", err)
	}
	if !fake.Saw("docker run --rm -v " + env.WorktreePath + ":/cleanup") {
		t.Errorf("privileged helper not launched: %v", fake.CallLines())
	}
	if !fake.Saw("worktree prune") {
		t.Error("stale worktree bookkeeping not pruned")
	}
	if _, err := os.Stat(env.EnvDir); !os.IsNotExist(err) {
		t.Error("env dir not removed after escalation")
	}
}

func TestRemoveStillBlockedAfterEscalation(t *testing.T) {
	root := t.TempDir()
	fake := execx.NewFake()
	fake.StubPrefix("git worktree remove", execx.Result{ExitCode: 1, Stderr: "Permission denied"}, nil)
	c := testCoordinator(fake, root)
	env := mkenv(t, root, "foo")

	err := c.Remove(context.Background(), env, true)
	if !coverr.Is(err, coverr.ERemovalBlocked) {
		t.Fatalf("code = %v, want E_REMOVAL_BLOCKED", coverr.CodeOf(err))
	}
}

func TestPrivilegedCleanupRefusesOutsidePaths(t *testing.T) {
	root := t.TempDir()
	fake := execx.NewFake()
	c := testCoordinator(fake, root)

	outside := t.TempDir()
	env := environment.New(root, "foo", 0, nil)
	env.WorktreePath = outside // corrupted descriptor or hostile input

	err := c.privilegedCleanup(context.Background(), env)
	if !coverr.Is(err, coverr.ERemovalBlocked) {
		t.Fatalf("code = %v, want E_REMOVAL_BLOCKED", coverr.CodeOf(err))
	}
	if fake.Saw("docker run") {
		t.Error("helper launched against a path outside the env dir")
	}
}

func TestRemoveContinuesWhenContainersGone(t *testing.T) {
	root := t.TempDir()
	fake := execx.NewFake()
	fake.StubPrefix("docker compose", execx.Result{ExitCode: 1, Stderr: "no such project"}, nil)
	c := testCoordinator(fake, root)
	env := mkenv(t, root, "foo")

	if err := c.Remove(context.Background(), env, false); err != nil {
		t.Fatalf("Remove should survive missing containers: %v", err)
	}
}

