// Package cove wires the lifecycle components into one Manager shared
// by the command layer and the dashboard. The Manager holds no state
// of its own; everything is re-derived from the store and the runtime
// on each call.
package cove

import (
	"context"
	"fmt"
	"os/exec"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/zpdzap/coves/internal/agent"
	"github.com/zpdzap/coves/internal/compose"
	"github.com/zpdzap/coves/internal/config"
	"github.com/zpdzap/coves/internal/coverr"
	"github.com/zpdzap/coves/internal/environment"
	"github.com/zpdzap/coves/internal/execx"
	"github.com/zpdzap/coves/internal/progress"
	"github.com/zpdzap/coves/internal/provision"
	"github.com/zpdzap/coves/internal/ready"
	"github.com/zpdzap/coves/internal/services"
	"github.com/zpdzap/coves/internal/teardown"
	"github.com/zpdzap/coves/internal/worktree"
)

// Manager is the orchestration entry point for one project.
type Manager struct {
	ProjectRoot string
	Config      *config.Config
	Store       *environment.Store
	Session     *agent.Session

	git      *worktree.Git
	rt       *compose.Runtime
	gate     *ready.Gate
	services *services.Runner
	prov     *provision.Provisioner
	down     *teardown.Coordinator
}

// NewManager builds a Manager running real commands.
func NewManager(projectRoot string, cfg *config.Config) *Manager {
	return newManager(execx.NewReal(), projectRoot, cfg)
}

func newManager(run execx.Runner, projectRoot string, cfg *config.Config) *Manager {
	store := environment.NewStore(projectRoot)
	git := worktree.NewGit(run, projectRoot)
	rt := compose.NewRuntime(run)
	session := agent.NewSession(rt, cfg)
	return &Manager{
		ProjectRoot: projectRoot,
		Config:      cfg,
		Store:       store,
		Session:     session,
		git:         git,
		rt:          rt,
		gate:        ready.NewGate(rt, cfg),
		services:    services.NewRunner(rt, cfg),
		prov:        provision.NewProvisioner(cfg, store, git, rt, projectRoot),
		down:        teardown.NewCoordinator(run, rt, git, session),
	}
}

// Runtime exposes the compose runtime for log and shell plumbing.
func (m *Manager) Runtime() *compose.Runtime { return m.rt }

// Create provisions an environment, waits for it to become ready,
// starts background services, and, when task is non-empty, submits
// the task to a fresh agent session. The environment is returned as
// soon as it exists, even when a later phase fails, so the caller can
// point the operator at it.
func (m *Manager) Create(ctx context.Context, name, baseRef, task string, rep *progress.Reporter) (*environment.Environment, error) {
	env, err := m.prov.Create(ctx, name, baseRef, rep)
	if err != nil {
		return nil, err
	}

	rep.Step("ready.wait", "waiting for workspace readiness", 0, 0)
	if err := m.gate.Wait(ctx, env); err != nil {
		return env, err
	}

	if len(m.Config.Services) > 0 {
		rep.Step("services.start", "starting background services", 0, 0)
		n, err := m.services.Run(ctx, env)
		if err != nil {
			return env, err
		}
		logrus.WithFields(logrus.Fields{"env": env.Name, "services": n}).Debug("services started")
	}

	if task != "" {
		rep.Step("agent.submit", "submitting task to agent", 0, 0)
		if err := m.Session.Start(ctx, env, task); err != nil {
			return env, err
		}
	}

	rep.Completed("create.done", fmt.Sprintf("environment %s is ready", env.Name))
	return env, nil
}

// Remove tears the environment down. See teardown.Coordinator for the
// force escalation path.
func (m *Manager) Remove(ctx context.Context, name string, force bool, rep *progress.Reporter) error {
	env, err := m.Store.Get(name)
	if err != nil {
		return err
	}
	rep.Step("remove.teardown", fmt.Sprintf("removing environment %s", name), 0, 0)
	if err := m.down.Remove(ctx, env, force); err != nil {
		return err
	}
	rep.Completed("remove.done", fmt.Sprintf("environment %s removed", name))
	return nil
}

// RunServices restarts the configured background services in env.
func (m *Manager) RunServices(ctx context.Context, env *environment.Environment) (int, error) {
	return m.services.Run(ctx, env)
}

// StopServices kills the configured background services in env without
// touching the containers.
func (m *Manager) StopServices(ctx context.Context, env *environment.Environment) (int, error) {
	return m.services.Stop(ctx, env)
}

// WaitReady blocks until env's readiness marker exists.
func (m *Manager) WaitReady(ctx context.Context, env *environment.Environment) error {
	return m.gate.Wait(ctx, env)
}

// Ready is a single readiness probe with no waiting.
func (m *Manager) Ready(ctx context.Context, env *environment.Environment) bool {
	return m.gate.Check(ctx, env)
}

// Overview is the point-in-time status of one environment, as shown by
// ls, status, and the dashboard.
type Overview struct {
	Env   *environment.Environment
	Ready bool
	Agent agent.State
}

// Inspect probes one environment. Probes are read-only; a dead runtime
// simply reads as not ready with an absent agent.
func (m *Manager) Inspect(ctx context.Context, env *environment.Environment) Overview {
	return Overview{
		Env:   env,
		Ready: m.gate.Check(ctx, env),
		Agent: m.Session.Status(ctx, env),
	}
}

// InspectAll probes every stored environment, bounding each probe so a
// wedged runtime cannot hang a listing.
func (m *Manager) InspectAll(ctx context.Context) ([]Overview, error) {
	envs, err := m.Store.List()
	if err != nil {
		return nil, err
	}
	out := make([]Overview, 0, len(envs))
	for _, env := range envs {
		probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		out = append(out, m.Inspect(probeCtx, env))
		cancel()
	}
	return out, nil
}

// Logs returns a bounded tail of service logs.
func (m *Manager) Logs(ctx context.Context, env *environment.Environment, service string, tail int) (string, error) {
	return m.rt.Logs(ctx, env, service, tail)
}

// ShellCmd returns an interactive shell command inside env's dev
// service, refusing before the workspace is ready.
func (m *Manager) ShellCmd(ctx context.Context, env *environment.Environment) (*exec.Cmd, error) {
	if !m.gate.Check(ctx, env) {
		return nil, coverr.Newf(coverr.EReadyTimeout,
			"environment %s is not ready yet; try `cove status %s`", env.Name, env.Name)
	}
	return compose.InteractiveCmd(env, m.Config.Compose.Service, "sh", "-c",
		"cd /workspace && exec ${SHELL:-bash}"), nil
}

// Diff returns the uncommitted changes inside env's worktree.
func (m *Manager) Diff(ctx context.Context, env *environment.Environment) (string, error) {
	return m.git.Diff(ctx, env.WorktreePath)
}
