// Package agent owns the lifecycle of the autonomous coding-agent
// session inside an environment's dev container.
//
// The session host is tmux; only five primitives are used: new-session,
// has-session, send-keys, attach-session, kill-session. The agent
// program runs a single non-interactive task per submission and
// terminates by writing a structured result artifact; "running" simply
// means the artifact does not exist yet.
package agent

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"

	"github.com/zpdzap/coves/internal/compose"
	"github.com/zpdzap/coves/internal/config"
	"github.com/zpdzap/coves/internal/coverr"
	"github.com/zpdzap/coves/internal/environment"
	"github.com/zpdzap/coves/internal/progress"
)

// Session manages the agent session of one project's environments.
type Session struct {
	rt      *compose.Runtime
	service string
	name    string // tmux session name
	program string
	args    string
	recipe  string
}

// NewSession builds a session manager from the project config.
func NewSession(rt *compose.Runtime, cfg *config.Config) *Session {
	return &Session{
		rt:      rt,
		service: cfg.Compose.Service,
		name:    cfg.Agent.Session,
		program: cfg.Agent.Program,
		args:    cfg.Agent.Args,
		recipe:  cfg.Agent.Recipe,
	}
}

func (s *Session) tmux(ctx context.Context, env *environment.Environment, args ...string) (int, error) {
	cmd := append([]string{"tmux"}, args...)
	res, err := s.rt.Exec(ctx, env, compose.ExecOpts{Service: s.service}, cmd...)
	if err != nil {
		return -1, err
	}
	return res.ExitCode, nil
}

// Has reports whether the session host exists.
func (s *Session) Has(ctx context.Context, env *environment.Environment) bool {
	code, err := s.tmux(ctx, env, "has-session", "-t", s.name)
	return err == nil && code == 0
}

// Start submits a task. The session host is created on first use and
// reused afterwards; a stale result artifact is cleared so the new
// task reads as running. Returns right after submission; completion
// is detected later via Status.
func (s *Session) Start(ctx context.Context, env *environment.Environment, task string) error {
	log := logrus.WithFields(logrus.Fields{"env": env.Name, "session": s.name})

	if !s.Has(ctx, env) {
		code, err := s.tmux(ctx, env, "new-session", "-d", "-s", s.name)
		if err != nil || code != 0 {
			return coverr.Newf(coverr.ENoSession,
				"creating session %q in %q failed", s.name, env.Name)
		}
		log.Debug("session created")
	}

	// Clear a previous task's artifact before resubmitting.
	s.rt.Exec(ctx, env, compose.ExecOpts{Service: s.service}, "rm", "-f", ArtifactPath)

	code, err := s.tmux(ctx, env, "send-keys", "-t", s.name, s.command(task), "Enter")
	if err != nil || code != 0 {
		return coverr.Newf(coverr.ENoSession, "submitting task to session %q failed", s.name)
	}
	log.Debug("task submitted")
	return nil
}

// command builds the single non-interactive agent invocation. The
// program is configured to never prompt and to always terminate by
// writing the result artifact.
func (s *Session) command(task string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "cd /workspace && COVE_RESULT=%s %s", ArtifactPath, s.program)
	if s.args != "" {
		fmt.Fprintf(&b, " %s", s.args)
	}
	if s.recipe != "" {
		fmt.Fprintf(&b, " --recipe %q", s.recipe)
	}
	fmt.Fprintf(&b, " %q", task)
	return b.String()
}

// Status inspects the session: absent without a session host; running
// until the artifact appears; then whatever outcome the artifact
// carries. Read-only and safe to poll.
func (s *Session) Status(ctx context.Context, env *environment.Environment) State {
	if !s.Has(ctx, env) {
		return State{Status: StatusAbsent}
	}
	res, err := s.rt.Exec(ctx, env, compose.ExecOpts{Service: s.service},
		"cat", ArtifactPath)
	if err != nil || res.ExitCode != 0 {
		return State{Status: StatusRunning}
	}
	return parseArtifact(res.Stdout)
}

// Stop kills the session host. Stopping an absent session is not an
// error.
func (s *Session) Stop(ctx context.Context, env *environment.Environment) error {
	if !s.Has(ctx, env) {
		return nil
	}
	code, err := s.tmux(ctx, env, "kill-session", "-t", s.name)
	if err != nil || code != 0 {
		return coverr.Newf(coverr.ENoSession, "stopping session %q failed", s.name)
	}
	return nil
}

// AttachCmd returns the interactive attach command, or NoTTY when the
// caller has no terminal. Attaching is observational; interrupting it
// leaves the session untouched.
func (s *Session) AttachCmd(env *environment.Environment) (*exec.Cmd, error) {
	if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		return nil, coverr.New(coverr.ENoTTY, "agent attach needs an interactive terminal")
	}
	return compose.InteractiveCmd(env, s.service, "tmux", "attach-session", "-t", s.name), nil
}

// Wait polls Status until a terminal state or the bound elapses
// (timeout zero means unbounded), emitting keep-alive progress events
// so external callers see liveness.
func (s *Session) Wait(ctx context.Context, env *environment.Environment, rep *progress.Reporter, interval, timeout time.Duration) (State, error) {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}

	for {
		state := s.Status(ctx, env)
		switch state.Status {
		case StatusAbsent:
			rep.Failed("agent.absent", "no agent session")
			return state, coverr.Newf(coverr.ENoSession, "no agent session in %q", env.Name)
		case StatusCompleted:
			rep.Completed("agent.finished", "agent finished successfully")
			return state, nil
		case StatusBlocked:
			rep.Failed("agent.blocked", "agent is blocked and needs input")
			return state, nil
		case StatusFailed:
			rep.Failed("agent.failed", "agent task failed")
			return state, nil
		case StatusIndeterminate:
			rep.Failed("agent.indeterminate", "agent wrote an unparsable result artifact")
			return state, coverr.New(coverr.EResultIndeterminate,
				"result artifact present but unparsable")
		}

		rep.Step("agent.running", "agent running", 2, 3)

		if !deadline.IsZero() && time.Now().After(deadline) {
			rep.Failed("agent.timeout", fmt.Sprintf("gave up waiting after %s", timeout))
			return State{Status: StatusRunning}, coverr.Newf(coverr.EAgentTimeout,
				"agent still running after %s", timeout)
		}
		select {
		case <-ctx.Done():
			return State{Status: StatusRunning}, ctx.Err()
		case <-time.After(interval):
		}
	}
}
