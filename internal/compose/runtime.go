package compose

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"

	"github.com/zpdzap/coves/internal/coverr"
	"github.com/zpdzap/coves/internal/environment"
	"github.com/zpdzap/coves/internal/execx"
)

// Runtime drives the container runtime for one project. The contract
// is narrow: bring-up (detached), tear-down, bounded log retrieval,
// and one-shot command execution inside a running service.
type Runtime struct {
	run execx.Runner
}

// NewRuntime returns a Runtime using the given command runner.
func NewRuntime(run execx.Runner) *Runtime {
	return &Runtime{run: run}
}

func baseArgs(env *environment.Environment) []string {
	return []string{"compose", "-p", env.ComposeProject(), "-f", env.ComposeFile()}
}

// Up starts the environment's network and containers in detached mode.
func (rt *Runtime) Up(ctx context.Context, env *environment.Environment) error {
	args := append(baseArgs(env), "up", "-d")
	res, err := rt.run.Run(ctx, "docker", args, execx.Opts{})
	if err != nil {
		return coverr.Wrap(coverr.ERuntimeStart, "docker compose up", err)
	}
	if res.ExitCode != 0 {
		return coverr.Newf(coverr.ERuntimeStart, "docker compose up failed: %s", res.Combined())
	}
	return nil
}

// Down stops and removes the environment's containers, network, and
// volumes.
func (rt *Runtime) Down(ctx context.Context, env *environment.Environment) error {
	args := append(baseArgs(env), "down", "--volumes", "--remove-orphans")
	res, err := rt.run.Run(ctx, "docker", args, execx.Opts{})
	if err != nil {
		return fmt.Errorf("docker compose down: %w", err)
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("docker compose down failed: %s", res.Combined())
	}
	return nil
}

// Logs returns a bounded tail of a service's container logs. Empty
// service means all services.
func (rt *Runtime) Logs(ctx context.Context, env *environment.Environment, service string, tail int) (string, error) {
	args := append(baseArgs(env), "logs", "--no-color", "--tail", strconv.Itoa(tail))
	if service != "" {
		args = append(args, service)
	}
	res, err := rt.run.Run(ctx, "docker", args, execx.Opts{})
	if err != nil {
		return "", fmt.Errorf("docker compose logs: %w", err)
	}
	return res.Combined(), nil
}

// ExecOpts controls one-shot command execution inside a service.
type ExecOpts struct {
	Service string
	Workdir string
	Detach  bool
}

// Exec runs a command inside a running service container and captures
// its output. Exec never allocates a TTY; interactive paths go through
// InteractiveCmd.
func (rt *Runtime) Exec(ctx context.Context, env *environment.Environment, opts ExecOpts, command ...string) (execx.Result, error) {
	args := append(baseArgs(env), "exec", "-T")
	if opts.Detach {
		args = append(args, "-d")
	}
	if opts.Workdir != "" {
		args = append(args, "-w", opts.Workdir)
	}
	args = append(args, opts.Service)
	args = append(args, command...)
	return rt.run.Run(ctx, "docker", args, execx.Opts{})
}

// InteractiveCmd builds an exec.Cmd that attaches the caller's
// terminal to a command inside a service container. The caller wires
// stdio and runs it; interrupting it has no effect on the container.
func InteractiveCmd(env *environment.Environment, service string, command ...string) *exec.Cmd {
	args := append(baseArgs(env), "exec", "-it", service)
	args = append(args, command...)
	return exec.Command("docker", args...)
}

// FollowLogsCmd builds an exec.Cmd streaming logs to the caller's
// terminal until interrupted.
func FollowLogsCmd(env *environment.Environment, service string, tail int) *exec.Cmd {
	args := append(baseArgs(env), "logs", "-f", "--tail", strconv.Itoa(tail))
	if service != "" {
		args = append(args, service)
	}
	return exec.Command("docker", args...)
}
