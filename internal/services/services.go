// Package services starts configured background processes inside a
// running environment.
package services

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/zpdzap/coves/internal/compose"
	"github.com/zpdzap/coves/internal/config"
	"github.com/zpdzap/coves/internal/coverr"
	"github.com/zpdzap/coves/internal/environment"
)

// Runner starts the declared services inside the dev container.
// Services are re-derived from config on every run and never persisted.
//
// Restart policy: a re-run kills any previous instance of the exact
// command before starting a new one, so repeated invocations restart
// cleanly instead of stacking duplicate processes.
type Runner struct {
	rt      *compose.Runtime
	service string
	specs   []config.ServiceSpec
}

// NewRunner builds a runner from the project config.
func NewRunner(rt *compose.Runtime, cfg *config.Config) *Runner {
	return &Runner{rt: rt, service: cfg.Compose.Service, specs: cfg.Services}
}

// Run starts every configured service detached, stdout/stderr
// redirected to its log destination. Returns the number started.
func (r *Runner) Run(ctx context.Context, env *environment.Environment) (int, error) {
	started := 0
	for _, spec := range r.specs {
		if err := r.startOne(ctx, env, spec); err != nil {
			return started, err
		}
		started++
	}
	return started, nil
}

// Stop kills every configured service's process inside the dev
// container. A service with no running instance counts as already
// stopped, so repeated stops are no-ops. Returns the number of
// services whose process was actually signalled.
func (r *Runner) Stop(ctx context.Context, env *environment.Environment) (int, error) {
	stopped := 0
	for _, spec := range r.specs {
		res, err := r.rt.Exec(ctx, env, compose.ExecOpts{Service: r.service},
			"pkill", "-f", "-x", spec.Command)
		if err != nil {
			return stopped, coverr.Wrap(coverr.EServiceStart,
				fmt.Sprintf("stopping service %q", spec.Name), err)
		}
		if res.ExitCode == 0 {
			logrus.WithFields(logrus.Fields{"env": env.Name, "service": spec.Name}).
				Debug("service stopped")
			stopped++
		}
	}
	return stopped, nil
}

func (r *Runner) startOne(ctx context.Context, env *environment.Environment, spec config.ServiceSpec) error {
	log := logrus.WithFields(logrus.Fields{"env": env.Name, "service": spec.Name})

	// Kill a previous instance of this exact command, if any.
	r.rt.Exec(ctx, env, compose.ExecOpts{Service: r.service},
		"pkill", "-f", "-x", spec.Command)

	dir := spec.Dir
	if dir == "" {
		dir = "/workspace"
	}
	logPath := spec.LogPath()
	shell := fmt.Sprintf("mkdir -p $(dirname %s) && cd %s && exec %s >>%s 2>&1",
		logPath, dir, spec.Command, logPath)

	res, err := r.rt.Exec(ctx, env,
		compose.ExecOpts{Service: r.service, Detach: true},
		"sh", "-c", shell)
	if err != nil {
		return coverr.Wrap(coverr.EServiceStart,
			fmt.Sprintf("starting service %q", spec.Name), err)
	}
	if res.ExitCode != 0 {
		return coverr.Newf(coverr.EServiceStart,
			"service %q failed to start: %s", spec.Name, res.Combined())
	}
	log.WithField("log", logPath).Debug("service started")
	return nil
}
