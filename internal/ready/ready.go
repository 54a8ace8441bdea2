// Package ready gates dependent operations on an environment's
// one-time container bootstrap.
//
// The dev container's bootstrap touches a sentinel marker when it
// finishes installing packages; until then, racing commands against
// the container fails nondeterministically. Every dependent operation
// (service start, shell, agent start) waits here instead of rolling
// its own polling. Pure metadata operations (ls, status) never wait.
package ready

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/zpdzap/coves/internal/compose"
	"github.com/zpdzap/coves/internal/config"
	"github.com/zpdzap/coves/internal/coverr"
	"github.com/zpdzap/coves/internal/environment"
)

// Gate polls the readiness marker with bounded retries.
type Gate struct {
	rt      *compose.Runtime
	service string
	marker  string

	// Interval and Timeout come from config; tests shrink them.
	Interval time.Duration
	Timeout  time.Duration
}

// NewGate builds a gate from the project config.
func NewGate(rt *compose.Runtime, cfg *config.Config) *Gate {
	return &Gate{
		rt:       rt,
		service:  cfg.Compose.Service,
		marker:   cfg.Ready.Marker,
		Interval: time.Duration(cfg.Ready.IntervalSeconds) * time.Second,
		Timeout:  time.Duration(cfg.Ready.TimeoutSeconds) * time.Second,
	}
}

// Check probes the marker once. Side-effect-free and safe to retry.
func (g *Gate) Check(ctx context.Context, env *environment.Environment) bool {
	res, err := g.rt.Exec(ctx, env, compose.ExecOpts{Service: g.service},
		"test", "-f", g.marker)
	return err == nil && res.ExitCode == 0
}

// Wait blocks until the marker appears or the timeout elapses. The
// marker's presence is the sole readiness signal.
func (g *Gate) Wait(ctx context.Context, env *environment.Environment) error {
	deadline := time.Now().Add(g.Timeout)
	log := logrus.WithFields(logrus.Fields{"env": env.Name, "marker": g.marker})
	log.Debug("waiting for readiness marker")

	for {
		if g.Check(ctx, env) {
			log.Debug("environment ready")
			return nil
		}
		if time.Now().After(deadline) {
			return coverr.Newf(coverr.EReadyTimeout,
				"environment %q not ready after %s (marker %s missing; check `cove logs %s`)",
				env.Name, g.Timeout, g.marker, env.Name)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(g.Interval):
		}
	}
}
