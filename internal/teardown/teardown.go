// Package teardown removes an environment's resources in dependency
// order: agent session, containers and network, git worktree, env dir.
//
// Container processes on the shared-filesystem mount sometimes leave
// root-owned files the invoking user cannot delete. With force set, a
// minimal privileged helper container deletes the worktree contents
// and the removal is retried once. Nothing outside the environment's
// own directory is ever touched.
package teardown

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/zpdzap/coves/internal/agent"
	"github.com/zpdzap/coves/internal/compose"
	"github.com/zpdzap/coves/internal/coverr"
	"github.com/zpdzap/coves/internal/environment"
	"github.com/zpdzap/coves/internal/execx"
	"github.com/zpdzap/coves/internal/worktree"
)

// helperImage is the image used for privileged cleanup. Its sole job
// is an rm -rf of the mounted worktree contents.
const helperImage = "alpine:3.20"

// Coordinator removes environments.
type Coordinator struct {
	run     execx.Runner
	rt      *compose.Runtime
	git     *worktree.Git
	session *agent.Session
	fs      fsOps
}

// fsOps isolates the final env-dir removal for tests.
type fsOps interface {
	RemoveAll(path string) error
}

// NewCoordinator wires a coordinator from its collaborators.
func NewCoordinator(run execx.Runner, rt *compose.Runtime, git *worktree.Git, session *agent.Session) *Coordinator {
	return &Coordinator{run: run, rt: rt, git: git, session: session, fs: osFS{}}
}

// Remove tears the environment down. With force, a failing worktree
// removal escalates through the privileged helper before giving up
// with RemovalBlocked.
func (c *Coordinator) Remove(ctx context.Context, env *environment.Environment, force bool) error {
	log := logrus.WithField("env", env.Name)

	// Agent session first; stopping an absent one is a no-op.
	if err := c.session.Stop(ctx, env); err != nil {
		log.WithError(err).Debug("agent stop during removal")
	}

	if err := c.rt.Down(ctx, env); err != nil {
		// Containers may already be gone; removal continues.
		log.WithError(err).Debug("compose down during removal")
	}

	if err := c.git.Remove(ctx, env.WorktreePath, env.Branch); err != nil {
		if !force {
			return coverr.Newf(coverr.ERemovalBlocked,
				"cannot remove %s (likely root-owned files from the container); re-run with --force: %v",
				env.WorktreePath, err)
		}
		if err := c.privilegedCleanup(ctx, env); err != nil {
			return err
		}
		c.git.Prune(ctx)
		if err := c.git.Remove(ctx, env.WorktreePath, env.Branch); err != nil {
			return coverr.Newf(coverr.ERemovalBlocked,
				"removal of %s still blocked after privileged cleanup: %v", env.WorktreePath, err)
		}
	}

	if err := c.fs.RemoveAll(env.EnvDir); err != nil {
		return coverr.Newf(coverr.ERemovalBlocked, "removing %s: %v", env.EnvDir, err)
	}
	log.Debug("environment removed")
	return nil
}

// privilegedCleanup deletes the worktree contents via a root container.
// The path is verified to sit inside the environment's own directory
// before anything is mounted.
func (c *Coordinator) privilegedCleanup(ctx context.Context, env *environment.Environment) error {
	rel, err := filepath.Rel(env.EnvDir, env.WorktreePath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, "../") || filepath.IsAbs(rel) {
		return coverr.Newf(coverr.ERemovalBlocked,
			"refusing privileged cleanup: %s is outside %s", env.WorktreePath, env.EnvDir)
	}

	args := []string{
		"run", "--rm",
		"-v", env.WorktreePath + ":/cleanup",
		helperImage,
		"sh", "-c", "rm -rf /cleanup/..?* /cleanup/.[!.]* /cleanup/*",
	}
	res, err := c.run.Run(ctx, "docker", args, execx.Opts{})
	if err != nil {
		return coverr.Wrap(coverr.ERemovalBlocked, "privileged cleanup", err)
	}
	if res.ExitCode != 0 {
		return coverr.Newf(coverr.ERemovalBlocked,
			"privileged cleanup of %s failed: %s", env.WorktreePath, res.Combined())
	}
	return nil
}
