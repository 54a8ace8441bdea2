// Package worktree manages the per-environment git checkout: an
// isolated worktree bound to a dedicated branch.
package worktree

import (
	"context"
	"fmt"
	"strings"

	"github.com/zpdzap/coves/internal/coverr"
	"github.com/zpdzap/coves/internal/execx"
)

// Git wraps the version-control collaborator. Failures surface as
// EVCSFailure with the tool's message text.
type Git struct {
	run        execx.Runner
	projectDir string
}

// NewGit returns a Git rooted at projectDir.
func NewGit(run execx.Runner, projectDir string) *Git {
	return &Git{run: run, projectDir: projectDir}
}

func (g *Git) git(ctx context.Context, args ...string) (execx.Result, error) {
	return g.run.Run(ctx, "git", args, execx.Opts{Dir: g.projectDir})
}

// ResolveBaseRef picks the ref a new branch starts from: the explicit
// argument, else the current branch, else main/master, else HEAD;
// first that resolves wins.
func (g *Git) ResolveBaseRef(ctx context.Context, explicit string) (string, error) {
	var candidates []string
	if explicit != "" {
		candidates = append(candidates, explicit)
	}
	if res, err := g.git(ctx, "branch", "--show-current"); err == nil && res.ExitCode == 0 {
		if cur := strings.TrimSpace(res.Stdout); cur != "" {
			candidates = append(candidates, cur)
		}
	}
	candidates = append(candidates, "main", "master", "HEAD")

	for _, ref := range candidates {
		res, err := g.git(ctx, "rev-parse", "--verify", "--quiet", ref)
		if err == nil && res.ExitCode == 0 {
			return ref, nil
		}
		if explicit != "" && ref == explicit {
			return "", coverr.Newf(coverr.EVCSFailure, "base ref %q does not resolve", explicit)
		}
	}
	return "", coverr.New(coverr.EVCSFailure, "no usable base ref (empty repository?)")
}

// Add creates a worktree at path on a fresh branch cut from baseRef.
func (g *Git) Add(ctx context.Context, path, branch, baseRef string) error {
	res, err := g.git(ctx, "worktree", "add", path, "-b", branch, baseRef)
	if err != nil {
		return coverr.Wrap(coverr.EVCSFailure, "git worktree add", err)
	}
	if res.ExitCode != 0 {
		return coverr.Newf(coverr.EVCSFailure, "git worktree add failed: %s", res.Combined())
	}
	return nil
}

// Remove removes a worktree via git's own removal operation and
// deletes its branch. The branch deletion is best-effort; a failing
// worktree removal is reported so the caller can escalate.
func (g *Git) Remove(ctx context.Context, path, branch string) error {
	res, err := g.git(ctx, "worktree", "remove", "--force", path)
	if err != nil {
		return coverr.Wrap(coverr.EVCSFailure, "git worktree remove", err)
	}
	if res.ExitCode != 0 {
		return coverr.Newf(coverr.EVCSFailure, "git worktree remove failed: %s", res.Combined())
	}
	// The branch may be gone already or checked out elsewhere.
	g.git(ctx, "branch", "-D", branch)
	return nil
}

// Prune drops stale worktree bookkeeping after a forced cleanup.
func (g *Git) Prune(ctx context.Context) {
	g.git(ctx, "worktree", "prune")
}

// Diff returns the uncommitted changes inside a worktree.
func (g *Git) Diff(ctx context.Context, worktreePath string) (string, error) {
	res, err := g.run.Run(ctx, "git", []string{"-C", worktreePath, "diff"}, execx.Opts{})
	if err != nil {
		return "", fmt.Errorf("git diff: %w", err)
	}
	return res.Stdout, nil
}
