// Package provision creates the resources backing an environment:
// worktree, descriptor, rendered compose file, and running containers.
// Steps are sequential and fail fast; partially-created resources are
// left in place so the operator can inspect or force-remove them.
package provision

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/zpdzap/coves/internal/compose"
	"github.com/zpdzap/coves/internal/config"
	"github.com/zpdzap/coves/internal/coverr"
	"github.com/zpdzap/coves/internal/environment"
	"github.com/zpdzap/coves/internal/naming"
	"github.com/zpdzap/coves/internal/progress"
	"github.com/zpdzap/coves/internal/worktree"
)

// Provisioner builds environments from config + template.
type Provisioner struct {
	cfg         *config.Config
	store       *environment.Store
	git         *worktree.Git
	rt          *compose.Runtime
	projectRoot string
}

func NewProvisioner(cfg *config.Config, store *environment.Store, git *worktree.Git, rt *compose.Runtime, projectRoot string) *Provisioner {
	return &Provisioner{cfg: cfg, store: store, git: git, rt: rt, projectRoot: projectRoot}
}

// templatePath prefers an explicit compose.template from config and
// falls back to the scaffolded default next to it.
func (p *Provisioner) templatePath() string {
	if p.cfg.Compose.Template != "" {
		if filepath.IsAbs(p.cfg.Compose.Template) {
			return p.cfg.Compose.Template
		}
		return filepath.Join(p.projectRoot, p.cfg.Compose.Template)
	}
	return filepath.Join(p.projectRoot, config.Dir, config.TemplateFile)
}

// Create provisions a new environment named name, branched off baseRef
// (empty means auto-detect). Each step pushes a progress event; the
// first failure stops the sequence and is returned as-is.
func (p *Provisioner) Create(ctx context.Context, name, baseRef string, rep *progress.Reporter) (*environment.Environment, error) {
	name = naming.Sanitize(name)
	log := logrus.WithField("env", name)

	if p.store.Exists(name) {
		return nil, coverr.Newf(coverr.EWorkspaceExists,
			"environment %q already exists; pick another name or remove it first", name)
	}

	const total = 4

	rep.Step("create.base", "resolving base ref", 1, total)
	base, err := p.git.ResolveBaseRef(ctx, baseRef)
	if err != nil {
		return nil, err
	}
	log.WithField("base", base).Debug("base ref resolved")

	ordinal, err := p.store.NextOrdinal()
	if err != nil {
		return nil, err
	}
	ports := naming.AllocatePorts(p.cfg.Ports, ordinal)
	env := environment.New(p.projectRoot, name, ordinal, ports)

	if err := os.MkdirAll(env.EnvDir, 0o755); err != nil {
		return nil, coverr.Wrap(coverr.EInternal, fmt.Sprintf("creating %s", env.EnvDir), err)
	}

	rep.Step("create.worktree", fmt.Sprintf("creating worktree on %s", env.Branch), 2, total)
	if err := p.git.Add(ctx, env.WorktreePath, env.Branch, base); err != nil {
		return nil, err
	}

	rep.Step("create.render", "rendering runtime description", 3, total)
	if err := env.WriteDescriptor(); err != nil {
		return nil, coverr.Wrap(coverr.EInternal, "writing descriptor", err)
	}
	if err := compose.RenderFile(p.templatePath(), env.ComposeFile(), env.Vars()); err != nil {
		return nil, err
	}

	rep.Step("create.start", "starting containers", 4, total)
	if err := p.rt.Up(ctx, env); err != nil {
		return nil, err
	}

	log.WithFields(logrus.Fields{"ordinal": env.Ordinal, "network": env.Network}).
		Info("environment created")
	return env, nil
}
