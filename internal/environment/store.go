package environment

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/zpdzap/coves/internal/config"
	"github.com/zpdzap/coves/internal/coverr"
	"github.com/zpdzap/coves/internal/naming"
)

// Store reads environments off disk. Safe for concurrent readers; two
// engine instances must not race on create/remove of the same name
// (documented limitation, no lock is taken).
type Store struct {
	projectRoot string
}

// NewStore returns a store rooted at projectRoot.
func NewStore(projectRoot string) *Store {
	return &Store{projectRoot: projectRoot}
}

func (s *Store) envsDir() string {
	return filepath.Join(s.projectRoot, config.Dir, config.EnvsDir)
}

// List rescans the environments directory and returns every
// environment with a readable descriptor, sorted by creation time.
func (s *Store) List() ([]*Environment, error) {
	entries, err := os.ReadDir(s.envsDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var envs []*Environment
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		env, err := readDescriptor(s.projectRoot, entry.Name())
		if err != nil {
			// Half-created or foreign dirs are skipped, not fatal.
			continue
		}
		envs = append(envs, env)
	}
	sort.Slice(envs, func(i, j int) bool {
		if envs[i].CreatedAt.Equal(envs[j].CreatedAt) {
			return envs[i].Name < envs[j].Name
		}
		return envs[i].CreatedAt.Before(envs[j].CreatedAt)
	})
	return envs, nil
}

// Get returns the named environment or EEnvNotFound. Names that are
// not in sanitized form cannot have been stored, so they are rejected
// outright rather than joined into a path.
func (s *Store) Get(name string) (*Environment, error) {
	if !naming.ValidName(name) {
		return nil, coverr.Newf(coverr.EEnvNotFound, "environment %q not found", name)
	}
	env, err := readDescriptor(s.projectRoot, name)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, coverr.Newf(coverr.EEnvNotFound, "environment %q not found", name)
		}
		return nil, err
	}
	return env, nil
}

// Exists reports whether an env dir (even a half-created one) exists.
func (s *Store) Exists(name string) bool {
	if !naming.ValidName(name) {
		return false
	}
	_, err := os.Stat(naming.EnvDir(s.projectRoot, name))
	return err == nil
}

// NextOrdinal picks the smallest ordinal unused by any live
// environment, so port blocks of removed environments are reused while
// simultaneously-live ones never collide.
func (s *Store) NextOrdinal() (int, error) {
	envs, err := s.List()
	if err != nil {
		return 0, err
	}
	taken := make(map[int]bool, len(envs))
	for _, env := range envs {
		taken[env.Ordinal] = true
	}
	for ord := 0; ; ord++ {
		if !taken[ord] {
			return ord, nil
		}
	}
}
