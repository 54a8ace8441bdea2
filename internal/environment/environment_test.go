package environment

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/zpdzap/coves/internal/coverr"
)

func mkenv(t *testing.T, root, name string, ordinal int, ports map[string]int) *Environment {
	t.Helper()
	env := New(root, name, ordinal, ports)
	if err := os.MkdirAll(env.EnvDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := env.WriteDescriptor(); err != nil {
		t.Fatalf("WriteDescriptor: %v", err)
	}
	return env
}

func TestDescriptorRoundTrip(t *testing.T) {
	root := t.TempDir()
	env := mkenv(t, root, "feature-x", 2, map[string]int{"APP": 8100, "DB": 5452})

	loaded, err := readDescriptor(root, "feature-x")
	if err != nil {
		t.Fatalf("readDescriptor: %v", err)
	}
	if loaded.Ordinal != 2 {
		t.Errorf("Ordinal = %d, want 2", loaded.Ordinal)
	}
	if loaded.Ports["APP"] != 8100 || loaded.Ports["DB"] != 5452 {
		t.Errorf("Ports = %v", loaded.Ports)
	}
	if loaded.Branch != "cove/feature-x" {
		t.Errorf("Branch = %q", loaded.Branch)
	}
	if loaded.WorktreePath != env.WorktreePath {
		t.Errorf("WorktreePath = %q, want %q", loaded.WorktreePath, env.WorktreePath)
	}
	if loaded.CreatedAt.IsZero() {
		t.Error("CreatedAt not preserved")
	}
}

func TestVars(t *testing.T) {
	env := New("/proj", "foo", 1, map[string]int{"APP": 8090})
	vars := env.Vars()
	want := map[string]string{
		"COVE_ENV":          "foo",
		"COVE_NETWORK":      "cove-foo",
		"COVE_BRANCH":       "cove/foo",
		"COVE_ORDINAL":      "1",
		"COVE_PROJECT_ROOT": "/proj",
		"COVE_WORKSPACE":    "/proj/.coves/envs/foo/worktree",
		"COVE_PORT_APP":     "8090",
	}
	for k, v := range want {
		if vars[k] != v {
			t.Errorf("Vars[%s] = %q, want %q", k, vars[k], v)
		}
	}
}

func TestStoreListScansDisk(t *testing.T) {
	root := t.TempDir()
	store := NewStore(root)

	envs, err := store.List()
	if err != nil || envs != nil {
		t.Fatalf("empty project: %v, %v", envs, err)
	}

	a := mkenv(t, root, "alpha", 0, map[string]int{"APP": 8080})
	a.CreatedAt = a.CreatedAt.Add(-time.Minute)
	if err := a.WriteDescriptor(); err != nil {
		t.Fatal(err)
	}
	mkenv(t, root, "beta", 1, map[string]int{"APP": 8090})

	// A stray dir without a descriptor is skipped, not an error.
	os.MkdirAll(filepath.Join(root, ".coves", "envs", "junk"), 0o755)

	envs, err = store.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(envs) != 2 {
		t.Fatalf("got %d envs, want 2", len(envs))
	}
	if envs[0].Name != "alpha" || envs[1].Name != "beta" {
		t.Errorf("order = %s, %s", envs[0].Name, envs[1].Name)
	}
}

func TestStoreGet(t *testing.T) {
	root := t.TempDir()
	store := NewStore(root)
	mkenv(t, root, "alpha", 0, nil)

	env, err := store.Get("alpha")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if env.Name != "alpha" {
		t.Errorf("Name = %q", env.Name)
	}

	_, err = store.Get("missing")
	if !coverr.Is(err, coverr.EEnvNotFound) {
		t.Errorf("code = %v, want E_ENV_NOT_FOUND", coverr.CodeOf(err))
	}
}

func TestStoreRejectsUnsanitizedNames(t *testing.T) {
	root := t.TempDir()
	store := NewStore(root)
	env := mkenv(t, root, "alpha", 0, nil)

	// A readable descriptor outside the envs dir must stay unreachable
	// even when the name walks up to it.
	evil := filepath.Join(root, ".coves", "evil")
	if err := os.MkdirAll(evil, 0o755); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(filepath.Join(env.EnvDir, DescriptorFile))
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(evil, DescriptorFile), data, 0o644); err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{"../evil", "..", "a/b", "Alpha", ""} {
		if _, err := store.Get(name); !coverr.Is(err, coverr.EEnvNotFound) {
			t.Errorf("Get(%q) code = %v, want E_ENV_NOT_FOUND", name, coverr.CodeOf(err))
		}
		if store.Exists(name) {
			t.Errorf("Exists(%q) = true", name)
		}
	}
}

func TestNextOrdinalReusesSlots(t *testing.T) {
	root := t.TempDir()
	store := NewStore(root)

	ord, err := store.NextOrdinal()
	if err != nil || ord != 0 {
		t.Fatalf("first ordinal = %d, %v; want 0", ord, err)
	}

	mkenv(t, root, "a", 0, nil)
	mkenv(t, root, "b", 1, nil)

	ord, _ = store.NextOrdinal()
	if ord != 2 {
		t.Errorf("ordinal = %d, want 2", ord)
	}

	// Remove the middle environment; its slot is reused.
	os.RemoveAll(filepath.Join(root, ".coves", "envs", "a"))
	ord, _ = store.NextOrdinal()
	if ord != 0 {
		t.Errorf("ordinal after removal = %d, want 0", ord)
	}
}

func TestOrdinalsDisjointAcrossLiveEnvs(t *testing.T) {
	root := t.TempDir()
	store := NewStore(root)

	names := []string{"a", "b", "c", "d"}
	for _, name := range names {
		ord, err := store.NextOrdinal()
		if err != nil {
			t.Fatal(err)
		}
		mkenv(t, root, name, ord, map[string]int{"APP": 8080 + ord*10})
	}

	envs, _ := store.List()
	seen := make(map[int]string)
	for _, env := range envs {
		if prev, dup := seen[env.Ports["APP"]]; dup {
			t.Errorf("envs %s and %s share port %d", prev, env.Name, env.Ports["APP"])
		}
		seen[env.Ports["APP"]] = env.Name
	}
}
