package repo

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// writeTree creates files (with empty content) relative to root.
func writeTree(t *testing.T, root string, files ...string) {
	t.Helper()
	for _, f := range files {
		path := filepath.Join(root, f)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte("locals {}\n"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
}

func TestFindRoot(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "root.hcl", "live/prod/app/terragrunt.hcl")

	got, err := FindRoot(filepath.Join(root, "live", "prod", "app"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != root {
		t.Errorf("FindRoot = %s, want %s", got, root)
	}
}

func TestFindRootBaseSentinel(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "_common/base.hcl", "live/app/terragrunt.hcl")

	got, err := FindRoot(filepath.Join(root, "live", "app"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != root {
		t.Errorf("FindRoot = %s, want %s", got, root)
	}
}

func TestFindRootNotARepo(t *testing.T) {
	dir := t.TempDir()
	_, err := FindRoot(dir)
	if !errors.Is(err, ErrNotARepo) {
		t.Errorf("expected ErrNotARepo, got %v", err)
	}
}

func TestLocate(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root,
		"root.hcl",
		"_common/common.hcl",
		"live/non-production/account.hcl",
		"live/non-production/development/env.hcl",
		"live/non-production/development/platform/dp-dev-01/project.hcl",
		"live/non-production/development/platform/dp-dev-01/europe-west2/region.hcl",
		"live/non-production/development/platform/dp-dev-01/europe-west2/gke/cluster-01/terragrunt.hcl",
	)
	resource := filepath.Join(root, "live/non-production/development/platform/dp-dev-01/europe-west2/gke/cluster-01")

	files, err := NewLocator(resource, root).Locate()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(files) != 5 {
		t.Fatalf("expected 5 hierarchy files, got %d", len(files))
	}

	wantOrder := MergeOrder
	for i, f := range files {
		if f.Name != wantOrder[i] {
			t.Errorf("file %d = %s, want %s", i, f.Name, wantOrder[i])
		}
		if f.Path == "" {
			t.Errorf("file %s should have been found", f.Name)
		}
	}
}

func TestLocateOptionalFilesMayBeAbsent(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root,
		"root.hcl",
		"_common/common.hcl",
		"live/account.hcl",
		"live/app/terragrunt.hcl",
	)
	resource := filepath.Join(root, "live", "app")

	files, err := NewLocator(resource, root).Locate()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	byName := map[string]string{}
	for _, f := range files {
		byName[f.Name] = f.Path
	}
	if byName[AccountFile] == "" || byName[CommonFile] == "" {
		t.Error("required files missing")
	}
	if byName[EnvFile] != "" || byName[ProjectFile] != "" || byName[RegionFile] != "" {
		t.Error("optional files should be empty")
	}
}

func TestLocateMissingAccount(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "root.hcl", "_common/common.hcl", "live/app/terragrunt.hcl")

	_, err := NewLocator(filepath.Join(root, "live", "app"), root).Locate()
	if !errors.Is(err, ErrMissingHierarchyFile) {
		t.Errorf("expected ErrMissingHierarchyFile, got %v", err)
	}
}

func TestLocateMissingCommon(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "root.hcl", "live/account.hcl", "live/app/terragrunt.hcl")

	_, err := NewLocator(filepath.Join(root, "live", "app"), root).Locate()
	if !errors.Is(err, ErrMissingHierarchyFile) {
		t.Errorf("expected ErrMissingHierarchyFile, got %v", err)
	}
}

func TestFindInParentFoldersStopsAtRoot(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "root.hcl", "live/app/terragrunt.hcl")
	// A file above the repo root must not be found.
	writeTree(t, filepath.Dir(root), "account.hcl")

	_, found := NewLocator(filepath.Join(root, "live", "app"), root).FindInParentFolders("account.hcl")
	if found {
		t.Error("search must stop at the repo root")
	}
}

func TestInsideLive(t *testing.T) {
	root := t.TempDir()
	tests := []struct {
		path string
		want bool
	}{
		{filepath.Join(root, "live", "prod", "app"), true},
		{filepath.Join(root, "live"), true},
		{filepath.Join(root, "_common"), false},
		{root, false},
		{filepath.Join(root, "livestock"), false},
	}
	for _, tt := range tests {
		if got := InsideLive(tt.path, root); got != tt.want {
			t.Errorf("InsideLive(%s) = %v, want %v", tt.path, got, tt.want)
		}
	}
}
