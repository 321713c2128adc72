package gitx

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing/object"
)

func commitFile(t *testing.T, wt *git.Worktree, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := wt.Add(name); err != nil {
		t.Fatal(err)
	}
	hash, err := wt.Commit("add "+name, &git.CommitOptions{
		Author: &object.Signature{Name: "test", Email: "test@example.com", When: time.Now()},
	})
	if err != nil {
		t.Fatal(err)
	}
	return hash.String()
}

func TestChangedFiles(t *testing.T) {
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatal(err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		t.Fatal(err)
	}

	base := commitFile(t, wt, dir, "live/dev/vpc/terragrunt.hcl", "a")
	commitFile(t, wt, dir, "live/dev/gke/terragrunt.hcl", "b")
	commitFile(t, wt, dir, "live/dev/vpc/terragrunt.hcl", "changed")

	r, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	files, err := r.ChangedFiles(base, "HEAD")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"live/dev/gke/terragrunt.hcl", "live/dev/vpc/terragrunt.hcl"}
	if len(files) != len(want) {
		t.Fatalf("files = %v", files)
	}
	for i := range want {
		if files[i] != want[i] {
			t.Errorf("file %d = %q, want %q", i, files[i], want[i])
		}
	}
}

func TestChangedFilesBadRef(t *testing.T) {
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatal(err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		t.Fatal(err)
	}
	commitFile(t, wt, dir, "a.txt", "a")

	r, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.ChangedFiles("no-such-ref", "HEAD"); err == nil {
		t.Error("expected error for unknown ref")
	}
}

func TestOpenNotARepo(t *testing.T) {
	if _, err := Open(t.TempDir()); err == nil {
		t.Error("expected error outside a repository")
	}
}
