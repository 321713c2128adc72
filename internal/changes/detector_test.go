package changes

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/opsfactor/tgrender/internal/value"
)

func setupWorkDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for _, f := range []string{
		"live/dev/vpc-network/terragrunt.hcl",
		"live/dev/gke/cluster-01/terragrunt.hcl",
		"live/dev/gke/example-cluster/terragrunt.hcl",
		"live/prod/gke/cluster-02/terragrunt.hcl",
		"_common/templates/gke/main.hcl",
	} {
		path := filepath.Join(dir, f)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(""), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func testDefs() *Definitions {
	return &Definitions{Resources: map[string]*Resource{
		"vpc-network": {
			PathPattern: Patterns{"live/**/vpc-network/**"},
			Emoji:       "🕸️",
			Name:        "VPC Network",
		},
		"gke": {
			Dependencies: []string{"vpc-network"},
			PathPattern:  Patterns{"live/**/gke/**"},
			TemplatePath: "_common/templates/gke",
			Emoji:        "🚢",
			Name:         "GKE Cluster",
		},
	}}
}

func TestDetectDirectChange(t *testing.T) {
	dir := setupWorkDir(t)
	d := &Detector{Defs: testDefs(), WorkDir: dir}

	result, err := d.Detect([]string{"live/dev/gke/cluster-01/terragrunt.hcl"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	gke := result.ByType["gke"]
	if gke == nil || len(gke.Paths) != 1 || gke.Paths[0] != "live/dev/gke/cluster-01" {
		t.Errorf("gke changes = %+v", gke)
	}
	if gke.Resource.ID != "gke" {
		t.Errorf("resource id = %q", gke.Resource.ID)
	}
}

func TestDetectTemplateChangeExpandsInstances(t *testing.T) {
	dir := setupWorkDir(t)
	d := &Detector{Defs: testDefs(), WorkDir: dir}

	result, err := d.Detect([]string{"_common/templates/gke/main.hcl"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	gke := result.ByType["gke"]
	if gke == nil {
		t.Fatal("template change must affect gke")
	}
	want := []string{"live/dev/gke/cluster-01", "live/prod/gke/cluster-02"}
	if len(gke.Paths) != len(want) {
		t.Fatalf("paths = %v, want %v (example- instances skipped)", gke.Paths, want)
	}
	for i := range want {
		if gke.Paths[i] != want[i] {
			t.Errorf("path %d = %q, want %q", i, gke.Paths[i], want[i])
		}
	}
}

func TestDetectDeletedResource(t *testing.T) {
	dir := setupWorkDir(t)
	d := &Detector{Defs: testDefs(), WorkDir: dir}

	result, err := d.Detect([]string{"live/dev/gke/removed-01/terragrunt.hcl"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	deleted := result.Deleted["gke"]
	if len(deleted) != 1 || deleted[0] != "live/dev/gke/removed-01" {
		t.Errorf("deleted = %v", deleted)
	}
	if result.ByType["gke"] != nil {
		t.Errorf("deleted instance must not appear as changed")
	}
}

func TestDetectDependencyOrder(t *testing.T) {
	dir := setupWorkDir(t)
	d := &Detector{Defs: testDefs(), WorkDir: dir}

	result, err := d.Detect([]string{
		"live/dev/gke/cluster-01/terragrunt.hcl",
		"live/dev/vpc-network/terragrunt.hcl",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Ordered) != 2 || result.Ordered[0] != "vpc-network" || result.Ordered[1] != "gke" {
		t.Errorf("ordered = %v", result.Ordered)
	}
}

func TestDetectOutputShape(t *testing.T) {
	dir := setupWorkDir(t)
	d := &Detector{Defs: testDefs(), WorkDir: dir}

	result, err := d.Detect([]string{"live/dev/vpc-network/terragrunt.hcl"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := result.Output()
	entry, ok := out.Get("vpc-network")
	if !ok {
		t.Fatal("vpc-network missing from output")
	}
	config, _ := entry.(*value.Map).Get("config")
	id, _ := config.(*value.Map).Get("id")
	if id != "vpc-network" {
		t.Errorf("config.id = %v", id)
	}
}
