package hierarchy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/opsfactor/tgrender/internal/value"
)

// setupRepo writes a hierarchy fixture and returns (root, resourcePath).
func setupRepo(t *testing.T, files map[string]string) (string, string) {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	resource := filepath.Join(root, "live", "non-production", "development", "dp-dev-01", "europe-west2", "gke", "cluster-01")
	if err := os.MkdirAll(resource, 0o755); err != nil {
		t.Fatalf("mkdir resource: %v", err)
	}
	return root, resource
}

func TestMergeLaterFilesOverride(t *testing.T) {
	root, resource := setupRepo(t, map[string]string{
		"root.hcl":                            "",
		"live/non-production/account.hcl":     "locals {\n  org_id = \"111\"\n}\n",
		"live/non-production/development/env.hcl": "locals {\n  env = \"dev\"\n}\n",
		"_common/common.hcl":                  "locals {\n  env = \"prod\"\n}\n",
	})

	result, err := Merge(resource, root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if v, _ := result.Merged.Get("env"); v != "prod" {
		t.Errorf("env = %v, want the latest file to win", v)
	}
	if v, _ := result.Merged.Get("org_id"); v != "111" {
		t.Errorf("org_id = %v", v)
	}
	if src, _ := result.Sources.Get("env"); src != filepath.Join(root, "_common", "common.hcl") {
		t.Errorf("source for env = %v", src)
	}
	if src, _ := result.Sources.Get("org_id"); src != filepath.Join(root, "live", "non-production", "account.hcl") {
		t.Errorf("source for org_id = %v", src)
	}
}

func TestMergeDerivedDefaults(t *testing.T) {
	root, resource := setupRepo(t, map[string]string{
		"root.hcl":                        "",
		"live/non-production/account.hcl": "locals {\n  environment = \"development\"\n  environment_type = \"non-production\"\n}\n",
		"_common/common.hcl":              "locals {}\n",
	})

	result, err := Merge(resource, root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if v, _ := result.Derived.Get("region"); v != DefaultRegion {
		t.Errorf("region default = %v", v)
	}
	if v, _ := result.Derived.Get("resource_name"); v != "cluster-01" {
		t.Errorf("resource_name = %v", v)
	}
	if v, _ := result.Derived.Get("environment"); v != "development" {
		t.Errorf("environment = %v", v)
	}
	mv, _ := result.Derived.Get("module_versions")
	if m, ok := mv.(*value.Map); !ok || m.Len() != 0 {
		t.Errorf("module_versions default = %v", mv)
	}
}

func TestStandardLabels(t *testing.T) {
	root, resource := setupRepo(t, map[string]string{
		"root.hcl": "",
		"live/non-production/account.hcl": `locals {
  environment      = "development"
  environment_type = "non-production"
  org_labels = {
    org = "acme"
  }
  env_labels = {
    cost_centre = "eng"
    org         = "acme-dev"
  }
}
`,
		"_common/common.hcl": "locals {}\n",
	})

	result, err := Merge(resource, root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	labels := result.Labels
	if v, _ := labels.Get("managed_by"); v != "terragrunt" {
		t.Errorf("managed_by = %v", v)
	}
	if v, _ := labels.Get("environment"); v != "development" {
		t.Errorf("environment = %v", v)
	}
	// env_labels extend after org_labels, so its org value wins.
	if v, _ := labels.Get("org"); v != "acme-dev" {
		t.Errorf("org = %v", v)
	}
	if v, _ := labels.Get("cost_centre"); v != "eng" {
		t.Errorf("cost_centre = %v", v)
	}
}

func TestMergeEvaluatesProjectFile(t *testing.T) {
	root, resource := setupRepo(t, map[string]string{
		"root.hcl":                        "",
		"live/non-production/account.hcl": "locals {\n  org_id = \"111\"\n}\n",
		"live/non-production/development/env.hcl": "locals {\n  environment = \"development\"\n}\n",
		"live/non-production/development/dp-dev-01/project.hcl": `locals {
  project_id   = basename(get_terragrunt_dir())
  project_name = "pf-${local.project_id}"
  environment  = try(local.env_vars.environment, "unknown")
  hierarchy    = read_terragrunt_config(find_in_parent_folders("env.hcl"))
}
`,
		"_common/common.hcl": "locals {}\n",
	})

	result, err := Merge(resource, root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if v, _ := result.Merged.Get("project_id"); v != "dp-dev-01" {
		t.Errorf("project_id = %v", v)
	}
	if v, _ := result.Merged.Get("project_name"); v != "pf-dp-dev-01" {
		t.Errorf("project_name = %v", v)
	}
	if v, _ := result.Merged.Get("environment"); v != "development" {
		t.Errorf("environment from env_vars = %v", v)
	}
	if _, ok := result.Merged.Get("hierarchy"); ok {
		t.Error("read_terragrunt_config assignments must be dropped")
	}
	if _, ok := result.Merged.Get("env_vars"); ok {
		t.Error("seed scaffolding must not leak into the merge")
	}
}
