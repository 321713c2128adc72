package render

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/opsfactor/tgrender/internal/value"
)

// fakeParser stands in for the hcl2json bridge with pre-built trees.
type fakeParser map[string]*value.Map

func (f fakeParser) Parse(path string) (*value.Map, error) {
	if tree, ok := f[path]; ok {
		return tree, nil
	}
	return nil, fmt.Errorf("no fixture for %s", path)
}

func setupRenderRepo(t *testing.T) (root, resource string) {
	t.Helper()
	root = t.TempDir()
	resource = filepath.Join(root, "live", "non-production", "development", "europe-west2", "compute", "sql-server-01")
	files := map[string]string{
		"root.hcl":                        "",
		"live/non-production/account.hcl": "locals {\n  environment      = \"development\"\n  environment_type = \"non-production\"\n}\n",
		"_common/common.hcl":              "locals {\n  module_versions = {\n    sql = \"v1.0.0\"\n  }\n}\n",
		"_common/compute_common.hcl":      "locals {}\n",
		"_common/templates/sql.hcl":       "locals {}\n",
	}
	for name, content := range files {
		path := filepath.Join(root, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.MkdirAll(resource, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(resource, "terragrunt.hcl"), []byte("# parsed via bridge\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	return root, resource
}

func renderFixture(t *testing.T) *Output {
	t.Helper()
	root, resource := setupRenderRepo(t)

	resourceTree := mapOf(
		"include", mapOf(
			"base", mapOf(
				"path", "${get_repo_root()}/_common/templates/sql.hcl",
				"merge_strategy", "deep",
				"expose", true,
			),
			"compute_common", mapOf(
				"path", "${get_repo_root()}/_common/compute_common.hcl",
				"expose", true,
			),
		),
		"dependency", mapOf("net", mapOf("config_path", "../../network")),
		"locals", []any{mapOf("instance_suffix", "01")},
		"inputs", mapOf(
			"name", "${include.base.locals.resource_name}",
			"tags", []any{"x"},
			"labels", mapOf("b", "9", "c", "3"),
			"vpc", "${dependency.net.outputs.vpc_id}",
			"machine_ref", "${include.compute_common.locals.machine_type}",
		),
	)
	templateTree := mapOf(
		"terraform", []any{mapOf("source", "git::https://example.com/modules//sql?ref=${local.module_versions.sql}")},
		"locals", []any{mapOf("environment", "${local.common_vars.locals.environment}")},
		"inputs", mapOf(
			"tags", []any{"a", "b"},
			"labels", mapOf("a", "1", "b", "2"),
			"machine_type", "e2-small",
			"startup_script", "${templatefile(\"scripts/start.sh.tpl\", {})}",
		),
	)
	includeTree := mapOf("locals", []any{mapOf("machine_type", "e2-small")})

	parser := fakeParser{
		filepath.Join(resource, "terragrunt.hcl"):                resourceTree,
		filepath.Join(root, "_common", "templates", "sql.hcl"):   templateTree,
		filepath.Join(root, "_common", "compute_common.hcl"):     includeTree,
	}

	out, err := New(resource, root, parser).Render()
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	return out
}

func TestRenderTerraformSource(t *testing.T) {
	out := renderFixture(t)
	want := "git::https://example.com/modules//sql?ref=v1.0.0"
	if out.TerraformSource != want {
		t.Errorf("terraform_source = %q, want %q", out.TerraformSource, want)
	}
}

func TestRenderListReplace(t *testing.T) {
	out := renderFixture(t)
	tags, _ := out.Inputs.Get("tags")
	if !value.Equal(tags, []any{"x"}) {
		t.Errorf("tags = %v, resource list must replace template list", tags)
	}
}

func TestRenderDeepMapMerge(t *testing.T) {
	out := renderFixture(t)
	labels, _ := out.Inputs.Get("labels")
	m, ok := labels.(*value.Map)
	if !ok {
		t.Fatalf("labels = %T", labels)
	}
	want := map[string]string{"a": "1", "b": "9", "c": "3"}
	for k, v := range want {
		if got, _ := m.Get(k); got != v {
			t.Errorf("labels[%s] = %v, want %v", k, got, v)
		}
	}
}

func TestRenderBaseLocalsAndDependencies(t *testing.T) {
	out := renderFixture(t)
	if v, _ := out.Inputs.Get("name"); v != "sql-server-01" {
		t.Errorf("name = %v", v)
	}
	if v, _ := out.Inputs.Get("vpc"); v != "#dependency|../../network, vpc_id|" {
		t.Errorf("vpc = %v", v)
	}
	if v, _ := out.Inputs.Get("machine_ref"); v != "e2-small" {
		t.Errorf("machine_ref (exposed include) = %v", v)
	}
}

func TestRenderUnresolvedPropagates(t *testing.T) {
	out := renderFixture(t)
	if v, _ := out.Inputs.Get("startup_script"); v != "<templatefile(...)>" {
		t.Errorf("startup_script = %v", v)
	}
	if !slices.Contains(out.Unresolved, "templatefile(...)") {
		t.Errorf("unresolved = %v", out.Unresolved)
	}
}

func TestRenderSources(t *testing.T) {
	out := renderFixture(t)
	resRel := filepath.Join("live", "non-production", "development", "europe-west2", "compute", "sql-server-01", "terragrunt.hcl")
	tmplRel := filepath.Join("_common", "templates", "sql.hcl")

	for pair := out.Inputs.Oldest(); pair != nil; pair = pair.Next() {
		if _, ok := out.Sources.Get(pair.Key); !ok {
			t.Errorf("key %s missing from sources", pair.Key)
		}
	}
	if v, _ := out.Sources.Get("tags"); v != resRel {
		t.Errorf("source for tags = %v", v)
	}
	if v, _ := out.Sources.Get("machine_type"); v != tmplRel {
		t.Errorf("source for machine_type = %v", v)
	}
}

func TestRenderMissingResourceFile(t *testing.T) {
	root, resource := setupRenderRepo(t)
	if err := os.Remove(filepath.Join(resource, "terragrunt.hcl")); err != nil {
		t.Fatal(err)
	}
	_, err := New(resource, root, fakeParser{}).Render()
	if err == nil || !strings.Contains(err.Error(), "terragrunt.hcl") {
		t.Errorf("expected missing resource file error, got %v", err)
	}
}
