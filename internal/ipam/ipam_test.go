package ipam

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const allocationFixture = `
development:
  block: 10.128.0.0/9
  environments:
    dp-dev-01:
      block: 10.132.0.0/16
      total_ips: 65536
      status: active
      primary_subnets:
        gke-nodes:
          cidr: 10.132.0.0/21
          description: GKE node pool
        compute:
          cidr: 10.132.8.0/21
      secondary_ranges:
        cluster-01-pods:
          cidr: 10.132.64.0/18
          size: 16384
        cluster-01-services:
          cidr: 10.132.32.0/21
          size: 2048
    dp-dev-02:
      block: 10.133.0.0/16
      status: reserved
    dp-dev-99:
      block: 10.199.0.0/16
      status: retired
      primary_subnets:
        old:
          cidr: 10.132.0.0/21
perimeter:
  block: 10.0.0.0/13
  environments: {}
production:
  block: 10.64.0.0/10
  environments: {}
`

func loadFixture(t *testing.T, content string) *Checker {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ip-allocation.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	checker, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	return checker
}

func TestLoadSkipsInactiveEnvironments(t *testing.T) {
	checker := loadFixture(t, allocationFixture)
	for _, n := range checker.Networks {
		if n.Env == "dp-dev-99" {
			t.Errorf("retired environment must not contribute networks: %v", n)
		}
	}
	if len(checker.Networks) != 4 {
		t.Errorf("expected 4 networks, got %d", len(checker.Networks))
	}
}

func TestNoConflictsInCleanFile(t *testing.T) {
	checker := loadFixture(t, allocationFixture)
	if conflicts := checker.Conflicts(); len(conflicts) != 0 {
		t.Errorf("unexpected conflicts: %v", conflicts)
	}
}

func TestConflictDetection(t *testing.T) {
	conflicting := strings.Replace(allocationFixture, "cidr: 10.132.8.0/21", "cidr: 10.132.0.0/20", 1)
	checker := loadFixture(t, conflicting)
	conflicts := checker.Conflicts()
	if len(conflicts) == 0 {
		t.Fatal("overlap must be reported")
	}
}

func TestBoundaryIssues(t *testing.T) {
	misaligned := strings.Replace(allocationFixture, "cidr: 10.132.8.0/21", "cidr: 10.132.9.0/21", 1)
	checker := loadFixture(t, misaligned)
	issues := checker.BoundaryIssues()
	if len(issues) != 1 {
		t.Fatalf("issues = %v", issues)
	}
	if !strings.Contains(issues[0], "not divisible by 8") {
		t.Errorf("issue = %s", issues[0])
	}
}

func TestReservedEnvironments(t *testing.T) {
	checker := loadFixture(t, allocationFixture)
	reserved := checker.ReservedEnvironments()
	if len(reserved) != 1 || reserved[0].Name != "dp-dev-02" {
		t.Errorf("reserved = %v", reserved)
	}
	if reserved[0].IPs != 65536 {
		t.Errorf("default IP count = %d", reserved[0].IPs)
	}
}

func TestNextEnvironmentBlocksAvoidUsed(t *testing.T) {
	checker := loadFixture(t, allocationFixture)
	blocks := checker.NextEnvironmentBlocks(3)
	if len(blocks) != 3 {
		t.Fatalf("blocks = %v", blocks)
	}
	// Highest used second octet is 199 (dp-dev-99's block is still allocated).
	if blocks[0].Block != "10.200.0.0/16" {
		t.Errorf("first free block = %s", blocks[0].Block)
	}
}

func TestSuggestNextCluster(t *testing.T) {
	checker := loadFixture(t, allocationFixture)
	suggestion, err := checker.SuggestNextCluster("dp-dev-01")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if suggestion.Cluster != "cluster-02" {
		t.Errorf("cluster = %s", suggestion.Cluster)
	}
	if suggestion.PodRange != nil {
		t.Error("cluster-02 has no pre-allocated pod range")
	}
}

func TestSuggestNextClusterUnknownEnv(t *testing.T) {
	checker := loadFixture(t, allocationFixture)
	if _, err := checker.SuggestNextCluster("nope"); err == nil {
		t.Error("unknown environment must error")
	}
}
