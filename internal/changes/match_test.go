package changes

import "testing"

func TestMatch(t *testing.T) {
	tests := []struct {
		path    string
		pattern string
		want    bool
	}{
		{"live/dev/vpc-network/terragrunt.hcl", "live/**/vpc-network/**", true},
		{"live/dev/gke/cluster-01/terragrunt.hcl", "live/**/vpc-network/**", false},
		{"live/dev/app/terragrunt.hcl", "live/*/app/*", true},
		{"live/dev/nested/app/terragrunt.hcl", "live/*/app/*", false},
		{"_common/templates/sql.hcl", "_common/templates/**", true},
		{"live/dev/app/main.tf", "live/**", true},
		{"other/file", "live/**", false},
	}
	for _, tt := range tests {
		t.Run(tt.pattern+"~"+tt.path, func(t *testing.T) {
			if got := Match(tt.path, Patterns{tt.pattern}); got != tt.want {
				t.Errorf("Match(%q, %q) = %v, want %v", tt.path, tt.pattern, got, tt.want)
			}
		})
	}
}

func TestMatchMultiplePatterns(t *testing.T) {
	patterns := Patterns{"live/**/gke/**", "live/**/sql/**"}
	if !Match("live/dev/sql/db-01/terragrunt.hcl", patterns) {
		t.Error("second pattern must match")
	}
	if Match("live/dev/vpc/terragrunt.hcl", patterns) {
		t.Error("no pattern should match")
	}
}

func TestMatchEmptyPatterns(t *testing.T) {
	if Match("anything", nil) {
		t.Error("empty pattern list matches nothing")
	}
}
