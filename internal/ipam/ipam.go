// Package ipam validates the static IP allocation file: overlap detection,
// CIDR boundary checks, free-block listing and next-allocation suggestions.
package ipam

import (
	"fmt"
	"net/netip"
	"os"
	"sort"
	"strings"

	"go.yaml.in/yaml/v4"
)

// File is the root of ip-allocation.yaml.
type File struct {
	Development Group `yaml:"development"`
	Perimeter   Group `yaml:"perimeter"`
	Production  Group `yaml:"production"`
}

// Group is one environment type block.
type Group struct {
	Block        string                 `yaml:"block"`
	TotalIPs     int                    `yaml:"total_ips"`
	Environments map[string]Environment `yaml:"environments"`
}

// Environment is one environment's allocation.
type Environment struct {
	Block           string           `yaml:"block"`
	TotalIPs        int              `yaml:"total_ips"`
	Status          string           `yaml:"status"`
	PrimarySubnets  map[string]Range `yaml:"primary_subnets"`
	SecondaryRanges map[string]Range `yaml:"secondary_ranges"`
}

// Range is a single CIDR allocation.
type Range struct {
	CIDR        string `yaml:"cidr"`
	Size        int    `yaml:"size"`
	Description string `yaml:"description"`
}

// Network is a parsed allocation entry.
type Network struct {
	// Name is env_type/env/range_name.
	Name string
	// Prefix is the parsed CIDR.
	Prefix netip.Prefix
	// Kind is "primary" or "secondary".
	Kind string
	// Env and EnvType locate the allocation.
	Env, EnvType string
	// Description from the allocation file.
	Description string
}

// Checker validates allocations from one file.
type Checker struct {
	File     *File
	Networks []Network
}

// Load reads and parses an allocation file. Only active and reserved
// environments contribute networks.
func Load(path string) (*Checker, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read allocation file: %w", err)
	}
	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse allocation file %s: %w", path, err)
	}

	c := &Checker{File: &file}
	for envType, group := range map[string]Group{
		"development": file.Development,
		"perimeter":   file.Perimeter,
		"production":  file.Production,
	} {
		for envName, env := range group.Environments {
			if env.Status != "active" && env.Status != "reserved" {
				continue
			}
			c.addRanges(envType, envName, "primary", env.PrimarySubnets)
			c.addRanges(envType, envName, "secondary", env.SecondaryRanges)
		}
	}
	sort.Slice(c.Networks, func(i, j int) bool {
		if c.Networks[i].Prefix.Addr() != c.Networks[j].Prefix.Addr() {
			return c.Networks[i].Prefix.Addr().Less(c.Networks[j].Prefix.Addr())
		}
		return c.Networks[i].Name < c.Networks[j].Name
	})
	return c, nil
}

func (c *Checker) addRanges(envType, envName, kind string, ranges map[string]Range) {
	for name, r := range ranges {
		if r.CIDR == "" {
			continue
		}
		prefix, err := netip.ParsePrefix(r.CIDR)
		if err != nil {
			continue
		}
		c.Networks = append(c.Networks, Network{
			Name:        fmt.Sprintf("%s/%s/%s", envType, envName, name),
			Prefix:      prefix,
			Kind:        kind,
			Env:         envName,
			EnvType:     envType,
			Description: r.Description,
		})
	}
}

// Conflict is a pair of overlapping allocations.
type Conflict struct {
	A, B Network
}

// Conflicts returns every overlapping pair of allocations.
func (c *Checker) Conflicts() []Conflict {
	var conflicts []Conflict
	for i, a := range c.Networks {
		for _, b := range c.Networks[i+1:] {
			if a.Prefix.Overlaps(b.Prefix) {
				conflicts = append(conflicts, Conflict{A: a, B: b})
			}
		}
	}
	return conflicts
}

// BoundaryIssues checks prefix alignment: /21 third octets must land on
// multiples of 8, /19 on 32, /18 on 64.
func (c *Checker) BoundaryIssues() []string {
	alignment := map[int]int{21: 8, 19: 32, 18: 64}
	var issues []string
	for _, net := range c.Networks {
		required, checked := alignment[net.Prefix.Bits()]
		if !checked || !net.Prefix.Addr().Is4() {
			continue
		}
		third := int(net.Prefix.Addr().As4()[2])
		if third%required != 0 {
			issues = append(issues, fmt.Sprintf("%s: /%d not aligned (third octet %d not divisible by %d)",
				net.Name, net.Prefix.Bits(), third, required))
		}
	}
	return issues
}

// EnvironmentBlock is a reserved or suggested environment block.
type EnvironmentBlock struct {
	Name  string
	Block string
	IPs   int
}

// ReservedEnvironments lists development environments with status reserved.
func (c *Checker) ReservedEnvironments() []EnvironmentBlock {
	var out []EnvironmentBlock
	for name, env := range c.File.Development.Environments {
		if env.Status != "reserved" || env.Block == "" {
			continue
		}
		ips := env.TotalIPs
		if ips == 0 {
			ips = 65536
		}
		out = append(out, EnvironmentBlock{Name: name, Block: env.Block, IPs: ips})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// NextEnvironmentBlocks suggests up to count free /16 environment blocks
// after the highest allocated development block.
func (c *Checker) NextEnvironmentBlocks(count int) []EnvironmentBlock {
	var used []netip.Prefix
	maxSecond := 135 // first candidate follows 10.135.0.0/16
	for _, env := range c.File.Development.Environments {
		if env.Block == "" {
			continue
		}
		prefix, err := netip.ParsePrefix(env.Block)
		if err != nil || !prefix.Addr().Is4() {
			continue
		}
		used = append(used, prefix)
		if second := int(prefix.Addr().As4()[1]); second > maxSecond {
			maxSecond = second
		}
	}

	var out []EnvironmentBlock
	envCount := len(c.File.Development.Environments)
	for i := 0; len(out) < count && i < count*4; i++ {
		candidate := netip.MustParsePrefix(fmt.Sprintf("10.%d.0.0/16", maxSecond+1+i))
		overlaps := false
		for _, u := range used {
			if candidate.Overlaps(u) {
				overlaps = true
				break
			}
		}
		if overlaps {
			continue
		}
		out = append(out, EnvironmentBlock{
			Name:  fmt.Sprintf("dev-%02d", envCount+len(out)+1),
			Block: candidate.String(),
			IPs:   65536,
		})
	}
	return out
}

// ClusterSuggestion describes the next cluster allocation for an
// environment.
type ClusterSuggestion struct {
	Cluster      string
	PodRange     *Range
	ServiceRange *Range
}

// SuggestNextCluster finds the next cluster number for env and reports
// whether its pod and service ranges are pre-allocated.
func (c *Checker) SuggestNextCluster(envName string) (*ClusterSuggestion, error) {
	var env *Environment
	for _, group := range []Group{c.File.Development, c.File.Perimeter, c.File.Production} {
		if e, ok := group.Environments[envName]; ok {
			env = &e
			break
		}
	}
	if env == nil {
		return nil, fmt.Errorf("environment %s not found", envName)
	}

	clusters := make(map[string]bool)
	for rangeName := range env.SecondaryRanges {
		parts := strings.Split(rangeName, "-")
		if len(parts) >= 2 {
			clusters[parts[0]+"-"+parts[1]] = true
		}
	}

	suggestion := &ClusterSuggestion{Cluster: fmt.Sprintf("cluster-%02d", len(clusters)+1)}
	if r, ok := env.SecondaryRanges[suggestion.Cluster+"-pods"]; ok {
		suggestion.PodRange = &r
	}
	if r, ok := env.SecondaryRanges[suggestion.Cluster+"-services"]; ok {
		suggestion.ServiceRange = &r
	}
	return suggestion, nil
}
