package changes

import (
	"slices"
	"testing"
)

func defsWith(deps map[string][]string) *Definitions {
	defs := &Definitions{Resources: map[string]*Resource{}}
	for name, d := range deps {
		defs.Resources[name] = &Resource{Dependencies: d}
	}
	return defs
}

func TestOrderByDependencies(t *testing.T) {
	defs := defsWith(map[string][]string{
		"gke":         {"vpc-network"},
		"sql":         {"vpc-network"},
		"vpc-network": nil,
		"workload":    {"gke", "sql"},
	})
	affected := map[string]bool{"gke": true, "sql": true, "vpc-network": true, "workload": true}

	order := orderByDependencies(affected, defs)
	if len(order) != 4 {
		t.Fatalf("order = %v", order)
	}
	pos := map[string]int{}
	for i, name := range order {
		pos[name] = i
	}
	if pos["vpc-network"] > pos["gke"] || pos["vpc-network"] > pos["sql"] {
		t.Errorf("dependency must come first: %v", order)
	}
	if pos["workload"] < pos["gke"] || pos["workload"] < pos["sql"] {
		t.Errorf("dependent must come last: %v", order)
	}
}

func TestOrderIgnoresUnaffectedDependencies(t *testing.T) {
	defs := defsWith(map[string][]string{
		"gke": {"vpc-network"},
	})
	order := orderByDependencies(map[string]bool{"gke": true}, defs)
	if len(order) != 1 || order[0] != "gke" {
		t.Errorf("order = %v", order)
	}
}

func TestOrderCycleStillTerminates(t *testing.T) {
	defs := defsWith(map[string][]string{
		"a": {"b"},
		"b": {"a"},
		"c": nil,
	})
	affected := map[string]bool{"a": true, "b": true, "c": true}

	order := orderByDependencies(affected, defs)
	if len(order) != 3 {
		t.Fatalf("cycle members must not be dropped: %v", order)
	}
	if order[0] != "c" {
		t.Errorf("acyclic member first: %v", order)
	}
	if !slices.Contains(order, "a") || !slices.Contains(order, "b") {
		t.Errorf("order = %v", order)
	}
}
