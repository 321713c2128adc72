package changes

import (
	"sort"

	"github.com/opsfactor/tgrender/pkg/log"
)

// orderByDependencies sorts the affected resource types so dependencies
// come first. Kahn's algorithm with a sorted queue keeps the output
// deterministic; members of a dependency cycle are appended at the end
// with a warning rather than dropped.
func orderByDependencies(affected map[string]bool, defs *Definitions) []string {
	inDegree := make(map[string]int, len(affected))
	dependents := make(map[string][]string, len(affected))
	for name := range affected {
		inDegree[name] = 0
	}
	for name := range affected {
		res := defs.Resources[name]
		if res == nil {
			continue
		}
		for _, dep := range res.Dependencies {
			if !affected[dep] {
				continue
			}
			inDegree[name]++
			dependents[dep] = append(dependents[dep], name)
		}
	}

	var queue []string
	for name, degree := range inDegree {
		if degree == 0 {
			queue = append(queue, name)
		}
	}
	sort.Strings(queue)

	var result []string
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		result = append(result, node)
		for _, dep := range dependents[node] {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				queue = append(queue, dep)
				sort.Strings(queue)
			}
		}
	}

	if len(result) != len(affected) {
		var cyclic []string
		for name := range affected {
			if inDegree[name] > 0 {
				cyclic = append(cyclic, name)
			}
		}
		sort.Strings(cyclic)
		log.WithField("resources", cyclic).Warn("circular dependency detected, appending in name order")
		result = append(result, cyclic...)
	}
	return result
}
