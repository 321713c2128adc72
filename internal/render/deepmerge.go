package render

import "github.com/opsfactor/tgrender/internal/value"

// DeepMerge merges override into base following Terragrunt's
// merge_strategy = "deep" semantics: at every map node the override's keys
// win, maps recurse, and lists are replaced wholesale, never concatenated.
func DeepMerge(base, override *value.Map) *value.Map {
	result := value.NewMap()
	for pair := base.Oldest(); pair != nil; pair = pair.Next() {
		result.Set(pair.Key, pair.Value)
	}
	for pair := override.Oldest(); pair != nil; pair = pair.Next() {
		existing, present := result.Get(pair.Key)
		if present {
			baseMap, baseIsMap := existing.(*value.Map)
			overrideMap, overrideIsMap := pair.Value.(*value.Map)
			if baseIsMap && overrideIsMap {
				result.Set(pair.Key, DeepMerge(baseMap, overrideMap))
				continue
			}
		}
		result.Set(pair.Key, pair.Value)
	}
	return result
}
