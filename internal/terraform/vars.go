package terraform

import (
	"maps"
	"slices"
)

// MergeVars merges multiple variable maps with later maps having higher
// precedence and returns sorted TF_VAR_ environment entries for the engine.
func MergeVars(pp ...map[string]string) []string {
	m := map[string]string{}
	for _, p := range pp {
		maps.Copy(m, p)
	}

	var results []string
	for _, k := range slices.Sorted(maps.Keys(m)) {
		results = append(results, "TF_VAR_"+k+"="+m[k])
	}

	return results
}
