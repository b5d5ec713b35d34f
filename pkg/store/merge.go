package store

// deepMerge implements the §4.1/§8 deep-merge rule: object-with-object
// merges key-wise (recursively); anything else — arrays, scalars, or a type
// mismatch between base and patch for the same key — replaces wholesale.
// base is not mutated; a new map is returned.
func deepMerge(base, patch map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(base)+len(patch))
	for k, v := range base {
		out[k] = v
	}
	for k, pv := range patch {
		bv, exists := out[k]
		if !exists {
			out[k] = pv
			continue
		}
		bMap, bOK := bv.(map[string]interface{})
		pMap, pOK := pv.(map[string]interface{})
		if bOK && pOK {
			out[k] = deepMerge(bMap, pMap)
			continue
		}
		// Arrays and scalars replace; so does any object/non-object type
		// mismatch.
		out[k] = pv
	}
	return out
}
