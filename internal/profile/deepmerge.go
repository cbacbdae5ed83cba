package profile

// DeepMerge combines overlay into base and returns a new map. For each key in
// overlay, when both values are JSON objects the merge recurses; otherwise the
// overlay value replaces the base value wholesale. Arrays are never merged
// element-wise. Neither input is modified.
func DeepMerge(base, overlay map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(overlay))
	for k, v := range base {
		out[k] = v
	}
	for k, ov := range overlay {
		om, overlayIsMap := ov.(map[string]any)
		bm, baseIsMap := out[k].(map[string]any)
		if overlayIsMap && baseIsMap {
			out[k] = DeepMerge(bm, om)
			continue
		}
		out[k] = ov
	}
	return out
}
