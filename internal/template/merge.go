package template

import (
	"maps"
)

// mergeOverrides returns a copy of raw where each override entry updates the
// template server with the same name key by key. Entries that match nothing
// are ignored and raw itself is not modified.
func mergeOverrides(raw map[string]any, ov *Overrides) map[string]any {
	merged := maps.Clone(raw)
	servers, ok := raw["servers"].([]any)
	if !ok || len(ov.Servers) == 0 {
		return merged
	}

	out := make([]any, len(servers))
	for i, s := range servers {
		if m, ok := s.(map[string]any); ok {
			out[i] = maps.Clone(m)
		} else {
			out[i] = s
		}
	}

	for _, override := range ov.Servers {
		name, _ := override["name"].(string)
		for _, s := range out {
			server, ok := s.(map[string]any)
			if !ok || server["name"] != name {
				continue
			}
			for key, value := range override {
				server[key] = value
			}
			break
		}
	}

	merged["servers"] = out
	return merged
}
