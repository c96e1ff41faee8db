// Package sanitize strips absent values from decoded JSON trees before they
// reach a schema-less store, which rejects explicit nulls.
package sanitize

import "encoding/json"

// Value recursively removes nil entries from maps and slices. Map keys whose
// value sanitizes away are dropped; a map that ends up empty is reported as
// absent so the parent drops it too. Slices drop absent elements. Scalars
// pass through unchanged.
func Value(v interface{}) (interface{}, bool) {
	switch val := v.(type) {
	case nil:
		return nil, false
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, raw := range val {
			clean, ok := Value(raw)
			if !ok {
				continue
			}
			out[k] = clean
		}
		if len(out) == 0 {
			return nil, false
		}
		return out, true
	case []interface{}:
		out := make([]interface{}, 0, len(val))
		for _, raw := range val {
			clean, ok := Value(raw)
			if !ok {
				continue
			}
			out = append(out, clean)
		}
		return out, true
	default:
		return val, true
	}
}

// Map sanitizes a decoded JSON object, returning an empty map when everything
// sanitizes away.
func Map(v map[string]interface{}) map[string]interface{} {
	clean, ok := Value(v)
	if !ok {
		return map[string]interface{}{}
	}
	return clean.(map[string]interface{})
}

// Document reduces any value to its JSON data model and sanitizes the result.
// This is the form handed to the persistence collaborator.
func Document(v interface{}) (map[string]interface{}, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var tree map[string]interface{}
	if err := json.Unmarshal(raw, &tree); err != nil {
		return nil, err
	}
	return Map(tree), nil
}
