package formconfig

import (
	"strings"

	"github.com/mohae/deepcopy"
)

// SetValue writes value at a dotted path inside values, creating
// intermediate maps as needed. Non-map intermediates are replaced.
func SetValue(values map[string]any, path string, value any) {
	if values == nil || path == "" {
		return
	}
	parts := strings.Split(path, ".")
	current := values
	for _, part := range parts[:len(parts)-1] {
		next, ok := current[part].(map[string]any)
		if !ok {
			next = make(map[string]any)
			current[part] = next
		}
		current = next
	}
	current[parts[len(parts)-1]] = value
}

// DeleteValue removes the value at a dotted path. Missing paths are ignored.
func DeleteValue(values map[string]any, path string) {
	if values == nil || path == "" {
		return
	}
	parts := strings.Split(path, ".")
	current := values
	for _, part := range parts[:len(parts)-1] {
		next, ok := current[part].(map[string]any)
		if !ok {
			return
		}
		current = next
	}
	delete(current, parts[len(parts)-1])
}

// CloneValues deep copies a value tree.
func CloneValues(values map[string]any) map[string]any {
	if values == nil {
		return map[string]any{}
	}
	return deepcopy.Copy(values).(map[string]any)
}

// FlattenValues returns the leaves of a value tree keyed by dotted path.
// Empty maps are kept as leaves.
func FlattenValues(values map[string]any) map[string]any {
	out := make(map[string]any)
	flatten("", values, out)
	return out
}

func flatten(prefix string, values map[string]any, out map[string]any) {
	for key, value := range values {
		path := Path(prefix, key)
		if nested, ok := value.(map[string]any); ok && len(nested) > 0 {
			flatten(path, nested, out)
			continue
		}
		out[path] = value
	}
}
