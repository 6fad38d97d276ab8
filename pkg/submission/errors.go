package submission

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/goliatone/go-formengine/pkg/formconfig"
	"github.com/goliatone/go-formengine/pkg/validation"
)

// ValidationError aborts a submission whose values fail field validation.
type ValidationError struct {
	Fields validation.FieldErrors
}

func (e *ValidationError) Error() string {
	paths := make([]string, 0, len(e.Fields))
	for path := range e.Fields {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return fmt.Sprintf("submission: validation failed for %s", strings.Join(paths, ", "))
}

// SubmitError reports a non-2xx answer from the submit endpoint. Messages
// found in the response body are mapped onto field paths where possible.
type SubmitError struct {
	URL         string
	Status      int
	Body        []byte
	FieldErrors map[string][]string
	FormErrors  []string
}

func (e *SubmitError) Error() string {
	return fmt.Sprintf("submission: request to %s failed with status %d", e.URL, e.Status)
}

// ErrorMapping splits a server error payload into field-level and form-level
// messages keyed by dotted field paths.
type ErrorMapping struct {
	Fields map[string][]string
	Form   []string
}

// MergeFormErrors concatenates form-level messages, trimming whitespace and
// removing duplicates while preserving order.
func MergeFormErrors(existing []string, extras ...string) []string {
	combined := make([]string, 0, len(existing)+len(extras))
	combined = append(combined, existing...)
	combined = append(combined, extras...)
	return normalizeMessages(combined)
}

// MapErrorPayload maps payload keys (dotted paths, JSON pointers, `$.` paths
// or bracketed indices) onto the fields of cfg. Keys that match no field are
// kept as form-level messages.
func MapErrorPayload(cfg *formconfig.FormConfig, payload map[string][]string) ErrorMapping {
	mapping := ErrorMapping{Fields: make(map[string][]string)}
	if len(payload) == 0 {
		mapping.Fields = nil
		return mapping
	}

	known := make(map[string]struct{})
	for _, path := range cfg.FieldPaths() {
		known[path] = struct{}{}
	}

	keys := make([]string, 0, len(payload))
	for key := range payload {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		messages := normalizeMessages(payload[key])
		if len(messages) == 0 {
			continue
		}
		path, ok := matchPath(key, known)
		if !ok {
			mapping.Form = append(mapping.Form, messages...)
			continue
		}
		mapping.Fields[path] = append(mapping.Fields[path], messages...)
	}

	if len(mapping.Fields) == 0 {
		mapping.Fields = nil
	}
	mapping.Form = normalizeMessages(mapping.Form)
	return mapping
}

// DecodeErrorPayload extracts messages from a JSON error body. It understands
// an `errors` (or `fieldErrors`) object whose values are a message or a list
// of messages, an `errors` list of `{field|path, message}` records, and a
// top-level `message` or `error` string.
func DecodeErrorPayload(body []byte) map[string][]string {
	if !gjson.ValidBytes(body) {
		return nil
	}
	root := gjson.ParseBytes(body)
	out := make(map[string][]string)

	add := func(key string, value gjson.Result) {
		if value.IsArray() {
			for _, item := range value.Array() {
				out[key] = append(out[key], item.String())
			}
			return
		}
		if value.Exists() && value.Type != gjson.Null {
			out[key] = append(out[key], value.String())
		}
	}

	for _, name := range []string{"errors", "fieldErrors"} {
		node := root.Get(name)
		switch {
		case node.IsObject():
			node.ForEach(func(key, value gjson.Result) bool {
				add(key.String(), value)
				return true
			})
		case node.IsArray():
			for _, item := range node.Array() {
				if !item.IsObject() {
					add("", item)
					continue
				}
				key := item.Get("field").String()
				if key == "" {
					key = item.Get("path").String()
				}
				add(key, item.Get("message"))
			}
		}
	}
	for _, name := range []string{"message", "error"} {
		if node := root.Get(name); node.Type == gjson.String {
			add("", node)
		}
	}

	if len(out) == 0 {
		return nil
	}
	return out
}

func normalizeMessages(messages []string) []string {
	if len(messages) == 0 {
		return nil
	}
	out := make([]string, 0, len(messages))
	seen := make(map[string]struct{}, len(messages))
	for _, message := range messages {
		trimmed := strings.TrimSpace(message)
		if trimmed == "" {
			continue
		}
		if _, dup := seen[trimmed]; dup {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func matchPath(raw string, known map[string]struct{}) (string, bool) {
	if formLevelKey(raw) {
		return "", false
	}
	segments := splitPath(raw)
	if len(segments) == 0 {
		return "", false
	}

	best := ""
	for _, variant := range pathVariants(segments) {
		path := longestPrefix(variant, known)
		if path != "" && (best == "" || strings.Count(path, ".") > strings.Count(best, ".")) {
			best = path
		}
	}
	return best, best != ""
}

func splitPath(path string) []string {
	clean := strings.TrimSpace(path)
	for _, prefix := range []string{"#/", "$/", "$."} {
		clean = strings.TrimPrefix(clean, prefix)
	}
	clean = strings.TrimLeft(clean, "#/.$")
	clean = strings.NewReplacer("[", ".", "]", "").Replace(clean)

	parts := strings.FieldsFunc(clean, func(r rune) bool { return r == '.' || r == '/' })
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		segment := strings.TrimSpace(part)
		if segment == "" {
			continue
		}
		segment = strings.ReplaceAll(segment, "~1", "/")
		segment = strings.ReplaceAll(segment, "~0", "~")
		out = append(out, segment)
	}
	return out
}

func pathVariants(segments []string) [][]string {
	unwrapped := dropWrappers(segments)
	candidates := [][]string{segments, unwrapped, dropIndices(segments), dropIndices(unwrapped)}

	seen := make(map[string]struct{}, len(candidates))
	out := make([][]string, 0, len(candidates))
	for _, candidate := range candidates {
		if len(candidate) == 0 {
			continue
		}
		key := strings.Join(candidate, ".")
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, candidate)
	}
	return out
}

var wrapperSegments = map[string]struct{}{
	"body":       {},
	"request":    {},
	"payload":    {},
	"data":       {},
	"attributes": {},
	"values":     {},
}

func dropWrappers(segments []string) []string {
	out := segments
	for len(out) > 0 {
		if _, ok := wrapperSegments[strings.ToLower(out[0])]; !ok {
			break
		}
		out = out[1:]
	}
	return out
}

func dropIndices(segments []string) []string {
	out := make([]string, 0, len(segments))
	for _, segment := range segments {
		if _, err := strconv.Atoi(segment); err == nil {
			continue
		}
		out = append(out, segment)
	}
	return out
}

func longestPrefix(segments []string, known map[string]struct{}) string {
	for end := len(segments); end > 0; end-- {
		candidate := strings.Join(segments[:end], ".")
		if _, ok := known[candidate]; ok {
			return candidate
		}
	}
	return ""
}

func formLevelKey(key string) bool {
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "", ".", "/", "#", "$", "form", "base", "__all__", "non_field_errors", "non-field-errors":
		return true
	default:
		return false
	}
}
