package formconfig

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"

	"github.com/go-viper/mapstructure/v2"
	"gopkg.in/yaml.v3"
)

// Format names a document encoding.
type Format string

const (
	// FormatAuto detects the encoding from the first non-blank character.
	FormatAuto Format = ""
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// DetectFormat picks JSON when the trimmed document starts with a brace or a
// bracket and YAML otherwise.
func DetectFormat(document []byte) Format {
	trimmed := bytes.TrimSpace(document)
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
		return FormatJSON
	}
	return FormatYAML
}

// Parse decodes document into a FormConfig without structural validation.
func Parse(document []byte, format Format) (*FormConfig, error) {
	if format == FormatAuto {
		format = DetectFormat(document)
	}

	tree, err := decodeTree(document, format)
	if err != nil {
		return nil, &ParseError{Format: format, Err: err}
	}

	root, ok := tree.(map[string]any)
	if !ok {
		return nil, &ParseError{Format: format, Err: fmt.Errorf("expected an object at the document root, got %s", describe(tree))}
	}

	cfg, err := Decode(root)
	if err != nil {
		return nil, &ParseError{Format: format, Err: err}
	}
	return cfg, nil
}

// ParseConfig decodes and validates document. Structural violations are
// returned as a *ValidationError listing every problem.
func ParseConfig(document []byte, format Format) (*FormConfig, error) {
	cfg, err := Parse(document, format)
	if err != nil {
		return nil, err
	}
	if result := Validate(cfg); !result.Valid {
		return nil, &ValidationError{Errors: result.Errors}
	}
	return cfg, nil
}

// Decode converts an untyped document tree into a FormConfig.
func Decode(tree map[string]any) (*FormConfig, error) {
	var cfg FormConfig
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cfg,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			conditionHook,
			optionsHook,
			layoutHook,
			ruleHook,
		),
	})
	if err != nil {
		return nil, fmt.Errorf("formconfig: create decoder: %w", err)
	}
	if err := decoder.Decode(normalizeTree(tree)); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func decodeTree(document []byte, format Format) (any, error) {
	if len(bytes.TrimSpace(document)) == 0 {
		return nil, errors.New("document is empty")
	}

	var tree any
	switch format {
	case FormatJSON:
		if err := json.Unmarshal(document, &tree); err != nil {
			return nil, err
		}
	case FormatYAML:
		if err := yaml.Unmarshal(document, &tree); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
	return tree, nil
}

// normalizeTree folds the differences between the JSON and YAML decoders so
// both formats produce the identical tree: integers become float64 and
// non-string map keys are stringified.
func normalizeTree(value any) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			out[k] = normalizeTree(item)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			out[fmt.Sprint(k)] = normalizeTree(item)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = normalizeTree(item)
		}
		return out
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case uint64:
		return float64(v)
	default:
		return value
	}
}

func describe(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case []any:
		return "a list"
	case string:
		return "a string"
	case float64, int:
		return "a number"
	case bool:
		return "a boolean"
	default:
		return fmt.Sprintf("%T", v)
	}
}

var (
	conditionType = reflect.TypeOf(Condition{})
	optionsType   = reflect.TypeOf(Options{})
	layoutType    = reflect.TypeOf(LayoutConfig{})
	ruleType      = reflect.TypeOf(ValidationRule{})
)

func conditionHook(_ reflect.Type, to reflect.Type, data any) (any, error) {
	if to != conditionType {
		return data, nil
	}
	return conditionFrom(data)
}

func optionsHook(_ reflect.Type, to reflect.Type, data any) (any, error) {
	if to != optionsType {
		return data, nil
	}
	return optionsFrom(data)
}

// layoutHook accepts the shorthand `layout: vertical`.
func layoutHook(_ reflect.Type, to reflect.Type, data any) (any, error) {
	if to != layoutType {
		return data, nil
	}
	if s, ok := data.(string); ok {
		return LayoutConfig{Type: LayoutType(s)}, nil
	}
	return data, nil
}

// ruleHook accepts a bare rule name in place of a rule object.
func ruleHook(_ reflect.Type, to reflect.Type, data any) (any, error) {
	if to != ruleType {
		return data, nil
	}
	if s, ok := data.(string); ok {
		return ValidationRule{Type: s}, nil
	}
	return data, nil
}
