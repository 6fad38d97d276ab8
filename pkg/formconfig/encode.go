package formconfig

import (
	"encoding/json"
	"fmt"

	"github.com/mohae/deepcopy"
	"gopkg.in/yaml.v3"
)

// Encode serialises cfg. FormatAuto encodes JSON.
func Encode(cfg *FormConfig, format Format) ([]byte, error) {
	if cfg == nil {
		return nil, fmt.Errorf("formconfig: encode: config is nil")
	}
	switch format {
	case FormatAuto, FormatJSON:
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("formconfig: encode json: %w", err)
		}
		return data, nil
	case FormatYAML:
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return nil, fmt.Errorf("formconfig: encode yaml: %w", err)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("formconfig: encode: unsupported format %q", format)
	}
}

// Clone returns a deep copy of cfg so callers may rewrite it freely.
func (c *FormConfig) Clone() *FormConfig {
	if c == nil {
		return nil
	}
	out := *c
	out.Layout = cloneLayout(c.Layout)
	if c.API != nil {
		api := *c.API
		if c.API.Headers != nil {
			api.Headers = deepcopy.Copy(c.API.Headers).(map[string]string)
		}
		out.API = &api
	}
	out.Fields = cloneFields(c.Fields)
	if c.Buttons != nil {
		out.Buttons = make([]ButtonConfig, len(c.Buttons))
		for i, b := range c.Buttons {
			b.Props = cloneMap(b.Props)
			out.Buttons[i] = b
		}
	}
	out.Props = cloneMap(c.Props)
	return &out
}

// Clone returns a deep copy of the field and its members.
func (f FieldConfig) Clone() FieldConfig {
	out := f
	out.DefaultValue = deepcopy.Copy(f.DefaultValue)
	out.Width = deepcopy.Copy(f.Width)
	out.LabelWidth = deepcopy.Copy(f.LabelWidth)
	if f.Rules != nil {
		out.Rules = make([]ValidationRule, len(f.Rules))
		for i, rule := range f.Rules {
			out.Rules[i] = rule.clone()
		}
	}
	out.Props = cloneMap(f.Props)
	out.Attrs = cloneMap(f.Attrs)
	if f.Options.Items != nil {
		out.Options.Items = make([]Option, len(f.Options.Items))
		for i, item := range f.Options.Items {
			out.Options.Items[i] = Option(cloneMap(item))
		}
	}
	if f.Dependencies != nil {
		out.Dependencies = append([]string(nil), f.Dependencies...)
	}
	out.Fields = cloneFields(f.Fields)
	return out
}

func (r ValidationRule) clone() ValidationRule {
	out := r
	if r.Min != nil {
		v := *r.Min
		out.Min = &v
	}
	if r.Max != nil {
		v := *r.Max
		out.Max = &v
	}
	if r.Len != nil {
		v := *r.Len
		out.Len = &v
	}
	return out
}

func cloneFields(fields []FieldConfig) []FieldConfig {
	if fields == nil {
		return nil
	}
	out := make([]FieldConfig, len(fields))
	for i, f := range fields {
		out[i] = f.Clone()
	}
	return out
}

func cloneLayout(layout *LayoutConfig) *LayoutConfig {
	if layout == nil {
		return nil
	}
	out := deepcopy.Copy(*layout).(LayoutConfig)
	return &out
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	return deepcopy.Copy(m).(map[string]any)
}
