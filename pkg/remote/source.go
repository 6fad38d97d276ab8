// Package remote loads option lists for select-like fields from named data
// sources and caches them with a per-source time to live.
//
// A Loader is bound to a table of DataSource declarations plus global headers
// and params. Results are stored in a Cache shared by every loader in the
// process unless WithCache supplies a private one. Concurrent misses for the
// same key are not coalesced: both callers fetch and the last write wins.
package remote

import (
	"fmt"
	"net/http"
	"time"

	"github.com/goliatone/go-formengine/pkg/formconfig"
	"github.com/goliatone/go-formengine/pkg/transport"
)

// Option is a single option record: value, label and the source fields.
type Option = formconfig.Option

// Dependency ties a data source to a form field. When the field changes the
// source reloads with Param set to the new value.
type Dependency struct {
	Field string `json:"field"           yaml:"field"           mapstructure:"field"`
	Param string `json:"param,omitempty" yaml:"param,omitempty" mapstructure:"param"`
}

// ParamName returns Param, defaulting to the last segment of Field.
func (d Dependency) ParamName() string {
	if d.Param != "" {
		return d.Param
	}
	for i := len(d.Field) - 1; i >= 0; i-- {
		if d.Field[i] == '.' {
			return d.Field[i+1:]
		}
	}
	return d.Field
}

// DataSource declares a remote option list.
type DataSource struct {
	Name       string            `json:"name"                 yaml:"name"                 mapstructure:"name"       validate:"required"`
	URL        string            `json:"url"                  yaml:"url"                  mapstructure:"url"        validate:"required,url"`
	Method     string            `json:"method,omitempty"     yaml:"method,omitempty"     mapstructure:"method"`
	Headers    map[string]string `json:"headers,omitempty"    yaml:"headers,omitempty"    mapstructure:"headers"`
	Params     map[string]any    `json:"params,omitempty"     yaml:"params,omitempty"     mapstructure:"params"`
	Body       any               `json:"body,omitempty"       yaml:"body,omitempty"       mapstructure:"body"`
	DataPath   string            `json:"dataPath,omitempty"   yaml:"dataPath,omitempty"   mapstructure:"dataPath"`
	ValueField string            `json:"valueField,omitempty" yaml:"valueField,omitempty" mapstructure:"valueField"`
	LabelField string            `json:"labelField,omitempty" yaml:"labelField,omitempty" mapstructure:"labelField"`
	// CacheTime is the TTL in milliseconds. Zero disables caching.
	CacheTime int64       `json:"cacheTime,omitempty" yaml:"cacheTime,omitempty" mapstructure:"cacheTime"`
	DependsOn *Dependency `json:"dependsOn,omitempty" yaml:"dependsOn,omitempty" mapstructure:"dependsOn"`
}

// TTL returns CacheTime as a duration.
func (s DataSource) TTL() time.Duration {
	if s.CacheTime <= 0 {
		return 0
	}
	return time.Duration(s.CacheTime) * time.Millisecond
}

// RequestMethod returns the upper-cased method, defaulting to GET.
func (s DataSource) RequestMethod() string {
	return transport.NormalizeMethod(s.Method, http.MethodGet)
}

func (s DataSource) valueKey() string {
	if s.ValueField == "" {
		return "value"
	}
	return s.ValueField
}

func (s DataSource) labelKey() string {
	if s.LabelField == "" {
		return "label"
	}
	return s.LabelField
}

// WithParam returns a copy of s with key set in its params.
func (s DataSource) WithParam(key string, value any) DataSource {
	params := make(map[string]any, len(s.Params)+1)
	for k, v := range s.Params {
		params[k] = v
	}
	params[key] = value
	s.Params = params
	return s
}

// DataSourceNotFoundError reports a load for an undeclared source.
type DataSourceNotFoundError struct {
	Name string
}

func (e *DataSourceNotFoundError) Error() string {
	return fmt.Sprintf("remote: data source %q not found", e.Name)
}

// RemoteLoadError reports a non-2xx response from a data source.
type RemoteLoadError struct {
	Source string
	URL    string
	Status int
}

func (e *RemoteLoadError) Error() string {
	return fmt.Sprintf("remote: request failed with status %d", e.Status)
}
