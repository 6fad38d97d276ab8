package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	"gopkg.in/yaml.v3"
)

// Loader layers defaults, an optional YAML file and FORMENGINE_* environment
// variables, later layers winning.
type Loader struct {
	k        *koanf.Koanf
	validate *validator.Validate
	environ  func() []string
}

// LoaderOption customises a Loader.
type LoaderOption func(*Loader)

// WithEnviron replaces os.Environ.
func WithEnviron(environ func() []string) LoaderOption {
	return func(l *Loader) {
		if environ != nil {
			l.environ = environ
		}
	}
}

// NewLoader constructs a Loader.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{
		k:        koanf.New("."),
		validate: validator.New(),
		environ:  os.Environ,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	return l
}

// Load reads path (skipped when empty) and the environment.
func Load(path string) (*Config, error) {
	return NewLoader().Load(path)
}

// Load builds a validated Config.
func (l *Loader) Load(path string) (*Config, error) {
	l.k = koanf.New(".")

	if err := l.k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("config: load defaults: %w", err)
	}

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := l.LoadBytes(raw); err != nil {
			return nil, fmt.Errorf("config: %s: %w", path, err)
		}
	}

	if err := l.loadEnvironment(); err != nil {
		return nil, err
	}
	return l.unmarshal()
}

// LoadBytes merges a YAML document over the current layers.
func (l *Loader) LoadBytes(raw []byte) error {
	var tree map[string]any
	if err := yaml.Unmarshal(raw, &tree); err != nil {
		return fmt.Errorf("parse yaml: %w", err)
	}
	if len(tree) == 0 {
		return nil
	}
	if err := l.k.Load(rawMap(tree), nil); err != nil {
		return fmt.Errorf("apply yaml: %w", err)
	}
	return nil
}

func (l *Loader) loadEnvironment() error {
	provider := env.Provider(".", env.Opt{
		Prefix: EnvPrefix,
		TransformFunc: func(key, value string) (string, any) {
			return envKey(strings.TrimPrefix(key, EnvPrefix)), value
		},
		EnvironFunc: l.environ,
	})
	if err := l.k.Load(provider, nil); err != nil {
		return fmt.Errorf("config: load environment: %w", err)
	}
	return nil
}

// envKey maps LOG_LEVEL to log.level and STORAGE_REDIS_ADDR to
// storage.redis_addr.
func envKey(s string) string {
	parts := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool { return r == '_' })
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	default:
		return parts[0] + "." + strings.Join(parts[1:], "_")
	}
}

func (l *Loader) unmarshal() (*Config, error) {
	var cfg Config
	err := l.k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			WeaklyTypedInput: true,
			Result:           &cfg,
			TagName:          "koanf",
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if err := l.validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config: invalid: %w", err)
	}
	return &cfg, nil
}

// rawMap adapts a decoded tree to koanf.Provider.
type rawMap map[string]any

func (r rawMap) Read() (map[string]any, error) { return r, nil }

func (r rawMap) ReadBytes() ([]byte, error) {
	return nil, fmt.Errorf("config: ReadBytes not supported")
}
