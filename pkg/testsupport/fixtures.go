package testsupport

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formengine/pkg/formconfig"
)

// LoadConfig reads a configuration fixture (JSON or YAML by extension),
// validates it and fails the test on error.
func LoadConfig(t *testing.T, path string) *formconfig.FormConfig {
	t.Helper()

	cfg, err := LoadConfigFromPath(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	return cfg
}

// LoadConfigFromPath returns a validated FormConfig without requiring
// testing.T so setup helpers can share fixtures.
func LoadConfigFromPath(path string) (*formconfig.FormConfig, error) {
	if path == "" {
		return nil, errors.New("testsupport: config path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("testsupport: read config: %w", err)
	}
	cfg, err := formconfig.ParseConfig(data, formconfig.FormatForLocation(path))
	if err != nil {
		return nil, fmt.Errorf("testsupport: parse config: %w", err)
	}
	return cfg, nil
}

// MustParseConfig parses an inline document and fails the test on error.
func MustParseConfig(t *testing.T, document string) *formconfig.FormConfig {
	t.Helper()

	cfg, err := formconfig.ParseConfig([]byte(document), formconfig.FormatAuto)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	return cfg
}

// WriteGolden writes arbitrary data to a golden file when UPDATE_GOLDENS is set.
func WriteGolden(t *testing.T, path string, value any) {
	t.Helper()

	if os.Getenv("UPDATE_GOLDENS") == "" {
		return
	}
	payload, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		t.Fatalf("marshal golden: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir golden dir: %v", err)
	}
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		t.Fatalf("write golden: %v", err)
	}
}

// CompareGolden returns a diff string if the values differ.
func CompareGolden(want, got any) string {
	return cmp.Diff(want, got)
}

// MustReadGolden reads a golden file and returns its raw bytes.
func MustReadGolden(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read golden: %v", err)
	}
	return data
}
