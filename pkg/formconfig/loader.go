package formconfig

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/goliatone/go-formengine/pkg/transport"
)

// LoaderOption customises a Loader.
type LoaderOption func(*Loader)

// WithFS sets the file system used for SourceKindFS sources.
func WithFS(files fs.FS) LoaderOption {
	return func(l *Loader) {
		l.fs = files
	}
}

// WithTransport enables URL sources through t.
func WithTransport(t transport.Transport) LoaderOption {
	return func(l *Loader) {
		l.transport = t
	}
}

// WithFormat forces a document format instead of inferring it.
func WithFormat(format Format) LoaderOption {
	return func(l *Loader) {
		l.format = format
	}
}

// Loader reads configuration documents from files, fs.FS entries or URLs and
// returns validated configurations.
type Loader struct {
	fs        fs.FS
	transport transport.Transport
	format    Format
}

// NewLoader constructs a Loader applying the provided options.
func NewLoader(options ...LoaderOption) *Loader {
	l := &Loader{}
	for _, opt := range options {
		if opt != nil {
			opt(l)
		}
	}
	return l
}

// Load reads src and returns the parsed, validated configuration.
func (l *Loader) Load(ctx context.Context, src Source) (*FormConfig, error) {
	data, err := l.Read(ctx, src)
	if err != nil {
		return nil, err
	}
	format := l.format
	if format == FormatAuto {
		format = FormatForLocation(src.Location())
	}
	return ParseConfig(data, format)
}

// Read returns the raw document bytes for src.
func (l *Loader) Read(ctx context.Context, src Source) ([]byte, error) {
	if src == nil {
		return nil, errors.New("formconfig loader: source is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch src.Kind() {
	case SourceKindFile:
		return readFile(src.Location())
	case SourceKindFS:
		if l.fs == nil {
			return nil, errors.New("formconfig loader: fs is nil")
		}
		return fs.ReadFile(l.fs, src.Location())
	case SourceKindURL:
		if l.transport == nil {
			return nil, errors.New("formconfig loader: url sources require a transport")
		}
		return l.readURL(ctx, src.Location())
	default:
		return nil, fmt.Errorf("formconfig loader: unsupported source kind %q", src.Kind())
	}
}

func readFile(path string) ([]byte, error) {
	if path == "" {
		return nil, errors.New("formconfig loader: file path is required")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(abs)
}

func (l *Loader) readURL(ctx context.Context, location string) ([]byte, error) {
	resp, err := l.transport.Do(ctx, &transport.Request{
		Method: "GET",
		URL:    location,
		Header: map[string]string{"Accept": "application/json, application/yaml"},
	})
	if err != nil {
		return nil, fmt.Errorf("formconfig loader: %w", err)
	}
	if !resp.OK() {
		return nil, fmt.Errorf("formconfig loader: unexpected status %d fetching %s", resp.StatusCode, location)
	}
	return resp.Body, nil
}
