package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/goliatone/go-formengine/internal/config"
	"github.com/goliatone/go-formengine/pkg/formconfig"
	"github.com/goliatone/go-formengine/pkg/logger"
	"github.com/goliatone/go-formengine/pkg/plugins/storage"
	"github.com/goliatone/go-formengine/pkg/remote"
	"github.com/goliatone/go-formengine/pkg/transport"
)

// app carries the settings shared by every subcommand.
type app struct {
	configPath string
	logLevel   string
	jsonLogs   bool

	cfg *config.Config
	log logger.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:           "formctl",
		Short:         "Work with dynamic form configurations",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "settings file (YAML)")
	flags.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.BoolVar(&a.jsonLogs, "log-json", false, "emit JSON logs")

	cmd.AddCommand(
		newValidateCmd(a),
		newGraphCmd(a),
		newEvalCmd(a),
		newFillCmd(a),
		newSourcesCmd(a),
	)
	return cmd
}

func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if cmd.Flags().Changed("log-json") {
		cfg.Log.JSON = a.jsonLogs
	}
	lc := cfg.LoggerConfig()
	lc.Output = cmd.ErrOrStderr()
	a.cfg = cfg
	a.log = logger.New(lc)
	return nil
}

func (a *app) transport() transport.Transport {
	opts := []transport.Option{transport.WithTimeout(a.cfg.Transport.Timeout)}
	if a.cfg.Transport.Retries > 0 {
		opts = append(opts, transport.WithRetry(a.cfg.Transport.Retries, 200*time.Millisecond))
	}
	for name, value := range a.cfg.Transport.Headers {
		opts = append(opts, transport.WithDefaultHeader(name, value))
	}
	return transport.New(opts...)
}

func (a *app) loader(t transport.Transport, extra ...remote.LoaderOption) *remote.Loader {
	opts := append([]remote.LoaderOption{remote.WithLogger(a.log)}, extra...)
	return remote.New(t, a.cfg.LoaderOptions(), opts...)
}

func (a *app) store() (storage.Store, func() error, error) {
	switch a.cfg.Storage.Backend {
	case config.StorageRedis:
		client := redis.NewClient(&redis.Options{Addr: a.cfg.Storage.RedisAddr})
		return storage.NewRedisStore(client, a.cfg.Storage.Prefix), client.Close, nil
	case config.StorageMemory, "":
		return storage.NewMemoryStore(time.Now), func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", a.cfg.Storage.Backend)
	}
}

// readForm loads a document without structural validation.
func readForm(ctx context.Context, t transport.Transport, location string) (*formconfig.FormConfig, error) {
	src, err := formconfig.SourceFor(location)
	if err != nil {
		return nil, err
	}
	raw, err := formconfig.NewLoader(formconfig.WithTransport(t)).Read(ctx, src)
	if err != nil {
		return nil, err
	}
	return formconfig.Parse(raw, formconfig.FormatForLocation(location))
}

func loadForm(ctx context.Context, t transport.Transport, location string) (*formconfig.FormConfig, error) {
	src, err := formconfig.SourceFor(location)
	if err != nil {
		return nil, err
	}
	return formconfig.NewLoader(formconfig.WithTransport(t)).Load(ctx, src)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseValues(raw string) (map[string]any, error) {
	if raw == "" {
		return nil, nil
	}
	var values map[string]any
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return nil, fmt.Errorf("--values must be a JSON object: %w", err)
	}
	return values, nil
}
