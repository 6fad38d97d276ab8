package orchestrator

import (
	"context"

	"github.com/goliatone/go-formengine/pkg/funcs"
	"github.com/goliatone/go-formengine/pkg/logger"
	"github.com/goliatone/go-formengine/pkg/plugin"
	"github.com/goliatone/go-formengine/pkg/remote"
	"github.com/goliatone/go-formengine/pkg/transport"
	"github.com/goliatone/go-formengine/pkg/validation"
	"github.com/goliatone/go-formengine/pkg/widgets"
)

// Handler runs a custom button action.
type Handler func(ctx context.Context, form *Form) error

// Option customises a Form.
type Option func(*Form)

// WithPlugins registers plugins in order.
func WithPlugins(plugins ...plugin.Plugin) Option {
	return func(f *Form) {
		f.pluginList = append(f.pluginList, plugins...)
	}
}

// WithValidation sets the rule registry used by Validate and Submit.
func WithValidation(rules *validation.Registry) Option {
	return func(f *Form) {
		if rules != nil {
			f.rules = rules
		}
	}
}

// WithFuncs resolves `fn:<name>` formatter and parser sources.
func WithFuncs(registry *funcs.Registry) Option {
	return func(f *Form) {
		f.funcs = registry
	}
}

// WithWidgets sets the component registry.
func WithWidgets(registry *widgets.Registry) Option {
	return func(f *Form) {
		if registry != nil {
			f.widgets = registry
		}
	}
}

// WithRemote sets the loader used for URL option sources.
func WithRemote(loader *remote.Loader) Option {
	return func(f *Form) {
		f.loader = loader
	}
}

// WithTransport sets the transport for submissions and, when no loader is
// given, for URL option sources.
func WithTransport(t transport.Transport) Option {
	return func(f *Form) {
		f.transport = t
	}
}

// WithLogger sets the logger shared with the default collaborators.
func WithLogger(l logger.Logger) Option {
	return func(f *Form) {
		f.logger = logger.OrNop(l)
	}
}

// WithInitialValues seeds values on top of field defaults.
func WithInitialValues(values map[string]any) Option {
	return func(f *Form) {
		f.seed = values
	}
}

// WithExtras exposes extra context to expressions under `extras`.
func WithExtras(extras map[string]any) Option {
	return func(f *Form) {
		f.extras = extras
	}
}

// WithOnSubmit is called with the submitted values and the endpoint response
// (nil without an endpoint).
func WithOnSubmit(fn func(values map[string]any, response any)) Option {
	return func(f *Form) {
		f.onSubmit = fn
	}
}

// WithOnCancel is called by cancel buttons.
func WithOnCancel(fn func()) Option {
	return func(f *Form) {
		f.onCancel = fn
	}
}

// WithHandlers registers custom button handlers by name.
func WithHandlers(handlers map[string]Handler) Option {
	return func(f *Form) {
		for name, h := range handlers {
			f.handlers[name] = h
		}
	}
}
