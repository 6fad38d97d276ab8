package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/goliatone/go-formengine/pkg/formconfig"
	"github.com/goliatone/go-formengine/pkg/funcs"
	"github.com/goliatone/go-formengine/pkg/plugin"
	"github.com/goliatone/go-formengine/pkg/visibility"
)

// FieldState is the computed interactive state of one field.
type FieldState struct {
	Path      string
	Visible   bool
	Disabled  bool
	Options   []formconfig.Option
	Component string
	Formatter funcs.Func
	Parser    funcs.Func
}

// ButtonState is the computed state of one button.
type ButtonState struct {
	Index    int
	Text     string
	Action   formconfig.ButtonAction
	Visible  bool
	Disabled bool
}

// Section is one resolved layout region.
type Section struct {
	Title       string
	Description string
	Span        int
	Fields      []string
}

// LayoutView is the resolved layout of a mounted form.
type LayoutView struct {
	Type     formconfig.LayoutType
	Sections []Section
}

// ErrButtonUnavailable is returned when a hidden or disabled button is
// clicked.
var ErrButtonUnavailable = errors.New("orchestrator: button is not available")

func (f *Form) scopeLocked() visibility.Context {
	return visibility.Context{Values: f.values, Extras: f.extras}
}

// recomputeLocked refreshes the state of every listed path. Formatter and
// parser callables survive recomputation; they only depend on the config.
func (f *Form) recomputeLocked(paths []string) {
	if f.cfg == nil {
		return
	}
	scope := f.scopeLocked()
	for _, path := range paths {
		field, ok := f.cfg.Field(path)
		if !ok {
			continue
		}
		st := f.resolver.Field(path, *field, scope)
		prev, seen := f.states[path]

		next := FieldState{
			Path:      path,
			Visible:   st.Visible,
			Disabled:  st.Disabled,
			Options:   f.optionsLocked(path, field),
			Component: f.widgets.Component(*field),
		}
		if seen {
			next.Formatter, next.Parser = prev.Formatter, prev.Parser
		} else {
			next.Formatter = f.synthesizeProp(field, "formatter")
			next.Parser = f.synthesizeProp(field, "parser")
		}
		f.states[path] = next
	}
}

func (f *Form) optionsLocked(path string, field *formconfig.FieldConfig) []formconfig.Option {
	if opts, ok := f.options[path]; ok {
		return opts
	}
	if field.Options.Source != "" {
		return []formconfig.Option{}
	}
	return field.Options.Items
}

func (f *Form) synthesizeProp(field *formconfig.FieldConfig, key string) funcs.Func {
	raw, ok := field.Props[key].(string)
	if !ok || strings.TrimSpace(raw) == "" {
		return nil
	}
	return f.synth.Synthesize(raw)
}

// hiddenLocked snapshots visibility for validation.
func (f *Form) hiddenLocked() func(path string) bool {
	hidden := make(map[string]bool)
	for path, st := range f.states {
		if !st.Visible {
			hidden[path] = true
		}
	}
	return func(path string) bool { return hidden[path] }
}

// FieldState returns the state of the field at path.
func (f *Form) FieldState(path string) (FieldState, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	st, ok := f.states[path]
	return st, ok
}

// FieldStates returns the state of every field keyed by path.
func (f *Form) FieldStates() map[string]FieldState {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make(map[string]FieldState, len(f.states))
	for k, v := range f.states {
		out[k] = v
	}
	return out
}

func buttonName(index int, btn formconfig.ButtonConfig) string {
	return fmt.Sprintf("buttons[%d]:%s", index, btn.Text)
}

// ButtonStates resolves every button. Submit buttons are disabled while a
// submission is in flight.
func (f *Form) ButtonStates() []ButtonState {
	submitting := f.plugins.State() == plugin.StateSubmitting

	f.mu.RLock()
	defer f.mu.RUnlock()
	cfg := f.cfg
	if cfg == nil {
		cfg = f.source
	}
	scope := f.scopeLocked()
	out := make([]ButtonState, len(cfg.Buttons))
	for i, btn := range cfg.Buttons {
		st := f.resolver.Button(buttonName(i, btn), btn, scope)
		out[i] = ButtonState{
			Index:    i,
			Text:     btn.Text,
			Action:   btn.Action,
			Visible:  st.Visible,
			Disabled: st.Disabled || (submitting && btn.Action == formconfig.ActionSubmit),
		}
	}
	return out
}

// Click runs the action of the button at index.
func (f *Form) Click(ctx context.Context, index int) error {
	states := f.ButtonStates()
	if index < 0 || index >= len(states) {
		return fmt.Errorf("orchestrator: button %d out of range", index)
	}
	st := states[index]
	if !st.Visible || st.Disabled {
		return fmt.Errorf("%w: %q", ErrButtonUnavailable, st.Text)
	}
	btn := f.Config().Buttons[index]

	switch btn.Action {
	case formconfig.ActionSubmit:
		return f.Submit(ctx)
	case formconfig.ActionReset:
		f.Reset(ctx)
		return nil
	case formconfig.ActionCancel:
		if f.onCancel != nil {
			f.onCancel()
		}
		return nil
	case formconfig.ActionCustom:
		handler, ok := f.handlers[btn.Handler]
		if !ok {
			err := fmt.Errorf("orchestrator: custom handler %q not registered", btn.Handler)
			f.logger.Warn("unknown button handler", "button", btn.Text, "handler", btn.Handler)
			f.plugins.OnError(ctx, err)
			return err
		}
		if err := handler(ctx, f); err != nil {
			f.plugins.OnError(ctx, err)
			return fmt.Errorf("orchestrator: handler %q: %w", btn.Handler, err)
		}
		return nil
	default:
		return fmt.Errorf("orchestrator: unknown button action %q", btn.Action)
	}
}

// Layout resolves tab, step and grid descriptors to top-level field paths.
// Other layout types yield one section holding every top-level field.
func (f *Form) Layout() LayoutView {
	cfg := f.Config()
	names := make([]string, len(cfg.Fields))
	for i, field := range cfg.Fields {
		names[i] = field.Name
	}
	pick := func(indices []int) []string {
		out := make([]string, 0, len(indices))
		for _, i := range indices {
			if i >= 0 && i < len(names) {
				out = append(out, names[i])
			}
		}
		return out
	}

	view := LayoutView{Type: formconfig.LayoutVertical}
	layout := cfg.Layout
	if layout != nil && layout.Type != "" {
		view.Type = layout.Type
	}

	switch {
	case layout != nil && view.Type == formconfig.LayoutTabs:
		for _, tab := range layout.Tabs {
			view.Sections = append(view.Sections, Section{Title: tab.Title, Fields: pick(tab.Fields)})
		}
	case layout != nil && view.Type == formconfig.LayoutSteps:
		for _, step := range layout.Steps {
			view.Sections = append(view.Sections, Section{
				Title:       step.Title,
				Description: step.Description,
				Fields:      pick(step.Fields),
			})
		}
	case layout != nil && view.Type == formconfig.LayoutGrid:
		for i, name := range names {
			span := 24
			if i < len(layout.Spans) && layout.Spans[i] > 0 {
				span = layout.Spans[i]
			}
			view.Sections = append(view.Sections, Section{Span: span, Fields: []string{name}})
		}
	default:
		view.Sections = []Section{{Fields: names}}
	}
	return view
}
