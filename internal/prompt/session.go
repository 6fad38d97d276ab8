// Package prompt fills a mounted form interactively, one question per
// visible and enabled field.
package prompt

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/goliatone/go-formengine/pkg/formconfig"
	"github.com/goliatone/go-formengine/pkg/logger"
	"github.com/goliatone/go-formengine/pkg/orchestrator"
	vexpr "github.com/goliatone/go-formengine/pkg/visibility/expr"
)

const defaultRetries = 3

// Option configures a Session.
type Option func(*Session)

// WithDriver overrides the prompt driver.
func WithDriver(driver Driver) Option {
	return func(s *Session) {
		if driver != nil {
			s.driver = driver
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Session) {
		s.logger = logger.OrNop(l)
	}
}

// WithRetries bounds how many times failing fields are asked again.
func WithRetries(n int) Option {
	return func(s *Session) {
		if n >= 0 {
			s.retries = n
		}
	}
}

// WithConfirmSubmit asks before submitting instead of submitting directly.
func WithConfirmSubmit(confirm bool) Option {
	return func(s *Session) {
		s.confirm = confirm
	}
}

// Session drives one fill of a form.
type Session struct {
	driver  Driver
	logger  logger.Logger
	retries int
	confirm bool
}

// New constructs a Session using the survey driver.
func New(opts ...Option) *Session {
	s := &Session{driver: SurveyDriver(), logger: logger.Nop(), retries: defaultRetries}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Fill asks for every visible, enabled field in document order. Each answer
// is written through the form, so fields revealed by earlier answers are asked
// too. Fields that fail validation are asked again.
func (s *Session) Fill(ctx context.Context, form *orchestrator.Form) (map[string]any, error) {
	if err := s.ask(ctx, form, leafPaths(form.Config()), nil); err != nil {
		return nil, err
	}

	for attempt := 0; ; attempt++ {
		failures := form.Validate(ctx)
		if len(failures) == 0 {
			return form.Values(), nil
		}
		if attempt >= s.retries {
			return form.Values(), fmt.Errorf("%w: %s", ErrInvalid, strings.Join(sortedKeys(failures), ", "))
		}
		if err := s.ask(ctx, form, sortedKeys(failures), failures); err != nil {
			return nil, err
		}
	}
}

// Run fills the form and submits it, asking first when configured to.
func (s *Session) Run(ctx context.Context, form *orchestrator.Form) (map[string]any, error) {
	values, err := s.Fill(ctx, form)
	if err != nil {
		return values, err
	}
	if s.confirm {
		ok, err := s.driver.Confirm(ctx, Question{Message: "Submit?", Kind: formconfig.FieldSwitch, Current: true})
		if err != nil {
			return values, err
		}
		if !ok {
			return values, nil
		}
	}
	if err := form.Submit(ctx); err != nil {
		return values, err
	}
	return form.Values(), nil
}

func (s *Session) ask(ctx context.Context, form *orchestrator.Form, paths []string, failures map[string][]string) error {
	cfg := form.Config()
	for _, path := range paths {
		state, ok := form.FieldState(path)
		if !ok || !state.Visible || state.Disabled {
			continue
		}
		field, ok := cfg.Field(path)
		if !ok {
			continue
		}
		for _, msg := range failures[path] {
			if err := s.driver.Info(ctx, fmt.Sprintf("%s: %s", path, msg)); err != nil {
				return err
			}
		}

		value, err := s.question(ctx, path, *field, state, form.Value(path))
		if err != nil {
			return translateSurveyErr(err)
		}
		if state.Parser != nil {
			parsed, perr := state.Parser(value)
			if perr != nil {
				s.logger.Warn("parser failed", "field", path, "error", perr)
			} else {
				value = parsed
			}
		}
		if _, err := form.SetValues(ctx, map[string]any{path: value}); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) question(ctx context.Context, path string, field formconfig.FieldConfig, state orchestrator.FieldState, current any) (any, error) {
	q := Question{
		Path:    path,
		Message: field.Label,
		Help:    field.Help,
		Kind:    field.Type,
		Options: state.Options,
		Current: current,
	}
	if q.Message == "" {
		q.Message = path
	}

	switch field.Type {
	case formconfig.FieldNumber, formconfig.FieldSlider, formconfig.FieldRate:
		q.Validate = numberAnswer
		raw, err := s.driver.Text(ctx, q)
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(raw) == "" {
			return nil, nil
		}
		n, _ := vexpr.ToNumber(raw)
		return n, nil
	case formconfig.FieldSwitch:
		return s.driver.Confirm(ctx, q)
	case formconfig.FieldCheckbox:
		if len(q.Options) == 0 {
			return s.driver.Confirm(ctx, q)
		}
		return s.driver.ChooseMany(ctx, q)
	case formconfig.FieldSelect, formconfig.FieldRadio:
		if len(q.Options) > 0 {
			return s.driver.Choose(ctx, q)
		}
	}
	return s.driver.Text(ctx, q)
}

// leafPaths lists every non-group field in document order.
func leafPaths(cfg *formconfig.FormConfig) []string {
	var out []string
	formconfig.Walk(cfg.Fields, func(path string, field *formconfig.FieldConfig) bool {
		if field.Type != formconfig.FieldGroup {
			out = append(out, path)
		}
		return true
	})
	return out
}

func numberAnswer(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	if _, err := strconv.ParseFloat(strings.TrimSpace(raw), 64); err != nil {
		return fmt.Errorf("%q is not a number", raw)
	}
	return nil
}

func sortedKeys(m map[string][]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
