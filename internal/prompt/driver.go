package prompt

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"

	"github.com/goliatone/go-formengine/pkg/formconfig"
	vexpr "github.com/goliatone/go-formengine/pkg/visibility/expr"
)

// Question is one field as the driver sees it. Kind selects the widget for
// text answers; Options and Current drive choice defaults.
type Question struct {
	Path     string
	Message  string
	Help     string
	Kind     formconfig.FieldType
	Options  []formconfig.Option
	Current  any
	Validate func(string) error
}

// Driver asks one question at a time. Choice answers are option values, not
// labels or indices.
type Driver interface {
	Text(ctx context.Context, q Question) (string, error)
	Confirm(ctx context.Context, q Question) (bool, error)
	Choose(ctx context.Context, q Question) (any, error)
	ChooseMany(ctx context.Context, q Question) ([]any, error)
	Info(ctx context.Context, msg string) error
}

type surveyDriver struct{}

// SurveyDriver returns the terminal driver.
func SurveyDriver() Driver {
	return &surveyDriver{}
}

// Text asks with a password, multiline or single-line prompt depending on
// the field kind.
func (d *surveyDriver) Text(ctx context.Context, q Question) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var prompt survey.Prompt
	switch q.Kind {
	case formconfig.FieldPassword:
		prompt = &survey.Password{Message: q.Message, Help: q.Help}
	case formconfig.FieldTextarea:
		prompt = &survey.Multiline{Message: q.Message, Help: q.Help, Default: display(q.Current)}
	default:
		prompt = &survey.Input{Message: q.Message, Help: q.Help, Default: display(q.Current)}
	}
	var opts []survey.AskOpt
	if q.Validate != nil {
		opts = append(opts, survey.WithValidator(func(answer any) error {
			s, _ := answer.(string)
			return q.Validate(s)
		}))
	}
	var out string
	if err := survey.AskOne(prompt, &out, opts...); err != nil {
		return "", translateSurveyErr(err)
	}
	return out, nil
}

func (d *surveyDriver) Confirm(ctx context.Context, q Question) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	current, _ := q.Current.(bool)
	var out bool
	prompt := &survey.Confirm{Message: q.Message, Help: q.Help, Default: current}
	if err := survey.AskOne(prompt, &out); err != nil {
		return false, translateSurveyErr(err)
	}
	return out, nil
}

// Choose returns the value of the chosen option, nil when nothing matched.
func (d *surveyDriver) Choose(ctx context.Context, q Question) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	labels := optionLabels(q.Options)
	prompt := &survey.Select{Message: q.Message, Help: q.Help, Options: labels}
	if idx := optionIndex(q.Options, q.Current); idx >= 0 {
		prompt.Default = labels[idx]
	}
	var out string
	if err := survey.AskOne(prompt, &out); err != nil {
		return nil, translateSurveyErr(err)
	}
	for i, label := range labels {
		if label == out {
			return q.Options[i].Value(), nil
		}
	}
	return nil, nil
}

func (d *surveyDriver) ChooseMany(ctx context.Context, q Question) ([]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	labels := optionLabels(q.Options)
	prompt := &survey.MultiSelect{Message: q.Message, Help: q.Help, Options: labels}
	if indices := selectedIndices(q.Options, q.Current); len(indices) > 0 {
		defaults := make([]string, len(indices))
		for i, idx := range indices {
			defaults[i] = labels[idx]
		}
		prompt.Default = defaults
	}
	var out []string
	if err := survey.AskOne(prompt, &out); err != nil {
		return nil, translateSurveyErr(err)
	}
	picked := make(map[string]struct{}, len(out))
	for _, label := range out {
		picked[label] = struct{}{}
	}
	values := make([]any, 0, len(out))
	for i, label := range labels {
		if _, ok := picked[label]; ok {
			values = append(values, q.Options[i].Value())
		}
	}
	return values, nil
}

func (d *surveyDriver) Info(ctx context.Context, msg string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := fmt.Fprintln(os.Stdout, msg)
	return err
}

func translateSurveyErr(err error) error {
	if errors.Is(err, terminal.InterruptErr) {
		return ErrAborted
	}
	return err
}

func display(v any) string {
	if v == nil {
		return ""
	}
	return vexpr.ToString(v)
}

func optionLabels(options []formconfig.Option) []string {
	out := make([]string, len(options))
	for i, opt := range options {
		out[i] = opt.Label()
	}
	return out
}

// optionIndex finds the option loosely equal to current, -1 when none is.
func optionIndex(options []formconfig.Option, current any) int {
	if current == nil {
		return -1
	}
	for i, opt := range options {
		if vexpr.LooseEqual(opt.Value(), current) {
			return i
		}
	}
	return -1
}

func selectedIndices(options []formconfig.Option, current any) []int {
	list, ok := current.([]any)
	if !ok {
		return nil
	}
	var out []int
	for i, opt := range options {
		for _, v := range list {
			if vexpr.LooseEqual(opt.Value(), v) {
				out = append(out, i)
				break
			}
		}
	}
	return out
}
