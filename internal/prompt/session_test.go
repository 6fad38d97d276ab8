package prompt

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formengine/pkg/orchestrator"
	"github.com/goliatone/go-formengine/pkg/testsupport"
)

type stubDriver struct {
	texts   []string
	choices []int
	multi   [][]int
	confirm []bool
	infos   []string
	asked   []string
}

func next[T any](list *[]T, what string) (T, error) {
	var zero T
	if len(*list) == 0 {
		return zero, errors.New("no " + what + " scripted")
	}
	v := (*list)[0]
	*list = (*list)[1:]
	return v, nil
}

func (s *stubDriver) Text(_ context.Context, q Question) (string, error) {
	s.asked = append(s.asked, q.Message)
	v, err := next(&s.texts, "text")
	if err == nil && q.Validate != nil {
		err = q.Validate(v)
	}
	return v, err
}

func (s *stubDriver) Confirm(_ context.Context, q Question) (bool, error) {
	s.asked = append(s.asked, q.Message)
	return next(&s.confirm, "confirm")
}

func (s *stubDriver) Choose(_ context.Context, q Question) (any, error) {
	s.asked = append(s.asked, q.Message)
	idx, err := next(&s.choices, "choice")
	if err != nil || idx < 0 || idx >= len(q.Options) {
		return nil, err
	}
	return q.Options[idx].Value(), nil
}

func (s *stubDriver) ChooseMany(_ context.Context, q Question) ([]any, error) {
	s.asked = append(s.asked, q.Message)
	picked, err := next(&s.multi, "choices")
	if err != nil {
		return nil, err
	}
	out := make([]any, 0, len(picked))
	for _, idx := range picked {
		out = append(out, q.Options[idx].Value())
	}
	return out, nil
}

func (s *stubDriver) Info(_ context.Context, msg string) error {
	s.infos = append(s.infos, msg)
	return nil
}

const accountConfig = `
formId: account
fields:
  - name: plan
    label: Plan
    type: select
    options:
      - {label: Free, value: free}
      - {label: Team, value: team}
  - name: seats
    label: Seats
    type: number
    visible: "formValues.plan == 'team'"
  - name: email
    label: Email
    type: input
    rules:
      - required: true
      - type: email
  - name: secret
    label: Secret
    type: password
  - name: extras
    label: Extras
    type: checkbox
    options:
      - {label: Support, value: support}
      - {label: Backup, value: backup}
  - name: news
    label: Newsletter
    type: switch
`

func mountForm(t *testing.T, opts ...orchestrator.Option) *orchestrator.Form {
	t.Helper()
	form, err := orchestrator.New(testsupport.MustParseConfig(t, accountConfig), opts...)
	if err != nil {
		t.Fatalf("new form: %v", err)
	}
	if err := form.Mount(context.Background()); err != nil {
		t.Fatalf("mount: %v", err)
	}
	return form
}

func TestFillAsksRevealedFieldsAndRetriesInvalid(t *testing.T) {
	t.Parallel()

	driver := &stubDriver{
		choices: []int{1},
		texts:   []string{"4", "not-an-email", "hunter2", "ada@example.com"},
		multi:   [][]int{{1}},
		confirm: []bool{true},
	}
	values, err := New(WithDriver(driver)).Fill(context.Background(), mountForm(t))
	if err != nil {
		t.Fatalf("fill: %v", err)
	}

	want := map[string]any{
		"plan":   "team",
		"seats":  float64(4),
		"email":  "ada@example.com",
		"secret": "hunter2",
		"extras": []any{"backup"},
		"news":   true,
	}
	if diff := cmp.Diff(want, values); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}
	wantAsked := []string{"Plan", "Seats", "Email", "Secret", "Extras", "Newsletter", "Email"}
	if diff := cmp.Diff(wantAsked, driver.asked); diff != "" {
		t.Fatalf("questions mismatch (-want +got):\n%s", diff)
	}
	if len(driver.infos) != 1 {
		t.Fatalf("expected one validation message, got %v", driver.infos)
	}
}

func TestFillSkipsHiddenFields(t *testing.T) {
	t.Parallel()

	driver := &stubDriver{
		choices: []int{0},
		texts:   []string{"ada@example.com", ""},
		multi:   [][]int{{}},
		confirm: []bool{false},
	}
	if _, err := New(WithDriver(driver)).Fill(context.Background(), mountForm(t)); err != nil {
		t.Fatalf("fill: %v", err)
	}
	for _, q := range driver.asked {
		if q == "Seats" {
			t.Fatalf("hidden field was asked")
		}
	}
}

func TestFillGivesUpAfterRetries(t *testing.T) {
	t.Parallel()

	driver := &stubDriver{
		choices: []int{0},
		texts:   []string{"", "", ""},
		multi:   [][]int{{}},
		confirm: []bool{false},
	}
	_, err := New(WithDriver(driver), WithRetries(1)).Fill(context.Background(), mountForm(t))
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
}

func TestRunSubmitsAfterConfirm(t *testing.T) {
	t.Parallel()

	var submitted map[string]any
	form := mountForm(t, orchestrator.WithOnSubmit(func(values map[string]any, _ any) { submitted = values }))
	driver := &stubDriver{
		choices: []int{0},
		texts:   []string{"ada@example.com", "x"},
		multi:   [][]int{{0}},
		confirm: []bool{false, true},
	}
	if _, err := New(WithDriver(driver), WithConfirmSubmit(true)).Run(context.Background(), form); err != nil {
		t.Fatalf("run: %v", err)
	}
	if submitted["email"] != "ada@example.com" {
		t.Fatalf("expected submission, got %v", submitted)
	}
}
