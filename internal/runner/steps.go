package runner

import (
	"context"
	"strings"
)

// Step records the outcome of one best-effort side call. A failed step does
// not fail the operation that ran it.
type Step struct {
	Name  string `json:"name" yaml:"name"`
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

// OK reports whether the step succeeded.
func (s Step) OK() bool {
	return s.Error == ""
}

// Steps is an ordered list of independent step outcomes.
type Steps []Step

// Run executes a tool as a step and appends its outcome. A non-zero exit is
// recorded as a failure with the tool's stderr.
func (s *Steps) Run(ctx context.Context, r Runner, name string, args ...string) {
	label := strings.Join(append([]string{name}, redact(args)...), " ")
	res, err := r.Run(ctx, name, args...)
	if err == nil {
		err = res.Err(name)
	}
	s.Record(label, err)
}

// Record appends the outcome of a step that was not a tool invocation.
func (s *Steps) Record(name string, err error) {
	step := Step{Name: name}
	if err != nil {
		step.Error = err.Error()
	}
	*s = append(*s, step)
}

// Failed returns the steps that did not succeed.
func (s Steps) Failed() []Step {
	var failed []Step
	for _, step := range s {
		if !step.OK() {
			failed = append(failed, step)
		}
	}
	return failed
}
