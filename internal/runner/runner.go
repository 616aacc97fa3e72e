// Package runner invokes external command-line tools and captures their
// output. A tool that exits non-zero is not an error at this layer; only a
// tool that could not be started is.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

// Result is the captured outcome of a tool that ran to completion.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// Success reports whether the tool exited with status zero.
func (r *Result) Success() bool {
	return r.ExitCode == 0
}

// Lines returns stdout split into lines, without line terminators. Only the
// final terminator is dropped, so trailing empty lines survive: nmcli -g
// prints one line per requested field, even when the field is empty.
func (r *Result) Lines() []string {
	out := strings.TrimSuffix(string(r.Stdout), "\n")
	if out == "" {
		return nil
	}
	lines := strings.Split(out, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

// Err returns an *ExitError if the tool exited non-zero, nil otherwise.
func (r *Result) Err(tool string) error {
	if r.Success() {
		return nil
	}
	return &ExitError{Tool: tool, Code: r.ExitCode, Stderr: string(r.Stderr)}
}

// Runner runs a tool to completion.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (*Result, error)
}

// InvocationError is returned when a tool could not be started at all.
type InvocationError struct {
	Tool string
	Err  error
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("failed to invoke %s: %v", e.Tool, e.Err)
}

func (e *InvocationError) Unwrap() error {
	return e.Err
}

// IsInvocation reports whether err means the tool could not be started.
func IsInvocation(err error) bool {
	var ie *InvocationError
	return errors.As(err, &ie)
}

// ExitError carries the stderr of a tool that exited non-zero. Its message is
// the tool's own error text, unmodified apart from surrounding whitespace.
type ExitError struct {
	Tool   string
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	if msg := strings.TrimSpace(e.Stderr); msg != "" {
		return msg
	}
	return fmt.Sprintf("%s exited with status %d", e.Tool, e.Code)
}

// Exec runs tools as child processes.
type Exec struct {
	Logger *slog.Logger
}

// New returns an Exec runner that logs every invocation at debug level.
func New(logger *slog.Logger) *Exec {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exec{Logger: logger.With("component", "runner")}
}

// Run starts name with args and waits for it to exit.
func (e *Exec) Run(ctx context.Context, name string, args ...string) (*Result, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := &Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			e.Logger.Debug("tool invocation failed", "tool", name, "error", err)
			return nil, &InvocationError{Tool: name, Err: err}
		}
		res.ExitCode = exitErr.ExitCode()
	}
	e.Logger.Debug("tool finished", "tool", name, "args", redact(args), "exit", res.ExitCode)
	return res, nil
}

// redact hides values that follow secret-bearing arguments.
func redact(args []string) []string {
	out := make([]string, len(args))
	copy(out, args)
	for i := 0; i < len(out)-1; i++ {
		switch out[i] {
		case "password", "+vpn.secrets":
			out[i+1] = "***"
		}
	}
	return out
}
