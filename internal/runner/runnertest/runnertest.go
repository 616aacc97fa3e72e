// Package runnertest provides a scripted runner.Runner for tests.
package runnertest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/i4arch/i4settings/internal/runner"
)

// Response is the scripted outcome for one command line.
type Response struct {
	Stdout   string
	Stderr   string
	ExitCode int
	// Missing makes the invocation fail as if the tool was not installed.
	Missing bool
}

// Fake answers commands from a table keyed by the full command line
// (name and args joined by single spaces). Unknown command lines fail as if
// the tool was missing.
type Fake struct {
	mu        sync.Mutex
	responses map[string]Response
	Calls     [][]string
}

// New returns an empty Fake.
func New() *Fake {
	return &Fake{responses: make(map[string]Response)}
}

// On scripts the response for a command line.
func (f *Fake) On(cmdline string, resp Response) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[cmdline] = resp
	return f
}

// Run implements runner.Runner.
func (f *Fake) Run(ctx context.Context, name string, args ...string) (*runner.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	call := append([]string{name}, args...)
	f.Calls = append(f.Calls, call)

	if err := ctx.Err(); err != nil {
		return nil, &runner.InvocationError{Tool: name, Err: err}
	}
	resp, ok := f.responses[strings.Join(call, " ")]
	if !ok || resp.Missing {
		return nil, &runner.InvocationError{Tool: name, Err: errors.New("executable file not found in $PATH")}
	}
	return &runner.Result{
		Stdout:   []byte(resp.Stdout),
		Stderr:   []byte(resp.Stderr),
		ExitCode: resp.ExitCode,
	}, nil
}

// Called reports whether the exact command line was invoked.
func (f *Fake) Called(cmdline string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.Calls {
		if strings.Join(c, " ") == cmdline {
			return true
		}
	}
	return false
}

// Last returns the most recent call, or nil.
func (f *Fake) Last() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Calls) == 0 {
		return nil
	}
	return f.Calls[len(f.Calls)-1]
}

// String lists the recorded calls, for test failure messages.
func (f *Fake) String() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var b strings.Builder
	for _, c := range f.Calls {
		fmt.Fprintf(&b, "%q\n", c)
	}
	return b.String()
}
