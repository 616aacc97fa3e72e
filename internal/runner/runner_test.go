package runner

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecRun(t *testing.T) {
	r := New(nil)

	res, err := r.Run(context.Background(), "sh", "-c", "echo out; echo err >&2; exit 3")
	require.NoError(t, err)
	assert.Equal(t, "out\n", string(res.Stdout))
	assert.Equal(t, "err\n", string(res.Stderr))
	assert.Equal(t, 3, res.ExitCode)
	assert.False(t, res.Success())

	var exitErr *ExitError
	require.ErrorAs(t, res.Err("sh"), &exitErr)
	assert.Equal(t, "err", exitErr.Error())
}

func TestExecRun_Missing(t *testing.T) {
	r := New(nil)

	_, err := r.Run(context.Background(), "i4settings-no-such-tool")
	require.Error(t, err)
	assert.True(t, IsInvocation(err))
}

func TestResultLines(t *testing.T) {
	tests := []struct {
		name   string
		stdout string
		want   []string
	}{
		{"empty", "", nil},
		{"single", "a\n", []string{"a"}},
		{"crlf", "a\r\nb\r\n", []string{"a", "b"}},
		{"inner blank", "a\n\nb", []string{"a", "", "b"}},
		{"trailing empty fields", "manual\n10.0.0.5/24\n\n\n", []string{"manual", "10.0.0.5/24", "", ""}},
		{"only newline", "\n", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &Result{Stdout: []byte(tt.stdout)}
			assert.Equal(t, tt.want, r.Lines())
		})
	}
}

func TestExitErrorWithoutStderr(t *testing.T) {
	err := (&Result{ExitCode: 10}).Err("nmcli")
	assert.EqualError(t, err, "nmcli exited with status 10")
}

type failingRunner struct{}

func (failingRunner) Run(ctx context.Context, name string, args ...string) (*Result, error) {
	if name == "missing" {
		return nil, &InvocationError{Tool: name, Err: errors.New("not found")}
	}
	if name == "false" {
		return &Result{ExitCode: 1, Stderr: []byte("nope\n")}, nil
	}
	return &Result{}, nil
}

func TestSteps(t *testing.T) {
	var steps Steps
	ctx := context.Background()

	steps.Run(ctx, failingRunner{}, "true")
	steps.Run(ctx, failingRunner{}, "false", "x")
	steps.Run(ctx, failingRunner{}, "missing")
	steps.Record("write file", nil)

	require.Len(t, steps, 4)
	assert.True(t, steps[0].OK())
	assert.Equal(t, "false x", steps[1].Name)
	assert.Equal(t, "nope", steps[1].Error)
	assert.Contains(t, steps[2].Error, "failed to invoke missing")
	assert.Len(t, steps.Failed(), 2)
}

func TestRedact(t *testing.T) {
	got := redact([]string{"dev", "wifi", "connect", "Home", "password", "hunter2"})
	assert.Equal(t, []string{"dev", "wifi", "connect", "Home", "password", "***"}, got)
}
