// Package runner executes learner-submitted Python code. Exercises and
// playground runs go through an Executor; the Docker executor is the
// production path, the local executor exists for development machines
// without Docker.
package runner

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

// Executor defines the interface for Python code execution
type Executor interface {
	// Run executes the source with the given stdin and returns the outcome.
	Run(ctx context.Context, source, stdin string) (*ExecResult, error)
}

// ExecResult contains the outcome of one execution
type ExecResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
	TimedOut bool
	Duration time.Duration
}

// OK reports whether the run finished normally with a zero exit code.
func (r *ExecResult) OK() bool {
	return !r.TimedOut && r.ExitCode == 0
}

// LocalExecutor executes code with the host's python3 (for development)
type LocalExecutor struct {
	python string
}

// NewLocalExecutor creates a new local executor
func NewLocalExecutor() *LocalExecutor {
	return &LocalExecutor{python: "python3"}
}

// Run writes the source to a temp file and executes it with python3.
func (e *LocalExecutor) Run(ctx context.Context, source, stdin string) (*ExecResult, error) {
	tmpDir, err := os.MkdirTemp("", "pyquest-run-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(tmpDir)

	scriptPath := filepath.Join(tmpDir, "main.py")
	if err := os.WriteFile(scriptPath, []byte(source), 0644); err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, e.python, scriptPath)
	cmd.Dir = tmpDir
	if stdin != "" {
		cmd.Stdin = bytes.NewBufferString(stdin)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err = cmd.Run()
	duration := time.Since(start)

	result := &ExecResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: duration,
	}

	if ctx.Err() == context.DeadlineExceeded {
		result.TimedOut = true
		result.ExitCode = -1
		return result, nil
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		result.ExitCode = 0
	case errors.As(err, &exitErr):
		result.ExitCode = exitErr.ExitCode()
	default:
		// python3 missing, temp dir unwritable: infrastructure, not user code
		return nil, err
	}

	return result, nil
}

// Ensure executors implement Executor.
var (
	_ Executor = (*LocalExecutor)(nil)
	_ Executor = (*DockerExecutor)(nil)
)
