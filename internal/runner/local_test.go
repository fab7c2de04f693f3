package runner

import (
	"context"
	"os/exec"
	"strings"
	"testing"
	"time"
)

func requirePython(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("python3"); err != nil {
		t.Skip("python3 not installed")
	}
}

func TestLocalExecutor_Run(t *testing.T) {
	requirePython(t)
	e := NewLocalExecutor()

	res, err := e.Run(context.Background(), `print("hello, world")`, "")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !res.OK() {
		t.Fatalf("run failed: exit %d, stderr %q", res.ExitCode, res.Stderr)
	}
	if got, want := strings.TrimSpace(res.Stdout), "hello, world"; got != want {
		t.Errorf("stdout = %q, want %q", got, want)
	}
}

func TestLocalExecutor_Stdin(t *testing.T) {
	requirePython(t)
	e := NewLocalExecutor()

	res, err := e.Run(context.Background(), `name = input()
print(f"hi {name}")`, "ada\n")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got, want := strings.TrimSpace(res.Stdout), "hi ada"; got != want {
		t.Errorf("stdout = %q, want %q", got, want)
	}
}

func TestLocalExecutor_UserError(t *testing.T) {
	requirePython(t)
	e := NewLocalExecutor()

	res, err := e.Run(context.Background(), `print(undefined_name)`, "")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.ExitCode == 0 {
		t.Error("expected nonzero exit for NameError")
	}
	if !strings.Contains(res.Stderr, "NameError") {
		t.Errorf("stderr = %q, want NameError traceback", res.Stderr)
	}
}

func TestLocalExecutor_Timeout(t *testing.T) {
	requirePython(t)
	e := NewLocalExecutor()

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	res, err := e.Run(ctx, `while True:
    pass`, "")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !res.TimedOut {
		t.Error("expected TimedOut")
	}
	if res.OK() {
		t.Error("timed out run must not be OK")
	}
}
