package runner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/pyquest/internal/queue"
)

// fakeExecutor returns canned results or errors.
type fakeExecutor struct {
	result *ExecResult
	err    error
	calls  int
}

func (f *fakeExecutor) Run(ctx context.Context, source, stdin string) (*ExecResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func newTestService(exec Executor) *Service {
	return NewService(exec, ServiceConfig{
		EnableCircuitBreaker: true,
		EnableBulkhead:       true,
		MaxConcurrent:        2,
	})
}

func TestService_Execute(t *testing.T) {
	exec := &fakeExecutor{
		result: &ExecResult{Stdout: "hello\n", ExitCode: 0},
	}
	svc := newTestService(exec)
	defer svc.Close()

	res, err := svc.Execute(context.Background(), "user-1", `print("hello")`, "")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if res.Stdout != "hello\n" {
		t.Errorf("Stdout = %q, want %q", res.Stdout, "hello\n")
	}
	if !res.OK() {
		t.Error("expected OK() for clean exit")
	}
	if exec.calls != 1 {
		t.Errorf("executor called %d times, want 1", exec.calls)
	}
}

func TestService_Execute_InfrastructureError(t *testing.T) {
	exec := &fakeExecutor{err: errors.New("docker daemon unreachable")}
	svc := newTestService(exec)
	defer svc.Close()

	_, err := svc.Execute(context.Background(), "user-1", "print(1)", "")
	if err == nil {
		t.Fatal("expected error from failing executor")
	}
}

func TestService_CircuitBreakerTrips(t *testing.T) {
	exec := &fakeExecutor{err: errors.New("docker daemon unreachable")}
	svc := newTestService(exec)
	defer svc.Close()

	// Three consecutive failures trip the breaker
	for i := 0; i < 3; i++ {
		if _, err := svc.Execute(context.Background(), "user-1", "print(1)", ""); err == nil {
			t.Fatalf("attempt %d: expected error", i)
		}
	}

	callsBefore := exec.calls
	if _, err := svc.Execute(context.Background(), "user-1", "print(1)", ""); err == nil {
		t.Fatal("expected error while breaker open")
	}
	if exec.calls != callsBefore {
		t.Errorf("executor called while breaker open: %d calls, want %d", exec.calls, callsBefore)
	}
}

func TestService_RateLimit(t *testing.T) {
	exec := &fakeExecutor{result: &ExecResult{ExitCode: 0}}
	svc := NewService(exec, ServiceConfig{
		EnableRateLimit: true,
		RunsPerSecond:   1,
	})
	defer svc.Close()

	// Burst is rate*3, so the fourth immediate run is rejected
	var limited bool
	for i := 0; i < 10; i++ {
		_, err := svc.Execute(context.Background(), "user-1", "print(1)", "")
		if errors.Is(err, ErrTooManyRuns) {
			limited = true
			break
		}
		if err != nil {
			t.Fatalf("run %d: unexpected error %v", i, err)
		}
	}
	if !limited {
		t.Error("expected ErrTooManyRuns after exhausting burst")
	}
}

func TestService_HandleJob(t *testing.T) {
	tests := []struct {
		name       string
		result     *ExecResult
		wantStatus string
	}{
		{
			name:       "clean run",
			result:     &ExecResult{Stdout: "42\n", ExitCode: 0},
			wantStatus: queue.RunStatusCompleted,
		},
		{
			name:       "user code raised",
			result:     &ExecResult{Stderr: "NameError: name 'x' is not defined", ExitCode: 1},
			wantStatus: queue.RunStatusFailed,
		},
		{
			name:       "timed out",
			result:     &ExecResult{TimedOut: true, ExitCode: -1},
			wantStatus: queue.RunStatusTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(&fakeExecutor{result: tt.result}, ServiceConfig{})
			defer svc.Close()

			job := &queue.RunJob{
				ID:     uuid.New(),
				UserID: uuid.New(),
				Source: "print(42)",
			}
			res, err := svc.HandleJob(context.Background(), job)
			if err != nil {
				t.Fatalf("HandleJob() error = %v", err)
			}
			if res.Status != tt.wantStatus {
				t.Errorf("Status = %q, want %q", res.Status, tt.wantStatus)
			}
			if res.JobID != job.ID {
				t.Errorf("JobID = %v, want %v", res.JobID, job.ID)
			}
			if res.Stdout != tt.result.Stdout {
				t.Errorf("Stdout = %q, want %q", res.Stdout, tt.result.Stdout)
			}
		})
	}
}

func TestService_HandleJob_InfrastructureError(t *testing.T) {
	svc := NewService(&fakeExecutor{err: errors.New("pull failed")}, ServiceConfig{})
	defer svc.Close()

	job := &queue.RunJob{ID: uuid.New(), UserID: uuid.New(), Source: "print(1)"}
	if _, err := svc.HandleJob(context.Background(), job); err == nil {
		t.Fatal("expected error to propagate to the consumer")
	}
}

func TestExecResult_OK(t *testing.T) {
	tests := []struct {
		name string
		res  ExecResult
		want bool
	}{
		{"clean exit", ExecResult{ExitCode: 0}, true},
		{"nonzero exit", ExecResult{ExitCode: 1}, false},
		{"timed out", ExecResult{TimedOut: true, ExitCode: 0}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.res.OK(); got != tt.want {
				t.Errorf("OK() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestService_HandleJob_DurationSet(t *testing.T) {
	svc := NewService(&fakeExecutor{result: &ExecResult{ExitCode: 0}}, ServiceConfig{})
	defer svc.Close()

	job := &queue.RunJob{ID: uuid.New(), UserID: uuid.New(), Source: "pass"}
	res, err := svc.HandleJob(context.Background(), job)
	if err != nil {
		t.Fatalf("HandleJob() error = %v", err)
	}
	if res.Duration < 0 || res.Duration > time.Minute {
		t.Errorf("Duration = %v, want a sane wall-clock value", res.Duration)
	}
	if res.CompletedAt.IsZero() {
		t.Error("CompletedAt not set")
	}
}
