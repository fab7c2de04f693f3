package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/felixgeelhaar/fortify/bulkhead"
	"github.com/felixgeelhaar/fortify/circuitbreaker"
	"github.com/felixgeelhaar/fortify/ratelimit"

	"github.com/felixgeelhaar/pyquest/internal/queue"
)

// Service wraps an Executor with resilience patterns from fortify and
// adapts it to the run-job queue. User code failing is a normal outcome,
// only infrastructure errors count against the circuit breaker.
type Service struct {
	executor       Executor
	circuitBreaker circuitbreaker.CircuitBreaker[*ExecResult]
	bulkhead       bulkhead.Bulkhead[*ExecResult]
	rateLimit      ratelimit.RateLimiter
	logger         *slog.Logger
}

// ServiceConfig holds configuration for the runner service
type ServiceConfig struct {
	// EnableCircuitBreaker trips the executor open after repeated
	// infrastructure failures (Docker daemon down, image pull errors)
	EnableCircuitBreaker bool

	// EnableBulkhead limits concurrent executions
	EnableBulkhead bool

	// EnableRateLimit caps runs per user per second
	EnableRateLimit bool

	// MaxConcurrent for bulkhead (default: 4)
	MaxConcurrent int

	// RunsPerSecond per user for rate limiting (default: 2)
	RunsPerSecond int

	// Logger for resilience events
	Logger *slog.Logger
}

// DefaultServiceConfig returns sensible defaults for code execution
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		EnableCircuitBreaker: true,
		EnableBulkhead:       true,
		EnableRateLimit:      true,
		MaxConcurrent:        4,
		RunsPerSecond:        2,
	}
}

// NewService wraps an executor with resilience patterns using fortify
func NewService(executor Executor, cfg ServiceConfig) *Service {
	s := &Service{
		executor: executor,
		logger:   cfg.Logger,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	if cfg.EnableCircuitBreaker {
		s.circuitBreaker = circuitbreaker.New[*ExecResult](circuitbreaker.Config{
			MaxRequests: 2,
			Interval:    10 * time.Second,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts circuitbreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
			OnStateChange: func(from, to circuitbreaker.State) {
				s.logger.Warn("runner circuit breaker state change",
					"from", from.String(),
					"to", to.String())
			},
		})
	}

	if cfg.EnableBulkhead {
		maxConcurrent := cfg.MaxConcurrent
		if maxConcurrent <= 0 {
			maxConcurrent = 4
		}
		s.bulkhead = bulkhead.New[*ExecResult](bulkhead.Config{
			MaxConcurrent: maxConcurrent,
			MaxQueue:      maxConcurrent * 2,
			QueueTimeout:  15 * time.Second,
		})
	}

	if cfg.EnableRateLimit {
		rate := cfg.RunsPerSecond
		if rate <= 0 {
			rate = 2
		}
		s.rateLimit = ratelimit.New(&ratelimit.Config{
			Rate:     rate,
			Burst:    rate * 3,
			Interval: time.Second,
		})
	}

	return s
}

// ErrTooManyRuns is returned when a user exceeds the per-user run rate.
var ErrTooManyRuns = errors.New("too many runs, slow down")

// Execute runs source through the resilience stack. The userID keys the
// per-user rate limiter; pass an empty string to skip rate limiting.
func (s *Service) Execute(ctx context.Context, userID, source, stdin string) (*ExecResult, error) {
	if s.rateLimit != nil && userID != "" {
		if !s.rateLimit.Allow(ctx, userID) {
			return nil, ErrTooManyRuns
		}
	}

	operation := func(ctx context.Context) (*ExecResult, error) {
		return s.executor.Run(ctx, source, stdin)
	}

	if s.bulkhead != nil {
		inner := operation
		operation = func(ctx context.Context) (*ExecResult, error) {
			return s.bulkhead.Execute(ctx, inner)
		}
	}

	if s.circuitBreaker != nil {
		return s.circuitBreaker.Execute(ctx, operation)
	}

	return operation(ctx)
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	if s.rateLimit != nil {
		return s.rateLimit.Close()
	}
	return nil
}

// HandleJob adapts the service to the queue consumer. Infrastructure
// errors are returned so the consumer reports a failed run; user code
// errors come back inside the result.
func (s *Service) HandleJob(ctx context.Context, job *queue.RunJob) (*queue.RunResult, error) {
	start := time.Now()

	res, err := s.Execute(ctx, job.UserID.String(), job.Source, job.Stdin)
	if err != nil {
		return nil, fmt.Errorf("execute job %s: %w", job.ID, err)
	}

	result := &queue.RunResult{
		JobID:       job.ID,
		Stdout:      res.Stdout,
		Stderr:      res.Stderr,
		ExitCode:    res.ExitCode,
		Duration:    time.Since(start),
		CompletedAt: time.Now(),
	}

	switch {
	case res.TimedOut:
		result.Status = queue.RunStatusTimeout
		result.Error = "execution timed out"
	case res.ExitCode != 0:
		result.Status = queue.RunStatusFailed
	default:
		result.Status = queue.RunStatusCompleted
	}

	return result, nil
}
