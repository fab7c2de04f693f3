package queue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestNewConsumer_DefaultsZeroConfig(t *testing.T) {
	c := NewConsumer(nil, nil, ConsumerConfig{})

	if c.workers != 3 {
		t.Errorf("default workers = %d; want 3", c.workers)
	}
	if c.prefetch != 1 {
		t.Errorf("default prefetch = %d; want 1", c.prefetch)
	}
}

func TestNewConsumer_PreservesCustomConfig(t *testing.T) {
	c := NewConsumer(nil, nil, ConsumerConfig{Workers: 10, Prefetch: 5})

	if c.workers != 10 {
		t.Errorf("workers = %d; want 10", c.workers)
	}
	if c.prefetch != 5 {
		t.Errorf("prefetch = %d; want 5", c.prefetch)
	}
}

func TestResultConsumer_SubscribeUnsubscribe(t *testing.T) {
	rc := &ResultConsumer{
		handlers: make(map[string]ResultHandler),
	}

	jobID := uuid.New().String()
	rc.Subscribe(jobID, func(result *RunResult) {})

	rc.handlersMu.RLock()
	_, exists := rc.handlers[jobID]
	rc.handlersMu.RUnlock()
	if !exists {
		t.Error("handler should be registered after Subscribe")
	}

	rc.Unsubscribe(jobID)

	rc.handlersMu.RLock()
	_, exists = rc.handlers[jobID]
	rc.handlersMu.RUnlock()
	if exists {
		t.Error("handler should be removed after Unsubscribe")
	}
}

func TestResultConsumer_Subscribe_ConcurrentSafe(t *testing.T) {
	rc := &ResultConsumer{
		handlers: make(map[string]ResultHandler),
	}

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			jobID := uuid.New().String()
			rc.Subscribe(jobID, func(result *RunResult) {})
			time.Sleep(time.Microsecond)
			rc.Unsubscribe(jobID)
		}()
	}
	wg.Wait()

	rc.handlersMu.RLock()
	count := len(rc.handlers)
	rc.handlersMu.RUnlock()
	if count != 0 {
		t.Errorf("all handlers should be unsubscribed, got %d remaining", count)
	}
}

func TestResultConsumer_Subscribe_OverwritesPrevious(t *testing.T) {
	rc := &ResultConsumer{
		handlers: make(map[string]ResultHandler),
	}

	jobID := uuid.New().String()
	called1 := false
	called2 := false

	rc.Subscribe(jobID, func(result *RunResult) { called1 = true })
	rc.Subscribe(jobID, func(result *RunResult) { called2 = true })

	rc.handlersMu.RLock()
	handler, ok := rc.handlers[jobID]
	rc.handlersMu.RUnlock()
	if !ok {
		t.Fatal("handler should exist")
	}

	handler(&RunResult{})
	if called1 {
		t.Error("first handler should not have been called (was overwritten)")
	}
	if !called2 {
		t.Error("second handler should have been called")
	}
}

func TestConsumer_Stop_NilCancelFunc(t *testing.T) {
	c := &Consumer{}
	c.Stop()
}

func TestResultConsumer_Stop_NilCancelFunc(t *testing.T) {
	rc := &ResultConsumer{handlers: make(map[string]ResultHandler)}
	rc.Stop()
}

func TestJobHandler_Type(t *testing.T) {
	var handler JobHandler = func(ctx context.Context, job *RunJob) (*RunResult, error) {
		return &RunResult{
			JobID:  job.ID,
			Status: "completed",
			Stdout: "hello\n",
		}, nil
	}

	job := &RunJob{
		ID:     uuid.New(),
		Source: `print("hello")`,
	}

	result, err := handler(context.Background(), job)
	if err != nil {
		t.Errorf("handler returned unexpected error: %v", err)
	}
	if result.JobID != job.ID {
		t.Errorf("JobID = %v; want %v", result.JobID, job.ID)
	}
	if result.Stdout != "hello\n" {
		t.Errorf("Stdout = %q; want %q", result.Stdout, "hello\n")
	}
}

func TestConsumerDefaultTimeout(t *testing.T) {
	// Jobs without a timeout fall back to 30 seconds in processMessage.
	job := RunJob{Timeout: 0}

	timeout := time.Duration(job.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if timeout != 30*time.Second {
		t.Errorf("default timeout = %v; want 30s", timeout)
	}

	job = RunJob{Timeout: 60}
	timeout = time.Duration(job.Timeout) * time.Second
	if timeout != 60*time.Second {
		t.Errorf("custom timeout = %v; want 60s", timeout)
	}
}
