//go:build integration

package queue_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/felixgeelhaar/pyquest/internal/outbox"
	"github.com/felixgeelhaar/pyquest/internal/queue"
	"github.com/google/uuid"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/rabbitmq"
)

// setupRabbitMQ creates a RabbitMQ container for testing
func setupRabbitMQ(t *testing.T) (string, func()) {
	ctx := context.Background()

	container, err := rabbitmq.Run(ctx, "rabbitmq:3.12-management")
	if err != nil {
		t.Fatalf("failed to start RabbitMQ container: %v", err)
	}

	amqpURL, err := container.AmqpURL(ctx)
	if err != nil {
		container.Terminate(ctx)
		t.Fatalf("failed to get AMQP URL: %v", err)
	}

	cleanup := func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}

	return amqpURL, cleanup
}

func TestIntegration_Connection_ConnectAndClose(t *testing.T) {
	amqpURL, cleanup := setupRabbitMQ(t)
	defer cleanup()

	conn, err := queue.NewConnection(amqpURL)
	if err != nil {
		t.Fatalf("failed to create connection: %v", err)
	}

	if !conn.IsConnected() {
		t.Error("expected connection to be active")
	}

	if err := conn.Close(); err != nil {
		t.Errorf("failed to close connection: %v", err)
	}
}

func TestIntegration_RunJob_RoundTrip(t *testing.T) {
	amqpURL, cleanup := setupRabbitMQ(t)
	defer cleanup()

	conn, err := queue.NewConnection(amqpURL)
	if err != nil {
		t.Fatalf("failed to create connection: %v", err)
	}
	defer conn.Close()

	var (
		mu       sync.Mutex
		received *queue.RunJob
	)
	done := make(chan struct{})

	handler := func(ctx context.Context, job *queue.RunJob) (*queue.RunResult, error) {
		mu.Lock()
		received = job
		mu.Unlock()
		close(done)
		return &queue.RunResult{
			Status:   "completed",
			Stdout:   "hello\n",
			ExitCode: 0,
		}, nil
	}

	consumer := queue.NewConsumer(conn, handler, queue.DefaultConsumerConfig())
	if err := consumer.Start(context.Background()); err != nil {
		t.Fatalf("failed to start consumer: %v", err)
	}
	defer consumer.Stop()

	producer := queue.NewProducer(conn)
	job := queue.CreateRunJob(uuid.New(), uuid.New(), `print("hello")`, 30)
	if err := producer.PublishRunJob(context.Background(), job); err != nil {
		t.Fatalf("failed to publish job: %v", err)
	}

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("job was not consumed within 10s")
	}

	mu.Lock()
	defer mu.Unlock()
	if received.ID != job.ID {
		t.Errorf("received job ID = %v; want %v", received.ID, job.ID)
	}
	if received.Source != job.Source {
		t.Errorf("received job source = %q; want %q", received.Source, job.Source)
	}
}

func TestIntegration_ResultConsumer_DeliversToSubscriber(t *testing.T) {
	amqpURL, cleanup := setupRabbitMQ(t)
	defer cleanup()

	conn, err := queue.NewConnection(amqpURL)
	if err != nil {
		t.Fatalf("failed to create connection: %v", err)
	}
	defer conn.Close()

	rc := queue.NewResultConsumer(conn)
	if err := rc.Start(context.Background()); err != nil {
		t.Fatalf("failed to start result consumer: %v", err)
	}
	defer rc.Stop()

	jobID := uuid.New()
	done := make(chan *queue.RunResult, 1)
	rc.Subscribe(jobID.String(), func(result *queue.RunResult) {
		done <- result
	})

	producer := queue.NewProducer(conn)
	if err := producer.PublishResult(context.Background(), &queue.RunResult{
		JobID:    jobID,
		Status:   "completed",
		Stdout:   "42\n",
		ExitCode: 0,
	}); err != nil {
		t.Fatalf("failed to publish result: %v", err)
	}

	select {
	case result := <-done:
		if result.Stdout != "42\n" {
			t.Errorf("Stdout = %q; want %q", result.Stdout, "42\n")
		}
	case <-time.After(10 * time.Second):
		t.Fatal("result was not delivered within 10s")
	}
}

func TestIntegration_PublishEvent(t *testing.T) {
	amqpURL, cleanup := setupRabbitMQ(t)
	defer cleanup()

	conn, err := queue.NewConnection(amqpURL)
	if err != nil {
		t.Fatalf("failed to create connection: %v", err)
	}
	defer conn.Close()

	producer := queue.NewProducer(conn)
	entry := &outbox.Entry{
		EventID:     uuid.New(),
		EventType:   "lesson.completed",
		AggregateID: uuid.New(),
		Payload:     json.RawMessage(`{"xp_earned":28}`),
		OccurredAt:  time.Now(),
	}
	if err := producer.PublishEvent(context.Background(), entry); err != nil {
		t.Fatalf("failed to publish event: %v", err)
	}

	// Consume the event back off the raw channel.
	msgs, err := conn.Channel().Consume(queue.EventQueueName, "", true, false, false, false, nil)
	if err != nil {
		t.Fatalf("failed to consume events: %v", err)
	}

	select {
	case msg := <-msgs:
		var got outbox.Entry
		if err := json.Unmarshal(msg.Body, &got); err != nil {
			t.Fatalf("failed to unmarshal event: %v", err)
		}
		if got.EventID != entry.EventID {
			t.Errorf("EventID = %v; want %v", got.EventID, entry.EventID)
		}
		if got.EventType != "lesson.completed" {
			t.Errorf("EventType = %q; want lesson.completed", got.EventType)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("event was not delivered within 10s")
	}
}
