package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/felixgeelhaar/pyquest/internal/outbox"
	"github.com/google/uuid"
)

// Producer publishes run jobs, results and domain events to the queue
type Producer struct {
	conn *Connection
}

// NewProducer creates a new queue producer
func NewProducer(conn *Connection) *Producer {
	return &Producer{conn: conn}
}

// PublishRunJob publishes a Python execution job to the queue
func (p *Producer) PublishRunJob(ctx context.Context, job *RunJob) error {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}

	if err := p.conn.PublishJSON(ctx, RunQueueName, job); err != nil {
		return fmt.Errorf("failed to publish run job: %w", err)
	}

	slog.Info("published run job",
		"job_id", job.ID,
		"user_id", job.UserID,
		"session_id", job.SessionID,
	)

	return nil
}

// PublishResult publishes a run result to the results queue
func (p *Producer) PublishResult(ctx context.Context, result *RunResult) error {
	if result.CompletedAt.IsZero() {
		result.CompletedAt = time.Now()
	}

	if err := p.conn.PublishJSON(ctx, ResultQueueName, result); err != nil {
		return fmt.Errorf("failed to publish run result: %w", err)
	}

	slog.Info("published run result",
		"job_id", result.JobID,
		"status", result.Status,
		"duration", result.Duration,
	)

	return nil
}

// PublishEvent publishes an outbox entry to the events queue. The outbox
// relay calls this for every pending domain event.
func (p *Producer) PublishEvent(ctx context.Context, e *outbox.Entry) error {
	if err := p.conn.PublishJSON(ctx, EventQueueName, e); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	slog.Debug("published event",
		"event_id", e.EventID,
		"event_type", e.EventType,
	)

	return nil
}

// CreateRunJob creates a new run job with the given parameters
func CreateRunJob(userID, sessionID uuid.UUID, source string, timeout int) *RunJob {
	return &RunJob{
		ID:        uuid.New(),
		UserID:    userID,
		SessionID: sessionID,
		Source:    source,
		Timeout:   timeout,
		CreatedAt: time.Now(),
	}
}
