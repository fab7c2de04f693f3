package outbox

import (
	"context"
	"log/slog"
	"time"
)

// RelayConfig holds relay tuning knobs.
type RelayConfig struct {
	Interval  time.Duration // polling interval
	BatchSize int           // rows drained per tick
}

// DefaultRelayConfig returns sensible defaults.
func DefaultRelayConfig() RelayConfig {
	return RelayConfig{
		Interval:  2 * time.Second,
		BatchSize: 50,
	}
}

// Relay polls the outbox for pending events and publishes them in order.
// A failed publish stops the current batch so ordering is preserved; the
// failed row stays pending and is retried on the next tick.
type Relay struct {
	source    Source
	publisher Publisher
	cfg       RelayConfig
	logger    *slog.Logger
}

// NewRelay creates an outbox relay.
func NewRelay(source Source, publisher Publisher, cfg RelayConfig, logger *slog.Logger) *Relay {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultRelayConfig().Interval
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultRelayConfig().BatchSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Relay{
		source:    source,
		publisher: publisher,
		cfg:       cfg,
		logger:    logger,
	}
}

// Run drains the outbox until the context is cancelled. One final drain
// runs on shutdown so a clean stop leaves nothing publishable behind.
func (r *Relay) Run(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	r.logger.Info("outbox relay started", "interval", r.cfg.Interval, "batch_size", r.cfg.BatchSize)

	for {
		select {
		case <-ctx.Done():
			drainCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			r.Drain(drainCtx)
			cancel()
			r.logger.Info("outbox relay stopped")
			return
		case <-ticker.C:
			r.Drain(ctx)
		}
	}
}

// Drain publishes one batch of pending events. It returns the number of
// events successfully published.
func (r *Relay) Drain(ctx context.Context) int {
	entries, err := r.source.PendingEvents(ctx, r.cfg.BatchSize)
	if err != nil {
		r.logger.Error("load pending events failed", "error", err)
		return 0
	}

	sent := 0
	for _, e := range entries {
		if err := r.publisher.PublishEvent(ctx, e); err != nil {
			r.logger.Warn("publish event failed",
				"event_id", e.EventID,
				"event_type", e.EventType,
				"attempts", e.Attempts+1,
				"error", err,
			)
			if err := r.source.MarkEventFailed(ctx, e.EventID); err != nil {
				r.logger.Error("mark event failed errored", "event_id", e.EventID, "error", err)
			}
			// Stop the batch: later events must not overtake this one.
			break
		}

		if err := r.source.MarkEventSent(ctx, e.EventID); err != nil {
			// The event went out but the row stays pending; the consumer
			// side must tolerate the eventual redelivery.
			r.logger.Error("mark event sent failed", "event_id", e.EventID, "error", err)
			break
		}
		sent++
	}

	if sent > 0 {
		r.logger.Debug("outbox drained", "published", sent)
	}
	return sent
}
