package notify

import (
	"context"
	"log/slog"
	"sync/atomic"

	"bizdesk/internal/metrics"
)

// Channel delivers events to one destination
type Channel interface {
	Name() string
	Deliver(ctx context.Context, e Event) error
}

// Publisher is what services depend on
type Publisher interface {
	Publish(e Event) bool
}

// Queue is a bounded in-process outbox drained by Run
type Queue struct {
	events   chan Event
	channels []Channel
	logger   *slog.Logger
	metrics  *metrics.Metrics
	dropped  atomic.Int64
}

func NewQueue(size int, logger *slog.Logger, m *metrics.Metrics, channels ...Channel) *Queue {
	if size <= 0 {
		size = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Queue{
		events:   make(chan Event, size),
		channels: channels,
		logger:   logger,
		metrics:  m,
	}
}

// Publish enqueues e without blocking. It returns false and drops the event when the queue is full.
func (q *Queue) Publish(e Event) bool {
	select {
	case q.events <- e:
		return true
	default:
		q.dropped.Add(1)
		q.logger.Warn("Notification queue full, dropping event",
			"type", e.Type, "kind", e.Kind, "entity_id", e.EntityID)
		return false
	}
}

// Dropped returns how many events were discarded because the queue was full
func (q *Queue) Dropped() int64 {
	return q.dropped.Load()
}

// Run delivers events until ctx is done, then delivers whatever is already queued.
func (q *Queue) Run(ctx context.Context) {
	for {
		select {
		case e := <-q.events:
			q.deliver(ctx, e)
		case <-ctx.Done():
			q.drain()
			return
		}
	}
}

func (q *Queue) drain() {
	for {
		select {
		case e := <-q.events:
			q.deliver(context.Background(), e)
		default:
			return
		}
	}
}

func (q *Queue) deliver(ctx context.Context, e Event) {
	for _, ch := range q.channels {
		err := ch.Deliver(ctx, e)
		q.metrics.ObserveNotification(ch.Name(), err)
		if err != nil {
			q.logger.Warn("Notification delivery failed",
				"channel", ch.Name(), "type", e.Type, "kind", e.Kind, "entity_id", e.EntityID, "error", err)
		}
	}
}
