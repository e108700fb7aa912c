package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jmelendez07/MathG/internal/event"
)

// PartitionKey derives the broker routing key for an actor so that one
// actor's events land on the same delivery lane. Anonymous actors share the
// guest key.
func PartitionKey(userID *int64) string {
	if userID == nil {
		return "user-guest"
	}
	return fmt.Sprintf("user-%d", *userID)
}

// Publisher sends one event to the broker and confirms delivery.
type Publisher interface {
	Publish(ctx context.Context, topic, key string, ev event.ActivityEvent) error
}

// Job is one pending publish.
type Job struct {
	Topic string
	Key   string
	Event event.ActivityEvent
}

// Dispatcher owns a bounded work queue drained by background workers.
// Enqueue never blocks and never fails the caller: activity logging is a
// best-effort side channel of the originating action.
type Dispatcher struct {
	jobs      chan Job
	publisher Publisher
	logger    *slog.Logger
	timeout   time.Duration

	wg sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// Config tunes the dispatcher.
type Config struct {
	// Workers is the number of background goroutines draining the queue.
	Workers int
	// QueueSize bounds the number of pending jobs; beyond it events are
	// dropped rather than blocking the caller.
	QueueSize int
	// PublishTimeout bounds one publish attempt, internal broker retries
	// included.
	PublishTimeout time.Duration
}

// New starts a dispatcher with its worker pool running.
func New(pub Publisher, cfg Config, logger *slog.Logger) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = 2 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}

	d := &Dispatcher{
		jobs:      make(chan Job, cfg.QueueSize),
		publisher: pub,
		logger:    logger,
		timeout:   cfg.PublishTimeout,
	}
	for i := 0; i < cfg.Workers; i++ {
		d.wg.Add(1)
		go d.worker(i)
	}
	return d
}

// Enqueue schedules an event for asynchronous transport. It returns
// immediately; if the queue is full or the dispatcher is closed the event
// is dropped and logged.
func (d *Dispatcher) Enqueue(topic, key string, ev event.ActivityEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		d.logger.Warn("dispatcher closed, dropping activity event",
			"topic", topic, "key", key, "action", ev.Action)
		return
	}
	select {
	case d.jobs <- Job{Topic: topic, Key: key, Event: ev}:
	default:
		d.logger.Warn("dispatch queue full, dropping activity event",
			"topic", topic, "key", key, "action", ev.Action)
	}
}

// Close drains pending jobs and stops the workers.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.jobs)
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) worker(id int) {
	defer d.wg.Done()
	for job := range d.jobs {
		d.publish(id, job)
	}
}

// publish is the worker boundary: any transport failure is logged with its
// context and swallowed so the failure never re-enters a retry loop above
// the broker client's own retry budget.
func (d *Dispatcher) publish(id int, job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	if err := d.publisher.Publish(ctx, job.Topic, job.Key, job.Event); err != nil {
		d.logger.Error("failed to publish activity event",
			"worker", id,
			"topic", job.Topic,
			"key", job.Key,
			"action", job.Event.Action,
			"route", job.Event.Route,
			"error", err)
		return
	}
	d.logger.Info("activity event published",
		"worker", id,
		"topic", job.Topic,
		"key", job.Key,
		"action", job.Event.Action)
}
