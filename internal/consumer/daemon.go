package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/jmelendez07/MathG/internal/store"
)

// Store persists one decoded activity record.
type Store interface {
	Append(ctx context.Context, rec store.Record) (store.Record, error)
}

// Notifier fans a newly persisted record out to live subscribers.
type Notifier interface {
	Notify(rec store.Record)
}

// MessageSource abstracts the broker reader so tests can feed messages
// without a broker.
type MessageSource interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Daemon is the long-running consumer: it polls the topic, persists each
// record and triggers the fan-out. One daemon runs one blocking loop;
// horizontal scaling happens through the consumer group.
type Daemon struct {
	source   MessageSource
	store    Store
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time

	// Once makes the daemon exit cleanly after a single message; it is the
	// diagnostic mode behind the -once flag.
	Once bool

	consumed int
	dropped  int
}

// New wires a daemon.
func New(source MessageSource, st Store, notifier Notifier, logger *slog.Logger) *Daemon {
	if logger == nil {
		logger = slog.Default()
	}
	return &Daemon{
		source:   source,
		store:    st,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// Consumed reports how many messages were handed to processing.
func (d *Daemon) Consumed() int { return d.consumed }

// Dropped reports how many undecodable payloads were skipped.
func (d *Daemon) Dropped() int { return d.dropped }

// Run polls until the context is canceled or a fatal broker error escapes.
// The source is closed on every exit path.
func (d *Daemon) Run(ctx context.Context) error {
	defer func() {
		if err := d.source.Close(); err != nil {
			d.logger.Error("failed to close consumer connection", "error", err)
		} else {
			d.logger.Info("consumer connection closed")
		}
	}()

	d.logger.Info("listening for user activity logs")

	for {
		m, err := d.source.FetchMessage(ctx)
		if err != nil {
			// Shutdown, not failure: the context ended or the reader was
			// closed underneath us.
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				return nil
			}
			// Connection loss and the like: the supervisor restarts us.
			return fmt.Errorf("consumer: fetching message: %w", err)
		}

		d.handleMessage(ctx, m)
		d.consumed++

		// The reader flushes commits on its periodic interval; marking the
		// message here advances the offset even when processing dropped it.
		if err := d.source.CommitMessages(ctx, m); err != nil {
			d.logger.Error("failed to commit message",
				"partition", m.Partition, "offset", m.Offset, "error", err)
		}

		if d.Once {
			d.logger.Info("single message consumed, exiting", "consumed", d.consumed)
			return nil
		}
	}
}

// handleMessage maps one payload into a persistence write. Every failure is
// contained: a message that cannot be processed is logged with its raw
// payload and skipped, keeping the partition moving.
func (d *Daemon) handleMessage(ctx context.Context, m kafka.Message) {
	var payload map[string]any
	if err := json.Unmarshal(m.Value, &payload); err != nil || len(payload) == 0 {
		d.dropped++
		d.logger.Warn("empty or invalid payload, dropping message",
			"partition", m.Partition, "offset", m.Offset, "payload", string(m.Value))
		return
	}

	now := d.now().Format(time.RFC3339)
	metadata := mapValue(payload["metadata"])
	loggedAt := stringValue(payload["logged_at"])
	if loggedAt == "" {
		loggedAt = now
	}
	metadata["logged_at"] = loggedAt
	metadata["consumed_at"] = now

	rec := store.Record{
		UserID:        int64Value(payload["user_id"]),
		Action:        stringOr(payload["action"], "N/A"),
		Route:         optString(payload["route"]),
		IPAddress:     optString(payload["ip_address"]),
		UserAgent:     optString(payload["user_agent"]),
		StatusCode:    intValue(payload["status_code"]),
		ExecutionTime: floatValue(payload["execution_time"]),
		Metadata:      metadata,
	}

	saved, err := d.store.Append(ctx, rec)
	if err != nil {
		d.logger.Error("failed to persist activity record",
			"error", err, "payload", string(m.Value))
		return
	}

	if d.notifier != nil {
		d.notifier.Notify(saved)
	}

	d.logger.Info("activity record saved",
		"log_id", saved.ID, "action", saved.Action, "user_id", logUserID(saved.UserID))
}

func logUserID(id *int64) any {
	if id == nil {
		return nil
	}
	return *id
}

// The wire payload is decoded defensively: json numbers arrive as float64,
// but ids may also show up as strings depending on the producer.

func mapValue(v any) map[string]any {
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

func stringValue(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func stringOr(v any, fallback string) string {
	if s := stringValue(v); s != "" {
		return s
	}
	return fallback
}

func optString(v any) *string {
	if s := stringValue(v); s != "" {
		return &s
	}
	return nil
}

func int64Value(v any) *int64 {
	switch n := v.(type) {
	case float64:
		i := int64(n)
		return &i
	case string:
		var i int64
		if _, err := fmt.Sscanf(n, "%d", &i); err == nil {
			return &i
		}
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return &i
		}
	}
	return nil
}

func intValue(v any) *int {
	if i := int64Value(v); i != nil {
		n := int(*i)
		return &n
	}
	return nil
}

func floatValue(v any) *float64 {
	switch n := v.(type) {
	case float64:
		f := n
		return &f
	case json.Number:
		if f, err := n.Float64(); err == nil {
			return &f
		}
	}
	return nil
}
