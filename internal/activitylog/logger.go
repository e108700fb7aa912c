// Package activitylog exposes the single entry point collaborators use to
// participate in activity logging. It composes the event builder and the
// async dispatcher; callers inject it instead of inheriting logging
// behavior.
package activitylog

import (
	"log/slog"

	"github.com/jmelendez07/MathG/internal/dispatch"
	"github.com/jmelendez07/MathG/internal/event"
)

// Dispatcher is the asynchronous handoff seam. Tests inject a fake that
// captures calls instead of a real broker queue.
type Dispatcher interface {
	Enqueue(topic, key string, ev event.ActivityEvent)
}

// Logger builds and dispatches activity events. Logging is a best-effort
// side channel: Log never fails and never blocks on broker I/O.
type Logger struct {
	topic      string
	builder    *event.Builder
	dispatcher Dispatcher
	logger     *slog.Logger
}

// New wires the service. The topic is the broker destination every event
// is published to.
func New(topic string, d Dispatcher, logger *slog.Logger) *Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Logger{
		topic:      topic,
		builder:    event.NewBuilder(),
		dispatcher: d,
		logger:     logger,
	}
}

// Log captures one user action. Extra metadata is redacted before it can
// reach the wire; the actor id selects the partition key.
func (l *Logger) Log(req event.RequestInfo, in event.Input) {
	if l.dispatcher == nil {
		l.logger.Warn("no dispatcher configured, dropping activity event", "action", in.Action)
		return
	}
	in.Metadata = event.SanitizeData(in.Metadata)
	ev := l.builder.Build(req, in)
	l.dispatcher.Enqueue(l.topic, dispatch.PartitionKey(in.UserID), ev)
}
