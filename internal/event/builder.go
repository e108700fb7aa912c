package event

import (
	"math"
	"strings"
	"time"
)

// RequestInfo carries the ambient request context an event is built from.
// The caller (an HTTP handler or middleware) fills it in; the builder never
// reads globals.
type RequestInfo struct {
	Route          string
	Path           string
	FullURL        string
	Method         string
	IP             string
	UserAgent      string
	Referer        string
	ForwardedProto string
}

// Input describes one loggable action.
type Input struct {
	Action   string
	UserID   *int64
	Outcome  Outcome
	Metadata map[string]any
	// StartedAt, when non-zero, is the moment the originating action began;
	// the builder derives the execution time from it.
	StartedAt time.Time
}

// Builder assembles activity events. Construction is pure: every input is
// defensively defaulted and Build never fails.
type Builder struct {
	now func() time.Time
}

// NewBuilder returns a builder using the system clock.
func NewBuilder() *Builder {
	return &Builder{now: time.Now}
}

// NewBuilderWithClock returns a builder with an injected clock for tests.
func NewBuilderWithClock(now func() time.Time) *Builder {
	if now == nil {
		now = time.Now
	}
	return &Builder{now: now}
}

// Build produces a complete ActivityEvent from the request context and the
// caller-supplied input.
func (b *Builder) Build(req RequestInfo, in Input) ActivityEvent {
	now := b.now()

	route := req.Route
	if route == "" {
		route = req.Path
	}

	metadata := map[string]any{
		"referer": nilIfEmpty(req.Referer),
		"url":     NormalizeURL(req.FullURL, req.ForwardedProto),
		"method":  req.Method,
	}
	for k, v := range in.Metadata {
		metadata[k] = v
	}

	var execTime *float64
	if !in.StartedAt.IsZero() {
		ms := roundTo2(float64(now.Sub(in.StartedAt).Microseconds()) / 1000.0)
		execTime = &ms
	}

	return ActivityEvent{
		UserID:        in.UserID,
		Action:        in.Action,
		Route:         route,
		IPAddress:     req.IP,
		UserAgent:     req.UserAgent,
		StatusCode:    in.Outcome.Code(),
		ExecutionTime: execTime,
		Metadata:      metadata,
		LoggedAt:      now.Format(time.RFC3339),
	}
}

// NormalizeURL rewrites the URL scheme to https when a TLS-terminating
// proxy reported the original request as secure but the computed URL string
// still shows the insecure scheme.
func NormalizeURL(url, forwardedProto string) string {
	if forwardedProto == "https" && strings.HasPrefix(url, "http://") {
		return "https://" + strings.TrimPrefix(url, "http://")
	}
	return url
}

func roundTo2(v float64) float64 {
	return math.Round(v*100) / 100
}

func nilIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
