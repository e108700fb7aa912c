package event

import (
	"bytes"
	"encoding/json"
)

// ActivityEvent is the wire record published for every logged user action.
// Every field except Action is optional on the wire; consumers must not
// assume any of them are present.
type ActivityEvent struct {
	UserID        *int64         `json:"user_id"`
	Action        string         `json:"action"`
	Route         string         `json:"route,omitempty"`
	IPAddress     string         `json:"ip_address,omitempty"`
	UserAgent     string         `json:"user_agent,omitempty"`
	StatusCode    int            `json:"status_code"`
	ExecutionTime *float64       `json:"execution_time"`
	Metadata      map[string]any `json:"metadata"`
	LoggedAt      string         `json:"logged_at,omitempty"`
}

// MarshalWire encodes the event for the broker. Action text and metadata
// frequently carry internationalized content and URLs, so the encoder must
// not escape multibyte text or path separators.
func (e ActivityEvent) MarshalWire() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(e); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Outcome classifies the result of the originating action. Callers
// construct it explicitly instead of having the builder introspect an
// arbitrary response object.
type Outcome struct {
	code  int
	known bool
}

// KnownOutcome records an explicit status code.
func KnownOutcome(code int) Outcome {
	return Outcome{code: code, known: true}
}

// UnknownOutcome defaults to a success classification.
func UnknownOutcome() Outcome {
	return Outcome{}
}

// Code returns the status code, defaulting to 200 when unknown.
func (o Outcome) Code() int {
	if !o.known {
		return 200
	}
	return o.code
}
