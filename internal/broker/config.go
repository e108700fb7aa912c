package broker

import (
	"crypto/tls"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl"
	"github.com/segmentio/kafka-go/sasl/plain"
)

// Config collects every externally supplied broker knob. It is passed by
// value into constructors; transport code performs no ambient lookups.
type Config struct {
	Brokers          []string
	SecurityProtocol string // PLAINTEXT, SASL_PLAINTEXT, SSL or SASL_SSL
	SASLMechanism    string // PLAIN is the only supported mechanism
	SASLUsername     string
	SASLPassword     string
	// TLSVerify toggles certificate verification when TLS is in play.
	TLSVerify bool

	SocketTimeout  time.Duration
	RequestTimeout time.Duration
	// MessageTimeout is the longest-lived bound: it covers the broker
	// client's internal retries for one message.
	MessageTimeout time.Duration
	MaxRetries     int
	RetryBackoff   time.Duration

	Topic string

	// Consumer-side settings.
	GroupID        string
	CommitInterval time.Duration
	PollTimeout    time.Duration
}

// Defaults mirrors the reference deployment's timeouts.
func Defaults() Config {
	return Config{
		SecurityProtocol: "PLAINTEXT",
		TLSVerify:        true,
		SocketTimeout:    60 * time.Second,
		RequestTimeout:   60 * time.Second,
		MessageTimeout:   120 * time.Second,
		MaxRetries:       3,
		RetryBackoff:     time.Second,
		CommitInterval:   time.Second,
		PollTimeout:      120 * time.Second,
	}
}

func (c Config) useSASL() bool {
	return strings.HasPrefix(strings.ToUpper(c.SecurityProtocol), "SASL")
}

func (c Config) useTLS() bool {
	return strings.Contains(strings.ToUpper(c.SecurityProtocol), "SSL")
}

func (c Config) mechanism() (sasl.Mechanism, error) {
	if !c.useSASL() {
		return nil, nil
	}
	switch strings.ToUpper(c.SASLMechanism) {
	case "", "PLAIN":
		return plain.Mechanism{Username: c.SASLUsername, Password: c.SASLPassword}, nil
	default:
		return nil, fmt.Errorf("broker: unsupported SASL mechanism %q", c.SASLMechanism)
	}
}

func (c Config) tlsConfig() *tls.Config {
	if !c.useTLS() {
		return nil
	}
	return &tls.Config{InsecureSkipVerify: !c.TLSVerify}
}

func (c Config) transport() (*kafka.Transport, error) {
	mech, err := c.mechanism()
	if err != nil {
		return nil, err
	}
	return &kafka.Transport{
		SASL:        mech,
		TLS:         c.tlsConfig(),
		DialTimeout: c.SocketTimeout,
	}, nil
}

func (c Config) dialer() (*kafka.Dialer, error) {
	mech, err := c.mechanism()
	if err != nil {
		return nil, err
	}
	return &kafka.Dialer{
		Timeout:       c.SocketTimeout,
		DualStack:     true,
		SASLMechanism: mech,
		TLS:           c.tlsConfig(),
	}, nil
}

// NewReader builds the consumer-group reader. A fresh group replays history
// from the earliest offset: audit completeness wins over recency.
func NewReader(cfg Config) (*kafka.Reader, error) {
	dialer, err := cfg.dialer()
	if err != nil {
		return nil, err
	}
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:         cfg.Brokers,
		Topic:           cfg.Topic,
		GroupID:         cfg.GroupID,
		Dialer:          dialer,
		MinBytes:        1,
		MaxBytes:        10e6, // 10MB
		MaxWait:         cfg.PollTimeout,
		CommitInterval:  cfg.CommitInterval,
		StartOffset:     kafka.FirstOffset,
		ReadLagInterval: -1,
	}), nil
}
