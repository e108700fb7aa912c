package broker

import (
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl/plain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	cfg := Defaults()
	cfg.Brokers = []string{"localhost:9092"}
	cfg.Topic = "user-logs"
	cfg.GroupID = "mathg-log-consumer"
	return cfg
}

func TestNewPublisher_WriterConfiguration(t *testing.T) {
	pub, err := NewPublisher(testConfig())
	require.NoError(t, err)
	defer pub.Close()

	assert.NotNil(t, pub.writer)
	assert.IsType(t, &kafka.Hash{}, pub.writer.Balancer)
	assert.True(t, pub.writer.AllowAutoTopicCreation)
	assert.Equal(t, kafka.RequireAll, pub.writer.RequiredAcks)
	assert.Equal(t, 120*time.Second, pub.writer.WriteTimeout)
	assert.Equal(t, 60*time.Second, pub.writer.ReadTimeout)
	assert.Equal(t, 3, pub.writer.MaxAttempts)
	assert.Equal(t, time.Second, pub.writer.WriteBackoffMin)
}

func TestNewPublisher_PlaintextHasNoSASLOrTLS(t *testing.T) {
	pub, err := NewPublisher(testConfig())
	require.NoError(t, err)
	defer pub.Close()

	transport, ok := pub.writer.Transport.(*kafka.Transport)
	require.True(t, ok)
	assert.Nil(t, transport.SASL)
	assert.Nil(t, transport.TLS)
}

func TestNewPublisher_SASLSSL(t *testing.T) {
	cfg := testConfig()
	cfg.SecurityProtocol = "SASL_SSL"
	cfg.SASLMechanism = "PLAIN"
	cfg.SASLUsername = "mathg"
	cfg.SASLPassword = "s3cret"
	cfg.TLSVerify = false

	pub, err := NewPublisher(cfg)
	require.NoError(t, err)
	defer pub.Close()

	transport, ok := pub.writer.Transport.(*kafka.Transport)
	require.True(t, ok)

	mech, ok := transport.SASL.(plain.Mechanism)
	require.True(t, ok)
	assert.Equal(t, "mathg", mech.Username)
	assert.Equal(t, "s3cret", mech.Password)

	require.NotNil(t, transport.TLS)
	assert.True(t, transport.TLS.InsecureSkipVerify)
}

func TestNewPublisher_UnsupportedMechanism(t *testing.T) {
	cfg := testConfig()
	cfg.SecurityProtocol = "SASL_PLAINTEXT"
	cfg.SASLMechanism = "SCRAM-SHA-512"

	_, err := NewPublisher(cfg)
	assert.Error(t, err)
}

func TestNewReader_Configuration(t *testing.T) {
	reader, err := NewReader(testConfig())
	require.NoError(t, err)
	defer reader.Close()

	rc := reader.Config()
	assert.Equal(t, []string{"localhost:9092"}, rc.Brokers)
	assert.Equal(t, "user-logs", rc.Topic)
	assert.Equal(t, "mathg-log-consumer", rc.GroupID)
	assert.Equal(t, 120*time.Second, rc.MaxWait)
	assert.Equal(t, time.Second, rc.CommitInterval)
	assert.Equal(t, int64(kafka.FirstOffset), rc.StartOffset)
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	assert.Equal(t, "PLAINTEXT", cfg.SecurityProtocol)
	assert.True(t, cfg.TLSVerify)
	assert.Equal(t, 60*time.Second, cfg.SocketTimeout)
	assert.Equal(t, 60*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 120*time.Second, cfg.MessageTimeout)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, time.Second, cfg.RetryBackoff)
	assert.Equal(t, 120*time.Second, cfg.PollTimeout)
}
