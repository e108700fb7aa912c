// Package config loads every externally supplied setting from the
// environment, once, into explicit structs handed to constructors.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/jmelendez07/MathG/internal/broker"
)

// Producer configures the producer-side service.
type Producer struct {
	Port       string
	Topic      string
	Workers    int
	QueueSize  int
	Broker     broker.Config
	AuthSecret string
}

// Consumer configures the consumer daemon and its dashboard surface.
type Consumer struct {
	Port        string
	Broker      broker.Config
	DatabaseURL string
	AuthSecret  string
}

// LoadProducer reads the producer environment.
func LoadProducer() Producer {
	topic := getEnv("KAFKA_LOG_TOPIC", "user-logs")
	return Producer{
		Port:       getEnv("SERVER_PORT", "8080"),
		Topic:      topic,
		Workers:    getEnvAsInt("DISPATCH_WORKERS", 2),
		QueueSize:  getEnvAsInt("DISPATCH_QUEUE_SIZE", 256),
		Broker:     loadBroker(topic),
		AuthSecret: getEnv("AUTH_SECRET", ""),
	}
}

// LoadConsumer reads the consumer environment.
func LoadConsumer() Consumer {
	return Consumer{
		Port:        getEnv("SERVER_PORT", "8081"),
		Broker:      loadBroker(getEnv("KAFKA_LOG_TOPIC", "user-logs")),
		DatabaseURL: databaseURL(),
		AuthSecret:  getEnv("AUTH_SECRET", ""),
	}
}

func loadBroker(topic string) broker.Config {
	cfg := broker.Defaults()
	cfg.Brokers = strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ",")
	cfg.SecurityProtocol = getEnv("KAFKA_SECURITY_PROTOCOL", cfg.SecurityProtocol)
	cfg.SASLMechanism = getEnv("KAFKA_SASL_MECHANISM", "PLAIN")
	cfg.SASLUsername = getEnv("KAFKA_SASL_USERNAME", "")
	cfg.SASLPassword = getEnv("KAFKA_SASL_PASSWORD", "")
	cfg.TLSVerify = getEnvAsBool("KAFKA_TLS_VERIFY", true)
	cfg.MaxRetries = getEnvAsInt("KAFKA_SEND_MAX_RETRIES", cfg.MaxRetries)
	cfg.Topic = topic
	cfg.GroupID = getEnv("KAFKA_CONSUMER_GROUP_ID", "mathg-log-consumer")
	return cfg
}

func databaseURL() string {
	host := getEnv("DB_HOST", "localhost")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "postgres")
	password := getEnv("DB_PASSWORD", "postgres")
	name := getEnv("DB_NAME", "mathg")
	sslmode := getEnv("DB_SSLMODE", "disable")
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		host, port, user, password, name, sslmode)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
