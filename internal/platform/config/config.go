package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config is centralized process configuration.
// Keep infra values here and pass typed config into builders.
type Config struct {
	ServiceName       string
	HTTPPort          string
	DatabaseDriver    string
	DatabaseDSN       string
	KafkaBrokers      []string
	OperatorAddresses []string

	EnableOutboxRelay   bool
	EnableAuditConsumer bool
}

func Load() (Config, error) {
	// Optional .env for local runs; real environments set variables directly.
	_ = godotenv.Load()

	service := os.Getenv("SERVICE_NAME")
	if service == "" {
		service = "quorum"
	}

	port := os.Getenv("HTTP_PORT")
	if port == "" {
		port = "8080"
	}

	driver := strings.ToLower(strings.TrimSpace(os.Getenv("DATABASE_DRIVER")))
	if driver == "" {
		driver = "postgres"
	}

	var brokers []string
	for _, value := range strings.Split(os.Getenv("KAFKA_BROKERS"), ",") {
		value = strings.TrimSpace(value)
		if value != "" {
			brokers = append(brokers, value)
		}
	}
	if len(brokers) == 0 {
		brokers = []string{"localhost:9092"}
	}

	var operators []string
	for _, value := range strings.Split(os.Getenv("OPERATOR_ADDRESSES"), ",") {
		value = strings.TrimSpace(value)
		if value != "" {
			operators = append(operators, value)
		}
	}

	return Config{
		ServiceName:       service,
		HTTPPort:          port,
		DatabaseDriver:    driver,
		DatabaseDSN:       os.Getenv("DATABASE_DSN"),
		KafkaBrokers:      brokers,
		OperatorAddresses: operators,

		EnableOutboxRelay:   envBool("ENABLE_OUTBOX_RELAY", true),
		EnableAuditConsumer: envBool("ENABLE_AUDIT_CONSUMER", true),
	}, nil
}

func envBool(name string, fallback bool) bool {
	raw := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		return fallback
	}
}
