package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port               string
	DatabaseURL        string
	QueueTimezone      string
	NumberCeiling      int
	AnnounceURL        string
	OTLPEndpoint       string
	OTLPInsecure       bool
	RateLimitPerMinute int
	RateLimitBurst     int
	KafkaBrokers       []string
	KafkaTopic         string
	KafkaClientID      string
	RelayPollInterval  time.Duration
	RelayBatchSize     int
	MetricsAddr        string
}

func Load() Config {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	return Config{
		Port:               port,
		DatabaseURL:        os.Getenv("DB_DSN"),
		QueueTimezone:      readString("QUEUE_TIMEZONE", "Asia/Manila"),
		NumberCeiling:      readInt("NUMBER_CEILING", 99),
		AnnounceURL:        os.Getenv("ANNOUNCE_URL"),
		OTLPEndpoint:       os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		OTLPInsecure:       readBool("OTEL_EXPORTER_OTLP_INSECURE", false),
		RateLimitPerMinute: readInt("RATE_LIMIT_PER_MIN", 120),
		RateLimitBurst:     readInt("RATE_LIMIT_BURST", 30),
		KafkaBrokers:       readList("KAFKA_BROKERS", "localhost:9092"),
		KafkaTopic:         readString("KAFKA_TOPIC", "queue-events"),
		KafkaClientID:      readString("KAFKA_CLIENT_ID", "display-relay"),
		RelayPollInterval:  readDurationSeconds("RELAY_POLL_INTERVAL_SECONDS", 2),
		RelayBatchSize:     readInt("RELAY_BATCH_SIZE", 100),
		MetricsAddr:        readString("METRICS_ADDR", ":9091"),
	}
}

func readString(key, fallback string) string {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	return raw
}

func readList(key, fallback string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		raw = fallback
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func readDurationSeconds(key string, fallback int) time.Duration {
	value := readInt(key, fallback)
	if value <= 0 {
		return 0
	}
	return time.Duration(value) * time.Second
}

func readInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func readBool(key string, fallback bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return value
}
