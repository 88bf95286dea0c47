package config

import (
	"os"
	"strings"
	"time"
)

// Server captures everything main needs to wire the process. Optional backends
// (Postgres, Redis, Kafka) fall back to in-memory implementations when their
// URL is empty, which keeps dev servers and tests dependency-free.
type Server struct {
	Addr     string
	LogLevel string

	DatabaseURL string
	RedisURL    string

	KafkaBrokers []string
	KafkaTopic   string

	// AdminUser and AdminPassHash guard the admin surface with HTTP basic
	// auth. AdminPassHash is a bcrypt hash; the admin surface stays disabled
	// while either value is empty.
	AdminUser     string
	AdminPassHash string

	// MediaURLPrefix is the exact trusted media-store prefix a submitted
	// media URL must start with.
	MediaURLPrefix string

	ShutdownTimeout time.Duration
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("RANGERWATCH_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	topic := os.Getenv("KAFKA_AUDIT_TOPIC")
	if topic == "" {
		topic = "rangerwatch.audit"
	}

	var brokers []string
	if raw := os.Getenv("KAFKA_BROKERS"); raw != "" {
		for _, b := range strings.Split(raw, ",") {
			if b = strings.TrimSpace(b); b != "" {
				brokers = append(brokers, b)
			}
		}
	}

	return Server{
		Addr:            addr,
		LogLevel:        os.Getenv("LOG_LEVEL"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		RedisURL:        os.Getenv("REDIS_URL"),
		KafkaBrokers:    brokers,
		KafkaTopic:      topic,
		AdminUser:       os.Getenv("ADMIN_USER"),
		AdminPassHash:   os.Getenv("ADMIN_PASS_HASH"),
		MediaURLPrefix:  os.Getenv("MEDIA_URL_PREFIX"),
		ShutdownTimeout: 10 * time.Second,
	}
}

// AdminEnabled reports whether the admin surface has credentials configured.
func (s Server) AdminEnabled() bool {
	return s.AdminUser != "" && s.AdminPassHash != ""
}
