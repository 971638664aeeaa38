// Package config reads process configuration from the environment. A .env
// file in the working directory is loaded first when present; real
// environment variables always win.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the full process configuration.
type Config struct {
	Server    Server
	Database  DatabaseConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	Auth      AuthConfig
	Blob      BlobConfig
	RateLimit RateLimitConfig
	LogLevel  string
	// Timezone names the zone dashboard day buckets are cut in.
	Timezone string
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	OpsToken        string
	CORSOrigins     []string
}

// DatabaseConfig configures the Postgres pool. An empty URL selects the in-memory stores.
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	TxTimeout       time.Duration
	MigrateOnStart  bool
}

// RedisConfig configures the dashboard cache. An empty URL disables Redis.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	StatsTTL     time.Duration
}

// KafkaConfig configures the timeline outbox publisher. No brokers disables it.
type KafkaConfig struct {
	Brokers        []string
	TimelineTopic  string
	PollInterval   time.Duration
	BatchSize      int
	Partitions     int32
	ReplicationFac int16
}

// AuthConfig configures bearer token issuing.
type AuthConfig struct {
	JWTSigningKey string
	Issuer        string
	TokenTTL      time.Duration
}

// BlobConfig selects where uploaded documents go. SupabaseURL wins over LocalDir.
type BlobConfig struct {
	SupabaseURL    string
	SupabaseKey    string
	LocalDir       string
	PublicBaseURL  string
	DocumentBucket string
	ReceiptBucket  string
	MaxUploadBytes int64
}

// RateLimitConfig protects the login endpoint.
type RateLimitConfig struct {
	LoginPerIP       int
	LoginWindow      time.Duration
	LockoutThreshold int
	LockoutWindow    time.Duration
	LockoutDuration  time.Duration
}

// Load reads .env (if any) and then the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds the configuration from environment variables so main stays lean.
func FromEnv() (Config, error) {
	cfg := Config{
		Server: Server{
			Addr:            getString("IDBCRM_ADDR", ":8080"),
			RequestTimeout:  getDuration("REQUEST_TIMEOUT", 30*time.Second),
			ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
			OpsToken:        os.Getenv("OPS_TOKEN"),
			CORSOrigins:     getList("CORS_ORIGINS"),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    getInt("DB_MAX_OPEN_CONNS", 20),
			MaxIdleConns:    getInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			TxTimeout:       getDuration("DB_TX_TIMEOUT", 5*time.Second),
			MigrateOnStart:  getBool("MIGRATE_ON_START", true),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     getInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
			StatsTTL:     getDuration("DASHBOARD_CACHE_TTL", 60*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:        getList("KAFKA_BROKERS"),
			TimelineTopic:  getString("KAFKA_TIMELINE_TOPIC", "crm.timeline"),
			PollInterval:   getDuration("OUTBOX_POLL_INTERVAL", time.Second),
			BatchSize:      getInt("OUTBOX_BATCH_SIZE", 100),
			Partitions:     int32(getInt("KAFKA_TOPIC_PARTITIONS", 3)),
			ReplicationFac: int16(getInt("KAFKA_TOPIC_REPLICATION", 1)),
		},
		Auth: AuthConfig{
			JWTSigningKey: getString("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
			Issuer:        getString("JWT_ISSUER", "idbcrm"),
			TokenTTL:      getDuration("JWT_TTL", 12*time.Hour),
		},
		Blob: BlobConfig{
			SupabaseURL:    os.Getenv("SUPABASE_URL"),
			SupabaseKey:    os.Getenv("SUPABASE_SERVICE_KEY"),
			LocalDir:       getString("UPLOAD_DIR", "./uploads"),
			PublicBaseURL:  getString("UPLOAD_PUBLIC_URL", "/uploads"),
			DocumentBucket: getString("DOCUMENT_BUCKET", "idb-student-documents"),
			ReceiptBucket:  getString("RECEIPT_BUCKET", "idb-payment-receipts"),
			MaxUploadBytes: int64(getInt("MAX_UPLOAD_BYTES", 10<<20)),
		},
		RateLimit: RateLimitConfig{
			LoginPerIP:       getInt("LOGIN_RATE_LIMIT", 10),
			LoginWindow:      getDuration("LOGIN_RATE_WINDOW", time.Minute),
			LockoutThreshold: getInt("LOGIN_LOCKOUT_THRESHOLD", 5),
			LockoutWindow:    getDuration("LOGIN_LOCKOUT_WINDOW", 15*time.Minute),
			LockoutDuration:  getDuration("LOGIN_LOCKOUT_DURATION", 15*time.Minute),
		},
		LogLevel: getString("LOG_LEVEL", "info"),
		Timezone: getString("DASHBOARD_TIMEZONE", "UTC"),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the server cannot run with.
func (c Config) Validate() error {
	if len(c.Auth.JWTSigningKey) < 16 {
		return fmt.Errorf("JWT_SIGNING_KEY must be at least 16 bytes")
	}
	if c.Database.TxTimeout <= 0 {
		return fmt.Errorf("DB_TX_TIMEOUT must be positive")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("DASHBOARD_TIMEZONE: %w", err)
	}
	if c.Blob.SupabaseURL != "" && c.Blob.SupabaseKey == "" {
		return fmt.Errorf("SUPABASE_SERVICE_KEY is required when SUPABASE_URL is set")
	}
	return nil
}

func getString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	if v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key))); err == nil {
		return v
	}
	return def
}

func getBool(key string, def bool) bool {
	if v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key))); err == nil {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if v, err := time.ParseDuration(strings.TrimSpace(os.Getenv(key))); err == nil {
		return v
	}
	return def
}

func getList(key string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
