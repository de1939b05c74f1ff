package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store drivers.
const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

// Server captures process level configuration.
type Server struct {
	Addr       string
	LogLevel   string
	LogFormat  string
	AdminToken string

	Store     StoreConfig
	Redis     RedisConfig
	Directory DirectoryConfig
	Sync      SyncConfig
	Kafka     KafkaConfig

	// BillingGroupsAPIURL points at a remote storage collaborator. Empty
	// means the local store serves the editor.
	BillingGroupsAPIURL string
	CollaboratorTimeout time.Duration
	MailingConcurrency  int
}

type StoreConfig struct {
	Driver      string
	SQLitePath  string
	DatabaseURL string
}

// RedisConfig configures the directory cache. An empty URL disables it.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DirectoryConfig struct {
	// PolicyAPIURL points at a remote policy and contact directory. Empty
	// means the in-memory directory, seeded from SeedFile or the demo data.
	PolicyAPIURL string
	SeedFile     string
	CacheTTL     time.Duration
}

type SyncConfig struct {
	Debounce time.Duration
	Timeout  time.Duration
	// IdleTTL closes clean working copies unused for that long.
	IdleTTL time.Duration
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// Enabled reports whether replace events go to Kafka.
func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

// FromEnv builds a Server config from environment variables, loading a .env
// file first when one is present.
func FromEnv() (Server, error) {
	_ = godotenv.Load()

	cfg := Server{
		Addr:       getEnv("POLICYDESK_ADDR", ":8080"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),
		LogFormat:  getEnv("LOG_FORMAT", "text"),
		AdminToken: os.Getenv("ADMIN_TOKEN"),
		Store: StoreConfig{
			Driver:      strings.ToLower(getEnv("STORE_DRIVER", StoreMemory)),
			SQLitePath:  getEnv("SQLITE_PATH", "data/policydesk.db"),
			DatabaseURL: os.Getenv("DATABASE_URL"),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Directory: DirectoryConfig{
			PolicyAPIURL: os.Getenv("POLICY_API_URL"),
			SeedFile:     os.Getenv("DIRECTORY_SEED_FILE"),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(os.Getenv("KAFKA_BROKERS")),
			Topic:   getEnv("KAFKA_TOPIC", "policydesk.billing-groups"),
		},
		BillingGroupsAPIURL: os.Getenv("BILLING_GROUPS_API_URL"),
	}

	var err error
	if cfg.Directory.CacheTTL, err = getDuration("DIRECTORY_CACHE_TTL", 5*time.Minute); err != nil {
		return Server{}, err
	}
	if cfg.Sync.Debounce, err = getDuration("SYNC_DEBOUNCE", 400*time.Millisecond); err != nil {
		return Server{}, err
	}
	if cfg.Sync.Timeout, err = getDuration("SYNC_TIMEOUT", 10*time.Second); err != nil {
		return Server{}, err
	}
	if cfg.Sync.IdleTTL, err = getDuration("SYNC_IDLE_TTL", 30*time.Minute); err != nil {
		return Server{}, err
	}
	if cfg.CollaboratorTimeout, err = getDuration("COLLABORATOR_TIMEOUT", 5*time.Second); err != nil {
		return Server{}, err
	}
	if cfg.MailingConcurrency, err = getInt("MAILING_CONCURRENCY", 8); err != nil {
		return Server{}, err
	}

	switch cfg.Store.Driver {
	case StoreMemory, StoreSQLite:
	case StorePostgres:
		if cfg.Store.DatabaseURL == "" {
			return Server{}, fmt.Errorf("STORE_DRIVER=postgres requires DATABASE_URL")
		}
	default:
		return Server{}, fmt.Errorf("unknown STORE_DRIVER %q", cfg.Store.Driver)
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive", key)
	}
	return d, nil
}

func getInt(key string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	if n < 1 {
		return 0, fmt.Errorf("%s must be at least 1", key)
	}
	return n, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
