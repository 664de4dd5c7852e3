package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL    string
	Port           string
	AllowedOrigins []string
	JWTSecret      string
	ServiceToken   string

	Storage StorageConfig

	IssueRelayURL   string
	IssueRelayToken string

	ResetSweepInterval time.Duration
}

type StorageConfig struct {
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	PublicURL       string
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function so it can be tested without touching os env.
func FromEnv(getenv func(string) string) (*Config, error) {
	cfg := &Config{
		DatabaseURL:     getenv("DATABASE_URL"),
		Port:            withDefault(getenv("PORT"), "5200"),
		JWTSecret:       getenv("JWT_SECRET"),
		ServiceToken:    getenv("SERVICE_TOKEN"),
		IssueRelayURL:   getenv("ISSUE_RELAY_URL"),
		IssueRelayToken: getenv("ISSUE_RELAY_TOKEN"),
		Storage: StorageConfig{
			Endpoint:        getenv("STORAGE_ENDPOINT"),
			Region:          withDefault(getenv("STORAGE_REGION"), "auto"),
			AccessKeyID:     getenv("STORAGE_ACCESS_KEY_ID"),
			SecretAccessKey: getenv("STORAGE_SECRET_ACCESS_KEY"),
			Bucket:          withDefault(getenv("STORAGE_BUCKET"), "tree-photos"),
			PublicURL:       getenv("STORAGE_PUBLIC_URL"),
		},
		ResetSweepInterval: 15 * time.Minute,
	}

	origins := getenv("ALLOWED_ORIGINS")
	if origins == "" {
		log.Println("⚠️  ALLOWED_ORIGINS not set, using default: http://localhost:3000")
		origins = "http://localhost:3000"
	}
	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
		}
	}

	if raw := getenv("RESET_SWEEP_INTERVAL"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("invalid RESET_SWEEP_INTERVAL %q", raw)
		}
		cfg.ResetSweepInterval = d
	}

	required := []struct{ name, value string }{
		{"DATABASE_URL", cfg.DatabaseURL},
		{"JWT_SECRET", cfg.JWTSecret},
		{"SERVICE_TOKEN", cfg.ServiceToken},
		{"STORAGE_ENDPOINT", cfg.Storage.Endpoint},
		{"STORAGE_ACCESS_KEY_ID", cfg.Storage.AccessKeyID},
		{"STORAGE_SECRET_ACCESS_KEY", cfg.Storage.SecretAccessKey},
	}
	var missing []string
	for _, r := range required {
		if r.value == "" {
			missing = append(missing, r.name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	return cfg, nil
}

// DatabaseOnly is used by the migrate and seed commands, which need nothing else.
func DatabaseOnly() (string, error) {
	_ = godotenv.Load()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		return "", fmt.Errorf("DATABASE_URL environment variable not set")
	}
	return dsn, nil
}

func withDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
