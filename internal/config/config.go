// Package config loads server settings from the environment, an optional
// .env file and an optional config.yaml.
//
// PRECEDENCE (highest first):
//  1. Real environment variables
//  2. .env (loaded into the environment, never overriding what is set)
//  3. config.yaml in ., ./config or the path given with --config
//  4. The defaults below
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	BlobGCS   = "gcs"
	BlobLocal = "local"
)

// minSecretLength matches auth.NewTokenService.
const minSecretLength = 16

type Config struct {
	Addr string

	// Database
	DBDriver    string
	DatabaseURL string
	DBMaxConns  int32 // postgres pool size; 0 lets pgx decide

	// Tokens
	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	// Blob storage
	BlobDriver    string
	BlobBucket    string // gcs
	BlobDir       string // local
	PublicBaseURL string
	MaxImageBytes int

	// GitHub login, enabled when client ID and secret are both set
	GitHubClientID     string
	GitHubClientSecret string
	GitHubCallbackURL  string

	// Kafka events, enabled when at least one broker is set
	KafkaBrokers      []string
	KafkaTopic        string
	KafkaWriteTimeout time.Duration

	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
}

// Options point Load at non-default files. Empty fields use the defaults.
type Options struct {
	EnvFile    string // default ".env"
	ConfigFile string // default: search for config.yaml
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ADDR", ":8080")
	v.SetDefault("DB_DRIVER", DriverSQLite)
	v.SetDefault("DB_MAX_CONNS", 0)
	v.SetDefault("ACCESS_TOKEN_TTL", "15m")
	v.SetDefault("REFRESH_TOKEN_TTL", "168h")
	v.SetDefault("BLOB_DRIVER", BlobGCS)
	v.SetDefault("PUBLIC_BASE_URL", "http://localhost:8080")
	v.SetDefault("MAX_IMAGE_BYTES", 5<<20)
	v.SetDefault("KAFKA_TOPIC", "blog-events")
	v.SetDefault("KAFKA_WRITE_TIMEOUT", "10s")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
	v.SetDefault("SHUTDOWN_TIMEOUT", "30s")
}

// Load reads the configuration. It does not validate it; call Validate for
// the settings `serve` needs.
func Load(opts Options) (*Config, error) {
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: loading %s: %w", envFile, err)
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", opts.ConfigFile, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("config: reading config.yaml: %w", err)
			}
		}
	}

	cfg := &Config{
		Addr:               v.GetString("ADDR"),
		DBDriver:           strings.ToLower(v.GetString("DB_DRIVER")),
		DatabaseURL:        v.GetString("DATABASE_URL"),
		DBMaxConns:         v.GetInt32("DB_MAX_CONNS"),
		JWTSecret:          v.GetString("JWT_SECRET"),
		BlobDriver:         strings.ToLower(v.GetString("BLOB_DRIVER")),
		BlobBucket:         v.GetString("BLOB_BUCKET"),
		BlobDir:            v.GetString("BLOB_DIR"),
		PublicBaseURL:      strings.TrimRight(v.GetString("PUBLIC_BASE_URL"), "/"),
		MaxImageBytes:      v.GetInt("MAX_IMAGE_BYTES"),
		GitHubClientID:     v.GetString("GITHUB_CLIENT_ID"),
		GitHubClientSecret: v.GetString("GITHUB_CLIENT_SECRET"),
		GitHubCallbackURL:  v.GetString("GITHUB_CALLBACK_URL"),
		KafkaBrokers:       splitList(v.GetString("KAFKA_BROKERS")),
		KafkaTopic:         v.GetString("KAFKA_TOPIC"),
		LogLevel:           strings.ToLower(v.GetString("LOG_LEVEL")),
		LogFormat:          strings.ToLower(v.GetString("LOG_FORMAT")),
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"ACCESS_TOKEN_TTL", &cfg.AccessTokenTTL},
		{"REFRESH_TOKEN_TTL", &cfg.RefreshTokenTTL},
		{"KAFKA_WRITE_TIMEOUT", &cfg.KafkaWriteTimeout},
		{"SHUTDOWN_TIMEOUT", &cfg.ShutdownTimeout},
	}
	for _, d := range durations {
		parsed, err := time.ParseDuration(v.GetString(d.key))
		if err != nil {
			return nil, fmt.Errorf("config: %s: %w", d.key, err)
		}
		*d.dst = parsed
	}

	if cfg.GitHubCallbackURL == "" {
		cfg.GitHubCallbackURL = cfg.PublicBaseURL + "/api/auth/github/callback"
	}

	return cfg, nil
}

// Validate reports every missing or invalid setting at once.
func (c *Config) Validate() error {
	errs := []error{c.ValidateDatabase()}
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if len(c.JWTSecret) < minSecretLength {
		add("JWT_SECRET must be at least %d characters", minSecretLength)
	}

	switch c.BlobDriver {
	case BlobGCS:
		if c.BlobBucket == "" {
			add("BLOB_BUCKET is required when BLOB_DRIVER=gcs")
		}
	case BlobLocal:
		if c.BlobDir == "" {
			add("BLOB_DIR is required when BLOB_DRIVER=local")
		}
	default:
		add("BLOB_DRIVER must be %q or %q, got %q", BlobGCS, BlobLocal, c.BlobDriver)
	}

	if c.MaxImageBytes <= 0 {
		add("MAX_IMAGE_BYTES must be positive")
	}
	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 {
		add("token TTLs must be positive")
	}
	if (c.GitHubClientID == "") != (c.GitHubClientSecret == "") {
		add("GITHUB_CLIENT_ID and GITHUB_CLIENT_SECRET must be set together")
	}

	return errors.Join(errs...)
}

// ValidateDatabase is Validate's subset for `blogd migrate`, which only
// touches the database.
func (c *Config) ValidateDatabase() error {
	var errs []error
	switch c.DBDriver {
	case DriverSQLite, DriverPostgres:
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER must be %q or %q, got %q", DriverSQLite, DriverPostgres, c.DBDriver))
	}
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	return errors.Join(errs...)
}

func (c *Config) GitHubEnabled() bool {
	return c.GitHubClientID != "" && c.GitHubClientSecret != ""
}

func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
