package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// noFiles points Load at files that do not exist, so only the environment
// and defaults apply.
func noFiles(t *testing.T) Options {
	return Options{EnvFile: filepath.Join(t.TempDir(), "missing.env")}
}

func validEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "data/blog.db")
	t.Setenv("JWT_SECRET", "0123456789abcdef0123")
	t.Setenv("BLOB_DRIVER", "local")
	t.Setenv("BLOB_DIR", t.TempDir())
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(noFiles(t))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, DriverSQLite, cfg.DBDriver)
	assert.Equal(t, 15*time.Minute, cfg.AccessTokenTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.RefreshTokenTTL)
	assert.Equal(t, BlobGCS, cfg.BlobDriver)
	assert.Equal(t, 5<<20, cfg.MaxImageBytes)
	assert.Equal(t, "blog-events", cfg.KafkaTopic)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "http://localhost:8080/api/auth/github/callback", cfg.GitHubCallbackURL)
	assert.False(t, cfg.GitHubEnabled())
	assert.False(t, cfg.KafkaEnabled())
}

func TestLoad_Environment(t *testing.T) {
	validEnv(t)
	t.Setenv("ADDR", ":9090")
	t.Setenv("DB_DRIVER", "POSTGRES")
	t.Setenv("ACCESS_TOKEN_TTL", "5m")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,,")
	t.Setenv("PUBLIC_BASE_URL", "https://blog.example.com/")
	t.Setenv("DB_MAX_CONNS", "12")

	cfg, err := Load(noFiles(t))
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, DriverPostgres, cfg.DBDriver)
	assert.Equal(t, 5*time.Minute, cfg.AccessTokenTTL)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.True(t, cfg.KafkaEnabled())
	assert.Equal(t, "https://blog.example.com", cfg.PublicBaseURL)
	assert.Equal(t, int32(12), cfg.DBMaxConns)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_BadDuration(t *testing.T) {
	t.Setenv("REFRESH_TOKEN_TTL", "a week")
	_, err := Load(noFiles(t))
	assert.ErrorContains(t, err, "REFRESH_TOKEN_TTL")
}

func TestLoad_EnvFile(t *testing.T) {
	const key = "BLOB_BUCKET"
	t.Setenv(key, "") // restored by t.Setenv's cleanup
	os.Unsetenv(key)
	t.Cleanup(func() { os.Unsetenv(key) })

	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("BLOB_BUCKET=from-dotenv\n"), 0o600))

	cfg, err := Load(Options{EnvFile: envFile})
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.BlobBucket)
}

func TestLoad_EnvBeatsDotEnv(t *testing.T) {
	t.Setenv("KAFKA_TOPIC", "from-env")

	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("KAFKA_TOPIC=from-dotenv\n"), 0o600))

	cfg, err := Load(Options{EnvFile: envFile})
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.KafkaTopic)
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_image_bytes: 1024\nlog_format: JSON\n"), 0o600))

	opts := noFiles(t)
	opts.ConfigFile = path
	cfg, err := Load(opts)
	require.NoError(t, err)
	assert.Equal(t, 1024, cfg.MaxImageBytes)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoad_MissingExplicitConfigFile(t *testing.T) {
	opts := noFiles(t)
	opts.ConfigFile = filepath.Join(t.TempDir(), "nope.yaml")
	_, err := Load(opts)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"missing database url", func(c *Config) { c.DatabaseURL = "" }, "DATABASE_URL"},
		{"unknown driver", func(c *Config) { c.DBDriver = "mysql" }, "DB_DRIVER"},
		{"short secret", func(c *Config) { c.JWTSecret = "short" }, "JWT_SECRET"},
		{"gcs needs bucket", func(c *Config) { c.BlobDriver = BlobGCS; c.BlobBucket = "" }, "BLOB_BUCKET"},
		{"local needs dir", func(c *Config) { c.BlobDir = "" }, "BLOB_DIR"},
		{"unknown blob driver", func(c *Config) { c.BlobDriver = "s3" }, "BLOB_DRIVER"},
		{"github half configured", func(c *Config) { c.GitHubClientID = "id" }, "GITHUB_CLIENT_SECRET"},
		{"zero image cap", func(c *Config) { c.MaxImageBytes = 0 }, "MAX_IMAGE_BYTES"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			validEnv(t)
			cfg, err := Load(noFiles(t))
			require.NoError(t, err)

			tt.mutate(cfg)
			err = cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestValidate_ReportsEverything(t *testing.T) {
	cfg, err := Load(noFiles(t))
	require.NoError(t, err)

	err = cfg.Validate()
	require.Error(t, err)
	assert.ErrorContains(t, err, "DATABASE_URL")
	assert.ErrorContains(t, err, "JWT_SECRET")
	assert.ErrorContains(t, err, "BLOB_BUCKET")
}

func TestValidateDatabase(t *testing.T) {
	cfg := &Config{DBDriver: DriverSQLite, DatabaseURL: ":memory:"}
	assert.NoError(t, cfg.ValidateDatabase())

	cfg.DatabaseURL = ""
	assert.Error(t, cfg.ValidateDatabase())
}
