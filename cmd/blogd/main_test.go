package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/blogsite/internal/config"
	"github.com/sakif/blogsite/internal/events"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		raw     string
		want    slog.Level
		wantErr bool
	}{
		{raw: "", want: slog.LevelInfo},
		{raw: "debug", want: slog.LevelDebug},
		{raw: "INFO", want: slog.LevelInfo},
		{raw: "warning", want: slog.LevelWarn},
		{raw: "error", want: slog.LevelError},
		{raw: "verbose", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := parseLogLevel(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newLogger(&buf, "info", "json")
	require.NoError(t, err)
	logger.Debug("hidden")
	logger.Info("shown", slog.String("k", "v"))
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"k":"v"`)

	_, err = newLogger(io.Discard, "info", "xml")
	assert.Error(t, err)
}

func TestMigrateCommand(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DATABASE_URL", filepath.Join(dir, "blog.db"))

	for range 2 { // second run is a no-op
		var out bytes.Buffer
		cmd := newRootCmd()
		cmd.SetOut(&out)
		cmd.SetArgs([]string{"migrate", "--env-file", filepath.Join(dir, "none.env")})

		require.NoError(t, cmd.ExecuteContext(context.Background()))
		assert.Contains(t, out.String(), "version: 1")
		assert.Contains(t, out.String(), "up to date")
	}
}

func TestMigrateCommand_RequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	cmd := newRootCmd()
	cmd.SetOut(io.Discard)
	cmd.SetArgs([]string{"migrate", "--env-file", filepath.Join(t.TempDir(), "none.env")})

	err := cmd.ExecuteContext(context.Background())
	assert.ErrorContains(t, err, "DATABASE_URL")
}

func TestServeCommand_ValidatesConfig(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_SECRET", "")
	cmd := newRootCmd()
	cmd.SetArgs([]string{"serve", "--env-file", filepath.Join(t.TempDir(), "none.env")})

	err := cmd.ExecuteContext(context.Background())
	assert.ErrorContains(t, err, "JWT_SECRET")
}

func TestOpenPublisher(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	p, err := openPublisher(&config.Config{}, logger)
	require.NoError(t, err)
	assert.IsType(t, events.Nop{}, p)

	p, err = openPublisher(&config.Config{KafkaBrokers: []string{"localhost:9092"}, KafkaTopic: "t"}, logger)
	require.NoError(t, err)
	assert.IsType(t, &events.Kafka{}, p)
	assert.NoError(t, p.Close())
}

func TestOpenBlobs_Local(t *testing.T) {
	cfg := &config.Config{BlobDriver: config.BlobLocal, BlobDir: t.TempDir(), PublicBaseURL: "http://x"}
	b, err := openBlobs(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "http://x/media/blog_images/a.png", b.URL("media/blog_images/a.png"))
}
