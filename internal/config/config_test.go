package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allVars = []string{
	"PORT", "FFMPEG_PATH", "OUTPUT_FORMAT", "EXPORT_BITRATE",
	"SILENCE_MIN_MS", "SILENCE_THRESHOLD_DB", "SILENCE_DETECTOR", "MIN_SEGMENT_MS",
	"MAX_CONCURRENT_JOBS", "PUBLISH_DIR",
	"S3_BUCKET", "S3_REGION", "S3_ENDPOINT", "S3_PREFIX",
	"AWS_ACCESS_KEY_ID", "AWS_SECRET_ACCESS_KEY",
	"LOG_FORMAT", "LOG_LEVEL",
}

// clearEnv unsets every variable for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, v := range allVars {
		t.Setenv(v, "")
		require.NoError(t, os.Unsetenv(v))
	}
}

// validConfig returns a config with every default applied.
func validConfig() *Config {
	return &Config{
		Port:               8080,
		FFmpegPath:         "ffmpeg",
		OutputFormat:       "mp3",
		ExportBitrate:      "192k",
		SilenceMinMs:       1000,
		SilenceThresholdDB: -40,
		SilenceDetector:    "amplitude",
		MinSegmentMs:       500,
		MaxConcurrentJobs:  1,
		LogFormat:          "text",
		LogLevel:           "info",
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, validConfig(), cfg)
	assert.False(t, cfg.S3Enabled())
}

func TestLoad_CustomValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "3000")
	t.Setenv("FFMPEG_PATH", "/opt/ffmpeg/bin/ffmpeg")
	t.Setenv("OUTPUT_FORMAT", "flac")
	t.Setenv("SILENCE_MIN_MS", "1500")
	t.Setenv("SILENCE_THRESHOLD_DB", "-50.5")
	t.Setenv("SILENCE_DETECTOR", "ffmpeg")
	t.Setenv("MIN_SEGMENT_MS", "2000")
	t.Setenv("MAX_CONCURRENT_JOBS", "4")
	t.Setenv("PUBLISH_DIR", "/srv/albums")
	t.Setenv("S3_BUCKET", "my-bucket")
	t.Setenv("S3_REGION", "us-east-1")
	t.Setenv("S3_ENDPOINT", "http://localhost:4566")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, "/opt/ffmpeg/bin/ffmpeg", cfg.FFmpegPath)
	assert.Equal(t, "flac", cfg.OutputFormat)
	assert.Equal(t, "ffmpeg", cfg.SilenceDetector)
	assert.Equal(t, 2000, cfg.MinSegmentMs)
	assert.Equal(t, 4, cfg.MaxConcurrentJobs)
	assert.Equal(t, "/srv/albums", cfg.PublishDir)
	assert.True(t, cfg.S3Enabled())

	opts := cfg.DetectOpts()
	assert.Equal(t, 1500, opts.MinSilenceMs)
	assert.InDelta(t, -50.5, opts.ThresholdDB, 1e-9)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"port not a number", "PORT", "not-a-number"},
		{"port out of range", "PORT", "70000"},
		{"unknown detector", "SILENCE_DETECTOR", "neural"},
		{"unknown format", "OUTPUT_FORMAT", "midi"},
		{"positive threshold", "SILENCE_THRESHOLD_DB", "3"},
		{"zero minimum silence", "SILENCE_MIN_MS", "0"},
		{"zero concurrency", "MAX_CONCURRENT_JOBS", "0"},
		{"bad endpoint", "S3_ENDPOINT", "not a url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			require.Error(t, err)
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Run("valid config", func(t *testing.T) {
		assert.NoError(t, validConfig().Validate())
	})

	t.Run("invalid detector", func(t *testing.T) {
		cfg := validConfig()
		cfg.SilenceDetector = "neural"
		err := cfg.Validate()
		assert.ErrorIs(t, err, ErrInvalidValue)
		assert.Contains(t, err.Error(), "SilenceDetector")
	})

	t.Run("bucket without region", func(t *testing.T) {
		cfg := validConfig()
		cfg.S3Bucket = "bucket"
		assert.ErrorIs(t, cfg.Validate(), ErrS3RegionRequired)
	})
}

func TestConfig_S3Enabled(t *testing.T) {
	tests := []struct {
		name     string
		bucket   string
		region   string
		expected bool
	}{
		{"both set", "bucket", "region", true},
		{"only bucket", "bucket", "", false},
		{"only region", "", "region", false},
		{"neither set", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{S3Bucket: tt.bucket, S3Region: tt.region}
			assert.Equal(t, tt.expected, cfg.S3Enabled())
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("OUTPUT_FORMAT=wav\nPORT=9000\n"), 0o600))
	t.Setenv("PORT", "7000")

	require.NoError(t, LoadDotEnv(envFile, filepath.Join(dir, "missing.env")))
	t.Cleanup(func() { _ = os.Unsetenv("OUTPUT_FORMAT") })

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "wav", cfg.OutputFormat)
	assert.Equal(t, 7000, cfg.Port, "existing variables are not overridden")
}

func TestConfig_String(t *testing.T) {
	cfg := validConfig()
	cfg.S3Bucket = "bucket"
	cfg.AWSSecretAccessKey = "secret-key"
	cfg.AWSAccessKeyID = "access-key"

	str := cfg.String()

	assert.Contains(t, str, "8080")
	assert.Contains(t, str, "bucket")
	assert.Contains(t, str, "amplitude")

	assert.NotContains(t, str, "secret-key")
	assert.NotContains(t, str, "access-key")
}

func TestConfig_NewLoggerTo(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		logger := (&Config{LogFormat: "json", LogLevel: "info"}).NewLoggerTo(&buf)
		logger.Info("album loaded", slog.String("album", "Live"))

		assert.Contains(t, buf.String(), `"msg":"album loaded"`)
		assert.Contains(t, buf.String(), `"album":"Live"`)
	})

	t.Run("text filters below level", func(t *testing.T) {
		var buf bytes.Buffer
		logger := (&Config{LogFormat: "text", LogLevel: "warn"}).NewLoggerTo(&buf)
		logger.Info("hidden")
		logger.Warn("shown")

		assert.NotContains(t, buf.String(), "hidden")
		assert.Contains(t, buf.String(), "msg=shown")
	})

	t.Run("stdout logger", func(t *testing.T) {
		require.NotNil(t, validConfig().NewLogger())
	})
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"ERROR", slog.LevelError},
		{"unknown", slog.LevelInfo}, // defaults to info
		{"", slog.LevelInfo},        // defaults to info
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseLogLevel(tt.input))
		})
	}
}
