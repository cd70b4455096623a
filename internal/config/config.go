// Package config provides configuration loading from environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"

	"github.com/maauso/albumsplit/internal/audio"
)

// Static errors for configuration validation.
var (
	// ErrInvalidValue is returned when a variable is outside its allowed values.
	ErrInvalidValue = errors.New("config: invalid value")
	// ErrS3RegionRequired is returned when S3_BUCKET is set without S3_REGION.
	ErrS3RegionRequired = errors.New("config: S3_REGION is required when S3_BUCKET is set")
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	Port int `env:"PORT, default=8080" json:"port" validate:"min=1,max=65535"`

	// Codec settings
	FFmpegPath    string `env:"FFMPEG_PATH, default=ffmpeg" json:"ffmpeg_path" validate:"required"`
	OutputFormat  string `env:"OUTPUT_FORMAT, default=mp3" json:"output_format" validate:"oneof=mp3 wav flac ogg m4a aac"`
	ExportBitrate string `env:"EXPORT_BITRATE, default=192k" json:"export_bitrate"`

	// Segmentation settings
	SilenceMinMs       int     `env:"SILENCE_MIN_MS, default=1000" json:"silence_min_ms" validate:"min=1"`
	SilenceThresholdDB float64 `env:"SILENCE_THRESHOLD_DB, default=-40" json:"silence_threshold_db" validate:"lte=0"`
	SilenceDetector    string  `env:"SILENCE_DETECTOR, default=amplitude" json:"silence_detector" validate:"oneof=amplitude ffmpeg"`
	MinSegmentMs       int     `env:"MIN_SEGMENT_MS, default=500" json:"min_segment_ms" validate:"min=1"`

	// Job settings
	MaxConcurrentJobs int `env:"MAX_CONCURRENT_JOBS, default=1" json:"max_concurrent_jobs" validate:"min=1"`

	// Optional publishing settings
	PublishDir         string `env:"PUBLISH_DIR" json:"publish_dir,omitempty"`
	S3Bucket           string `env:"S3_BUCKET" json:"s3_bucket,omitempty"`
	S3Region           string `env:"S3_REGION" json:"s3_region,omitempty"`
	S3Endpoint         string `env:"S3_ENDPOINT" json:"s3_endpoint,omitempty" validate:"omitempty,url"`
	S3Prefix           string `env:"S3_PREFIX" json:"s3_prefix,omitempty"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID" json:"-"`     // Masked in JSON
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" json:"-"` // Masked in JSON

	// Logging settings
	LogFormat string `env:"LOG_FORMAT, default=text" json:"log_format" validate:"oneof=json text JSON TEXT"`
	LogLevel  string `env:"LOG_LEVEL, default=info" json:"log_level"` // "debug", "info", "warn", "error"
}

// S3Enabled returns true if S3 configuration is provided.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != "" && c.S3Region != ""
}

// DetectOpts returns the configured silence detection thresholds.
func (c *Config) DetectOpts() audio.DetectOpts {
	return audio.DetectOpts{
		MinSilenceMs: c.SilenceMinMs,
		ThresholdDB:  c.SilenceThresholdDB,
	}
}

// LoadDotEnv loads variables from the given .env files (".env" when none
// are given) without overriding variables already set. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("config: load %s: %w", p, err)
		}
	}
	return nil
}

// Load reads configuration from environment variables using go-envconfig
// and validates it.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := envconfig.Process(context.Background(), cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks every value against its allowed range.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%w: %s=%v (%s %s)", ErrInvalidValue, fe.Field(), fe.Value(), fe.Tag(), fe.Param())
		}
		return fmt.Errorf("%w: %w", ErrInvalidValue, err)
	}
	if c.S3Bucket != "" && c.S3Region == "" {
		return ErrS3RegionRequired
	}
	return nil
}

// NewLogger creates a structured logger writing to stdout.
// When LogFormat is "json", it outputs JSON logs suitable for production.
// Otherwise, it outputs human-readable text logs.
func (c *Config) NewLogger() *slog.Logger {
	return c.NewLoggerTo(os.Stdout)
}

// NewLoggerTo is NewLogger with an explicit destination.
func (c *Config) NewLoggerTo(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(c.LogLevel)}

	var handler slog.Handler
	if strings.ToLower(c.LogFormat) == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}

// String returns a string representation of the config with sensitive values masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Port: %d, FFmpegPath: %s, OutputFormat: %s, SilenceMinMs: %d, SilenceThresholdDB: %g, SilenceDetector: %s, MinSegmentMs: %d, MaxConcurrentJobs: %d, PublishDir: %s, S3Bucket: %s, S3Region: %s, LogFormat: %s, LogLevel: %s}",
		c.Port,
		c.FFmpegPath,
		c.OutputFormat,
		c.SilenceMinMs,
		c.SilenceThresholdDB,
		c.SilenceDetector,
		c.MinSegmentMs,
		c.MaxConcurrentJobs,
		c.PublishDir,
		c.S3Bucket,
		c.S3Region,
		c.LogFormat,
		c.LogLevel,
	)
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
