// Package bootstrap provides dependency initialization for albumsplit.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/maauso/albumsplit/internal/album"
	"github.com/maauso/albumsplit/internal/audio"
	"github.com/maauso/albumsplit/internal/config"
	"github.com/maauso/albumsplit/internal/job"
	"github.com/maauso/albumsplit/internal/metrics"
	"github.com/maauso/albumsplit/internal/storage"
)

// Dependencies holds all initialized dependencies for the server and CLI.
type Dependencies struct {
	AlbumService *album.Service
	JobService   *job.SplitService
	Registry     *prometheus.Registry
	Metrics      *metrics.Metrics
}

// NewDependencies creates and initializes all dependencies for the application.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	// Initialize metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewMetrics(reg)

	// Initialize codec and silence detector
	codec := audio.NewFFmpegCodec(cfg.FFmpegPath, audio.WithBitrate(cfg.ExportBitrate))
	detector := initDetector(cfg, codec)

	opts := []album.Option{
		album.WithDetector(detector),
		album.WithMetrics(m),
		album.WithDetectOpts(cfg.DetectOpts()),
		album.WithMinSegmentMs(int64(cfg.MinSegmentMs)),
		album.WithFormat(cfg.OutputFormat),
	}

	// Initialize optional publisher
	publisher, err := initPublisher(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	if publisher != nil {
		opts = append(opts, album.WithPublisher(publisher))
	}

	albums := album.NewService(codec, logger, opts...)

	// Initialize job repository and service
	repo := job.NewMemoryRepository()
	jobs := job.NewSplitService(repo, albums, logger, cfg.MaxConcurrentJobs)
	jobs.SetMetrics(m)

	return &Dependencies{
		AlbumService: albums,
		JobService:   jobs,
		Registry:     reg,
		Metrics:      m,
	}, nil
}

// initDetector picks the silence detector named by SILENCE_DETECTOR.
func initDetector(cfg *config.Config, codec *audio.FFmpegCodec) audio.SilenceDetector {
	if cfg.SilenceDetector == "ffmpeg" {
		return audio.NewFFmpegSilenceDetector(codec)
	}
	return audio.NewAmplitudeDetector()
}

// initPublisher creates the publishing backend based on configuration.
// It returns nil when publishing is disabled.
func initPublisher(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Publisher, error) {
	if cfg.S3Enabled() {
		s3Cfg := storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			Prefix:          cfg.S3Prefix,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		}
		s3Store, err := storage.NewS3Storage(ctx, s3Cfg)
		if err != nil {
			return nil, fmt.Errorf("create S3 storage: %w", err)
		}
		logger.Info("S3 publishing configured",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region),
		)
		return s3Store, nil
	}

	if cfg.PublishDir != "" {
		localStore, err := storage.NewLocalStorage(cfg.PublishDir)
		if err != nil {
			return nil, fmt.Errorf("create local storage: %w", err)
		}
		logger.Info("local publishing configured",
			slog.String("dir", cfg.PublishDir),
		)
		return localStore, nil
	}

	return nil, nil
}
