// Package album provides the album splitting use cases: loading a recording,
// suggesting split points from silence and splitting it into track files.
package album

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/maauso/albumsplit/internal/audio"
	"github.com/maauso/albumsplit/internal/export"
	"github.com/maauso/albumsplit/internal/metrics"
	"github.com/maauso/albumsplit/internal/segment"
	"github.com/maauso/albumsplit/internal/storage"
	"github.com/maauso/albumsplit/internal/timestamp"
)

// Static errors for album operations.
var (
	// ErrNoFile is returned when no source file was given.
	ErrNoFile = fmt.Errorf("%w: no file selected", segment.ErrInvalidInput)
	// ErrNoPoints is returned when the split text contains no valid timestamp line.
	ErrNoPoints = fmt.Errorf("%w: no valid timestamps", segment.ErrInvalidInput)
)

// Album is a decoded source recording.
type Album struct {
	// SourcePath is the file the album was decoded from.
	SourcePath string
	// Name is the album tag, or the file's base name when the tag is missing.
	Name string
	// Buffer holds the decoded samples.
	Buffer *audio.Buffer
}

// DurationMs returns the recording length in milliseconds.
func (a *Album) DurationMs() int64 {
	return a.Buffer.LengthMs()
}

// AnalyzeOutput contains the result of silence analysis.
type AnalyzeOutput struct {
	// Intervals are the detected silences in ascending order.
	Intervals []audio.SilenceInterval
	// Points holds one suggested split point per interval, with an empty label.
	Points []timestamp.Point
	// Text is Points rendered one "MM:SS " line each, ready to be edited.
	Text string
}

// SplitInput contains the parameters for splitting an album.
type SplitInput struct {
	// Text is the user-edited list of "MM:SS label" lines.
	Text string
	// Format overrides the service's output format when set.
	Format string
	// OutputDir overrides the default output directory when set.
	OutputDir string
	// Progress is called after each written track.
	Progress export.ProgressFunc
}

// Track describes one written track file.
type Track struct {
	Index   int    `json:"index"`
	Label   string `json:"label"`
	StartMs int64  `json:"start_ms"`
	EndMs   int64  `json:"end_ms"`
	Path    string `json:"path"`
	URL     string `json:"url,omitempty"`
}

// SplitOutput contains the result of a split.
type SplitOutput struct {
	// OutputDir is the directory the tracks were written to.
	OutputDir string
	// Tracks lists the written files in segment order. After an export
	// failure it holds the tracks written before the failure.
	Tracks []Track
}

// Service orchestrates decoding, silence analysis, segment planning,
// export and optional publishing.
type Service struct {
	codec        audio.Codec
	detector     audio.SilenceDetector
	tags         audio.TagReader
	publisher    storage.Publisher
	metrics      *metrics.Metrics
	logger       *slog.Logger
	detectOpts   audio.DetectOpts
	minSegmentMs int64
	format       string
}

// Option configures a Service.
type Option func(*Service)

// WithDetector sets the silence detector. Defaults to the amplitude detector.
func WithDetector(d audio.SilenceDetector) Option {
	return func(s *Service) {
		if d != nil {
			s.detector = d
		}
	}
}

// WithTagReader sets the tag reader. Defaults to FileTagReader.
func WithTagReader(r audio.TagReader) Option {
	return func(s *Service) {
		if r != nil {
			s.tags = r
		}
	}
}

// WithPublisher enables publishing of every written track.
func WithPublisher(p storage.Publisher) Option {
	return func(s *Service) {
		s.publisher = p
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithDetectOpts sets the default silence detection thresholds.
func WithDetectOpts(opts audio.DetectOpts) Option {
	return func(s *Service) {
		s.detectOpts = opts
	}
}

// WithMinSegmentMs sets the shortest segment that is exported.
func WithMinSegmentMs(ms int64) Option {
	return func(s *Service) {
		if ms > 0 {
			s.minSegmentMs = ms
		}
	}
}

// WithFormat sets the default output format.
func WithFormat(format string) Option {
	return func(s *Service) {
		if format != "" {
			s.format = format
		}
	}
}

// NewService creates a new Service around codec.
func NewService(codec audio.Codec, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		codec:        codec,
		detector:     audio.NewAmplitudeDetector(),
		tags:         audio.NewFileTagReader(),
		logger:       logger,
		detectOpts:   audio.DefaultDetectOpts(),
		minSegmentMs: segment.DefaultMinSegmentMs,
		format:       "mp3",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DetectOpts returns the service's default detection thresholds.
func (s *Service) DetectOpts() audio.DetectOpts {
	return s.detectOpts
}

// Format returns the service's default output format.
func (s *Service) Format() string {
	return s.format
}

// Load decodes path and resolves the album name.
func (s *Service) Load(ctx context.Context, path string) (*Album, error) {
	if strings.TrimSpace(path) == "" {
		return nil, ErrNoFile
	}

	start := time.Now()
	buf, err := s.codec.Decode(ctx, path)
	s.metrics.ObserveDecode(time.Since(start), err)
	if err != nil {
		s.logger.Error("failed to decode album",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	name, ok := s.tags.ReadAlbum(path)
	if !ok {
		name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	s.logger.Info("album loaded",
		slog.String("path", path),
		slog.String("album", name),
		slog.Int64("duration_ms", buf.LengthMs()),
		slog.Int("sample_rate", buf.SampleRate),
		slog.Int("channels", buf.Channels),
		slog.Duration("took", time.Since(start)),
	)

	return &Album{SourcePath: path, Name: name, Buffer: buf}, nil
}

// Analyze detects silence with the service's default thresholds.
func (s *Service) Analyze(ctx context.Context, a *Album) (*AnalyzeOutput, error) {
	return s.AnalyzeWith(ctx, a, s.detectOpts)
}

// AnalyzeWith detects silence with opts and turns every interval into a
// suggested split point at its midpoint.
func (s *Service) AnalyzeWith(ctx context.Context, a *Album, opts audio.DetectOpts) (*AnalyzeOutput, error) {
	if a == nil || a.Buffer == nil {
		return nil, ErrNoFile
	}

	start := time.Now()
	intervals, err := s.detector.Detect(ctx, a.Buffer, opts)
	if err != nil {
		return nil, fmt.Errorf("detect silence: %w", err)
	}
	s.metrics.ObserveAnalysis(time.Since(start), len(intervals))

	points := Suggest(intervals)

	s.logger.Info("silence analysis complete",
		slog.String("album", a.Name),
		slog.Int("min_silence_ms", opts.MinSilenceMs),
		slog.Float64("threshold_db", opts.ThresholdDB),
		slog.Int("intervals", len(intervals)),
		slog.Duration("took", time.Since(start)),
	)

	return &AnalyzeOutput{
		Intervals: intervals,
		Points:    points,
		Text:      timestamp.Format(points),
	}, nil
}

// Suggest returns one unlabeled point per interval at the interval midpoint.
func Suggest(intervals []audio.SilenceInterval) []timestamp.Point {
	points := make([]timestamp.Point, 0, len(intervals))
	for _, iv := range intervals {
		points = append(points, timestamp.Point{TimeMs: iv.MidpointMs()})
	}
	return points
}

// Split parses input.Text, plans the segments and exports them. Invalid
// input is reported before any file is written.
func (s *Service) Split(ctx context.Context, a *Album, input SplitInput) (*SplitOutput, error) {
	if a == nil || a.Buffer == nil {
		s.metrics.ObserveInvalidInput()
		return nil, ErrNoFile
	}

	points := timestamp.ParseText(input.Text)
	if len(points) == 0 {
		s.metrics.ObserveInvalidInput()
		return nil, ErrNoPoints
	}

	segments, err := segment.Plan(points, a.DurationMs(), s.minSegmentMs)
	if err != nil {
		s.metrics.ObserveInvalidInput()
		return nil, err
	}

	outputDir := input.OutputDir
	if outputDir == "" {
		outputDir = OutputDir(a.SourcePath, a.Name)
	}
	format := input.Format
	if format == "" {
		format = s.format
	}

	s.logger.Info("splitting album",
		slog.String("album", a.Name),
		slog.Int("points", len(points)),
		slog.Int("segments", len(segments)),
		slog.String("output_dir", outputDir),
		slog.String("format", format),
	)

	exporter := export.NewExporter(s.codec, format,
		export.WithLogger(s.logger),
		export.WithProgress(input.Progress),
	)

	start := time.Now()
	written, err := exporter.Export(ctx, a.Buffer, segments, outputDir)
	s.metrics.ObserveExport(time.Since(start), len(segments), len(written), err)

	out := &SplitOutput{
		OutputDir: outputDir,
		Tracks:    tracks(segments, written),
	}
	if err != nil {
		return out, err
	}

	if err := s.publish(ctx, out); err != nil {
		return out, err
	}

	s.logger.Info("album split complete",
		slog.String("album", a.Name),
		slog.Int("tracks", len(out.Tracks)),
		slog.Duration("took", time.Since(start)),
	)

	return out, nil
}

// tracks pairs written paths with the segments they came from. The exporter
// writes in segment order, so the first len(paths) segments are the written ones.
func tracks(segments []segment.Segment, paths []string) []Track {
	out := make([]Track, 0, len(paths))
	for i, p := range paths {
		seg := segments[i]
		out = append(out, Track{
			Index:   seg.Index,
			Label:   seg.FileLabel(),
			StartMs: seg.StartMs,
			EndMs:   seg.EndMs,
			Path:    p,
		})
	}
	return out
}

func (s *Service) publish(ctx context.Context, out *SplitOutput) error {
	if s.publisher == nil {
		return nil
	}

	dir := filepath.Base(out.OutputDir)
	for i := range out.Tracks {
		t := &out.Tracks[i]
		key := dir + "/" + filepath.Base(t.Path)

		url, err := s.publishFile(ctx, key, t.Path)
		if err != nil {
			s.logger.Error("failed to publish track",
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
			s.metrics.ObservePublished(i)
			return fmt.Errorf("%w: %s: %w", storage.ErrPublish, key, err)
		}
		t.URL = url
	}

	s.metrics.ObservePublished(len(out.Tracks))
	s.logger.Info("tracks published",
		slog.String("album_dir", dir),
		slog.Int("tracks", len(out.Tracks)),
	)
	return nil
}

func (s *Service) publishFile(ctx context.Context, key, path string) (string, error) {
	f, err := os.Open(path) // #nosec G304 - path was written by the exporter
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	return s.publisher.Publish(ctx, key, f)
}

// IsInvalidInput reports whether err was caused by unusable input rather
// than a decode or export failure.
func IsInvalidInput(err error) bool {
	return errors.Is(err, segment.ErrInvalidInput)
}
