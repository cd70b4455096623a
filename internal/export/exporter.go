// Package export writes planned segments of a decoded recording to files.
package export

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
	"github.com/maauso/albumsplit/internal/segment"
)

// Static errors for export.
var (
	// ErrExport is matched by every *Error.
	ErrExport = errors.New("export failed")
	// ErrNoFormat is returned when the exporter has no output format.
	ErrNoFormat = errors.New("export: output format is required")
)

// Error reports the segment whose export failed. Files written before it
// are left in place.
type Error struct {
	// Index is the 1-based segment index, or 0 when the failure happened
	// before any segment was attempted.
	Index int
	// Path is the file that was being written.
	Path string
	// Err is the underlying cause.
	Err error
}

func (e *Error) Error() string {
	if e.Index == 0 {
		return fmt.Sprintf("export failed: %v", e.Err)
	}
	return fmt.Sprintf("export segment %d to %s: %v", e.Index, e.Path, e.Err)
}

// Unwrap exposes both ErrExport and the cause to errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	return []error{ErrExport, e.Err}
}

// Encoder is the part of the codec service the exporter needs.
type Encoder interface {
	Export(ctx context.Context, buf *audio.Buffer, outPath, format string) error
}

// ProgressFunc is called after each written segment.
type ProgressFunc func(done, total int)

// Exporter writes segments one at a time, stopping at the first failure.
type Exporter struct {
	encoder  Encoder
	format   string
	logger   *slog.Logger
	progress ProgressFunc
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithProgress registers a callback invoked after each written segment.
func WithProgress(fn ProgressFunc) Option {
	return func(e *Exporter) {
		e.progress = fn
	}
}

// WithLogger sets the logger. A nil logger keeps slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Exporter) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewExporter creates an Exporter that encodes files in format ("mp3", "wav", ...).
func NewExporter(encoder Encoder, format string, opts ...Option) *Exporter {
	e := &Exporter{
		encoder: encoder,
		format:  strings.ToLower(strings.TrimPrefix(format, ".")),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Format returns the output format, which is also the file extension.
func (e *Exporter) Format() string {
	return e.format
}

// Export writes every segment of buf into outputDir and returns the written
// paths in segment order. The context is checked between segments only; a
// codec call in progress is never interrupted by the exporter. On failure the
// paths written so far are returned along with an *Error.
func (e *Exporter) Export(ctx context.Context, buf *audio.Buffer, segments []segment.Segment, outputDir string) ([]string, error) {
	if e.format == "" {
		return nil, &Error{Err: ErrNoFormat}
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, &Error{Path: outputDir, Err: fmt.Errorf("create output directory: %w", err)}
	}

	written := make([]string, 0, len(segments))
	for i, seg := range segments {
		if err := ctx.Err(); err != nil {
			e.logger.Warn("export cancelled",
				slog.Int("written", len(written)),
				slog.Int("total", len(segments)),
			)
			return written, fmt.Errorf("export cancelled after %d of %d segments: %w", len(written), len(segments), err)
		}

		path := filepath.Join(outputDir, segment.FileName(seg, e.format))
		start := time.Now()

		if err := e.encoder.Export(ctx, buf.Extract(seg.StartMs, seg.EndMs), path, e.format); err != nil {
			e.logger.Error("segment export failed",
				slog.Int("index", seg.Index),
				slog.String("path", path),
				slog.String("error", err.Error()),
			)
			return written, &Error{Index: seg.Index, Path: path, Err: err}
		}

		written = append(written, path)
		e.logger.Info("segment exported",
			slog.Int("index", seg.Index),
			slog.String("path", path),
			slog.Int64("start_ms", seg.StartMs),
			slog.Int64("end_ms", seg.EndMs),
			slog.Duration("took", time.Since(start)),
		)

		if e.progress != nil {
			e.progress(i+1, len(segments))
		}
	}

	return written, nil
}
