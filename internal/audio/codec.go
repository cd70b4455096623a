// Package audio provides decoding, encoding, silence detection and tag reading
// for album recordings.
package audio

import (
	"context"
	"errors"
)

// Static errors for codec operations.
var (
	// ErrDecode is returned when a source file cannot be read or decoded.
	ErrDecode = errors.New("decode failed")
	// ErrEncode is returned when a buffer cannot be encoded to a file.
	ErrEncode = errors.New("encode failed")
	// ErrEmptyBuffer is returned when an empty buffer is passed for export.
	ErrEmptyBuffer = errors.New("empty audio buffer")
)

// DetectOpts configures silence detection.
type DetectOpts struct {
	// MinSilenceMs is the minimum silence duration in milliseconds
	// to report an interval.
	// Default: 1000 milliseconds.
	MinSilenceMs int

	// ThresholdDB is the level in dBFS at or below which audio is
	// considered silence.
	// Default: -40 dBFS.
	ThresholdDB float64
}

// DefaultDetectOpts returns the default options for silence detection.
func DefaultDetectOpts() DetectOpts {
	return DetectOpts{
		MinSilenceMs: 1000,
		ThresholdDB:  -40,
	}
}

// SilenceInterval is a detected run of silence in milliseconds.
type SilenceInterval struct {
	StartMs int64
	EndMs   int64
}

// MidpointMs returns the centre of the interval, rounded down.
func (s SilenceInterval) MidpointMs() int64 {
	return (s.StartMs + s.EndMs) / 2
}

// DurationMs returns the length of the interval.
func (s SilenceInterval) DurationMs() int64 {
	return s.EndMs - s.StartMs
}

// SilenceDetector finds silence intervals in a decoded buffer.
type SilenceDetector interface {
	// Detect returns maximal silence runs of at least opts.MinSilenceMs,
	// ascending by start and never overlapping.
	Detect(ctx context.Context, buf *Buffer, opts DetectOpts) ([]SilenceInterval, error)
}

// Codec converts files to and from in-memory buffers.
type Codec interface {
	// Decode reads the file at path into memory.
	// Errors wrap ErrDecode.
	Decode(ctx context.Context, path string) (*Buffer, error)

	// Export encodes buf into outPath using the given container format
	// ("mp3", "wav", "flac", ...). Errors wrap ErrEncode.
	Export(ctx context.Context, buf *Buffer, outPath, format string) error
}

// TagReader reads the album name from a file's metadata.
type TagReader interface {
	// ReadAlbum returns the album tag and true, or "" and false when the
	// tag is absent or the file cannot be read.
	ReadAlbum(path string) (string, bool)
}
