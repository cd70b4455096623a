package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// Decoding through ffmpeg always resamples to this layout.
const (
	ffmpegDecodeRate     = 44100
	ffmpegDecodeChannels = 2
)

// muxers maps export formats to ffmpeg muxer names where they differ.
var muxers = map[string]string{
	"m4a": "ipod",
	"aac": "adts",
}

// lossyFormats receive the configured bitrate on export.
var lossyFormats = map[string]bool{
	"mp3":  true,
	"ogg":  true,
	"opus": true,
	"m4a":  true,
	"aac":  true,
}

// FFmpegCodec implements Codec. MP3, WAV and FLAC are decoded in-process,
// WAV is encoded in-process, and everything else goes through the ffmpeg CLI.
type FFmpegCodec struct {
	ffmpegPath string
	bitrate    string
}

// CodecOption configures an FFmpegCodec.
type CodecOption func(*FFmpegCodec)

// WithBitrate sets the audio bitrate passed to ffmpeg for lossy formats,
// e.g. "192k". Empty leaves the encoder default.
func WithBitrate(bitrate string) CodecOption {
	return func(c *FFmpegCodec) {
		c.bitrate = bitrate
	}
}

// NewFFmpegCodec creates a new FFmpegCodec.
// If ffmpegPath is empty, it defaults to "ffmpeg" (found in PATH).
func NewFFmpegCodec(ffmpegPath string, opts ...CodecOption) *FFmpegCodec {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	c := &FFmpegCodec{ffmpegPath: ffmpegPath}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FFmpegPath returns the configured ffmpeg binary.
func (c *FFmpegCodec) FFmpegPath() string {
	return c.ffmpegPath
}

// Decode implements Codec.Decode.
func (c *FFmpegCodec) Decode(ctx context.Context, path string) (*Buffer, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: input file does not exist: %s", ErrDecode, path)
	}

	buf, err := decodeNative(path)
	if err == nil {
		return buf, nil
	}
	if !errors.Is(err, errNoNativeDecoder) {
		return nil, fmt.Errorf("%w: %s: %w", ErrDecode, path, err)
	}

	buf, err = c.decodeWithFFmpeg(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDecode, path, err)
	}
	return buf, nil
}

// decodeWithFFmpeg converts any input ffmpeg understands to s16le PCM on stdout.
func (c *FFmpegCodec) decodeWithFFmpeg(ctx context.Context, path string) (*Buffer, error) {
	args := []string{
		"-hide_banner",
		"-i", path,
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"-ar", strconv.Itoa(ffmpegDecodeRate),
		"-ac", strconv.Itoa(ffmpegDecodeChannels),
		"pipe:1",
	}

	var stdout bytes.Buffer
	if _, err := c.runFFmpeg(ctx, args, nil, &stdout); err != nil {
		return nil, err
	}
	if stdout.Len() == 0 {
		return nil, errors.New("ffmpeg produced no audio")
	}

	return bufferFromPCM(stdout.Bytes(), ffmpegDecodeRate, ffmpegDecodeChannels)
}

// Export implements Codec.Export.
func (c *FFmpegCodec) Export(ctx context.Context, buf *Buffer, outPath, format string) error {
	if buf == nil || buf.Frames() == 0 {
		return fmt.Errorf("%w: %w", ErrEncode, ErrEmptyBuffer)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrEncode, err)
	}

	format = strings.ToLower(format)
	if format == "wav" {
		if err := writeWAV(buf, outPath); err != nil {
			return fmt.Errorf("%w: %w", ErrEncode, err)
		}
		return nil
	}

	args := []string{
		"-y", // Overwrite output
		"-hide_banner",
		"-f", "s16le",
		"-ar", strconv.Itoa(buf.SampleRate),
		"-ac", strconv.Itoa(buf.Channels),
		"-i", "pipe:0",
	}
	if c.bitrate != "" && lossyFormats[format] {
		args = append(args, "-b:a", c.bitrate)
	}
	muxer := format
	if m, ok := muxers[format]; ok {
		muxer = m
	}
	args = append(args, "-f", muxer, outPath)

	if _, err := c.runFFmpeg(ctx, args, bytes.NewReader(buf.PCM()), nil); err != nil {
		return fmt.Errorf("%w: %w", ErrEncode, err)
	}
	return nil
}

// runFFmpeg executes ffmpeg and returns its stderr, which carries both
// diagnostics and filter output such as silencedetect.
func (c *FFmpegCodec) runFFmpeg(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) (string, error) {
	// #nosec G204 - ffmpegPath is set by the application, not user input
	cmd := exec.CommandContext(ctx, c.ffmpegPath, args...)
	cmd.Stdin = stdin
	cmd.Stdout = stdout

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return stderr.String(), fmt.Errorf("ffmpeg cancelled: %w", ctx.Err())
		}
		return stderr.String(), &FFmpegError{
			Args:   args,
			Stderr: stderr.String(),
			Err:    err,
		}
	}

	return stderr.String(), nil
}

// FFmpegError represents an error from running ffmpeg, including the stderr output.
type FFmpegError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *FFmpegError) Error() string {
	return fmt.Sprintf("ffmpeg error: %v\nargs: %v\nstderr: %s", e.Err, e.Args, e.Stderr)
}

func (e *FFmpegError) Unwrap() error {
	return e.Err
}

// Verify interface implementation at compile time.
var _ Codec = (*FFmpegCodec)(nil)
