package audio

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// ctxCheckEveryMs bounds how much audio is scanned between context checks.
const ctxCheckEveryMs = 60_000

// AmplitudeDetector implements SilenceDetector by scanning the in-memory
// buffer in one-millisecond frames. A frame is silent when no sample in it
// on any channel exceeds the threshold amplitude.
type AmplitudeDetector struct{}

// NewAmplitudeDetector creates a new AmplitudeDetector.
func NewAmplitudeDetector() *AmplitudeDetector {
	return &AmplitudeDetector{}
}

// Detect implements SilenceDetector.Detect.
func (d *AmplitudeDetector) Detect(ctx context.Context, buf *Buffer, opts DetectOpts) ([]SilenceInterval, error) {
	total := buf.LengthMs()
	minMs := int64(opts.MinSilenceMs)
	if minMs < 1 {
		minMs = 1
	}
	limit := thresholdAmplitude(opts.ThresholdDB)

	var intervals []SilenceInterval
	runStart := int64(-1)

	for ms := int64(0); ms < total; ms++ {
		if ms%ctxCheckEveryMs == 0 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("silence detection cancelled: %w", err)
			}
		}

		if frameSilent(buf, ms, limit) {
			if runStart < 0 {
				runStart = ms
			}
			continue
		}

		if runStart >= 0 && ms-runStart >= minMs {
			intervals = append(intervals, SilenceInterval{StartMs: runStart, EndMs: ms})
		}
		runStart = -1
	}

	if runStart >= 0 && total-runStart >= minMs {
		intervals = append(intervals, SilenceInterval{StartMs: runStart, EndMs: total})
	}

	return intervals, nil
}

// fullScale16 is the 0 dBFS reference for signed 16-bit samples.
const fullScale16 = 1 << 15

// thresholdAmplitude converts a dBFS level to a linear 16-bit amplitude.
func thresholdAmplitude(db float64) float64 {
	return fullScale16 * math.Pow(10, db/20)
}

// frameSilent reports whether every sample in millisecond ms is at or below limit.
func frameSilent(buf *Buffer, ms int64, limit float64) bool {
	start := buf.frameAt(ms) * buf.Channels
	end := buf.frameAt(ms+1) * buf.Channels
	for _, s := range buf.Samples[start:end] {
		amp := math.Abs(float64(s))
		if amp > limit {
			return false
		}
	}
	return true
}

// FFmpegSilenceDetector implements SilenceDetector with ffmpeg's
// silencedetect filter. The buffer is streamed to ffmpeg as raw PCM.
type FFmpegSilenceDetector struct {
	codec *FFmpegCodec
}

// NewFFmpegSilenceDetector creates a detector that runs the codec's ffmpeg binary.
func NewFFmpegSilenceDetector(codec *FFmpegCodec) *FFmpegSilenceDetector {
	if codec == nil {
		codec = NewFFmpegCodec("")
	}
	return &FFmpegSilenceDetector{codec: codec}
}

// Detect implements SilenceDetector.Detect.
func (d *FFmpegSilenceDetector) Detect(ctx context.Context, buf *Buffer, opts DetectOpts) ([]SilenceInterval, error) {
	if buf.Frames() == 0 {
		return nil, nil
	}

	// Build silencedetect filter
	filter := fmt.Sprintf("silencedetect=noise=%sdB:d=%s",
		strconv.FormatFloat(opts.ThresholdDB, 'f', -1, 64),
		strconv.FormatFloat(float64(opts.MinSilenceMs)/1000.0, 'f', -1, 64),
	)

	args := []string{
		"-hide_banner",
		"-f", "s16le",
		"-ar", strconv.Itoa(buf.SampleRate),
		"-ac", strconv.Itoa(buf.Channels),
		"-i", "pipe:0",
		"-af", filter,
		"-f", "null",
		"-",
	}

	// ffmpeg writes silencedetect output to stderr
	stderr, err := d.codec.runFFmpeg(ctx, args, bytes.NewReader(buf.PCM()), nil)
	if err != nil {
		return nil, fmt.Errorf("detect silences: %w", err)
	}

	return parseSilenceOutput(stderr, buf.LengthMs()), nil
}

var (
	silenceStartRe = regexp.MustCompile(`silence_start:\s*(-?[\d.]+)`)
	silenceEndRe   = regexp.MustCompile(`silence_end:\s*([\d.]+)`)
)

// parseSilenceOutput parses ffmpeg silencedetect output. A silence still open
// at end of input is closed at totalMs.
func parseSilenceOutput(output string, totalMs int64) []SilenceInterval {
	var intervals []SilenceInterval

	var currentStart int64
	hasStart := false

	for _, line := range strings.Split(output, "\n") {
		if startMatch := silenceStartRe.FindStringSubmatch(line); len(startMatch) > 1 {
			val, err := strconv.ParseFloat(startMatch[1], 64)
			if err != nil {
				continue
			}
			currentStart = max(secondsToMs(val), 0)
			hasStart = true
		}

		if endMatch := silenceEndRe.FindStringSubmatch(line); len(endMatch) > 1 && hasStart {
			val, err := strconv.ParseFloat(endMatch[1], 64)
			if err != nil {
				continue
			}
			end := min(secondsToMs(val), totalMs)
			if end > currentStart {
				intervals = append(intervals, SilenceInterval{StartMs: currentStart, EndMs: end})
			}
			hasStart = false
		}
	}

	if hasStart && totalMs > currentStart {
		intervals = append(intervals, SilenceInterval{StartMs: currentStart, EndMs: totalMs})
	}

	return intervals
}

func secondsToMs(sec float64) int64 {
	return int64(math.Round(sec * 1000))
}

// Verify interface implementations at compile time.
var (
	_ SilenceDetector = (*AmplitudeDetector)(nil)
	_ SilenceDetector = (*FFmpegSilenceDetector)(nil)
)
