package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrInvalidFormat is returned when a buffer is built with a non-positive
// sample rate or channel count.
var ErrInvalidFormat = errors.New("invalid audio format")

// Buffer is decoded audio held in memory as interleaved signed 16-bit PCM.
// A Buffer returned by Extract shares its samples with the parent, so buffers
// must be treated as read-only.
type Buffer struct {
	// SampleRate is the number of frames per second.
	SampleRate int
	// Channels is the number of interleaved channels per frame.
	Channels int
	// Samples holds Frames()*Channels interleaved samples.
	Samples []int16
}

// NewBuffer creates a Buffer after validating the format.
// Trailing samples that do not form a whole frame are dropped.
func NewBuffer(sampleRate, channels int, samples []int16) (*Buffer, error) {
	if sampleRate <= 0 || channels <= 0 {
		return nil, fmt.Errorf("%w: sample_rate=%d, channels=%d", ErrInvalidFormat, sampleRate, channels)
	}
	whole := len(samples) - len(samples)%channels
	return &Buffer{
		SampleRate: sampleRate,
		Channels:   channels,
		Samples:    samples[:whole],
	}, nil
}

// Frames returns the number of sample frames in the buffer.
func (b *Buffer) Frames() int {
	if b == nil || b.Channels <= 0 {
		return 0
	}
	return len(b.Samples) / b.Channels
}

// LengthMs returns the buffer duration in whole milliseconds.
func (b *Buffer) LengthMs() int64 {
	if b == nil || b.SampleRate <= 0 {
		return 0
	}
	return int64(b.Frames()) * 1000 / int64(b.SampleRate)
}

// frameAt converts a millisecond offset to a frame index clamped to the buffer.
func (b *Buffer) frameAt(ms int64) int {
	if ms <= 0 {
		return 0
	}
	frame := ms * int64(b.SampleRate) / 1000
	if frame > int64(b.Frames()) {
		return b.Frames()
	}
	return int(frame)
}

// Extract returns the half-open range [startMs, endMs) as a new Buffer.
// Offsets are clamped to the buffer bounds; an inverted range yields an
// empty buffer. An endMs at or past LengthMs runs to the last frame, so the
// sub-millisecond tail is kept.
func (b *Buffer) Extract(startMs, endMs int64) *Buffer {
	start := b.frameAt(startMs)
	end := b.frameAt(endMs)
	if endMs >= b.LengthMs() {
		end = b.Frames()
	}
	if end < start {
		end = start
	}
	return &Buffer{
		SampleRate: b.SampleRate,
		Channels:   b.Channels,
		Samples:    b.Samples[start*b.Channels : end*b.Channels],
	}
}

// PCM returns the samples as little-endian s16le bytes, the layout ffmpeg
// expects with "-f s16le".
func (b *Buffer) PCM() []byte {
	out := make([]byte, len(b.Samples)*2)
	for i, s := range b.Samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

// bufferFromPCM builds a Buffer from little-endian s16le bytes.
func bufferFromPCM(data []byte, sampleRate, channels int) (*Buffer, error) {
	samples := make([]int16, len(data)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(data[i*2:]))
	}
	return NewBuffer(sampleRate, channels, samples)
}
