package audio

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/mewkiz/flac"
	"github.com/mewkiz/flac/frame"
	"github.com/mewkiz/flac/meta"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeWAVFixture writes interleaved integer samples at the given bit depth.
func writeWAVFixture(t *testing.T, path string, rate, bitDepth, channels int, data []int) {
	t.Helper()

	f, err := os.Create(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	enc := wav.NewEncoder(f, rate, bitDepth, channels, wavPCMFormat)
	require.NoError(t, enc.Write(&goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: rate},
		Data:           data,
		SourceBitDepth: bitDepth,
	}))
	require.NoError(t, enc.Close())
}

// flacBlockSize is the block size of FLAC fixtures; the last block is shorter.
const flacBlockSize = 4096

// writeFLACFixture encodes per-channel samples as verbatim FLAC subframes.
func writeFLACFixture(t *testing.T, path string, rate, bitDepth int, channels [][]int32) {
	t.Helper()

	f, err := os.Create(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	total := len(channels[0])
	info := &meta.StreamInfo{
		BlockSizeMin:  16,
		BlockSizeMax:  flacBlockSize,
		SampleRate:    uint32(rate),
		NChannels:     uint8(len(channels)),
		BitsPerSample: uint8(bitDepth),
		NSamples:      uint64(total),
	}
	enc, err := flac.NewEncoder(f, info)
	require.NoError(t, err)

	layout := frame.ChannelsMono
	if len(channels) == 2 {
		layout = frame.ChannelsLR
	}

	for num, start := 0, 0; start < total; num, start = num+1, start+flacBlockSize {
		end := min(start+flacBlockSize, total)
		fr := &frame.Frame{
			Header: frame.Header{
				HasFixedBlockSize: true,
				BlockSize:         uint16(end - start),
				SampleRate:        uint32(rate),
				Channels:          layout,
				BitsPerSample:     uint8(bitDepth),
				Num:               uint64(num),
			},
		}
		for _, samples := range channels {
			fr.Subframes = append(fr.Subframes, &frame.Subframe{
				SubHeader: frame.SubHeader{Pred: frame.PredVerbatim},
				Samples:   samples[start:end],
				NSamples:  end - start,
			})
		}
		require.NoError(t, enc.WriteFrame(fr))
	}
	require.NoError(t, enc.Close())
}

func TestDecodeNative_FLACMono(t *testing.T) {
	const rate = 8000
	mono := make([]int32, rate+500)
	for i := range mono {
		mono[i] = int32((i%200)*100 - 10_000)
	}
	path := filepath.Join(t.TempDir(), "album.flac")
	writeFLACFixture(t, path, rate, 16, [][]int32{mono})

	buf, err := decodeNative(path)
	require.NoError(t, err)
	assert.Equal(t, rate, buf.SampleRate)
	assert.Equal(t, 1, buf.Channels)
	assert.Equal(t, len(mono), buf.Frames())
	assert.Equal(t, int64(1062), buf.LengthMs())
	for i, want := range mono {
		if int16(want) != buf.Samples[i] {
			t.Fatalf("sample %d = %d, want %d", i, buf.Samples[i], want)
		}
	}
}

func TestDecodeNative_FLACStereo24Bit(t *testing.T) {
	const rate = 8000
	left := make([]int32, 2*rate)
	right := make([]int32, 2*rate)
	for i := range left {
		v := int32((i % 64) * 500)
		left[i] = v << 8
		right[i] = -v << 8
	}
	path := filepath.Join(t.TempDir(), "album.flac")
	writeFLACFixture(t, path, rate, 24, [][]int32{left, right})

	buf, err := decodeNative(path)
	require.NoError(t, err)
	assert.Equal(t, 2, buf.Channels)
	assert.Equal(t, int64(2000), buf.LengthMs())
	require.Len(t, buf.Samples, 2*len(left))

	// interleaved L R, scaled from 24 to 16 bits
	assert.Equal(t, int16(500), buf.Samples[2])
	assert.Equal(t, int16(-500), buf.Samples[3])
	assert.Equal(t, int16(63*500), buf.Samples[126])
	assert.Equal(t, int16(-63*500), buf.Samples[127])
}

func TestDecodeNative_WAV8BitUnsigned(t *testing.T) {
	path := filepath.Join(t.TempDir(), "album.wav")
	writeWAVFixture(t, path, 8000, 8, 1, []int{128, 255, 0, 128})

	buf, err := decodeNative(path)
	require.NoError(t, err)
	require.Equal(t, 4, buf.Frames())

	assert.Equal(t, int16(0), buf.Samples[0])
	assert.InDelta(t, 32767, buf.Samples[1], 256)
	assert.Equal(t, int16(-32768), buf.Samples[2])
	assert.Equal(t, int16(0), buf.Samples[3])
}

func TestDecodeNative_WAV24Bit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "album.wav")
	writeWAVFixture(t, path, 8000, 24, 2, []int{0, 0, 8_388_607, -8_388_608})

	buf, err := decodeNative(path)
	require.NoError(t, err)
	assert.Equal(t, 2, buf.Channels)
	assert.Equal(t, []int16{0, 0, 32767, -32768}, buf.Samples)
}

func TestDecodeNative_UnknownExtension(t *testing.T) {
	_, err := decodeNative("/music/album.ogg")
	assert.ErrorIs(t, err, errNoNativeDecoder)
}

func TestFFmpegCodec_DecodesFLACNatively(t *testing.T) {
	mono := make([]int32, 800)
	for i := range mono {
		mono[i] = int32(i)
	}
	path := filepath.Join(t.TempDir(), "album.flac")
	writeFLACFixture(t, path, 8000, 16, [][]int32{mono})

	// a missing ffmpeg binary proves the native decoder served the call
	codec := NewFFmpegCodec("/nonexistent/ffmpeg")
	buf, err := codec.Decode(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, int64(100), buf.LengthMs())
	assert.Equal(t, int16(799), buf.Samples[799])
}
