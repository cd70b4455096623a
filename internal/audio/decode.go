package audio

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/mewkiz/flac"
)

// errNoNativeDecoder signals that the file must be decoded through ffmpeg.
var errNoNativeDecoder = errors.New("no native decoder")

// mp3Channels is fixed: go-mp3 always produces interleaved stereo.
const mp3Channels = 2

// decodeNative decodes path with a pure-Go decoder chosen by file extension.
// It returns errNoNativeDecoder for formats without one.
func decodeNative(path string) (*Buffer, error) {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(path), ".")) {
	case "mp3":
		return decodeMP3(path)
	case "wav", "wave":
		return decodeWAV(path)
	case "flac":
		return decodeFLAC(path)
	default:
		return nil, errNoNativeDecoder
	}
}

// decodeMP3 reads a whole MP3 file into a stereo buffer.
func decodeMP3(path string) (*Buffer, error) {
	f, err := os.Open(path) // #nosec G304 - path is provided by trusted caller
	if err != nil {
		return nil, fmt.Errorf("open MP3 file: %w", err)
	}
	defer func() { _ = f.Close() }()

	decoder, err := mp3.NewDecoder(f)
	if err != nil {
		return nil, fmt.Errorf("create MP3 decoder: %w", err)
	}

	// go-mp3 writes int16 little-endian frames
	pcm, err := io.ReadAll(decoder)
	if err != nil {
		return nil, fmt.Errorf("read MP3 frames: %w", err)
	}
	if len(pcm) == 0 {
		return nil, errors.New("no MP3 frames decoded")
	}

	return bufferFromPCM(pcm, decoder.SampleRate(), mp3Channels)
}

// decodeWAV reads an integer PCM WAV file. Float or compressed WAV files
// return errNoNativeDecoder so ffmpeg can handle them.
func decodeWAV(path string) (*Buffer, error) {
	f, err := os.Open(path) // #nosec G304 - path is provided by trusted caller
	if err != nil {
		return nil, fmt.Errorf("open WAV file: %w", err)
	}
	defer func() { _ = f.Close() }()

	decoder := wav.NewDecoder(f)
	if !decoder.IsValidFile() {
		return nil, errors.New("not a valid WAV file")
	}
	if decoder.WavAudioFormat != 1 {
		return nil, errNoNativeDecoder
	}

	pcm, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("read PCM buffer: %w", err)
	}

	bitDepth := pcm.SourceBitDepth
	if bitDepth == 0 {
		bitDepth = int(decoder.BitDepth)
	}

	samples := make([]int16, len(pcm.Data))
	for i, v := range pcm.Data {
		if bitDepth == 8 {
			// 8-bit WAV is unsigned
			samples[i] = int16((v - 128) << 8)
			continue
		}
		samples[i] = toInt16(int32(v), bitDepth)
	}

	return NewBuffer(pcm.Format.SampleRate, pcm.Format.NumChannels, samples)
}

// decodeFLAC reads a whole FLAC stream frame by frame.
func decodeFLAC(path string) (*Buffer, error) {
	stream, err := flac.ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("parse FLAC file: %w", err)
	}
	defer func() { _ = stream.Close() }()

	channels := int(stream.Info.NChannels)
	bitDepth := int(stream.Info.BitsPerSample)
	samples := make([]int16, 0, int(stream.Info.NSamples)*channels)

	for {
		frame, err := stream.ParseNext()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse FLAC frame: %w", err)
		}

		for i := 0; i < int(frame.BlockSize); i++ {
			for ch := 0; ch < channels; ch++ {
				samples = append(samples, toInt16(frame.Subframes[ch].Samples[i], bitDepth))
			}
		}
	}

	return NewBuffer(int(stream.Info.SampleRate), channels, samples)
}

// toInt16 scales a signed sample of the given bit depth to 16 bits.
func toInt16(sample int32, bitDepth int) int16 {
	switch {
	case bitDepth > 16:
		return int16(sample >> (bitDepth - 16))
	case bitDepth < 16 && bitDepth > 0:
		return int16(sample << (16 - bitDepth))
	default:
		return int16(sample)
	}
}
