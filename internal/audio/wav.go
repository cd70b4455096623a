package audio

import (
	"fmt"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// wavPCMFormat is the WAVE format tag for integer PCM.
const wavPCMFormat = 1

// writeWAV encodes buf as 16-bit PCM WAV at outPath.
func writeWAV(buf *Buffer, outPath string) error {
	f, err := os.Create(outPath) // #nosec G304 - path is built by the exporter
	if err != nil {
		return fmt.Errorf("create WAV file: %w", err)
	}

	enc := wav.NewEncoder(f, buf.SampleRate, 16, buf.Channels, wavPCMFormat)

	data := make([]int, len(buf.Samples))
	for i, s := range buf.Samples {
		data[i] = int(s)
	}
	pcm := &goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: buf.Channels,
			SampleRate:  buf.SampleRate,
		},
		Data:           data,
		SourceBitDepth: 16,
	}

	if err := enc.Write(pcm); err != nil {
		_ = f.Close()
		return fmt.Errorf("write WAV samples: %w", err)
	}
	if err := enc.Close(); err != nil {
		_ = f.Close()
		return fmt.Errorf("finalize WAV header: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close WAV file: %w", err)
	}
	return nil
}
