package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maauso/albumsplit/internal/audio"
)

// writeAlbum writes an 8 second mono WAV: 3s of tone, 2s of silence, 3s of tone.
func writeAlbum(t *testing.T) string {
	t.Helper()
	const rate = 8000

	samples := make([]int16, 8*rate)
	for i := range samples {
		if i < 3*rate || i >= 5*rate {
			samples[i] = 10000
			if i%2 == 1 {
				samples[i] = -10000
			}
		}
	}
	buf, err := audio.NewBuffer(rate, 1, samples)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "live.wav")
	require.NoError(t, audio.NewFFmpegCodec("").Export(context.Background(), buf, path, "wav"))
	return path
}

func TestRun_Analyze(t *testing.T) {
	path := writeAlbum(t)

	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{"analyze", "-min-silence", "1000", "-threshold", "-40", path}, nil, &stdout, &stderr)
	require.NoError(t, err)

	assert.Equal(t, "00:04 \n", stdout.String())
}

func TestRun_Split(t *testing.T) {
	path := writeAlbum(t)
	outDir := filepath.Join(t.TempDir(), "tracks")

	var stdout, stderr bytes.Buffer
	err := run(context.Background(),
		[]string{"split", "-format", "wav", "-out", outDir, path},
		strings.NewReader("00:04 Outro\n"), &stdout, &stderr)
	require.NoError(t, err)

	want := []string{
		filepath.Join(outDir, "track_01.wav"),
		filepath.Join(outDir, "02_Outro.wav"),
	}
	assert.Equal(t, strings.Join(want, "\n")+"\n", stdout.String())
	for _, p := range want {
		_, err := os.Stat(p)
		assert.NoError(t, err)
	}
}

func TestRun_SplitPointsFile(t *testing.T) {
	path := writeAlbum(t)
	outDir := filepath.Join(t.TempDir(), "tracks")
	pointsPath := filepath.Join(t.TempDir(), "points.txt")
	require.NoError(t, os.WriteFile(pointsPath, []byte("00:02 A\n00:05 B\n"), 0o600))

	var stdout, stderr bytes.Buffer
	err := run(context.Background(),
		[]string{"split", "-points", pointsPath, "-format", "wav", "-out", outDir, path},
		nil, &stdout, &stderr)
	require.NoError(t, err)

	assert.Len(t, strings.Split(strings.TrimSpace(stdout.String()), "\n"), 3)
}

func TestRun_Errors(t *testing.T) {
	path := writeAlbum(t)

	tests := []struct {
		name  string
		args  []string
		stdin string
	}{
		{"no command", nil, ""},
		{"unknown command", []string{"merge", path}, ""},
		{"missing file", []string{"analyze"}, ""},
		{"too many files", []string{"analyze", path, path}, ""},
		{"unknown flag", []string{"analyze", "-bogus", path}, ""},
		{"bad threshold", []string{"analyze", "-threshold", "6", path}, ""},
		{"no points", []string{"split", "-format", "wav", path}, "just words\n"},
		{"file not found", []string{"analyze", filepath.Join(t.TempDir(), "missing.wav")}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			err := run(context.Background(), tt.args, strings.NewReader(tt.stdin), &stdout, &stderr)
			assert.Error(t, err)
			assert.Empty(t, stdout.String())
		})
	}
}
