package audio

import (
	"os"
	"strings"

	"github.com/dhowden/tag"
)

// FileTagReader implements TagReader for ID3, MP4, FLAC and OGG metadata.
type FileTagReader struct{}

// NewFileTagReader creates a new FileTagReader.
func NewFileTagReader() *FileTagReader {
	return &FileTagReader{}
}

// ReadAlbum implements TagReader.ReadAlbum. Any read or parse failure is
// reported as an absent tag.
func (r *FileTagReader) ReadAlbum(path string) (string, bool) {
	f, err := os.Open(path) // #nosec G304 - path is provided by trusted caller
	if err != nil {
		return "", false
	}
	defer func() { _ = f.Close() }()

	m, err := tag.ReadFrom(f)
	if err != nil {
		return "", false
	}

	album := strings.TrimSpace(m.Album())
	if album == "" {
		return "", false
	}
	return album, true
}

// Verify interface implementation at compile time.
var _ TagReader = (*FileTagReader)(nil)
