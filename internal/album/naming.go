package album

import (
	"path/filepath"
	"strings"
	"unicode"
)

// UnknownAlbum is used when an album name sanitizes to nothing.
const UnknownAlbum = "Unknown_Album"

// SanitizeName keeps letters, digits, spaces, underscores and hyphens of
// name and trims surrounding spaces.
func SanitizeName(name string) string {
	clean := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			return r
		case r == ' ', r == '_', r == '-':
			return r
		}
		return -1
	}, name)

	clean = strings.TrimSpace(clean)
	if clean == "" {
		return UnknownAlbum
	}
	return clean
}

// OutputDir returns the directory tracks of albumName are written to:
// a sibling of the source file named after the sanitized album.
func OutputDir(sourcePath, albumName string) string {
	return filepath.Join(filepath.Dir(sourcePath), SanitizeName(albumName))
}
