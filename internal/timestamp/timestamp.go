// Package timestamp implements the line-oriented text format shared by
// silence suggestions and user-edited split lists.
//
// Grammar, one point per line:
//
//	line  := ws* MM ":" SS (ws+ label)? ws*
//	MM    := non-negative decimal integer (minutes, unbounded)
//	SS    := non-negative decimal integer (seconds, may exceed 59 on input)
//	label := any text; surrounding whitespace is trimmed
//
// Lines that do not match are skipped rather than reported, so pasted track
// listings can be mixed with timestamps freely.
package timestamp

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// Static errors for timestamp token parsing.
var (
	// ErrMalformed is returned when a token is not "minutes:seconds".
	ErrMalformed = errors.New("timestamp: expected minutes:seconds")
	// ErrOutOfRange is returned for negative parts or values that overflow.
	ErrOutOfRange = errors.New("timestamp: value out of range")
)

// Point is one proposed or user-entered split boundary.
type Point struct {
	// TimeMs is the boundary offset from the start of the recording.
	TimeMs int64
	// Label is free text; it may be empty.
	Label string
}

// String renders the point as one line of the text format. An empty label
// still leaves the separating space so the user can type a name after it.
func (p Point) String() string {
	return FormatTimestamp(p.TimeMs) + " " + p.Label
}

// Parse converts lines into points, preserving input order. Blank lines,
// lines without a colon and lines whose first token is not a valid
// timestamp are skipped.
func Parse(lines []string) []Point {
	points := make([]Point, 0, len(lines))
	for _, line := range lines {
		if p, ok := ParseLine(line); ok {
			points = append(points, p)
		}
	}
	return points
}

// ParseText splits text on newlines and parses every line.
func ParseText(text string) []Point {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return Parse(strings.Split(text, "\n"))
}

// ParseLine parses a single line. It reports false when the line should be
// skipped.
func ParseLine(line string) (Point, bool) {
	if !strings.Contains(line, ":") {
		return Point{}, false
	}

	line = strings.TrimLeftFunc(line, unicode.IsSpace)
	token, rest := line, ""
	if i := strings.IndexFunc(line, unicode.IsSpace); i >= 0 {
		token, rest = line[:i], line[i:]
	}

	ms, err := ParseTimestamp(token)
	if err != nil {
		return Point{}, false
	}

	return Point{TimeMs: ms, Label: strings.TrimSpace(rest)}, true
}

// ParseTimestamp converts a "minutes:seconds" token to milliseconds.
func ParseTimestamp(token string) (int64, error) {
	parts := strings.Split(token, ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("%w: %q", ErrMalformed, token)
	}

	minutes, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: minutes %q", ErrMalformed, parts[0])
	}
	seconds, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: seconds %q", ErrMalformed, parts[1])
	}
	if minutes < 0 || seconds < 0 {
		return 0, fmt.Errorf("%w: %q", ErrOutOfRange, token)
	}
	// (minutes*60 + seconds) * 1000 must fit in int64
	if seconds > math.MaxInt64/1000 || minutes > (math.MaxInt64/1000-seconds)/60 {
		return 0, fmt.Errorf("%w: %q", ErrOutOfRange, token)
	}

	return (minutes*60 + seconds) * 1000, nil
}

// FormatTimestamp renders ms as "MM:SS", truncating to whole seconds.
// Minutes are zero-padded to two digits and grow beyond that as needed.
func FormatTimestamp(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	totalSec := ms / 1000
	return fmt.Sprintf("%02d:%02d", totalSec/60, totalSec%60)
}

// Format renders points one per line, joined with "\n".
func Format(points []Point) string {
	lines := make([]string, len(points))
	for i, p := range points {
		lines[i] = p.String()
	}
	return strings.Join(lines, "\n")
}
