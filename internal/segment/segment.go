// Package segment turns split points into the ordered list of track
// segments that gets exported.
package segment

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/maauso/albumsplit/internal/timestamp"
)

// DefaultMinSegmentMs is the shortest segment kept by Plan. Shorter ones are
// treated as accidental duplicate marks.
const DefaultMinSegmentMs = 500

// Labels carried by the implicit boundaries added by Plan.
const (
	StartLabel = "Start"
	EndLabel   = "End"
)

// Static errors for planning.
var (
	// ErrInvalidInput is returned when no segments can be planned from the input.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNoValidSegments is returned when every segment was shorter than the
	// minimum. It wraps ErrInvalidInput.
	ErrNoValidSegments = fmt.Errorf("%w: no valid segments", ErrInvalidInput)
)

// Segment is one track to be exported.
type Segment struct {
	// Index is the 1-based position in the final list.
	Index int
	// StartMs is the inclusive start offset.
	StartMs int64
	// EndMs is the exclusive end offset.
	EndMs int64
	// Label is the label of the starting boundary.
	Label string
	// Sentinel is set when the starting boundary is the implicit start of
	// the recording rather than a user point.
	Sentinel bool
}

// DurationMs returns the segment length.
func (s Segment) DurationMs() int64 {
	return s.EndMs - s.StartMs
}

// FileLabel returns the label used for the output file name. Segments that
// begin at the implicit start boundary have no user label.
func (s Segment) FileLabel() string {
	if s.Sentinel {
		return ""
	}
	return s.Label
}

// boundary is a point plus whether Plan added it.
type boundary struct {
	timestamp.Point
	sentinel bool
}

// Plan builds the segment list for a recording of totalMs milliseconds.
//
// The points are bracketed by an implicit start at 0 and end at totalMs,
// stably sorted by time, and paired into consecutive segments labelled by
// their starting point. Segments shorter than minSegmentMs are dropped
// without merging into their neighbours, and the survivors are numbered
// from 1. Points after totalMs are ignored.
func Plan(points []timestamp.Point, totalMs, minSegmentMs int64) ([]Segment, error) {
	if totalMs <= 0 {
		return nil, fmt.Errorf("%w: duration must be positive, got %d ms", ErrInvalidInput, totalMs)
	}
	// zero-length segments are never kept
	if minSegmentMs < 1 {
		minSegmentMs = 1
	}

	bounds := make([]boundary, 0, len(points)+2)
	bounds = append(bounds, boundary{Point: timestamp.Point{TimeMs: 0, Label: StartLabel}, sentinel: true})
	for _, p := range points {
		if p.TimeMs < 0 || p.TimeMs > totalMs {
			continue
		}
		bounds = append(bounds, boundary{Point: p})
	}
	bounds = append(bounds, boundary{Point: timestamp.Point{TimeMs: totalMs, Label: EndLabel}, sentinel: true})

	sort.SliceStable(bounds, func(i, j int) bool {
		return bounds[i].TimeMs < bounds[j].TimeMs
	})

	segments := make([]Segment, 0, len(bounds)-1)
	for i := 0; i < len(bounds)-1; i++ {
		start, end := bounds[i], bounds[i+1]
		if end.TimeMs-start.TimeMs < minSegmentMs {
			continue
		}
		segments = append(segments, Segment{
			Index:    len(segments) + 1,
			StartMs:  start.TimeMs,
			EndMs:    end.TimeMs,
			Label:    start.Label,
			Sentinel: start.sentinel,
		})
	}

	if len(segments) == 0 {
		return nil, ErrNoValidSegments
	}
	return segments, nil
}

// FileName returns the output file name for a segment: "NN_label.ext" when
// the segment has a file label and "track_NN.ext" otherwise. Path separators
// in labels are replaced so the file stays inside the output directory.
func FileName(s Segment, ext string) string {
	ext = strings.TrimPrefix(ext, ".")
	label := s.FileLabel()
	if label == "" {
		return fmt.Sprintf("track_%02d.%s", s.Index, ext)
	}
	label = strings.NewReplacer("/", "_", "\\", "_").Replace(label)
	return fmt.Sprintf("%02d_%s.%s", s.Index, label, ext)
}
