package segment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maauso/albumsplit/internal/timestamp"
)

// assertCovers checks that segments are contiguous and span [0, totalMs].
func assertCovers(t *testing.T, segments []Segment, totalMs int64) {
	t.Helper()
	require.NotEmpty(t, segments)
	assert.Equal(t, int64(0), segments[0].StartMs)
	assert.Equal(t, totalMs, segments[len(segments)-1].EndMs)
	for i, s := range segments {
		assert.Equal(t, i+1, s.Index)
		assert.Less(t, s.StartMs, s.EndMs)
		if i > 0 {
			assert.Equal(t, segments[i-1].EndMs, s.StartMs)
		}
	}
}

func TestPlan_EndToEndExample(t *testing.T) {
	points := timestamp.ParseText("01:30 Intro\n03:00 Track Two")

	got, err := Plan(points, 300_000, DefaultMinSegmentMs)
	require.NoError(t, err)

	assert.Equal(t, []Segment{
		{Index: 1, StartMs: 0, EndMs: 90_000, Label: StartLabel, Sentinel: true},
		{Index: 2, StartMs: 90_000, EndMs: 180_000, Label: "Intro"},
		{Index: 3, StartMs: 180_000, EndMs: 300_000, Label: "Track Two"},
	}, got)
	assertCovers(t, got, 300_000)

	names := make([]string, len(got))
	for i, s := range got {
		names[i] = FileName(s, "ext")
	}
	assert.Equal(t, []string{"track_01.ext", "02_Intro.ext", "03_Track Two.ext"}, names)
}

func TestPlan_SortsUnorderedPoints(t *testing.T) {
	points := []timestamp.Point{
		{TimeMs: 200_000, Label: "C"},
		{TimeMs: 50_000, Label: "A"},
		{TimeMs: 120_000, Label: "B"},
	}

	got, err := Plan(points, 240_000, DefaultMinSegmentMs)
	require.NoError(t, err)
	assertCovers(t, got, 240_000)

	labels := make([]string, len(got))
	for i, s := range got {
		labels[i] = s.Label
	}
	assert.Equal(t, []string{StartLabel, "A", "B", "C"}, labels)
}

func TestPlan_OnlySentinels(t *testing.T) {
	got, err := Plan(nil, 60_000, DefaultMinSegmentMs)
	require.NoError(t, err)
	require.Len(t, got, 1)

	assert.Equal(t, Segment{Index: 1, StartMs: 0, EndMs: 60_000, Label: StartLabel, Sentinel: true}, got[0])
	assert.Empty(t, got[0].FileLabel())
	assert.Equal(t, "track_01.mp3", FileName(got[0], "mp3"))
}

func TestPlan_InvalidDuration(t *testing.T) {
	for _, total := range []int64{0, -1} {
		_, err := Plan([]timestamp.Point{{TimeMs: 10}}, total, DefaultMinSegmentMs)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidInput)
	}
}

func TestPlan_DropsShortSegmentsWithoutMerging(t *testing.T) {
	points := []timestamp.Point{
		{TimeMs: 0, Label: "A"},
		{TimeMs: 300, Label: "B"},
		{TimeMs: 600, Label: "C"},
	}

	got, err := Plan(points, 10_000, 500)
	require.NoError(t, err)

	// Start->A (0ms), A->B (300ms) and B->C (300ms) are all dropped
	assert.Equal(t, []Segment{
		{Index: 1, StartMs: 600, EndMs: 10_000, Label: "C"},
	}, got)
}

func TestPlan_MinimumBoundaryIsInclusive(t *testing.T) {
	tests := []struct {
		name     string
		gapMs    int64
		wantKept bool
	}{
		{"exactly minimum is kept", 500, true},
		{"one below minimum is dropped", 499, false},
		{"above minimum is kept", 501, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			points := []timestamp.Point{
				{TimeMs: 10_000, Label: "Short"},
				{TimeMs: 10_000 + tt.gapMs, Label: "Next"},
			}

			got, err := Plan(points, 20_000, 500)
			require.NoError(t, err)

			var found bool
			for _, s := range got {
				if s.Label == "Short" {
					found = true
					assert.Equal(t, tt.gapMs, s.DurationMs())
				}
				assert.GreaterOrEqual(t, s.DurationMs(), int64(500))
			}
			assert.Equal(t, tt.wantKept, found)
		})
	}
}

func TestPlan_IndicesCompactAfterDrops(t *testing.T) {
	points := []timestamp.Point{
		{TimeMs: 60_000, Label: "One"},
		{TimeMs: 60_100, Label: "Dup"},
		{TimeMs: 120_000, Label: "Two"},
	}

	got, err := Plan(points, 180_000, DefaultMinSegmentMs)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, 1, got[0].Index)
	assert.Equal(t, StartLabel, got[0].Label)
	assert.Equal(t, 2, got[1].Index)
	assert.Equal(t, "Dup", got[1].Label)
	assert.Equal(t, 3, got[2].Index)
	assert.Equal(t, "Two", got[2].Label)
}

func TestPlan_AllSegmentsDropped(t *testing.T) {
	_, err := Plan([]timestamp.Point{{TimeMs: 200, Label: "X"}}, 400, DefaultMinSegmentMs)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoValidSegments)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestPlan_StableOnEqualTimes(t *testing.T) {
	points := []timestamp.Point{
		{TimeMs: 30_000, Label: "First"},
		{TimeMs: 30_000, Label: "Second"},
	}

	got, err := Plan(points, 60_000, 0)
	require.NoError(t, err)

	// First->Second is zero length and dropped; Second starts the next track
	require.Len(t, got, 2)
	assert.Equal(t, "Second", got[1].Label)
	assert.Equal(t, int64(30_000), got[1].StartMs)
}

func TestPlan_UserPointAtZeroReplacesStartLabel(t *testing.T) {
	got, err := Plan([]timestamp.Point{{TimeMs: 0, Label: "Opening"}}, 30_000, DefaultMinSegmentMs)
	require.NoError(t, err)
	require.Len(t, got, 1)

	assert.Equal(t, "Opening", got[0].Label)
	assert.False(t, got[0].Sentinel)
	assert.Equal(t, "01_Opening.mp3", FileName(got[0], "mp3"))
}

func TestPlan_PointAtOrAfterEnd(t *testing.T) {
	points := []timestamp.Point{
		{TimeMs: 30_000, Label: "Middle"},
		{TimeMs: 60_000, Label: "AtEnd"},
		{TimeMs: 90_000, Label: "PastEnd"},
	}

	got, err := Plan(points, 60_000, DefaultMinSegmentMs)
	require.NoError(t, err)
	assertCovers(t, got, 60_000)
	assert.Len(t, got, 2)
}

func TestFileName(t *testing.T) {
	tests := []struct {
		name    string
		segment Segment
		ext     string
		want    string
	}{
		{"empty label", Segment{Index: 4}, "ext", "track_04.ext"},
		{"with label", Segment{Index: 1, Label: "My Song"}, "ext", "01_My Song.ext"},
		{"sentinel label hidden", Segment{Index: 1, Label: StartLabel, Sentinel: true}, "mp3", "track_01.mp3"},
		{"three digit index", Segment{Index: 120, Label: "Late"}, "mp3", "120_Late.mp3"},
		{"dotted extension", Segment{Index: 2, Label: "B"}, ".flac", "02_B.flac"},
		{"separators replaced", Segment{Index: 3, Label: "AC/DC\\Live"}, "mp3", "03_AC_DC_Live.mp3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FileName(tt.segment, tt.ext))
		})
	}
}
