// Package server provides the HTTP API for albumsplit.
// It includes handlers, middleware, routes, and DTOs separated from domain types.
package server

import (
	"time"

	"github.com/maauso/albumsplit/internal/album"
	"github.com/maauso/albumsplit/internal/job"
	"github.com/maauso/albumsplit/internal/timestamp"
)

// AnalyzeRequest is the HTTP request body for silence analysis.
type AnalyzeRequest struct {
	// Path is the album recording on the server's filesystem.
	Path string `json:"path" validate:"required"`
	// MinSilenceMs overrides the minimum silence length.
	MinSilenceMs *int `json:"min_silence_ms,omitempty" validate:"omitempty,min=1"`
	// ThresholdDB overrides the silence threshold in dBFS.
	ThresholdDB *float64 `json:"threshold_db,omitempty" validate:"omitempty,lte=0"`
}

// PointResponse is one suggested split point.
type PointResponse struct {
	// TimeMs is the position in milliseconds.
	TimeMs int64 `json:"time_ms"`
	// Timestamp is TimeMs formatted as MM:SS.
	Timestamp string `json:"timestamp"`
}

// IntervalResponse is one detected silence.
type IntervalResponse struct {
	StartMs int64 `json:"start_ms"`
	EndMs   int64 `json:"end_ms"`
}

// AnalyzeResponse is the HTTP response for silence analysis.
type AnalyzeResponse struct {
	// Album is the resolved album name.
	Album string `json:"album"`
	// DurationMs is the recording length.
	DurationMs int64 `json:"duration_ms"`
	// Suggestions is the editable "MM:SS " text, one line per point.
	Suggestions string `json:"suggestions"`
	// Points are the suggested split points.
	Points []PointResponse `json:"points"`
	// Silences are the detected intervals the points were derived from.
	Silences []IntervalResponse `json:"silences"`
}

// CreateJobRequest is the HTTP request body for creating a split job.
type CreateJobRequest struct {
	// Path is the album recording on the server's filesystem.
	Path string `json:"path" validate:"required"`
	// Text is the user-edited list of "MM:SS label" lines.
	Text string `json:"text" validate:"required"`
	// Format optionally overrides the configured output format.
	Format string `json:"format,omitempty" validate:"omitempty,oneof=mp3 wav flac ogg m4a aac"`
}

// CreateJobResponse is the HTTP response after creating a job.
type CreateJobResponse struct {
	// ID is the unique identifier for the created job.
	ID string `json:"id"`
	// Status is the initial job status.
	Status string `json:"status"`
}

// JobResponse is the HTTP response for getting job details.
type JobResponse struct {
	ID          string        `json:"id"`
	Status      string        `json:"status"`
	Progress    int           `json:"progress"`
	Error       string        `json:"error,omitempty"`
	SourcePath  string        `json:"source_path"`
	Format      string        `json:"format,omitempty"`
	Album       string        `json:"album,omitempty"`
	OutputDir   string        `json:"output_dir,omitempty"`
	TotalTracks int           `json:"total_tracks"`
	Tracks      []album.Track `json:"tracks"`
	CreatedAt   time.Time     `json:"created_at"`
	StartedAt   *time.Time    `json:"started_at,omitempty"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
}

// ListJobsResponse is the HTTP response for listing jobs.
type ListJobsResponse struct {
	Jobs []JobResponse `json:"jobs"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the human-readable error message.
	Error string `json:"error"`
	// Code is the error code for programmatic handling.
	Code string `json:"code"`
}

// HealthResponse is the HTTP response for the health check endpoint.
type HealthResponse struct {
	// Status is the health status of the service.
	Status string `json:"status"`
}

func newAnalyzeResponse(a *album.Album, out *album.AnalyzeOutput) AnalyzeResponse {
	resp := AnalyzeResponse{
		Album:       a.Name,
		DurationMs:  a.DurationMs(),
		Suggestions: out.Text,
		Points:      make([]PointResponse, 0, len(out.Points)),
		Silences:    make([]IntervalResponse, 0, len(out.Intervals)),
	}
	for _, p := range out.Points {
		resp.Points = append(resp.Points, PointResponse{
			TimeMs:    p.TimeMs,
			Timestamp: timestamp.FormatTimestamp(p.TimeMs),
		})
	}
	for _, iv := range out.Intervals {
		resp.Silences = append(resp.Silences, IntervalResponse{StartMs: iv.StartMs, EndMs: iv.EndMs})
	}
	return resp
}

func newJobResponse(j *job.Job) JobResponse {
	resp := JobResponse{
		ID:          j.ID,
		Status:      string(j.Status),
		Progress:    j.Progress,
		Error:       j.Error,
		SourcePath:  j.SourcePath,
		Format:      j.Format,
		Album:       j.AlbumName,
		OutputDir:   j.OutputDir,
		TotalTracks: j.TotalTracks,
		Tracks:      j.Tracks,
		CreatedAt:   j.CreatedAt,
	}
	if resp.Tracks == nil {
		resp.Tracks = []album.Track{}
	}
	if !j.StartedAt.IsZero() {
		resp.StartedAt = &j.StartedAt
	}
	if !j.CompletedAt.IsZero() {
		resp.CompletedAt = &j.CompletedAt
	}
	return resp
}
