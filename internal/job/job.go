// Package job provides the split Job aggregate, its state machine and the
// service that runs album splits in the background.
package job

import (
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/maauso/albumsplit/internal/album"
	"github.com/maauso/albumsplit/internal/job/id"
)

// Status represents the current state of a Job.
type Status string

const (
	// StatusInQueue indicates the job is waiting for a free split slot.
	StatusInQueue Status = "IN_QUEUE"
	// StatusRunning indicates the album is being decoded or exported.
	StatusRunning Status = "RUNNING"
	// StatusCompleted indicates every track was written.
	StatusCompleted Status = "COMPLETED"
	// StatusFailed indicates the split stopped with an error.
	StatusFailed Status = "FAILED"
	// StatusCancelled indicates the job was cancelled before it finished.
	StatusCancelled Status = "CANCELLED"
)

// ErrInvalidTransition is returned when an invalid state transition is attempted.
var ErrInvalidTransition = errors.New("invalid state transition")

// validTransitions defines which state transitions are allowed.
var validTransitions = map[Status][]Status{
	StatusInQueue:   {StatusRunning, StatusCancelled},
	StatusRunning:   {StatusCompleted, StatusFailed, StatusCancelled},
	StatusCompleted: {},
	StatusFailed:    {},
	StatusCancelled: {},
}

func canTransition(from, to Status) bool {
	return slices.Contains(validTransitions[from], to)
}

// Job is one request to split an album into tracks.
type Job struct {
	mu sync.RWMutex

	// ID is the unique identifier for this job.
	ID string
	// Status is the current job state.
	Status Status
	// SourcePath is the album recording to split.
	SourcePath string
	// Text is the user-edited list of "MM:SS label" lines.
	Text string
	// Format is the output format of the tracks.
	Format string
	// AlbumName is the resolved album name, set once the source is loaded.
	AlbumName string
	// OutputDir is the directory the tracks are written to.
	OutputDir string
	// Tracks lists the written tracks.
	Tracks []album.Track
	// TotalTracks is the number of planned tracks.
	TotalTracks int
	// Progress is the percentage of completion (0-100).
	Progress int
	// Error contains any error message if the job failed.
	Error string
	// CreatedAt is when the job was created.
	CreatedAt time.Time
	// UpdatedAt is when the job was last updated.
	UpdatedAt time.Time
	// StartedAt is when processing started.
	StartedAt time.Time
	// CompletedAt is when processing finished.
	CompletedAt time.Time
}

// New creates a new Job with a generated ID and initial IN_QUEUE status.
func New() *Job {
	return NewWithID(id.Generate())
}

// NewWithID creates a new Job with the specified ID and initial IN_QUEUE status.
func NewWithID(jobID string) *Job {
	now := time.Now()
	return &Job{
		ID:        jobID,
		Status:    StatusInQueue,
		Tracks:    make([]album.Track, 0),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// TransitionTo attempts to change the job status to the specified state.
// Returns ErrInvalidTransition if the transition is not allowed.
func (j *Job) TransitionTo(status Status) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if !canTransition(j.Status, status) {
		return ErrInvalidTransition
	}

	j.Status = status
	j.UpdatedAt = time.Now()

	switch status {
	case StatusRunning:
		j.StartedAt = j.UpdatedAt
	case StatusCompleted, StatusFailed, StatusCancelled:
		j.CompletedAt = j.UpdatedAt
	}

	return nil
}

// Start transitions the job from IN_QUEUE to RUNNING.
func (j *Job) Start() error {
	return j.TransitionTo(StatusRunning)
}

// Complete transitions the job to COMPLETED and sets progress to 100.
func (j *Job) Complete() error {
	if err := j.TransitionTo(StatusCompleted); err != nil {
		return err
	}
	j.UpdateProgress(100)
	return nil
}

// Fail transitions the job to FAILED state with an error message.
func (j *Job) Fail(errMsg string) error {
	j.mu.Lock()
	j.Error = errMsg
	j.mu.Unlock()
	return j.TransitionTo(StatusFailed)
}

// Cancel transitions the job to CANCELLED state.
func (j *Job) Cancel() error {
	return j.TransitionTo(StatusCancelled)
}

// GetStatus returns the current job status (thread-safe).
func (j *Job) GetStatus() Status {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.Status
}

// SetAlbum records the resolved album name.
func (j *Job) SetAlbum(name string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.AlbumName = name
	j.UpdatedAt = time.Now()
}

// SetResult records the output directory and the written tracks.
func (j *Job) SetResult(outputDir string, tracks []album.Track) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.OutputDir = outputDir
	j.Tracks = slices.Clone(tracks)
	j.UpdatedAt = time.Now()
}

// ReportProgress records done of total tracks written.
func (j *Job) ReportProgress(done, total int) {
	j.mu.Lock()
	j.TotalTracks = total
	j.mu.Unlock()

	if total > 0 {
		j.UpdateProgress(done * 100 / total)
	}
}

// UpdateProgress sets the progress percentage (0-100).
func (j *Job) UpdateProgress(progress int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress = min(max(progress, 0), 100)
	j.UpdatedAt = time.Now()
}

// IsTerminal returns true if the job is in a terminal state.
func (j *Job) IsTerminal() bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return len(validTransitions[j.Status]) == 0
}

// Clone creates a deep copy of the job for safe reads.
func (j *Job) Clone() *Job {
	j.mu.RLock()
	defer j.mu.RUnlock()

	return &Job{
		ID:          j.ID,
		Status:      j.Status,
		SourcePath:  j.SourcePath,
		Text:        j.Text,
		Format:      j.Format,
		AlbumName:   j.AlbumName,
		OutputDir:   j.OutputDir,
		Tracks:      slices.Clone(j.Tracks),
		TotalTracks: j.TotalTracks,
		Progress:    j.Progress,
		Error:       j.Error,
		CreatedAt:   j.CreatedAt,
		UpdatedAt:   j.UpdatedAt,
		StartedAt:   j.StartedAt,
		CompletedAt: j.CompletedAt,
	}
}
