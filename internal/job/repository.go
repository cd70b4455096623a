package job

import (
	"context"
	"errors"
)

// ErrJobNotFound is returned when no split job has the requested ID.
var ErrJobNotFound = errors.New("job not found")

// Repository stores split jobs. Implementations hand out snapshots: a job
// returned by FindByID or List is not shared with the store, and changes
// become visible to other readers only through Save.
type Repository interface {
	// Save inserts or replaces the job with the same ID.
	Save(ctx context.Context, job *Job) error

	// FindByID returns the job or an error wrapping ErrJobNotFound.
	FindByID(ctx context.Context, id string) (*Job, error)

	// List returns every job, oldest first.
	List(ctx context.Context) ([]*Job, error)

	// Delete removes the job or returns an error wrapping ErrJobNotFound.
	Delete(ctx context.Context, id string) error
}
