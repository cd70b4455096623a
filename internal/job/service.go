package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/maauso/albumsplit/internal/album"
	"github.com/maauso/albumsplit/internal/metrics"
)

// Static errors for the split service.
var (
	// ErrJobActive is returned when deleting a job that has not finished.
	ErrJobActive = errors.New("job is still active")
	// ErrJobFinished is returned when cancelling a job that already finished.
	ErrJobFinished = errors.New("job already finished")
	// ErrInvalidInput is returned for split requests missing required fields.
	ErrInvalidInput = errors.New("invalid job input")
)

// Splitter is the album use case a job runs.
type Splitter interface {
	Load(ctx context.Context, path string) (*album.Album, error)
	Split(ctx context.Context, a *album.Album, input album.SplitInput) (*album.SplitOutput, error)
}

// SplitInput contains the parameters of a split job.
type SplitInput struct {
	// SourcePath is the album recording to split.
	SourcePath string
	// Text is the user-edited list of "MM:SS label" lines.
	Text string
	// Format optionally overrides the default output format.
	Format string
}

// SplitService creates split jobs and runs them in the background.
// At most maxConcurrent jobs run at once; the rest wait IN_QUEUE.
type SplitService struct {
	repo    Repository
	albums  Splitter
	logger  *slog.Logger
	metrics *metrics.Metrics
	sem     chan struct{}

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
	wg      sync.WaitGroup
}

// NewSplitService creates a new SplitService. maxConcurrent below 1 is treated as 1.
func NewSplitService(repo Repository, albums Splitter, logger *slog.Logger, maxConcurrent int) *SplitService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SplitService{
		repo:    repo,
		albums:  albums,
		logger:  logger,
		sem:     make(chan struct{}, max(maxConcurrent, 1)),
		cancels: make(map[string]context.CancelFunc),
	}
}

// SetMetrics configures the metrics sink.
func (s *SplitService) SetMetrics(m *metrics.Metrics) {
	s.metrics = m
}

// CreateJob creates a new job and persists it in IN_QUEUE status.
func (s *SplitService) CreateJob(ctx context.Context, input SplitInput) (*Job, error) {
	job, err := s.newJob(input)
	if err != nil {
		return nil, err
	}
	if err := s.saveNew(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

func (s *SplitService) newJob(input SplitInput) (*Job, error) {
	if strings.TrimSpace(input.SourcePath) == "" {
		return nil, fmt.Errorf("%w: source path is required", ErrInvalidInput)
	}

	job := New()
	job.SourcePath = input.SourcePath
	job.Text = input.Text
	job.Format = input.Format

	s.logger.Info("creating split job",
		slog.String("job_id", job.ID),
		slog.String("source", input.SourcePath),
		slog.String("format", input.Format),
	)
	return job, nil
}

func (s *SplitService) saveNew(ctx context.Context, job *Job) error {
	if err := s.repo.Save(ctx, job); err != nil {
		s.logger.Error("failed to save job",
			slog.String("job_id", job.ID),
			slog.String("error", err.Error()),
		)
		return err
	}
	return nil
}

// Submit creates a job and runs it on its own goroutine. The job outlives
// ctx; use Cancel to stop it.
func (s *SplitService) Submit(ctx context.Context, input SplitInput) (*Job, error) {
	job, err := s.newJob(input)
	if err != nil {
		return nil, err
	}

	// The cancel func is registered before the job becomes visible, so a
	// Cancel racing with Submit always finds it.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.mu.Lock()
	s.cancels[job.ID] = cancel
	s.mu.Unlock()

	if err := s.saveNew(ctx, job); err != nil {
		s.forget(job.ID)
		return nil, err
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.forget(job.ID)
		_ = s.Process(runCtx, job)
	}()

	return job.Clone(), nil
}

// Process runs job to a terminal status. It waits for a free slot, loads
// the album and splits it, saving progress after every written track.
// The returned error is the reason the job did not complete.
func (s *SplitService) Process(ctx context.Context, job *Job) error {
	log := s.logger.With(slog.String("job_id", job.ID))

	select {
	case s.sem <- struct{}{}:
		defer func() { <-s.sem }()
	case <-ctx.Done():
		s.finish(ctx, job, false, ctx.Err())
		return ctx.Err()
	}

	// cancelled while waiting for a slot
	if err := ctx.Err(); err != nil {
		s.finish(ctx, job, false, err)
		return err
	}

	if err := job.Start(); err != nil {
		log.Warn("job not started", slog.String("status", string(job.GetStatus())))
		return err
	}
	s.metrics.JobStarted()
	s.save(ctx, job)
	log.Info("split job started", slog.String("source", job.SourcePath))

	a, err := s.albums.Load(ctx, job.SourcePath)
	if err != nil {
		s.finish(ctx, job, true, err)
		return err
	}
	job.SetAlbum(a.Name)
	s.save(ctx, job)

	out, err := s.albums.Split(ctx, a, album.SplitInput{
		Text:   job.Text,
		Format: job.Format,
		Progress: func(done, total int) {
			job.ReportProgress(done, total)
			s.save(ctx, job)
		},
	})
	if out != nil {
		job.SetResult(out.OutputDir, out.Tracks)
	}

	s.finish(ctx, job, true, err)
	return err
}

// finish moves job to its terminal status and persists it.
func (s *SplitService) finish(ctx context.Context, job *Job, started bool, cause error) {
	log := s.logger.With(slog.String("job_id", job.ID))

	var err error
	switch {
	case cause == nil:
		err = job.Complete()
	case errors.Is(cause, context.Canceled), ctx.Err() != nil:
		err = job.Cancel()
	default:
		err = job.Fail(cause.Error())
	}
	if err != nil {
		log.Error("failed to finish job",
			slog.String("status", string(job.GetStatus())),
			slog.String("error", err.Error()),
		)
		return
	}

	status := job.GetStatus()
	s.metrics.JobFinished(string(status), started)
	s.save(context.WithoutCancel(ctx), job)

	if cause != nil {
		log.Warn("split job stopped",
			slog.String("status", string(status)),
			slog.String("error", cause.Error()),
		)
		return
	}
	log.Info("split job completed", slog.Int("tracks", len(job.Clone().Tracks)))
}

func (s *SplitService) save(ctx context.Context, job *Job) {
	if err := s.repo.Save(ctx, job); err != nil {
		s.logger.Error("failed to save job",
			slog.String("job_id", job.ID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *SplitService) forget(jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cancel, ok := s.cancels[jobID]; ok {
		cancel()
		delete(s.cancels, jobID)
	}
}

// GetJob retrieves a job by ID.
func (s *SplitService) GetJob(ctx context.Context, id string) (*Job, error) {
	return s.repo.FindByID(ctx, id)
}

// ListJobs returns all jobs, oldest first.
func (s *SplitService) ListJobs(ctx context.Context) ([]*Job, error) {
	return s.repo.List(ctx)
}

// Cancel requests cancellation of a queued or running job. A running job
// stops before its next track; the track being written is finished first.
func (s *SplitService) Cancel(ctx context.Context, id string) (*Job, error) {
	job, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.IsTerminal() {
		return nil, fmt.Errorf("%w: %s is %s", ErrJobFinished, id, job.Status)
	}

	s.mu.Lock()
	cancel, ok := s.cancels[id]
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s is not running", ErrJobFinished, id)
	}

	s.logger.Info("cancelling split job", slog.String("job_id", id))
	cancel()
	return job, nil
}

// DeleteJob removes a finished job. Written tracks are left on disk.
func (s *SplitService) DeleteJob(ctx context.Context, id string) error {
	job, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if !job.IsTerminal() {
		return fmt.Errorf("%w: %s is %s", ErrJobActive, id, job.Status)
	}
	return s.repo.Delete(ctx, id)
}

// Wait blocks until every submitted job has finished.
func (s *SplitService) Wait() {
	s.wg.Wait()
}

// Shutdown cancels every unfinished job and waits for them, or for ctx.
func (s *SplitService) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	for _, cancel := range s.cancels {
		cancel()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
