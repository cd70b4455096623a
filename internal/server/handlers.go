package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/maauso/albumsplit/internal/album"
	"github.com/maauso/albumsplit/internal/audio"
	"github.com/maauso/albumsplit/internal/job"
	"github.com/maauso/albumsplit/internal/timestamp"
)

// AlbumService is the album use case behind /albums.
type AlbumService interface {
	Load(ctx context.Context, path string) (*album.Album, error)
	AnalyzeWith(ctx context.Context, a *album.Album, opts audio.DetectOpts) (*album.AnalyzeOutput, error)
	DetectOpts() audio.DetectOpts
}

// JobService is the split job use case behind /jobs.
type JobService interface {
	Submit(ctx context.Context, input job.SplitInput) (*job.Job, error)
	GetJob(ctx context.Context, id string) (*job.Job, error)
	ListJobs(ctx context.Context) ([]*job.Job, error)
	Cancel(ctx context.Context, id string) (*job.Job, error)
	DeleteJob(ctx context.Context, id string) error
}

// defaultMaxBodyBytes bounds request bodies; split texts are small.
const defaultMaxBodyBytes = 1 << 20

// Handlers contains the HTTP handlers for the API.
type Handlers struct {
	albums       AlbumService
	jobs         JobService
	validator    *validator.Validate
	logger       *slog.Logger
	maxBodyBytes int64
}

// HandlerOption is a function that configures a Handlers instance.
type HandlerOption func(*Handlers)

// WithMaxBodyBytes limits the size of JSON request bodies.
func WithMaxBodyBytes(n int64) HandlerOption {
	return func(h *Handlers) {
		if n > 0 {
			h.maxBodyBytes = n
		}
	}
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(albums AlbumService, jobs JobService, logger *slog.Logger, opts ...HandlerOption) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handlers{
		albums:       albums,
		jobs:         jobs,
		validator:    validator.New(),
		logger:       logger,
		maxBodyBytes: defaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Health handles GET /health requests.
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// Analyze handles POST /albums/analyze requests.
func (h *Handlers) Analyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if !h.decode(w, r, &req) {
		return
	}

	opts := h.albums.DetectOpts()
	if req.MinSilenceMs != nil {
		opts.MinSilenceMs = *req.MinSilenceMs
	}
	if req.ThresholdDB != nil {
		opts.ThresholdDB = *req.ThresholdDB
	}

	a, err := h.albums.Load(r.Context(), req.Path)
	if err != nil {
		h.writeAlbumError(w, req.Path, err)
		return
	}

	out, err := h.albums.AnalyzeWith(r.Context(), a, opts)
	if err != nil {
		h.writeAlbumError(w, req.Path, err)
		return
	}

	writeJSON(w, http.StatusOK, newAnalyzeResponse(a, out))
}

// CreateJob handles POST /jobs requests.
func (h *Handlers) CreateJob(w http.ResponseWriter, r *http.Request) {
	var req CreateJobRequest
	if !h.decode(w, r, &req) {
		return
	}

	// reject texts without a single usable line before queueing
	if len(timestamp.ParseText(req.Text)) == 0 {
		writeError(w, http.StatusBadRequest, album.ErrNoPoints.Error(), "INVALID_INPUT")
		return
	}

	// The job runs detached from the request context.
	created, err := h.jobs.Submit(r.Context(), job.SplitInput{
		SourcePath: req.Path,
		Text:       req.Text,
		Format:     req.Format,
	})
	if err != nil {
		if errors.Is(err, job.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, err.Error(), "INVALID_INPUT")
			return
		}
		h.logger.Error("failed to create job",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to create job", "JOB_CREATION_FAILED")
		return
	}

	h.logger.Info("job created",
		slog.String("job_id", created.ID),
		slog.String("path", req.Path),
	)

	writeJSON(w, http.StatusAccepted, CreateJobResponse{
		ID:     created.ID,
		Status: string(created.Status),
	})
}

// GetJob handles GET /jobs/{id} requests.
func (h *Handlers) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")
	if jobID == "" {
		writeError(w, http.StatusBadRequest, "job ID is required", "MISSING_JOB_ID")
		return
	}

	found, err := h.jobs.GetJob(r.Context(), jobID)
	if err != nil {
		h.writeJobError(w, jobID, err)
		return
	}

	writeJSON(w, http.StatusOK, newJobResponse(found))
}

// ListJobs handles GET /jobs requests.
func (h *Handlers) ListJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.jobs.ListJobs(r.Context())
	if err != nil {
		h.logger.Error("failed to list jobs", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list jobs", "JOB_FETCH_FAILED")
		return
	}

	resp := ListJobsResponse{Jobs: make([]JobResponse, 0, len(jobs))}
	for _, j := range jobs {
		resp.Jobs = append(resp.Jobs, newJobResponse(j))
	}
	writeJSON(w, http.StatusOK, resp)
}

// CancelJob handles POST /jobs/{id}/cancel requests.
func (h *Handlers) CancelJob(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")
	if jobID == "" {
		writeError(w, http.StatusBadRequest, "job ID is required", "MISSING_JOB_ID")
		return
	}

	cancelled, err := h.jobs.Cancel(r.Context(), jobID)
	if err != nil {
		h.writeJobError(w, jobID, err)
		return
	}

	writeJSON(w, http.StatusAccepted, newJobResponse(cancelled))
}

// DeleteJob handles DELETE /jobs/{id} requests.
func (h *Handlers) DeleteJob(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")
	if jobID == "" {
		writeError(w, http.StatusBadRequest, "job ID is required", "MISSING_JOB_ID")
		return
	}

	if err := h.jobs.DeleteJob(r.Context(), jobID); err != nil {
		h.writeJobError(w, jobID, err)
		return
	}

	h.logger.Info("job deleted", slog.String("job_id", jobID))
	w.WriteHeader(http.StatusNoContent)
}

// decode reads and validates a JSON body, writing the error response itself.
func (h *Handlers) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.logger.Warn("failed to decode request body",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, "invalid JSON body", "INVALID_JSON")
		return false
	}

	if err := h.validator.Struct(dst); err != nil {
		h.logger.Warn("request validation failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
		return false
	}
	return true
}

func (h *Handlers) writeAlbumError(w http.ResponseWriter, path string, err error) {
	switch {
	case album.IsInvalidInput(err):
		writeError(w, http.StatusBadRequest, err.Error(), "INVALID_INPUT")
	case errors.Is(err, audio.ErrDecode):
		writeError(w, http.StatusUnprocessableEntity, err.Error(), "DECODE_FAILED")
	default:
		h.logger.Error("album analysis failed",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "analysis failed", "ANALYSIS_FAILED")
	}
}

func (h *Handlers) writeJobError(w http.ResponseWriter, jobID string, err error) {
	switch {
	case errors.Is(err, job.ErrJobNotFound):
		writeError(w, http.StatusNotFound, "job not found", "JOB_NOT_FOUND")
	case errors.Is(err, job.ErrJobActive):
		writeError(w, http.StatusConflict, err.Error(), "JOB_ACTIVE")
	case errors.Is(err, job.ErrJobFinished):
		writeError(w, http.StatusConflict, err.Error(), "JOB_FINISHED")
	default:
		h.logger.Error("job request failed",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "job request failed", "JOB_FETCH_FAILED")
	}
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// writeError writes an error response in the standard format.
func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
