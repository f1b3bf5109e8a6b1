package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"akiya-radar/internal/contextkeys"
	"akiya-radar/internal/core/domain"
	"akiya-radar/internal/core/port"
	"akiya-radar/internal/scheduler"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type JobHandler struct {
	manager *scheduler.Manager
	jobs    port.JobStoragePort
}

func NewJobHandler(manager *scheduler.Manager, jobs port.JobStoragePort) *JobHandler {
	return &JobHandler{
		manager: manager,
		jobs:    jobs,
	}
}

// CreateJob handles POST /api/v1/jobs
func (h *JobHandler) CreateJob(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context())

	var req CreateJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("Invalid request body", port.Fields{"error": err.Error()})
		WriteJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Source == "" {
		WriteJSONError(w, http.StatusBadRequest, "source is required")
		return
	}

	handlerLogger := logger.WithFields(port.Fields{
		"handler": "CreateJob",
		"source":  req.Source,
	})

	job, err := h.manager.Enqueue(r.Context(), scheduler.JobRequest{
		Source:           req.Source,
		PrefectureCode:   req.PrefectureCode,
		MunicipalityCode: req.MunicipalityCode,
		PriceMax:         req.PriceMax,
	})
	if err != nil {
		if errors.Is(err, scheduler.ErrSourceBusy) {
			handlerLogger.Warn("Source already busy", nil)
			WriteJSONError(w, http.StatusConflict, "Source already has an active job")
			return
		}
		handlerLogger.Error("Failed to enqueue job", err, nil)
		WriteJSONError(w, http.StatusInternalServerError, "Failed to enqueue job")
		return
	}

	handlerLogger.Info("Job accepted", port.Fields{"job_id": job.ID.String()})
	RespondWithJSON(w, http.StatusAccepted, jobToResponse(job))
}

// GetJob handles GET /api/v1/jobs/{jobID}
func (h *JobHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context())

	jobIDStr := chi.URLParam(r, "jobID")
	jobID, err := uuid.Parse(jobIDStr)
	if err != nil {
		logger.Warn("Invalid job ID format", port.Fields{"error": err.Error()})
		WriteJSONError(w, http.StatusBadRequest, "Invalid job ID format")
		return
	}

	job, err := h.jobs.GetJob(r.Context(), jobID)
	if err != nil {
		logger.Error("Failed to load job", err, port.Fields{"job_id": jobIDStr})
		WriteJSONError(w, http.StatusInternalServerError, "Failed to load job")
		return
	}
	if job == nil {
		WriteJSONError(w, http.StatusNotFound, "Job not found")
		return
	}

	RespondWithJSON(w, http.StatusOK, jobToResponse(job))
}

// ListSources handles GET /api/v1/sources
func (h *JobHandler) ListSources(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context())

	sources, err := h.jobs.ListSources(r.Context())
	if err != nil {
		logger.Error("Failed to list sources", err, nil)
		WriteJSONError(w, http.StatusInternalServerError, "Failed to list sources")
		return
	}

	response := make([]SourceResponse, len(sources))
	for i, source := range sources {
		response[i] = SourceResponse{
			Name:               source.Name,
			Enabled:            source.Enabled,
			MinIntervalMinutes: source.MinIntervalMinutes,
			LastCompletedAt:    source.LastCompletedAt,
		}
	}
	RespondWithJSON(w, http.StatusOK, response)
}

func jobToResponse(job *domain.ScrapeJob) JobResponse {
	return JobResponse{
		ID:               job.ID.String(),
		Source:           job.Source,
		Status:           string(job.Status),
		PrefectureCode:   job.PrefectureCode,
		MunicipalityCode: job.MunicipalityCode,
		PriceMax:         job.PriceMax,
		ListingsFound:    job.ListingsFound,
		ListingsNew:      job.ListingsNew,
		ListingsUpdated:  job.ListingsUpdated,
		ErrorSummary:     job.ErrorSummary,
		CreatedAt:        job.CreatedAt,
		StartedAt:        job.StartedAt,
		CompletedAt:      job.CompletedAt,
		HeartbeatAt:      job.HeartbeatAt,
	}
}
