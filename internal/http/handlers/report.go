package handlers

import (
	"errors"
	"net/http"
	"path/filepath"

	"psdprocessor/internal/domain"
)

type errorResponse struct {
	Error   string `json:"error"`
	Success bool   `json:"success"`
}

type processResponse struct {
	JobID          string   `json:"job_id"`
	Status         string   `json:"status"`
	InputFile      string   `json:"input_file"`
	OutputDir      string   `json:"output_dir"`
	GeneratedFiles []string `json:"generated_files"`
	Success        bool     `json:"success"`
}

// reportJob shapes a finished job for the API. Only the input's base
// name is exposed, never the staging path.
func reportJob(job *domain.Job) processResponse {
	files := job.GeneratedFiles
	if files == nil {
		files = []string{}
	}
	return processResponse{
		JobID:          job.ID,
		Status:         string(job.Status),
		InputFile:      filepath.Base(job.InputFile),
		OutputDir:      job.OutputDir,
		GeneratedFiles: files,
		Success:        job.Status == domain.JobStatusCompleted,
	}
}

func statusForError(err error) int {
	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxErr):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, domain.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrFetch):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
