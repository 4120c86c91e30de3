package handlers

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"psdprocessor/internal/domain"
	"psdprocessor/internal/storage"
	"psdprocessor/pkg/zip"

	"github.com/go-chi/chi/v5"
)

// GetResult serves one generated artifact from a job's output directory.
func (a *App) GetResult(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	filename := chi.URLParam(r, "filename")

	path, err := a.Layout.Artifact(jobID, filename)
	if err != nil {
		a.fail(w, fmt.Errorf("%w: file not found", domain.ErrNotFound))
		return
	}
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		a.fail(w, fmt.Errorf("%w: file not found", domain.ErrNotFound))
		return
	}
	http.ServeFile(w, r, path)
}

// GetArchive streams every artifact of a job as one zip download.
func (a *App) GetArchive(w http.ResponseWriter, r *http.Request) {
	jobID, err := storage.SanitizeFilename(chi.URLParam(r, "job_id"))
	if err != nil {
		a.fail(w, fmt.Errorf("%w: job not found", domain.ErrNotFound))
		return
	}

	names, err := a.Layout.ListArtifacts(jobID)
	if err != nil || len(names) == 0 {
		a.fail(w, fmt.Errorf("%w: job not found", domain.ErrNotFound))
		return
	}
	outputDir, err := a.Layout.OutputDir(jobID)
	if err != nil {
		a.fail(w, fmt.Errorf("%w: job not found", domain.ErrNotFound))
		return
	}

	entries := make([]zip.Entry, 0, len(names))
	for _, name := range names {
		entries = append(entries, zip.Entry{Name: name, Path: filepath.Join(outputDir, name)})
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=job-%s.zip", jobID))
	w.WriteHeader(http.StatusOK)
	if err := zip.WriteArchive(w, entries); err != nil {
		// The status is already sent; a truncated stream is the client's signal.
		a.Logger.Error().Err(err).Str("job_id", jobID).Msg("archive stream failed")
	}
}
