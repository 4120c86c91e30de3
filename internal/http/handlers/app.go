package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"psdprocessor/internal/export"
	"psdprocessor/internal/infra"
	"psdprocessor/internal/intake"
	"psdprocessor/internal/storage"
)

// Resolver stages a request's document into the job's upload directory.
type Resolver interface {
	Resolve(ctx context.Context, jobID string, req intake.Request) (string, error)
}

// Exporter renders a staged document into artifacts under outputDir.
type Exporter interface {
	Run(ctx context.Context, inputPath, outputDir string, opts export.Options) ([]string, error)
}

// Mirror copies generated artifacts to remote storage.
type Mirror interface {
	UploadAll(ctx context.Context, jobID, dir string, names []string) error
}

// App carries the dependencies the HTTP handlers need. Mirror is nil
// when no remote bucket is configured.
type App struct {
	Config   *infra.Config
	Logger   infra.Logger
	Layout   *storage.Layout
	Resolver Resolver
	Exporter Exporter
	Mirror   Mirror
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, msg string) {
	a.json(w, code, errorResponse{Error: msg})
}

// fail translates an error into its HTTP shape.
func (a *App) fail(w http.ResponseWriter, err error) {
	code := statusForError(err)
	msg := err.Error()
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		msg = "request body too large"
	}
	if code >= http.StatusInternalServerError {
		a.Logger.Error().Err(err).Msg("request failed")
	}
	a.error(w, code, msg)
}
