package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"psdprocessor/internal/domain"
	"psdprocessor/internal/export"
	"psdprocessor/internal/intake"

	"github.com/google/uuid"
)

// formMemoryLimit caps how much of a multipart body stays in memory;
// larger uploads spill to temp files.
const formMemoryLimit = 32 << 20

// ProcessPSD accepts a document by upload or URL, renders every variant
// the export policy produces, and reports the finished job.
func (a *App) ProcessPSD(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, a.Config.MaxUploadBytes)

	req, opts, err := parseProcessForm(r)
	if err != nil {
		a.fail(w, err)
		return
	}
	if c, ok := req.File.(io.Closer); ok {
		defer c.Close()
	}

	jobID := uuid.NewString()
	logger := a.Logger.With().Str("job_id", jobID).Logger()

	inputPath, err := a.Resolver.Resolve(r.Context(), jobID, req)
	if err != nil {
		a.fail(w, err)
		return
	}
	logger.Info().Str("input", filepath.Base(inputPath)).Msg("document staged")

	outputDir, err := a.Layout.OutputDir(jobID)
	if err != nil {
		a.fail(w, err)
		return
	}
	names, err := a.Exporter.Run(r.Context(), inputPath, outputDir, opts)
	if err != nil {
		a.fail(w, err)
		return
	}
	logger.Info().Int("artifacts", len(names)).Msg("job completed")

	if a.Mirror != nil {
		if err := a.Mirror.UploadAll(r.Context(), jobID, outputDir, names); err != nil {
			logger.Warn().Err(err).Msg("mirror upload failed")
		}
	}

	job := &domain.Job{
		ID:             jobID,
		Status:         domain.JobStatusCompleted,
		InputFile:      inputPath,
		OutputDir:      outputDir,
		GeneratedFiles: names,
	}
	a.json(w, http.StatusOK, reportJob(job))
}

// parseProcessForm reads the multipart or urlencoded form into an intake
// request plus export options. Oversized bodies surface as
// *http.MaxBytesError from the form parsers.
func parseProcessForm(r *http.Request) (intake.Request, export.Options, error) {
	var req intake.Request
	var opts export.Options

	if err := r.ParseMultipartForm(formMemoryLimit); err != nil {
		if !errors.Is(err, http.ErrNotMultipart) {
			return req, opts, formError(err)
		}
		if err := r.ParseForm(); err != nil {
			return req, opts, formError(err)
		}
	}

	if r.MultipartForm != nil {
		file, header, err := r.FormFile("file")
		switch {
		case err == nil:
			req.File = file
			req.Filename = header.Filename
		case errors.Is(err, http.ErrMissingFile):
			// no upload part; the url field may still carry the source
		default:
			return req, opts, fmt.Errorf("%w: malformed file part: %v", domain.ErrInvalidRequest, err)
		}
	}

	req.URL = strings.TrimSpace(r.FormValue("url"))

	opts.Format = strings.TrimSpace(r.FormValue("output_format"))
	if q := strings.TrimSpace(r.FormValue("quality")); q != "" {
		quality, err := strconv.Atoi(q)
		if err != nil {
			return req, opts, fmt.Errorf("%w: quality must be an integer", domain.ErrInvalidRequest)
		}
		opts.Quality = quality
	}
	return req, opts, nil
}

func formError(err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return err
	}
	return fmt.Errorf("%w: malformed form body: %v", domain.ErrInvalidRequest, err)
}
