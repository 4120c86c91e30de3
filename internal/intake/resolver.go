package intake

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"psdprocessor/internal/domain"
	"psdprocessor/internal/storage"

	"github.com/rs/zerolog"
)

// acceptedExts are the container types the exporter can open.
var acceptedExts = map[string]bool{".psd": true, ".psb": true}

// Request carries the two mutually exclusive input sources of a process
// call. Exactly one of File or URL must be set.
type Request struct {
	File     io.Reader
	Filename string
	URL      string
}

// Resolver materializes a process request's document as a local file under
// a fresh job directory, either from uploaded bytes or by fetching a URL.
type Resolver struct {
	layout *storage.Layout
	client *http.Client
	logger zerolog.Logger
}

// NewResolver builds a Resolver staging into layout. fetchTimeout bounds
// the whole URL download, connection included.
func NewResolver(layout *storage.Layout, fetchTimeout time.Duration, logger zerolog.Logger) *Resolver {
	return &Resolver{
		layout: layout,
		client: &http.Client{Timeout: fetchTimeout},
		logger: logger,
	}
}

// Resolve validates the request shape and stages its document, returning
// the staged path. The job's directories are created only after validation
// passes, so rejected requests leave no trace on disk.
func (r *Resolver) Resolve(ctx context.Context, jobID string, req Request) (string, error) {
	hasFile := req.File != nil
	hasURL := strings.TrimSpace(req.URL) != ""
	switch {
	case !hasFile && !hasURL:
		return "", fmt.Errorf("%w: no file or URL provided", domain.ErrInvalidRequest)
	case hasFile && hasURL:
		return "", fmt.Errorf("%w: provide either a file or a URL, not both", domain.ErrInvalidRequest)
	case hasFile:
		return r.stageUpload(jobID, req)
	default:
		return r.fetchURL(ctx, jobID, strings.TrimSpace(req.URL))
	}
}

func (r *Resolver) stageUpload(jobID string, req Request) (string, error) {
	name := strings.TrimSpace(req.Filename)
	if name == "" {
		return "", fmt.Errorf("%w: no selected file", domain.ErrInvalidRequest)
	}
	if !acceptedExts[strings.ToLower(filepath.Ext(name))] {
		return "", fmt.Errorf("%w: invalid file type, only PSD files are allowed", domain.ErrInvalidRequest)
	}
	safeName, err := storage.SanitizeFilename(name)
	if err != nil {
		return "", fmt.Errorf("%w: invalid filename", domain.ErrInvalidRequest)
	}

	uploadDir, _, err := r.layout.EnsureJobDirs(jobID)
	if err != nil {
		return "", fmt.Errorf("%w: prepare job directory: %v", domain.ErrProcessing, err)
	}
	dst := filepath.Join(uploadDir, safeName)
	if err := writeStream(dst, req.File); err != nil {
		return "", fmt.Errorf("%w: stage upload: %v", domain.ErrProcessing, err)
	}
	r.logger.Info().Str("job_id", jobID).Str("path", dst).Msg("saved uploaded file")
	return dst, nil
}

func (r *Resolver) fetchURL(ctx context.Context, jobID, rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return "", fmt.Errorf("%w: URL must be http or https", domain.ErrInvalidRequest)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("%w: invalid URL: %v", domain.ErrInvalidRequest, err)
	}
	resp, err := r.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: download from URL: %v", domain.ErrFetch, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: download from URL: unexpected status %s", domain.ErrFetch, resp.Status)
	}

	uploadDir, _, err := r.layout.EnsureJobDirs(jobID)
	if err != nil {
		return "", fmt.Errorf("%w: prepare job directory: %v", domain.ErrProcessing, err)
	}
	dst := filepath.Join(uploadDir, urlFilename(u, jobID))
	if err := writeStream(dst, resp.Body); err != nil {
		return "", fmt.Errorf("%w: save download: %v", domain.ErrFetch, err)
	}
	r.logger.Info().Str("job_id", jobID).Str("url", rawURL).Str("path", dst).Msg("downloaded file")
	return dst, nil
}

// urlFilename derives the staged filename from the URL path, falling back
// to upload_<job_id>.psd. Names without an accepted container extension
// get ".psd" appended so the staged file always looks like one.
func urlFilename(u *url.URL, jobID string) string {
	base := path.Base(u.Path)
	if base == "." || base == "/" {
		base = ""
	}
	if base != "" {
		if safe, err := storage.SanitizeFilename(base); err == nil {
			base = safe
		} else {
			base = ""
		}
	}
	if base == "" {
		return "upload_" + jobID + ".psd"
	}
	if !acceptedExts[strings.ToLower(filepath.Ext(base))] {
		base += ".psd"
	}
	return base
}

func writeStream(dst string, src io.Reader) error {
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		return fmt.Errorf("write %s: %w", dst, err)
	}
	return out.Close()
}
