package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Layout derives the per-job filesystem locations for staged uploads and
// generated artifacts. Every user-supplied path component (job ids,
// filenames) passes through SanitizeFilename before it is joined onto a
// root, which keeps all reads and writes inside the two configured roots.
type Layout struct {
	uploadRoot string
	outputRoot string
}

// NewLayout initializes a Layout rooted at the two directories, creating
// them if absent.
func NewLayout(uploadRoot, outputRoot string) (*Layout, error) {
	uploadRoot = strings.TrimSpace(uploadRoot)
	outputRoot = strings.TrimSpace(outputRoot)
	if uploadRoot == "" || outputRoot == "" {
		return nil, errors.New("storage: upload and output roots are required")
	}
	for _, root := range []string{uploadRoot, outputRoot} {
		if err := os.MkdirAll(root, 0o755); err != nil {
			return nil, fmt.Errorf("storage: ensure root: %w", err)
		}
	}
	return &Layout{uploadRoot: uploadRoot, outputRoot: outputRoot}, nil
}

// UploadRoot returns the configured root for staged inputs.
func (l *Layout) UploadRoot() string {
	return l.uploadRoot
}

// OutputRoot returns the configured root for generated artifacts.
func (l *Layout) OutputRoot() string {
	return l.outputRoot
}

// UploadDir returns the staging directory for a job.
func (l *Layout) UploadDir(jobID string) (string, error) {
	id, err := SanitizeFilename(jobID)
	if err != nil {
		return "", fmt.Errorf("storage: job id: %w", err)
	}
	return filepath.Join(l.uploadRoot, id), nil
}

// OutputDir returns the artifact directory for a job.
func (l *Layout) OutputDir(jobID string) (string, error) {
	id, err := SanitizeFilename(jobID)
	if err != nil {
		return "", fmt.Errorf("storage: job id: %w", err)
	}
	return filepath.Join(l.outputRoot, id), nil
}

// EnsureJobDirs creates the upload and output directories for a job and
// returns both paths.
func (l *Layout) EnsureJobDirs(jobID string) (uploadDir, outputDir string, err error) {
	if uploadDir, err = l.UploadDir(jobID); err != nil {
		return "", "", err
	}
	if outputDir, err = l.OutputDir(jobID); err != nil {
		return "", "", err
	}
	for _, dir := range []string{uploadDir, outputDir} {
		if err = os.MkdirAll(dir, 0o755); err != nil {
			return "", "", fmt.Errorf("storage: ensure job directory: %w", err)
		}
	}
	return uploadDir, outputDir, nil
}

// Artifact resolves a generated file inside a job's output directory.
func (l *Layout) Artifact(jobID, filename string) (string, error) {
	dir, err := l.OutputDir(jobID)
	if err != nil {
		return "", err
	}
	name, err := SanitizeFilename(filename)
	if err != nil {
		return "", fmt.Errorf("storage: artifact name: %w", err)
	}
	return filepath.Join(dir, name), nil
}

// ListArtifacts returns the names of a job's generated files in lexical
// order. Subdirectories are skipped; a missing job directory surfaces as
// the underlying fs error.
func (l *Layout) ListArtifacts(jobID string) ([]string, error) {
	dir, err := l.OutputDir(jobID)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// SanitizeFilename reduces a client-supplied name to a single safe path
// component. Separators and traversal sequences are rejected rather than
// rewritten; remaining characters outside a conservative set are mapped to
// underscores.
func SanitizeFilename(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.New("storage: name is required")
	}
	if name == "." || name == ".." {
		return "", errors.New("storage: invalid name")
	}
	if strings.ContainsAny(name, "/\\") || strings.ContainsRune(name, 0) {
		return "", errors.New("storage: invalid name")
	}
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := b.String()
	if strings.Trim(out, "._") == "" {
		return "", errors.New("storage: invalid name")
	}
	return out, nil
}
