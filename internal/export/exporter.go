package export

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"

	"psdprocessor/internal/domain"
	"psdprocessor/internal/storage"

	"github.com/cespare/xxhash/v2"
	"github.com/disintegration/imaging"
	"github.com/oov/psd"
	"github.com/rs/zerolog"
)

// Defaults applied when a request leaves encoding options unset.
const (
	DefaultFormat  = "jpg"
	DefaultQuality = 90
)

// Options control the encoding of one export run.
type Options struct {
	Format  string
	Quality int
}

// Exporter renders a staged document into one artifact per combination
// produced by its policy.
type Exporter struct {
	policy Policy
	logger zerolog.Logger
	decode func(path string) (*psd.PSD, error)
}

func NewExporter(policy Policy, logger zerolog.Logger) *Exporter {
	return &Exporter{policy: policy, logger: logger, decode: decodeFile}
}

func decodeFile(path string) (*psd.PSD, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	doc, _, err := psd.Decode(f, &psd.DecodeOptions{SkipMergedImage: true})
	return doc, err
}

// Run decodes the document at inputPath and writes one artifact per
// combination into outputDir, returning the generated filenames in
// combination order. Any failure aborts the whole run: artifacts already
// written stay on disk but are never reported.
func (e *Exporter) Run(ctx context.Context, inputPath, outputDir string, opts Options) ([]string, error) {
	ext, format, quality, err := normalizeOptions(opts)
	if err != nil {
		return nil, err
	}

	doc, err := e.decode(inputPath)
	if err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", domain.ErrProcessing, filepath.Base(inputPath), err)
	}
	if doc.Config.ColorMode != psd.ColorModeRGB || doc.Config.Depth != 8 {
		return nil, fmt.Errorf("%w: only 8-bit RGB documents are supported", domain.ErrProcessing)
	}

	combos, err := e.policy.Combinations(doc)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(combos))
	fingerprints := make(map[uint64][]string, len(combos))
	for i, combo := range combos {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		img := compose(doc, combo.Overrides)
		name := artifactName(i+1, combo.Name, ext)
		data, err := encode(img, ext, format, quality)
		if err != nil {
			return nil, fmt.Errorf("%w: encode %s: %v", domain.ErrProcessing, name, err)
		}
		if err := os.WriteFile(filepath.Join(outputDir, name), data, 0o644); err != nil {
			return nil, fmt.Errorf("%w: write %s: %v", domain.ErrProcessing, name, err)
		}
		sum := xxhash.Sum64(data)
		fingerprints[sum] = append(fingerprints[sum], name)
		names = append(names, name)
		e.logger.Info().Str("artifact", name).Str("combination", combo.Name).Msg("generated variant")
	}

	for _, dupes := range fingerprints {
		if len(dupes) > 1 {
			e.logger.Warn().Strs("artifacts", dupes).Msg("variants have identical content")
		}
	}
	return names, nil
}

// normalizeOptions applies defaults and validates the requested encoding.
func normalizeOptions(opts Options) (string, imaging.Format, int, error) {
	ext := strings.ToLower(strings.TrimSpace(opts.Format))
	if ext == "" {
		ext = DefaultFormat
	}
	format, err := imaging.FormatFromExtension(ext)
	if err != nil {
		return "", 0, 0, fmt.Errorf("%w: unsupported output format %q", domain.ErrInvalidRequest, opts.Format)
	}
	quality := opts.Quality
	if quality == 0 {
		quality = DefaultQuality
	}
	if quality < 1 || quality > 100 {
		return "", 0, 0, fmt.Errorf("%w: quality must be between 1 and 100", domain.ErrInvalidRequest)
	}
	return ext, format, quality, nil
}

// artifactName builds "<NN>-<combination>.<ext>". Combination names that
// do not survive sanitization fall back to "layer".
func artifactName(index int, combo, ext string) string {
	name, err := storage.SanitizeFilename(combo)
	if err != nil {
		name = "layer"
	}
	return fmt.Sprintf("%02d-%s.%s", index, name, ext)
}

// encode serializes img in the requested format. Formats without an
// alpha channel are flattened onto white first.
func encode(img image.Image, ext string, format imaging.Format, quality int) ([]byte, error) {
	switch ext {
	case "jpg", "jpeg", "bmp":
		flat := imaging.New(img.Bounds().Dx(), img.Bounds().Dy(), color.White)
		img = imaging.Overlay(flat, img, image.Pt(0, 0), 1.0)
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, format, imaging.JPEGQuality(quality)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
