// Package zip streams job artifacts into a zip archive.
package zip

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
)

// Entry names one file to archive and where to read it from.
type Entry struct {
	Name string
	Path string
}

// WriteArchive streams entries into w as a zip archive. Files are copied
// one at a time, so archives never buffer whole jobs in memory.
func WriteArchive(w io.Writer, entries []Entry) error {
	zw := zip.NewWriter(w)
	for _, e := range entries {
		if err := writeEntry(zw, e); err != nil {
			return err
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("zip: close archive: %w", err)
	}
	return nil
}

func writeEntry(zw *zip.Writer, e Entry) error {
	f, err := os.Open(e.Path)
	if err != nil {
		return fmt.Errorf("zip: open %s: %w", e.Name, err)
	}
	defer f.Close()

	dst, err := zw.Create(e.Name)
	if err != nil {
		return fmt.Errorf("zip: add %s: %w", e.Name, err)
	}
	if _, err := io.Copy(dst, f); err != nil {
		return fmt.Errorf("zip: copy %s: %w", e.Name, err)
	}
	return nil
}
