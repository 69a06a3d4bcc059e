// Package filex holds the filesystem side of downloads: preparing the target
// directory and writing a file so that a failed transfer never leaves a
// half-written document behind.
package filex

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// EnsureDir creates dir (relative paths resolve against the working
// directory) and returns its absolute path.
func EnsureDir(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("abs %s: %w", dir, err)
	}

	if err := os.MkdirAll(abs, 0o770); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", abs, err)
	}

	return abs, nil
}

// SanitizeFileName turns a document title into a single path element.
// Separators and control characters are replaced; an empty result yields
// fallback.
func SanitizeFileName(title, fallback string) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == '\\' || r == ':' || r == 0:
			return '_'
		case r < 0x20:
			return -1
		}
		return r
	}, strings.TrimSpace(title))

	name = strings.Trim(name, ". ")
	if name == "" {
		return fallback
	}
	return name
}

// SaveAs writes the content produced by write into dir/name.
//
// Content goes to a temporary file in dir first. The handle is closed on
// every path; on failure the temporary file is removed, on success it is
// renamed to the final name. The final path is returned.
func SaveAs(dir, name string, write func(w io.Writer) error) (path string, err error) {
	tmp, err := os.CreateTemp(dir, ".fileflow-*.part")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}

	defer func() {
		if cerr := tmp.Close(); cerr != nil && !errors.Is(cerr, os.ErrClosed) && err == nil {
			err = fmt.Errorf("close temp file: %w", cerr)
		}
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if err = write(tmp); err != nil {
		return "", err
	}

	if err = tmp.Close(); err != nil {
		return "", fmt.Errorf("close temp file: %w", err)
	}

	path = filepath.Join(dir, name)
	if err = os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("rename %s: %w", path, err)
	}
	return path, nil
}
