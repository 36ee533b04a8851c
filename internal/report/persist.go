package report

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrPersistence marks a failed artifact write after all permitted
// attempts. The wrapped cause stays reachable through errors.Is/As.
var ErrPersistence = errors.New("persisting report failed")

// OutputPath derives the default tabular artifact name from the input
// file: name + suffix before the extension.
func OutputPath(inputPath, suffix string) string {
	ext := filepath.Ext(inputPath)
	return strings.TrimSuffix(inputPath, ext) + suffix + ext
}

// HypertextPath derives the hypertext artifact name by replacing the
// tabular artifact's extension with .html.
func HypertextPath(tabularPath string) string {
	return strings.TrimSuffix(tabularPath, filepath.Ext(tabularPath)) + ".html"
}

// WritePolicy controls retrying a failed artifact write. The computed
// result is expensive (it sits behind an embedding call), so the one-shot
// front end prefers blocking for operator intervention over losing it.
type WritePolicy struct {
	// MaxAttempts caps write attempts; 0 means retry without bound.
	MaxAttempts int

	// Ack is consulted between attempts with the write error. Returning
	// false stops retrying. A nil Ack stops after the first failure.
	Ack func(err error) bool
}

// WriteFile renders via the given function and writes the bytes to path,
// retrying per the policy. Rendering happens once; only the write is
// retried (a locked destination does not change the report).
func (p WritePolicy) WriteFile(path string, render func(w *bytes.Buffer) error) error {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		return fmt.Errorf("%w: render %s: %v", ErrPersistence, path, err)
	}

	for attempt := 1; ; attempt++ {
		err := os.WriteFile(path, buf.Bytes(), 0o644)
		if err == nil {
			return nil
		}
		if p.MaxAttempts > 0 && attempt >= p.MaxAttempts {
			return fmt.Errorf("%w: write %s after %d attempts: %v", ErrPersistence, path, attempt, err)
		}
		if p.Ack == nil || !p.Ack(err) {
			return fmt.Errorf("%w: write %s: %v", ErrPersistence, path, err)
		}
	}
}
