package pipeline

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/genexomics/runpack/errors"
)

// Manifest is the deduplicated, lexicographically sorted list of object
// locations produced by uploading one run's files. Canonical order is
// sorted, never insertion order: retried uploads that return a location
// twice collapse to one entry.
type Manifest []string

// FinalizeManifest deduplicates and sorts raw uploader output.
func FinalizeManifest(locations []string) Manifest {
	seen := make(map[string]bool, len(locations))
	out := make(Manifest, 0, len(locations))
	for _, loc := range locations {
		loc = strings.TrimSpace(loc)
		if loc == "" || seen[loc] {
			continue
		}
		seen[loc] = true
		out = append(out, loc)
	}
	sort.Strings(out)
	return out
}

// Write persists the manifest, one location per line.
func (m Manifest) Write(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "creating manifest directory for %s", path)
	}
	var b strings.Builder
	for _, loc := range m {
		b.WriteString(loc)
		b.WriteByte('\n')
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return errors.Wrapf(err, "writing manifest %s", path)
	}
	return nil
}
