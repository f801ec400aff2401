package pipeline

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/genexomics/runpack/errors"
)

// RunDirectory is one discovered sequencing run. Read-only after discovery.
type RunDirectory struct {
	Name string
	Path string
}

// Run directories follow the sequencer naming conventions: run_001,
// run-0042, RunA7, or bare flowcell ids like R0001.
var runNamePattern = regexp.MustCompile(`^(?i:run)[_-]?\w+$|^R\d+$`)

// DiscoverRuns lists the immediate subdirectories of root that match the
// run-name convention. The snapshot is taken once at pipeline start;
// directories appearing later are not picked up by this invocation.
func DiscoverRuns(root string) ([]RunDirectory, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, errors.Wrapf(err, "discovering runs under %s", root)
	}

	var runs []RunDirectory
	for _, entry := range entries {
		if !entry.IsDir() || !runNamePattern.MatchString(entry.Name()) {
			continue
		}
		runs = append(runs, RunDirectory{
			Name: entry.Name(),
			Path: filepath.Join(root, entry.Name()),
		})
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].Name < runs[j].Name })
	return runs, nil
}
