// Package sampledata provisions test datasets for the local environment:
// synthetic runs of small gzip'd FASTQ files, or a curated minimal dataset
// fetched from configured sources.
package sampledata

import (
	"compress/gzip"
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-getter"
	"go.uber.org/zap"

	"github.com/genexomics/runpack/errors"
)

// readsPerFile keeps generated files small enough for quick upload cycles.
const readsPerFile = 25

var bases = []byte("ACGT")

// Generate writes runs synthetic run directories under root, each holding
// filesPerRun gzip'd FASTQ files. Existing files with the same names are
// overwritten, so repeat invocations converge to the same layout.
func Generate(root string, runs, filesPerRun int, log *zap.SugaredLogger) error {
	if runs < 1 || filesPerRun < 1 {
		return errors.Newf("invalid sample dataset shape: %d runs, %d files per run", runs, filesPerRun)
	}

	rng := rand.New(rand.NewSource(1)) // stable content across invocations
	for r := 1; r <= runs; r++ {
		runName := fmt.Sprintf("run_%03d", r)
		dir := filepath.Join(root, runName)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "creating sample run %s", runName)
		}
		for f := 1; f <= filesPerRun; f++ {
			name := fmt.Sprintf("sample_%03d_R%d.fastq.gz", f, (f%2)+1)
			if err := writeFastq(filepath.Join(dir, name), runName, f, rng); err != nil {
				return err
			}
		}
		log.Infow("sample run generated", "run", runName, "files", filesPerRun)
	}
	return nil
}

func writeFastq(path, runName string, fileIndex int, rng *rand.Rand) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "creating sample file %s", path)
	}
	defer file.Close()

	gz := gzip.NewWriter(file)
	for read := 1; read <= readsPerFile; read++ {
		seq := make([]byte, 60)
		qual := make([]byte, 60)
		for i := range seq {
			seq[i] = bases[rng.Intn(len(bases))]
			qual[i] = byte('!' + rng.Intn(40))
		}
		fmt.Fprintf(gz, "@%s:%d:%d\n%s\n+\n%s\n", runName, fileIndex, read, seq, qual)
	}
	if err := gz.Close(); err != nil {
		return errors.Wrapf(err, "finalizing sample file %s", path)
	}
	return file.Close()
}

// FetchMinimal pulls each configured source into dest. Sources use the
// go-getter URL syntax, so http, s3, and git locations all work.
func FetchMinimal(ctx context.Context, sources []string, dest string, log *zap.SugaredLogger) error {
	if len(sources) == 0 {
		return errors.New("no minimal dataset sources configured (dataset.minimal_sources)")
	}
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return errors.Wrapf(err, "creating dataset directory %s", dest)
	}

	for _, src := range sources {
		log.Infow("fetching minimal dataset source", "source", src, "dest", dest)
		client := &getter.Client{
			Ctx:     ctx,
			Src:     src,
			Dst:     dest,
			Mode:    getter.ClientModeAny,
			Getters: getter.Getters,
		}
		if err := client.Get(); err != nil {
			return errors.Wrapf(err, "fetching dataset source %s", src)
		}
	}
	return nil
}
