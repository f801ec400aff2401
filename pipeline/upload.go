package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/genexomics/runpack/errors"
)

// UploadStage uploads every file of one run and finalizes the manifest.
// Per-file uploads have no inter-file dependency and run in parallel up to
// the configured bound; the only ordering the rest of the pipeline may rely
// on is the finalized (deduplicated, sorted) manifest.
type UploadStage struct {
	uploader    Uploader
	concurrency int64
	limiter     *rate.Limiter
	manifestDir string
	log         *zap.SugaredLogger
}

// NewUploadStage bounds parallelism at concurrency and throttles uploader
// launches at launchesPerMin (0 disables the throttle).
func NewUploadStage(uploader Uploader, concurrency, launchesPerMin int, manifestDir string, log *zap.SugaredLogger) *UploadStage {
	if concurrency < 1 {
		concurrency = 1
	}
	limit := rate.Inf
	if launchesPerMin > 0 {
		limit = rate.Limit(float64(launchesPerMin) / 60.0)
	}
	return &UploadStage{
		uploader:    uploader,
		concurrency: int64(concurrency),
		limiter:     rate.NewLimiter(limit, concurrency),
		manifestDir: manifestDir,
		log:         log,
	}
}

// Run uploads the run's files and returns the finalized manifest. A run
// directory with zero files yields an empty manifest, not an error; the
// package stage fails that run fast.
func (s *UploadStage) Run(ctx context.Context, run RunDirectory) (Manifest, error) {
	files, err := listFiles(run.Path)
	if err != nil {
		return nil, err
	}
	s.log.Infow("uploading run", "run", run.Name, "files", len(files))

	sem := semaphore.NewWeighted(s.concurrency)
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		locations []string
		uploadErr error
	)

	for _, file := range files {
		if err := s.limiter.Wait(ctx); err != nil {
			uploadErr = errors.CombineErrors(uploadErr, err)
			break
		}
		if err := sem.Acquire(ctx, 1); err != nil {
			uploadErr = errors.CombineErrors(uploadErr, err)
			break
		}
		wg.Add(1)
		go func(path string) {
			defer wg.Done()
			defer sem.Release(1)
			loc, err := s.uploader.Upload(ctx, path)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				uploadErr = errors.CombineErrors(uploadErr, err)
				return
			}
			locations = append(locations, loc)
		}(file)
	}
	wg.Wait()

	if uploadErr != nil {
		return nil, errors.Wrapf(uploadErr, "run %s", run.Name)
	}

	manifest := FinalizeManifest(locations)
	if s.manifestDir != "" {
		path := filepath.Join(s.manifestDir, run.Name+".manifest")
		if err := manifest.Write(path); err != nil {
			return nil, err
		}
		s.log.Debugw("manifest persisted", "run", run.Name, "path", path, "entries", len(manifest))
	}
	return manifest, nil
}

// listFiles enumerates the run's regular files. Flat traversal: the run
// layout convention keeps raw files at the top level.
func listFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "listing run directory %s", dir)
	}
	var files []string
	for _, entry := range entries {
		if entry.Type().IsRegular() {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	return files, nil
}
