package pipeline

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/genexomics/runpack/config"
)

// Supported metadata sources.
const (
	SourceBenchling  = "benchling"
	SourceSmartsheet = "smartsheet"
)

// SupportedSource reports whether the selector names an implemented backend.
func SupportedSource(source string) bool {
	switch strings.ToLower(source) {
	case SourceBenchling, SourceSmartsheet:
		return true
	}
	return false
}

// MetadataStage optionally attaches external metadata to a built package.
// Unsupported sources and attacher failures degrade to notices: metadata is
// enrichment, and a run never fails for lack of it.
type MetadataStage struct {
	attacher MetadataAttacher
	meta     config.MetadataConfig
	registry string
	log      *zap.SugaredLogger
}

// NewMetadataStage wires the attacher against the metadata configuration.
func NewMetadataStage(attacher MetadataAttacher, meta config.MetadataConfig, registry string, log *zap.SugaredLogger) *MetadataStage {
	return &MetadataStage{attacher: attacher, meta: meta, registry: registry, log: log}
}

// Run attaches metadata for one packaged run and returns the terminal
// metadata state. The returned state is always reachable; Run never fails
// the run.
func (s *MetadataStage) Run(ctx context.Context, run RunDirectory, packageID string) State {
	if !s.meta.Enabled {
		return StateMetadataSkipped
	}

	source := strings.ToLower(s.meta.Source)
	if !SupportedSource(source) {
		s.log.Warnw("metadata source not implemented, skipping attachment",
			"source", s.meta.Source, "run", run.Name, "package", packageID)
		return StateMetadataSkipped
	}

	err := s.attacher.Attach(ctx, AttachRequest{
		PackageID: packageID,
		Registry:  s.registry,
		Source:    source,
		RunName:   run.Name,
	})
	if err != nil {
		s.log.Warnw("metadata attachment failed, package remains without metadata",
			"source", source, "run", run.Name, "package", packageID, "error", err)
		return StateMetadataSkipped
	}

	s.log.Infow("metadata attached", "source", source, "run", run.Name, "package", packageID)
	return StateMetadataAttached
}
