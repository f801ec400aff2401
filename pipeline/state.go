package pipeline

// State is a run's position in the stage progression.
type State string

const (
	StateDiscovered       State = "discovered"
	StateUploading        State = "uploading"
	StateUploaded         State = "uploaded"
	StatePackaging        State = "packaging"
	StatePackaged         State = "packaged"
	StateMetadataPending  State = "metadata_pending"
	StateMetadataAttached State = "metadata_attached"
	StateMetadataSkipped  State = "metadata_skipped"
	StateDone             State = "done"
	StateFailed           State = "failed"
)

// Stage identifies which stage a failed run died in.
type Stage string

const (
	StageUpload   Stage = "upload"
	StagePackage  Stage = "package"
	StageMetadata Stage = "metadata"
)

// RunResult records one run's final outcome. Runs are independent: a failed
// result never blocks or taints a sibling.
type RunResult struct {
	Run         RunDirectory
	State       State
	FailedStage Stage // set only when State == StateFailed
	Metadata    State // metadata_attached or metadata_skipped once packaging succeeds
	Manifest    Manifest
	PackageID   string
	Err         error
}

// Failed reports whether the run reached the failure terminal.
func (r *RunResult) Failed() bool {
	return r.State == StateFailed
}
