// Package config loads the runpack configuration once at process start.
//
// Components receive *Config by reference; nothing in the pipeline reads
// process environment state after Load returns.
package config

// Mode selects the provisioning backend and pipeline environment.
type Mode string

const (
	// ModeTest targets the local emulated object store.
	ModeTest Mode = "test"
	// ModeProd targets the real cloud account.
	ModeProd Mode = "prod"
)

// Valid reports whether m is one of the supported pipeline modes.
func (m Mode) Valid() bool {
	return m == ModeTest || m == ModeProd
}

// Config represents the core runpack configuration
type Config struct {
	Pipeline   PipelineConfig   `mapstructure:"pipeline"`
	Descriptor DescriptorConfig `mapstructure:"descriptor"`
	Emulator   EmulatorConfig   `mapstructure:"emulator"`
	Cloud      CloudConfig      `mapstructure:"cloud"`
	Registry   RegistryConfig   `mapstructure:"registry"`
	Metadata   MetadataConfig   `mapstructure:"metadata"`
	Dataset    DatasetConfig    `mapstructure:"dataset"`
	Tools      ToolsConfig      `mapstructure:"tools"`
}

// PipelineConfig configures run discovery and stage execution
type PipelineConfig struct {
	RunRoot string `mapstructure:"run_root"` // Directory containing run directories
	Workers int    `mapstructure:"workers"`  // Concurrent runs (default: 2)

	UploadConcurrency    int `mapstructure:"upload_concurrency"`      // Parallel file uploads per run (default: 4)
	UploadLaunchesPerMin int `mapstructure:"upload_launches_per_min"` // Polite launch throttle for the uploader tool (default: 120)

	// FailProcessOnRunError makes any per-run failure flip the process exit
	// status to 1. Provisioning warnings never do.
	FailProcessOnRunError bool `mapstructure:"fail_process_on_run_error"`

	Message string `mapstructure:"message"` // Package push message; empty = derived from manifest size
	LogDir  string `mapstructure:"log_dir"` // Per-invocation log/manifest directory (default: ./logs)
}

// DescriptorConfig locates the bucket descriptor and names the entries to use
type DescriptorConfig struct {
	Path              string `mapstructure:"path"`                // YAML descriptor file
	Section           string `mapstructure:"section"`             // Top-level section (default: genexomics)
	BucketKey         string `mapstructure:"bucket_key"`          // Named bucket for raw uploads (default: raw_uploads)
	RegistryBucketKey string `mapstructure:"registry_bucket_key"` // Optional secondary bucket for the package registry
}

// EmulatorConfig configures the local emulated object store used in test mode
type EmulatorConfig struct {
	Endpoint        string `mapstructure:"endpoint"`         // e.g. http://localhost:9000
	HealthPath      string `mapstructure:"health_path"`      // Readiness endpoint path (default: /minio/health/live)
	ContainerName   string `mapstructure:"container_name"`   // Emulator control container
	WorkerContainer string `mapstructure:"worker_container"` // Container carrying the generic object-storage client
	HealthAttempts  int    `mapstructure:"health_attempts"`  // Bounded poll attempts (default: 30)
	HealthIntervalS int    `mapstructure:"health_interval_s"` // Seconds between attempts (default: 2)
}

// CloudConfig configures the real cloud backend used in prod mode
type CloudConfig struct {
	Region string `mapstructure:"region"` // Empty = baseline region (us-east-1)
}

// RegistryConfig identifies where packages are published
type RegistryConfig struct {
	Namespace string `mapstructure:"namespace"` // Package namespace (team), e.g. genexomics
	Registry  string `mapstructure:"registry"`  // Registry URI, e.g. s3://genexomics-quilt
}

// MetadataConfig configures the optional metadata attachment stage
type MetadataConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Source  string `mapstructure:"source"` // benchling | smartsheet; unsupported values degrade to a notice

	Benchling  BenchlingConfig  `mapstructure:"benchling"`
	Smartsheet SmartsheetConfig `mapstructure:"smartsheet"`
}

// BenchlingConfig carries Benchling credentials and addressing
type BenchlingConfig struct {
	EntityID   string `mapstructure:"entity_id"`
	APIKey     string `mapstructure:"api_key"`     // Bound to BENCHLING_API_KEY
	HeaderType string `mapstructure:"header_type"` // bearer | x-api-key
}

// SmartsheetConfig carries Smartsheet credentials and row addressing.
// Either RowID or RunColumn is used; RunColumn matches the run name.
type SmartsheetConfig struct {
	SheetID   string `mapstructure:"sheet_id"`
	RowID     string `mapstructure:"row_id"`
	RunColumn string `mapstructure:"run_column"`
	Token     string `mapstructure:"token"` // Bound to SMARTSHEET_TOKEN
}

// DatasetConfig configures sample and minimal dataset provisioning
type DatasetConfig struct {
	MinimalSources    []string `mapstructure:"minimal_sources"`      // go-getter source URLs for the minimal dataset
	SampleRuns        int      `mapstructure:"sample_runs"`          // Synthetic runs to generate (default: 2)
	SampleFilesPerRun int      `mapstructure:"sample_files_per_run"` // Files per synthetic run (default: 3)
}

// ToolsConfig names the external commands the pipeline drives.
// Values are full command lines; arguments are appended after shell-style
// splitting, so "python3 bin/s3_uploader.py" works.
type ToolsConfig struct {
	Uploader         string `mapstructure:"uploader"`
	PackageBuilder   string `mapstructure:"package_builder"`
	MetadataAttacher string `mapstructure:"metadata_attacher"`
	Docker           string `mapstructure:"docker"`
}
