package config

import (
	"github.com/spf13/viper"
)

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	// Pipeline defaults
	v.SetDefault("pipeline.run_root", "runs")
	v.SetDefault("pipeline.workers", 2)
	v.SetDefault("pipeline.upload_concurrency", 4)
	v.SetDefault("pipeline.upload_launches_per_min", 120) // Polite throttle on uploader process launches
	v.SetDefault("pipeline.fail_process_on_run_error", true)
	v.SetDefault("pipeline.log_dir", "logs")

	// Descriptor defaults
	v.SetDefault("descriptor.path", "config.yaml")
	v.SetDefault("descriptor.section", "genexomics")
	v.SetDefault("descriptor.bucket_key", "raw_uploads")
	v.SetDefault("descriptor.registry_bucket_key", "quilt_registry")

	// Emulator defaults (MinIO stand-in for the cloud object store)
	v.SetDefault("emulator.endpoint", "http://localhost:9000")
	v.SetDefault("emulator.health_path", "/minio/health/live")
	v.SetDefault("emulator.container_name", "runpack-minio")
	v.SetDefault("emulator.worker_container", "runpack-worker")
	v.SetDefault("emulator.health_attempts", 30)
	v.SetDefault("emulator.health_interval_s", 2)

	// Cloud defaults: empty region means the baseline region
	v.SetDefault("cloud.region", "")

	// Registry defaults
	v.SetDefault("registry.namespace", "genexomics")
	v.SetDefault("registry.registry", "")

	// Metadata defaults
	v.SetDefault("metadata.enabled", false)
	v.SetDefault("metadata.source", "benchling")
	v.SetDefault("metadata.benchling.header_type", "bearer")

	// Dataset defaults
	v.SetDefault("dataset.sample_runs", 2)
	v.SetDefault("dataset.sample_files_per_run", 3)

	// External tool command lines
	v.SetDefault("tools.uploader", "python3 bin/s3_uploader.py")
	v.SetDefault("tools.package_builder", "python3 bin/make_quilt_from_s3.py")
	v.SetDefault("tools.metadata_attacher", "python3 bin/metadata_integrator.py")
	v.SetDefault("tools.docker", "docker")
}

// BindSensitiveEnvVars explicitly binds sensitive configuration to environment variables
func BindSensitiveEnvVars(v *viper.Viper) {
	// Metadata source credentials keep their historical variable names so
	// existing operator environments continue to work.
	v.BindEnv("metadata.benchling.api_key", "RUNPACK_METADATA_BENCHLING_API_KEY", "BENCHLING_API_KEY")
	v.BindEnv("metadata.smartsheet.token", "RUNPACK_METADATA_SMARTSHEET_TOKEN", "SMARTSHEET_TOKEN")

	// Emulator overrides
	v.BindEnv("emulator.endpoint", "RUNPACK_EMULATOR_ENDPOINT")
	v.BindEnv("emulator.container_name", "RUNPACK_EMULATOR_CONTAINER_NAME")

	// Registry location override
	v.BindEnv("registry.registry", "RUNPACK_REGISTRY")
}
