package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/Manny27nyc/amazon-sagemaker-examples/pkg/apperrors"
	"github.com/Manny27nyc/amazon-sagemaker-examples/pkg/models"
)

// DefaultPath is where Load looks when no path is given.
const DefaultPath = "config.yaml"

// DefaultEventTime is the event-time column used when neither the
// configuration nor the schema file names one.
const DefaultEventTime = "EventTime"

// Handoff backends.
const (
	HandoffSSM      = "ssm"
	HandoffPostgres = "postgres"
	HandoffMemory   = "memory"
)

// Config holds all configuration for the provisioner.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords) must only come from environment variables.
type Config struct {
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	Version  string `yaml:"-"` // Set at load time, not from config

	AWS          AWSConfig          `yaml:"aws"`
	Storage      StorageConfig      `yaml:"storage"`
	FeatureGroup FeatureGroupConfig `yaml:"feature_group"`
	Ingestion    IngestionConfig    `yaml:"ingestion"`
	Poll         PollConfig         `yaml:"poll"`
	Handoff      HandoffConfig      `yaml:"handoff"`
	Database     DatabaseConfig     `yaml:"database"`
}

// AWSConfig selects the account, region and execution role.
type AWSConfig struct {
	Region  string `yaml:"region" env:"AWS_REGION" env-default:"us-east-1"`
	Profile string `yaml:"profile" env:"AWS_PROFILE" env-default:""`
	// RoleARN is the execution role the platform assumes for the feature
	// group's offline store and the processing job.
	RoleARN string `yaml:"role_arn" env:"SAGEMAKER_ROLE_ARN" env-default:""`
	// Endpoint overrides every service endpoint (local emulators only).
	Endpoint   string `yaml:"endpoint" env:"AWS_ENDPOINT_URL" env-default:""`
	MaxRetries int    `yaml:"max_retries" env:"AWS_MAX_RETRIES" env-default:"0"` // 0 keeps the SDK default
}

// StorageConfig is the bucket and prefix every artifact of a run lives under.
type StorageConfig struct {
	Bucket string `yaml:"bucket" env:"STORAGE_BUCKET" env-default:""`
	Prefix string `yaml:"prefix" env:"STORAGE_PREFIX" env-default:"music-recommendation"`
	// RawDataSources maps dataset names used by the recipe to their uploaded location.
	RawDataSources map[string]string `yaml:"raw_data_sources"`
}

// FeatureGroupConfig describes the target feature group.
type FeatureGroupConfig struct {
	Name             string `yaml:"name" env:"FEATURE_GROUP_NAME" env-default:""` // Derived from the recipe name if empty
	Description      string `yaml:"description" env:"FEATURE_GROUP_DESCRIPTION" env-default:""`
	RecordIdentifier string `yaml:"record_identifier" env:"FEATURE_GROUP_RECORD_IDENTIFIER" env-default:""`
	EventTime        string `yaml:"event_time" env:"FEATURE_GROUP_EVENT_TIME" env-default:""` // Falls back to the schema file, then DefaultEventTime
	OnlineEnabled    bool   `yaml:"online_enabled" env:"FEATURE_GROUP_ONLINE_ENABLED"`        // Defaults to true
	SchemaFile       string `yaml:"schema_file" env:"FEATURE_GROUP_SCHEMA_FILE" env-default:""`
	// OfflineStoreURI defaults to s3://<bucket>/<prefix>/feature-store.
	OfflineStoreURI string `yaml:"offline_store_uri" env:"FEATURE_GROUP_OFFLINE_STORE_URI" env-default:""`
}

// IngestionConfig shapes the transformation job.
type IngestionConfig struct {
	RecipePath       string        `yaml:"recipe_path" env:"INGESTION_RECIPE_PATH" env-default:""`
	OutputName       string        `yaml:"output_name" env:"INGESTION_OUTPUT_NAME" env-default:""` // Derived from the recipe if empty
	InstanceCount    int64         `yaml:"instance_count" env:"INGESTION_INSTANCE_COUNT" env-default:"2"`
	InstanceType     string        `yaml:"instance_type" env:"INGESTION_INSTANCE_TYPE" env-default:"ml.m5.4xlarge"`
	VolumeSizeGB     int64         `yaml:"volume_size_gb" env:"INGESTION_VOLUME_SIZE_GB" env-default:"30"`
	OutputFormat     string        `yaml:"output_format" env:"INGESTION_OUTPUT_FORMAT" env-default:"CSV"`
	NetworkIsolation bool          `yaml:"network_isolation" env:"INGESTION_NETWORK_ISOLATION" env-default:"false"`
	ContainerImage   string        `yaml:"container_image" env:"INGESTION_CONTAINER_IMAGE" env-default:""` // Overrides the regional image
	ContainerVersion string        `yaml:"container_version" env:"INGESTION_CONTAINER_VERSION" env-default:"1.x"`
	MaxRuntime       time.Duration `yaml:"max_runtime" env:"INGESTION_MAX_RUNTIME" env-default:"0s"`
}

// PollConfig sets how often remote statuses are re-read.
type PollConfig struct {
	FeatureGroupInterval time.Duration `yaml:"feature_group_interval" env:"POLL_FEATURE_GROUP_INTERVAL" env-default:"5s"`
	JobInterval          time.Duration `yaml:"job_interval" env:"POLL_JOB_INTERVAL" env-default:"60s"`
	// MaxAttempts bounds both waits; 0 waits until a terminal status or cancellation.
	MaxAttempts int `yaml:"max_attempts" env:"POLL_MAX_ATTEMPTS" env-default:"0"`
}

// HandoffConfig selects where the pipeline context is kept between stages.
type HandoffConfig struct {
	Backend   string `yaml:"backend" env:"HANDOFF_BACKEND" env-default:"ssm"`
	Namespace string `yaml:"namespace" env:"HANDOFF_NAMESPACE" env-default:"music-recommender"`
	// FlatOutputs also writes each output as its own parameter (ssm only).
	FlatOutputs bool `yaml:"flat_outputs" env:"HANDOFF_FLAT_OUTPUTS"` // Defaults to true
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"provisioner"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"feature_pipeline"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"4"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
	// RecordRuns stores run history in pipeline_runs.
	RecordRuns bool `yaml:"record_runs" env:"PGRECORD_RUNS"` // Defaults to true
}

// Load reads configuration from path (config.yaml when empty) with
// environment variable overrides. A missing file falls back to environment
// variables and defaults only.
// The version parameter is injected at build time and set on the returned Config.
func Load(path, version string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}
	// Booleans that default to true are set before reading, since
	// env-default cannot tell an explicit false from an unset field.
	cfg := &Config{
		Version:      version,
		FeatureGroup: FeatureGroupConfig{OnlineEnabled: true},
		Handoff:      HandoffConfig{FlatOutputs: true},
		Database:     DatabaseConfig{RecordRuns: true},
	}

	if err := cleanenv.ReadConfig(path, cfg); err != nil {
		if path != DefaultPath || !isNotExist(err) {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects unknown enum values and inconsistent settings.
func (c *Config) Validate() error {
	switch c.Handoff.Backend {
	case HandoffSSM, HandoffPostgres, HandoffMemory:
	default:
		return apperrors.ConfigurationError("unknown handoff backend %q (want ssm, postgres or memory)", c.Handoff.Backend)
	}
	if _, err := models.ParseOutputFormat(c.Ingestion.OutputFormat); err != nil {
		return err
	}
	if c.Ingestion.InstanceCount < 1 {
		return apperrors.ConfigurationError("ingestion.instance_count must be at least 1")
	}
	if c.Poll.FeatureGroupInterval <= 0 || c.Poll.JobInterval <= 0 {
		return apperrors.ConfigurationError("poll intervals must be positive")
	}
	if c.Poll.MaxAttempts < 0 {
		return apperrors.ConfigurationError("poll.max_attempts must not be negative")
	}
	if c.FeatureGroup.OfflineStoreURI != "" && !strings.HasPrefix(c.FeatureGroup.OfflineStoreURI, "s3://") {
		return apperrors.ConfigurationError("feature_group.offline_store_uri must be an s3:// URI")
	}
	return nil
}

// OfflineStoreURI returns the configured offline store or the default under the storage prefix.
func (c *Config) OfflineStoreURI() string {
	if c.FeatureGroup.OfflineStoreURI != "" {
		return c.FeatureGroup.OfflineStoreURI
	}
	prefix := strings.Trim(c.Storage.Prefix, "/")
	if prefix == "" {
		return "s3://" + c.Storage.Bucket + "/feature-store"
	}
	return "s3://" + c.Storage.Bucket + "/" + prefix + "/feature-store"
}

// ConnectionString returns a PostgreSQL connection URL.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, ResolveHostForDocker(c.Host), c.Port, c.Database, c.SSLMode,
	)
}

func isNotExist(err error) bool {
	return errors.Is(err, os.ErrNotExist)
}
