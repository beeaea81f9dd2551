package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/Manny27nyc/amazon-sagemaker-examples/pkg/apperrors"
)

// OutputFormat is the content type the transformation container writes.
type OutputFormat string

const (
	OutputFormatCSV     OutputFormat = "CSV"
	OutputFormatParquet OutputFormat = "PARQUET"
)

// ParseOutputFormat accepts the format case-insensitively.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", string(OutputFormatCSV):
		return OutputFormatCSV, nil
	case string(OutputFormatParquet):
		return OutputFormatParquet, nil
	default:
		return "", apperrors.ConfigurationError("unknown output format %q", s)
	}
}

// JobInput maps one source location to a mount path inside the job.
type JobInput struct {
	Name      string `json:"name"`
	SourceURI string `json:"source_uri"`
	LocalPath string `json:"local_path"`
}

// ComputeShape is the cluster the ingestion job runs on.
type ComputeShape struct {
	InstanceCount int64  `json:"instance_count"`
	InstanceType  string `json:"instance_type"`
	VolumeSizeGB  int64  `json:"volume_size_gb"`
}

// IngestionJobSpec describes one submission of the transformation job.
// RecipeRef is a local path or object URI; when RecipeBody is set it is
// staged instead of reading RecipeRef.
type IngestionJobSpec struct {
	JobName          string             `json:"job_name"`
	Inputs           []JobInput         `json:"inputs"`
	RecipeRef        string             `json:"recipe_ref"`
	RecipeBody       []byte             `json:"-"`
	StagedRecipeURI  string             `json:"staged_recipe_uri"`
	Output           FeatureGroupHandle `json:"output"`
	OutputName       string             `json:"output_name"`
	Compute          ComputeShape       `json:"compute"`
	OutputFormat     OutputFormat       `json:"output_format"`
	NetworkIsolation bool               `json:"network_isolation"`
}

// Validate checks the fields a submission cannot do without. The output name
// is passed through as-is.
func (s *IngestionJobSpec) Validate() error {
	var result *multierror.Error
	if s.JobName == "" {
		result = multierror.Append(result, fmt.Errorf("job name is required"))
	}
	if s.RecipeRef == "" && len(s.RecipeBody) == 0 {
		result = multierror.Append(result, fmt.Errorf("recipe reference is required"))
	}
	if !strings.HasPrefix(s.StagedRecipeURI, "s3://") {
		result = multierror.Append(result, fmt.Errorf("staged recipe location must be an s3:// URI"))
	}
	if s.Output.Name == "" {
		result = multierror.Append(result, fmt.Errorf("output feature group is required"))
	}
	if s.Compute.InstanceCount < 1 {
		result = multierror.Append(result, fmt.Errorf("instance count must be at least 1"))
	}
	if s.Compute.InstanceType == "" {
		result = multierror.Append(result, fmt.Errorf("instance type is required"))
	}
	for _, in := range s.Inputs {
		if in.SourceURI == "" || in.LocalPath == "" {
			result = multierror.Append(result, fmt.Errorf("input %q needs both a source and a mount path", in.Name))
		}
	}
	if err := result.ErrorOrNil(); err != nil {
		return fmt.Errorf("%w: %w", apperrors.ErrConfiguration, err)
	}
	return nil
}

// ============================================================================
// Job Status
// ============================================================================

// JobStatus is the raw status of a remote ingestion job.
type JobStatus string

const (
	JobStatusInProgress JobStatus = "InProgress"
	JobStatusStopping   JobStatus = "Stopping"
	JobStatusCompleted  JobStatus = "Completed"
	JobStatusFailed     JobStatus = "Failed"
	JobStatusStopped    JobStatus = "Stopped"
	JobStatusSkipped    JobStatus = "Skipped"
)

// IsTerminal returns true if the job will not change status again. Only
// InProgress and Stopping keep a job running; an unrecognised status ends
// the wait and is reported as a failure.
func (s JobStatus) IsTerminal() bool {
	return s != JobStatusInProgress && s != JobStatusStopping
}

// IsKnown reports whether s is one of the documented job statuses.
func (s JobStatus) IsKnown() bool {
	switch s {
	case JobStatusInProgress, JobStatusStopping, JobStatusCompleted,
		JobStatusFailed, JobStatusStopped, JobStatusSkipped:
		return true
	}
	return false
}

// JobOutcome is what the dispatcher returns: either a skipped submission or
// the terminal payload of the remote job.
type JobOutcome struct {
	JobName       string    `json:"job_name,omitempty"`
	JobARN        string    `json:"job_arn,omitempty"`
	Status        JobStatus `json:"status"`
	FailureReason string    `json:"failure_reason,omitempty"`
	ExitMessage   string    `json:"exit_message,omitempty"`
	RecipeURI     string    `json:"recipe_uri,omitempty"`
	StartedAt     time.Time `json:"started_at,omitempty"`
	EndedAt       time.Time `json:"ended_at,omitempty"`
}

// Skipped reports whether the dispatcher declined to submit.
func (o *JobOutcome) Skipped() bool {
	return o != nil && o.Status == JobStatusSkipped
}
