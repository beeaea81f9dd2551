package apperrors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")

	ErrConfiguration      = errors.New("configuration error")
	ErrProvisioningFailed = errors.New("feature group provisioning failed")
	ErrSubmissionFailed   = errors.New("ingestion job submission failed")
	ErrJobFailed          = errors.New("ingestion job failed")
	ErrJobNotFound        = errors.New("ingestion job not found after submission")
)

// ConfigurationError reports a spec or config problem detected before any
// remote call is made.
func ConfigurationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}

// ProvisioningError carries the raw terminal status of a feature group that
// did not reach Created.
type ProvisioningError struct {
	FeatureGroup  string
	Status        string
	FailureReason string
}

func (e *ProvisioningError) Error() string {
	msg := fmt.Sprintf("feature group %q ended in status %s", e.FeatureGroup, e.Status)
	if e.FailureReason != "" {
		msg += ": " + e.FailureReason
	}
	return msg
}

func (e *ProvisioningError) Unwrap() error { return ErrProvisioningFailed }

// JobError carries the raw terminal status and message of a failed
// ingestion job.
type JobError struct {
	JobName string
	Status  string
	Message string
}

func (e *JobError) Error() string {
	msg := fmt.Sprintf("job %q ended in status %s", e.JobName, e.Status)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

func (e *JobError) Unwrap() error { return ErrJobFailed }
