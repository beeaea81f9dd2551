package apperrors

import (
	"errors"
	"fmt"
	"testing"
)

func TestConfigurationError(t *testing.T) {
	err := ConfigurationError("column %q is missing", "trackId")
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
	if got, want := err.Error(), `configuration error: column "trackId" is missing`; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestProvisioningError(t *testing.T) {
	tests := []struct {
		name string
		err  *ProvisioningError
		want string
	}{
		{
			name: "with reason",
			err:  &ProvisioningError{FeatureGroup: "fg", Status: "CreateFailed", FailureReason: "role denied"},
			want: `feature group "fg" ended in status CreateFailed: role denied`,
		},
		{
			name: "without reason",
			err:  &ProvisioningError{FeatureGroup: "fg", Status: "Deleting"},
			want: `feature group "fg" ended in status Deleting`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
			wrapped := fmt.Errorf("provision: %w", tt.err)
			if !errors.Is(wrapped, ErrProvisioningFailed) {
				t.Error("expected wrapped error to match ErrProvisioningFailed")
			}
			var pe *ProvisioningError
			if !errors.As(wrapped, &pe) || pe.Status != tt.err.Status {
				t.Error("expected errors.As to recover the status")
			}
		})
	}
}

func TestJobError(t *testing.T) {
	err := &JobError{JobName: "job-1", Status: "Failed", Message: "AlgorithmError"}
	if got, want := err.Error(), `job "job-1" ended in status Failed: AlgorithmError`; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, ErrJobFailed) {
		t.Error("expected ErrJobFailed")
	}
	if errors.Is(err, ErrSubmissionFailed) {
		t.Error("a failed job is not a submission failure")
	}
}
