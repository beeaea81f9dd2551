package models

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/hashicorp/go-multierror"

	"github.com/Manny27nyc/amazon-sagemaker-examples/pkg/apperrors"
)

// ============================================================================
// Feature Types
// ============================================================================

// FeatureType is the semantic type of a feature group column.
type FeatureType string

const (
	FeatureTypeIntegral   FeatureType = "Integral"
	FeatureTypeFractional FeatureType = "Fractional"
	FeatureTypeString     FeatureType = "String"
)

// ValidFeatureTypes contains all valid feature type values.
var ValidFeatureTypes = []FeatureType{
	FeatureTypeIntegral,
	FeatureTypeFractional,
	FeatureTypeString,
}

// IsValidFeatureType checks if the given feature type is valid.
func IsValidFeatureType(t FeatureType) bool {
	for _, v := range ValidFeatureTypes {
		if v == t {
			return true
		}
	}
	return false
}

// ColumnSchema is one named, typed column of a feature group.
type ColumnSchema struct {
	Name string      `json:"name" validate:"required"`
	Type FeatureType `json:"type" validate:"required"`
}

// ============================================================================
// Feature Group Spec
// ============================================================================

// FeatureGroupSpec describes the feature group the provisioner must ensure.
// Build it with NewFeatureGroupSpec so identifier and event-time columns are
// checked against the schema up front.
type FeatureGroupSpec struct {
	Name             string         `json:"name" validate:"required,max=64"`
	Description      string         `json:"description,omitempty" validate:"max=128"`
	Columns          []ColumnSchema `json:"columns" validate:"required,min=1,dive"`
	RecordIdentifier string         `json:"record_identifier"`
	EventTime        string         `json:"event_time" validate:"required"`
	StorageLocation  string         `json:"storage_location" validate:"required,startswith=s3://"`
	OnlineEnabled    bool           `json:"online_enabled"`
}

var specValidator = validator.New()

// NewFeatureGroupSpec validates and returns a feature group spec. A missing
// record identifier is reported on its own, before any other check, as a
// configuration error.
func NewFeatureGroupSpec(spec FeatureGroupSpec) (*FeatureGroupSpec, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return &spec, nil
}

// Validate checks the spec's structural rules and the column invariants.
func (s *FeatureGroupSpec) Validate() error {
	if s.RecordIdentifier == "" {
		return apperrors.ConfigurationError("select a column name as the feature group record identifier")
	}

	var result *multierror.Error
	if err := specValidator.Struct(s); err != nil {
		result = multierror.Append(result, err)
	}

	seen := make(map[string]FeatureType, len(s.Columns))
	for i, col := range s.Columns {
		if !IsValidFeatureType(col.Type) {
			result = multierror.Append(result, fmt.Errorf("column %d (%s): unknown feature type %q", i, col.Name, col.Type))
		}
		if _, dup := seen[col.Name]; dup {
			result = multierror.Append(result, fmt.Errorf("column %q is declared more than once", col.Name))
			continue
		}
		seen[col.Name] = col.Type
	}

	if t, ok := seen[s.RecordIdentifier]; !ok {
		result = multierror.Append(result, fmt.Errorf("record identifier %q is not a schema column", s.RecordIdentifier))
	} else if t == FeatureTypeFractional {
		result = multierror.Append(result, fmt.Errorf("record identifier %q must be Integral or String", s.RecordIdentifier))
	}

	if s.EventTime != "" {
		if t, ok := seen[s.EventTime]; !ok {
			result = multierror.Append(result, fmt.Errorf("event time %q is not a schema column", s.EventTime))
		} else if t == FeatureTypeIntegral {
			result = multierror.Append(result, fmt.Errorf("event time %q must be Fractional or String", s.EventTime))
		}
	}

	if err := result.ErrorOrNil(); err != nil {
		return fmt.Errorf("%w: %w", apperrors.ErrConfiguration, err)
	}
	return nil
}

// ColumnNames returns the schema column names in output order.
func (s *FeatureGroupSpec) ColumnNames() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}

// ============================================================================
// Feature Group Status
// ============================================================================

// FeatureGroupStatus is the raw lifecycle status reported by the platform.
type FeatureGroupStatus string

const (
	FeatureGroupStatusCreating     FeatureGroupStatus = "Creating"
	FeatureGroupStatusCreated      FeatureGroupStatus = "Created"
	FeatureGroupStatusCreateFailed FeatureGroupStatus = "CreateFailed"
	FeatureGroupStatusDeleting     FeatureGroupStatus = "Deleting"
	FeatureGroupStatusDeleteFailed FeatureGroupStatus = "DeleteFailed"
)

// IsTransient returns true while the platform is still creating the group.
func (s FeatureGroupStatus) IsTransient() bool {
	return s == FeatureGroupStatusCreating
}

// IsReady returns true once the group can accept records.
func (s FeatureGroupStatus) IsReady() bool {
	return s == FeatureGroupStatusCreated
}

// FeatureGroupHandle references a remote feature group by name.
type FeatureGroupHandle struct {
	Name          string             `json:"name"`
	ARN           string             `json:"arn,omitempty"`
	Status        FeatureGroupStatus `json:"status"`
	FailureReason string             `json:"failure_reason,omitempty"`
}
