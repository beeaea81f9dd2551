package models

import (
	"fmt"
	"sort"
	"time"

	"github.com/Manny27nyc/amazon-sagemaker-examples/pkg/apperrors"
)

// PipelineInputs are the values a stage reads from the previous stage.
type PipelineInputs struct {
	Bucket              string            `json:"bucket"`
	Prefix              string            `json:"prefix"`
	PretrainedModelPath string            `json:"pretrained_model_path,omitempty"`
	RawDataSources      map[string]string `json:"raw_data_sources,omitempty"`
}

// PipelineOutputs are the values this stage publishes for the next ones.
type PipelineOutputs struct {
	FeatureGroupName  string            `json:"feature_group_name,omitempty"`
	ExportID          string            `json:"export_id,omitempty"`
	RecipeURI         string            `json:"recipe_uri,omitempty"`
	ContainerRegistry map[string]string `json:"container_registry,omitempty"`
}

// PipelineContext is the versioned handoff passed between pipeline stages.
// Each save produces a new version; the most recent save wins.
type PipelineContext struct {
	Namespace string          `json:"namespace"`
	Version   int64           `json:"version"`
	Inputs    PipelineInputs  `json:"inputs"`
	Outputs   PipelineOutputs `json:"outputs"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// InputField names a required input.
type InputField string

const (
	InputBucket              InputField = "bucket"
	InputPrefix              InputField = "prefix"
	InputPretrainedModelPath InputField = "pretrained_model_path"
	InputRawDataSources      InputField = "raw_data_sources"
)

// Require returns a configuration error naming every missing input.
func (c *PipelineContext) Require(fields ...InputField) error {
	var missing []string
	for _, f := range fields {
		switch f {
		case InputBucket:
			if c.Inputs.Bucket == "" {
				missing = append(missing, string(f))
			}
		case InputPrefix:
			if c.Inputs.Prefix == "" {
				missing = append(missing, string(f))
			}
		case InputPretrainedModelPath:
			if c.Inputs.PretrainedModelPath == "" {
				missing = append(missing, string(f))
			}
		case InputRawDataSources:
			if len(c.Inputs.RawDataSources) == 0 {
				missing = append(missing, string(f))
			}
		default:
			return fmt.Errorf("unknown input field %q", f)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return apperrors.ConfigurationError("pipeline context %q is missing inputs %v", c.Namespace, missing)
	}
	return nil
}

// Clone returns a deep copy so a stage can build its outputs without
// mutating the context it was handed.
func (c *PipelineContext) Clone() *PipelineContext {
	out := *c
	out.Inputs.RawDataSources = cloneMap(c.Inputs.RawDataSources)
	out.Outputs.ContainerRegistry = cloneMap(c.Outputs.ContainerRegistry)
	return &out
}

func cloneMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
