package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Manny27nyc/amazon-sagemaker-examples/pkg/apperrors"
)

func validSpec() FeatureGroupSpec {
	return FeatureGroupSpec{
		Name: "FG-tracks",
		Columns: []ColumnSchema{
			{Name: "trackId", Type: FeatureTypeString},
			{Name: "tempo", Type: FeatureTypeFractional},
			{Name: "plays", Type: FeatureTypeIntegral},
			{Name: "EventTime", Type: FeatureTypeFractional},
		},
		RecordIdentifier: "trackId",
		EventTime:        "EventTime",
		StorageLocation:  "s3://bucket/prefix",
	}
}

func TestNewFeatureGroupSpec_Valid(t *testing.T) {
	spec, err := NewFeatureGroupSpec(validSpec())
	require.NoError(t, err)
	assert.Equal(t, []string{"trackId", "tempo", "plays", "EventTime"}, spec.ColumnNames())
}

func TestNewFeatureGroupSpec_MissingRecordIdentifier(t *testing.T) {
	s := validSpec()
	s.RecordIdentifier = ""
	// Other problems must not mask the missing identifier.
	s.StorageLocation = ""

	_, err := NewFeatureGroupSpec(s)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrConfiguration))
	assert.Contains(t, err.Error(), "record identifier")
	assert.NotContains(t, err.Error(), "StorageLocation")
}

func TestNewFeatureGroupSpec_Invariants(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*FeatureGroupSpec)
		wantMsg string
	}{
		{
			name:    "record identifier not in schema",
			mutate:  func(s *FeatureGroupSpec) { s.RecordIdentifier = "id" },
			wantMsg: `record identifier "id" is not a schema column`,
		},
		{
			name:    "event time not in schema",
			mutate:  func(s *FeatureGroupSpec) { s.EventTime = "ts" },
			wantMsg: `event time "ts" is not a schema column`,
		},
		{
			name:    "event time integral",
			mutate:  func(s *FeatureGroupSpec) { s.EventTime = "plays" },
			wantMsg: "must be Fractional or String",
		},
		{
			name:    "record identifier fractional",
			mutate:  func(s *FeatureGroupSpec) { s.RecordIdentifier = "tempo" },
			wantMsg: "must be Integral or String",
		},
		{
			name: "duplicate column",
			mutate: func(s *FeatureGroupSpec) {
				s.Columns = append(s.Columns, ColumnSchema{Name: "tempo", Type: FeatureTypeString})
			},
			wantMsg: `column "tempo" is declared more than once`,
		},
		{
			name: "unknown type",
			mutate: func(s *FeatureGroupSpec) {
				s.Columns[1].Type = "Boolean"
			},
			wantMsg: `unknown feature type "Boolean"`,
		},
		{
			name:    "storage not s3",
			mutate:  func(s *FeatureGroupSpec) { s.StorageLocation = "gs://bucket" },
			wantMsg: "StorageLocation",
		},
		{
			name:    "no columns",
			mutate:  func(s *FeatureGroupSpec) { s.Columns = nil },
			wantMsg: "Columns",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validSpec()
			tt.mutate(&s)
			_, err := NewFeatureGroupSpec(s)
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperrors.ErrConfiguration))
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestFeatureGroupStatus(t *testing.T) {
	assert.True(t, FeatureGroupStatusCreating.IsTransient())
	assert.False(t, FeatureGroupStatusCreated.IsTransient())
	assert.True(t, FeatureGroupStatusCreated.IsReady())
	assert.False(t, FeatureGroupStatusCreateFailed.IsReady())
}

func TestPipelineContext_Require(t *testing.T) {
	c := &PipelineContext{Namespace: "music-recommender", Inputs: PipelineInputs{Bucket: "b"}}

	assert.NoError(t, c.Require(InputBucket))

	err := c.Require(InputBucket, InputPrefix, InputRawDataSources)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrConfiguration))
	assert.Contains(t, err.Error(), "[prefix raw_data_sources]")

	assert.Error(t, c.Require(InputField("nope")))
}

func TestPipelineContext_CloneIsDeep(t *testing.T) {
	c := &PipelineContext{
		Inputs:  PipelineInputs{RawDataSources: map[string]string{"tracks.csv": "s3://a"}},
		Outputs: PipelineOutputs{ContainerRegistry: map[string]string{"us-east-1": "1"}},
	}
	cp := c.Clone()
	cp.Inputs.RawDataSources["tracks.csv"] = "s3://b"
	cp.Outputs.ContainerRegistry["us-east-1"] = "2"

	assert.Equal(t, "s3://a", c.Inputs.RawDataSources["tracks.csv"])
	assert.Equal(t, "1", c.Outputs.ContainerRegistry["us-east-1"])
}

func TestIngestionJobSpec_Validate(t *testing.T) {
	s := IngestionJobSpec{
		JobName:         "job",
		RecipeRef:       "flows/tracks.flow",
		StagedRecipeURI: "s3://b/music/data_wrangler_flows/flow-x.flow",
		Output:          FeatureGroupHandle{Name: "FG"},
		Compute:         ComputeShape{InstanceCount: 2, InstanceType: "ml.m5.4xlarge", VolumeSizeGB: 30},
		Inputs:          []JobInput{{Name: "tracks.csv", SourceURI: "s3://b/tracks.csv", LocalPath: "/opt/ml/processing/tracks.csv"}},
	}
	assert.NoError(t, s.Validate())

	s.Compute.InstanceCount = 0
	s.Inputs[0].LocalPath = ""
	s.StagedRecipeURI = "music/flow.flow"
	err := s.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrConfiguration))
	assert.Contains(t, err.Error(), "instance count")
	assert.Contains(t, err.Error(), "mount path")
	assert.Contains(t, err.Error(), "staged recipe")
}

func TestJobStatus_IsTerminal(t *testing.T) {
	for _, s := range []JobStatus{JobStatusInProgress, JobStatusStopping} {
		assert.False(t, s.IsTerminal(), s)
	}
	for _, s := range []JobStatus{JobStatusCompleted, JobStatusFailed, JobStatusStopped, JobStatus("Throttled"), JobStatus("")} {
		assert.True(t, s.IsTerminal(), s)
	}
	assert.True(t, JobStatusStopped.IsKnown())
	assert.False(t, JobStatus("Throttled").IsKnown())
}

func TestParseOutputFormat(t *testing.T) {
	f, err := ParseOutputFormat("parquet")
	require.NoError(t, err)
	assert.Equal(t, OutputFormatParquet, f)

	f, err = ParseOutputFormat("")
	require.NoError(t, err)
	assert.Equal(t, OutputFormatCSV, f)

	_, err = ParseOutputFormat("avro")
	assert.Error(t, err)
}
