package cli

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Manny27nyc/amazon-sagemaker-examples/pkg/apperrors"
	"github.com/Manny27nyc/amazon-sagemaker-examples/pkg/config"
	"github.com/Manny27nyc/amazon-sagemaker-examples/pkg/models"
)

const (
	testSchema = "../schema/testdata/tracks.yaml"
	testRecipe = "../recipe/testdata/tracks.flow"
)

func testConfig() *config.Config {
	return &config.Config{
		Env:      "test",
		LogLevel: "info",
		AWS:      config.AWSConfig{Region: "us-east-1"},
		Storage: config.StorageConfig{
			Bucket: "music-bucket",
			Prefix: "music-recommendation",
		},
		FeatureGroup: config.FeatureGroupConfig{
			EventTime:     "EventTime",
			OnlineEnabled: true,
			SchemaFile:    testSchema,
		},
		Ingestion: config.IngestionConfig{
			RecipePath:    testRecipe,
			InstanceCount: 2,
			InstanceType:  "ml.m5.4xlarge",
			VolumeSizeGB:  30,
			OutputFormat:  "CSV",
		},
		Poll: config.PollConfig{
			FeatureGroupInterval: 5 * time.Second,
			JobInterval:          time.Minute,
		},
		Handoff: config.HandoffConfig{
			Backend:   config.HandoffMemory,
			Namespace: "music-recommender",
		},
	}
}

func TestNewRootCommand_Tree(t *testing.T) {
	var out bytes.Buffer
	rc := NewRootCommand(&out, &out, "1.2.3")

	var names []string
	for _, c := range rc.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"run", "provision", "context", "runs"}, names)

	configFlag := rc.PersistentFlags().Lookup("config")
	require.NotNil(t, configFlag)
	assert.Equal(t, "c", configFlag.Shorthand)
	assert.NotNil(t, rc.PersistentFlags().Lookup("namespace"))
	assert.NotNil(t, rc.PersistentFlags().Lookup("handoff"))
	assert.Equal(t, "1.2.3", rc.Version)
}

func TestRunsCommand_RequiresPostgres(t *testing.T) {
	t.Setenv("HANDOFF_BACKEND", "memory")

	var out bytes.Buffer
	rc := NewRootCommand(&out, &out, "test")
	rc.SetArgs([]string{"runs"})

	err := rc.Execute()
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrConfiguration))
}

func TestRootCommand_LogsAndErrorsGoToStderr(t *testing.T) {
	t.Setenv("HANDOFF_BACKEND", "memory")

	var stdout, stderr bytes.Buffer
	rc := NewRootCommand(&stdout, &stderr, "test")
	rc.SetArgs([]string{"runs"})

	require.Error(t, rc.Execute())
	assert.Empty(t, stdout.String())
	assert.Contains(t, stderr.String(), "Configuration loaded")
	assert.Contains(t, stderr.String(), "Error: configuration error: run history requires the postgres handoff backend")
}

func TestRootCommand_BadConfigFile(t *testing.T) {
	var out bytes.Buffer
	rc := NewRootCommand(&out, &out, "test")
	rc.SetArgs([]string{"context", "--config", t.TempDir() + "/missing.yaml"})

	err := rc.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing.yaml")
}

// writeSchema writes a three-column schema with the given extra header lines.
func writeSchema(t *testing.T, header string) string {
	t.Helper()
	body := "record_identifier: id\n" + header + `columns:
  - {name: id, type: string}
  - {name: ts, type: float}
  - {name: EventTime, type: float}
`
	path := filepath.Join(t.TempDir(), "schema.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestFeatureGroupSpec(t *testing.T) {
	t.Run("derived from the recipe name", func(t *testing.T) {
		spec, err := featureGroupSpec(testConfig(), "")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(spec.Name, "FG-tracks-"), spec.Name)
		assert.Equal(t, "trackId", spec.RecordIdentifier)
		assert.Equal(t, "EventTime", spec.EventTime)
		assert.Equal(t, "s3://music-bucket/music-recommendation/feature-store", spec.StorageLocation)
		assert.True(t, spec.OnlineEnabled)
	})

	t.Run("published name is reused", func(t *testing.T) {
		spec, err := featureGroupSpec(testConfig(), "FG-tracks-1a2b3c4d")
		require.NoError(t, err)
		assert.Equal(t, "FG-tracks-1a2b3c4d", spec.Name)
	})

	t.Run("configured name wins", func(t *testing.T) {
		cfg := testConfig()
		cfg.FeatureGroup.Name = "track-features"
		spec, err := featureGroupSpec(cfg, "FG-tracks-1a2b3c4d")
		require.NoError(t, err)
		assert.Equal(t, "track-features", spec.Name)
	})

	t.Run("configured event time wins over the schema file", func(t *testing.T) {
		cfg := testConfig()
		cfg.FeatureGroup.SchemaFile = writeSchema(t, "event_time: EventTime\n")
		cfg.FeatureGroup.EventTime = "ts"
		spec, err := featureGroupSpec(cfg, "")
		require.NoError(t, err)
		assert.Equal(t, "ts", spec.EventTime)
		assert.Equal(t, "id", spec.RecordIdentifier)
	})

	t.Run("schema file event time when none is configured", func(t *testing.T) {
		cfg := testConfig()
		cfg.FeatureGroup.SchemaFile = writeSchema(t, "event_time: ts\n")
		cfg.FeatureGroup.EventTime = ""
		spec, err := featureGroupSpec(cfg, "")
		require.NoError(t, err)
		assert.Equal(t, "ts", spec.EventTime)
	})

	t.Run("default event time when neither names one", func(t *testing.T) {
		cfg := testConfig()
		cfg.FeatureGroup.SchemaFile = writeSchema(t, "")
		cfg.FeatureGroup.EventTime = ""
		spec, err := featureGroupSpec(cfg, "")
		require.NoError(t, err)
		assert.Equal(t, config.DefaultEventTime, spec.EventTime)
	})

	t.Run("schema file is required", func(t *testing.T) {
		cfg := testConfig()
		cfg.FeatureGroup.SchemaFile = ""
		_, err := featureGroupSpec(cfg, "")
		assert.True(t, errors.Is(err, apperrors.ErrConfiguration))
	})

	t.Run("unknown record identifier", func(t *testing.T) {
		cfg := testConfig()
		cfg.FeatureGroup.RecordIdentifier = "nope"
		_, err := featureGroupSpec(cfg, "")
		assert.True(t, errors.Is(err, apperrors.ErrConfiguration))
	})
}

func TestBuildPlan_LocalRecipe(t *testing.T) {
	cfg := testConfig()
	pctx := &models.PipelineContext{Inputs: seedInputs(cfg)}

	plan, err := buildPlan(cfg, pctx)
	require.NoError(t, err)

	require.NotNil(t, plan.Recipe)
	assert.Same(t, pctx, plan.Context)
	assert.Empty(t, plan.Inputs)
	assert.Equal(t, "music-recommender", plan.Namespace)
	assert.Equal(t, testRecipe, plan.RecipeRef)
	assert.Equal(t, models.OutputFormatCSV, plan.OutputFormat)
	assert.Equal(t, int64(2), plan.Compute.InstanceCount)
	assert.NotEmpty(t, plan.ContainerRegistry)
	assert.Equal(t, "music-bucket", plan.Seed.Bucket)
}

func TestBuildPlan_RemoteRecipe(t *testing.T) {
	cfg := testConfig()
	cfg.Ingestion.RecipePath = "s3://music-bucket/flows/tracks.flow"
	pctx := &models.PipelineContext{Inputs: models.PipelineInputs{
		RawDataSources: map[string]string{
			"tracks.csv":  "s3://music-bucket/raw/tracks.csv",
			"ratings.csv": "s3://music-bucket/raw/ratings.csv",
		},
	}}

	_, err := buildPlan(cfg, pctx)
	assert.True(t, errors.Is(err, apperrors.ErrConfiguration), "output name is required")

	cfg.Ingestion.OutputName = "cast-tracks.default"
	plan, err := buildPlan(cfg, pctx)
	require.NoError(t, err)
	assert.Nil(t, plan.Recipe)
	require.Len(t, plan.Inputs, 2)
	assert.Equal(t, "ratings.csv", plan.Inputs[0].Name)
	assert.Equal(t, "/opt/ml/processing/ratings.csv", plan.Inputs[0].LocalPath)
	assert.Equal(t, "s3://music-bucket/raw/tracks.csv", plan.Inputs[1].SourceURI)
}

func TestBuildPlan_MissingRecipe(t *testing.T) {
	cfg := testConfig()
	cfg.Ingestion.RecipePath = ""
	_, err := buildPlan(cfg, &models.PipelineContext{})
	assert.True(t, errors.Is(err, apperrors.ErrConfiguration))
}
