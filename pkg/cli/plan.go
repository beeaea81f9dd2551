package cli

import (
	"fmt"
	"maps"
	"slices"

	"github.com/Manny27nyc/amazon-sagemaker-examples/pkg/adapters/objectstore"
	"github.com/Manny27nyc/amazon-sagemaker-examples/pkg/adapters/sagemaker"
	"github.com/Manny27nyc/amazon-sagemaker-examples/pkg/apperrors"
	"github.com/Manny27nyc/amazon-sagemaker-examples/pkg/config"
	"github.com/Manny27nyc/amazon-sagemaker-examples/pkg/models"
	"github.com/Manny27nyc/amazon-sagemaker-examples/pkg/recipe"
	"github.com/Manny27nyc/amazon-sagemaker-examples/pkg/schema"
	"github.com/Manny27nyc/amazon-sagemaker-examples/pkg/services/pipeline"
)

// seedInputs are the inputs a fresh namespace starts from.
func seedInputs(cfg *config.Config) models.PipelineInputs {
	return models.PipelineInputs{
		Bucket:         cfg.Storage.Bucket,
		Prefix:         cfg.Storage.Prefix,
		RawDataSources: cfg.Storage.RawDataSources,
	}
}

// featureGroupSpec builds the target spec from configuration. When no name
// is configured the previously published name is reused, and only a first
// run derives a new one from the recipe.
func featureGroupSpec(cfg *config.Config, published string) (*models.FeatureGroupSpec, error) {
	if cfg.FeatureGroup.SchemaFile == "" {
		return nil, apperrors.ConfigurationError("feature_group.schema_file is required")
	}
	def, err := schema.Load(cfg.FeatureGroup.SchemaFile)
	if err != nil {
		return nil, err
	}
	columns, err := def.FeatureColumns()
	if err != nil {
		return nil, err
	}

	recordID := cfg.FeatureGroup.RecordIdentifier
	if recordID == "" {
		recordID = def.RecordIdentifier
	}
	eventTime := cfg.FeatureGroup.EventTime
	if eventTime == "" {
		eventTime = def.EventTime
	}
	if eventTime == "" {
		eventTime = config.DefaultEventTime
	}

	name := cfg.FeatureGroup.Name
	switch {
	case name != "":
	case published != "":
		name = published
	default:
		name = recipe.DefaultFeatureGroupName(recipe.FlowName(cfg.Ingestion.RecipePath))
	}

	return models.NewFeatureGroupSpec(models.FeatureGroupSpec{
		Name:             name,
		Description:      cfg.FeatureGroup.Description,
		Columns:          columns,
		RecordIdentifier: recordID,
		EventTime:        eventTime,
		StorageLocation:  cfg.OfflineStoreURI(),
		OnlineEnabled:    cfg.FeatureGroup.OnlineEnabled,
	})
}

// buildPlan turns configuration plus the current pipeline context into a run plan.
func buildPlan(cfg *config.Config, pctx *models.PipelineContext) (*pipeline.Plan, error) {
	if cfg.Ingestion.RecipePath == "" {
		return nil, apperrors.ConfigurationError("ingestion.recipe_path is required")
	}

	spec, err := featureGroupSpec(cfg, pctx.Outputs.FeatureGroupName)
	if err != nil {
		return nil, err
	}

	format, err := models.ParseOutputFormat(cfg.Ingestion.OutputFormat)
	if err != nil {
		return nil, err
	}

	plan := &pipeline.Plan{
		Namespace:    cfg.Handoff.Namespace,
		Seed:         seedInputs(cfg),
		FeatureGroup: spec,
		Context:      pctx,
		RecipeRef:    cfg.Ingestion.RecipePath,
		OutputName:   cfg.Ingestion.OutputName,
		Compute: models.ComputeShape{
			InstanceCount: cfg.Ingestion.InstanceCount,
			InstanceType:  cfg.Ingestion.InstanceType,
			VolumeSizeGB:  cfg.Ingestion.VolumeSizeGB,
		},
		OutputFormat:      format,
		NetworkIsolation:  cfg.Ingestion.NetworkIsolation,
		ContainerRegistry: sagemaker.ContainerRegistry(),
	}

	// Recipes already in object storage are staged as opaque bytes; local
	// ones are parsed so their sources and default output can be derived.
	if !objectstore.IsURI(cfg.Ingestion.RecipePath) {
		flow, err := recipe.Load(cfg.Ingestion.RecipePath)
		if err != nil {
			return nil, err
		}
		plan.Recipe = flow
	} else if plan.OutputName == "" {
		return nil, apperrors.ConfigurationError("ingestion.output_name is required for a recipe in object storage")
	}

	if plan.Recipe == nil {
		for _, name := range slices.Sorted(maps.Keys(pctx.Inputs.RawDataSources)) {
			plan.Inputs = append(plan.Inputs, models.JobInput{
				Name:      name,
				SourceURI: pctx.Inputs.RawDataSources[name],
				LocalPath: fmt.Sprintf("%s/%s", recipe.ProcessingRoot, name),
			})
		}
	}
	return plan, nil
}
