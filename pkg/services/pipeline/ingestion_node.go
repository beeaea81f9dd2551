package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Manny27nyc/amazon-sagemaker-examples/pkg/adapters/objectstore"
	"github.com/Manny27nyc/amazon-sagemaker-examples/pkg/models"
	"github.com/Manny27nyc/amazon-sagemaker-examples/pkg/recipe"
)

// IngestionMethods defines the dispatcher method the node calls.
type IngestionMethods interface {
	SubmitIfNeeded(ctx context.Context, spec *models.IngestionJobSpec, alreadyExisted bool) (*models.JobOutcome, error)
}

// IngestionNode fills a newly created feature group by running the
// transformation job. It is skipped for groups that already existed.
type IngestionNode struct {
	*BaseNode
	dispatcher IngestionMethods
}

// NewIngestionNode creates a new ingestion node.
func NewIngestionNode(dispatcher IngestionMethods, logger *zap.Logger) *IngestionNode {
	return &IngestionNode{
		BaseNode:   NewBaseNode(models.PipelineNodeIngestion, logger),
		dispatcher: dispatcher,
	}
}

// Execute builds the job spec for this run and hands it to the dispatcher.
func (n *IngestionNode) Execute(ctx context.Context, state *State) error {
	if state.Run.FeatureGroup == nil {
		return fmt.Errorf("feature group node did not record a handle")
	}

	var spec *models.IngestionJobSpec
	if !state.Run.AlreadyExisted {
		var err error
		spec, err = n.buildSpec(state)
		if err != nil {
			return err
		}
	}

	outcome, err := n.dispatcher.SubmitIfNeeded(ctx, spec, state.Run.AlreadyExisted)
	if outcome != nil {
		state.Run.Job = outcome
	}
	if err != nil {
		return err
	}
	if outcome.Skipped() {
		return ErrNodeSkipped
	}

	n.Logger().Info("Feature group populated",
		zap.String("feature_group", state.Run.FeatureGroup.Name),
		zap.String("job_name", outcome.JobName))
	return nil
}

func (n *IngestionNode) buildSpec(state *State) (*models.IngestionJobSpec, error) {
	plan := state.Plan
	inputs := state.Context.Inputs

	spec := &models.IngestionJobSpec{
		JobName:          recipe.JobName(state.Run.ExportID),
		RecipeRef:        plan.RecipeRef,
		StagedRecipeURI:  objectstore.URI(inputs.Bucket, recipe.StagedKey(inputs.Prefix, state.Run.ExportID)),
		Output:           *state.Run.FeatureGroup,
		OutputName:       plan.OutputName,
		Compute:          plan.Compute,
		OutputFormat:     plan.OutputFormat,
		NetworkIsolation: plan.NetworkIsolation,
		Inputs:           plan.Inputs,
	}

	if plan.Recipe != nil {
		if changed := plan.Recipe.RewriteSources(inputs.RawDataSources); changed > 0 {
			n.Logger().Info("Recipe sources rewritten", zap.Int("sources", changed))
		}
		body, err := plan.Recipe.Bytes()
		if err != nil {
			return nil, err
		}
		spec.RecipeBody = body
		if len(spec.Inputs) == 0 {
			spec.Inputs = plan.Recipe.JobInputs()
		}
		if spec.OutputName == "" {
			out, err := plan.Recipe.DefaultOutputName()
			if err != nil {
				return nil, err
			}
			spec.OutputName = out
		}
	}
	return spec, nil
}
