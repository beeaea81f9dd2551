package pipeline

import (
	"context"

	"go.uber.org/zap"

	"github.com/Manny27nyc/amazon-sagemaker-examples/pkg/handoff"
	"github.com/Manny27nyc/amazon-sagemaker-examples/pkg/models"
)

// PublishNode saves the run's outputs as a new version of the pipeline
// context for the stages that follow.
type PublishNode struct {
	*BaseNode
	store handoff.Store
}

// NewPublishNode creates a new publish node.
func NewPublishNode(store handoff.Store, logger *zap.Logger) *PublishNode {
	return &PublishNode{
		BaseNode: NewBaseNode(models.PipelineNodePublish, logger),
		store:    store,
	}
}

// Execute publishes the feature group name and, when a job ran, its export
// id and staged recipe. A skipped ingestion keeps the previously published
// export.
func (n *PublishNode) Execute(ctx context.Context, state *State) error {
	next := state.Context.Clone()
	if state.Run.FeatureGroup != nil {
		next.Outputs.FeatureGroupName = state.Run.FeatureGroup.Name
	}
	if job := state.Run.Job; job != nil && !job.Skipped() {
		next.Outputs.ExportID = state.Run.ExportID
		next.Outputs.RecipeURI = job.RecipeURI
	}
	if len(state.Plan.ContainerRegistry) > 0 {
		next.Outputs.ContainerRegistry = state.Plan.ContainerRegistry
	}

	version, err := n.store.Save(ctx, next)
	if err != nil {
		return err
	}
	next.Version = version
	state.Context = next
	state.Run.Context = next

	n.Logger().Info("Pipeline context published",
		zap.String("namespace", next.Namespace),
		zap.Int64("version", version),
		zap.String("feature_group", next.Outputs.FeatureGroupName))
	return nil
}
