package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Manny27nyc/amazon-sagemaker-examples/pkg/models"
)

// FeatureGroupMethods defines the provisioner methods the node calls.
type FeatureGroupMethods interface {
	EnsureExists(ctx context.Context, spec *models.FeatureGroupSpec) (*models.FeatureGroupHandle, bool, error)
	AwaitReady(ctx context.Context, handle *models.FeatureGroupHandle) (*models.FeatureGroupHandle, error)
}

// FeatureGroupNode makes sure the target feature group exists. A group it
// created is waited on until ready; an existing group is used as found.
type FeatureGroupNode struct {
	*BaseNode
	provisioner FeatureGroupMethods
}

// NewFeatureGroupNode creates a new feature group node.
func NewFeatureGroupNode(provisioner FeatureGroupMethods, logger *zap.Logger) *FeatureGroupNode {
	return &FeatureGroupNode{
		BaseNode:    NewBaseNode(models.PipelineNodeFeatureGroup, logger),
		provisioner: provisioner,
	}
}

// Execute provisions the feature group and records the handle on the run.
func (n *FeatureGroupNode) Execute(ctx context.Context, state *State) error {
	spec := state.Plan.FeatureGroup
	if spec == nil {
		return fmt.Errorf("no feature group spec in plan")
	}

	handle, alreadyExisted, err := n.provisioner.EnsureExists(ctx, spec)
	if err != nil {
		return err
	}
	state.Run.AlreadyExisted = alreadyExisted
	state.Run.FeatureGroup = handle

	if alreadyExisted {
		n.Logger().Info("Using existing feature group", zap.String("feature_group", handle.Name))
		return nil
	}

	ready, err := n.provisioner.AwaitReady(ctx, handle)
	if err != nil {
		return err
	}
	state.Run.FeatureGroup = ready
	return nil
}
