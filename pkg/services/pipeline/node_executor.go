// Package pipeline runs the ingestion pipeline as a fixed sequence of nodes:
// make sure the feature group exists, fill it, publish the results.
package pipeline

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/Manny27nyc/amazon-sagemaker-examples/pkg/models"
	"github.com/Manny27nyc/amazon-sagemaker-examples/pkg/recipe"
)

// ErrNodeSkipped is returned by a node that decided it had nothing to do.
var ErrNodeSkipped = errors.New("node skipped")

// NodeExecutor defines the interface for pipeline node execution.
// Each node wraps an existing service method.
type NodeExecutor interface {
	// Name returns the node name (e.g., "FeatureGroup")
	Name() models.PipelineNodeName

	// Execute runs the node's work. Returns ErrNodeSkipped when there was
	// nothing to do, or another error if the node fails.
	Execute(ctx context.Context, state *State) error
}

// BaseNode provides common functionality for all pipeline nodes.
type BaseNode struct {
	nodeName models.PipelineNodeName
	logger   *zap.Logger
}

// NewBaseNode creates a new base node with common dependencies.
func NewBaseNode(nodeName models.PipelineNodeName, logger *zap.Logger) *BaseNode {
	return &BaseNode{
		nodeName: nodeName,
		logger:   logger.Named(string(nodeName)),
	}
}

// Name returns the node name.
func (b *BaseNode) Name() models.PipelineNodeName {
	return b.nodeName
}

// Logger returns the node's logger.
func (b *BaseNode) Logger() *zap.Logger {
	return b.logger
}

// Plan is what a run is asked to do. It is built from configuration.
type Plan struct {
	Namespace    string
	Seed         models.PipelineInputs
	FeatureGroup *models.FeatureGroupSpec

	// Context, when set, is the pipeline context the plan was built from.
	// The run uses it instead of loading the store again.
	Context *models.PipelineContext

	// Recipe is the parsed recipe when RecipeRef is a local file. A nil
	// Recipe stages RecipeRef as-is and uses Inputs for the job inputs.
	Recipe    *recipe.Flow
	RecipeRef string
	Inputs    []models.JobInput

	OutputName        string
	Compute           models.ComputeShape
	OutputFormat      models.OutputFormat
	NetworkIsolation  bool
	ContainerRegistry map[string]string
}

// State is passed from node to node during one run.
type State struct {
	Plan    *Plan
	Run     *models.PipelineRun
	Context *models.PipelineContext
}
