package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Manny27nyc/amazon-sagemaker-examples/pkg/handoff"
	"github.com/Manny27nyc/amazon-sagemaker-examples/pkg/logging"
	"github.com/Manny27nyc/amazon-sagemaker-examples/pkg/models"
	"github.com/Manny27nyc/amazon-sagemaker-examples/pkg/recipe"
	"github.com/Manny27nyc/amazon-sagemaker-examples/pkg/retry"
)

// RunRecorder persists run history. Recording failures are logged and never
// fail the run.
type RunRecorder interface {
	Create(ctx context.Context, run *models.PipelineRun) error
	Update(ctx context.Context, run *models.PipelineRun) error
}

// Runner executes the pipeline nodes in order on a single goroutine.
type Runner struct {
	nodes    []NodeExecutor
	store    handoff.Store
	recorder RunRecorder
	clock    retry.Clock
	logger   *zap.Logger
}

// NewRunner wires the standard FeatureGroup, Ingestion and Publish nodes.
// recorder may be nil; a nil clock uses the system clock.
func NewRunner(
	provisioner FeatureGroupMethods,
	dispatcher IngestionMethods,
	store handoff.Store,
	recorder RunRecorder,
	clock retry.Clock,
	logger *zap.Logger,
) *Runner {
	return NewRunnerWithNodes([]NodeExecutor{
		NewFeatureGroupNode(provisioner, logger),
		NewIngestionNode(dispatcher, logger),
		NewPublishNode(store, logger),
	}, store, recorder, clock, logger)
}

// NewRunnerWithNodes creates a runner over an explicit node list.
func NewRunnerWithNodes(nodes []NodeExecutor, store handoff.Store, recorder RunRecorder, clock retry.Clock, logger *zap.Logger) *Runner {
	if clock == nil {
		clock = retry.SystemClock()
	}
	return &Runner{
		nodes:    nodes,
		store:    store,
		recorder: recorder,
		clock:    clock,
		logger:   logger.Named("pipeline"),
	}
}

// Run loads the pipeline context (unless the plan carries one), executes every node and returns the run
// record. Execution stops at the first failing node; later nodes stay
// pending. The returned run is non-nil whenever the context could be loaded.
func (r *Runner) Run(ctx context.Context, plan *Plan) (run *models.PipelineRun, err error) {
	if plan == nil {
		return nil, fmt.Errorf("plan is required")
	}

	pctx := plan.Context
	if pctx == nil {
		if pctx, err = handoff.LoadOrSeed(ctx, r.store, plan.Namespace, plan.Seed); err != nil {
			return nil, err
		}
	}
	if err := pctx.Require(models.InputBucket, models.InputPrefix); err != nil {
		return nil, err
	}

	run = &models.PipelineRun{
		ID:        uuid.New(),
		Namespace: plan.Namespace,
		ExportID:  recipe.ExportID(r.clock.Now()),
		Context:   pctx,
		StartedAt: r.clock.Now().UTC(),
	}
	for _, n := range r.nodes {
		run.Nodes = append(run.Nodes, models.PipelineNode{Name: n.Name(), Status: models.PipelineNodeStatusPending})
	}
	state := &State{Plan: plan, Run: run, Context: pctx}

	r.logger.Info("Starting pipeline run",
		zap.String("run_id", run.ID.String()),
		zap.String("namespace", plan.Namespace),
		zap.String("export_id", run.ExportID))
	r.record(ctx, run, true)

	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("Pipeline run panicked",
				zap.String("run_id", run.ID.String()),
				zap.Any("panic", p),
				zap.Stack("stack"))
			err = fmt.Errorf("panic during pipeline run: %v", p)
		}
		if err != nil {
			run.ErrorMessage = errorMessage(err)
		}
		done := r.clock.Now().UTC()
		run.CompletedAt = &done
		r.record(context.WithoutCancel(ctx), run, false)
	}()

	for _, n := range r.nodes {
		if err := ctx.Err(); err != nil {
			r.logger.Info("Pipeline run cancelled", zap.String("run_id", run.ID.String()))
			return run, err
		}
		if err := r.executeNode(ctx, n, state); err != nil {
			return run, err
		}
	}

	r.logger.Info("Pipeline run complete",
		zap.String("run_id", run.ID.String()),
		zap.Bool("already_existed", run.AlreadyExisted))
	return run, nil
}

func (r *Runner) executeNode(ctx context.Context, n NodeExecutor, state *State) error {
	record := state.Run.Node(n.Name())
	started := r.clock.Now().UTC()
	record.Status = models.PipelineNodeStatusRunning
	record.StartedAt = &started

	r.logger.Info("Executing node", zap.String("node_name", string(n.Name())))
	err := n.Execute(ctx, state)

	completed := r.clock.Now().UTC()
	record.CompletedAt = &completed
	switch {
	case err == nil:
		record.Status = models.PipelineNodeStatusCompleted
	case errors.Is(err, ErrNodeSkipped):
		record.Status = models.PipelineNodeStatusSkipped
		err = nil
	default:
		record.Status = models.PipelineNodeStatusFailed
		record.ErrorMessage = errorMessage(err)
		r.logger.Error("Node execution failed",
			zap.String("node_name", string(n.Name())),
			zap.Error(err))
	}

	r.record(ctx, state.Run, false)
	if err != nil {
		return fmt.Errorf("%s: %w", n.Name(), err)
	}
	return nil
}

func (r *Runner) record(ctx context.Context, run *models.PipelineRun, create bool) {
	if r.recorder == nil {
		return
	}
	var err error
	if create {
		err = r.recorder.Create(ctx, run)
	} else {
		err = r.recorder.Update(ctx, run)
	}
	if err != nil {
		r.logger.Warn("Failed to record pipeline run",
			zap.String("run_id", run.ID.String()),
			zap.Error(err))
	}
}

// errorMessage is the form of err kept in run history.
func errorMessage(err error) string {
	return logging.TruncateString(logging.SanitizeError(err), logging.MaxErrorLogLength)
}
