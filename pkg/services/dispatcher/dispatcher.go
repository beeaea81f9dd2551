// Package dispatcher submits the ingestion job that fills a newly created
// feature group and waits for it to finish.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/Manny27nyc/amazon-sagemaker-examples/pkg/adapters/objectstore"
	"github.com/Manny27nyc/amazon-sagemaker-examples/pkg/apperrors"
	"github.com/Manny27nyc/amazon-sagemaker-examples/pkg/models"
	"github.com/Manny27nyc/amazon-sagemaker-examples/pkg/retry"
)

// DefaultPollInterval is how often a running job is re-described.
const DefaultPollInterval = 60 * time.Second

// JobAPI submits and describes processing jobs. Describe classifies an
// unknown job as apperrors.ErrNotFound.
type JobAPI interface {
	Submit(ctx context.Context, spec *models.IngestionJobSpec, recipeURI string) (string, error)
	Describe(ctx context.Context, jobName string) (*models.JobOutcome, error)
}

// ObjectStore reads and writes recipe objects.
type ObjectStore interface {
	Get(ctx context.Context, uri string) ([]byte, error)
	PutBytes(ctx context.Context, uri string, data []byte) (string, error)
}

// Dispatcher runs ingestion jobs synchronously.
type Dispatcher struct {
	jobs     JobAPI
	store    ObjectStore
	poll     *retry.PollConfig
	readFile func(string) ([]byte, error)
	logger   *zap.Logger
}

// New creates a Dispatcher. A nil poll config polls every DefaultPollInterval
// without an attempt ceiling.
func New(jobs JobAPI, store ObjectStore, poll *retry.PollConfig, logger *zap.Logger) *Dispatcher {
	if poll == nil {
		poll = retry.FixedInterval(DefaultPollInterval)
	}
	return &Dispatcher{
		jobs:     jobs,
		store:    store,
		poll:     poll,
		readFile: os.ReadFile,
		logger:   logger.Named("dispatcher"),
	}
}

// SubmitIfNeeded runs the ingestion job unless the feature group already
// existed, in which case it returns a Skipped outcome without touching any
// remote service. Otherwise it stages the recipe, submits the job and
// blocks until the job reaches a terminal status.
func (d *Dispatcher) SubmitIfNeeded(ctx context.Context, spec *models.IngestionJobSpec, alreadyExisted bool) (*models.JobOutcome, error) {
	if alreadyExisted {
		d.logger.Info("Feature group already existed, skipping ingestion")
		outcome := &models.JobOutcome{Status: models.JobStatusSkipped}
		if spec != nil {
			outcome.JobName = spec.JobName
		}
		return outcome, nil
	}

	if spec == nil {
		return nil, apperrors.ConfigurationError("ingestion job spec is required")
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	recipeURI, err := d.stageRecipe(ctx, spec)
	if err != nil {
		return nil, err
	}

	arn, err := d.jobs.Submit(ctx, spec, recipeURI)
	if err != nil {
		return nil, fmt.Errorf("%w: job %s: %w", apperrors.ErrSubmissionFailed, spec.JobName, err)
	}
	d.logger.Info("Ingestion job submitted",
		zap.String("job_name", spec.JobName),
		zap.String("job_arn", arn),
		zap.String("feature_group", spec.Output.Name))

	outcome, err := d.await(ctx, spec.JobName)
	if err != nil {
		return nil, err
	}
	outcome.RecipeURI = recipeURI
	if outcome.JobARN == "" {
		outcome.JobARN = arn
	}

	if outcome.Status != models.JobStatusCompleted {
		message := outcome.FailureReason
		if message == "" {
			message = outcome.ExitMessage
		}
		return outcome, &apperrors.JobError{
			JobName: spec.JobName,
			Status:  string(outcome.Status),
			Message: message,
		}
	}

	d.logger.Info("Ingestion job completed",
		zap.String("job_name", spec.JobName),
		zap.Duration("duration", outcome.EndedAt.Sub(outcome.StartedAt)))
	return outcome, nil
}

// stageRecipe copies the recipe to its staged location and returns that URI.
func (d *Dispatcher) stageRecipe(ctx context.Context, spec *models.IngestionJobSpec) (string, error) {
	body := spec.RecipeBody
	if len(body) == 0 {
		var err error
		if objectstore.IsURI(spec.RecipeRef) {
			body, err = d.store.Get(ctx, spec.RecipeRef)
		} else {
			body, err = d.readFile(spec.RecipeRef)
		}
		if err != nil {
			return "", fmt.Errorf("failed to read recipe %s: %w", spec.RecipeRef, err)
		}
	}

	uri, err := d.store.PutBytes(ctx, spec.StagedRecipeURI, body)
	if err != nil {
		return "", fmt.Errorf("failed to stage recipe: %w", err)
	}
	d.logger.Debug("Recipe staged",
		zap.String("recipe", spec.RecipeRef),
		zap.String("staged_uri", uri),
		zap.Int("bytes", len(body)))
	return uri, nil
}

// await polls the job until it reaches a terminal status.
func (d *Dispatcher) await(ctx context.Context, jobName string) (*models.JobOutcome, error) {
	var outcome *models.JobOutcome
	err := retry.Poll(ctx, d.poll, func(ctx context.Context) (bool, error) {
		described, err := d.jobs.Describe(ctx, jobName)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return false, fmt.Errorf("%w: %s: %w", apperrors.ErrJobNotFound, jobName, err)
			}
			return false, fmt.Errorf("failed to describe job %s: %w", jobName, err)
		}
		outcome = described
		if !described.Status.IsKnown() {
			d.logger.Warn("Unexpected ingestion job status",
				zap.String("job_name", jobName),
				zap.String("status", string(described.Status)))
		}
		if !described.Status.IsTerminal() {
			d.logger.Debug("Ingestion job running",
				zap.String("job_name", jobName),
				zap.String("status", string(described.Status)))
		}
		return described.Status.IsTerminal(), nil
	})
	if err != nil {
		return nil, err
	}
	return outcome, nil
}
