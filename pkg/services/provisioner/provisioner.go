// Package provisioner makes sure a feature group exists and waits for it to
// become usable.
package provisioner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Manny27nyc/amazon-sagemaker-examples/pkg/apperrors"
	"github.com/Manny27nyc/amazon-sagemaker-examples/pkg/models"
	"github.com/Manny27nyc/amazon-sagemaker-examples/pkg/retry"
)

// DefaultPollInterval is how often a Creating feature group is re-described.
const DefaultPollInterval = 5 * time.Second

// FeatureGroupAPI is the subset of the feature store the provisioner needs.
// Implementations classify a missing group as apperrors.ErrNotFound and a
// name already taken as apperrors.ErrConflict.
type FeatureGroupAPI interface {
	Describe(ctx context.Context, name string) (*models.FeatureGroupHandle, error)
	Create(ctx context.Context, spec *models.FeatureGroupSpec) (*models.FeatureGroupHandle, error)
}

// Provisioner creates feature groups at most once per name.
type Provisioner struct {
	api    FeatureGroupAPI
	poll   *retry.PollConfig
	logger *zap.Logger
}

// New creates a Provisioner. A nil poll config polls every DefaultPollInterval
// without an attempt ceiling.
func New(api FeatureGroupAPI, poll *retry.PollConfig, logger *zap.Logger) *Provisioner {
	if poll == nil {
		poll = retry.FixedInterval(DefaultPollInterval)
	}
	return &Provisioner{
		api:    api,
		poll:   poll,
		logger: logger.Named("provisioner"),
	}
}

// EnsureExists returns the named feature group, creating it when the
// platform does not know it. alreadyExisted is true whenever this call did
// not create the group, including when a concurrent create won the race.
// Existing groups are not compared against spec.
func (p *Provisioner) EnsureExists(ctx context.Context, spec *models.FeatureGroupSpec) (*models.FeatureGroupHandle, bool, error) {
	if spec == nil {
		return nil, false, apperrors.ConfigurationError("feature group spec is required")
	}
	if err := spec.Validate(); err != nil {
		return nil, false, err
	}

	handle, err := p.api.Describe(ctx, spec.Name)
	switch {
	case err == nil:
		p.logger.Info("Feature group already exists",
			zap.String("feature_group", spec.Name),
			zap.String("status", string(handle.Status)))
		return handle, true, nil
	case errors.Is(err, apperrors.ErrConflict):
		p.logger.Info("Feature group is in use", zap.String("feature_group", spec.Name))
		return &models.FeatureGroupHandle{Name: spec.Name}, true, nil
	case !errors.Is(err, apperrors.ErrNotFound):
		return nil, false, fmt.Errorf("failed to describe feature group %s: %w", spec.Name, err)
	}

	handle, err = p.api.Create(ctx, spec)
	if err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			p.logger.Info("Feature group was created concurrently", zap.String("feature_group", spec.Name))
			return &models.FeatureGroupHandle{Name: spec.Name}, true, nil
		}
		return nil, false, fmt.Errorf("failed to create feature group %s: %w", spec.Name, err)
	}

	p.logger.Info("Feature group creation started",
		zap.String("feature_group", handle.Name),
		zap.String("arn", handle.ARN))
	return handle, false, nil
}

// AwaitReady blocks until the feature group leaves Creating. It returns the
// Created handle, or a *apperrors.ProvisioningError carrying the raw status
// for any other outcome. Cancelling ctx stops the wait.
func (p *Provisioner) AwaitReady(ctx context.Context, handle *models.FeatureGroupHandle) (*models.FeatureGroupHandle, error) {
	if handle == nil || handle.Name == "" {
		return nil, apperrors.ConfigurationError("feature group handle is required")
	}

	state := newLifecycle()
	current := handle
	polls := 0

	err := retry.Poll(ctx, p.poll, func(ctx context.Context) (bool, error) {
		polls++
		described, err := p.api.Describe(ctx, handle.Name)
		if err != nil {
			return false, fmt.Errorf("failed to describe feature group %s: %w", handle.Name, err)
		}
		current = described

		done, err := state.observe(described.Status)
		if err != nil {
			p.logger.Warn("Unexpected feature group status",
				zap.String("feature_group", handle.Name),
				zap.String("status", string(described.Status)),
				zap.Error(err))
		}
		return done, nil
	})
	if err != nil {
		return nil, err
	}

	if !current.Status.IsReady() {
		return nil, &apperrors.ProvisioningError{
			FeatureGroup:  handle.Name,
			Status:        string(current.Status),
			FailureReason: current.FailureReason,
		}
	}

	p.logger.Info("Feature group is ready",
		zap.String("feature_group", handle.Name),
		zap.Int("polls", polls))
	return current, nil
}
