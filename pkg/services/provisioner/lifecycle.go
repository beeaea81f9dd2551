package provisioner

import (
	"fmt"

	"github.com/qmuntal/stateless"

	"github.com/Manny27nyc/amazon-sagemaker-examples/pkg/models"
)

// lifecycle tracks a feature group from Creating to a terminal status. The
// observed status is the trigger; a status with no transition out of the
// current state is reported as unexpected.
type lifecycle struct {
	machine *stateless.StateMachine
}

func newLifecycle() *lifecycle {
	machine := stateless.NewStateMachine(models.FeatureGroupStatusCreating)

	machine.Configure(models.FeatureGroupStatusCreating).
		PermitReentry(models.FeatureGroupStatusCreating).
		Permit(models.FeatureGroupStatusCreated, models.FeatureGroupStatusCreated).
		Permit(models.FeatureGroupStatusCreateFailed, models.FeatureGroupStatusCreateFailed).
		Permit(models.FeatureGroupStatusDeleting, models.FeatureGroupStatusDeleting).
		Permit(models.FeatureGroupStatusDeleteFailed, models.FeatureGroupStatusDeleteFailed)

	machine.Configure(models.FeatureGroupStatusCreated)
	machine.Configure(models.FeatureGroupStatusCreateFailed)
	machine.Configure(models.FeatureGroupStatusDeleting)
	machine.Configure(models.FeatureGroupStatusDeleteFailed)

	return &lifecycle{machine: machine}
}

// observe applies a described status and reports whether polling can stop.
func (l *lifecycle) observe(status models.FeatureGroupStatus) (bool, error) {
	if err := l.machine.Fire(status); err != nil {
		return true, fmt.Errorf("unexpected status %q while %s: %w", status, l.current(), err)
	}
	return !l.current().IsTransient(), nil
}

func (l *lifecycle) current() models.FeatureGroupStatus {
	return l.machine.MustState().(models.FeatureGroupStatus)
}
