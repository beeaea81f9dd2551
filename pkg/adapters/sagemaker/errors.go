package sagemaker

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go/aws/awserr"
	awssagemaker "github.com/aws/aws-sdk-go/service/sagemaker"

	"github.com/Manny27nyc/amazon-sagemaker-examples/pkg/apperrors"
)

const validationExceptionCode = "ValidationException"

// classify maps platform error codes onto the app's sentinel errors. The
// raw AWS error stays in the chain so callers can still inspect it.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var aerr awserr.Error
	if !errors.As(err, &aerr) {
		return err
	}

	switch aerr.Code() {
	case awssagemaker.ErrCodeResourceNotFound:
		return fmt.Errorf("%w: %w", apperrors.ErrNotFound, err)
	case awssagemaker.ErrCodeResourceInUse:
		return fmt.Errorf("%w: %w", apperrors.ErrConflict, err)
	case validationExceptionCode:
		// Describe calls for unknown processing jobs come back as validation
		// errors rather than ResourceNotFound.
		if strings.Contains(strings.ToLower(aerr.Message()), "could not find") {
			return fmt.Errorf("%w: %w", apperrors.ErrNotFound, err)
		}
	}
	return err
}
