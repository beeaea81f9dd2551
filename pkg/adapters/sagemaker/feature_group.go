// Package sagemaker adapts the SageMaker feature store and processing APIs
// to the provisioner and dispatcher services.
package sagemaker

import (
	"context"

	"github.com/aws/aws-sdk-go/aws"
	awssagemaker "github.com/aws/aws-sdk-go/service/sagemaker"
	"github.com/aws/aws-sdk-go/service/sagemaker/sagemakeriface"
	"go.uber.org/zap"

	"github.com/Manny27nyc/amazon-sagemaker-examples/pkg/models"
)

// FeatureGroupClient describes and creates feature groups.
type FeatureGroupClient struct {
	api     sagemakeriface.SageMakerAPI
	roleARN string
	logger  *zap.Logger
}

// NewFeatureGroupClient creates a feature group client. roleARN is the
// execution role the platform assumes to write the offline store.
func NewFeatureGroupClient(api sagemakeriface.SageMakerAPI, roleARN string, logger *zap.Logger) *FeatureGroupClient {
	return &FeatureGroupClient{
		api:     api,
		roleARN: roleARN,
		logger:  logger.Named("sagemaker.featuregroup"),
	}
}

// Describe returns the current handle for name. A missing group yields an
// error wrapping apperrors.ErrNotFound.
func (c *FeatureGroupClient) Describe(ctx context.Context, name string) (*models.FeatureGroupHandle, error) {
	out, err := c.api.DescribeFeatureGroupWithContext(ctx, &awssagemaker.DescribeFeatureGroupInput{
		FeatureGroupName: aws.String(name),
	})
	if err != nil {
		return nil, classify(err)
	}

	return &models.FeatureGroupHandle{
		Name:          aws.StringValue(out.FeatureGroupName),
		ARN:           aws.StringValue(out.FeatureGroupArn),
		Status:        models.FeatureGroupStatus(aws.StringValue(out.FeatureGroupStatus)),
		FailureReason: aws.StringValue(out.FailureReason),
	}, nil
}

// Create issues a single create request. The returned handle is in the
// Creating state.
func (c *FeatureGroupClient) Create(ctx context.Context, spec *models.FeatureGroupSpec) (*models.FeatureGroupHandle, error) {
	input := &awssagemaker.CreateFeatureGroupInput{
		FeatureGroupName:            aws.String(spec.Name),
		RecordIdentifierFeatureName: aws.String(spec.RecordIdentifier),
		EventTimeFeatureName:        aws.String(spec.EventTime),
		FeatureDefinitions:          featureDefinitions(spec.Columns),
		OnlineStoreConfig: &awssagemaker.OnlineStoreConfig{
			EnableOnlineStore: aws.Bool(spec.OnlineEnabled),
		},
		OfflineStoreConfig: &awssagemaker.OfflineStoreConfig{
			S3StorageConfig: &awssagemaker.S3StorageConfig{
				S3Uri: aws.String(spec.StorageLocation),
			},
		},
		RoleArn: aws.String(c.roleARN),
	}
	if spec.Description != "" {
		input.Description = aws.String(spec.Description)
	}

	out, err := c.api.CreateFeatureGroupWithContext(ctx, input)
	if err != nil {
		return nil, classify(err)
	}

	c.logger.Info("Feature group create requested",
		zap.String("feature_group", spec.Name),
		zap.Int("features", len(spec.Columns)),
		zap.Bool("online_enabled", spec.OnlineEnabled))

	return &models.FeatureGroupHandle{
		Name:   spec.Name,
		ARN:    aws.StringValue(out.FeatureGroupArn),
		Status: models.FeatureGroupStatusCreating,
	}, nil
}

func featureDefinitions(cols []models.ColumnSchema) []*awssagemaker.FeatureDefinition {
	defs := make([]*awssagemaker.FeatureDefinition, 0, len(cols))
	for _, col := range cols {
		defs = append(defs, &awssagemaker.FeatureDefinition{
			FeatureName: aws.String(col.Name),
			FeatureType: aws.String(featureType(col.Type)),
		})
	}
	return defs
}

func featureType(t models.FeatureType) string {
	switch t {
	case models.FeatureTypeIntegral:
		return awssagemaker.FeatureTypeIntegral
	case models.FeatureTypeFractional:
		return awssagemaker.FeatureTypeFractional
	default:
		return awssagemaker.FeatureTypeString
	}
}
