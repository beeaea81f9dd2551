package sagemaker

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	awssagemaker "github.com/aws/aws-sdk-go/service/sagemaker"
	"github.com/aws/aws-sdk-go/service/sagemaker/sagemakeriface"
	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/Manny27nyc/amazon-sagemaker-examples/pkg/models"
)

const (
	// RecipeInputName is the input channel that carries the staged recipe.
	RecipeInputName = "flow"
	// RecipeMountPath is where the container expects the recipe.
	RecipeMountPath = "/opt/ml/processing/flow"
)

// ProcessingClient submits and describes processing jobs.
type ProcessingClient struct {
	api        sagemakeriface.SageMakerAPI
	roleARN    string
	imageURI   string
	maxRuntime time.Duration
	logger     *zap.Logger
}

// NewProcessingClient creates a processing client that runs imageURI under
// roleARN. A zero maxRuntime leaves the platform default in place.
func NewProcessingClient(api sagemakeriface.SageMakerAPI, roleARN, imageURI string, maxRuntime time.Duration, logger *zap.Logger) *ProcessingClient {
	return &ProcessingClient{
		api:        api,
		roleARN:    roleARN,
		imageURI:   imageURI,
		maxRuntime: maxRuntime,
		logger:     logger.Named("sagemaker.processing"),
	}
}

// Submit creates the processing job and returns its ARN without waiting.
func (c *ProcessingClient) Submit(ctx context.Context, spec *models.IngestionJobSpec, recipeURI string) (string, error) {
	input, err := c.buildInput(spec, recipeURI)
	if err != nil {
		return "", err
	}

	out, err := c.api.CreateProcessingJobWithContext(ctx, input)
	if err != nil {
		return "", classify(err)
	}

	c.logger.Info("Processing job submitted",
		zap.String("job_name", spec.JobName),
		zap.String("feature_group", spec.Output.Name),
		zap.Int64("instance_count", spec.Compute.InstanceCount),
		zap.String("instance_type", spec.Compute.InstanceType))

	return aws.StringValue(out.ProcessingJobArn), nil
}

// Describe returns the job's current status payload.
func (c *ProcessingClient) Describe(ctx context.Context, jobName string) (*models.JobOutcome, error) {
	out, err := c.api.DescribeProcessingJobWithContext(ctx, &awssagemaker.DescribeProcessingJobInput{
		ProcessingJobName: aws.String(jobName),
	})
	if err != nil {
		return nil, classify(err)
	}

	return &models.JobOutcome{
		JobName:       aws.StringValue(out.ProcessingJobName),
		JobARN:        aws.StringValue(out.ProcessingJobArn),
		Status:        models.JobStatus(aws.StringValue(out.ProcessingJobStatus)),
		FailureReason: aws.StringValue(out.FailureReason),
		ExitMessage:   aws.StringValue(out.ExitMessage),
		StartedAt:     aws.TimeValue(out.ProcessingStartTime),
		EndedAt:       aws.TimeValue(out.ProcessingEndTime),
	}, nil
}

func (c *ProcessingClient) buildInput(spec *models.IngestionJobSpec, recipeURI string) (*awssagemaker.CreateProcessingJobInput, error) {
	outputConfig, err := outputConfigArgument(spec.OutputName, spec.OutputFormat)
	if err != nil {
		return nil, err
	}

	inputs := make([]*awssagemaker.ProcessingInput, 0, len(spec.Inputs)+1)
	inputs = append(inputs, s3Input(RecipeInputName, recipeURI, RecipeMountPath))
	for _, in := range spec.Inputs {
		inputs = append(inputs, s3Input(in.Name, in.SourceURI, in.LocalPath))
	}

	input := &awssagemaker.CreateProcessingJobInput{
		ProcessingJobName: aws.String(spec.JobName),
		RoleArn:           aws.String(c.roleARN),
		AppSpecification: &awssagemaker.AppSpecification{
			ImageUri:           aws.String(c.imageURI),
			ContainerArguments: aws.StringSlice([]string{"--output-config", outputConfig}),
		},
		ProcessingInputs: inputs,
		ProcessingOutputConfig: &awssagemaker.ProcessingOutputConfig{
			Outputs: []*awssagemaker.ProcessingOutput{{
				OutputName: aws.String(spec.OutputName),
				AppManaged: aws.Bool(true),
				FeatureStoreOutput: &awssagemaker.ProcessingFeatureStoreOutput{
					FeatureGroupName: aws.String(spec.Output.Name),
				},
			}},
		},
		ProcessingResources: &awssagemaker.ProcessingResources{
			ClusterConfig: &awssagemaker.ProcessingClusterConfig{
				InstanceCount:  aws.Int64(spec.Compute.InstanceCount),
				InstanceType:   aws.String(spec.Compute.InstanceType),
				VolumeSizeInGB: aws.Int64(spec.Compute.VolumeSizeGB),
			},
		},
		NetworkConfig: &awssagemaker.NetworkConfig{
			EnableNetworkIsolation: aws.Bool(spec.NetworkIsolation),
		},
	}
	if c.maxRuntime > 0 {
		input.StoppingCondition = &awssagemaker.ProcessingStoppingCondition{
			MaxRuntimeInSeconds: aws.Int64(int64(c.maxRuntime.Seconds())),
		}
	}
	return input, nil
}

func s3Input(name, uri, localPath string) *awssagemaker.ProcessingInput {
	return &awssagemaker.ProcessingInput{
		InputName: aws.String(name),
		S3Input: &awssagemaker.ProcessingS3Input{
			S3Uri:                  aws.String(uri),
			LocalPath:              aws.String(localPath),
			S3DataType:             aws.String(awssagemaker.ProcessingS3DataTypeS3prefix),
			S3InputMode:            aws.String(awssagemaker.ProcessingS3InputModeFile),
			S3DataDistributionType: aws.String(awssagemaker.ProcessingS3DataDistributionTypeFullyReplicated),
		},
	}
}

// outputConfigArgument renders {"<output>":{"content_type":"CSV"}}.
func outputConfigArgument(outputName string, format models.OutputFormat) (string, error) {
	if format == "" {
		format = models.OutputFormatCSV
	}
	b, err := json.Marshal(map[string]map[string]string{
		outputName: {"content_type": string(format)},
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode output config: %w", err)
	}
	return string(b), nil
}
