// Package paramstore persists pipeline contexts in AWS Systems Manager
// Parameter Store.
package paramstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/ssm"
	"github.com/aws/aws-sdk-go/service/ssm/ssmiface"
	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/Manny27nyc/amazon-sagemaker-examples/pkg/apperrors"
	"github.com/Manny27nyc/amazon-sagemaker-examples/pkg/models"
)

const contextParameter = "pipeline-context"

// SSMStore keeps one JSON parameter per namespace. With flat outputs
// enabled it also writes each published output under its own key so
// consumers that only read plain parameters can find them.
type SSMStore struct {
	api         ssmiface.SSMAPI
	flatOutputs bool
	now         func() time.Time
	logger      *zap.Logger
}

// NewSSMStore creates a parameter store backed handoff store.
func NewSSMStore(api ssmiface.SSMAPI, flatOutputs bool, logger *zap.Logger) *SSMStore {
	return &SSMStore{
		api:         api,
		flatOutputs: flatOutputs,
		now:         time.Now,
		logger:      logger.Named("paramstore"),
	}
}

// Load reads the latest context for namespace.
func (s *SSMStore) Load(ctx context.Context, namespace string) (*models.PipelineContext, error) {
	out, err := s.api.GetParameterWithContext(ctx, &ssm.GetParameterInput{
		Name: aws.String(parameterName(namespace, contextParameter)),
	})
	if err != nil {
		var aerr awserr.Error
		if errors.As(err, &aerr) && aerr.Code() == ssm.ErrCodeParameterNotFound {
			return nil, fmt.Errorf("pipeline context %q: %w", namespace, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read pipeline context: %w", err)
	}

	var pctx models.PipelineContext
	if err := json.Unmarshal([]byte(aws.StringValue(out.Parameter.Value)), &pctx); err != nil {
		return nil, fmt.Errorf("failed to decode pipeline context: %w", err)
	}
	pctx.Namespace = namespace
	pctx.Version = aws.Int64Value(out.Parameter.Version)
	return &pctx, nil
}

// Save overwrites the namespace's parameter; the parameter version becomes
// the context version.
func (s *SSMStore) Save(ctx context.Context, pctx *models.PipelineContext) (int64, error) {
	saved := pctx.Clone()
	saved.UpdatedAt = s.now().UTC()
	saved.Version = 0

	payload, err := json.Marshal(saved)
	if err != nil {
		return 0, fmt.Errorf("failed to encode pipeline context: %w", err)
	}

	out, err := s.put(ctx, parameterName(pctx.Namespace, contextParameter), string(payload))
	if err != nil {
		return 0, err
	}

	if s.flatOutputs {
		for key, value := range flatten(pctx.Outputs) {
			if _, err := s.put(ctx, parameterName(pctx.Namespace, key), value); err != nil {
				return 0, err
			}
		}
	}

	version := aws.Int64Value(out.Version)
	s.logger.Info("Pipeline context saved",
		zap.String("namespace", pctx.Namespace),
		zap.Int64("version", version))
	return version, nil
}

func (s *SSMStore) put(ctx context.Context, name, value string) (*ssm.PutParameterOutput, error) {
	out, err := s.api.PutParameterWithContext(ctx, &ssm.PutParameterInput{
		Name:      aws.String(name),
		Value:     aws.String(value),
		Type:      aws.String(ssm.ParameterTypeString),
		Tier:      aws.String(ssm.ParameterTierIntelligentTiering),
		Overwrite: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to write parameter %s: %w", name, err)
	}
	return out, nil
}

func flatten(o models.PipelineOutputs) map[string]string {
	out := make(map[string]string, 4)
	if o.FeatureGroupName != "" {
		out["feature_group_name"] = o.FeatureGroupName
	}
	if o.ExportID != "" {
		out["flow_export_id"] = o.ExportID
	}
	if o.RecipeURI != "" {
		out["flow_s3_uri"] = o.RecipeURI
	}
	if len(o.ContainerRegistry) > 0 {
		if b, err := json.Marshal(o.ContainerRegistry); err == nil {
			out["container_registry"] = string(b)
		}
	}
	return out
}

func parameterName(namespace, key string) string {
	return "/" + strings.Trim(namespace, "/") + "/" + key
}
