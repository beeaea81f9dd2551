package paramstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/ssm"
	"github.com/aws/aws-sdk-go/service/ssm/ssmiface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Manny27nyc/amazon-sagemaker-examples/pkg/apperrors"
	"github.com/Manny27nyc/amazon-sagemaker-examples/pkg/models"
)

// fakeSSM is an in-memory parameter store with per-name versions.
type fakeSSM struct {
	ssmiface.SSMAPI
	values   map[string]string
	versions map[string]int64
	putErr   error
}

func newFakeSSM() *fakeSSM {
	return &fakeSSM{values: map[string]string{}, versions: map[string]int64{}}
}

func (f *fakeSSM) GetParameterWithContext(_ aws.Context, in *ssm.GetParameterInput, _ ...request.Option) (*ssm.GetParameterOutput, error) {
	name := aws.StringValue(in.Name)
	v, ok := f.values[name]
	if !ok {
		return nil, awserr.New(ssm.ErrCodeParameterNotFound, "not found", nil)
	}
	return &ssm.GetParameterOutput{Parameter: &ssm.Parameter{
		Name:    in.Name,
		Value:   aws.String(v),
		Version: aws.Int64(f.versions[name]),
	}}, nil
}

func (f *fakeSSM) PutParameterWithContext(_ aws.Context, in *ssm.PutParameterInput, _ ...request.Option) (*ssm.PutParameterOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	name := aws.StringValue(in.Name)
	f.values[name] = aws.StringValue(in.Value)
	f.versions[name]++
	return &ssm.PutParameterOutput{Version: aws.Int64(f.versions[name])}, nil
}

func TestSSMStore_LoadMissing(t *testing.T) {
	store := NewSSMStore(newFakeSSM(), false, zap.NewNop())

	_, err := store.Load(context.Background(), "music-recommender")
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestSSMStore_SaveThenLoad(t *testing.T) {
	api := newFakeSSM()
	store := NewSSMStore(api, true, zap.NewNop())
	store.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }

	pctx := &models.PipelineContext{
		Namespace: "music-recommender",
		Inputs:    models.PipelineInputs{Bucket: "b", Prefix: "music"},
		Outputs: models.PipelineOutputs{
			FeatureGroupName:  "FG-tracks",
			ExportID:          "02-03-04-05-abcd1234",
			RecipeURI:         "s3://b/music/data_wrangler_flows/flow-02-03-04-05-abcd1234.flow",
			ContainerRegistry: map[string]string{"us-east-1": "663277389841"},
		},
	}

	v1, err := store.Save(context.Background(), pctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v1)

	v2, err := store.Save(context.Background(), pctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v2)

	loaded, err := store.Load(context.Background(), "music-recommender")
	require.NoError(t, err)
	assert.Equal(t, int64(2), loaded.Version)
	assert.Equal(t, "FG-tracks", loaded.Outputs.FeatureGroupName)
	assert.Equal(t, "b", loaded.Inputs.Bucket)
	assert.Equal(t, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), loaded.UpdatedAt)

	assert.Equal(t, "FG-tracks", api.values["/music-recommender/feature_group_name"])
	assert.Equal(t, "02-03-04-05-abcd1234", api.values["/music-recommender/flow_export_id"])
	assert.JSONEq(t, `{"us-east-1":"663277389841"}`, api.values["/music-recommender/container_registry"])
}

func TestSSMStore_SaveWithoutFlatOutputs(t *testing.T) {
	api := newFakeSSM()
	store := NewSSMStore(api, false, zap.NewNop())

	_, err := store.Save(context.Background(), &models.PipelineContext{
		Namespace: "/ns/",
		Outputs:   models.PipelineOutputs{FeatureGroupName: "FG"},
	})
	require.NoError(t, err)
	assert.Len(t, api.values, 1)
	assert.Contains(t, api.values, "/ns/pipeline-context")
}

func TestSSMStore_SaveError(t *testing.T) {
	api := newFakeSSM()
	api.putErr = errors.New("AccessDeniedException")
	store := NewSSMStore(api, false, zap.NewNop())

	_, err := store.Save(context.Background(), &models.PipelineContext{Namespace: "ns"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AccessDeniedException")
}
