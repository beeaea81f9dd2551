package cli

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	awssagemaker "github.com/aws/aws-sdk-go/service/sagemaker"
	"github.com/aws/aws-sdk-go/service/ssm"
	"go.uber.org/zap"

	"github.com/Manny27nyc/amazon-sagemaker-examples/pkg/adapters/awsclient"
	"github.com/Manny27nyc/amazon-sagemaker-examples/pkg/adapters/objectstore"
	"github.com/Manny27nyc/amazon-sagemaker-examples/pkg/adapters/paramstore"
	"github.com/Manny27nyc/amazon-sagemaker-examples/pkg/adapters/sagemaker"
	"github.com/Manny27nyc/amazon-sagemaker-examples/pkg/config"
	"github.com/Manny27nyc/amazon-sagemaker-examples/pkg/database"
	"github.com/Manny27nyc/amazon-sagemaker-examples/pkg/handoff"
	"github.com/Manny27nyc/amazon-sagemaker-examples/pkg/logging"
	"github.com/Manny27nyc/amazon-sagemaker-examples/pkg/repositories"
	"github.com/Manny27nyc/amazon-sagemaker-examples/pkg/retry"
	"github.com/Manny27nyc/amazon-sagemaker-examples/pkg/services/dispatcher"
	"github.com/Manny27nyc/amazon-sagemaker-examples/pkg/services/pipeline"
	"github.com/Manny27nyc/amazon-sagemaker-examples/pkg/services/provisioner"
)

// app holds the wired services for one command invocation.
type app struct {
	cfg         *config.Config
	logger      *zap.Logger
	store       handoff.Store
	recorder    pipeline.RunRecorder
	runs        repositories.PipelineRunRepository
	provisioner *provisioner.Provisioner
	dispatcher  *dispatcher.Dispatcher
	runner      *pipeline.Runner
	closers     []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// newApp connects to AWS and the handoff backend and wires the services.
func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	a, sess, err := newHandoffApp(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	imageURI := cfg.Ingestion.ContainerImage
	if imageURI == "" {
		imageURI, err = sagemaker.ContainerImageURI(cfg.AWS.Region, cfg.Ingestion.ContainerVersion)
		if err != nil {
			a.Close()
			return nil, err
		}
	}

	sm := awssagemaker.New(sess)
	store := objectstore.NewS3Store(s3manager.NewUploader(sess), s3manager.NewDownloader(sess), logger)
	featureGroups := sagemaker.NewFeatureGroupClient(sm, cfg.AWS.RoleARN, logger)
	jobs := sagemaker.NewProcessingClient(sm, cfg.AWS.RoleARN, imageURI, cfg.Ingestion.MaxRuntime, logger)

	a.provisioner = provisioner.New(featureGroups, &retry.PollConfig{
		Interval:    cfg.Poll.FeatureGroupInterval,
		MaxAttempts: cfg.Poll.MaxAttempts,
	}, logger)
	a.dispatcher = dispatcher.New(jobs, store, &retry.PollConfig{
		Interval:    cfg.Poll.JobInterval,
		MaxAttempts: cfg.Poll.MaxAttempts,
	}, logger)
	a.runner = pipeline.NewRunner(a.provisioner, a.dispatcher, a.store, a.recorder, nil, logger)

	return a, nil
}

// newHandoffApp wires only the pipeline context backend.
func newHandoffApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, *session.Session, error) {
	sess, err := awsclient.NewSession(awsclient.Options{
		Region:     cfg.AWS.Region,
		Profile:    cfg.AWS.Profile,
		Endpoint:   config.ResolveEndpointForDocker(cfg.AWS.Endpoint),
		MaxRetries: cfg.AWS.MaxRetries,
	})
	if err != nil {
		return nil, nil, err
	}

	a := &app{cfg: cfg, logger: logger}
	if err := a.connectHandoff(ctx, ssm.New(sess)); err != nil {
		a.Close()
		return nil, nil, err
	}
	return a, sess, nil
}

// connectHandoff selects the pipeline context backend.
func (a *app) connectHandoff(ctx context.Context, ssmAPI *ssm.SSM) error {
	switch a.cfg.Handoff.Backend {
	case config.HandoffSSM:
		a.store = paramstore.NewSSMStore(ssmAPI, a.cfg.Handoff.FlatOutputs, a.logger)
	case config.HandoffMemory:
		a.store = handoff.NewMemoryStore()
	case config.HandoffPostgres:
		db, err := openDatabase(ctx, &a.cfg.Database, a.logger)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, db.Close)
		a.store = repositories.NewPipelineContextRepository(db)
		a.runs = repositories.NewPipelineRunRepository(db)
		if a.cfg.Database.RecordRuns {
			a.recorder = a.runs
		}
	default:
		return fmt.Errorf("unknown handoff backend %q", a.cfg.Handoff.Backend)
	}
	return nil
}

// openDatabase connects and applies pending migrations.
func openDatabase(ctx context.Context, cfg *config.DatabaseConfig, logger *zap.Logger) (*database.DB, error) {
	connStr := cfg.ConnectionString()
	logger.Info("Connecting to database", zap.String("url", logging.SanitizeConnectionString(connStr)))

	db, err := database.Open(ctx, &database.Config{
		URL:            connStr,
		MaxConnections: cfg.MaxConnections,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %s", logging.SanitizeError(err))
	}
	return db, nil
}
