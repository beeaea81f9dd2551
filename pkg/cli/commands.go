package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Manny27nyc/amazon-sagemaker-examples/pkg/apperrors"
	"github.com/Manny27nyc/amazon-sagemaker-examples/pkg/config"
	"github.com/Manny27nyc/amazon-sagemaker-examples/pkg/handoff"
	"github.com/Manny27nyc/amazon-sagemaker-examples/pkg/models"
)

func newRunCommand(stdout io.Writer, flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Ensure the feature group, ingest into it and publish the pipeline context",
		Long: `
Runs the whole stage: the feature group is created if missing and awaited,
the ingestion job is submitted only for a newly created group, and the
resulting names are saved to the pipeline context. The run record is written
to stdout as JSON.
`,
		Args: cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			ctx := c.Context()
			cfg, logger, err := flags.load()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			a, err := newApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			pctx, err := handoff.LoadOrSeed(ctx, a.store, cfg.Handoff.Namespace, seedInputs(cfg))
			if err != nil {
				return err
			}
			plan, err := buildPlan(cfg, pctx)
			if err != nil {
				return err
			}

			run, runErr := a.runner.Run(ctx, plan)
			if run != nil {
				if err := writeJSON(stdout, run); err != nil {
					return err
				}
			}
			return runErr
		},
	}
}

// provisionResult is what the provision command prints.
type provisionResult struct {
	FeatureGroup   *models.FeatureGroupHandle `json:"feature_group"`
	AlreadyExisted bool                       `json:"already_existed"`
}

func newProvisionCommand(stdout io.Writer, flags *globalFlags) *cobra.Command {
	var wait bool
	ccmd := &cobra.Command{
		Use:   "provision",
		Short: "Ensure the feature group exists without running ingestion",
		Long: `
Creates the configured feature group if it does not exist. A newly created
group is awaited until it is ready unless --wait=false is given. The pipeline
context is not modified.
`,
		Args: cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			ctx := c.Context()
			cfg, logger, err := flags.load()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			a, err := newApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			pctx, err := handoff.LoadOrSeed(ctx, a.store, cfg.Handoff.Namespace, seedInputs(cfg))
			if err != nil {
				return err
			}
			spec, err := featureGroupSpec(cfg, pctx.Outputs.FeatureGroupName)
			if err != nil {
				return err
			}

			handle, alreadyExisted, err := a.provisioner.EnsureExists(ctx, spec)
			if err != nil {
				return err
			}
			if wait && !alreadyExisted {
				if handle, err = a.provisioner.AwaitReady(ctx, handle); err != nil {
					return err
				}
			}
			return writeJSON(stdout, provisionResult{FeatureGroup: handle, AlreadyExisted: alreadyExisted})
		},
	}
	ccmd.Flags().BoolVar(&wait, "wait", true, "wait for a newly created feature group to become ready")
	return ccmd
}

func newContextCommand(stdout io.Writer, flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "context",
		Short: "Print the latest saved pipeline context",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			ctx := c.Context()
			cfg, logger, err := flags.load()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			a, _, err := newHandoffApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			pctx, err := a.store.Load(ctx, cfg.Handoff.Namespace)
			if errors.Is(err, apperrors.ErrNotFound) {
				return fmt.Errorf("no pipeline context saved under namespace %q", cfg.Handoff.Namespace)
			}
			if err != nil {
				return err
			}
			return writeJSON(stdout, pctx)
		},
	}
}

func newRunsCommand(stdout io.Writer, flags *globalFlags) *cobra.Command {
	var limit int
	ccmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent pipeline runs (postgres backend only)",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			ctx := c.Context()
			cfg, logger, err := flags.load()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			if cfg.Handoff.Backend != config.HandoffPostgres {
				return apperrors.ConfigurationError("run history requires the postgres handoff backend")
			}
			a, _, err := newHandoffApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			runs, err := a.runs.ListRecent(ctx, cfg.Handoff.Namespace, limit)
			if err != nil {
				return err
			}
			logger.Debug("Listed pipeline runs", zap.Int("count", len(runs)))
			if runs == nil {
				runs = []*models.PipelineRun{}
			}
			return writeJSON(stdout, runs)
		},
	}
	ccmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of runs to list")
	return ccmd
}
