// Package cli wires configuration, AWS clients and the pipeline services
// into the provisioner's command tree.
package cli

import (
	"fmt"
	"io"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Manny27nyc/amazon-sagemaker-examples/pkg/config"
	"github.com/Manny27nyc/amazon-sagemaker-examples/pkg/logging"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	namespace  string
	backend    string
	version    string
	stderr     io.Writer
}

// NewRootCommand builds the command tree. Command output is written to
// stdout; logs and errors go to stderr.
func NewRootCommand(stdout, stderr io.Writer, version string) *cobra.Command {
	flags := &globalFlags{version: version, stderr: stderr}
	rc := &cobra.Command{
		Use:   "feature-provisioner",
		Short: "Provision a feature group and run the ingestion job that fills it.",
		Long: `Provision a feature group and run the ingestion job that fills it.

The run command makes sure the configured feature group exists, submits the
transformation job that ingests into it when the group was just created, and
publishes the results to the pipeline context read by the next stage.
`,
		Version:      version,
		SilenceUsage: true,
	}
	pf := rc.PersistentFlags()
	pf.StringVarP(&flags.configPath, "config", "c", "", "Configuration file to read from (default config.yaml).")
	pf.StringVar(&flags.namespace, "namespace", "", "Pipeline context namespace; overrides handoff.namespace.")
	pf.StringVar(&flags.backend, "handoff", "", "Pipeline context backend (ssm, postgres, memory); overrides handoff.backend.")

	rc.AddCommand(newRunCommand(stdout, flags))
	rc.AddCommand(newProvisionCommand(stdout, flags))
	rc.AddCommand(newContextCommand(stdout, flags))
	rc.AddCommand(newRunsCommand(stdout, flags))

	rc.SetOut(stdout)
	rc.SetErr(stderr)
	return rc
}

// load reads configuration, applies flag overrides and builds a logger
// writing to the command's stderr.
func (f *globalFlags) load() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(f.configPath, f.version)
	if err != nil {
		return nil, nil, err
	}
	if f.namespace != "" {
		cfg.Handoff.Namespace = f.namespace
	}
	if f.backend != "" {
		cfg.Handoff.Backend = f.backend
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	logger, err := logging.NewLogger(cfg.Env, cfg.LogLevel, f.stderr)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build logger: %w", err)
	}
	logger.Info("Configuration loaded",
		zap.String("env", cfg.Env),
		zap.String("version", cfg.Version),
		zap.String("region", cfg.AWS.Region),
		zap.String("bucket", cfg.Storage.Bucket),
		zap.String("handoff", cfg.Handoff.Backend),
		zap.String("namespace", cfg.Handoff.Namespace))
	return cfg, logger, nil
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
