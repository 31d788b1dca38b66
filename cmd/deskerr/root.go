package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/strongdm/deskerr/internal/config"
	"github.com/strongdm/deskerr/internal/observability"
)

// Global flags.
type globalFlags struct {
	cfgFile   string
	envFile   string
	logLevel  string
	logFormat string
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	cmd := &cobra.Command{
		Use:   "deskerr",
		Short: "deskerr - desktop application error pipeline",
		Long: `deskerr records, reports and presents application errors.

The collector (serve) receives reports over NATS, stores them in BadgerDB
and serves them over HTTP. The emit command pushes a sample error through
the client pipeline, and issue-url composes pre-filled issue links.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&flags.cfgFile, "config", "c", "", "config file (default: ./deskerr.toml, then the user config dir)")
	cmd.PersistentFlags().StringVar(&flags.envFile, "env-file", "", "dotenv file to load (default: ./.env if present)")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&flags.logFormat, "log-format", "", "log format (json, text)")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newServeCmd(flags))
	cmd.AddCommand(newEmitCmd(flags))
	cmd.AddCommand(newIssueURLCmd(flags))

	return cmd
}

// load reads the configuration and builds the process logger. Flags win
// over the file and the environment.
func (f *globalFlags) load(w io.Writer) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(f.cfgFile, f.envFile)
	if err != nil {
		return nil, nil, err
	}
	if f.logLevel != "" {
		cfg.Logging.Level = f.logLevel
	}
	if f.logFormat != "" {
		cfg.Logging.Format = f.logFormat
	}

	logger := observability.NewLogger(observability.LoggingConfig{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		ServiceName: "deskerr",
		Version:     version,
	}, w)
	return cfg, logger, nil
}

func (f *globalFlags) tracing(cfg *config.Config) observability.TracingConfig {
	return observability.TracingConfig{
		Enabled:       cfg.Tracing.Enabled,
		ServiceName:   "deskerr",
		Version:       version,
		Endpoint:      cfg.Tracing.Endpoint,
		Insecure:      cfg.Tracing.Insecure,
		SamplingRatio: cfg.Tracing.SamplingRatio,
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "deskerr version %s\n", version)
			fmt.Fprintf(out, "  Git SHA:    %s\n", gitSHA)
			fmt.Fprintf(out, "  Build Time: %s\n", buildTime)
		},
	}
}
