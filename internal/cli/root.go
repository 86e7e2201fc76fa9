// Package cli wires configuration, logging and the prediction component
// into the typeahead commands.
package cli

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/billie-coop/typeahead/internal/api"
	"github.com/billie-coop/typeahead/internal/config"
	"github.com/billie-coop/typeahead/internal/predict"
	"github.com/spf13/cobra"
)

// globalFlags are the persistent flags shared by every command. They
// override the config file for this run only and are never saved.
type globalFlags struct {
	configPath string
	endpoint   string
	quiet      time.Duration
	timeout    time.Duration
	debug      bool
	theme      string
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// NewRootCmd builds the command tree. Running it without a subcommand
// starts the TUI.
func NewRootCmd() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "typeahead",
		Short: "Live predictions from a prediction service as you type",
		Long: `typeahead queries a prediction service while you type, waiting for a
pause in typing and only ever showing the answer to the latest query.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, flags)
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "config file (default .typeahead/config.json in the working directory)")
	pf.StringVar(&flags.endpoint, "endpoint", "", "prediction service URL")
	pf.DurationVar(&flags.quiet, "quiet", 0, "quiet period before a query fires")
	pf.DurationVar(&flags.timeout, "timeout", 0, "fail queries slower than this (0 disables)")
	pf.BoolVar(&flags.debug, "debug", false, "enable debug logging")
	pf.StringVar(&flags.theme, "theme", "", "TUI theme")

	rootCmd.AddCommand(
		newTUICmd(flags),
		newWatchCmd(flags),
		newServeCmd(flags),
		newConfigCmd(flags),
	)
	return rootCmd
}

// manager returns the config manager selected by --config.
func (f *globalFlags) manager() (*config.Manager, error) {
	if f.configPath != "" {
		return config.NewFileManager(f.configPath), nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	return config.NewManager(wd), nil
}

// load reads the config and applies any flags set on the command line.
func (f *globalFlags) load(cmd *cobra.Command) (*config.Config, *config.Manager, error) {
	m, err := f.manager()
	if err != nil {
		return nil, nil, err
	}
	if err := m.Load(); err != nil {
		return nil, nil, err
	}

	cfg := *m.Get()
	cfg.Fields = append([]config.Field(nil), m.Get().Fields...)

	changed := cmd.Flags().Changed
	if changed("endpoint") {
		cfg.Endpoint = f.endpoint
	}
	if changed("quiet") {
		cfg.QuietPeriod = config.Duration(f.quiet)
	}
	if changed("timeout") {
		cfg.RequestTimeout = config.Duration(f.timeout)
	}
	if changed("debug") {
		cfg.Debug = f.debug
	}
	if changed("theme") {
		cfg.Theme = f.theme
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid flags: %w", err)
	}
	return &cfg, m, nil
}

func newClient(cfg *config.Config, logger *slog.Logger) *api.Client {
	return api.NewClient(cfg.Endpoint,
		api.WithFieldKeys(cfg.FieldKeys()),
		api.WithLogger(logger))
}

// predictOptions turns the query coordination settings into Predictor options.
func predictOptions(cfg *config.Config, logger *slog.Logger) []predict.Option {
	required := cfg.RequiredFields()
	if len(required) == 0 {
		for _, f := range cfg.Fields {
			required = append(required, f.Name)
		}
	}
	requirement := predict.RequireAll(required...)
	if cfg.Require == config.RequireAny {
		requirement = predict.RequireAny(required...)
	}

	return []predict.Option{
		predict.WithQuietPeriod(cfg.QuietPeriod.Std()),
		predict.WithResultCap(cfg.ResultCap),
		predict.WithRequestTimeout(cfg.RequestTimeout.Std()),
		predict.WithRequirement(requirement),
		predict.WithLogger(logger),
	}
}
