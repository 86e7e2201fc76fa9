package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/billie-coop/typeahead/internal/config"
	"github.com/billie-coop/typeahead/internal/logging"
	"github.com/billie-coop/typeahead/internal/tui"
	"github.com/billie-coop/typeahead/internal/tui/components/fields"
	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/spf13/cobra"
)

func newTUICmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Interactive typeahead (the default command)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, flags)
		},
	}
}

func runTUI(cmd *cobra.Command, flags *globalFlags) error {
	cfg, m, err := flags.load(cmd)
	if err != nil {
		return err
	}

	logPath := cfg.LogFile
	if !filepath.IsAbs(logPath) {
		logPath = filepath.Join(m.Dir(), logPath)
	}
	logger, closer, err := logging.OpenFile(logPath, cfg.Debug)
	if err != nil {
		return err
	}
	defer closer.Close()

	client := newClient(cfg, logger)

	ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Second)
	if err := client.HealthCheck(ctx); err != nil {
		logger.Warn("prediction service health check failed", "endpoint", cfg.Endpoint, "error", err)
	}
	cancel()

	model := tui.New(tui.Options{
		Fields:         fieldSpecs(cfg.Fields),
		Primary:        cfg.PrimaryField(),
		Endpoint:       cfg.Endpoint,
		Transport:      client,
		PredictOptions: predictOptions(cfg, logger),
		Theme:          cfg.Theme,
		Logger:         logger,
	})
	defer model.Close()

	logger.Info("starting typeahead", "endpoint", cfg.Endpoint, "quiet_period", cfg.QuietPeriod)
	if _, err := tea.NewProgram(model, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("tui failed: %w", err)
	}
	return nil
}

func fieldSpecs(cfgFields []config.Field) []fields.Spec {
	specs := make([]fields.Spec, 0, len(cfgFields))
	for _, f := range cfgFields {
		label := f.Label
		if label == "" {
			label = f.Name
		}
		specs = append(specs, fields.Spec{
			Name:        f.Name,
			Label:       label,
			Placeholder: f.Placeholder,
			Value:       f.Default,
		})
	}
	return specs
}
