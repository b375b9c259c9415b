package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/medcoderd/internal/config"
	"github.com/fyrsmithlabs/medcoderd/internal/logging"
)

var configPath string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "medcoder",
		Short: "Medical coding assistant",
		Long: `medcoder maps free-text descriptions of clinical care to ICD-10 and
CPT-4 billing codes, answering from an indexed copy of the official code
tables.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file")

	root.AddCommand(newChatCmd())
	root.AddCommand(newIndexCmd())
	root.AddCommand(newVersionCmd())
	return root
}

// loadConfig reads configuration and builds a logger suitable for terminal
// use: console encoding, warnings and up, so log lines do not interleave
// with the conversation.
func loadConfig() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}

	logCfg := cfg.Logging
	logCfg.Format = "console"
	if logCfg.Level == "info" {
		logCfg.Level = "warn"
	}
	logger, err := logging.New(logCfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}
