package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"mf-search-workers/internal/common/config"
	"mf-search-workers/internal/common/logger"

	"github.com/spf13/cobra"
)

var (
	cfgFile  string
	logLevel string

	cfg *config.Config
	log logger.Logger
)

var rootCmd = &cobra.Command{
	Use:   "fundctl",
	Short: "Operate the mutual fund search index and try queries",
	Long: `fundctl loads fund data into the search index and runs one-off queries
through the same classifier and handlers the workers use.

Examples:
  fundctl index --source postgres
  fundctl index --source file --file funds.json
  fundctl ask "Compare HDFC Top 100 and ICICI Bluechip"`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfgFile != "" {
			cfg, err = config.LoadFromFile(cfgFile)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		level := cfg.Logging.Level
		if logLevel != "" {
			level = logLevel
		}
		log = logger.NewStructured(level, "console", "stderr")
		return nil
	},
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./configs/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override logging.level")
}
