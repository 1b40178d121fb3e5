package main

import (
	"os"

	"github.com/smith3v/tg-couple-bot/pkg/bot/qotd"
	"github.com/smith3v/tg-couple-bot/pkg/config"
	"github.com/smith3v/tg-couple-bot/pkg/db"
	"github.com/smith3v/tg-couple-bot/pkg/logger"
	"github.com/smith3v/tg-couple-bot/pkg/timeutil"
	"github.com/spf13/cobra"

	_ "time/tzdata"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           "tg-couple-bot",
		Short:         "Telegram companion bot for couples",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), configPath)
		},
	}
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "path to an optional JSON config file")

	cmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the bot and its background sweeps",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), configPath)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "import-questions [file]",
		Short: "Load a question bank file into the store",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := setup(configPath); err != nil {
				return err
			}
			path := config.AppConfig.Scheduler.QuestionsFile
			if len(args) == 1 {
				path = args[0]
			}
			added, err := qotd.ImportBankFile(path)
			if err != nil {
				logger.Error("failed to import questions", "path", path, "error", err)
				return err
			}
			logger.Info("questions imported", "path", path, "added", added)
			return nil
		},
	})
	return cmd
}

// setup loads configuration and opens the store. Every failure here is fatal.
func setup(configPath string) error {
	if err := config.LoadConfig(configPath); err != nil {
		logger.Error("failed to load config", "error", err)
		return err
	}
	if err := logger.Configure(logger.Options{
		Level: config.AppConfig.Logging.Level,
		File:  config.AppConfig.Logging.File,
	}); err != nil {
		logger.Error("failed to configure logger", "error", err)
	}
	if err := timeutil.SetLocation(config.AppConfig.Scheduler.Timezone); err != nil {
		logger.Error("failed to load timezone", "timezone", config.AppConfig.Scheduler.Timezone, "error", err)
		return err
	}
	if err := db.InitDB(config.AppConfig.Database); err != nil {
		logger.Error("failed to initialize database", "error", err)
		return err
	}
	return nil
}
