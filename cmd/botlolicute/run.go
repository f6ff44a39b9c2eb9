package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/EgorLis/botlolicute/internal/bot"
	"github.com/EgorLis/botlolicute/internal/runner"
)

var configPath string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one bot from a YAML config",
	Long: `Loads the config (an empty one is created when missing), applies environment
overrides (MINECRAFT_SERVER_HOST, MINECRAFT_BOT_USERNAME, GEMINI_API_KEY, ...),
connects and runs until interrupted. Config edits are picked up on the fly.`,
	RunE: runBot,
}

func init() {
	runCmd.Flags().StringVarP(&configPath, "config", "c", "configs/bot.yaml", "bot config file")
}

func runBot(cmd *cobra.Command, args []string) error {
	log, closeLog, err := newLogger(nil)
	if err != nil {
		return err
	}
	defer closeLog()

	cfg, err := bot.LoadConfig(configPath)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	in, err := runner.New(ctx, runner.Options{Config: cfg, ConfigPath: configPath, Logger: log})
	if err != nil {
		return err
	}
	if err := in.Start(ctx); err != nil {
		return err
	}
	defer in.Stop()

	log.Info("running… press Ctrl+C to stop", zap.String("config", configPath))
	<-ctx.Done()
	return nil
}
