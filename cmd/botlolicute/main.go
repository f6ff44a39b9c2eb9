package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/EgorLis/botlolicute/internal/logging"
)

var (
	verbose bool
	logFile string
	dbPath  string

	logOpts logging.Options
)

var rootCmd = &cobra.Command{
	Use:   "botlolicute",
	Short: "Minecraft bot with activity modes and a web dashboard",
	Long: `botlolicute runs a scripted Minecraft bot: follow, protect, farming, fishing,
mining, building, PVP, chest hunting and exploring, with respawn recovery.

  botlolicute run      one bot from a YAML config
  botlolicute serve    dashboard managing bots from the registry
  botlolicute bots     registry maintenance`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logOpts = logging.Options{Verbose: verbose, File: logFile, Console: os.Stdout}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "also write JSON logs to this file (rotated)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "data/bots.db", "bot registry database")

	rootCmd.AddCommand(runCmd, serveCmd, botsCmd)
}

// newLogger — логгер с текущими флагами; sink может быть nil.
func newLogger(sink logging.Sink) (*zap.Logger, func(), error) {
	opts := logOpts
	opts.Sink = sink
	log, closeFile, err := logging.New(opts)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return log, func() {
		_ = log.Sync()
		_ = closeFile()
	}, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
