package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/egobogo/semroute/internal/config"
	"github.com/egobogo/semroute/internal/config/filesys"
)

type rootOptions struct {
	configPath string
	envFile    string
	verbose    bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	rootCmd := &cobra.Command{
		Use:           "semroute",
		Short:         "Semantic router for natural language requests",
		Long:          `Route text to the closest configured intent by embedding similarity and hand it to that intent's handler.`,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "semroute.yaml", "path to the YAML configuration")
	rootCmd.PersistentFlags().StringVar(&opts.envFile, "env", ".env", "dotenv file with API keys")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(
		newRoutesCmd(opts),
		newRouteCmd(opts),
		newChatCmd(opts),
		newSimilarityCmd(opts),
		newServeCmd(opts),
	)
	return rootCmd
}

func (o *rootOptions) logger() zerolog.Logger {
	level := zerolog.InfoLevel
	if o.verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		Level(level).
		With().
		Timestamp().
		Logger()
}

func (o *rootOptions) loadConfig() (*config.Config, error) {
	cfg, err := filesys.NewFilesysConfigProvider(o.envFile).LoadConfig(o.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config %s: %w", o.configPath, err)
	}
	return cfg, nil
}
