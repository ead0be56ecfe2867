package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/keepmind9/botparams/internal/core"
	"github.com/keepmind9/botparams/internal/logger"
	"github.com/keepmind9/botparams/internal/plugin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	configFile    string
	serveValidate bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the bots and serve commands",
	Long:  "Connect every enabled bot, dispatch incoming messages to the registered commands, and run until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := core.LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if serveValidate {
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Configuration is valid: %s\n", configFile)
			return nil
		}

		if err := logger.InitLogger(config.LoggerConfig()); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logger.WithFields(logrus.Fields{
			"config_file": configFile,
			"log_level":   config.Logging.Level,
			"log_file":    config.Logging.File,
		}).Info("logger-initialized")

		engine, err := buildEngine(config)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		fmt.Fprintln(cmd.OutOrStdout(), "botparams engine starting, press Ctrl+C to stop")
		if err := engine.Run(ctx); err != nil {
			return fmt.Errorf("engine error: %w", err)
		}
		logger.Info("botparams-stopped")
		return nil
	},
}

// buildEngine creates the engine with every enabled bot and built-in command
func buildEngine(config *core.Config) (*core.Engine, error) {
	engine := core.NewEngine(config)

	for _, kind := range config.EnabledBots() {
		botConfig, err := config.GetBotConfig(kind)
		if err != nil {
			return nil, err
		}
		bot, err := core.NewBot(kind, botConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s bot: %w", kind, err)
		}
		engine.RegisterBot(kind, bot)
		logger.WithFields(logrus.Fields{
			"bot_type": kind,
			"adapter":  bot.Adapter().Name(),
		}).Info("bot-registered")
	}

	matchers := plugin.All()
	engine.Register(matchers...)
	logger.WithField("count", len(matchers)).Info("commands-registered")
	return engine, nil
}

func init() {
	serveCmd.Flags().StringVarP(&configFile, "config", "c", "config.yaml", "Configuration file path")
	serveCmd.Flags().BoolVar(&serveValidate, "validate", false, "Validate configuration and exit")
}
