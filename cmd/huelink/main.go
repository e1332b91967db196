package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/dokzlo13/huelink/internal/app"
	"github.com/dokzlo13/huelink/internal/config"
)

// cli carries state shared by subcommands.
type cli struct {
	configPath string
	logLevel   string

	cfg *config.Config
	app *app.App
}

func main() {
	if err := newRootCmd().ExecuteContext(app.SignalContext()); err != nil {
		log.Error().Err(err).Msg("Command failed")
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	defaultConfig := os.Getenv("HUELINK_CONFIG")
	if defaultConfig == "" {
		defaultConfig = "huelink.yaml"
	}

	root := &cobra.Command{
		Use:           "huelink",
		Short:         "Discover and pair with Philips Hue bridges",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.init()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if c.app != nil {
				return c.app.Close()
			}
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", defaultConfig, "Path to configuration file")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "Override log level (debug, info, warn, error)")

	root.AddCommand(
		newDiscoverCmd(c),
		newPairCmd(c),
		newLightsCmd(c),
		newGroupsCmd(c),
		newHistoryCmd(c),
	)

	return root
}

func (c *cli) init() error {
	cfg, err := config.LoadOrDefault(c.configPath)
	if err != nil {
		log.Error().Err(err).Str("config", c.configPath).Msg("Failed to load configuration")
		return err
	}
	if c.logLevel != "" {
		cfg.Log.Level = c.logLevel
	}
	c.cfg = cfg

	setupLogging(cfg.Log.Level, cfg.Log.JSON, cfg.Log.UseColors())

	application, err := app.New(cfg)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create application")
		return err
	}
	c.app = application
	return nil
}

func setupLogging(level string, useJSON bool, colors bool) {
	// ISO 8601 format with timezone
	zerolog.TimeFieldFormat = time.RFC3339

	if useJSON {
		// JSON output for production
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	} else {
		// Text output (with optional colors)
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: "2006-01-02T15:04:05.000Z07:00",
			NoColor:    !colors,
		})
	}

	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
