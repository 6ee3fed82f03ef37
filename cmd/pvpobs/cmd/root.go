/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ssargent/pvpobserver/pkg/config"
	"github.com/ssargent/pvpobserver/pkg/di"
	"github.com/ssargent/pvpobserver/pkg/logging"
)

// annotationConfigOptional marks commands that may run before a config
// file exists.
const annotationConfigOptional = "config-optional"

var (
	container *di.Container
	logger    *zap.Logger
)

// SetContainer injects a prebuilt container. PersistentPreRunE then keeps
// it instead of building one from the configuration.
func SetContainer(c *di.Container) {
	container = c
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "pvpobs",
		Short: "PvP Observer - recover match history from damaged stores",
		Long: `PvP Observer reads the raw bytes of a LiteDB match store, without its
index, and recovers the flmatch collection: match start times and each
player's kills, deaths, assists and damage. Recovery is best effort and
never fails on corrupt input; it only reports fewer records.

Recovered matches can be archived, ranked into tiers and served over a
REST API.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			logger, err = logging.NewWithFormat(cfg.Logging.Level, cfg.Logging.Format)
			if err != nil {
				return err
			}

			if container == nil {
				container = di.NewContainer(cfg, logger)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
	}

	root.PersistentFlags().String("config", "", "Path to config file (default: OS-specific location)")
	root.PersistentFlags().StringP("data-dir", "d", "", "Data directory for the match archive")
	root.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	root.PersistentFlags().String("log-format", "", "Log format (json, console)")

	root.AddCommand(
		newRecoverCmd(),
		newStatsCmd(),
		newServeCmd(),
		newInitCmd(),
		newSynthCmd(),
		newArchiveCmd(),
	)
	return root
}

func init() {
	// Finalizers run even when a command fails, unlike PersistentPostRun.
	cobra.OnFinalize(closeResources)
}

func closeResources() {
	if container == nil {
		return
	}
	if err := container.Close(); err != nil && logger != nil {
		logger.Warn("failed to close resources", zap.Error(err))
	}
	container = nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the config file when there is one and applies the
// persistent flags on top.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	configPath, _ := cmd.Flags().GetString("config")
	explicit := configPath != ""
	if !explicit {
		configPath = config.GetDefaultConfigPath()
	}

	cfg := config.DefaultConfig()
	if config.ConfigExists(configPath) {
		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	} else if explicit && cmd.Annotations[annotationConfigOptional] == "" {
		return nil, fmt.Errorf("config file does not exist: %s", configPath)
	}

	if cmd.Flags().Changed("data-dir") {
		cfg.DataDir, _ = cmd.Flags().GetString("data-dir")
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Logging.Level, _ = cmd.Flags().GetString("log-level")
	}
	if cmd.Flags().Changed("log-format") {
		cfg.Logging.Format, _ = cmd.Flags().GetString("log-format")
	}
	return cfg, nil
}
