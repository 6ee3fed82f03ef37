/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ssargent/pvpobserver/pkg/config"
)

func newInitCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "init",
		Short: "Create a configuration with a generated API key",
		Long: `Create the PvP Observer configuration file and data directory.

This command will:
- Generate a random API key for the REST API
- Write the configuration with 0600 permissions
- Create the data directory for the match archive

Examples:
  pvpobs init
  pvpobs init --data-dir ./data --print-key
  pvpobs init --config ./pvpobs.yaml --force`,
		Annotations: map[string]string{annotationConfigOptional: "true"},
		RunE:        runInit,
	}

	c.Flags().Bool("force", false, "Overwrite an existing configuration")
	c.Flags().Bool("print-key", false, "Print the generated API key")
	return c
}

func runInit(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	dataDir, _ := cmd.Flags().GetString("data-dir")
	force, _ := cmd.Flags().GetBool("force")
	printKey, _ := cmd.Flags().GetBool("print-key")

	if configPath == "" {
		configPath = config.GetDefaultConfigPath()
	}

	if config.ConfigExists(configPath) && !force {
		cmd.Printf("Configuration already exists at %s. Use --force to replace it.\n", configPath)
		return nil
	}

	cfg, err := config.BootstrapConfig(configPath, dataDir)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.DataDir, 0750); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	cmd.Printf("✅ Configuration created at %s\n", configPath)
	cmd.Printf("📁 Data directory: %s\n", cfg.DataDir)
	if printKey {
		cmd.Printf("\n🔑 API key: %s\n", cfg.Security.APIKey)
		cmd.Printf("⚠️  Store this key securely! It is also saved in %s\n", configPath)
	}
	cmd.Printf("\nYou can now start the server with:\n")
	cmd.Printf("  pvpobs serve --config %s\n", configPath)
	return nil
}
