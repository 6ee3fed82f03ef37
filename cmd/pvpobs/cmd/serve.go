/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "serve",
		Short: "Start the REST API server",
		Long: `Start the PvP Observer REST API server.

Clients upload stores to /api/v1/recover and read archived matches and
player tiers back. Every /api/v1 route requires the X-API-Key header;
/metrics is open for Prometheus scraping.

Run "pvpobs init" first to create a configuration with an API key.

Examples:
  pvpobs serve
  pvpobs serve --port 9000 --bind 0.0.0.0`,
		RunE: runServe,
	}

	c.Flags().IntP("port", "p", 0, "Port to listen on (default from config)")
	c.Flags().String("bind", "", "Address to bind server to (default from config)")
	c.Flags().String("api-key", "", "API key for client authentication (default from config)")
	return c
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := container.Config()
	if cmd.Flags().Changed("port") {
		cfg.Port, _ = cmd.Flags().GetInt("port")
	}
	if cmd.Flags().Changed("bind") {
		cfg.Bind, _ = cmd.Flags().GetString("bind")
	}
	if cmd.Flags().Changed("api-key") {
		cfg.Security.APIKey, _ = cmd.Flags().GetString("api-key")
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	backends, err := container.Backends()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting server",
		zap.String("bind", cfg.Bind),
		zap.Int("port", cfg.Port),
		zap.String("data_dir", cfg.DataDir),
		zap.Bool("archive", backends.Archive != nil),
		zap.Bool("cache", backends.Cache != nil))

	starter := container.GetServerFactory().CreateServerStarter()
	return starter.StartServer(ctx, backends, container.ServerConfig())
}
