package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration commands",
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	RunE:  runConfigValidate,
}

func init() {
	configCmd.AddCommand(configValidateCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Configuration is valid")
	fmt.Fprintf(out, "  Listen address: %s\n", cfg.Server.ListenAddr)
	fmt.Fprintf(out, "  Storage: %s %s\n", cfg.Storage.Driver, cfg.Storage.Path)
	fmt.Fprintf(out, "  Campaign concurrency: %d (async: %v)\n", cfg.Campaign.Concurrency, cfg.Campaign.Async)
	fmt.Fprintf(out, "  DKIM: %v\n", cfg.Mailer.DKIM.Enabled)
	fmt.Fprintf(out, "  Password sealing: %v\n", cfg.Security.SecretKey != "")
	if cfg.Metrics.Enabled {
		fmt.Fprintf(out, "  Metrics: %s%s\n", cfg.Metrics.ListenAddr, cfg.Metrics.Path)
	}
	return nil
}
