package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/foxzi/leadmail/internal/app"
	"github.com/foxzi/leadmail/internal/config"
)

var (
	cfgFile   string
	envFiles  []string
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "leadmail",
	Short: "Leadmail - lead email campaign manager",
	Long: `Leadmail stores real-estate leads and email templates and sends
personalised campaigns through an SMTP relay.`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "leadmail version %s\n", version)
		if commit != "unknown" {
			fmt.Fprintf(out, "  commit: %s\n", commit)
		}
		if buildTime != "unknown" {
			fmt.Fprintf(out, "  built:  %s\n", buildTime)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (defaults and LEADMAIL_* env when empty)")
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", []string{".env"}, "dotenv files to load before the config")

	rootCmd.AddCommand(versionCmd)
}

// loadConfig loads dotenv files then the YAML config
func loadConfig() (*config.Config, error) {
	if err := config.LoadDotEnv(envFiles...); err != nil {
		return nil, err
	}
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// cliLogger logs to stderr so command output stays clean
func cliLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	lc := cfg.Logging
	lc.Format = "text"
	if lc.Level == "info" {
		lc.Level = "warn"
	}
	return app.NewLogger(lc, w)
}
