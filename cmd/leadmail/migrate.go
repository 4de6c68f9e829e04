package main

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/foxzi/leadmail/internal/app"
	"github.com/foxzi/leadmail/internal/store"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or upgrade the storage schema and seed the default template",
	RunE:  runMigrate,
}

var clearAllYes bool

var clearAllCmd = &cobra.Command{
	Use:   "clear-all",
	Short: "Delete all leads, campaigns and logs and reset templates",
	Long:  `Delete all leads, campaigns and send logs and reset templates to the default. SMTP settings are kept.`,
	RunE:  runClearAll,
}

func init() {
	clearAllCmd.Flags().BoolVarP(&clearAllYes, "yes", "y", false, "do not ask for confirmation")
	rootCmd.AddCommand(migrateCmd, clearAllCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Storage.Driver == store.DriverMemory {
		fmt.Fprintln(cmd.OutOrStdout(), "Memory storage has nothing to migrate")
		return nil
	}

	st, err := app.OpenStore(context.Background(), cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	fmt.Fprintln(cmd.OutOrStdout(), "Migrations completed successfully")
	return nil
}

func runClearAll(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if !clearAllYes {
		fmt.Fprintf(cmd.OutOrStdout(), "This deletes all leads, campaigns and logs in %s. Type 'yes' to continue: ", cfg.Storage.Path)
		answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if strings.TrimSpace(answer) != "yes" {
			return fmt.Errorf("aborted")
		}
	}

	st, err := app.OpenStore(context.Background(), cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.ClearAll(context.Background()); err != nil {
		return fmt.Errorf("failed to clear data: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), "All data cleared")
	return nil
}
