package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/foxzi/leadmail/internal/app"
	"github.com/foxzi/leadmail/internal/campaign"
	"github.com/foxzi/leadmail/internal/config"
	"github.com/foxzi/leadmail/internal/mailer"
	"github.com/foxzi/leadmail/internal/models"
	"github.com/foxzi/leadmail/internal/store"
)

var smtpCmd = &cobra.Command{
	Use:   "smtp",
	Short: "SMTP settings commands",
}

var smtpSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Replace the stored SMTP settings",
	Long: `Replace the stored SMTP settings. The password is prompted for on a
terminal, or read from the first line of stdin otherwise.`,
	RunE: runSMTPSet,
}

var smtpShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the stored SMTP settings without the password",
	RunE:  runSMTPShow,
}

var smtpTestCmd = &cobra.Command{
	Use:   "test",
	Short: "Connect and authenticate without sending",
	RunE:  runSMTPTest,
}

var smtpSendTestCmd = &cobra.Command{
	Use:   "send-test",
	Short: "Send the fixed test message to one address",
	RunE:  runSMTPSendTest,
}

var (
	smtpSettings models.SMTPSettings
	smtpNoPass   bool
	smtpTestTo   string
)

func init() {
	f := smtpSetCmd.Flags()
	f.StringVar(&smtpSettings.Host, "host", "", "SMTP host (required)")
	f.IntVar(&smtpSettings.Port, "port", mailer.DefaultPort, "SMTP port; 465 uses implicit TLS")
	f.BoolVar(&smtpSettings.Secure, "secure", false, "informational secure flag")
	f.StringVar(&smtpSettings.User, "user", "", "SMTP user (required)")
	f.StringVar(&smtpSettings.FromEmail, "from", "", "From address")
	f.StringVar(&smtpSettings.SenderName, "sender-name", "", "From display name")
	f.StringVar(&smtpSettings.CompanyName, "company", "", "company name")
	f.StringVar(&smtpSettings.CompanyPhone, "phone", "", "company phone")
	f.BoolVar(&smtpNoPass, "no-password", false, "store settings without a password")
	smtpSetCmd.MarkFlagRequired("host")
	smtpSetCmd.MarkFlagRequired("user")

	smtpSendTestCmd.Flags().StringVar(&smtpTestTo, "to", "", "recipient address (required)")
	smtpSendTestCmd.MarkFlagRequired("to")

	smtpCmd.AddCommand(smtpSetCmd, smtpShowCmd, smtpTestCmd, smtpSendTestCmd)
	rootCmd.AddCommand(smtpCmd)
}

// openStore loads config and opens storage for one-shot commands
func openStore() (*config.Config, store.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	if cfg.Storage.Driver == store.DriverMemory {
		return nil, nil, fmt.Errorf("storage driver %q does not persist between commands", cfg.Storage.Driver)
	}
	st, err := app.OpenStore(context.Background(), cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, st, nil
}

func readPassword(cmd *cobra.Command) (string, error) {
	if term.IsTerminal(int(os.Stdin.Fd())) && cmd.InOrStdin() == os.Stdin {
		fmt.Fprint(cmd.OutOrStdout(), "SMTP password: ")
		pw, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(cmd.OutOrStdout())
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(pw), nil
	}

	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read password from stdin: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func runSMTPSet(cmd *cobra.Command, args []string) error {
	_, st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	settings := smtpSettings
	if !smtpNoPass {
		if settings.Pass, err = readPassword(cmd); err != nil {
			return err
		}
	}

	if err := st.Settings().SaveSMTP(context.Background(), &settings); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "SMTP settings saved (%s:%d as %s)\n", settings.Host, settings.Port, settings.User)
	return nil
}

func runSMTPShow(cmd *cobra.Command, args []string) error {
	_, st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	settings, err := st.Settings().GetSMTP(context.Background())
	if err != nil {
		return err
	}
	if settings == nil {
		fmt.Fprintln(cmd.OutOrStdout(), "SMTP is not configured")
		return nil
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(settings.Redacted())
}

func newCLIRunner(cmd *cobra.Command) (*campaign.Runner, store.Store, error) {
	cfg, st, err := openStore()
	if err != nil {
		return nil, nil, err
	}
	runner, err := app.NewRunner(st, cfg, cliLogger(cfg, cmd.ErrOrStderr()))
	if err != nil {
		st.Close()
		return nil, nil, err
	}
	return runner, st, nil
}

func runSMTPTest(cmd *cobra.Command, args []string) error {
	runner, st, err := newCLIRunner(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := runner.VerifyTransport(cmd.Context()); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Connection successful!")
	return nil
}

func runSMTPSendTest(cmd *cobra.Command, args []string) error {
	runner, st, err := newCLIRunner(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	receipt, err := runner.SendTest(cmd.Context(), smtpTestTo)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Email sent to %s (%s)\n", smtpTestTo, receipt.MessageID)
	return nil
}
