package main

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/foxzi/leadmail/internal/address"
	"github.com/foxzi/leadmail/internal/app"
	"github.com/foxzi/leadmail/internal/config"
	"github.com/foxzi/leadmail/internal/dkim"
	"github.com/foxzi/leadmail/internal/dnscheck"
	"github.com/foxzi/leadmail/internal/store"
)

var (
	dnsDomain   string
	dnsSelector string
	dnsKeyFile  string

	// replaced in tests
	dnsResolver dnscheck.Resolver
)

var dnsCmd = &cobra.Command{
	Use:   "dns",
	Short: "Sending domain DNS commands",
}

var dnsCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Check SPF, DKIM and DMARC records of the sending domain",
	Long: `Check the SPF, DKIM and DMARC records of the sending domain.

Domain, selector and key default to mailer.dkim in the config. When a key
is available the published DKIM public key must match it.`,
	RunE: runDNSCheck,
}

func init() {
	dnsCheckCmd.Flags().StringVar(&dnsDomain, "domain", "", "Sending domain (defaults to mailer.dkim.domain)")
	dnsCheckCmd.Flags().StringVar(&dnsSelector, "selector", "", "DKIM selector (defaults to mailer.dkim.selector)")
	dnsCheckCmd.Flags().StringVar(&dnsKeyFile, "key", "", "DKIM private key to compare against (defaults to mailer.dkim.key_file)")

	dnsCmd.AddCommand(dnsCheckCmd)
	rootCmd.AddCommand(dnsCmd)
}

func runDNSCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	domain, selector, keyFile := dnsDomain, dnsSelector, dnsKeyFile
	if domain == "" {
		domain = cfg.Mailer.DKIM.Domain
	}
	if selector == "" {
		selector = cfg.Mailer.DKIM.Selector
	}
	if keyFile == "" && domain == cfg.Mailer.DKIM.Domain {
		keyFile = cfg.Mailer.DKIM.KeyFile
	}
	if domain == "" {
		domain = storedFromDomain(cmd.Context(), cfg)
	}
	if domain == "" {
		return errors.New("--domain is required when neither mailer.dkim.domain nor an SMTP from address is configured")
	}

	opts := dnscheck.Options{Selector: selector}
	if keyFile != "" {
		key, err := dkim.LoadPrivateKey(keyFile)
		if err != nil {
			return fmt.Errorf("failed to load private key: %w", err)
		}
		if opts.ExpectedDKIM, err = dkim.DNSRecord(&key.PublicKey); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	report, err := dnscheck.New(dnsResolver).Check(ctx, domain, opts)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "DNS check for %s\n\n", report.Domain)
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TYPE\tSTATUS\tNAME\tMESSAGE")
	for _, r := range report.Results {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.Type, r.Status, r.Name, r.Message)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if !report.OK() {
		return errors.New("sending domain has DNS problems")
	}
	return nil
}

// storedFromDomain is the domain of the saved SMTP from address, if any
func storedFromDomain(ctx context.Context, cfg *config.Config) string {
	if cfg.Storage.Driver == store.DriverMemory {
		return ""
	}
	st, err := app.OpenStore(ctx, cfg)
	if err != nil {
		return ""
	}
	defer st.Close()

	settings, err := st.Settings().GetSMTP(ctx)
	if err != nil || settings == nil {
		return ""
	}
	return address.Domain(settings.FromEmail)
}
