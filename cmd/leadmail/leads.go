package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/foxzi/leadmail/internal/importer"
)

var leadsCmd = &cobra.Command{
	Use:   "leads",
	Short: "Lead commands",
}

var leadsImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import leads from a .csv or .xlsx file",
	Args:  cobra.ExactArgs(1),
	RunE:  runLeadsImport,
}

var leadsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List leads",
	RunE:  runLeadsList,
}

func init() {
	leadsCmd.AddCommand(leadsImportCmd, leadsListCmd)
	rootCmd.AddCommand(leadsCmd)
}

func runLeadsImport(cmd *cobra.Command, args []string) error {
	cfg, st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	imp := importer.New(st.Leads(), cliLogger(cfg, cmd.ErrOrStderr()))
	res, err := imp.ImportFile(cmd.Context(), args[0], f)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Imported %d leads, %d failed\n", res.Inserted, res.Failed)
	for _, e := range res.Errors {
		fmt.Fprintf(out, "  %s\n", e)
	}
	return nil
}

func runLeadsList(cmd *cobra.Command, args []string) error {
	_, st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	leads, err := st.Leads().List(cmd.Context())
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "EMAIL\tNAME\tPHONE\tPROPERTY")
	for _, l := range leads {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", l.Email, l.DisplayName(), l.Phone, l.PropertyAddress)
	}
	return w.Flush()
}
