package main

import (
	"bytes"
	"context"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foxzi/leadmail/internal/dkim"
	"github.com/foxzi/leadmail/internal/mailer/mailertest"
)

// execute runs the root command against a fresh SQLite file per test
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(append([]string{"--env-file", filepath.Join(t.TempDir(), "none.env")}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func useSQLite(t *testing.T) {
	t.Helper()
	t.Setenv("LEADMAIL_STORAGE_DRIVER", "sqlite")
	t.Setenv("LEADMAIL_STORAGE_PATH", filepath.Join(t.TempDir(), "leadmail.db"))
	t.Setenv("LEADMAIL_LOG_LEVEL", "error")
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "leadmail version dev")
}

func TestConfigValidate(t *testing.T) {
	useSQLite(t)
	out, err := execute(t, "", "config", "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration is valid")
	assert.Contains(t, out, "sqlite")

	t.Setenv("LEADMAIL_STORAGE_DRIVER", "postgres")
	_, err = execute(t, "", "config", "validate")
	assert.Error(t, err)
}

func TestMigrate(t *testing.T) {
	useSQLite(t)
	out, err := execute(t, "", "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "Migrations completed successfully")
}

func TestSMTPSetAndShow(t *testing.T) {
	useSQLite(t)

	out, err := execute(t, "hunter2\n", "smtp", "set",
		"--host", "smtp.example.com", "--port", "465", "--user", "u@example.com", "--sender-name", "Jane")
	require.NoError(t, err)
	assert.Contains(t, out, "SMTP settings saved")

	out, err = execute(t, "", "smtp", "show")
	require.NoError(t, err)
	assert.Contains(t, out, `"host": "smtp.example.com"`)
	assert.Contains(t, out, `"port": 465`)
	assert.Contains(t, out, `"hasPassword": true`)
	assert.NotContains(t, out, "hunter2")
}

func TestSMTPShowUnconfigured(t *testing.T) {
	useSQLite(t)
	out, err := execute(t, "", "smtp", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "SMTP is not configured")
}

func TestSMTPSendTest(t *testing.T) {
	useSQLite(t)
	srv := mailertest.Start(t, mailertest.WithAuth("u@example.com", "pw"))

	_, err := execute(t, "pw\n", "smtp", "set",
		"--host", srv.Host, "--port", strconv.Itoa(srv.Port), "--user", "u@example.com")
	require.NoError(t, err)

	out, err := execute(t, "", "smtp", "test")
	require.NoError(t, err)
	assert.Contains(t, out, "Connection successful!")

	out, err = execute(t, "", "smtp", "send-test", "--to", "me@example.com")
	require.NoError(t, err)
	assert.Contains(t, out, "Email sent to me@example.com")
	require.Len(t, srv.Messages(), 1)
}

func TestLeadsImportListAndClearAll(t *testing.T) {
	useSQLite(t)

	file := filepath.Join(t.TempDir(), "leads.csv")
	require.NoError(t, os.WriteFile(file, []byte("First Name,Last Name,Email\nAna,Lopez,ana@example.com\nBo,,\n"), 0644))

	out, err := execute(t, "", "leads", "import", file)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 1 leads, 1 failed")

	out, err = execute(t, "", "leads", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "ana@example.com")
	assert.Contains(t, out, "Ana Lopez")

	_, err = execute(t, "no\n", "clear-all")
	assert.Error(t, err)

	out, err = execute(t, "", "clear-all", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "All data cleared")

	out, err = execute(t, "", "leads", "list")
	require.NoError(t, err)
	assert.NotContains(t, out, "ana@example.com")
}

func TestMemoryDriverRejectedForOneShotCommands(t *testing.T) {
	t.Setenv("LEADMAIL_STORAGE_DRIVER", "memory")
	_, err := execute(t, "", "leads", "list")
	assert.Error(t, err)
}

func TestDKIMGenerateAndShow(t *testing.T) {
	dir := t.TempDir()

	out, err := execute(t, "", "dkim", "generate", "--domain", "example.com", "--selector", "mail", "--out", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "mail._domainkey.example.com")
	assert.Contains(t, out, "v=DKIM1; k=rsa; p=")

	keyFile := filepath.Join(dir, "example.com.mail.key")
	_, err = os.Stat(keyFile)
	require.NoError(t, err)

	out, err = execute(t, "", "dkim", "show", "--key", keyFile, "--domain", "example.com", "--selector", "mail")
	require.NoError(t, err)
	assert.Contains(t, out, "mail._domainkey.example.com")
}

type txtRecords map[string][]string

func (r txtRecords) LookupTXT(ctx context.Context, name string) ([]string, error) {
	if recs, ok := r[name]; ok {
		return recs, nil
	}
	return nil, &net.DNSError{Err: "no such host", Name: name, IsNotFound: true}
}

func TestDNSCheck(t *testing.T) {
	dir := t.TempDir()
	_, err := execute(t, "", "dkim", "generate", "--domain", "example.com", "--selector", "mail", "--out", dir)
	require.NoError(t, err)
	keyFile := filepath.Join(dir, "example.com.mail.key")

	key, err := dkim.LoadPrivateKey(keyFile)
	require.NoError(t, err)
	record, err := dkim.DNSRecord(&key.PublicKey)
	require.NoError(t, err)

	records := txtRecords{
		"example.com":                 {"v=spf1 mx -all"},
		"mail._domainkey.example.com": {record},
		"_dmarc.example.com":          {"v=DMARC1; p=quarantine"},
	}
	dnsResolver = records
	t.Cleanup(func() { dnsResolver = nil })

	t.Setenv("LEADMAIL_DKIM_DOMAIN", "example.com")
	t.Setenv("LEADMAIL_DKIM_SELECTOR", "mail")
	t.Setenv("LEADMAIL_DKIM_KEY_FILE", keyFile)

	out, err := execute(t, "", "dns", "check")
	require.NoError(t, err, out)
	assert.Contains(t, out, "DNS check for example.com")
	assert.Contains(t, out, "mail._domainkey.example.com")

	delete(records, "_dmarc.example.com")
	out, err = execute(t, "", "dns", "check")
	assert.Error(t, err)
	assert.Contains(t, out, "not_found")
}

func TestDNSCheckFallsBackToStoredFromAddress(t *testing.T) {
	useSQLite(t)
	_, err := execute(t, "pw\n", "smtp", "set",
		"--host", "smtp.example.org", "--user", "u@example.org", "--from", "noreply@example.org")
	require.NoError(t, err)

	dnsResolver = txtRecords{
		"example.org":                    {"v=spf1 mx ~all"},
		"default._domainkey.example.org": {"v=DKIM1; k=rsa; p=AAAA"},
		"_dmarc.example.org":             {"v=DMARC1; p=reject"},
	}
	t.Cleanup(func() { dnsResolver = nil })

	out, err := execute(t, "", "dns", "check")
	require.NoError(t, err, out)
	assert.Contains(t, out, "DNS check for example.org")
}
