package dnscheck

import (
	"context"
	"errors"
	"net"
	"testing"
)

type fakeResolver map[string][]string

func (f fakeResolver) LookupTXT(ctx context.Context, name string) ([]string, error) {
	if name == "broken.example.com" {
		return nil, errors.New("server failure")
	}
	recs, ok := f[name]
	if !ok {
		return nil, &net.DNSError{Err: "no such host", Name: name, IsNotFound: true}
	}
	return recs, nil
}

func TestValidateDomain(t *testing.T) {
	tests := []struct {
		name    string
		domain  string
		wantErr bool
	}{
		{"valid simple", "example.com", false},
		{"valid subdomain", "mail.example.com", false},
		{"valid with dash", "my-domain.com", false},
		{"empty", "", true},
		{"too long", string(make([]byte, 254)), true},
		{"invalid chars", "example!.com", true},
		{"starts with dash", "-example.com", true},
		{"double dot", "example..com", true},
		{"path injection", "../etc/passwd", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDomain(tt.domain)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateDomain(%q) error = %v, wantErr %v", tt.domain, err, tt.wantErr)
			}
		})
	}
}

func TestValidateSelector(t *testing.T) {
	tests := []struct {
		selector string
		wantErr  bool
	}{
		{"default", false},
		{"key2024", false},
		{"dkim-key", false},
		{"", true},
		{"selector!", true},
		{"-selector", true},
	}

	for _, tt := range tests {
		if err := ValidateSelector(tt.selector); (err != nil) != tt.wantErr {
			t.Errorf("ValidateSelector(%q) error = %v, wantErr %v", tt.selector, err, tt.wantErr)
		}
	}
}

func TestCheckAllOK(t *testing.T) {
	r := fakeResolver{
		"example.com":                    {"google-site-verification=abc", "v=spf1 include:_spf.example.net -all"},
		"mail._domainkey.example.com":    {"v=DKIM1; k=rsa; p=MIIBIjAN", "BgkqhkiG9w0"},
		"_dmarc.example.com":             {"v=DMARC1; p=reject; rua=mailto:d@example.com"},
		"default._domainkey.example.com": {"v=DKIM1; p=other"},
	}

	report, err := New(r).Check(context.Background(), "Example.com.", Options{
		Selector:     "mail",
		ExpectedDKIM: "v=DKIM1; k=rsa; p=MIIBIjANBgkqhkiG9w0",
	})
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if report.Domain != "example.com" {
		t.Errorf("Domain = %q", report.Domain)
	}
	if len(report.Results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(report.Results))
	}
	for _, res := range report.Results {
		if res.Status != StatusOK {
			t.Errorf("%s status = %s (%s)", res.Type, res.Status, res.Message)
		}
	}
	if !report.OK() {
		t.Error("expected report to be OK")
	}
}

func TestCheckFindings(t *testing.T) {
	tests := []struct {
		name     string
		records  fakeResolver
		opts     Options
		typ      string
		expected Status
	}{
		{"spf missing", fakeResolver{}, Options{}, "SPF", StatusNotFound},
		{"spf plus all", fakeResolver{"example.com": {"v=spf1 +all"}}, Options{}, "SPF", StatusWarning},
		{"spf duplicated", fakeResolver{"example.com": {"v=spf1 -all", "v=spf1 ~all"}}, Options{}, "SPF", StatusError},
		{"dkim missing", fakeResolver{}, Options{}, "DKIM", StatusNotFound},
		{"dkim default selector", fakeResolver{"default._domainkey.example.com": {"v=DKIM1; k=rsa; p=AAAA"}}, Options{}, "DKIM", StatusOK},
		{"dkim revoked", fakeResolver{"default._domainkey.example.com": {"v=DKIM1; p="}}, Options{}, "DKIM", StatusError},
		{"dkim no key", fakeResolver{"default._domainkey.example.com": {"v=DKIM1; k=rsa"}}, Options{}, "DKIM", StatusWarning},
		{"dkim mismatch", fakeResolver{"default._domainkey.example.com": {"v=DKIM1; p=AAAA"}}, Options{ExpectedDKIM: "v=DKIM1; k=rsa; p=BBBB"}, "DKIM", StatusError},
		{"dmarc none", fakeResolver{"_dmarc.example.com": {"v=DMARC1; p=none"}}, Options{}, "DMARC", StatusWarning},
		{"dmarc quarantine", fakeResolver{"_dmarc.example.com": {"v=DMARC1; p=quarantine"}}, Options{}, "DMARC", StatusOK},
		{"dmarc garbage", fakeResolver{"_dmarc.example.com": {"hello"}}, Options{}, "DMARC", StatusWarning},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report, err := New(tt.records).Check(context.Background(), "example.com", tt.opts)
			if err != nil {
				t.Fatalf("Check() error = %v", err)
			}
			for _, res := range report.Results {
				if res.Type == tt.typ && res.Status != tt.expected {
					t.Errorf("%s status = %s, want %s (%s)", res.Type, res.Status, tt.expected, res.Message)
				}
			}
			if report.OK() {
				t.Error("expected report not to be OK")
			}
		})
	}
}

func TestCheckLookupError(t *testing.T) {
	report, err := New(fakeResolver{}).Check(context.Background(), "broken.example.com", Options{})
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if report.Results[0].Status != StatusError {
		t.Errorf("SPF status = %s, want error", report.Results[0].Status)
	}
}

func TestCheckRejectsBadInput(t *testing.T) {
	c := New(fakeResolver{})
	if _, err := c.Check(context.Background(), "bad domain", Options{}); !errors.Is(err, ErrInvalidDomain) {
		t.Errorf("expected ErrInvalidDomain, got %v", err)
	}
	if _, err := c.Check(context.Background(), "example.com", Options{Selector: "bad!"}); !errors.Is(err, ErrInvalidSelector) {
		t.Errorf("expected ErrInvalidSelector, got %v", err)
	}
}
