// Package dnscheck validates the DNS records a sending domain needs for
// campaign mail to be accepted: SPF, DKIM and DMARC.
package dnscheck

import (
	"context"
	"errors"
	"fmt"
	"net"
	"regexp"
	"strings"
)

var (
	ErrInvalidDomain   = errors.New("invalid domain name")
	ErrInvalidSelector = errors.New("invalid DKIM selector")
)

// RFC 1035
var (
	domainRegex   = regexp.MustCompile(`^(?i)[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?(\.[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?)*$`)
	selectorRegex = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?$`)
)

// ValidateDomain checks if domain name is valid
func ValidateDomain(domain string) error {
	if domain == "" || len(domain) > 253 || !domainRegex.MatchString(domain) {
		return ErrInvalidDomain
	}
	return nil
}

// ValidateSelector checks if DKIM selector is valid
func ValidateSelector(selector string) error {
	if !selectorRegex.MatchString(selector) {
		return ErrInvalidSelector
	}
	return nil
}

// Status of a single record check
type Status string

const (
	StatusOK       Status = "ok"
	StatusWarning  Status = "warning"
	StatusError    Status = "error"
	StatusNotFound Status = "not_found"
)

// CheckResult represents a single DNS check result
type CheckResult struct {
	Type    string `json:"type"`
	Name    string `json:"name"`
	Status  Status `json:"status"`
	Value   string `json:"value,omitempty"`
	Message string `json:"message,omitempty"`
}

// Report contains all check results for a sending domain
type Report struct {
	Domain  string        `json:"domain"`
	Results []CheckResult `json:"results"`
}

// OK reports whether every record passed without warnings
func (r *Report) OK() bool {
	for _, c := range r.Results {
		if c.Status != StatusOK {
			return false
		}
	}
	return true
}

// Resolver is the subset of *net.Resolver the checks need
type Resolver interface {
	LookupTXT(ctx context.Context, name string) ([]string, error)
}

// Options for Check
type Options struct {
	Selector string
	// ExpectedDKIM is the locally generated record; when set the published
	// public key must match it.
	ExpectedDKIM string
}

// Checker runs the record checks against a resolver
type Checker struct {
	resolver Resolver
}

// New creates a checker. A nil resolver means net.DefaultResolver.
func New(r Resolver) *Checker {
	if r == nil {
		r = net.DefaultResolver
	}
	return &Checker{resolver: r}
}

// Check validates SPF, DKIM and DMARC for domain
func (c *Checker) Check(ctx context.Context, domain string, opts Options) (*Report, error) {
	domain = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(domain)), ".")
	if err := ValidateDomain(domain); err != nil {
		return nil, err
	}
	if opts.Selector == "" {
		opts.Selector = "default"
	}
	if err := ValidateSelector(opts.Selector); err != nil {
		return nil, err
	}

	return &Report{
		Domain: domain,
		Results: []CheckResult{
			c.checkSPF(ctx, domain),
			c.checkDKIM(ctx, domain, opts),
			c.checkDMARC(ctx, domain),
		},
	}, nil
}

// lookup returns the TXT records of name. A missing name is not an error.
func (c *Checker) lookup(ctx context.Context, name string) ([]string, error) {
	records, err := c.resolver.LookupTXT(ctx, name)
	if err != nil {
		var dnsErr *net.DNSError
		if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
			return nil, nil
		}
		return nil, err
	}
	return records, nil
}

func (c *Checker) checkSPF(ctx context.Context, domain string) CheckResult {
	res := CheckResult{Type: "SPF", Name: domain}

	records, err := c.lookup(ctx, domain)
	if err != nil {
		res.Status = StatusError
		res.Message = fmt.Sprintf("Lookup failed: %v", err)
		return res
	}

	var spf []string
	for _, txt := range records {
		if txt == "v=spf1" || strings.HasPrefix(txt, "v=spf1 ") {
			spf = append(spf, txt)
		}
	}

	switch {
	case len(spf) == 0:
		res.Status = StatusNotFound
		res.Message = "No SPF record found"
	case len(spf) > 1:
		res.Status = StatusError
		res.Value = strings.Join(spf, " | ")
		res.Message = "Multiple SPF records found, receivers will treat this as a permanent error"
	default:
		res.Value = spf[0]
		res.Status = StatusOK
		switch {
		case strings.Contains(spf[0], "+all"):
			res.Status = StatusWarning
			res.Message = "SPF uses +all and allows any sender"
		case strings.Contains(spf[0], "-all"):
			res.Message = "SPF configured with strict policy (-all)"
		case strings.Contains(spf[0], "~all"):
			res.Message = "SPF configured with soft fail (~all)"
		default:
			res.Status = StatusWarning
			res.Message = "SPF record has no all mechanism"
		}
	}
	return res
}

func (c *Checker) checkDKIM(ctx context.Context, domain string, opts Options) CheckResult {
	name := opts.Selector + "._domainkey." + domain
	res := CheckResult{Type: "DKIM", Name: name}

	records, err := c.lookup(ctx, name)
	if err != nil {
		res.Status = StatusError
		res.Message = fmt.Sprintf("Lookup failed: %v", err)
		return res
	}
	if len(records) == 0 {
		res.Status = StatusNotFound
		res.Message = fmt.Sprintf("No DKIM record found for selector '%s'", opts.Selector)
		return res
	}

	// Long keys are split into several strings
	full := strings.Join(records, "")
	res.Value = truncate(full, 100)

	tags := parseTags(full)
	if tags["v"] != "" && tags["v"] != "DKIM1" {
		res.Status = StatusWarning
		res.Message = "TXT record does not look like a DKIM key"
		return res
	}
	pub, ok := tags["p"]
	if !ok {
		res.Status = StatusWarning
		res.Message = "DKIM record missing public key (p=)"
		return res
	}
	if pub == "" {
		res.Status = StatusError
		res.Message = "DKIM key has been revoked (empty p=)"
		return res
	}

	if opts.ExpectedDKIM != "" && parseTags(opts.ExpectedDKIM)["p"] != pub {
		res.Status = StatusError
		res.Message = "Published key does not match the local signing key"
		return res
	}

	res.Status = StatusOK
	res.Message = "DKIM configured"
	if k := tags["k"]; k != "" {
		res.Message += " with " + k + " key"
	}
	return res
}

func (c *Checker) checkDMARC(ctx context.Context, domain string) CheckResult {
	name := "_dmarc." + domain
	res := CheckResult{Type: "DMARC", Name: name}

	records, err := c.lookup(ctx, name)
	if err != nil {
		res.Status = StatusError
		res.Message = fmt.Sprintf("Lookup failed: %v", err)
		return res
	}

	full := strings.Join(records, "")
	if !strings.HasPrefix(full, "v=DMARC1") {
		if full == "" {
			res.Status = StatusNotFound
			res.Message = "No DMARC record found"
		} else {
			res.Status = StatusWarning
			res.Value = full
			res.Message = "TXT record does not look like a DMARC policy"
		}
		return res
	}

	res.Value = full
	switch parseTags(full)["p"] {
	case "reject":
		res.Status = StatusOK
		res.Message = "DMARC configured with reject policy"
	case "quarantine":
		res.Status = StatusOK
		res.Message = "DMARC configured with quarantine policy"
	case "none":
		res.Status = StatusWarning
		res.Message = "DMARC policy is none (monitoring only)"
	default:
		res.Status = StatusWarning
		res.Message = "DMARC record has no valid p= policy"
	}
	return res
}

// parseTags splits "k=v; k2=v2" tag lists used by DKIM and DMARC records
func parseTags(record string) map[string]string {
	tags := make(map[string]string)
	for _, part := range strings.Split(record, ";") {
		k, v, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		v = strings.Join(strings.Fields(v), "")
		tags[strings.TrimSpace(k)] = v
	}
	return tags
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
