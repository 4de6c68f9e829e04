// Package template expands {{placeholder}} tokens in email subjects and bodies.
package template

import (
	"regexp"

	"github.com/foxzi/leadmail/internal/models"
)

// Placeholder names understood by Expand
const (
	FirstName       = "firstName"
	LastName        = "lastName"
	Email           = "email"
	Phone           = "phone"
	PropertyAddress = "propertyAddress"
	PropertyPrice   = "propertyPrice"
	PropertyType    = "propertyType"
	ZoomLink        = "zoomLink"
	MeetingDate     = "meetingDate"
	MeetingTime     = "meetingTime"
	SenderName      = "senderName"
	CompanyName     = "companyName"
	CompanyPhone    = "companyPhone"
)

// Vocabulary is the fixed set of recognized placeholders
var Vocabulary = []string{
	FirstName, LastName, Email, Phone,
	PropertyAddress, PropertyPrice, PropertyType,
	ZoomLink, MeetingDate, MeetingTime,
	SenderName, CompanyName, CompanyPhone,
}

var (
	varPattern = regexp.MustCompile(`\{\{([^{}]+)\}\}`)
	known      = func() map[string]bool {
		m := make(map[string]bool, len(Vocabulary))
		for _, v := range Vocabulary {
			m[v] = true
		}
		return m
	}()
)

// Context maps placeholder names to values
type Context map[string]string

// Expand replaces every {{name}} whose name is in Vocabulary with ctx[name]
// (empty when absent). Unknown tokens are left verbatim and substituted
// values are never rescanned. Values are not escaped.
func Expand(tmpl string, ctx Context) string {
	return varPattern.ReplaceAllStringFunc(tmpl, func(match string) string {
		name := match[2 : len(match)-2]
		if !known[name] {
			return match
		}
		return ctx[name]
	})
}

// IsKnown reports whether name is in Vocabulary
func IsKnown(name string) bool {
	return known[name]
}

// Unknown returns the distinct placeholder names in s that Expand will leave untouched
func Unknown(s string) []string {
	var out []string
	seen := map[string]bool{}
	for _, m := range varPattern.FindAllStringSubmatch(s, -1) {
		name := m[1]
		if known[name] || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}

// Meeting holds the per-campaign values shared by every recipient
type Meeting struct {
	ZoomLink string `json:"zoomLink"`
	Date     string `json:"meetingDate"`
	Time     string `json:"meetingTime"`
}

// LeadContext builds the expansion context for one recipient
func LeadContext(lead *models.Lead, meeting Meeting, sender *models.SMTPSettings) Context {
	ctx := Context{
		ZoomLink:    meeting.ZoomLink,
		MeetingDate: meeting.Date,
		MeetingTime: meeting.Time,
	}
	if lead != nil {
		ctx[FirstName] = lead.FirstName
		ctx[LastName] = lead.LastName
		ctx[Email] = lead.Email
		ctx[Phone] = lead.Phone
		ctx[PropertyAddress] = lead.PropertyAddress
		ctx[PropertyPrice] = lead.PropertyPrice
		ctx[PropertyType] = lead.PropertyType
	}
	if sender != nil {
		ctx[SenderName] = sender.EffectiveSenderName()
		ctx[CompanyName] = sender.CompanyName
		ctx[CompanyPhone] = sender.CompanyPhone
	}
	return ctx
}

// Rendered is a template after expansion
type Rendered struct {
	Subject string
	Body    string
}

// Render expands subject and body independently with the same context
func Render(t *models.Template, ctx Context) Rendered {
	return Rendered{
		Subject: Expand(t.Subject, ctx),
		Body:    Expand(t.Body, ctx),
	}
}
