package models

// SMTPSettings is the singleton outbound transport configuration
type SMTPSettings struct {
	Host         string `json:"host"`
	Port         int    `json:"port"`
	Secure       bool   `json:"secure"`
	User         string `json:"user"`
	Pass         string `json:"pass,omitempty"`
	FromEmail    string `json:"fromEmail"`
	SenderName   string `json:"senderName"`
	CompanyName  string `json:"companyName"`
	CompanyPhone string `json:"companyPhone"`
}

// HasCredentials reports whether both user and password are set
func (s *SMTPSettings) HasCredentials() bool {
	return s != nil && s.User != "" && s.Pass != ""
}

// EffectiveSenderName returns the sender name, falling back to the company name
func (s *SMTPSettings) EffectiveSenderName() string {
	if s.SenderName != "" {
		return s.SenderName
	}
	return s.CompanyName
}

// Redacted returns a copy safe to return to API clients
func (s SMTPSettings) Redacted() SMTPSettingsView {
	return SMTPSettingsView{
		Host:         s.Host,
		Port:         s.Port,
		Secure:       s.Secure,
		User:         s.User,
		FromEmail:    s.FromEmail,
		SenderName:   s.SenderName,
		CompanyName:  s.CompanyName,
		CompanyPhone: s.CompanyPhone,
		HasPassword:  s.Pass != "",
	}
}

// SMTPSettingsView is SMTPSettings without the password
type SMTPSettingsView struct {
	Host         string `json:"host"`
	Port         int    `json:"port"`
	Secure       bool   `json:"secure"`
	User         string `json:"user"`
	FromEmail    string `json:"fromEmail"`
	SenderName   string `json:"senderName"`
	CompanyName  string `json:"companyName"`
	CompanyPhone string `json:"companyPhone"`
	HasPassword  bool   `json:"hasPassword"`
}
