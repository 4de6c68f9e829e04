package api

import (
	"net/http"
	"strings"

	"github.com/foxzi/leadmail/internal/apperr"
	"github.com/foxzi/leadmail/internal/mailer"
	"github.com/foxzi/leadmail/internal/models"
)

// SMTPSettingsRequest is the body of POST /api/smtp-settings. Port and secure
// accept strings. Pass left out of the body keeps the stored password; an
// empty string clears it. Company, Email and Phone are the older field names.
type SMTPSettingsRequest struct {
	Host         string     `json:"host"`
	Port         flexInt    `json:"port"`
	Secure       flexBool   `json:"secure"`
	User         string     `json:"user"`
	Pass         *string    `json:"pass"`
	FromEmail    string     `json:"fromEmail"`
	SenderName   string     `json:"senderName"`
	CompanyName  string     `json:"companyName"`
	CompanyPhone flexString `json:"companyPhone"`

	Company string     `json:"company"`
	Email   string     `json:"email"`
	Phone   flexString `json:"phone"`
}

func (req *SMTPSettingsRequest) settings(current *models.SMTPSettings) *models.SMTPSettings {
	s := &models.SMTPSettings{
		Host:         strings.TrimSpace(req.Host),
		Port:         int(req.Port),
		Secure:       bool(req.Secure),
		User:         strings.TrimSpace(req.User),
		FromEmail:    firstNonEmpty(req.FromEmail, req.Email),
		SenderName:   strings.TrimSpace(req.SenderName),
		CompanyName:  firstNonEmpty(req.CompanyName, req.Company),
		CompanyPhone: firstNonEmpty(string(req.CompanyPhone), string(req.Phone)),
	}
	if s.Port == 0 {
		s.Port = mailer.DefaultPort
	}
	switch {
	case req.Pass != nil:
		s.Pass = *req.Pass
	case current != nil:
		s.Pass = current.Pass
	}
	return s
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// handleGetSMTPSettings handles GET /api/smtp-settings
func (s *Server) handleGetSMTPSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.store.Settings().GetSMTP(r.Context())
	if err != nil {
		s.sendError(w, r, err)
		return
	}
	if settings == nil {
		settings = &models.SMTPSettings{Port: mailer.DefaultPort}
	}
	s.sendJSON(w, http.StatusOK, settings.Redacted())
}

// handleSaveSMTPSettings handles POST /api/smtp-settings
func (s *Server) handleSaveSMTPSettings(w http.ResponseWriter, r *http.Request) {
	var req SMTPSettingsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.sendError(w, r, err)
		return
	}
	if req.Port < 0 || req.Port > 65535 {
		s.sendError(w, r, apperr.Validation("Port must be between 1 and 65535"))
		return
	}

	current, err := s.store.Settings().GetSMTP(r.Context())
	if err != nil {
		s.sendError(w, r, err)
		return
	}

	settings := req.settings(current)
	if err := s.store.Settings().SaveSMTP(r.Context(), settings); err != nil {
		s.sendError(w, r, err)
		return
	}

	s.logger.Info("smtp settings saved", "host", settings.Host, "port", settings.Port, "user", settings.User)
	s.sendJSON(w, http.StatusOK, OKResponse{Success: true})
}

// handleSMTPTest handles POST /api/smtp-test
func (s *Server) handleSMTPTest(w http.ResponseWriter, r *http.Request) {
	if err := s.runner.VerifyTransport(r.Context()); err != nil {
		s.sendError(w, r, err)
		return
	}
	s.sendJSON(w, http.StatusOK, OKResponse{Success: true, Message: "Connection successful!"})
}

// TestEmailRequest is the body of POST /api/smtp-test-email
type TestEmailRequest struct {
	Email string `json:"email"`
}

// handleSMTPTestEmail handles POST /api/smtp-test-email
func (s *Server) handleSMTPTestEmail(w http.ResponseWriter, r *http.Request) {
	var req TestEmailRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.sendError(w, r, err)
		return
	}

	to := strings.TrimSpace(req.Email)
	if _, err := s.runner.SendTest(r.Context(), to); err != nil {
		s.sendError(w, r, err)
		return
	}
	s.sendJSON(w, http.StatusOK, OKResponse{Success: true, Message: "Email sent to " + to})
}
