package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/foxzi/leadmail/internal/apperr"
	"github.com/foxzi/leadmail/internal/models"
	"github.com/foxzi/leadmail/internal/store"
	"github.com/foxzi/leadmail/internal/template"
)

// TemplateRequest is the body of POST /api/templates. A non-empty ID updates
// that template. HTML is accepted in place of Body.
type TemplateRequest struct {
	ID      flexString `json:"id"`
	Name    string     `json:"name"`
	Subject string     `json:"subject"`
	Body    string     `json:"body"`
	HTML    string     `json:"html"`
}

// TemplateResponse is returned by POST /api/templates
type TemplateResponse struct {
	Success bool     `json:"success"`
	ID      string   `json:"id"`
	Unknown []string `json:"unknownPlaceholders,omitempty"`
}

// handleListTemplates handles GET /api/templates
func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := s.store.Templates().List(r.Context())
	if err != nil {
		s.sendError(w, r, err)
		return
	}
	if templates == nil {
		templates = []models.Template{}
	}
	s.sendJSON(w, http.StatusOK, templates)
}

// handleGetTemplate handles GET /api/templates/{id}
func (s *Server) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	tmpl, err := s.store.Templates().Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.sendError(w, r, err)
		return
	}
	if tmpl == nil {
		s.sendError(w, r, apperr.New(apperr.CodeTemplateNotFound, "Template not found"))
		return
	}
	s.sendJSON(w, http.StatusOK, tmpl)
}

// handleSaveTemplate handles POST /api/templates
func (s *Server) handleSaveTemplate(w http.ResponseWriter, r *http.Request) {
	var req TemplateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.sendError(w, r, err)
		return
	}

	body := req.Body
	if body == "" {
		body = req.HTML
	}
	name := strings.TrimSpace(req.Name)
	subject := strings.TrimSpace(req.Subject)
	if name == "" || subject == "" || strings.TrimSpace(body) == "" {
		s.sendError(w, r, apperr.Validation("Name, subject and body are required"))
		return
	}

	ctx := r.Context()
	templates := s.store.Templates()

	var tmpl *models.Template
	status := http.StatusOK
	if id := string(req.ID); id != "" {
		existing, err := templates.Get(ctx, id)
		if err != nil {
			s.sendError(w, r, err)
			return
		}
		if existing == nil {
			s.sendError(w, r, apperr.New(apperr.CodeTemplateNotFound, "Template not found"))
			return
		}
		tmpl = existing
		tmpl.Name, tmpl.Subject, tmpl.Body = name, subject, body
		if err := templates.Update(ctx, tmpl); err != nil {
			s.sendError(w, r, err)
			return
		}
	} else {
		tmpl = &models.Template{Name: name, Subject: subject, Body: body}
		if err := templates.Create(ctx, tmpl); err != nil {
			s.sendError(w, r, err)
			return
		}
		status = http.StatusCreated
	}

	unknown := append(template.Unknown(tmpl.Subject), template.Unknown(tmpl.Body)...)
	if len(unknown) > 0 {
		s.logger.Warn("template has unknown placeholders", "id", tmpl.ID, "placeholders", unknown)
	}

	s.sendJSON(w, status, TemplateResponse{Success: true, ID: tmpl.ID, Unknown: unknown})
}

// handleDeleteTemplate handles DELETE /api/templates/{id}
func (s *Server) handleDeleteTemplate(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Templates().Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.sendError(w, r, apperr.New(apperr.CodeTemplateNotFound, "Template not found"))
			return
		}
		s.sendError(w, r, err)
		return
	}
	s.sendJSON(w, http.StatusOK, OKResponse{Success: true})
}
